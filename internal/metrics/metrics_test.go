package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordParse(t *testing.T) {
	before := testutil.ToFloat64(parseTotal.WithLabelValues(ParseRetried))
	RecordParse(ParseRetried)
	RecordParse(ParseRetried)
	assert.Equal(t, before+2, testutil.ToFloat64(parseTotal.WithLabelValues(ParseRetried)))
}

func TestRecordResolveAndVerb(t *testing.T) {
	before := testutil.ToFloat64(resolveTotal.WithLabelValues(ResolveLiteral))
	RecordResolve(ResolveLiteral)
	assert.Equal(t, before+1, testutil.ToFloat64(resolveTotal.WithLabelValues(ResolveLiteral)))

	beforeVerb := testutil.ToFloat64(verbCallsTotal.WithLabelValues("show"))
	RecordVerb("show")
	assert.Equal(t, beforeVerb+1, testutil.ToFloat64(verbCallsTotal.WithLabelValues("show")))
}

func TestRecordCost(t *testing.T) {
	RecordCost(-2)
	assert.Equal(t, 1, testutil.CollectAndCount(resolveCost))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0") }()
	cancel()
	require.NoError(t, <-done)
}

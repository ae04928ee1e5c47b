// Package metrics exposes Prometheus counters for the parse/resolve/dispatch
// pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Parse outcomes.
const (
	ParseAccepted = "accepted"
	ParseRetried  = "retried"
	ParseRejected = "rejected"
)

// Resolve outcomes of one leaf noun phrase build.
const (
	ResolveFunction = "function"
	ResolveLiteral  = "literal"
	ResolveAbsent   = "absent"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	// parseTotal counts transduced lines by outcome.
	// Labels: outcome (accepted, retried, rejected)
	parseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitchat",
		Name:      "parse_total",
		Help:      "Input lines by parse outcome",
	}, []string{"outcome"})

	// resolveTotal counts leaf builds by how they were satisfied.
	// Labels: outcome (function, literal, absent)
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitchat",
		Name:      "resolve_total",
		Help:      "Noun phrase builds by resolution outcome",
	}, []string{"outcome"})

	// verbCallsTotal counts verb handler invocations.
	// Labels: verb
	verbCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitchat",
		Name:      "verb_calls_total",
		Help:      "Verb handler invocations",
	}, []string{"verb"})

	// resolveCost observes the cost of every selected function.
	resolveCost = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gitchat",
		Name:      "resolve_cost",
		Help:      "Unification cost of selected functions",
		Buckets:   []float64{-8, -4, -2, 0, 1, 2, 4, 8, 16, 32},
	})
)

// RecordParse records one parse outcome.
func RecordParse(outcome string) {
	parseTotal.WithLabelValues(outcome).Inc()
}

// RecordResolve records how a leaf noun phrase was built.
func RecordResolve(outcome string) {
	resolveTotal.WithLabelValues(outcome).Inc()
}

// RecordCost records the cost of a selected function.
func RecordCost(cost int) {
	resolveCost.Observe(float64(cost))
}

// RecordVerb records one verb invocation.
func RecordVerb(verb string) {
	verbCallsTotal.WithLabelValues(verb).Inc()
}

// Serve exposes the default registry on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errc
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

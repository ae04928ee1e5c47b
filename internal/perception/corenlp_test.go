package perception

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoreNLPServer(t *testing.T, handler func(text, annotators string) (int, string)) *CoreNLPClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var props map[string]string
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("properties")), &props))
		assert.Equal(t, "json", props["outputFormat"])

		status, out := handler(string(body), props["annotators"])
		w.WriteHeader(status)
		_, _ = io.WriteString(w, out)
	}))
	t.Cleanup(srv.Close)
	return NewCoreNLPClient(CoreNLPConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestCoreNLPClient_Parse(t *testing.T) {
	client := newCoreNLPServer(t, func(text, annotators string) (int, string) {
		assert.Equal(t, "show my repos", text)
		assert.Contains(t, annotators, "parse")
		return http.StatusOK, `{"sentences":[{"parse":"(ROOT\n  (S\n    (VP (VB show)\n      (NP (PRP$ my) (NNS repos)))))"}]}`
	})

	tree, err := client.Parse(context.Background(), "show my repos")
	require.NoError(t, err)
	assert.Equal(t, "(ROOT (S (VP (VB show) (NP (PRP$ my) (NNS repos)))))", tree.String())
}

func TestCoreNLPClient_Heads(t *testing.T) {
	client := newCoreNLPServer(t, func(text, annotators string) (int, string) {
		assert.Equal(t, "my private repos", text)
		assert.Contains(t, annotators, "depparse")
		return http.StatusOK, `{"sentences":[{"basicDependencies":[
			{"dep":"ROOT","governor":0,"dependent":3,"dependentGloss":"repos"},
			{"dep":"amod","governor":3,"dependent":2,"dependentGloss":"private"},
			{"dep":"nmod:poss","governor":3,"dependent":1,"dependentGloss":"my"}
		]}]}`
	})

	words := []Word{{"PRP$", "my"}, {"JJ", "private"}, {"NNS", "repos"}}
	col, err := client.Heads(context.Background(), words)
	require.NoError(t, err)
	assert.Equal(t, Collocation{Head: "repos", Modifiers: []string{"my", "private"}}, col)
}

func TestCoreNLPClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"status", http.StatusInternalServerError, "boom", "status 500"},
		{"no sentences", http.StatusOK, `{"sentences":[]}`, "no sentences"},
		{"bad json", http.StatusOK, `{`, "failed to parse response"},
		{"no root", http.StatusOK, `{"sentences":[{"basicDependencies":[{"dep":"amod","governor":2,"dependent":1,"dependentGloss":"x"}]}]}`, "no root dependency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newCoreNLPServer(t, func(string, string) (int, string) { return tt.status, tt.body })
			_, err := client.Heads(context.Background(), []Word{{"NN", "x"}, {"NN", "y"}})
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "got %v", err)
		})
	}
}

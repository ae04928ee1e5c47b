package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"gitchat/internal/logging"
)

// CoreNLPClient talks to a Stanford CoreNLP server. It serves both as the
// constituency parser and as the dependency collaborator.
type CoreNLPClient struct {
	baseURL    string
	httpClient *http.Client
}

// CoreNLPConfig holds configuration for the CoreNLP client.
type CoreNLPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultCoreNLPConfig returns sensible defaults.
func DefaultCoreNLPConfig() CoreNLPConfig {
	return CoreNLPConfig{
		BaseURL: "http://localhost:9000",
		Timeout: 30 * time.Second,
	}
}

// NewCoreNLPClient creates a client with custom config.
func NewCoreNLPClient(config CoreNLPConfig) *CoreNLPClient {
	return &CoreNLPClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// coreNLPDocument is the subset of the CoreNLP JSON output we read.
type coreNLPDocument struct {
	Sentences []coreNLPSentence `json:"sentences"`
}

type coreNLPSentence struct {
	Parse             string              `json:"parse"`
	BasicDependencies []coreNLPDependency `json:"basicDependencies"`
}

type coreNLPDependency struct {
	Dep            string `json:"dep"`
	Governor       int    `json:"governor"`
	Dependent      int    `json:"dependent"`
	DependentGloss string `json:"dependentGloss"`
}

func (c *CoreNLPClient) annotate(ctx context.Context, text, annotators string) (*coreNLPDocument, error) {
	props, err := json.Marshal(map[string]string{
		"annotators":   annotators,
		"outputFormat": "json",
	})
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL + "/?properties=" + url.QueryEscape(string(props))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(text)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	timer := logging.StartTimer(logging.CategoryAPI, "corenlp "+annotators)
	resp, err := c.httpClient.Do(req)
	timer.Stop()
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("corenlp returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc coreNLPDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(doc.Sentences) == 0 {
		return nil, fmt.Errorf("corenlp returned no sentences")
	}
	return &doc, nil
}

// Parse returns the constituency tree of the first sentence of text.
func (c *CoreNLPClient) Parse(ctx context.Context, text string) (*Tree, error) {
	doc, err := c.annotate(ctx, text, "tokenize,ssplit,pos,parse")
	if err != nil {
		return nil, err
	}
	return ReadBracketed(doc.Sentences[0].Parse)
}

// Heads dependency-parses words and returns the word governed by ROOT as the
// head; the other words become modifiers in their original order.
func (c *CoreNLPClient) Heads(ctx context.Context, words []Word) (Collocation, error) {
	doc, err := c.annotate(ctx, strings.Join(texts(words), " "), "tokenize,ssplit,pos,depparse")
	if err != nil {
		return Collocation{}, err
	}
	deps := append([]coreNLPDependency(nil), doc.Sentences[0].BasicDependencies...)
	sort.Slice(deps, func(i, j int) bool { return deps[i].Dependent < deps[j].Dependent })

	var col Collocation
	for _, d := range deps {
		if d.Governor == 0 {
			col.Head = d.DependentGloss
		} else {
			col.Modifiers = append(col.Modifiers, d.DependentGloss)
		}
	}
	if col.Head == "" {
		return Collocation{}, fmt.Errorf("no root dependency for %q", strings.Join(texts(words), " "))
	}
	return col, nil
}

package perception

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitchat/internal/logging"
	"gitchat/internal/metrics"
)

// ErrRejected is returned when a line does not yield a sentence: empty input
// or a root that is not a clause even after the imperative retry.
var ErrRejected = errors.New("sentence rejected")

// DefaultImperativePrefix is prepended when the parser sees a bare noun phrase.
const DefaultImperativePrefix = "show"

// TreeParser is the constituency parser collaborator.
type TreeParser interface {
	Parse(ctx context.Context, text string) (*Tree, error)
}

// Transducer turns one input line into a Sentence.
type Transducer interface {
	Transduce(ctx context.Context, input string) (*Sentence, error)
}

// TreeTransducer implements Transducer over a TreeParser and a HeadFinder.
type TreeTransducer struct {
	parser  TreeParser
	builder *Builder
	prefix  string
}

// NewTreeTransducer creates a transducer. An empty prefix selects
// DefaultImperativePrefix.
func NewTreeTransducer(parser TreeParser, heads HeadFinder, prefix string) *TreeTransducer {
	if prefix == "" {
		prefix = DefaultImperativePrefix
	}
	return &TreeTransducer{parser: parser, builder: NewBuilder(heads), prefix: prefix}
}

// Transduce parses input and builds its Sentence. A root that is a bare noun
// phrase or fragment is retried once with the imperative prefix.
func (t *TreeTransducer) Transduce(ctx context.Context, input string) (*Sentence, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		metrics.RecordParse(metrics.ParseRejected)
		return nil, ErrRejected
	}

	tree, err := t.parser.Parse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("parser failed: %w", err)
	}
	clause := tree.Clause()
	logging.PerceptionDebug("parsed %q as %s", input, clause)

	if clause.Label == LabelNoun || clause.Label == LabelFragment {
		metrics.RecordParse(metrics.ParseRetried)
		retry := t.prefix + " " + input
		if tree, err = t.parser.Parse(ctx, retry); err != nil {
			return nil, fmt.Errorf("parser failed: %w", err)
		}
		clause = tree.Clause()
		logging.PerceptionDebug("retried as %q: %s", retry, clause)
	}

	if clause.Label != LabelClause {
		metrics.RecordParse(metrics.ParseRejected)
		logging.Perception("rejected %q: root is %s", input, clause.Label)
		return nil, ErrRejected
	}

	s, err := t.builder.BuildSentence(ctx, clause)
	if err != nil {
		return nil, err
	}
	metrics.RecordParse(metrics.ParseAccepted)
	return s, nil
}

// Builder returns the phrase builder used by the transducer.
func (t *TreeTransducer) Builder() *Builder { return t.builder }

// =============================================================================
// BRACKET PARSER - offline constituency parser
// =============================================================================

// BracketParser reads already-parsed input: each line is a bracketed tree.
// Bare words before the first bracket are read as imperative verbs, so the
// transducer's retry of "show (NP ...)" yields "(S (VP (VB show) (NP ...)))".
type BracketParser struct{}

func (BracketParser) Parse(_ context.Context, text string) (*Tree, error) {
	text = strings.TrimSpace(text)
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return nil, fmt.Errorf("expected a bracketed tree, got %q", text)
	}
	tree, err := ReadBracketed(text[open:])
	if err != nil {
		return nil, err
	}
	return imperative(strings.Fields(text[:open]), tree), nil
}

// imperative wraps tree as the object of verbs. No verbs leaves tree as is.
func imperative(verbs []string, tree *Tree) *Tree {
	if len(verbs) == 0 {
		return tree
	}
	vp := Node(LabelVerb)
	for _, v := range verbs {
		vp.Children = append(vp.Children, Pre("VB", v))
	}
	vp.Children = append(vp.Children, tree.Clause())
	return Node(LabelRoot, Node(LabelClause, vp))
}

// CannedParser answers from a table of pre-parsed sentences, keyed by input
// text. Text made of leading words followed by a known input is parsed as
// those words governing the known tree, which covers the imperative retry.
// Unknown text goes to Fallback.
type CannedParser struct {
	Trees    map[string]string
	Fallback TreeParser
}

func (c *CannedParser) Parse(ctx context.Context, text string) (*Tree, error) {
	text = strings.Join(strings.Fields(text), " ")
	if tree, ok := c.Trees[text]; ok {
		return ReadBracketed(tree)
	}
	words := strings.Fields(text)
	for i := 1; i < len(words); i++ {
		tree, ok := c.Trees[strings.Join(words[i:], " ")]
		if !ok {
			continue
		}
		t, err := ReadBracketed(tree)
		if err != nil {
			return nil, err
		}
		return imperative(words[:i], t), nil
	}
	if c.Fallback == nil {
		return nil, fmt.Errorf("no tree for %q", text)
	}
	return c.Fallback.Parse(ctx, text)
}

package perception

import (
	"context"
	"fmt"
)

// Collocation is a head word plus its modifiers, one group of a flat word
// sequence split on conjunctions.
type Collocation struct {
	Head      string
	Modifiers []string
}

// HeadFinder is the dependency collaborator: it picks the word governed by
// the virtual root as head and returns the rest as modifiers in word order.
type HeadFinder interface {
	Heads(ctx context.Context, words []Word) (Collocation, error)
}

// HeadFinderFunc adapts a function to HeadFinder.
type HeadFinderFunc func(ctx context.Context, words []Word) (Collocation, error)

func (f HeadFinderFunc) Heads(ctx context.Context, words []Word) (Collocation, error) {
	return f(ctx, words)
}

// RightmostNounHeads is the offline head finder. English noun phrases are
// head-final, so the head is the rightmost noun-tagged word, or the last word
// when nothing is tagged as a noun.
type RightmostNounHeads struct{}

func (RightmostNounHeads) Heads(_ context.Context, words []Word) (Collocation, error) {
	if len(words) == 0 {
		return Collocation{}, fmt.Errorf("no words to collocate")
	}
	head := len(words) - 1
	for i := len(words) - 1; i >= 0; i-- {
		if NounLevel.Has(words[i].Tag) {
			head = i
			break
		}
	}
	c := Collocation{Head: words[head].Text}
	for i, w := range words {
		if i != head {
			c.Modifiers = append(c.Modifiers, w.Text)
		}
	}
	return c, nil
}

// splitOnConjunctions groups the word-level children of t, starting a new
// group at every conjunction token. Groups may be empty.
func splitOnConjunctions(t *Tree) [][]Word {
	groups := [][]Word{nil}
	for _, c := range t.Children {
		if c.IsLeaf() {
			continue
		}
		if ConjunctionLevel.Has(c.Label) {
			groups = append(groups, nil)
			continue
		}
		if !WordLevel.Has(c.Label) {
			continue
		}
		if w, ok := c.Word(); ok {
			groups[len(groups)-1] = append(groups[len(groups)-1], w)
		}
	}
	return groups
}

// collocate splits one nonempty group into head and modifiers. A single word
// is its own head and never reaches the collaborator.
func collocate(ctx context.Context, heads HeadFinder, words []Word) (Collocation, error) {
	if len(words) == 1 {
		return Collocation{Head: words[0].Text}, nil
	}
	c, err := heads.Heads(ctx, words)
	if err != nil {
		return Collocation{}, fmt.Errorf("failed to find head of %v: %w", texts(words), err)
	}
	return c, nil
}

// ParseCollocations splits the word-level children of t on conjunction
// tokens and resolves every nonempty group into a Collocation.
func ParseCollocations(ctx context.Context, heads HeadFinder, t *Tree) ([]Collocation, error) {
	var out []Collocation
	for _, group := range splitOnConjunctions(t) {
		if len(group) == 0 {
			continue
		}
		c, err := collocate(ctx, heads, group)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func texts(words []Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}

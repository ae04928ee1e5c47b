package perception

import (
	"context"
	"strings"
)

// =============================================================================
// PHRASE STRUCTURES
// =============================================================================

// NounPhrase is either a *LeafNounPhrase or a *CompositeNounPhrase.
type NounPhrase interface {
	nounPhrase()
	clone() NounPhrase
}

// LeafNounPhrase is a single head noun with its modifiers, as written.
type LeafNounPhrase struct {
	Text       string
	Noun       string
	Adjectives []string
}

// CompositeNounPhrase groups noun phrases with the prepositional phrases
// attached at their level.
type CompositeNounPhrase struct {
	NounPhrases          []NounPhrase
	PrepositionalPhrases []*PrepositionalPhrase
}

// PrepositionalPhrase is a preposition and its object noun phrases. A
// possessive marker is modeled as a PrepositionalPhrase whose preposition is
// the marker ("'s").
type PrepositionalPhrase struct {
	Preposition string
	NounPhrases []NounPhrase
}

func (*LeafNounPhrase) nounPhrase()      {}
func (*CompositeNounPhrase) nounPhrase() {}

func (l *LeafNounPhrase) clone() NounPhrase {
	c := *l
	c.Adjectives = append([]string(nil), l.Adjectives...)
	return &c
}

func (c *CompositeNounPhrase) clone() NounPhrase {
	return &CompositeNounPhrase{
		NounPhrases:          cloneNounPhrases(c.NounPhrases),
		PrepositionalPhrases: clonePrepositionalPhrases(c.PrepositionalPhrases),
	}
}

func (p *PrepositionalPhrase) clone() *PrepositionalPhrase {
	return &PrepositionalPhrase{Preposition: p.Preposition, NounPhrases: cloneNounPhrases(p.NounPhrases)}
}

func cloneNounPhrases(nps []NounPhrase) []NounPhrase {
	if nps == nil {
		return nil
	}
	out := make([]NounPhrase, len(nps))
	for i, np := range nps {
		out[i] = np.clone()
	}
	return out
}

func clonePrepositionalPhrases(pps []*PrepositionalPhrase) []*PrepositionalPhrase {
	if pps == nil {
		return nil
	}
	out := make([]*PrepositionalPhrase, len(pps))
	for i, pp := range pps {
		out[i] = pp.clone()
	}
	return out
}

var (
	npTags          = tagSet(LabelNoun)
	ppTags          = tagSet(LabelPrep)
	vpTags          = tagSet(LabelVerb)
	prepositionTags = tagSet(LabelPreposition, LabelTo)
)

// possessiveDepth is how far a possessive-derived phrase bubbles before it
// attaches.
const possessiveDepth = 2

// pendingPhrase is a prepositional phrase still bubbling toward its
// attachment point; depth counts the levels left.
type pendingPhrase struct {
	phrase *PrepositionalPhrase
	depth  int
}

// settle moves every pending phrase up one level. Phrases whose depth reaches
// zero attach here; the rest keep bubbling. The input is not modified.
func settle(pending []pendingPhrase) (attached []*PrepositionalPhrase, still []pendingPhrase) {
	for _, p := range pending {
		p.depth--
		if p.depth <= 0 {
			attached = append(attached, p.phrase)
		} else {
			still = append(still, p)
		}
	}
	return attached, still
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder turns constituency trees into phrase structures.
type Builder struct {
	heads HeadFinder
}

// NewBuilder creates a phrase builder backed by the given dependency collaborator.
func NewBuilder(heads HeadFinder) *Builder {
	if heads == nil {
		heads = RightmostNounHeads{}
	}
	return &Builder{heads: heads}
}

func (b *Builder) leaf(ctx context.Context, words []Word) (*LeafNounPhrase, error) {
	c, err := collocate(ctx, b.heads, words)
	if err != nil {
		return nil, err
	}
	return &LeafNounPhrase{Text: c.Head, Noun: c.Head, Adjectives: c.Modifiers}, nil
}

// prepositionalPhrases resolves every PP child of t. Nested PPs are resolved
// first; what they leave pending is settled one level here. Returns the
// phrases attached at this level and those still pending for an ancestor.
func (b *Builder) prepositionalPhrases(ctx context.Context, t *Tree) ([]*PrepositionalPhrase, []pendingPhrase, error) {
	var result []*PrepositionalPhrase
	var pending []pendingPhrase

	for _, pp := range t.Subtrees(ppTags) {
		if len(pp.Subtrees(ppTags)) != 0 {
			inner, innerPending, err := b.prepositionalPhrases(ctx, pp)
			if err != nil {
				return nil, nil, err
			}
			attached, still := settle(innerPending)
			result = append(result, attached...)
			pending = append(pending, still...)
			result = append(result, inner...)
		}

		heads := pp.Subtrees(prepositionTags)
		if len(heads) == 0 {
			continue
		}
		preposition, _ := heads[0].Word()

		nps, npPending, err := b.nounPhrases(ctx, pp)
		if err != nil {
			return nil, nil, err
		}
		attached, still := settle(npPending)
		result = append(result, attached...)
		pending = append(pending, still...)
		result = append(result, &PrepositionalPhrase{Preposition: preposition.Text, NounPhrases: nps})
	}
	return result, pending, nil
}

// nounPhrases resolves every NP child of t. The word-level children of each
// NP are split into collocations; a possessive collocation becomes a pending
// phrase instead of a noun. Returns the noun phrases of this level (flat when
// nothing attaches here, composite otherwise) and the phrases still pending.
func (b *Builder) nounPhrases(ctx context.Context, t *Tree) ([]NounPhrase, []pendingPhrase, error) {
	var result []NounPhrase
	var pending []pendingPhrase

	for _, np := range t.Subtrees(npTags) {
		var nps []NounPhrase
		var pps []*PrepositionalPhrase

		for _, group := range splitOnConjunctions(np) {
			if len(group) == 0 {
				continue
			}
			var marker []string
			var words []Word
			for _, w := range group {
				if w.Tag == LabelPossessive {
					marker = append(marker, w.Text)
				} else {
					words = append(words, w)
				}
			}

			var leaf *LeafNounPhrase
			if len(words) > 0 {
				var err error
				if leaf, err = b.leaf(ctx, words); err != nil {
					return nil, nil, err
				}
			}
			if len(marker) > 0 {
				phrase := &PrepositionalPhrase{Preposition: marker[0]}
				if leaf != nil {
					phrase.NounPhrases = []NounPhrase{leaf}
				}
				pending = append(pending, pendingPhrase{phrase: phrase, depth: possessiveDepth})
			} else if leaf != nil {
				nps = append(nps, leaf)
			}
		}

		inner, innerPending, err := b.nounPhrases(ctx, np)
		if err != nil {
			return nil, nil, err
		}
		attached, still := settle(innerPending)
		pps = append(pps, attached...)
		pending = append(pending, still...)

		ppAttached, ppPending, err := b.prepositionalPhrases(ctx, np)
		if err != nil {
			return nil, nil, err
		}
		attached, still = settle(ppPending)
		pps = append(pps, attached...)
		pending = append(pending, still...)

		nps = append(nps, inner...)
		pps = append(pps, ppAttached...)
		if len(pps) == 0 {
			result = append(result, nps...)
		} else {
			result = append(result, &CompositeNounPhrase{NounPhrases: nps, PrepositionalPhrases: pps})
		}
	}
	return result, pending, nil
}

func phrasesOf(pending []pendingPhrase) []*PrepositionalPhrase {
	out := make([]*PrepositionalPhrase, 0, len(pending))
	for _, p := range pending {
		out = append(out, p.phrase)
	}
	return out
}

// =============================================================================
// DEBUG RENDERING
// =============================================================================

func writeNounPhrases(b *strings.Builder, nps []NounPhrase, indent int) {
	for _, np := range nps {
		switch v := np.(type) {
		case *LeafNounPhrase:
			b.WriteString(strings.Repeat("\t", indent))
			b.WriteString("NN: " + v.Noun)
			if len(v.Adjectives) > 0 {
				b.WriteString("  JJ: [" + strings.Join(v.Adjectives, ", ") + "]")
			}
			b.WriteByte('\n')
		case *CompositeNounPhrase:
			b.WriteString(strings.Repeat("\t", indent) + "NP:\n")
			writeNounPhrases(b, v.NounPhrases, indent+1)
			writePrepositionalPhrases(b, v.PrepositionalPhrases, indent+1)
		}
	}
}

func writePrepositionalPhrases(b *strings.Builder, pps []*PrepositionalPhrase, indent int) {
	for _, pp := range pps {
		b.WriteString(strings.Repeat("\t", indent) + "IN: " + pp.Preposition + "\n")
		writeNounPhrases(b, pp.NounPhrases, indent+1)
	}
}

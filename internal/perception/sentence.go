package perception

import (
	"context"
	"strings"

	"gitchat/internal/logging"
)

// VerbPhrase is one governing verb token with its own copy of the arguments
// of the VP it governs.
type VerbPhrase struct {
	Verbs                []string
	NounPhrases          []NounPhrase
	PrepositionalPhrases []*PrepositionalPhrase
}

// Sentence is the phrase structure of one command.
type Sentence struct {
	NounPhrases []NounPhrase
	VerbPhrases []*VerbPhrase
}

// BuildSentence builds the phrase structure of a clause tree.
//
// Every VP at any depth yields one VerbPhrase per verb token directly under
// it, each with a full copy of that VP's arguments. Pending phrases that
// surface at a VP attach to it whatever depth they have left.
func (b *Builder) BuildSentence(ctx context.Context, clause *Tree) (*Sentence, error) {
	s := &Sentence{}

	nps, pending, err := b.nounPhrases(ctx, clause)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		nps = []NounPhrase{&CompositeNounPhrase{NounPhrases: nps, PrepositionalPhrases: phrasesOf(pending)}}
	}
	s.NounPhrases = nps

	for _, vp := range clause.Descendants(vpTags) {
		var verbs []string
		for _, v := range vp.Subtrees(VerbLevel) {
			if w, ok := v.Word(); ok {
				verbs = append(verbs, w.Text)
			}
		}
		if len(verbs) == 0 {
			continue
		}

		args, npPending, err := b.nounPhrases(ctx, vp)
		if err != nil {
			return nil, err
		}
		pps, ppPending, err := b.prepositionalPhrases(ctx, vp)
		if err != nil {
			return nil, err
		}
		var attached []*PrepositionalPhrase
		attached = append(attached, phrasesOf(npPending)...)
		attached = append(attached, phrasesOf(ppPending)...)
		attached = append(attached, pps...)

		for _, verb := range verbs {
			s.VerbPhrases = append(s.VerbPhrases, &VerbPhrase{
				Verbs:                []string{verb},
				NounPhrases:          cloneNounPhrases(args),
				PrepositionalPhrases: clonePrepositionalPhrases(attached),
			})
		}
	}

	logging.PerceptionDebug("built sentence: %d noun phrases, %d verb phrases", len(s.NounPhrases), len(s.VerbPhrases))
	return s, nil
}

// String renders the sentence as an indented tree for debugging.
func (s *Sentence) String() string {
	var b strings.Builder
	if len(s.NounPhrases) > 0 {
		b.WriteString("NP:\n")
		writeNounPhrases(&b, s.NounPhrases, 1)
	}
	for _, vp := range s.VerbPhrases {
		b.WriteString("VP:\n")
		b.WriteString("\tVB: " + strings.Join(vp.Verbs, ", ") + "\n")
		writeNounPhrases(&b, vp.NounPhrases, 1)
		writePrepositionalPhrases(&b, vp.PrepositionalPhrases, 1)
	}
	return b.String()
}

package perception

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSentence_ShowMyRepos(t *testing.T) {
	clause := mustRead(t, `(ROOT (S (VP (VB show) (NP (PRP$ my) (NNS repos)))))`)

	s, err := NewBuilder(nil).BuildSentence(context.Background(), clause)
	require.NoError(t, err)

	want := &Sentence{
		VerbPhrases: []*VerbPhrase{
			{Verbs: []string{"show"}, NounPhrases: []NounPhrase{leaf("repos", "my")}},
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("sentence mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSentence_CoordinatedVerbsEachGetArguments(t *testing.T) {
	clause := mustRead(t, `(S (VP (VB show) (CC and) (VB store) (NP (NP (NN repo)) (PP (IN of) (NP (NNP octocat))))))`)

	s, err := NewBuilder(nil).BuildSentence(context.Background(), clause)
	require.NoError(t, err)
	require.Len(t, s.VerbPhrases, 2)

	show, store := s.VerbPhrases[0], s.VerbPhrases[1]
	assert.Equal(t, []string{"show"}, show.Verbs)
	assert.Equal(t, []string{"store"}, store.Verbs)
	if diff := cmp.Diff(show.NounPhrases, store.NounPhrases); diff != "" {
		t.Errorf("verbs got different arguments:\n%s", diff)
	}
	require.Len(t, show.NounPhrases, 1)
	assert.NotSame(t, show.NounPhrases[0], store.NounPhrases[0], "arguments must be copies")
}

func TestBuildSentence_EveryVPAtAnyDepth(t *testing.T) {
	clause := mustRead(t, `(S (NP (PRP you)) (VP (VB go) (VP (VB show) (NP (NNS gists)))))`)

	s, err := NewBuilder(nil).BuildSentence(context.Background(), clause)
	require.NoError(t, err)

	assert.Equal(t, []NounPhrase{leaf("you")}, s.NounPhrases)
	require.Len(t, s.VerbPhrases, 2)
	assert.Equal(t, []string{"go"}, s.VerbPhrases[0].Verbs)
	assert.Empty(t, s.VerbPhrases[0].NounPhrases)
	assert.Equal(t, []string{"show"}, s.VerbPhrases[1].Verbs)
	assert.Equal(t, []NounPhrase{leaf("gists")}, s.VerbPhrases[1].NounPhrases)
}

func TestBuildSentence_PendingPossessiveLandsOnVerb(t *testing.T) {
	clause := mustRead(t, `(S (VP (VB show) (NP (NP (NNP octocat) (POS 's)) (NNS repos))))`)

	s, err := NewBuilder(nil).BuildSentence(context.Background(), clause)
	require.NoError(t, err)
	require.Len(t, s.VerbPhrases, 1)

	vp := s.VerbPhrases[0]
	assert.Equal(t, []NounPhrase{leaf("repos")}, vp.NounPhrases)
	require.Len(t, vp.PrepositionalPhrases, 1)
	assert.Equal(t, "'s", vp.PrepositionalPhrases[0].Preposition)
	assert.Equal(t, []NounPhrase{leaf("octocat")}, vp.PrepositionalPhrases[0].NounPhrases)
}

func TestBuildSentence_VerbWithPrepositionalArgument(t *testing.T) {
	clause := mustRead(t, `(S (VP (VB show) (NP (NNS repos)) (PP (IN of) (NP (NNP hubot)))))`)

	s, err := NewBuilder(nil).BuildSentence(context.Background(), clause)
	require.NoError(t, err)
	require.Len(t, s.VerbPhrases, 1)
	assert.Equal(t, []*PrepositionalPhrase{{Preposition: "of", NounPhrases: []NounPhrase{leaf("hubot")}}},
		s.VerbPhrases[0].PrepositionalPhrases)
}

func TestBuildSentence_NoVerb(t *testing.T) {
	clause := mustRead(t, `(S (NP (NNS repos)) (ADVP (RB here)))`)

	s, err := NewBuilder(nil).BuildSentence(context.Background(), clause)
	require.NoError(t, err)
	assert.Empty(t, s.VerbPhrases)
	assert.Equal(t, []NounPhrase{leaf("repos")}, s.NounPhrases)
}

func TestSentenceString(t *testing.T) {
	clause := mustRead(t, `(S (VP (VB show) (NP (NP (JJ private) (NNS repos)) (PP (IN of) (NP (NNP octocat))))))`)

	s, err := NewBuilder(nil).BuildSentence(context.Background(), clause)
	require.NoError(t, err)

	want := "VP:\n" +
		"\tVB: show\n" +
		"\tNP:\n" +
		"\t\tNN: repos  JJ: [private]\n" +
		"\t\tIN: of\n" +
		"\t\t\tNN: octocat\n"
	assert.Equal(t, want, s.String())
}

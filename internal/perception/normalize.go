package perception

import (
	"strings"

	"gitchat/internal/types"
)

// =============================================================================
// NORMALIZER - lemmatization and synonym folding before registry lookup
// =============================================================================

// Normalizer folds words onto the keys the registries are indexed by.
type Normalizer struct {
	verbs   map[string]string
	nouns   map[string]string
	words   map[string]string
	lexicon map[string]bool

	stopwords tags
}

var punctuationReplacer = strings.NewReplacer(
	"’", "'", // right single quote
	"‘", "'",
	"`", "'",
	"\"", "",
)

// NewNormalizer returns the default English normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		verbs: map[string]string{
			"list":     "show",
			"display":  "show",
			"print":    "show",
			"get":      "show",
			"find":     "show",
			"remember": "store",
			"save":     "store",
			"keep":     "store",
			"quit":     "bye",
			"exit":     "bye",
			"goodbye":  "bye",
			"hi":       "hello",
			"hey":      "hello",
			"signin":   "login",
			"signout":  "logout",
		},
		nouns: map[string]string{
			"repository": "repo",
			"people":     "follower",
			"myself":     "me",
		},
		words: map[string]string{
			"my":   "me",
			"mine": "me",
		},
		stopwords: tagSet(
			"a", "an", "the", "all", "any", "some", "every", "each", "this", "that", "these", "those",
			"my", "mine", "our", "your", "his", "her", "their", "its",
		),
		lexicon: map[string]bool{
			"show": true, "store": true, "log": true, "login": true, "logout": true,
			"hello": true, "bye": true,
		},
	}
}

// key lower-cases and strips quoting so that "Repos" and "repos" share a key.
func key(word string) string {
	return strings.ToLower(strings.TrimSpace(punctuationReplacer.Replace(word)))
}

// lemma strips one English inflection. Words of three letters or fewer are
// left alone so that "gist", "bus" style stems survive.
func lemma(w string) string {
	switch {
	case len(w) <= 3:
		return w
	case strings.HasSuffix(w, "ies"):
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "sses"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s"):
		return strings.TrimSuffix(w, "s")
	}
	return w
}

// verbCandidates lists the possible stems of an inflected verb, most
// specific first.
func verbCandidates(w string) []string {
	out := []string{w}
	for _, suffix := range []string{"ing", "ed"} {
		if !strings.HasSuffix(w, suffix) || len(w) <= len(suffix)+2 {
			continue
		}
		stem := strings.TrimSuffix(w, suffix)
		out = append(out, stem, stem+"e")
		if n := len(stem); n >= 2 && stem[n-1] == stem[n-2] {
			out = append(out, stem[:n-1])
		}
	}
	if strings.HasSuffix(w, "s") && len(w) > 3 {
		out = append(out, strings.TrimSuffix(w, "s"), strings.TrimSuffix(w, "es"))
	}
	return out
}

// Noun normalizes a head noun.
func (n *Normalizer) Noun(word string) string {
	w := key(word)
	if s, ok := n.nouns[w]; ok {
		return s
	}
	if s, ok := n.words[w]; ok {
		return s
	}
	l := lemma(w)
	if s, ok := n.nouns[l]; ok {
		return s
	}
	return l
}

// Verb normalizes a governing verb token. A stem is accepted when it names a
// known verb or a synonym of one; otherwise the word is returned folded.
func (n *Normalizer) Verb(word string) string {
	for _, c := range verbCandidates(key(word)) {
		if s, ok := n.verbs[c]; ok {
			return s
		}
		if n.lexicon[c] {
			return c
		}
	}
	return key(word)
}

// Adjectives normalizes modifiers. They are case-folded but never
// lemmatized, so "private" stays intact; determiners and possessive
// pronouns carry no argument and are dropped.
func (n *Normalizer) Adjectives(words []string) []string {
	var out []string
	for _, w := range words {
		k := key(w)
		if k == "" || n.stopwords.Has(k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// ExtractTypes returns the positions of the adjectives that name a domain
// type, after noun normalization.
func (n *Normalizer) ExtractTypes(adjectives []string) []int {
	var out []int
	for i, a := range adjectives {
		if _, ok := types.ParseTag(n.Noun(a)); ok {
			out = append(out, i)
		}
	}
	return out
}

package perception

import (
	"fmt"
	"strings"
)

// =============================================================================
// TAG SETS - Penn Treebank labels understood by the phrase builder
// =============================================================================

// PhraseLevel lists the phrase tags the parser may emit.
var PhraseLevel = tagSet(
	"ADJP", "ADVP", "CONJP", "FRAG", "INTJ", "LST", "NAC", "NP", "NX", "PP", "PRN", "PRT", "QP", "RRC",
	"UCP", "VP", "WHADJP", "WHADVP", "WHNP", "WHPP", "X",
)

// WordLevel lists the part-of-speech tags of preterminal nodes.
var WordLevel = tagSet(
	"CC", "CD", "DT", "EX", "FW", "IN", "JJ", "JJR", "JJS", "LS", "MD", "NN", "NNS", "NNP", "NNPS", "PDT",
	"POS", "PRP", "PRP$", "RB", "RBR", "RBS", "RP", "SYM", "TO", "UH", "VB", "VBD", "VBG", "VBP", "VBZ",
	"WDT", "WP", "WP$", "WRB",
)

// ConjunctionLevel lists the tags that split a word sequence into collocations.
var ConjunctionLevel = tagSet("CC", ",")

// VerbLevel lists the tags of governing verb tokens directly under a VP.
var VerbLevel = tagSet("VB", "VBD", "VBG", "VBN", "VBP", "VBZ")

// NounLevel lists the tags preferred as collocation heads by the offline head finder.
var NounLevel = tagSet("NN", "NNS", "NNP", "NNPS", "PRP")

const (
	LabelRoot        = "ROOT"
	LabelClause      = "S"
	LabelNoun        = "NP"
	LabelPrep        = "PP"
	LabelVerb        = "VP"
	LabelFragment    = "FRAG"
	LabelPreposition = "IN"
	LabelTo          = "TO"
	LabelPossessive  = "POS"
)

type tags map[string]struct{}

func tagSet(labels ...string) tags {
	s := make(tags, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Has reports whether label belongs to the set.
func (s tags) Has(label string) bool {
	_, ok := s[label]
	return ok
}

// =============================================================================
// TREE
// =============================================================================

// Word is a tagged token.
type Word struct {
	Tag  string
	Text string
}

// Tree is a labeled constituency tree. Leaves carry the token text in Label
// and have no children; a preterminal has a word tag and exactly one leaf.
type Tree struct {
	Label    string
	Children []*Tree
}

// Leaf returns a token node.
func Leaf(text string) *Tree { return &Tree{Label: text} }

// Node returns a labeled node with the given children.
func Node(label string, children ...*Tree) *Tree {
	return &Tree{Label: label, Children: children}
}

// Pre returns a preterminal node: a word tag over one token.
func Pre(tag, text string) *Tree { return Node(tag, Leaf(text)) }

// IsLeaf reports whether t is a token.
func (t *Tree) IsLeaf() bool { return len(t.Children) == 0 }

// Word returns the tagged token of a preterminal node.
func (t *Tree) Word() (Word, bool) {
	if len(t.Children) != 1 || !t.Children[0].IsLeaf() {
		return Word{}, false
	}
	return Word{Tag: t.Label, Text: t.Children[0].Label}, true
}

// Subtrees returns the direct non-leaf children of t whose label is in labels.
func (t *Tree) Subtrees(labels tags) []*Tree {
	var out []*Tree
	for _, c := range t.Children {
		if !c.IsLeaf() && labels.Has(c.Label) {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns the direct matches of t followed by the matches found
// below each child, in child order.
func (t *Tree) Descendants(labels tags) []*Tree {
	out := t.Subtrees(labels)
	for _, c := range t.Children {
		if c.IsLeaf() {
			continue
		}
		out = append(out, c.Descendants(labels)...)
	}
	return out
}

// Clause strips a ROOT wrapper and returns the tree the parser actually built.
func (t *Tree) Clause() *Tree {
	if t.Label == LabelRoot && len(t.Children) == 1 && !t.Children[0].IsLeaf() {
		return t.Children[0]
	}
	return t
}

// String renders t in bracketed form.
func (t *Tree) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *Tree) write(b *strings.Builder) {
	if t.IsLeaf() {
		b.WriteString(t.Label)
		return
	}
	b.WriteByte('(')
	b.WriteString(t.Label)
	for _, c := range t.Children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteByte(')')
}

// =============================================================================
// BRACKET READER
// =============================================================================

// ReadBracketed parses a Penn Treebank bracketed tree such as
// "(ROOT (S (VP (VB show) (NP (PRP$ my) (NNS repos)))))". An unlabeled
// outer bracket is read as ROOT.
func ReadBracketed(s string) (*Tree, error) {
	toks := tokenizeBrackets(s)
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty tree")
	}
	pos := 0
	t, err := readNode(toks, &pos)
	if err != nil {
		return nil, err
	}
	if pos != len(toks) {
		return nil, fmt.Errorf("trailing input after tree at token %d", pos)
	}
	if t.IsLeaf() {
		return nil, fmt.Errorf("tree has no brackets: %q", s)
	}
	return t, nil
}

func tokenizeBrackets(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

func readNode(toks []string, pos *int) (*Tree, error) {
	if *pos >= len(toks) {
		return nil, fmt.Errorf("unexpected end of tree")
	}
	tok := toks[*pos]
	if tok == ")" {
		return nil, fmt.Errorf("unexpected ')' at token %d", *pos)
	}
	*pos++
	if tok != "(" {
		return Leaf(tok), nil
	}

	node := &Tree{Label: LabelRoot}
	if *pos < len(toks) && toks[*pos] != "(" && toks[*pos] != ")" {
		node.Label = toks[*pos]
		*pos++
	}
	for {
		if *pos >= len(toks) {
			return nil, fmt.Errorf("unbalanced brackets: missing ')'")
		}
		if toks[*pos] == ")" {
			*pos++
			return node, nil
		}
		child, err := readNode(toks, pos)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
}

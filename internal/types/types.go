// Package types provides the typed values exchanged between the resolver, the
// dispatcher and verb handlers.
// This package exists to break import cycles between perception, resolve and dispatch.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// TYPE TAGS
// =============================================================================

// Kind is the closed set of value kinds a Tag can describe.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindInt
	KindUser
	KindRepo
	KindGist
	KindList
)

var kindNames = map[Kind]string{
	KindNone:   "none",
	KindString: "str",
	KindInt:    "int",
	KindUser:   "user",
	KindRepo:   "repo",
	KindGist:   "gist",
	KindList:   "list",
}

// Tag is the type of a TypedObject. Lists carry their element kind in Elem;
// nested lists are not representable.
//
// Tag is comparable and is used as a map key by the stored-object store.
type Tag struct {
	Kind Kind
	Elem Kind
}

var (
	None   = Tag{Kind: KindNone}
	String = Tag{Kind: KindString}
	Int    = Tag{Kind: KindInt}
	User   = Tag{Kind: KindUser}
	Repo   = Tag{Kind: KindRepo}
	Gist   = Tag{Kind: KindGist}
)

// ListOf returns the list tag whose elements are of the given tag.
func ListOf(elem Tag) Tag {
	return Tag{Kind: KindList, Elem: elem.Kind}
}

// Element returns the element tag of a list, or the tag itself otherwise.
func (t Tag) Element() Tag {
	if t.Kind == KindList {
		return Tag{Kind: t.Elem}
	}
	return t
}

// IsList reports whether t is a list tag.
func (t Tag) IsList() bool { return t.Kind == KindList }

// IsPrimitive reports whether values of t cannot be coarsened any further.
func (t Tag) IsPrimitive() bool {
	switch t.Kind {
	case KindNone, KindString, KindInt:
		return true
	}
	return false
}

func (t Tag) String() string {
	if t.Kind == KindList {
		return "list<" + kindNames[t.Elem] + ">"
	}
	return kindNames[t.Kind]
}

// Title is the name used in user-facing messages ("Repo not found").
func (t Tag) Title() string {
	name := kindNames[t.Element().Kind]
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ParseTag resolves a type name ("user", "repo", ...) to its tag.
// Only domain types are addressable by name.
func ParseTag(name string) (Tag, bool) {
	switch strings.ToLower(name) {
	case "user":
		return User, true
	case "repo":
		return Repo, true
	case "gist":
		return Gist, true
	}
	return None, false
}

// =============================================================================
// DOMAIN VALUES
// =============================================================================

// UserInfo is an account on the hub.
type UserInfo struct {
	Login string
	Name  string
	Email string
}

// RepoInfo is a repository owned by a user.
type RepoInfo struct {
	ID          int64
	Owner       string
	Name        string
	Private     bool
	Description string
}

// FullName is "owner/name".
func (r RepoInfo) FullName() string { return r.Owner + "/" + r.Name }

// GistInfo is a gist owned by a user.
type GistInfo struct {
	ID          string
	Owner       string
	Description string
}

// =============================================================================
// TYPED OBJECTS
// =============================================================================

// Object is a value tagged with its domain type (TypedObject).
type Object struct {
	Type  Tag
	Value interface{}
}

// Null is the sentinel absent object.
func Null() Object { return Object{Type: None} }

// IsNone reports whether o is the absent object.
func (o Object) IsNone() bool { return o.Type.Kind == KindNone }

// Literal constructs a raw primitive from literal text: an Int when the text
// is a base-10 integer, otherwise a String.
func Literal(text string) Object {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Object{Type: Int, Value: n}
	}
	return Object{Type: String, Value: text}
}

// Wrap tags a value returned by a function with the function's result type.
func Wrap(t Tag, v interface{}) Object {
	return Object{Type: t, Value: v}
}

// Coarsen returns o reduced one step toward its fallback primitive
// representation. Primitives are returned unchanged.
func (o Object) Coarsen() Object {
	switch o.Type.Kind {
	case KindUser:
		if u, ok := o.Value.(UserInfo); ok {
			return Object{Type: String, Value: u.Login}
		}
	case KindRepo:
		if r, ok := o.Value.(RepoInfo); ok {
			return Object{Type: String, Value: r.Name}
		}
	case KindGist:
		if g, ok := o.Value.(GistInfo); ok {
			return Object{Type: String, Value: g.ID}
		}
	case KindList:
		return Object{Type: String, Value: o.literalList()}
	default:
		return o
	}
	return Object{Type: String, Value: fmt.Sprint(o.Value)}
}

func (o Object) literalList() string {
	var parts []string
	switch v := o.Value.(type) {
	case []UserInfo:
		for _, u := range v {
			parts = append(parts, u.Login)
		}
	case []RepoInfo:
		for _, r := range v {
			parts = append(parts, r.Name)
		}
	case []GistInfo:
		for _, g := range v {
			parts = append(parts, g.ID)
		}
	case []Object:
		for _, e := range v {
			parts = append(parts, e.Text())
		}
	}
	return strings.Join(parts, " ")
}

// Text is the literal form of a primitive object; domain objects render
// through their coarsened form.
func (o Object) Text() string {
	switch o.Type.Kind {
	case KindNone:
		return ""
	case KindString:
		s, _ := o.Value.(string)
		return s
	case KindInt:
		return fmt.Sprintf("%d", o.Value)
	}
	return o.Coarsen().Text()
}

func (o Object) String() string {
	return fmt.Sprintf("%s(%s)", o.Type, o.Text())
}

// =============================================================================
// LABELED ARGUMENTS
// =============================================================================

// LabeledArgument is a PP-derived argument carrying its preposition.
type LabeledArgument struct {
	Label  string
	Object Object
}

// Objects strips the labels, preserving order.
func Objects(args []LabeledArgument) []Object {
	out := make([]Object, 0, len(args))
	for _, a := range args {
		out = append(out, a.Object)
	}
	return out
}

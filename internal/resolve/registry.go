// Package resolve matches noun phrases against a registry of typed functions.
//
// A noun is registered with one or more shells. A shell is a set of required
// adjectives plus the functions that can build the noun when those
// adjectives are present. Selection picks the shell whose adjective set best
// fits the sentence and then the function whose parameters unify with the
// available arguments at the lowest cost.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitchat/internal/types"
)

var (
	// ErrNoShell is returned when no shell of a noun fits the adjectives.
	ErrNoShell = errors.New("no applicable shell")
	// ErrNoCandidate is returned when no function of the shell is satisfiable.
	ErrNoCandidate = errors.New("no satisfiable function")
)

// Function is a typed, invocable signature. Invoke receives one raw value per
// declared parameter, in declaration order.
type Function struct {
	Name   string
	Params []types.Tag
	Result types.Tag
	Invoke func(ctx context.Context, args []interface{}) (interface{}, error)
}

func (f *Function) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s) %s", f.Name, strings.Join(params, ", "), f.Result)
}

// Call invokes f with the values of args.
func (f *Function) Call(ctx context.Context, args []types.Object) (interface{}, error) {
	raw := make([]interface{}, len(args))
	for i, a := range args {
		raw[i] = a.Value
	}
	return f.Invoke(ctx, raw)
}

// Shell groups the functions applicable when all of Adjectives are present.
type Shell struct {
	Adjectives []string
	Functions  []*Function
}

// requires reports whether every shell adjective is among adjectives.
func (s *Shell) requires(adjectives []string) bool {
	have := make(map[string]struct{}, len(adjectives))
	for _, a := range adjectives {
		have[a] = struct{}{}
	}
	for _, a := range s.Adjectives {
		if _, ok := have[a]; !ok {
			return false
		}
	}
	return true
}

// Registry maps nouns to shells and type names to type constructors.
// A Registry is built once at startup and read concurrently afterwards.
type Registry struct {
	shells       map[string][]*Shell
	constructors map[string]*Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		shells:       make(map[string][]*Shell),
		constructors: make(map[string]*Function),
	}
}

// AddShell registers fns under noun, applicable when adjectives are present.
// Registration order is the tie-break order.
func (r *Registry) AddShell(noun string, adjectives []string, fns ...*Function) *Shell {
	s := &Shell{Adjectives: adjectives, Functions: fns}
	r.shells[noun] = append(r.shells[noun], s)
	return s
}

// AddConstructor registers the single-argument type constructor of noun.
func (r *Registry) AddConstructor(noun string, fn *Function) {
	r.constructors[noun] = fn
}

// Shells returns the shells registered under noun.
func (r *Registry) Shells(noun string) []*Shell {
	return r.shells[noun]
}

// Constructor returns the type constructor registered under noun.
func (r *Registry) Constructor(noun string) (*Function, bool) {
	fn, ok := r.constructors[noun]
	return fn, ok
}

// HasNoun reports whether noun has any shell.
func (r *Registry) HasNoun(noun string) bool {
	return len(r.shells[noun]) > 0
}

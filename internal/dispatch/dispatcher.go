// Package dispatch turns a Sentence into verb invocations over typed objects.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gitchat/internal/logging"
	"gitchat/internal/metrics"
	"gitchat/internal/perception"
	"gitchat/internal/resolve"
	"gitchat/internal/types"
)

// ErrEmptyResult is handed to the ErrorHandler when a function returns no value.
var ErrEmptyResult = errors.New("function returned no result")

// Normalizer folds words onto registry keys.
type Normalizer interface {
	Noun(word string) string
	Verb(word string) string
	Adjectives(words []string) []string
	ExtractTypes(adjectives []string) []int
}

// Verb handles one typed object. Returning an error aborts dispatch.
type Verb func(ctx context.Context, obj types.Object) error

// ErrorHandler decides the fate of a failed function invocation: nil means
// the error was recovered (and reported) and the build yields None; a
// non-nil return aborts dispatch.
type ErrorHandler func(ctx context.Context, fn *resolve.Function, err error) error

// Dispatcher resolves noun phrases through a Registry and invokes verbs on
// the results. One Dispatcher serves one session.
type Dispatcher struct {
	registry *resolve.Registry
	norm     Normalizer
	store    *Store
	verbs    map[string]Verb
	onError  ErrorHandler
}

// New creates a dispatcher over registry with its own store.
func New(registry *resolve.Registry, norm Normalizer, store *Store) *Dispatcher {
	if store == nil {
		store = NewStore(types.User, types.Repo, types.Gist)
	}
	return &Dispatcher{
		registry: registry,
		norm:     norm,
		store:    store,
		verbs:    make(map[string]Verb),
		onError: func(_ context.Context, _ *resolve.Function, err error) error {
			return err
		},
	}
}

// Handle registers a verb under its normalized name.
func (d *Dispatcher) Handle(name string, v Verb) {
	d.verbs[name] = v
}

// OnError installs the external error policy.
func (d *Dispatcher) OnError(h ErrorHandler) {
	d.onError = h
}

// Store returns the session store.
func (d *Dispatcher) Store() *Store { return d.store }

// HasVerb reports whether word normalizes to a registered verb.
func (d *Dispatcher) HasVerb(word string) bool {
	_, ok := d.verbs[d.norm.Verb(word)]
	return ok
}

// =============================================================================
// DISPATCH
// =============================================================================

// Dispatch invokes every verb of s on every object built from its noun
// phrases. A verb phrase without noun phrases invokes each verb once with
// None. Unknown verbs are skipped. Prepositional phrases attached to the verb
// phrase are built first and form the pool of every noun phrase argument.
func (d *Dispatcher) Dispatch(ctx context.Context, s *perception.Sentence) error {
	for _, vp := range s.VerbPhrases {
		if len(vp.NounPhrases) == 0 {
			for _, verb := range vp.Verbs {
				if _, err := d.Invoke(ctx, verb, types.Null()); err != nil {
					return err
				}
			}
			continue
		}

		extra, err := d.labeled(ctx, vp.PrepositionalPhrases)
		if err != nil {
			return err
		}
		for _, np := range vp.NounPhrases {
			objs, err := d.Build(ctx, np, extra)
			if err != nil {
				return err
			}
			for _, verb := range vp.Verbs {
				for _, obj := range objs {
					if _, err := d.Invoke(ctx, verb, obj); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Invoke runs the verb word normalizes to. It reports false when no such
// verb is registered.
func (d *Dispatcher) Invoke(ctx context.Context, word string, obj types.Object) (bool, error) {
	name := d.norm.Verb(word)
	v, ok := d.verbs[name]
	if !ok {
		logging.DispatchDebug("skipping unknown verb %q", word)
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return true, err
	}
	metrics.RecordVerb(name)
	logging.Dispatch("%s %s", name, obj)
	if err := v(ctx, obj); err != nil {
		logging.DispatchWarn("%s failed: %v", name, err)
		return true, err
	}
	return true, nil
}

// =============================================================================
// BUILD
// =============================================================================

// Build constructs the objects a noun phrase denotes. extra holds the
// prepositional arguments of the enclosing levels and is the pool functions
// draw their arguments from.
func (d *Dispatcher) Build(ctx context.Context, np perception.NounPhrase, extra []types.LabeledArgument) ([]types.Object, error) {
	switch n := np.(type) {
	case *perception.LeafNounPhrase:
		obj, err := d.buildLeaf(ctx, n, extra)
		if err != nil {
			return nil, err
		}
		return []types.Object{obj}, nil

	case *perception.CompositeNounPhrase:
		labeled, err := d.labeled(ctx, n.PrepositionalPhrases)
		if err != nil {
			return nil, err
		}
		pool := make([]types.LabeledArgument, 0, len(extra)+len(labeled))
		pool = append(pool, extra...)
		pool = append(pool, labeled...)

		var out []types.Object
		for _, sub := range n.NounPhrases {
			objs, err := d.Build(ctx, sub, pool)
			if err != nil {
				return nil, err
			}
			out = append(out, objs...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown noun phrase %T", np)
}

// labeled builds the objects of every prepositional phrase with an empty
// pool, each tagged with its preposition.
func (d *Dispatcher) labeled(ctx context.Context, pps []*perception.PrepositionalPhrase) ([]types.LabeledArgument, error) {
	var out []types.LabeledArgument
	for _, pp := range pps {
		for _, inner := range pp.NounPhrases {
			objs, err := d.Build(ctx, inner, nil)
			if err != nil {
				return nil, err
			}
			for _, o := range objs {
				out = append(out, types.LabeledArgument{Label: pp.Preposition, Object: o})
			}
		}
	}
	return out, nil
}

func (d *Dispatcher) buildLeaf(ctx context.Context, leaf *perception.LeafNounPhrase, extra []types.LabeledArgument) (types.Object, error) {
	noun := d.norm.Noun(leaf.Noun)
	adjectives := d.norm.Adjectives(leaf.Adjectives)
	noun, adjectives = d.rehome(noun, adjectives, leaf.Text)

	sel, err := d.registry.Select(noun, adjectives, types.Objects(extra), d.store)
	if err != nil {
		logging.DispatchDebug("%q: %v, building literal", leaf.Text, err)
		metrics.RecordResolve(metrics.ResolveLiteral)
		return types.Literal(leaf.Text), nil
	}

	logging.DispatchDebug("%q: %s with %v (cost %d)", leaf.Text, sel.Function, sel.Args, sel.Cost)
	value, err := sel.Function.Call(ctx, sel.Args)
	if err == nil && isNil(value) {
		err = ErrEmptyResult
	}
	if err != nil {
		if herr := d.onError(ctx, sel.Function, err); herr != nil {
			return types.Object{}, herr
		}
		metrics.RecordResolve(metrics.ResolveAbsent)
		return types.Null(), nil
	}
	metrics.RecordResolve(metrics.ResolveFunction)
	return types.Wrap(sel.Function.Result, value), nil
}

// rehome moves a leaf under the type one of its adjectives names when the
// noun itself is unknown: "repo hello-world" reads as noun "repo" with the
// literal "hello-world".
func (d *Dispatcher) rehome(noun string, adjectives []string, text string) (string, []string) {
	if d.registry.HasNoun(noun) {
		return noun, adjectives
	}
	idx := d.norm.ExtractTypes(adjectives)
	if len(idx) != 1 {
		return noun, adjectives
	}
	typeNoun := d.norm.Noun(adjectives[idx[0]])
	if !d.registry.HasNoun(typeNoun) {
		return noun, adjectives
	}
	rest := make([]string, 0, len(adjectives))
	rest = append(rest, adjectives[:idx[0]]...)
	rest = append(rest, adjectives[idx[0]+1:]...)
	rest = append(rest, text)
	return typeNoun, rest
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

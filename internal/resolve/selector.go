package resolve

import (
	"fmt"

	"gitchat/internal/logging"
	"gitchat/internal/metrics"
	"gitchat/internal/types"
)

// Selection is the winning function of a shell with its unified arguments.
type Selection struct {
	Function *Function
	Args     []types.Object
	Cost     int
}

// SelectShell returns the shell of noun whose adjectives are all present and
// whose adjective count is closest to the sentence's. The first registered
// shell wins ties.
func (r *Registry) SelectShell(noun string, adjectives []string) (*Shell, error) {
	var best *Shell
	bestDist := 0
	for _, s := range r.shells[noun] {
		if !s.requires(adjectives) {
			continue
		}
		d := abs(len(adjectives) - len(s.Adjectives))
		if best == nil || d < bestDist {
			best, bestDist = s, d
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w for %q with %v", ErrNoShell, noun, adjectives)
	}
	return best, nil
}

// SelectFunction picks the cheapest satisfiable function of shell. Only the
// adjectives the shell does not require take part in unification.
//
// A function with one parameter whose hole stays open after the pool pass is
// replaced by the type constructor of noun when that constructor takes the
// same parameter type; the constructor then competes in its place.
func (r *Registry) SelectFunction(noun string, shell *Shell, adjectives []string, pool []types.Object, stored StoredLookup) (Selection, error) {
	free := subtract(adjectives, shell.Adjectives)
	ctor, hasCtor := r.Constructor(noun)

	var best Selection
	best.Cost = Unsatisfied
	for _, fn := range shell.Functions {
		candidate := fn
		res := Resolve(pool, fn.Params, stored)
		if hasCtor && len(fn.Params) == 1 && len(res.Remaining) == 1 &&
			len(ctor.Params) == 1 && ctor.Params[0] == fn.Params[0] {
			candidate = ctor
		}
		res = finish(ResolveAdjectives(free, res), len(candidate.Params))

		logging.ResolveDebug("%s: %s cost=%s", noun, candidate, costString(res.Cost))
		if res.Cost < best.Cost {
			best = Selection{Function: candidate, Args: res.Matched, Cost: res.Cost}
		}
	}
	if best.Function == nil {
		return Selection{}, fmt.Errorf("%w for %q", ErrNoCandidate, noun)
	}
	metrics.RecordCost(best.Cost)
	return best, nil
}

// Select runs shell then function selection for noun.
func (r *Registry) Select(noun string, adjectives []string, pool []types.Object, stored StoredLookup) (Selection, error) {
	shell, err := r.SelectShell(noun, adjectives)
	if err != nil {
		return Selection{}, err
	}
	return r.SelectFunction(noun, shell, adjectives, pool, stored)
}

// subtract returns the adjectives not in required, preserving order.
func subtract(adjectives, required []string) []string {
	if len(required) == 0 {
		return adjectives
	}
	drop := make(map[string]struct{}, len(required))
	for _, a := range required {
		drop[a] = struct{}{}
	}
	var out []string
	for _, a := range adjectives {
		if _, ok := drop[a]; !ok {
			out = append(out, a)
		}
	}
	return out
}

func costString(c int) string {
	if c == Unsatisfied {
		return "inf"
	}
	return fmt.Sprint(c)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

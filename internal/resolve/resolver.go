package resolve

import (
	"math"

	"gitchat/internal/types"
)

// Unsatisfied is the cost of a function whose holes cannot all be filled.
const Unsatisfied = math.MaxInt

// coarsenPenalty is added to the position weight after every idle round.
const coarsenPenalty = 4

// StoredLookup gives read access to the session's stored objects.
type StoredLookup interface {
	Lookup(t types.Tag) (types.Object, bool)
}

// Resolution is the result of unifying holes with available objects.
type Resolution struct {
	Matched   []types.Object
	Remaining []types.Tag
	Cost      int
}

// Satisfied reports whether every hole was filled.
func (r Resolution) Satisfied() bool { return len(r.Remaining) == 0 }

// Resolve fills holes from pool, front hole first.
//
// Each round takes the first pool element whose type equals the front hole
// at cost (index+1)*fine. A round without a pool match falls back to an
// unused stored object of that type at cost (len(pool)+1)*fine. A round that
// matches nothing coarsens every pool element one step and raises fine by 4;
// once every element is primitive the pass stops. The pool is not modified.
func Resolve(pool []types.Object, holes []types.Tag, stored StoredLookup) Resolution {
	args := append([]types.Object(nil), pool...)
	res := Resolution{Remaining: append([]types.Tag(nil), holes...)}
	used := make(map[types.Tag]bool)
	fine := 1

	for len(res.Remaining) > 0 {
		hole := res.Remaining[0]

		matched := false
		for i, arg := range args {
			if arg.Type == hole {
				res.Matched = append(res.Matched, arg)
				res.Cost += (i + 1) * fine
				args = append(args[:i:i], args[i+1:]...)
				matched = true
				break
			}
		}
		if matched {
			res.Remaining = res.Remaining[1:]
			continue
		}

		if stored != nil && !used[hole] {
			if obj, ok := stored.Lookup(hole); ok {
				used[hole] = true
				res.Matched = append(res.Matched, obj)
				res.Cost += (len(args) + 1) * fine
				res.Remaining = res.Remaining[1:]
				continue
			}
		}

		if len(args) == 0 || allPrimitive(args) {
			break
		}
		for i := range args {
			args[i] = args[i].Coarsen()
		}
		fine += coarsenPenalty
	}
	return res
}

// ResolveAdjectives continues res with the sentence adjectives as literal
// primitives, last adjective first. The pass is Resolve itself: a matched
// literal is used up and weighs its position among the literals still left.
// Literals never coarsen, so a round without a match ends the pass.
func ResolveAdjectives(adjectives []string, res Resolution) Resolution {
	literals := make([]types.Object, 0, len(adjectives))
	for i := len(adjectives) - 1; i >= 0; i-- {
		literals = append(literals, types.Literal(adjectives[i]))
	}

	pass := Resolve(literals, res.Remaining, nil)
	return Resolution{
		Matched:   append(append([]types.Object(nil), res.Matched...), pass.Matched...),
		Remaining: pass.Remaining,
		Cost:      res.Cost + pass.Cost,
	}
}

// Unify runs both passes for params and returns the total cost, which is
// shifted by twice the parameter count so that functions consuming more
// arguments are preferred. Unfilled holes cost Unsatisfied.
func Unify(params []types.Tag, pool []types.Object, adjectives []string, stored StoredLookup) Resolution {
	res := ResolveAdjectives(adjectives, Resolve(pool, params, stored))
	return finish(res, len(params))
}

func finish(res Resolution, paramCount int) Resolution {
	if !res.Satisfied() {
		res.Cost = Unsatisfied
		return res
	}
	res.Cost -= 2 * paramCount
	return res
}

func allPrimitive(objs []types.Object) bool {
	for _, o := range objs {
		if !o.Type.IsPrimitive() {
			return false
		}
	}
	return true
}

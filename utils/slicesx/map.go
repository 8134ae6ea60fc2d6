// Copyright Sierra

package slicesx

func Map[I any, O any](ins []I, fn func(in I, idx int) O) []O {
	outs := make([]O, len(ins))
	for idx, in := range ins {
		outs[idx] = fn(in, idx)
	}
	return outs
}

func ToSet[E comparable](in []E) map[E]struct{} {
	out := make(map[E]struct{})
	for _, e := range in {
		out[e] = struct{}{}
	}
	return out
}

// Copyright Sierra

package slicesx

func Filter[E any](in []E, f func(E) bool) []E {
	out := make([]E, 0, len(in))
	for _, e := range in {
		if f(e) {
			out = append(out, e)
		}
	}
	return out
}

func Chunk[O any](items []O, chunkSize int) [][]O {
	if len(items) <= chunkSize {
		return [][]O{items}
	}
	chunks := [][]O{}
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := []O{}
		for i := start; i < end; i++ {
			chunk = append(chunk, items[i])
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

package ordering

// Shift returns a copy of items with the element at from reinserted at to.
// Elements between the two indexes shift by one. Out-of-range indexes yield
// an unchanged copy.
func Shift[T any](items []T, from, to int) []T {
	out := append([]T(nil), items...)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	v := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = v
	return out
}

// Remove returns a copy of items without the element at i.
func Remove[T any](items []T, i int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// Insert returns a copy of items with v placed at index i. i is clamped to
// [0, len(items)].
func Insert[T any](items []T, i int, v T) []T {
	i = clamp(i, 0, len(items))
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, v)
	return append(out, items[i:]...)
}

// IndexOf returns the index of id in ids, or -1.
func IndexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// IsPermutation reports whether a and b hold the same distinct ids.
func IsPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, id := range a {
		seen[id]++
		if seen[id] > 1 {
			return false
		}
	}
	for _, id := range b {
		if seen[id] != 1 {
			return false
		}
		seen[id]--
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

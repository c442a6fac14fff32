package protocol

import (
	"fmt"
	"sort"

	"github.com/archer-lili/zkp-coloring/internal/zkcoloring/transcript"
)

// drawDistinctIndices rejection-samples count distinct indices in [0,n)
// from tr under label, exactly as spec.md's challenge_index distinctness
// rule requires: repeated draws under the same label advance the
// transcript's internal squeeze counter, so no two draws ever coincide in
// the bytes they consume.
func drawDistinctIndices(tr *transcript.Transcript, label string, n, count int) ([]int, error) {
	if count < 0 || count > n {
		return nil, fmt.Errorf("protocol: cannot draw %d distinct indices from a universe of size %d", count, n)
	}
	seen := make(map[int]bool, count)
	out := make([]int, 0, count)
	for len(out) < count {
		idx, err := tr.ChallengeIndex(label, uint64(n))
		if err != nil {
			return nil, fmt.Errorf("protocol: drawing index: %w", err)
		}
		i := int(idx)
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out, nil
}

// allIndices returns [0, n).
func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// unionSorted returns the ascending, deduplicated union of a and b.
func unionSorted(a, b []int) []int {
	merged := make([]int, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return dedupSorted(merged)
}

// dedupSorted sorts xs ascending and removes duplicates in place.
func dedupSorted(xs []int) []int {
	if len(xs) == 0 {
		return xs
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, v := range xs[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// sortedKeysSet returns the ascending sorted contents of a set.
func sortedKeysSet(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// sameIntSlice reports whether a and b contain the same elements in the
// same order.
func sameIntSlice(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Package interval provides the integer-interval arithmetic behind route
// overlap checks and free-range suggestions. Everything here is pure; the
// allocator feeds it the active route intervals read inside a transaction.
package interval

import "sort"

// Span is a closed integer interval [Min, Max].
type Span struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Overlaps reports whether the two closed intervals share at least one point.
func (s Span) Overlaps(o Span) bool {
	return s.Min <= o.Max && s.Max >= o.Min
}

// Size is the number of integer points the span covers.
func (s Span) Size() int {
	if s.Max < s.Min {
		return 0
	}
	return s.Max - s.Min + 1
}

// Merge coalesces the given spans into the minimal set of disjoint blocks
// covering the same points. Adjacent spans count as mergeable because slots
// are discrete: [1,3] and [4,6] become [1,6]. The input is not modified;
// the result is sorted by Min.
func Merge(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Min == sorted[j].Min {
			return sorted[i].Max < sorted[j].Max
		}
		return sorted[i].Min < sorted[j].Min
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Min <= last.Max+1 {
			if s.Max > last.Max {
				last.Max = s.Max
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// FirstFreeFrom walks the merged blocks and returns the first free point at
// or after start, together with the end of that free stretch. bounded is
// false when no block starts after the free point, i.e. the stretch runs on
// without an upper limit (to is meaningless in that case).
//
// blocks must already be merged and sorted, as produced by Merge.
func FirstFreeFrom(blocks []Span, start int) (from int, to int, bounded bool) {
	from = start
	for _, b := range blocks {
		if from < b.Min {
			return from, b.Min - 1, true
		}
		if from <= b.Max {
			from = b.Max + 1
		}
	}
	return from, 0, false
}

// FirstFreeSpan returns the first free span of the given size at or after
// start that fits before the next occupied block. When a free stretch is
// too small the search skips past the following block and tries again; the
// stretch after the last block is unbounded, so the search always succeeds
// for size >= 1.
func FirstFreeSpan(blocks []Span, start, size int) Span {
	if size < 1 {
		size = 1
	}
	cursor := start
	for {
		from, to, bounded := FirstFreeFrom(blocks, cursor)
		if !bounded || to-from+1 >= size {
			return Span{Min: from, Max: from + size - 1}
		}
		// Stretch too small: resume just past the block that bounded it.
		cursor = to + 1
	}
}

package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpan_Overlaps(t *testing.T) {
	a := Span{Min: 2, Max: 5}

	assert.True(t, a.Overlaps(Span{Min: 4, Max: 8}))
	assert.True(t, a.Overlaps(Span{Min: 5, Max: 5}))
	assert.True(t, a.Overlaps(Span{Min: 1, Max: 2}))
	assert.True(t, a.Overlaps(Span{Min: 3, Max: 4})) // fully inside
	assert.True(t, a.Overlaps(Span{Min: 1, Max: 9})) // fully covering

	assert.False(t, a.Overlaps(Span{Min: 6, Max: 9})) // adjacency is not overlap
	assert.False(t, a.Overlaps(Span{Min: 0, Max: 1}))
}

func TestSpan_Size(t *testing.T) {
	assert.Equal(t, 1, Span{Min: 3, Max: 3}.Size())
	assert.Equal(t, 5, Span{Min: 1, Max: 5}.Size())
	assert.Equal(t, 0, Span{Min: 5, Max: 1}.Size())
}

func TestMerge(t *testing.T) {
	assert.Nil(t, Merge(nil))

	// Overlapping spans coalesce
	got := Merge([]Span{{Min: 1, Max: 5}, {Min: 3, Max: 8}})
	assert.Equal(t, []Span{{Min: 1, Max: 8}}, got)

	// Adjacent spans coalesce too: slots are discrete
	got = Merge([]Span{{Min: 1, Max: 3}, {Min: 4, Max: 6}})
	assert.Equal(t, []Span{{Min: 1, Max: 6}}, got)

	// A one-point gap keeps the blocks apart
	got = Merge([]Span{{Min: 1, Max: 3}, {Min: 5, Max: 6}})
	assert.Equal(t, []Span{{Min: 1, Max: 3}, {Min: 5, Max: 6}}, got)

	// Input order does not matter
	got = Merge([]Span{{Min: 10, Max: 12}, {Min: 1, Max: 2}, {Min: 2, Max: 4}})
	assert.Equal(t, []Span{{Min: 1, Max: 4}, {Min: 10, Max: 12}}, got)

	// Contained span disappears
	got = Merge([]Span{{Min: 1, Max: 10}, {Min: 3, Max: 4}})
	assert.Equal(t, []Span{{Min: 1, Max: 10}}, got)
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []Span{{Min: 5, Max: 6}, {Min: 1, Max: 2}}
	Merge(in)
	assert.Equal(t, []Span{{Min: 5, Max: 6}, {Min: 1, Max: 2}}, in)
}

func TestFirstFreeFrom(t *testing.T) {
	blocks := Merge([]Span{{Min: 4, Max: 8}, {Min: 12, Max: 14}})

	// Start before any block: free until the first block
	from, to, bounded := FirstFreeFrom(blocks, 1)
	assert.Equal(t, 1, from)
	assert.Equal(t, 3, to)
	assert.True(t, bounded)

	// Start inside a block: skip past it
	from, to, bounded = FirstFreeFrom(blocks, 5)
	assert.Equal(t, 9, from)
	assert.Equal(t, 11, to)
	assert.True(t, bounded)

	// Start past the last block: unbounded stretch
	from, _, bounded = FirstFreeFrom(blocks, 13)
	assert.Equal(t, 15, from)
	assert.False(t, bounded)

	// No blocks at all
	from, _, bounded = FirstFreeFrom(nil, 7)
	assert.Equal(t, 7, from)
	assert.False(t, bounded)
}

func TestFirstFreeSpan(t *testing.T) {
	blocks := Merge([]Span{{Min: 4, Max: 8}})

	// [1,3] holds three points; a span of 3 fits before the block
	assert.Equal(t, Span{Min: 1, Max: 3}, FirstFreeSpan(blocks, 1, 3))

	// A span of 4 does not fit before [4,8], so it lands after it
	assert.Equal(t, Span{Min: 9, Max: 12}, FirstFreeSpan(blocks, 1, 4))

	// Multiple blocks: keeps skipping until a stretch fits
	blocks = Merge([]Span{{Min: 2, Max: 4}, {Min: 6, Max: 9}})
	assert.Equal(t, Span{Min: 10, Max: 12}, FirstFreeSpan(blocks, 1, 3))

	// size below 1 is clamped
	assert.Equal(t, Span{Min: 1, Max: 1}, FirstFreeSpan(nil, 1, 0))
}

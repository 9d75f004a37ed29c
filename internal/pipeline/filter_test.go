package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyWithoutTimeRangeIsEmpty(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name   string
		filter FilterState
	}{
		{"no bounds", FilterState{}},
		{"start only", FilterState{Start: atPtr(0)}},
		{"end only", FilterState{End: atPtr(24)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(ds.Messages, tt.filter)
			require.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestApplyPredicates(t *testing.T) {
	ds := testDataset()

	tests := []struct {
		name   string
		mutate func(f *FilterState)
		want   []int
	}{
		{"full range", func(f *FilterState) {}, []int{0, 1, 2, 3, 4}},
		{"inclusive bounds", func(f *FilterState) { f.Start, f.End = atPtr(2), atPtr(4) }, []int{1, 2, 3}},
		{"inverted bounds", func(f *FilterState) { f.Start, f.End = atPtr(4), atPtr(2) }, []int{}},
		{"keyword substring", func(f *FilterState) { f.Keyword = "flo" }, []int{0, 1, 2}},
		{"location exact", func(f *FilterState) { f.Location = "Palace Hills" }, []int{2, 3}},
		{"location not substring", func(f *FilterState) { f.Location = "Palace" }, []int{}},
		{"selected word", func(f *FilterState) { f.Word = "power" }, []int{1, 3}},
		{"selected topic", func(f *FilterState) { f.Topic = "Shelter" }, []int{0, 4}},
		{"and composition", func(f *FilterState) {
			f.Keyword = "flood"
			f.Location = "Downtown"
			f.Word = "power"
		}, []int{1}},
		{"unknown topic", func(f *FilterState) { f.Topic = "Nope" }, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fullRange()
			tt.mutate(&f)
			assert.Equal(t, tt.want, indices(Apply(ds.Messages, f)))
		})
	}
}

func TestApplyIdempotent(t *testing.T) {
	ds := testDataset()
	f := fullRange()
	f.Keyword = "flood"

	first := Apply(ds.Messages, f)
	second := Apply(ds.Messages, f)
	assert.Equal(t, first, second)
}

func TestApplyMonotonic(t *testing.T) {
	ds := testDataset()
	base := fullRange()
	baseSize := len(Apply(ds.Messages, base))

	predicates := []func(f *FilterState){
		func(f *FilterState) { f.Keyword = "water" },
		func(f *FilterState) { f.Location = "Downtown" },
		func(f *FilterState) { f.Word = "fire" },
		func(f *FilterState) { f.Topic = "Utility" },
	}
	for i, add := range predicates {
		f := base.Clone()
		add(&f)
		assert.LessOrEqual(t, len(Apply(ds.Messages, f)), baseSize, "predicate %d", i)
	}
}

func TestFilterStateCloneIsDeep(t *testing.T) {
	f := fullRange()
	f.BlockList = []string{"rt"}

	c := f.Clone()
	*f.Start = at(10)
	f.BlockList[0] = "changed"

	assert.Equal(t, at(0), *c.Start)
	assert.Equal(t, []string{"rt"}, c.BlockList)
}

func TestBlockSet(t *testing.T) {
	set := NewBlockSet([]string{" Flood ", "", "rt"})
	assert.True(t, set.Contains("flood"))
	assert.True(t, set.Contains("FLOOD"))
	assert.True(t, set.Contains("rt"))
	assert.False(t, set.Contains("water"))
	assert.Len(t, set, 2)
}

func TestCleanBlockList(t *testing.T) {
	assert.Equal(t, []string{"rt", "Flood"}, CleanBlockList([]string{" rt", "", "Flood", "flood ", "  "}))
	assert.Empty(t, CleanBlockList(nil))
}

package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIDSliceSorts(t *testing.T) {
	ids := NewIDSlice([]ID{"c", "a", "b"})
	assert.Equal(t, IDSlice{"a", "b", "c"}, ids)
	assert.True(t, ids.Valid())
}

func TestIDSliceValid(t *testing.T) {
	assert.False(t, IDSlice{}.Valid())
	assert.False(t, IDSlice{"a", "a"}.Valid())
	assert.False(t, IDSlice{"b", "a"}.Valid())
	assert.True(t, IDSlice{"a", "b"}.Valid())
}

func TestIDSliceContains(t *testing.T) {
	ids := NewIDSlice([]ID{"a", "b", "c"})
	assert.True(t, ids.Contains("a"))
	assert.True(t, ids.Contains("a", "c"))
	assert.False(t, ids.Contains("d"))
	assert.False(t, ids.Contains("a", "d"))
}

func TestIDSliceRemove(t *testing.T) {
	ids := NewIDSlice([]ID{"a", "b", "c"})
	removed := ids.Remove("b")
	assert.Equal(t, IDSlice{"a", "c"}, removed)
	// the original is left untouched
	assert.Equal(t, IDSlice{"a", "b", "c"}, ids)
	// removing an unknown ID is a no-op
	assert.Equal(t, IDSlice{"a", "c"}, removed.Remove("d"))
}

func TestIDSliceGetIndex(t *testing.T) {
	ids := NewIDSlice([]ID{"a", "b", "c"})
	assert.Equal(t, 0, ids.GetIndex("a"))
	assert.Equal(t, 2, ids.GetIndex("c"))
	assert.Equal(t, -1, ids.GetIndex("d"))
}

func TestRandomIDs(t *testing.T) {
	ids := RandomIDs(10)
	assert.Len(t, ids, 10)
	assert.True(t, ids.Valid())
}

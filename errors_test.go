package meshfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointErrors(t *testing.T) {
	pe := NewPointErrors(4, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, pe.Current())

	// Points 1 and 2 merge into candidate point 1 which is bad.
	rev := []int{0, 1, 1, 2}
	n := pe.Increment([]bool{false, true, false}, rev)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{0, 1, 1, 0}, pe.Counts())
	assert.False(t, pe.Exceeded(1))
	assert.Equal(t, []bool{false, false, false, false}, pe.Excluded(4))

	pe.Increment([]bool{false, true, false}, rev)
	assert.True(t, pe.Exceeded(1))
	assert.True(t, pe.Exceeded(2))
	assert.Equal(t, []bool{false, true, true, false}, pe.Excluded(4))

	// Point 0 is removed and 1 and 2 are renumbered.
	require.NoError(t, pe.Remap([]int{-1, 0, 1, 2}))
	assert.Equal(t, []int{-1, 0, 1, 2}, pe.Current())
	assert.Equal(t, []bool{true, true, false}, pe.Excluded(3))

	// Counts never go down and removed points are not counted.
	before := pe.Counts()
	pe.Increment([]bool{true, true, true}, []int{0, 1, 2})
	after := pe.Counts()
	for o := range before {
		assert.GreaterOrEqual(t, after[o], before[o])
	}
	assert.Equal(t, before[0], after[0])

	assert.Error(t, pe.Remap([]int{0}))
}

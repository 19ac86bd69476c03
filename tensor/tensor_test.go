package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseGrowFromEmpty(t *testing.T) {
	d := NewDense([]int{0, 0})
	require.Equal(t, 0, d.Size())

	d.Grow(0)
	require.Equal(t, []int{1, 0}, d.Shape())
	d.Grow(1)
	require.Equal(t, []int{1, 1}, d.Shape())

	d.SetAt([]int{0, 0}, 1.5)
	require.Equal(t, 1.5, d.At([]int{0, 0}))
}

func TestDenseGrowPreservesCells(t *testing.T) {
	d := NewDense([]int{2, 2})
	d.SetAt([]int{0, 0}, 1)
	d.SetAt([]int{0, 1}, 2)
	d.SetAt([]int{1, 0}, 3)
	d.SetAt([]int{1, 1}, 4)

	d.Grow(1)
	require.Equal(t, []int{2, 3}, d.Shape())
	assert.Equal(t, 1.0, d.At([]int{0, 0}))
	assert.Equal(t, 2.0, d.At([]int{0, 1}))
	assert.Equal(t, 3.0, d.At([]int{1, 0}))
	assert.Equal(t, 4.0, d.At([]int{1, 1}))
	assert.Equal(t, 0.0, d.At([]int{0, 2}))
	assert.Equal(t, 0.0, d.At([]int{1, 2}))

	d.Grow(0)
	require.Equal(t, []int{3, 3}, d.Shape())
	assert.Equal(t, 4.0, d.At([]int{1, 1}))
	assert.Equal(t, 0.0, d.At([]int{2, 0}))
}

func TestDenseGatherFollowsSelectionOrder(t *testing.T) {
	d := NewDenseFromValues([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})

	sub := d.Gather([][]int{{1, 0}, {2, 0}})
	require.Equal(t, []int{2, 2}, sub.Shape())
	assert.Equal(t, []float64{6, 4, 3, 1}, sub.Values())
}

func TestDenseGatherSingleCell(t *testing.T) {
	d := NewDenseFromValues([]int{2, 2}, []float64{1, 2, 3, 4})

	sub := d.Gather([][]int{{1}, {0}})
	require.Equal(t, []int{1, 1}, sub.Shape())
	assert.Equal(t, 3.0, sub.At([]int{0, 0}))
}

func TestOuter(t *testing.T) {
	joint := Outer([][]float64{{0.5, 0.5}, {0.25, 0.75}})
	require.Equal(t, []int{2, 2}, joint.Shape())
	assert.InDelta(t, 0.125, joint.At([]int{0, 0}), 1e-12)
	assert.InDelta(t, 0.375, joint.At([]int{0, 1}), 1e-12)
	assert.InDelta(t, 0.125, joint.At([]int{1, 0}), 1e-12)
	assert.InDelta(t, 0.375, joint.At([]int{1, 1}), 1e-12)
}

func TestMulSum(t *testing.T) {
	payoffs := NewDenseFromValues([]int{2, 1}, []float64{1, 3})
	weights := Outer([][]float64{{0.5, 0.5}, {1.0}})
	assert.InDelta(t, 2.0, payoffs.MulSum(weights), 1e-12)
}

func TestMulSumShapeMismatchPanics(t *testing.T) {
	a := NewDense([]int{2, 2})
	b := NewDense([]int{2, 3})
	require.Panics(t, func() { a.MulSum(b) })
}

func TestBitsAllSet(t *testing.T) {
	b := NewBits([]int{2, 2})
	require.False(t, b.AllSet([][]int{{0, 1}, {0, 1}}))

	b.SetAt([]int{0, 0}, true)
	b.SetAt([]int{0, 1}, true)
	require.True(t, b.AllSet([][]int{{0}, {0, 1}}))
	require.False(t, b.AllSet([][]int{{0, 1}, {0}}))

	b.SetAt([]int{1, 0}, true)
	b.SetAt([]int{1, 1}, true)
	require.True(t, b.AllSet([][]int{{0, 1}, {0, 1}}))
}

func TestBitsGrowPreservesFlags(t *testing.T) {
	b := NewBits([]int{1, 1})
	b.SetAt([]int{0, 0}, true)

	b.Grow(0)
	require.Equal(t, []int{2, 1}, b.Shape())
	assert.True(t, b.At([]int{0, 0}))
	assert.False(t, b.At([]int{1, 0}))
}

// Package tensor implements the growable dense N-dimensional arrays that
// back empirical payoff tables.
//
// Arrays are laid out in row-major order. Growth is append-only along a
// single axis: existing cells keep their indices and new slices are
// zero-initialized.
package tensor

import (
	"fmt"

	"github.com/apexrl/malib/internal/f64"
)

// Dense is a dense N-dimensional float64 array.
type Dense struct {
	shape   []int
	strides []int
	data    []float64
}

// NewDense creates a zero-filled Dense with the given shape.
// Axes of length zero are permitted; the array has no cells until grown.
func NewDense(shape []int) *Dense {
	return &Dense{
		shape:   cloneInts(shape),
		strides: newStrides(shape),
		data:    make([]float64, sizeOf(shape)),
	}
}

// NewDenseFromValues creates a Dense with the given shape and backing values.
// The values slice is copied.
func NewDenseFromValues(shape []int, values []float64) *Dense {
	if len(values) != sizeOf(shape) {
		panic(fmt.Errorf("tensor: %d values for shape %v", len(values), shape))
	}

	d := NewDense(shape)
	copy(d.data, values)
	return d
}

// Shape returns a copy of the per-axis lengths.
func (d *Dense) Shape() []int {
	return cloneInts(d.shape)
}

// Size returns the total number of cells.
func (d *Dense) Size() int {
	return len(d.data)
}

// At returns the value at the given index.
func (d *Dense) At(idx []int) float64 {
	return d.data[flatIndex(d.shape, d.strides, idx)]
}

// SetAt writes the value at the given index.
func (d *Dense) SetAt(idx []int, v float64) {
	d.data[flatIndex(d.shape, d.strides, idx)] = v
}

// Grow appends one zero slice along the given axis.
func (d *Dense) Grow(axis int) {
	newShape, outer, oldMid, inner := growDims(d.shape, axis)
	newData := make([]float64, sizeOf(newShape))
	for o := 0; o < outer; o++ {
		for m := 0; m < oldMid; m++ {
			src := (o*oldMid + m) * inner
			dst := (o*(oldMid+1) + m) * inner
			copy(newData[dst:dst+inner], d.data[src:src+inner])
		}
	}

	d.shape = newShape
	d.strides = newStrides(newShape)
	d.data = newData
}

// Gather returns the sub-tensor addressed by the given per-axis index
// sequences. The result's axes follow the order of the given sequences.
func (d *Dense) Gather(sel [][]int) *Dense {
	checkRank(d.shape, sel)
	out := NewDense(selShape(sel))
	src := make([]int, len(sel))
	eachIndex(out.shape, func(flat int, idx []int) {
		for axis, i := range idx {
			src[axis] = sel[axis][i]
		}
		out.data[flat] = d.At(src)
	})
	return out
}

// MulSum returns the sum of the elementwise product with w.
// The shapes must match exactly; a mismatch is a programming error.
func (d *Dense) MulSum(w *Dense) float64 {
	if !equalInts(d.shape, w.shape) {
		panic(fmt.Errorf("tensor: shape mismatch %v vs %v", d.shape, w.shape))
	}

	return f64.DotUnitary(d.data, w.data)
}

// Clone returns a deep copy.
func (d *Dense) Clone() *Dense {
	return NewDenseFromValues(d.shape, d.data)
}

// Values returns a copy of the backing data in row-major order.
func (d *Dense) Values() []float64 {
	out := make([]float64, len(d.data))
	copy(out, d.data)
	return out
}

// Outer returns the outer product of the given vectors: a tensor with one
// axis per vector whose cells are the products of the corresponding entries.
func Outer(vectors [][]float64) *Dense {
	shape := make([]int, len(vectors))
	for i, v := range vectors {
		shape[i] = len(v)
	}

	out := NewDense(shape)
	eachIndex(shape, func(flat int, idx []int) {
		p := 1.0
		for axis, i := range idx {
			p *= vectors[axis][i]
		}
		out.data[flat] = p
	})
	return out
}

// Bits is a dense N-dimensional boolean array, parallel in layout to Dense.
type Bits struct {
	shape   []int
	strides []int
	data    []bool
}

// NewBits creates a false-filled Bits with the given shape.
func NewBits(shape []int) *Bits {
	return &Bits{
		shape:   cloneInts(shape),
		strides: newStrides(shape),
		data:    make([]bool, sizeOf(shape)),
	}
}

// NewBitsFromValues creates a Bits with the given shape and backing values.
// The values slice is copied.
func NewBitsFromValues(shape []int, values []bool) *Bits {
	if len(values) != sizeOf(shape) {
		panic(fmt.Errorf("tensor: %d values for shape %v", len(values), shape))
	}

	b := NewBits(shape)
	copy(b.data, values)
	return b
}

// Shape returns a copy of the per-axis lengths.
func (b *Bits) Shape() []int {
	return cloneInts(b.shape)
}

// At returns the value at the given index.
func (b *Bits) At(idx []int) bool {
	return b.data[flatIndex(b.shape, b.strides, idx)]
}

// SetAt writes the value at the given index.
func (b *Bits) SetAt(idx []int, v bool) {
	b.data[flatIndex(b.shape, b.strides, idx)] = v
}

// Grow appends one false slice along the given axis.
func (b *Bits) Grow(axis int) {
	newShape, outer, oldMid, inner := growDims(b.shape, axis)
	newData := make([]bool, sizeOf(newShape))
	for o := 0; o < outer; o++ {
		for m := 0; m < oldMid; m++ {
			src := (o*oldMid + m) * inner
			dst := (o*(oldMid+1) + m) * inner
			copy(newData[dst:dst+inner], b.data[src:src+inner])
		}
	}

	b.shape = newShape
	b.strides = newStrides(newShape)
	b.data = newData
}

// AllSet reports whether every cell addressed by the given per-axis index
// sequences is true.
func (b *Bits) AllSet(sel [][]int) bool {
	checkRank(b.shape, sel)
	all := true
	src := make([]int, len(sel))
	eachIndex(selShape(sel), func(flat int, idx []int) {
		for axis, i := range idx {
			src[axis] = sel[axis][i]
		}
		if !b.At(src) {
			all = false
		}
	})
	return all
}

// Values returns a copy of the backing data in row-major order.
func (b *Bits) Values() []bool {
	out := make([]bool, len(b.data))
	copy(out, b.data)
	return out
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}

func newStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func sizeOf(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func flatIndex(shape, strides, idx []int) int {
	if len(idx) != len(shape) {
		panic(fmt.Errorf("tensor: index rank %d for shape %v", len(idx), shape))
	}

	flat := 0
	for axis, i := range idx {
		if i < 0 || i >= shape[axis] {
			panic(fmt.Errorf("tensor: index %d out of range on axis %d (len %d)", i, axis, shape[axis]))
		}
		flat += i * strides[axis]
	}
	return flat
}

func growDims(shape []int, axis int) (newShape []int, outer, oldMid, inner int) {
	if axis < 0 || axis >= len(shape) {
		panic(fmt.Errorf("tensor: grow axis %d for shape %v", axis, shape))
	}

	newShape = cloneInts(shape)
	newShape[axis]++

	outer, inner = 1, 1
	for _, s := range shape[:axis] {
		outer *= s
	}
	for _, s := range shape[axis+1:] {
		inner *= s
	}
	return newShape, outer, shape[axis], inner
}

func checkRank(shape []int, sel [][]int) {
	if len(sel) != len(shape) {
		panic(fmt.Errorf("tensor: selection rank %d for shape %v", len(sel), shape))
	}
}

func selShape(sel [][]int) []int {
	shape := make([]int, len(sel))
	for axis, indices := range sel {
		shape[axis] = len(indices)
	}
	return shape
}

// eachIndex visits every index of the given shape in row-major order.
func eachIndex(shape []int, visit func(flat int, idx []int)) {
	n := sizeOf(shape)
	if n == 0 {
		return
	}

	idx := make([]int, len(shape))
	for flat := 0; flat < n; flat++ {
		visit(flat, idx)
		for axis := len(shape) - 1; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < shape[axis] {
				break
			}
			idx[axis] = 0
		}
	}
}

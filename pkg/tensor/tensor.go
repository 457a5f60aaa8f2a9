// Package tensor provides the dense, row-major tensor value exchanged
// between the batching layer and the inference backend. The batch
// dimension is always first.
package tensor

import "fmt"

// DType identifies the element type of a tensor.
type DType int

const (
	Float32 DType = iota
	Int32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// Tensor is a dense row-major value. Exactly one of Floats/Ints is
// populated, matching DType. A rank-0 tensor holds one element.
type Tensor struct {
	DType  DType
	Shape  []int
	Floats []float32
	Ints   []int32
}

// NumElems returns the product of the dimensions in shape.
func NumElems(shape ...int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0
		}
		n *= d
	}
	return n
}

// NewFloat allocates a zero-filled float32 tensor of the given shape.
func NewFloat(shape ...int) *Tensor {
	return &Tensor{
		DType:  Float32,
		Shape:  append([]int(nil), shape...),
		Floats: make([]float32, NumElems(shape...)),
	}
}

// NewInt allocates a zero-filled int32 tensor of the given shape.
func NewInt(shape ...int) *Tensor {
	return &Tensor{
		DType: Int32,
		Shape: append([]int(nil), shape...),
		Ints:  make([]int32, NumElems(shape...)),
	}
}

// ScalarInt returns a rank-0 int32 tensor holding v.
func ScalarInt(v int32) *Tensor {
	return &Tensor{DType: Int32, Shape: []int{}, Ints: []int32{v}}
}

// ScalarFloat returns a rank-0 float32 tensor holding v.
func ScalarFloat(v float32) *Tensor {
	return &Tensor{DType: Float32, Shape: []int{}, Floats: []float32{v}}
}

// FromFloats wraps data in a tensor of the given shape. The data length
// must match the shape exactly; the slice is not copied.
func FromFloats(data []float32, shape ...int) (*Tensor, error) {
	if len(data) != NumElems(shape...) {
		return nil, fmt.Errorf("tensor: %d elements do not fit shape %v", len(data), shape)
	}
	return &Tensor{
		DType:  Float32,
		Shape:  append([]int(nil), shape...),
		Floats: data,
	}, nil
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.Shape) }

// Len returns the total element count.
func (t *Tensor) Len() int { return NumElems(t.Shape...) }

// Batch returns the leading dimension, or 1 for rank-0 tensors.
func (t *Tensor) Batch() int {
	if len(t.Shape) == 0 {
		return 1
	}
	return t.Shape[0]
}

// RowWidth returns the number of elements per batch item, i.e. the
// product of all dimensions after the first.
func (t *Tensor) RowWidth() int {
	if len(t.Shape) == 0 {
		return 1
	}
	return NumElems(t.Shape[1:]...)
}

// Row returns the i-th batch item of a float32 tensor as a subslice.
// The slice aliases the tensor storage.
func (t *Tensor) Row(i int) []float32 {
	w := t.RowWidth()
	return t.Floats[i*w : (i+1)*w]
}

// RowInts returns the i-th batch item of an int32 tensor as a subslice.
func (t *Tensor) RowInts(i int) []int32 {
	w := t.RowWidth()
	return t.Ints[i*w : (i+1)*w]
}

// FloatAt returns element [i,j] of a rank-2 float32 tensor.
func (t *Tensor) FloatAt(i, j int) float32 {
	return t.Floats[i*t.RowWidth()+j]
}

// ShapeEquals reports whether the tensor has exactly the given shape.
func (t *Tensor) ShapeEquals(shape ...int) bool {
	if len(t.Shape) != len(shape) {
		return false
	}
	for i, d := range shape {
		if t.Shape[i] != d {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("tensor<%s%v>", t.DType, t.Shape)
}

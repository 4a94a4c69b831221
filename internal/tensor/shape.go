package tensor

import (
	"fmt"
	"strings"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape []int

// Numel returns the total number of elements described by the shape.
// The empty shape describes a scalar and has one element.
func (s Shape) Numel() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Equal reports whether two shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i, d := range s {
		if d != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Validate returns an error if any dimension is negative.
func (s Shape) Validate() error {
	for i, d := range s {
		if d < 0 {
			return fmt.Errorf("shape %v: dimension %d is negative", s, i)
		}
	}
	return nil
}

// String returns a human-readable representation, e.g. "(2, 3)".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Concat returns a new shape with the dimensions of all arguments in order.
// It is used to assemble sample shapes like batch + event dimensions.
func Concat(shapes ...Shape) Shape {
	n := 0
	for _, s := range shapes {
		n += len(s)
	}
	out := make(Shape, 0, n)
	for _, s := range shapes {
		out = append(out, s...)
	}
	return out
}

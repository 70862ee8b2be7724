// Package numeric holds the dynamic vector types persisted in rawlogs.
package numeric

import (
	"fmt"
	"math"

	"github.com/danmuck/rawlog/internal/protocol"
)

const (
	TypeVectorFloat  = "VectorFloat"
	TypeVectorDouble = "VectorDouble"
)

type Float interface {
	~float32 | ~float64
}

// Vector is a dynamically sized vector. Its payload is a counted sequence of
// elements in the vector's own precision.
type Vector[T Float] struct {
	Values []T
}

type (
	VectorFloat  = Vector[float32]
	VectorDouble = Vector[float64]
)

func (v *Vector[T]) typeName() string {
	var zero T
	if _, ok := any(zero).(float32); ok {
		return TypeVectorFloat
	}
	return TypeVectorDouble
}

func (v *Vector[T]) CurrentVersion() uint8 { return 0 }

func (v *Vector[T]) Encode(out *protocol.Archive) error {
	switch values := any(v.Values).(type) {
	case []float32:
		return out.WriteFloat32s(values)
	case []float64:
		return out.WriteFloat64s(values)
	default:
		return out.Fail(fmt.Errorf("numeric: unsupported element type %T", v.Values))
	}
}

func (v *Vector[T]) Decode(in *protocol.Archive, version uint8) error {
	if version != 0 {
		return in.Fail(&protocol.UnsupportedVersionError{TypeName: v.typeName(), Version: version})
	}
	switch values := any(&v.Values).(type) {
	case *[]float32:
		*values, _ = in.ReadFloat32s()
	case *[]float64:
		*values, _ = in.ReadFloat64s()
	default:
		return in.Fail(fmt.Errorf("numeric: unsupported element type %T", v.Values))
	}
	return in.Err()
}

func (v Vector[T]) Len() int {
	return len(v.Values)
}

func (v Vector[T]) Sum() float64 {
	var s float64
	for _, x := range v.Values {
		s += float64(x)
	}
	return s
}

// Mean is NaN for an empty vector.
func (v Vector[T]) Mean() float64 {
	if len(v.Values) == 0 {
		return math.NaN()
	}
	return v.Sum() / float64(len(v.Values))
}

func (v Vector[T]) Norm() float64 {
	var s float64
	for _, x := range v.Values {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

// Cast converts every element to another precision.
func Cast[To, From Float](v Vector[From]) Vector[To] {
	out := Vector[To]{Values: make([]To, len(v.Values))}
	for i, x := range v.Values {
		out.Values[i] = To(x)
	}
	return out
}

// Register adds the vector types to r.
func Register(r *protocol.Registry) error {
	if err := r.Register(TypeVectorFloat, func() protocol.Serializable { return &VectorFloat{} }, 0); err != nil {
		return err
	}
	return r.Register(TypeVectorDouble, func() protocol.Serializable { return &VectorDouble{} }, 0)
}

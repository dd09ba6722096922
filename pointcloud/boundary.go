package pointcloud

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrEmptyInput is matched by every EmptyInputError.
var ErrEmptyInput = errors.New("empty input")

// EmptyInputError is returned when an operation needs at least one point and
// got none.
type EmptyInputError struct {
	Op string
}

func (e *EmptyInputError) Error() string {
	if e.Op == "" {
		return ErrEmptyInput.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, ErrEmptyInput)
}

// Is reports whether target is ErrEmptyInput.
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// NewEmptyInputError returns an EmptyInputError for the named operation.
func NewEmptyInputError(op string) error {
	return &EmptyInputError{Op: op}
}

// Boundary is an axis aligned bounding box. Only the positions of Min and Max
// are meaningful.
type Boundary struct {
	Min Point
	Max Point
}

// Contains returns whether v lies inside the box, edges included.
func (b Boundary) Contains(v r3.Vector) bool {
	return v.X >= b.Min.Position.X && v.X <= b.Max.Position.X &&
		v.Y >= b.Min.Position.Y && v.Y <= b.Max.Position.Y &&
		v.Z >= b.Min.Position.Z && v.Z <= b.Max.Position.Z
}

// Size returns the extent of the box along each axis.
func (b Boundary) Size() r3.Vector {
	return b.Max.Position.Sub(b.Min.Position)
}

// Center returns the midpoint of the box.
func (b Boundary) Center() r3.Vector {
	return b.Min.Position.Add(b.Max.Position).Mul(0.5)
}

func (b Boundary) String() string {
	return fmt.Sprintf("min(%g, %g, %g) max(%g, %g, %g)",
		b.Min.Position.X, b.Min.Position.Y, b.Min.Position.Z,
		b.Max.Position.X, b.Max.Position.Y, b.Max.Position.Z)
}

// QueryBoundary returns the axis aligned bounding box of the cloud. The
// extremes on each axis may come from different points.
func QueryBoundary(cloud PointCloud) (Boundary, error) {
	if cloud == nil || cloud.Size() == 0 {
		return Boundary{}, NewEmptyInputError("boundary query")
	}
	meta := cloud.MetaData()
	return Boundary{
		Min: NewBasicPoint(meta.MinX, meta.MinY, meta.MinZ),
		Max: NewBasicPoint(meta.MaxX, meta.MaxY, meta.MaxZ),
	}, nil
}

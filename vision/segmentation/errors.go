package segmentation

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrDegenerateGeometry is matched by every DegenerateGeometryError.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// DegenerateGeometryError is returned when the points handed to the plane
// estimator do not span a plane: fewer than three of them, all coincident, or
// all on one line.
type DegenerateGeometryError struct {
	Reason string
	Points int
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("%s: %s (%d points)", ErrDegenerateGeometry, e.Reason, e.Points)
}

// Is reports whether target is ErrDegenerateGeometry.
func (e *DegenerateGeometryError) Is(target error) bool {
	return target == ErrDegenerateGeometry
}

func newDegenerateGeometryError(reason string, points int) error {
	return &DegenerateGeometryError{Reason: reason, Points: points}
}

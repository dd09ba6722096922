package sensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSensorRead is matched by every ReadError.
var ErrSensorRead = errors.New("sensor read failed")

// ReadError is returned when the sensor fails to start recording or to
// deliver a usable frame.
type ReadError struct {
	Op  string
	Err error
}

// NewReadError returns a ReadError for the named operation.
func NewReadError(op string, err error) error {
	return &ReadError{Op: op, Err: err}
}

func (e *ReadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrSensorRead, e.Op)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSensorRead, e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSensorRead.
func (e *ReadError) Is(target error) bool {
	return target == ErrSensorRead
}

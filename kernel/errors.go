package kernel

import "errors"

// Status is a kernel result code. Non-zero values are errors.
type Status int8

const (
	StatusOK            Status = 0
	StatusError         Status = -1
	StatusStackOverflow Status = -2
	StatusPermission    Status = -3
	StatusInvalid       Status = -4
	StatusEmpty         Status = -5
)

var (
	// ErrStackOverflow reports a frame push past a task's stack boundary.
	ErrStackOverflow error = StatusStackOverflow
	// ErrPermissionDenied reports an unlock by a task that does not own the mutex.
	ErrPermissionDenied error = StatusPermission
	// ErrInvalidCall reports a call that is not valid in the current state.
	ErrInvalidCall error = StatusInvalid
	// ErrEmptyElement reports a lookup where no element exists.
	ErrEmptyElement error = StatusEmpty
	// ErrNoTaskSlot reports an exhausted task pool.
	ErrNoTaskSlot error = StatusError
)

func (s Status) Error() string { return s.String() }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "no error"
	case StatusError:
		return "error"
	case StatusStackOverflow:
		return "stack overflow"
	case StatusPermission:
		return "permission error"
	case StatusInvalid:
		return "invalid call"
	case StatusEmpty:
		return "element empty"
	default:
		return "invalid error code"
	}
}

// Code returns the result code carried by err. A nil error is StatusOK and
// foreign errors are StatusError.
func Code(err error) Status {
	if err == nil {
		return StatusOK
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusError
}

// Describe returns a one-line description of err suitable for a console.
func Describe(err error) string {
	return "error code: " + Code(err).String()
}

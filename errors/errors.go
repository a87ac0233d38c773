package errors

import "fmt"

var (
	ErrWorkerPanic            = fmt.Errorf("worker panic")
	ErrCapacityExceeded       = fmt.Errorf("room capacity exceeded")
	ErrMultiplex              = fmt.Errorf("readiness multiplexer failure")
	ErrReadFailed             = fmt.Errorf("read from guest failed")
	ErrWriteFailed            = fmt.Errorf("write to guest failed")
	ErrWouldBlock             = fmt.Errorf("operation would block")
	ErrUnsupportedMultiplexer = fmt.Errorf("unsupported multiplexer")
	ErrInvalidCharacter       = fmt.Errorf("invalid replacement character")
	ErrInvalidAddress         = fmt.Errorf("invalid listen address")
	ErrEmptyWords             = fmt.Errorf("no words have been found")
)

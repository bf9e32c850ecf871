// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
)

// Sensor error taxonomy. Wrapped errors match these through errors.Is.
var (
	ErrConnect          = errors.New("connect failed")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrRead             = errors.New("read failed")
	ErrWrite            = errors.New("write failed")
	ErrDecode           = errors.New("decode failed")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrNotConnected     = errors.New("transport not open")
	ErrAlreadyListening = errors.New("continuous read already running")
)

// OpError describes a failed transport operation.
type OpError struct {
	Op   string
	Kind Kind
	Addr string
	Err  error
}

func (e *OpError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Kind, e.Op, e.Addr, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is maps the operation name onto its sentinel so callers can test
// errors.Is(err, ErrRead) without caring about the underlying cause.
func (e *OpError) Is(target error) bool {
	switch e.Op {
	case OpOpen:
		return target == ErrConnect
	case OpRead:
		return target == ErrRead
	case OpWrite:
		return target == ErrWrite
	case OpDecode:
		return target == ErrDecode
	}
	return false
}

// Operation names carried by OpError.
const (
	OpOpen   = "open"
	OpClose  = "close"
	OpRead   = "read"
	OpWrite  = "write"
	OpDecode = "decode"
)

func newOpError(op string, kind Kind, addr string, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Addr: addr, Err: err}
}

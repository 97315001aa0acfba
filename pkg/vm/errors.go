package vm

import (
	"errors"
	"fmt"

	"github.com/daimatz/tinyjvm/pkg/op"
)

var (
	ErrClassNotFound      = errors.New("class not found")
	ErrMethodNotFound     = errors.New("method not found")
	ErrFieldNotFound      = errors.New("field not found")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrUnsupportedOpcode  = errors.New("unsupported opcode")
	ErrRecursionLimit     = errors.New("recursion limit exceeded")
	ErrArrayIndex         = errors.New("array index out of bounds")
	ErrUnsatisfiedLink    = errors.New("unsatisfied link")
	ErrUninitializedField = errors.New("uninitialized field")
	ErrArithmetic         = errors.New("arithmetic exception")
)

// ExecutionError locates a failure inside interpreted code. The innermost
// frame wraps the cause once; callers pass it up unchanged.
type ExecutionError struct {
	Class      string
	Method     string
	Descriptor string
	PC         int
	Op         op.Code
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s.%s%s pc=%d %s: %v", e.Class, e.Method, e.Descriptor, e.PC, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func typeMismatch(want string, got Value) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, want, got.Kind)
}

package vm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/daimatz/tinyjvm/pkg/classfile"
	"github.com/daimatz/tinyjvm/pkg/op"
)

// Frame is one method activation. A native frame carries the bound host
// function and the raw arguments; a bytecode frame carries the code, locals,
// operand stack and the arena of arrays it allocated.
type Frame struct {
	rt     *Runtime
	id     uint64
	class  *Class
	method *classfile.Member

	native NativeFunc
	args   []Value

	code   []byte
	ip     int
	locals []Value
	stack  []Value
	arrays [][]Value
}

// Class returns the class that declares the executing method.
func (f *Frame) Class() *Class { return f.class }

// Method returns the executing method.
func (f *Frame) Method() *classfile.Member { return f.method }

// IsNative reports whether the frame dispatches to a host function.
func (f *Frame) IsNative() bool { return f.native != nil }

// Locals returns the local variable slots.
func (f *Frame) Locals() []Value { return f.locals }

// Stack returns the operand stack, bottom first.
func (f *Frame) Stack() []Value { return f.stack }

// Exec runs the frame to completion and returns the method's result, which
// is VoidValue for void methods.
func (f *Frame) Exec() (Value, error) {
	if f.native != nil {
		v, err := f.native(f.class, f.args)
		if err != nil {
			return Value{}, fmt.Errorf("native %s.%s%s: %w", f.class.Name, f.method.Name, f.method.Descriptor, err)
		}
		return v, nil
	}

	for {
		if f.ip >= len(f.code) {
			return Value{}, f.fail(f.ip, op.Nop, fmt.Errorf("%w: code ends without a return", classfile.ErrClassFormat))
		}
		pc := f.ip
		code := op.Code(f.code[pc])
		h := handlers[code]
		if h == nil {
			return Value{}, f.fail(pc, code, fmt.Errorf("%w: 0x%02x (%s)", ErrUnsupportedOpcode, byte(code), code))
		}
		info, _ := op.Lookup(code)
		if pc+1+info.Operands > len(f.code) {
			return Value{}, f.fail(pc, code, fmt.Errorf("%w: truncated operands", classfile.ErrClassFormat))
		}
		if info.Pops > len(f.stack) {
			return Value{}, f.fail(pc, code, fmt.Errorf("%w: %s needs %d values, stack has %d", ErrStackUnderflow, code, info.Pops, len(f.stack)))
		}

		if e := f.rt.log.Trace(); e.Enabled() {
			e.Str("method", f.method.Name).Int("pc", pc).Stringer("op", code).Int("stack", len(f.stack)).Msg("exec")
		}

		v, done, err := h(f)
		if err != nil {
			return Value{}, f.fail(pc, code, err)
		}
		if done {
			return v, nil
		}
		f.ip++
	}
}

// fail attaches the frame location to err unless an inner frame already did.
func (f *Frame) fail(pc int, code op.Code, err error) error {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExecutionError{
		Class:      f.class.Name,
		Method:     f.method.Name,
		Descriptor: f.method.Descriptor,
		PC:         pc,
		Op:         code,
		Err:        err,
	}
}

func (f *Frame) push(v Value) {
	f.stack = append(f.stack, v)
}

func (f *Frame) pop() (Value, error) {
	n := len(f.stack)
	if n == 0 {
		return Value{}, fmt.Errorf("%w: pop on empty stack", ErrStackUnderflow)
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v, nil
}

func (f *Frame) peek() (Value, error) {
	if len(f.stack) == 0 {
		return Value{}, fmt.Errorf("%w: peek on empty stack", ErrStackUnderflow)
	}
	return f.stack[len(f.stack)-1], nil
}

// popInt pops an int. Booleans are accepted as 0 or 1.
func (f *Frame) popInt() (int32, error) {
	v, err := f.pop()
	if err != nil {
		return 0, err
	}
	switch v.Kind {
	case KindInt:
		return v.Int, nil
	case KindBoolean:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	}
	return 0, typeMismatch("int", v)
}

func (f *Frame) popKind(k Kind) (Value, error) {
	v, err := f.pop()
	if err != nil {
		return Value{}, err
	}
	if v.Kind != k {
		return Value{}, typeMismatch(k.String(), v)
	}
	return v, nil
}

func (f *Frame) popRef() (Value, error) {
	v, err := f.pop()
	if err != nil {
		return Value{}, err
	}
	if !v.IsReference() {
		return Value{}, typeMismatch("reference", v)
	}
	return v, nil
}

func (f *Frame) local(i int) (Value, error) {
	if i < 0 || i >= len(f.locals) {
		return Value{}, fmt.Errorf("%w: local %d out of range [0, %d)", ErrStackUnderflow, i, len(f.locals))
	}
	return f.locals[i], nil
}

func (f *Frame) setLocal(i int, v Value) error {
	if i < 0 || i >= len(f.locals) {
		return fmt.Errorf("%w: local %d out of range [0, %d)", ErrStackUnderflow, i, len(f.locals))
	}
	if v.IsCategory2() {
		if i+1 >= len(f.locals) {
			return fmt.Errorf("%w: local %d has no room for a %s", ErrStackUnderflow, i, v.Kind)
		}
		f.locals[i+1] = VoidValue()
	}
	f.locals[i] = v
	return nil
}

// u8 reads the next immediate byte and advances ip onto it.
func (f *Frame) u8() uint8 {
	f.ip++
	return f.code[f.ip]
}

func (f *Frame) i8() int8 { return int8(f.u8()) }

// u16 reads the next two immediate bytes and advances ip onto the last.
func (f *Frame) u16() uint16 {
	v := binary.BigEndian.Uint16(f.code[f.ip+1:])
	f.ip += 2
	return v
}

func (f *Frame) i16() int16 { return int16(f.u16()) }

// branch jumps to pc+offset. ip is left one short because the dispatch loop
// advances it after every instruction.
func (f *Frame) branch(pc int, offset int16) error {
	target := pc + int(offset)
	if target < 0 || target >= len(f.code) {
		return fmt.Errorf("%w: branch target %d outside code", classfile.ErrClassFormat, target)
	}
	f.ip = target - 1
	return nil
}

func (f *Frame) newArray(t ArrayType, n int32) (ArrayRef, error) {
	if n < 0 {
		return ArrayRef{}, fmt.Errorf("%w: negative array size %d", ErrArrayIndex, n)
	}
	elems := make([]Value, n)
	zero := t.zero()
	for i := range elems {
		elems[i] = zero
	}
	f.arrays = append(f.arrays, elems)
	return ArrayRef{Index: len(f.arrays) - 1, Elem: t, frame: f.id}, nil
}

// array returns the storage behind ref. Handles from other frames are
// dangling once the allocating frame has returned.
func (f *Frame) array(ref ArrayRef) ([]Value, error) {
	if ref.frame != f.id || ref.Index < 0 || ref.Index >= len(f.arrays) {
		return nil, fmt.Errorf("%w: dangling array handle", ErrArrayIndex)
	}
	return f.arrays[ref.Index], nil
}

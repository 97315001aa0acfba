package vm

import (
	"fmt"

	"github.com/daimatz/tinyjvm/pkg/classfile"
	"github.com/daimatz/tinyjvm/pkg/op"
)

// handler executes one instruction. ip points at the opcode on entry and at
// the last byte consumed on exit. done reports a return.
type handler func(f *Frame) (ret Value, done bool, err error)

// handlers is the dispatch table; a nil entry is an unsupported opcode.
var handlers [256]handler

func next() (Value, bool, error) { return Value{}, false, nil }

func init() {
	handlers[op.Nop] = func(*Frame) (Value, bool, error) { return next() }

	// --- Constants ---
	for i, v := range []int32{-1, 0, 1, 2, 3, 4, 5} {
		handlers[op.IconstM1+op.Code(i)] = pushConst(IntValue(v))
	}
	handlers[op.Lconst0] = pushConst(LongValue(0))
	handlers[op.Lconst1] = pushConst(LongValue(1))
	handlers[op.Fconst0] = pushConst(FloatValue(0))
	handlers[op.Fconst1] = pushConst(FloatValue(1))
	handlers[op.Fconst2] = pushConst(FloatValue(2))
	handlers[op.Dconst0] = pushConst(DoubleValue(0))
	handlers[op.Dconst1] = pushConst(DoubleValue(1))
	handlers[op.Bipush] = func(f *Frame) (Value, bool, error) {
		f.push(IntValue(int32(f.i8())))
		return next()
	}
	handlers[op.Sipush] = func(f *Frame) (Value, bool, error) {
		f.push(IntValue(int32(f.i16())))
		return next()
	}
	handlers[op.Ldc] = func(f *Frame) (Value, bool, error) {
		return Value{}, false, f.ldc(uint16(f.u8()))
	}
	handlers[op.LdcW] = func(f *Frame) (Value, bool, error) {
		return Value{}, false, f.ldc(f.u16())
	}
	handlers[op.Ldc2W] = ldc2w

	// --- Locals ---
	for _, g := range []struct {
		load, load0, store, store0 op.Code
		t                          slotType
	}{
		{op.Iload, op.Iload0, op.Istore, op.Istore0, intSlot},
		{op.Lload, op.Lload0, op.Lstore, op.Lstore0, longSlot},
		{op.Fload, op.Fload0, op.Fstore, op.Fstore0, floatSlot},
		{op.Dload, op.Dload0, op.Dstore, op.Dstore0, doubleSlot},
		{op.Aload, op.Aload0, op.Astore, op.Astore0, refSlot},
	} {
		handlers[g.load] = load(g.t, -1)
		handlers[g.store] = store(g.t, -1)
		for n := 0; n < 4; n++ {
			handlers[g.load0+op.Code(n)] = load(g.t, n)
			handlers[g.store0+op.Code(n)] = store(g.t, n)
		}
	}
	handlers[op.Iinc] = iinc

	// --- Arrays ---
	handlers[op.Newarray] = newarray
	handlers[op.Arraylength] = arraylength
	handlers[op.Iaload] = iaload
	handlers[op.Iastore] = iastore

	// --- Stack ---
	handlers[op.Pop] = func(f *Frame) (Value, bool, error) {
		_, err := f.pop()
		return Value{}, false, err
	}
	handlers[op.Pop2] = pop2
	handlers[op.Dup] = dup
	handlers[op.Swap] = swap

	// --- Arithmetic ---
	handlers[op.Iadd] = intBinary(func(a, b int32) (int32, error) { return a + b, nil })
	handlers[op.Isub] = intBinary(func(a, b int32) (int32, error) { return a - b, nil })
	handlers[op.Imul] = intBinary(func(a, b int32) (int32, error) { return a * b, nil })
	handlers[op.Idiv] = intBinary(func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: / by zero", ErrArithmetic)
		}
		return a / b, nil
	})
	handlers[op.Irem] = intBinary(func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: / by zero", ErrArithmetic)
		}
		return a % b, nil
	})
	handlers[op.Ladd] = longBinary(func(a, b int64) int64 { return a + b })
	handlers[op.Lsub] = longBinary(func(a, b int64) int64 { return a - b })
	handlers[op.Lmul] = longBinary(func(a, b int64) int64 { return a * b })
	handlers[op.Fadd] = floatBinary(func(a, b float32) float32 { return a + b })
	handlers[op.Fsub] = floatBinary(func(a, b float32) float32 { return a - b })
	handlers[op.Dadd] = doubleBinary(func(a, b float64) float64 { return a + b })
	handlers[op.Dsub] = doubleBinary(func(a, b float64) float64 { return a - b })
	handlers[op.Ineg] = func(f *Frame) (Value, bool, error) {
		v, err := f.popInt()
		if err != nil {
			return Value{}, false, err
		}
		f.push(IntValue(-v))
		return next()
	}

	// --- Conversions ---
	handlers[op.I2l] = fromInt(func(v int32) Value { return LongValue(int64(v)) })
	handlers[op.I2f] = fromInt(func(v int32) Value { return FloatValue(float32(v)) })
	handlers[op.I2d] = fromInt(func(v int32) Value { return DoubleValue(float64(v)) })
	handlers[op.L2i] = func(f *Frame) (Value, bool, error) {
		v, err := f.popKind(KindLong)
		if err != nil {
			return Value{}, false, err
		}
		f.push(IntValue(int32(v.Long)))
		return next()
	}

	// --- Control ---
	handlers[op.Ifeq] = ifZero(func(v int32) bool { return v == 0 })
	handlers[op.Ifne] = ifZero(func(v int32) bool { return v != 0 })
	handlers[op.Iflt] = ifZero(func(v int32) bool { return v < 0 })
	handlers[op.Ifge] = ifZero(func(v int32) bool { return v >= 0 })
	handlers[op.Ifgt] = ifZero(func(v int32) bool { return v > 0 })
	handlers[op.Ifle] = ifZero(func(v int32) bool { return v <= 0 })
	handlers[op.IfIcmpeq] = ifCmp(func(a, b int32) bool { return a == b })
	handlers[op.IfIcmpne] = ifCmp(func(a, b int32) bool { return a != b })
	handlers[op.IfIcmplt] = ifCmp(func(a, b int32) bool { return a < b })
	handlers[op.IfIcmpge] = ifCmp(func(a, b int32) bool { return a >= b })
	handlers[op.IfIcmpgt] = ifCmp(func(a, b int32) bool { return a > b })
	handlers[op.IfIcmple] = ifCmp(func(a, b int32) bool { return a <= b })
	handlers[op.Goto] = func(f *Frame) (Value, bool, error) {
		pc := f.ip
		return Value{}, false, f.branch(pc, f.i16())
	}

	// --- Returns ---
	handlers[op.Return] = func(*Frame) (Value, bool, error) { return VoidValue(), true, nil }
	handlers[op.Ireturn] = ret(intSlot)
	handlers[op.Lreturn] = ret(longSlot)
	handlers[op.Freturn] = ret(floatSlot)
	handlers[op.Dreturn] = ret(doubleSlot)
	handlers[op.Areturn] = ret(refSlot)

	// --- Fields, methods, objects ---
	handlers[op.Getstatic] = getstatic
	handlers[op.Putstatic] = putstatic
	handlers[op.Getfield] = getfield
	handlers[op.Putfield] = putfield
	handlers[op.Invokevirtual] = invoke(true)
	handlers[op.Invokespecial] = invoke(true)
	handlers[op.Invokestatic] = invoke(false)
	handlers[op.New] = newObject
}

// slotType checks the kind of a value moved by a typed load, store or
// return.
type slotType struct {
	name string
	ok   func(Value) bool
}

var (
	intSlot    = slotType{"int", func(v Value) bool { return v.Kind == KindInt || v.Kind == KindBoolean }}
	longSlot   = slotType{"long", func(v Value) bool { return v.Kind == KindLong }}
	floatSlot  = slotType{"float", func(v Value) bool { return v.Kind == KindFloat }}
	doubleSlot = slotType{"double", func(v Value) bool { return v.Kind == KindDouble }}
	refSlot    = slotType{"reference", Value.IsReference}
)

func pushConst(v Value) handler {
	return func(f *Frame) (Value, bool, error) {
		f.push(v)
		return next()
	}
}

// load pushes local n, or the local named by the immediate byte when n < 0.
func load(t slotType, n int) handler {
	return func(f *Frame) (Value, bool, error) {
		i := n
		if i < 0 {
			i = int(f.u8())
		}
		v, err := f.local(i)
		if err != nil {
			return Value{}, false, err
		}
		if !t.ok(v) {
			return Value{}, false, typeMismatch(t.name, v)
		}
		f.push(v)
		return next()
	}
}

// store pops into local n, or the local named by the immediate byte when
// n < 0.
func store(t slotType, n int) handler {
	return func(f *Frame) (Value, bool, error) {
		i := n
		if i < 0 {
			i = int(f.u8())
		}
		v, err := f.pop()
		if err != nil {
			return Value{}, false, err
		}
		if !t.ok(v) {
			return Value{}, false, typeMismatch(t.name, v)
		}
		return Value{}, false, f.setLocal(i, v)
	}
}

func iinc(f *Frame) (Value, bool, error) {
	i := int(f.u8())
	delta := int32(f.i8())
	v, err := f.local(i)
	if err != nil {
		return Value{}, false, err
	}
	if v.Kind != KindInt {
		return Value{}, false, typeMismatch("int", v)
	}
	return Value{}, false, f.setLocal(i, IntValue(v.Int+delta))
}

func ret(t slotType) handler {
	return func(f *Frame) (Value, bool, error) {
		v, err := f.pop()
		if err != nil {
			return Value{}, false, err
		}
		if !t.ok(v) {
			return Value{}, false, typeMismatch(t.name, v)
		}
		return v, true, nil
	}
}

// intBinary pops the right operand, then the left one.
func intBinary(fn func(a, b int32) (int32, error)) handler {
	return func(f *Frame) (Value, bool, error) {
		b, err := f.popInt()
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.popInt()
		if err != nil {
			return Value{}, false, err
		}
		r, err := fn(a, b)
		if err != nil {
			return Value{}, false, err
		}
		f.push(IntValue(r))
		return next()
	}
}

func longBinary(fn func(a, b int64) int64) handler {
	return func(f *Frame) (Value, bool, error) {
		b, err := f.popKind(KindLong)
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.popKind(KindLong)
		if err != nil {
			return Value{}, false, err
		}
		f.push(LongValue(fn(a.Long, b.Long)))
		return next()
	}
}

func floatBinary(fn func(a, b float32) float32) handler {
	return func(f *Frame) (Value, bool, error) {
		b, err := f.popKind(KindFloat)
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.popKind(KindFloat)
		if err != nil {
			return Value{}, false, err
		}
		f.push(FloatValue(fn(a.Float, b.Float)))
		return next()
	}
}

func doubleBinary(fn func(a, b float64) float64) handler {
	return func(f *Frame) (Value, bool, error) {
		b, err := f.popKind(KindDouble)
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.popKind(KindDouble)
		if err != nil {
			return Value{}, false, err
		}
		f.push(DoubleValue(fn(a.Double, b.Double)))
		return next()
	}
}

func fromInt(conv func(int32) Value) handler {
	return func(f *Frame) (Value, bool, error) {
		v, err := f.popInt()
		if err != nil {
			return Value{}, false, err
		}
		f.push(conv(v))
		return next()
	}
}

func ifZero(cond func(int32) bool) handler {
	return func(f *Frame) (Value, bool, error) {
		pc := f.ip
		offset := f.i16()
		v, err := f.popInt()
		if err != nil {
			return Value{}, false, err
		}
		if cond(v) {
			return Value{}, false, f.branch(pc, offset)
		}
		return next()
	}
}

// ifCmp compares the second-popped value against the first-popped one.
func ifCmp(cond func(a, b int32) bool) handler {
	return func(f *Frame) (Value, bool, error) {
		pc := f.ip
		offset := f.i16()
		b, err := f.popInt()
		if err != nil {
			return Value{}, false, err
		}
		a, err := f.popInt()
		if err != nil {
			return Value{}, false, err
		}
		if cond(a, b) {
			return Value{}, false, f.branch(pc, offset)
		}
		return next()
	}
}

// pop2 drops one long or double, or two single-width values.
func pop2(f *Frame) (Value, bool, error) {
	v, err := f.pop()
	if err != nil {
		return Value{}, false, err
	}
	if v.IsCategory2() {
		return next()
	}
	w, err := f.pop()
	if err != nil {
		return Value{}, false, err
	}
	if w.IsCategory2() {
		return Value{}, false, typeMismatch("single-width value", w)
	}
	return next()
}

func dup(f *Frame) (Value, bool, error) {
	v, err := f.peek()
	if err != nil {
		return Value{}, false, err
	}
	if v.IsCategory2() {
		return Value{}, false, typeMismatch("single-width value", v)
	}
	f.push(v)
	return next()
}

func swap(f *Frame) (Value, bool, error) {
	b, err := f.pop()
	if err != nil {
		return Value{}, false, err
	}
	a, err := f.pop()
	if err != nil {
		return Value{}, false, err
	}
	if a.IsCategory2() || b.IsCategory2() {
		return Value{}, false, fmt.Errorf("%w: swap of %s and %s", ErrTypeMismatch, a.Kind, b.Kind)
	}
	f.push(b)
	f.push(a)
	return next()
}

// ldc pushes an int, float or string constant, or loads the named class and
// pushes a handle to it.
func (f *Frame) ldc(idx uint16) error {
	pool := f.class.Pool
	e, err := pool.Get(idx)
	if err != nil {
		return err
	}
	switch c := e.(type) {
	case classfile.ConstantInteger:
		f.push(IntValue(c.Value))
	case classfile.ConstantFloat:
		f.push(FloatValue(c.Value))
	case classfile.ConstantString:
		s, err := pool.Utf8(c.StringIndex)
		if err != nil {
			return err
		}
		f.push(StringValue(s))
	case classfile.ConstantClass:
		name, err := pool.Utf8(c.NameIndex)
		if err != nil {
			return err
		}
		k, err := f.rt.registry.Class(name)
		if err != nil {
			return err
		}
		f.push(ClassValue(k.Name))
	default:
		return fmt.Errorf("%w: ldc of %s at index %d", classfile.ErrConstantPool, e.Tag(), idx)
	}
	return nil
}

func ldc2w(f *Frame) (Value, bool, error) {
	idx := f.u16()
	e, err := f.class.Pool.Get(idx)
	if err != nil {
		return Value{}, false, err
	}
	switch c := e.(type) {
	case classfile.ConstantLong:
		f.push(LongValue(c.Value))
	case classfile.ConstantDouble:
		f.push(DoubleValue(c.Value))
	default:
		return Value{}, false, fmt.Errorf("%w: ldc2_w of %s at index %d", classfile.ErrConstantPool, e.Tag(), idx)
	}
	return next()
}

// resolveField resolves the Fieldref at idx against the registry.
func (f *Frame) resolveField(idx uint16, owner string) (*Field, classfile.FieldType, error) {
	ref, err := f.class.Pool.FieldRef(idx)
	if err != nil {
		return nil, classfile.FieldType{}, err
	}
	t, err := classfile.ParseFieldDescriptor(ref.Descriptor)
	if err != nil {
		return nil, classfile.FieldType{}, err
	}
	if owner == "" {
		owner = ref.ClassName
	}
	c, err := f.rt.registry.Class(owner)
	if err != nil {
		return nil, classfile.FieldType{}, err
	}
	fld, err := f.rt.registry.ResolveField(c, ref.Name, ref.Descriptor)
	if err != nil {
		return nil, classfile.FieldType{}, err
	}
	return fld, t, nil
}

func getstatic(f *Frame) (Value, bool, error) {
	fld, _, err := f.resolveField(f.u16(), "")
	if err != nil {
		return Value{}, false, err
	}
	v, err := fld.Get()
	if err != nil {
		return Value{}, false, err
	}
	f.push(v)
	return next()
}

func putstatic(f *Frame) (Value, bool, error) {
	fld, t, err := f.resolveField(f.u16(), "")
	if err != nil {
		return Value{}, false, err
	}
	v, err := f.pop()
	if err != nil {
		return Value{}, false, err
	}
	if !accepts(t, v) {
		return Value{}, false, typeMismatch(t.String(), v)
	}
	fld.Set(v)
	return next()
}

// getfield reads the slot of the field in the receiver's class.
func getfield(f *Frame) (Value, bool, error) {
	idx := f.u16()
	recv, err := f.popKind(KindClass)
	if err != nil {
		return Value{}, false, err
	}
	fld, _, err := f.resolveField(idx, recv.Ref)
	if err != nil {
		return Value{}, false, err
	}
	v, err := fld.Get()
	if err != nil {
		return Value{}, false, err
	}
	f.push(v)
	return next()
}

func putfield(f *Frame) (Value, bool, error) {
	idx := f.u16()
	v, err := f.pop()
	if err != nil {
		return Value{}, false, err
	}
	recv, err := f.popKind(KindClass)
	if err != nil {
		return Value{}, false, err
	}
	fld, t, err := f.resolveField(idx, recv.Ref)
	if err != nil {
		return Value{}, false, err
	}
	if !accepts(t, v) {
		return Value{}, false, typeMismatch(t.String(), v)
	}
	fld.Set(v)
	return next()
}

// invoke pops one value per declared parameter, last parameter first, and
// for instance forms the receiver below them, then runs the target method.
func invoke(instance bool) handler {
	return func(f *Frame) (Value, bool, error) {
		ref, err := f.class.Pool.MethodRef(f.u16())
		if err != nil {
			return Value{}, false, err
		}
		desc, err := classfile.ParseMethodDescriptor(ref.Descriptor)
		if err != nil {
			return Value{}, false, err
		}
		c, err := f.rt.registry.Class(ref.ClassName)
		if err != nil {
			return Value{}, false, err
		}

		n, first := len(desc.Params), 0
		if instance {
			n++
			first = 1
		}
		if len(f.stack) < n {
			return Value{}, false, fmt.Errorf("%w: %s needs %d arguments, stack has %d", ErrStackUnderflow, ref, n, len(f.stack))
		}
		args := make([]Value, n)
		for i := len(desc.Params) - 1; i >= 0; i-- {
			v, _ := f.pop()
			if !accepts(desc.Params[i], v) {
				return Value{}, false, fmt.Errorf("argument %d of %s: %w", i, ref, typeMismatch(desc.Params[i].String(), v))
			}
			args[first+i] = v
		}
		if instance {
			recv, err := f.popRef()
			if err != nil {
				return Value{}, false, fmt.Errorf("receiver of %s: %w", ref, err)
			}
			args[0] = recv
		}

		v, err := f.rt.call(c, ref.Name, ref.Descriptor, args)
		if err != nil {
			return Value{}, false, err
		}
		if v.Kind != KindVoid {
			f.push(v)
		}
		return next()
	}
}

// newObject loads the class and pushes a handle naming it. No storage is
// allocated and no constructor runs.
func newObject(f *Frame) (Value, bool, error) {
	name, err := f.class.Pool.ClassName(f.u16())
	if err != nil {
		return Value{}, false, err
	}
	c, err := f.rt.registry.Class(name)
	if err != nil {
		return Value{}, false, err
	}
	f.push(ClassValue(c.Name))
	return next()
}

func newarray(f *Frame) (Value, bool, error) {
	t := ArrayType(f.u8())
	if !t.Valid() {
		return Value{}, false, fmt.Errorf("%w: newarray element type %d", classfile.ErrClassFormat, t)
	}
	n, err := f.popInt()
	if err != nil {
		return Value{}, false, err
	}
	ref, err := f.newArray(t, n)
	if err != nil {
		return Value{}, false, err
	}
	f.push(ArrayValue(ref))
	return next()
}

func arraylength(f *Frame) (Value, bool, error) {
	v, err := f.popKind(KindArray)
	if err != nil {
		return Value{}, false, err
	}
	arr, err := f.array(v.Array)
	if err != nil {
		return Value{}, false, err
	}
	f.push(IntValue(int32(len(arr))))
	return next()
}

func iaload(f *Frame) (Value, bool, error) {
	i, err := f.popInt()
	if err != nil {
		return Value{}, false, err
	}
	v, err := f.popKind(KindArray)
	if err != nil {
		return Value{}, false, err
	}
	arr, err := f.array(v.Array)
	if err != nil {
		return Value{}, false, err
	}
	if i < 0 || int(i) >= len(arr) {
		return Value{}, false, fmt.Errorf("%w: index %d, length %d", ErrArrayIndex, i, len(arr))
	}
	f.push(arr[i])
	return next()
}

func iastore(f *Frame) (Value, bool, error) {
	x, err := f.popInt()
	if err != nil {
		return Value{}, false, err
	}
	i, err := f.popInt()
	if err != nil {
		return Value{}, false, err
	}
	v, err := f.popKind(KindArray)
	if err != nil {
		return Value{}, false, err
	}
	arr, err := f.array(v.Array)
	if err != nil {
		return Value{}, false, err
	}
	if i < 0 || int(i) >= len(arr) {
		return Value{}, false, fmt.Errorf("%w: index %d, length %d", ErrArrayIndex, i, len(arr))
	}
	arr[i] = IntValue(x)
	return next()
}

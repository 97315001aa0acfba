package vm

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/tinyjvm/pkg/classfile"
	"github.com/daimatz/tinyjvm/pkg/classfile/classfiletest"
)

const pubStatic = classfile.AccPublic | classfile.AccStatic

// newTestRuntime writes classes into an in-memory /cp directory and returns
// a runtime whose class path is that directory.
func newTestRuntime(t *testing.T, classes map[string][]byte, opts ...Option) *Runtime {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range classes {
		require.NoError(t, afero.WriteFile(fs, "/cp/"+name+".class", data, 0o644))
	}
	rt, err := New(append([]Option{WithFs(fs), WithClassPath("/cp")}, opts...)...)
	require.NoError(t, err)
	return rt
}

func layoutClass() []byte {
	b := classfiletest.New("Layout", "java/lang/Object")
	b.Method(pubStatic, "mix", "(IJD)V", 0, 7, []byte{0xB1})
	return b.Bytes()
}

func calcClass() []byte {
	b := classfiletest.New("Calc", "java/lang/Object")
	sub := b.Methodref("Calc", "sub", "(II)I")
	fib := b.Methodref("Calc", "fib", "(I)I")
	widen := b.Methodref("Calc", "widen", "(JI)J")
	ten := b.Long(10)

	b.Method(pubStatic, "sub", "(II)I", 2, 2, []byte{
		0x1A, // iload_0
		0x1B, // iload_1
		0x64, // isub
		0xAC, // ireturn
	})
	b.Method(pubStatic, "run", "()I", 2, 0, []byte{
		0x10, 5, // bipush 5
		0x10, 3, // bipush 3
		0xB8, byte(sub >> 8), byte(sub), // invokestatic sub(II)I
		0xAC, // ireturn
	})
	b.Method(pubStatic, "fib", "(I)I", 3, 1, []byte{
		0x1A,             // 0: iload_0
		0x05,             // 1: iconst_2
		0xA2, 0x00, 0x05, // 2: if_icmpge +5 -> 7
		0x1A,             // 5: iload_0
		0xAC,             // 6: ireturn
		0x1A,             // 7: iload_0
		0x04,             // 8: iconst_1
		0x64,             // 9: isub
		0xB8, byte(fib >> 8), byte(fib), // 10: invokestatic fib(I)I
		0x1A, // 13: iload_0
		0x05, // 14: iconst_2
		0x64, // 15: isub
		0xB8, byte(fib >> 8), byte(fib), // 16: invokestatic fib(I)I
		0x60, // 19: iadd
		0xAC, // 20: ireturn
	})
	b.Method(pubStatic, "widen", "(JI)J", 4, 3, []byte{
		0x1E, // lload_0
		0x1C, // iload_2
		0x85, // i2l
		0x61, // ladd
		0xAD, // lreturn
	})
	b.Method(pubStatic, "callWiden", "()J", 3, 0, []byte{
		0x14, byte(ten >> 8), byte(ten), // ldc2_w 10L
		0x08, // iconst_5
		0xB8, byte(widen >> 8), byte(widen), // invokestatic widen(JI)J
		0xAD, // lreturn
	})
	b.Method(pubStatic, "badArgs", "()I", 2, 0, []byte{
		0x0A, // lconst_1
		0x04, // iconst_1
		0xB8, byte(sub >> 8), byte(sub), // invokestatic sub(II)I
		0xAC, // ireturn
	})
	return b.Bytes()
}

func TestInvokeStatic(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Calc": calcClass()})

	v, err := rt.Invoke("Calc", "run", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(2), v)

	v, err = rt.Invoke("Calc", "sub", "(II)I", IntValue(10), IntValue(4))
	require.NoError(t, err)
	require.Equal(t, IntValue(6), v)

	v, err = rt.Invoke("Calc", "fib", "(I)I", IntValue(10))
	require.NoError(t, err)
	require.Equal(t, IntValue(55), v)

	v, err = rt.Invoke("Calc", "callWiden", "()J")
	require.NoError(t, err)
	require.Equal(t, LongValue(15), v)
}

func TestInvokeArgumentMismatch(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Calc": calcClass()})
	_, err := rt.Invoke("Calc", "badArgs", "()I")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestMethodNotFound(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Calc": calcClass()})
	c, err := rt.Class("Calc")
	require.NoError(t, err)

	_, err = rt.Frame(c, "noSuchMethod", "()V", nil)
	require.ErrorIs(t, err, ErrMethodNotFound)

	_, err = rt.Frame(c, "sub", "(JJ)J", nil)
	require.ErrorIs(t, err, ErrMethodNotFound)

	again, ok := rt.Registry().Lookup("Calc")
	require.True(t, ok)
	require.Same(t, c, again)

	v, err := rt.Invoke("Calc", "run", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(2), v)
}

func TestMissingMethodInsideCode(t *testing.T) {
	b := classfiletest.New("Caller", "java/lang/Object")
	missing := b.Methodref("Caller", "gone", "()V")
	b.Method(pubStatic, "run", "()V", 0, 0, []byte{
		0xB8, byte(missing >> 8), byte(missing), // invokestatic gone()V
		0xB1, // return
	})
	rt := newTestRuntime(t, map[string][]byte{"Caller": b.Bytes()})

	_, err := rt.Invoke("Caller", "run", "()V")
	require.ErrorIs(t, err, ErrMethodNotFound)
	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, "run", ee.Method)
	require.Equal(t, 0, ee.PC)
}

func TestClassNotFound(t *testing.T) {
	b := classfiletest.New("Caller", "java/lang/Object")
	ref := b.Methodref("Nowhere", "run", "()V")
	b.Method(pubStatic, "run", "()V", 0, 0, []byte{
		0xB8, byte(ref >> 8), byte(ref), // invokestatic Nowhere.run()V
		0xB1, // return
	})
	rt := newTestRuntime(t, map[string][]byte{"Caller": b.Bytes()})

	_, err := rt.Invoke("Missing", "run", "()V")
	require.ErrorIs(t, err, ErrClassNotFound)

	_, err = rt.Invoke("Caller", "run", "()V")
	require.ErrorIs(t, err, ErrClassNotFound)
	require.Contains(t, err.Error(), "Nowhere")
}

func counterClass() []byte {
	b := classfiletest.New("Counter", "java/lang/Object")
	b.Field(pubStatic, "count", "I")
	b.Field(pubStatic, "name", "Ljava/lang/String;")
	b.Field(pubStatic, "ratio", "D")
	b.Field(pubStatic, "flag", "Z")
	count := b.Fieldref("Counter", "count", "I")
	name := b.Fieldref("Counter", "name", "Ljava/lang/String;")
	ratio := b.Fieldref("Counter", "ratio", "D")
	flag := b.Fieldref("Counter", "flag", "Z")
	hi := b.String("hi")
	half := b.Double(0.5)

	b.Method(pubStatic, "set", "()V", 1, 0, []byte{
		0x10, 42, // bipush 42
		0xB3, byte(count >> 8), byte(count), // putstatic count
		0xB1, // return
	})
	b.Method(pubStatic, "get", "()I", 1, 0, []byte{
		0xB2, byte(count >> 8), byte(count), // getstatic count
		0xAC, // ireturn
	})
	b.Method(pubStatic, "roundTripName", "()Ljava/lang/String;", 1, 0, []byte{
		0x12, byte(hi), // ldc "hi"
		0xB3, byte(name >> 8), byte(name), // putstatic name
		0xB2, byte(name >> 8), byte(name), // getstatic name
		0xB0, // areturn
	})
	b.Method(pubStatic, "getName", "()Ljava/lang/String;", 1, 0, []byte{
		0xB2, byte(name >> 8), byte(name), // getstatic name
		0xB0, // areturn
	})
	b.Method(pubStatic, "roundTripRatio", "()D", 2, 0, []byte{
		0x14, byte(half >> 8), byte(half), // ldc2_w 0.5
		0xB3, byte(ratio >> 8), byte(ratio), // putstatic ratio
		0xB2, byte(ratio >> 8), byte(ratio), // getstatic ratio
		0xAF, // dreturn
	})
	b.Method(pubStatic, "badStore", "()V", 1, 0, []byte{
		0x0F, // dconst_1
		0xB3, byte(count >> 8), byte(count), // putstatic count
		0xB1, // return
	})
	b.Method(pubStatic, "isFlag", "()I", 3, 0, []byte{
		0xB2, byte(flag >> 8), byte(flag), // getstatic flag
		0x99, 0x00, 0x05, // ifeq +5
		0x04, 0xAC, // iconst_1, ireturn
		0x03, 0xAC, // iconst_0, ireturn
	})
	return b.Bytes()
}

func TestStaticFieldRoundTrip(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Counter": counterClass()})

	v, err := rt.Invoke("Counter", "get", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(0), v, "unset int field reads zero")

	_, err = rt.Invoke("Counter", "set", "()V")
	require.NoError(t, err)
	v, err = rt.Invoke("Counter", "get", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(42), v)

	v, err = rt.Invoke("Counter", "roundTripName", "()Ljava/lang/String;")
	require.NoError(t, err)
	require.Equal(t, StringValue("hi"), v)

	v, err = rt.Invoke("Counter", "roundTripRatio", "()D")
	require.NoError(t, err)
	require.Equal(t, DoubleValue(0.5), v)

	v, err = rt.Invoke("Counter", "isFlag", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(0), v)
}

func TestStaticFieldErrors(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Counter": counterClass()})

	_, err := rt.Invoke("Counter", "getName", "()Ljava/lang/String;")
	require.ErrorIs(t, err, ErrUninitializedField)

	_, err = rt.Invoke("Counter", "badStore", "()V")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRegistryCachesClasses(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Counter": counterClass()})

	first, err := rt.Class("Counter")
	require.NoError(t, err)
	_, err = rt.Invoke("Counter", "set", "()V")
	require.NoError(t, err)

	// The file is gone, so a second load could only succeed from the cache.
	require.NoError(t, rt.fs.Remove("/cp/Counter.class"))

	second, err := rt.Class("Counter")
	require.NoError(t, err)
	require.Same(t, first, second)

	v, err := second.Field("count", "I").Get()
	require.NoError(t, err)
	require.Equal(t, IntValue(42), v)
}

func pointClass() []byte {
	b := classfiletest.New("Point", "java/lang/Object")
	b.Field(classfile.AccPublic, "x", "I")
	point := b.Class("Point")
	x := b.Fieldref("Point", "x", "I")

	b.Method(pubStatic, "run", "()I", 3, 0, []byte{
		0xBB, byte(point >> 8), byte(point), // new Point
		0x59,     // dup
		0x10, 7, // bipush 7
		0xB5, byte(x >> 8), byte(x), // putfield x
		0xB4, byte(x >> 8), byte(x), // getfield x
		0xAC, // ireturn
	})
	b.Method(pubStatic, "shared", "()I", 2, 0, []byte{
		0xBB, byte(point >> 8), byte(point), // new Point
		0x10, 9, // bipush 9
		0xB5, byte(x >> 8), byte(x), // putfield x
		0xBB, byte(point >> 8), byte(point), // new Point
		0xB4, byte(x >> 8), byte(x), // getfield x
		0xAC, // ireturn
	})
	b.Method(pubStatic, "badReceiver", "()V", 2, 0, []byte{
		0x04,     // iconst_1
		0x10, 9, // bipush 9
		0xB5, byte(x >> 8), byte(x), // putfield x
		0xB1, // return
	})
	return b.Bytes()
}

func TestInstanceFields(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Point": pointClass()})

	v, err := rt.Invoke("Point", "run", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(7), v)

	// Every handle of a class addresses the same slot.
	v, err = rt.Invoke("Point", "shared", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(9), v)

	_, err = rt.Invoke("Point", "badReceiver", "()V")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRecursionLimit(t *testing.T) {
	b := classfiletest.New("Loop", "java/lang/Object")
	loop := b.Methodref("Loop", "loop", "()V")
	b.Method(pubStatic, "loop", "()V", 0, 0, []byte{
		0xB8, byte(loop >> 8), byte(loop), // invokestatic loop()V
		0xB1, // return
	})
	b.Method(pubStatic, "ok", "()I", 1, 0, []byte{0x04, 0xAC}) // iconst_1, ireturn
	rt := newTestRuntime(t, map[string][]byte{"Loop": b.Bytes()}, WithMaxDepth(64))

	_, err := rt.Invoke("Loop", "loop", "()V")
	require.ErrorIs(t, err, ErrRecursionLimit)
	var ee *ExecutionError
	require.True(t, errors.As(err, &ee))
	require.Equal(t, "loop", ee.Method)
	require.Equal(t, 0, rt.depth)

	v, err := rt.Invoke("Loop", "ok", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(1), v)
}

func TestNativeDispatch(t *testing.T) {
	natives := NewNativeRegistry()
	natives.Register("Host", "twice", "(I)I", func(_ *Class, args []Value) (Value, error) {
		return IntValue(args[0].Int * 2), nil
	})
	boom := errors.New("boom")
	natives.Register("Host", "fail", "()V", func(*Class, []Value) (Value, error) {
		return Value{}, boom
	})

	b := classfiletest.New("Host", "java/lang/Object")
	b.NativeMethod(pubStatic, "twice", "(I)I")
	b.NativeMethod(pubStatic, "fail", "()V")
	b.NativeMethod(pubStatic, "unbound", "()V")
	twice := b.Methodref("Host", "twice", "(I)I")
	b.Method(pubStatic, "run", "()I", 1, 0, []byte{
		0x10, 21, // bipush 21
		0xB8, byte(twice >> 8), byte(twice), // invokestatic twice(I)I
		0xAC, // ireturn
	})
	rt := newTestRuntime(t, map[string][]byte{"Host": b.Bytes()}, WithNatives(natives))

	v, err := rt.Invoke("Host", "run", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(42), v)

	c, err := rt.Class("Host")
	require.NoError(t, err)
	f, err := rt.Frame(c, "twice", "(I)I", []Value{IntValue(4)})
	require.NoError(t, err)
	require.True(t, f.IsNative())
	v, err = f.Exec()
	require.NoError(t, err)
	require.Equal(t, IntValue(8), v)

	_, err = rt.Invoke("Host", "fail", "()V")
	require.ErrorIs(t, err, boom)

	_, err = rt.Invoke("Host", "unbound", "()V")
	require.ErrorIs(t, err, ErrUnsatisfiedLink)
}

func TestSuperclassResolution(t *testing.T) {
	parent := classfiletest.New("Parent", "java/lang/Object")
	parent.Field(pubStatic, "base", "I")
	parent.Method(pubStatic, "answer", "()I", 1, 0, []byte{0x10, 42, 0xAC}) // bipush 42, ireturn

	child := classfiletest.New("Child", "Parent")
	answer := child.Methodref("Child", "answer", "()I")
	base := child.Fieldref("Child", "base", "I")
	child.Method(pubStatic, "run", "()I", 2, 0, []byte{
		0x04, // iconst_1
		0xB3, byte(base >> 8), byte(base), // putstatic Child.base
		0xB8, byte(answer >> 8), byte(answer), // invokestatic Child.answer()I
		0xB2, byte(base >> 8), byte(base), // getstatic Child.base
		0x60, // iadd
		0xAC, // ireturn
	})
	missing := child.Fieldref("Child", "nothing", "I")
	child.Method(pubStatic, "missing", "()I", 1, 0, []byte{
		0xB2, byte(missing >> 8), byte(missing), // getstatic Child.nothing
		0xAC, // ireturn
	})

	rt := newTestRuntime(t, map[string][]byte{
		"Parent": parent.Bytes(),
		"Child":  child.Bytes(),
	})

	v, err := rt.Invoke("Child", "run", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(43), v)

	p, ok := rt.Registry().Lookup("Parent")
	require.True(t, ok)
	require.True(t, p.Field("base", "I").IsSet())

	_, err = rt.Invoke("Child", "missing", "()I")
	require.ErrorIs(t, err, ErrFieldNotFound)
}

func TestConstructorChainReachesBuiltinRoot(t *testing.T) {
	b := classfiletest.New("Foo", "java/lang/Object")
	foo := b.Class("Foo")
	ctor := b.Methodref("Foo", "<init>", "()V")
	superInit := b.Methodref("java/lang/Object", "<init>", "()V")
	b.Method(classfile.AccPublic, "<init>", "()V", 1, 1, []byte{
		0x2A, // aload_0
		0xB7, byte(superInit >> 8), byte(superInit), // invokespecial Object.<init>
		0xB1, // return
	})
	b.Method(pubStatic, "make", "()I", 2, 0, []byte{
		0xBB, byte(foo >> 8), byte(foo), // new Foo
		0x59, // dup
		0xB7, byte(ctor >> 8), byte(ctor), // invokespecial Foo.<init>
		0x57, // pop
		0x04, // iconst_1
		0xAC, // ireturn
	})
	rt := newTestRuntime(t, map[string][]byte{"Foo": b.Bytes()})

	v, err := rt.Invoke("Foo", "make", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(1), v)

	root, ok := rt.Registry().Lookup(RootClass)
	require.True(t, ok)
	require.Equal(t, "", root.SuperName)
}

func TestLoadFileProbesItsDirectory(t *testing.T) {
	helper := classfiletest.New("Helper", "java/lang/Object")
	helper.Method(pubStatic, "value", "()I", 1, 0, []byte{0x08, 0xAC}) // iconst_5, ireturn

	hello := classfiletest.New("Hello", "java/lang/Object")
	value := hello.Methodref("Helper", "value", "()I")
	hello.Method(pubStatic, "main", MainDescriptor, 1, 1, []byte{
		0xB8, byte(value >> 8), byte(value), // invokestatic Helper.value()I
		0x57, // pop
		0xB1, // return
	})

	rt := newTestRuntime(t, nil)
	require.NoError(t, afero.WriteFile(rt.fs, "/app/Hello.class", hello.Bytes(), 0o644))
	require.NoError(t, afero.WriteFile(rt.fs, "/app/Helper.class", helper.Bytes(), 0o644))

	c, err := rt.LoadFile("/app/Hello.class")
	require.NoError(t, err)
	require.Equal(t, "Hello", c.Name)
	require.Equal(t, "/app", rt.Registry().ClassPath().Entries()[0].String())

	require.NoError(t, rt.RunMain("Hello"))
	_, ok := rt.Registry().Lookup("Helper")
	require.True(t, ok)

	_, err = rt.LoadFile("/app/Missing.class")
	require.Error(t, err)
}

func TestClassNameMismatch(t *testing.T) {
	impl := classfiletest.New("Real", "java/lang/Object")
	rt := newTestRuntime(t, map[string][]byte{
		"Alias": impl.Bytes(),
		"Real":  impl.Bytes(),
	})

	c, err := rt.Class("Alias")
	require.NoError(t, err)
	require.Equal(t, "Real", c.Name)
	_, ok := rt.Registry().Lookup("Alias")
	require.False(t, ok)

	again, err := rt.Class("Real")
	require.NoError(t, err)
	require.Same(t, c, again)

	// The cached class wins over a second file declaring the same name.
	third, err := rt.Class("Alias")
	require.NoError(t, err)
	require.Same(t, c, third)
}

func TestFailedParseLeavesRegistryUnchanged(t *testing.T) {
	good := classfiletest.New("Good", "")
	good.Method(pubStatic, "one", "()I", 1, 0, []byte{0x04, 0xAC})
	broken := classfiletest.New("Broken", "").Bytes()

	rt := newTestRuntime(t, map[string][]byte{
		"Good":   good.Bytes(),
		"Broken": broken[:len(broken)-3],
	})
	_, err := rt.Class("Good")
	require.NoError(t, err)
	n := rt.Registry().Len()

	_, err = rt.Class("Broken")
	require.ErrorIs(t, err, classfile.ErrClassFormat)
	require.Equal(t, n, rt.Registry().Len())
	_, ok := rt.Registry().Lookup("Broken")
	require.False(t, ok)

	v, err := rt.Invoke("Good", "one", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(1), v)
}

func TestLdcClassLoadsIt(t *testing.T) {
	other := classfiletest.New("Other", "")
	caller := classfiletest.New("Main", "")
	cls := caller.Class("Other")
	caller.Method(pubStatic, "run", "()Ljava/lang/Class;", 1, 0, []byte{
		0x12, byte(cls), // ldc Other
		0xB0, // areturn
	})
	rt := newTestRuntime(t, map[string][]byte{"Main": caller.Bytes(), "Other": other.Bytes()})

	v, err := rt.Invoke("Main", "run", "()Ljava/lang/Class;")
	require.NoError(t, err)
	require.Equal(t, ClassValue("Other"), v)
	_, ok := rt.Registry().Lookup("Other")
	require.True(t, ok)
}

func TestArrayHandleDoesNotOutliveFrame(t *testing.T) {
	b := classfiletest.New("Arrays", "")
	mk := b.Methodref("Arrays", "make", "()[I")
	b.Method(pubStatic, "make", "()[I", 1, 0, []byte{
		0x05,       // iconst_2
		0xBC, 0x0A, // newarray int
		0xB0, // areturn
	})
	b.Method(pubStatic, "run", "()I", 1, 0, []byte{
		0xB8, byte(mk >> 8), byte(mk), // invokestatic make()[I
		0xBE, // arraylength
		0xAC, // ireturn
	})
	rt := newTestRuntime(t, map[string][]byte{"Arrays": b.Bytes()})

	v, err := rt.Invoke("Arrays", "make", "()[I")
	require.NoError(t, err)
	require.Equal(t, KindArray, v.Kind)

	_, err = rt.Invoke("Arrays", "run", "()I")
	require.ErrorIs(t, err, ErrArrayIndex)
}

func TestCodeCache(t *testing.T) {
	rt := newTestRuntime(t, map[string][]byte{"Calc": calcClass()}, WithCodeCacheSize(1))

	for i := 0; i < 2; i++ {
		v, err := rt.Invoke("Calc", "sub", "(II)I", IntValue(3), IntValue(1))
		require.NoError(t, err)
		require.Equal(t, IntValue(2), v)
	}
	require.Equal(t, 1, rt.code.Len())
	require.True(t, rt.code.Contains("Calc.sub(II)I"))

	v, err := rt.Invoke("Calc", "run", "()I")
	require.NoError(t, err)
	require.Equal(t, IntValue(2), v)
	require.Equal(t, 1, rt.code.Len())
}

func TestNewValidatesOptions(t *testing.T) {
	_, err := New(WithMaxDepth(0))
	require.Error(t, err)

	_, err = New(WithCodeCacheSize(0))
	require.Error(t, err)

	rt, err := New(nil, WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)
	require.Equal(t, DefaultMaxDepth, rt.maxDepth)
	require.Len(t, rt.Registry().ClassPath().Entries(), 2)
}

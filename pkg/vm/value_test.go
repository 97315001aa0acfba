package vm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daimatz/tinyjvm/pkg/classfile"
	"github.com/daimatz/tinyjvm/pkg/op"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{VoidValue(), "void"},
		{IntValue(-3), "-3"},
		{LongValue(1 << 40), "1099511627776L"},
		{FloatValue(1.5), "1.5f"},
		{DoubleValue(0.25), "0.25"},
		{BoolValue(true), "true"},
		{StringValue("a\"b"), `"a\"b"`},
		{ClassValue("java/lang/Object"), "class java/lang/Object"},
		{ArrayValue(ArrayRef{Index: 2, Elem: ArrayInt}), "array#2"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.v.String())
		})
	}
	require.Equal(t, "Kind(42)", Kind(42).String())
}

func TestValueCategories(t *testing.T) {
	require.True(t, LongValue(1).IsCategory2())
	require.True(t, DoubleValue(1).IsCategory2())
	require.False(t, IntValue(1).IsCategory2())
	require.False(t, FloatValue(1).IsCategory2())

	require.True(t, StringValue("").IsReference())
	require.True(t, ClassValue("X").IsReference())
	require.True(t, ArrayValue(ArrayRef{}).IsReference())
	require.False(t, IntValue(0).IsReference())
	require.False(t, VoidValue().IsReference())
}

func TestArrayType(t *testing.T) {
	for b := 0; b < 16; b++ {
		at := ArrayType(b)
		require.Equal(t, b >= 4 && b <= 11, at.Valid(), "type %d", b)
	}
	require.Equal(t, LongValue(0), ArrayLong.zero())
	require.Equal(t, DoubleValue(0), ArrayDouble.zero())
	require.Equal(t, FloatValue(0), ArrayFloat.zero())
	require.Equal(t, IntValue(0), ArrayBoolean.zero())
}

func TestFieldSlot(t *testing.T) {
	c := newClass(&classfile.Class{
		Name: "Box",
		Fields: []classfile.Member{
			{Name: "n", Descriptor: "I"},
			{Name: "j", Descriptor: "J"},
			{Name: "z", Descriptor: "Z"},
			{Name: "s", Descriptor: "Ljava/lang/String;"},
			{Name: "a", Descriptor: "[I"},
		},
	})

	tests := []struct {
		name, desc string
		want       Value
		err        error
	}{
		{"n", "I", IntValue(0), nil},
		{"j", "J", LongValue(0), nil},
		{"z", "Z", BoolValue(false), nil},
		{"s", "Ljava/lang/String;", Value{}, ErrUninitializedField},
		{"a", "[I", Value{}, ErrUninitializedField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := c.Field(tt.name, tt.desc)
			require.NotNil(t, f)
			require.False(t, f.IsSet())
			v, err := f.Get()
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
		})
	}

	require.Nil(t, c.Field("n", "J"))
	f := c.Field("s", "Ljava/lang/String;")
	f.Set(StringValue("x"))
	require.True(t, f.IsSet())
	v, err := c.Field("s", "Ljava/lang/String;").Get()
	require.NoError(t, err)
	require.Equal(t, StringValue("x"), v)
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		desc string
		v    Value
		want bool
	}{
		{"I", IntValue(1), true},
		{"I", BoolValue(true), true},
		{"I", LongValue(1), false},
		{"Z", IntValue(1), true},
		{"J", LongValue(1), true},
		{"J", IntValue(1), false},
		{"F", FloatValue(1), true},
		{"D", DoubleValue(1), true},
		{"D", FloatValue(1), false},
		{"Ljava/lang/String;", StringValue("s"), true},
		{"Ljava/lang/Object;", ClassValue("Foo"), true},
		{"[I", ArrayValue(ArrayRef{}), true},
		{"Ljava/lang/String;", IntValue(0), false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.desc, tt.v.Kind), func(t *testing.T) {
			ft, err := classfile.ParseFieldDescriptor(tt.desc)
			require.NoError(t, err)
			require.Equal(t, tt.want, accepts(ft, tt.v))
		})
	}
}

func TestExecutionError(t *testing.T) {
	err := &ExecutionError{
		Class:      "Main",
		Method:     "run",
		Descriptor: "()I",
		PC:         4,
		Op:         op.Idiv,
		Err:        fmt.Errorf("%w: / by zero", ErrArithmetic),
	}
	require.ErrorIs(t, err, ErrArithmetic)
	require.Equal(t, "Main.run()I pc=4 idiv: arithmetic exception: / by zero", err.Error())
}

package vm

import (
	"fmt"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBoolean
	KindString
	KindClass
	KindArray
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindInt:     "int",
	KindLong:    "long",
	KindFloat:   "float",
	KindDouble:  "double",
	KindBoolean: "boolean",
	KindString:  "string",
	KindClass:   "class",
	KindArray:   "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// ArrayType is the element type operand of newarray.
type ArrayType uint8

const (
	ArrayBoolean ArrayType = 4
	ArrayChar    ArrayType = 5
	ArrayFloat   ArrayType = 6
	ArrayDouble  ArrayType = 7
	ArrayByte    ArrayType = 8
	ArrayShort   ArrayType = 9
	ArrayInt     ArrayType = 10
	ArrayLong    ArrayType = 11
)

// Valid reports whether t is one of the newarray element types.
func (t ArrayType) Valid() bool { return t >= ArrayBoolean && t <= ArrayLong }

// zero returns the initial element for arrays of this type.
func (t ArrayType) zero() Value {
	switch t {
	case ArrayFloat:
		return FloatValue(0)
	case ArrayDouble:
		return DoubleValue(0)
	case ArrayLong:
		return LongValue(0)
	default:
		return IntValue(0)
	}
}

// ArrayRef is a handle into the array arena of the frame that allocated it.
// The handle is only valid while that frame is executing.
type ArrayRef struct {
	Index int
	Elem  ArrayType
	frame uint64
}

// Value is an operand stack entry, local variable, field value or return
// value. Only the member matching Kind is meaningful.
type Value struct {
	Kind   Kind
	Int    int32
	Long   int64
	Float  float32
	Double float64
	Bool   bool
	// Ref holds the text of a string or the name of a class handle.
	Ref   string
	Array ArrayRef
}

func IntValue(v int32) Value       { return Value{Kind: KindInt, Int: v} }
func LongValue(v int64) Value      { return Value{Kind: KindLong, Long: v} }
func FloatValue(v float32) Value   { return Value{Kind: KindFloat, Float: v} }
func DoubleValue(v float64) Value  { return Value{Kind: KindDouble, Double: v} }
func BoolValue(v bool) Value       { return Value{Kind: KindBoolean, Bool: v} }
func StringValue(s string) Value   { return Value{Kind: KindString, Ref: s} }
func ClassValue(name string) Value { return Value{Kind: KindClass, Ref: name} }
func ArrayValue(a ArrayRef) Value  { return Value{Kind: KindArray, Array: a} }

// VoidValue is the result of a method that returns nothing. It is never
// pushed onto an operand stack.
func VoidValue() Value { return Value{} }

// IsCategory2 reports whether v is a long or double.
func (v Value) IsCategory2() bool { return v.Kind == KindLong || v.Kind == KindDouble }

// IsReference reports whether v is a string, class handle or array handle.
func (v Value) IsReference() bool {
	return v.Kind == KindString || v.Kind == KindClass || v.Kind == KindArray
}

func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindLong:
		return strconv.FormatInt(v.Long, 10) + "L"
	case KindFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32) + "f"
	case KindDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return strconv.Quote(v.Ref)
	case KindClass:
		return "class " + v.Ref
	case KindArray:
		return fmt.Sprintf("array#%d", v.Array.Index)
	}
	return v.Kind.String()
}

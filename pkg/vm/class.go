package vm

import (
	"fmt"

	"github.com/daimatz/tinyjvm/pkg/classfile"
)

// Class is a loaded class. Each declared field owns one value slot shared by
// every access that resolves to it; there is no per-instance storage, so
// getfield and putfield address the same slot as the static forms.
type Class struct {
	*classfile.Class
	fields []*Field
}

func newClass(cf *classfile.Class) *Class {
	c := &Class{Class: cf, fields: make([]*Field, len(cf.Fields))}
	for i := range cf.Fields {
		c.fields[i] = &Field{Member: &cf.Fields[i]}
	}
	return c
}

// Field returns the field declared by c with the given name and descriptor.
// Superclasses are not searched.
func (c *Class) Field(name, descriptor string) *Field {
	for _, f := range c.fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f
		}
	}
	return nil
}

// Field is a declared field and its value slot.
type Field struct {
	*classfile.Member
	value Value
	set   bool
}

// Get returns the stored value. A slot that was never written reads as the
// zero value of a primitive descriptor; reference slots have no null to fall
// back on and fail with ErrUninitializedField.
func (f *Field) Get() (Value, error) {
	if f.set {
		return f.value, nil
	}
	t, err := classfile.ParseFieldDescriptor(f.Descriptor)
	if err != nil {
		return Value{}, err
	}
	if t.IsReference() {
		return Value{}, fmt.Errorf("%w: %s:%s", ErrUninitializedField, f.Name, f.Descriptor)
	}
	return zeroValue(t), nil
}

// Set stores v in the slot.
func (f *Field) Set(v Value) {
	f.value = v
	f.set = true
}

// IsSet reports whether the slot has been written.
func (f *Field) IsSet() bool { return f.set }

func zeroValue(t classfile.FieldType) Value {
	switch t.Base {
	case 'J':
		return LongValue(0)
	case 'F':
		return FloatValue(0)
	case 'D':
		return DoubleValue(0)
	case 'Z':
		return BoolValue(false)
	default:
		return IntValue(0)
	}
}

// accepts reports whether v can be bound to a parameter of type t.
func accepts(t classfile.FieldType, v Value) bool {
	if t.IsReference() {
		return v.IsReference()
	}
	switch t.Base {
	case 'J':
		return v.Kind == KindLong
	case 'F':
		return v.Kind == KindFloat
	case 'D':
		return v.Kind == KindDouble
	case 'Z':
		return v.Kind == KindBoolean || v.Kind == KindInt
	default:
		return v.Kind == KindInt || v.Kind == KindBoolean
	}
}

package classfile

import (
	"fmt"
	"strings"
)

// FieldType is one parsed type from a descriptor.
type FieldType struct {
	// Base is one of B C D F I J S Z, L for class types, or V for void
	// (return position only).
	Base byte
	// ClassName is set when Base is 'L'.
	ClassName string
	// Dims is the array dimension count.
	Dims int
}

// IsArray reports whether the type has at least one dimension.
func (t FieldType) IsArray() bool { return t.Dims > 0 }

// IsReference reports whether values of this type are references.
func (t FieldType) IsReference() bool { return t.Dims > 0 || t.Base == 'L' }

// IsWide reports whether the type takes two local variable slots.
func (t FieldType) IsWide() bool { return t.Dims == 0 && (t.Base == 'J' || t.Base == 'D') }

// IsVoid reports whether the type is the void return type.
func (t FieldType) IsVoid() bool { return t.Dims == 0 && t.Base == 'V' }

func (t FieldType) String() string {
	var b strings.Builder
	for i := 0; i < t.Dims; i++ {
		b.WriteByte('[')
	}
	b.WriteByte(t.Base)
	if t.Base == 'L' {
		b.WriteString(t.ClassName)
		b.WriteByte(';')
	}
	return b.String()
}

// MethodDescriptor is a parsed method descriptor.
type MethodDescriptor struct {
	Params []FieldType
	Return FieldType
}

// Slots returns how many local variable slots the parameters occupy.
func (d MethodDescriptor) Slots() int {
	n := 0
	for _, p := range d.Params {
		n++
		if p.IsWide() {
			n++
		}
	}
	return n
}

// ParseFieldDescriptor parses a single field descriptor such as "I" or
// "[Ljava/lang/String;".
func ParseFieldDescriptor(s string) (FieldType, error) {
	t, n, err := parseFieldType(s, 0)
	if err != nil {
		return FieldType{}, err
	}
	if n != len(s) {
		return FieldType{}, fmt.Errorf("%w: trailing characters in field descriptor %q", ErrClassFormat, s)
	}
	return t, nil
}

// ParseMethodDescriptor parses a descriptor such as "(IJLjava/lang/String;)V".
func ParseMethodDescriptor(s string) (MethodDescriptor, error) {
	if len(s) == 0 || s[0] != '(' {
		return MethodDescriptor{}, fmt.Errorf("%w: method descriptor %q does not start with '('", ErrClassFormat, s)
	}
	var d MethodDescriptor
	i := 1
	for {
		if i >= len(s) {
			return MethodDescriptor{}, fmt.Errorf("%w: method descriptor %q has no ')'", ErrClassFormat, s)
		}
		if s[i] == ')' {
			i++
			break
		}
		t, next, err := parseFieldType(s, i)
		if err != nil {
			return MethodDescriptor{}, err
		}
		d.Params = append(d.Params, t)
		i = next
	}
	if i < len(s) && s[i] == 'V' {
		if i+1 != len(s) {
			return MethodDescriptor{}, fmt.Errorf("%w: trailing characters in method descriptor %q", ErrClassFormat, s)
		}
		d.Return = FieldType{Base: 'V'}
		return d, nil
	}
	ret, next, err := parseFieldType(s, i)
	if err != nil {
		return MethodDescriptor{}, err
	}
	if next != len(s) {
		return MethodDescriptor{}, fmt.Errorf("%w: trailing characters in method descriptor %q", ErrClassFormat, s)
	}
	d.Return = ret
	return d, nil
}

// parseFieldType parses one type starting at s[i] and returns the index
// just past it.
func parseFieldType(s string, i int) (FieldType, int, error) {
	var t FieldType
	for i < len(s) && s[i] == '[' {
		t.Dims++
		i++
	}
	if i >= len(s) {
		return FieldType{}, 0, fmt.Errorf("%w: descriptor %q ends inside a type", ErrClassFormat, s)
	}
	switch c := s[i]; c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		t.Base = c
		return t, i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end < 2 {
			return FieldType{}, 0, fmt.Errorf("%w: unterminated class type in descriptor %q", ErrClassFormat, s)
		}
		t.Base = 'L'
		t.ClassName = s[i+1 : i+end]
		return t, i + end + 1, nil
	default:
		return FieldType{}, 0, fmt.Errorf("%w: invalid type character %q in descriptor %q", ErrClassFormat, c, s)
	}
}

package classfile

import (
	"fmt"
	"math"
)

// ConstantTag identifies the kind of a constant pool entry.
type ConstantTag uint8

// Constant pool tags
const (
	TagInvalid            ConstantTag = 0
	TagUtf8               ConstantTag = 1
	TagInteger            ConstantTag = 3
	TagFloat              ConstantTag = 4
	TagLong               ConstantTag = 5
	TagDouble             ConstantTag = 6
	TagClass              ConstantTag = 7
	TagString             ConstantTag = 8
	TagFieldref           ConstantTag = 9
	TagMethodref          ConstantTag = 10
	TagInterfaceMethodref ConstantTag = 11
	TagNameAndType        ConstantTag = 12
	TagMethodHandle       ConstantTag = 15
	TagMethodType         ConstantTag = 16
	TagDynamic            ConstantTag = 17
	TagInvokeDynamic      ConstantTag = 18
	TagModule             ConstantTag = 19
	TagPackage            ConstantTag = 20
)

var tagNames = map[ConstantTag]string{
	TagInvalid:            "Invalid",
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagInvokeDynamic:      "InvokeDynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

func (t ConstantTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Constant is a constant pool entry. Entries are plain values, so whatever
// Get returns is a copy the caller may keep.
type Constant interface {
	Tag() ConstantTag
}

type ConstantUtf8 struct{ Value string }
type ConstantInteger struct{ Value int32 }
type ConstantFloat struct{ Value float32 }
type ConstantLong struct{ Value int64 }
type ConstantDouble struct{ Value float64 }
type ConstantClass struct{ NameIndex uint16 }
type ConstantString struct{ StringIndex uint16 }

// ConstantRef is a Fieldref, Methodref or InterfaceMethodref.
type ConstantRef struct {
	Kind             ConstantTag
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

// ConstantInvalid fills the slot after a Long or Double, and nothing else.
type ConstantInvalid struct{}

// ConstantOpaque is an entry whose layout is known but whose contents the
// interpreter never uses (method handles, dynamic call sites, modules).
type ConstantOpaque struct {
	Kind ConstantTag
	Data []byte
}

func (ConstantUtf8) Tag() ConstantTag        { return TagUtf8 }
func (ConstantInteger) Tag() ConstantTag     { return TagInteger }
func (ConstantFloat) Tag() ConstantTag       { return TagFloat }
func (ConstantLong) Tag() ConstantTag        { return TagLong }
func (ConstantDouble) Tag() ConstantTag      { return TagDouble }
func (ConstantClass) Tag() ConstantTag       { return TagClass }
func (ConstantString) Tag() ConstantTag      { return TagString }
func (c ConstantRef) Tag() ConstantTag       { return c.Kind }
func (ConstantNameAndType) Tag() ConstantTag { return TagNameAndType }
func (ConstantInvalid) Tag() ConstantTag     { return TagInvalid }
func (c ConstantOpaque) Tag() ConstantTag    { return c.Kind }

// opaqueWidths holds the payload size of the entries kept as ConstantOpaque.
var opaqueWidths = map[ConstantTag]int{
	TagMethodHandle:  3,
	TagMethodType:    2,
	TagDynamic:       4,
	TagInvokeDynamic: 4,
	TagModule:        2,
	TagPackage:       2,
}

// ConstantPool is the 1-based table of a class's symbolic constants.
type ConstantPool struct {
	entries []Constant
}

// NewConstantPool builds a pool from entries; entries[0] becomes index 1.
func NewConstantPool(entries ...Constant) ConstantPool {
	return ConstantPool{entries: entries}
}

// Len returns the number of slots, constant_pool_count-1. Slots taken by the
// upper half of a Long or Double are included.
func (p ConstantPool) Len() int { return len(p.entries) }

// Usable returns the number of slots holding real entries.
func (p ConstantPool) Usable() int {
	n := 0
	for _, e := range p.entries {
		if e.Tag() != TagInvalid {
			n++
		}
	}
	return n
}

// Get returns a copy of the entry at idx.
func (p ConstantPool) Get(idx uint16) (Constant, error) {
	if idx == 0 || int(idx) > len(p.entries) {
		return nil, fmt.Errorf("%w: index %d out of range [1, %d]", ErrConstantPool, idx, len(p.entries))
	}
	e := p.entries[idx-1]
	if e.Tag() == TagInvalid {
		return nil, fmt.Errorf("%w: index %d is the second slot of an 8-byte constant", ErrConstantPool, idx)
	}
	return e, nil
}

// maxResolveDepth bounds Class->Utf8 chains so a cyclic pool cannot loop.
const maxResolveDepth = 8

// Resolve returns the string an entry names, following Class -> Utf8.
func (p ConstantPool) Resolve(idx uint16) (string, error) {
	for depth := 0; depth < maxResolveDepth; depth++ {
		e, err := p.Get(idx)
		if err != nil {
			return "", err
		}
		switch c := e.(type) {
		case ConstantUtf8:
			return c.Value, nil
		case ConstantClass:
			idx = c.NameIndex
		default:
			return "", fmt.Errorf("%w: index %d is %s, not a name", ErrConstantPool, idx, e.Tag())
		}
	}
	return "", fmt.Errorf("%w: name chain at index %d too deep", ErrConstantPool, idx)
}

// Utf8 returns the Utf8 entry at idx.
func (p ConstantPool) Utf8(idx uint16) (string, error) {
	e, err := p.Get(idx)
	if err != nil {
		return "", err
	}
	u, ok := e.(ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("%w: index %d is %s, not Utf8", ErrConstantPool, idx, e.Tag())
	}
	return u.Value, nil
}

// ClassName returns the name referenced by the Class entry at idx.
func (p ConstantPool) ClassName(idx uint16) (string, error) {
	e, err := p.Get(idx)
	if err != nil {
		return "", err
	}
	c, ok := e.(ConstantClass)
	if !ok {
		return "", fmt.Errorf("%w: index %d is %s, not Class", ErrConstantPool, idx, e.Tag())
	}
	return p.Utf8(c.NameIndex)
}

// NameAndType returns the name and descriptor of the NameAndType entry at idx.
func (p ConstantPool) NameAndType(idx uint16) (name, descriptor string, err error) {
	e, err := p.Get(idx)
	if err != nil {
		return "", "", err
	}
	nat, ok := e.(ConstantNameAndType)
	if !ok {
		return "", "", fmt.Errorf("%w: index %d is %s, not NameAndType", ErrConstantPool, idx, e.Tag())
	}
	if name, err = p.Utf8(nat.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = p.Utf8(nat.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef is a resolved Fieldref or Methodref.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

func (r MemberRef) String() string {
	return r.ClassName + "." + r.Name + ":" + r.Descriptor
}

// FieldRef resolves the Fieldref at idx.
func (p ConstantPool) FieldRef(idx uint16) (MemberRef, error) {
	return p.memberRef(idx, TagFieldref)
}

// MethodRef resolves the Methodref or InterfaceMethodref at idx.
func (p ConstantPool) MethodRef(idx uint16) (MemberRef, error) {
	return p.memberRef(idx, TagMethodref, TagInterfaceMethodref)
}

func (p ConstantPool) memberRef(idx uint16, kinds ...ConstantTag) (MemberRef, error) {
	e, err := p.Get(idx)
	if err != nil {
		return MemberRef{}, err
	}
	ref, ok := e.(ConstantRef)
	if !ok || !hasTag(kinds, ref.Kind) {
		return MemberRef{}, fmt.Errorf("%w: index %d is %s, not %s", ErrConstantPool, idx, e.Tag(), kinds[0])
	}
	className, err := p.ClassName(ref.ClassIndex)
	if err != nil {
		return MemberRef{}, fmt.Errorf("resolving %s class: %w", ref.Kind, err)
	}
	name, descriptor, err := p.NameAndType(ref.NameAndTypeIndex)
	if err != nil {
		return MemberRef{}, fmt.Errorf("resolving %s name and type: %w", ref.Kind, err)
	}
	return MemberRef{ClassName: className, Name: name, Descriptor: descriptor}, nil
}

func hasTag(tags []ConstantTag, t ConstantTag) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}

// parseConstantPool reads count-1 slots. A Long or Double fills its own slot
// and forces the next one to ConstantInvalid.
func parseConstantPool(r *Reader, count uint16) (ConstantPool, error) {
	if count == 0 {
		return ConstantPool{}, fmt.Errorf("%w: constant_pool_count is 0", ErrClassFormat)
	}
	entries := make([]Constant, 0, count-1)
	for i := uint16(1); i < count; i++ {
		tag, err := r.U8()
		if err != nil {
			return ConstantPool{}, fmt.Errorf("reading constant pool tag at index %d: %w", i, err)
		}
		c, err := parseConstant(r, ConstantTag(tag))
		if err != nil {
			return ConstantPool{}, fmt.Errorf("reading %s at index %d: %w", ConstantTag(tag), i, err)
		}
		entries = append(entries, c)
		if tag == uint8(TagLong) || tag == uint8(TagDouble) {
			if i+1 >= count {
				return ConstantPool{}, fmt.Errorf("%w: %s at index %d is the last slot", ErrClassFormat, ConstantTag(tag), i)
			}
			entries = append(entries, ConstantInvalid{})
			i++
		}
	}
	return ConstantPool{entries: entries}, nil
}

func parseConstant(r *Reader, tag ConstantTag) (Constant, error) {
	switch tag {
	case TagUtf8:
		b, err := r.BytesU16()
		if err != nil {
			return nil, err
		}
		return ConstantUtf8{Value: string(b)}, nil

	case TagInteger:
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		return ConstantInteger{Value: int32(v)}, nil

	case TagFloat:
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		return ConstantFloat{Value: math.Float32frombits(v)}, nil

	case TagLong:
		v, err := r.U64()
		if err != nil {
			return nil, err
		}
		return ConstantLong{Value: int64(v)}, nil

	case TagDouble:
		v, err := r.U64()
		if err != nil {
			return nil, err
		}
		return ConstantDouble{Value: math.Float64frombits(v)}, nil

	case TagClass:
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		return ConstantClass{NameIndex: idx}, nil

	case TagString:
		idx, err := r.U16()
		if err != nil {
			return nil, err
		}
		return ConstantString{StringIndex: idx}, nil

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		classIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		natIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		return ConstantRef{Kind: tag, ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil

	case TagNameAndType:
		nameIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		descIndex, err := r.U16()
		if err != nil {
			return nil, err
		}
		return ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}, nil
	}

	if width, ok := opaqueWidths[tag]; ok {
		data, err := r.Bytes(width)
		if err != nil {
			return nil, err
		}
		return ConstantOpaque{Kind: tag, Data: data}, nil
	}
	return nil, fmt.Errorf("%w: unknown constant pool tag %d", ErrClassFormat, uint8(tag))
}

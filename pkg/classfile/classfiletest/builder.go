// Package classfiletest assembles class files in memory for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/daimatz/tinyjvm/pkg/classfile"
)

// Builder accumulates a constant pool and member tables and encodes them as
// a class file. Pool entries are deduplicated by value.
type Builder struct {
	MajorVersion uint16
	AccessFlags  classfile.AccessFlags

	pool       bytes.Buffer
	next       uint16
	seen       map[string]uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     []member
	methods    []member
	attrs      []attribute
}

type member struct {
	flags classfile.AccessFlags
	name  uint16
	desc  uint16
	attrs []attribute
}

type attribute struct {
	name uint16
	data []byte
}

// New starts a class named name. An empty super leaves super_class at 0.
func New(name, super string) *Builder {
	b := &Builder{
		MajorVersion: 52,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		next:         1,
		seen:         make(map[string]uint16),
	}
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

func (b *Builder) add(key string, wide bool, payload ...any) uint16 {
	if idx, ok := b.seen[key]; ok {
		return idx
	}
	for _, p := range payload {
		binary.Write(&b.pool, binary.BigEndian, p)
	}
	idx := b.next
	b.seen[key] = idx
	b.next++
	if wide {
		b.next++
	}
	return idx
}

// Utf8 adds a Utf8 entry.
func (b *Builder) Utf8(s string) uint16 {
	return b.add("utf8:"+s, false, uint8(classfile.TagUtf8), uint16(len(s)), []byte(s))
}

// Class adds a Class entry naming name.
func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.add("class:"+name, false, uint8(classfile.TagClass), n)
}

// String adds a String entry.
func (b *Builder) String(s string) uint16 {
	n := b.Utf8(s)
	return b.add("string:"+s, false, uint8(classfile.TagString), n)
}

// Integer adds an Integer entry.
func (b *Builder) Integer(v int32) uint16 {
	return b.add(keyOf("int", uint64(uint32(v))), false, uint8(classfile.TagInteger), v)
}

// Float adds a Float entry.
func (b *Builder) Float(v float32) uint16 {
	bits := math.Float32bits(v)
	return b.add(keyOf("float", uint64(bits)), false, uint8(classfile.TagFloat), bits)
}

// Long adds a Long entry, which takes two slots.
func (b *Builder) Long(v int64) uint16 {
	return b.add(keyOf("long", uint64(v)), true, uint8(classfile.TagLong), v)
}

// Double adds a Double entry, which takes two slots.
func (b *Builder) Double(v float64) uint16 {
	bits := math.Float64bits(v)
	return b.add(keyOf("double", bits), true, uint8(classfile.TagDouble), bits)
}

// NameAndType adds a NameAndType entry.
func (b *Builder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	return b.add("nat:"+name+":"+desc, false, uint8(classfile.TagNameAndType), n, d)
}

// Fieldref adds a Fieldref entry.
func (b *Builder) Fieldref(class, name, desc string) uint16 {
	c, nat := b.Class(class), b.NameAndType(name, desc)
	return b.add("field:"+class+"."+name+":"+desc, false, uint8(classfile.TagFieldref), c, nat)
}

// Methodref adds a Methodref entry.
func (b *Builder) Methodref(class, name, desc string) uint16 {
	c, nat := b.Class(class), b.NameAndType(name, desc)
	return b.add("method:"+class+"."+name+":"+desc, false, uint8(classfile.TagMethodref), c, nat)
}

// Raw appends an arbitrary tagged entry, for malformed-input tests.
func (b *Builder) Raw(tag uint8, payload []byte) uint16 {
	idx := b.next
	b.pool.WriteByte(tag)
	b.pool.Write(payload)
	b.next++
	return idx
}

// Interface declares an implemented interface.
func (b *Builder) Interface(name string) {
	b.interfaces = append(b.interfaces, b.Class(name))
}

// Field declares a field.
func (b *Builder) Field(flags classfile.AccessFlags, name, desc string) {
	b.fields = append(b.fields, member{flags: flags, name: b.Utf8(name), desc: b.Utf8(desc)})
}

// Method declares a method with a Code attribute.
func (b *Builder) Method(flags classfile.AccessFlags, name, desc string, maxStack, maxLocals uint16, code []byte) {
	b.methods = append(b.methods, member{
		flags: flags,
		name:  b.Utf8(name),
		desc:  b.Utf8(desc),
		attrs: []attribute{{name: b.Utf8("Code"), data: CodeAttribute(maxStack, maxLocals, code)}},
	})
}

// NativeMethod declares a method flagged native, without a Code attribute.
func (b *Builder) NativeMethod(flags classfile.AccessFlags, name, desc string) {
	b.methods = append(b.methods, member{
		flags: flags | classfile.AccNative,
		name:  b.Utf8(name),
		desc:  b.Utf8(desc),
	})
}

// Attribute adds a class-level attribute.
func (b *Builder) Attribute(name string, data []byte) {
	b.attrs = append(b.attrs, attribute{name: b.Utf8(name), data: data})
}

// CodeAttribute encodes a Code attribute payload with an empty exception
// table and no nested attributes.
func CodeAttribute(maxStack, maxLocals uint16, code []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, maxStack)
	binary.Write(&buf, binary.BigEndian, maxLocals)
	binary.Write(&buf, binary.BigEndian, uint32(len(code)))
	buf.Write(code)
	binary.Write(&buf, binary.BigEndian, uint16(0))
	binary.Write(&buf, binary.BigEndian, uint16(0))
	return buf.Bytes()
}

// Bytes encodes the class file.
func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.BigEndian, v) }

	w(uint32(classfile.Magic))
	w(uint16(0))
	w(b.MajorVersion)
	w(b.next)
	buf.Write(b.pool.Bytes())
	w(uint16(b.AccessFlags))
	w(b.this)
	w(b.super)
	w(uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		w(i)
	}
	for _, table := range [][]member{b.fields, b.methods} {
		w(uint16(len(table)))
		for _, m := range table {
			w(uint16(m.flags))
			w(m.name)
			w(m.desc)
			writeAttributes(&buf, m.attrs)
		}
	}
	writeAttributes(&buf, b.attrs)
	return buf.Bytes()
}

func writeAttributes(buf *bytes.Buffer, attrs []attribute) {
	binary.Write(buf, binary.BigEndian, uint16(len(attrs)))
	for _, a := range attrs {
		binary.Write(buf, binary.BigEndian, a.name)
		binary.Write(buf, binary.BigEndian, uint32(len(a.data)))
		buf.Write(a.data)
	}
}

func keyOf(kind string, bits uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], bits)
	return kind + ":" + string(b[:])
}

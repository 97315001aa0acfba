package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Magic is the first word of every class file.
const Magic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ParseBytes parses a class file held in memory.
func ParseBytes(data []byte) (*Class, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads a class file from r. The result is only returned once every
// section has been read successfully.
func Parse(src io.Reader) (*Class, error) {
	r := NewReader(src)
	c := &Class{}

	magic, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: invalid magic number 0x%X (expected 0xCAFEBABE)", ErrClassFormat, magic)
	}

	if c.MinorVersion, err = r.U16(); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if c.MajorVersion, err = r.U16(); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}

	cpCount, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	if c.Pool, err = parseConstantPool(r, cpCount); err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}

	flags, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	c.AccessFlags = AccessFlags(flags)

	thisIndex, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if c.Name, err = c.Pool.Resolve(thisIndex); err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}

	superIndex, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}
	if superIndex != 0 {
		if c.SuperName, err = c.Pool.Resolve(superIndex); err != nil {
			return nil, fmt.Errorf("resolving super_class: %w", err)
		}
	}

	if c.Interfaces, err = parseInterfaces(r, c.Pool); err != nil {
		return nil, fmt.Errorf("parsing interfaces: %w", err)
	}
	if c.Fields, err = parseMembers(r, c.Pool); err != nil {
		return nil, fmt.Errorf("parsing fields: %w", err)
	}
	if c.Methods, err = parseMembers(r, c.Pool); err != nil {
		return nil, fmt.Errorf("parsing methods: %w", err)
	}
	if c.Attributes, err = parseAttributes(r, c.Pool); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}
	return c, nil
}

func parseInterfaces(r *Reader, pool ConstantPool) ([]string, error) {
	count, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("reading interfaces count: %w", err)
	}
	names := make([]string, count)
	for i := range names {
		idx, err := r.U16()
		if err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
		if names[i], err = pool.Resolve(idx); err != nil {
			return nil, fmt.Errorf("resolving interface %d: %w", i, err)
		}
	}
	return names, nil
}

// parseMembers reads a field or method table.
func parseMembers(r *Reader, pool ConstantPool) ([]Member, error) {
	count, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("reading count: %w", err)
	}
	members := make([]Member, count)
	for i := range members {
		m := &members[i]
		flags, err := r.U16()
		if err != nil {
			return nil, fmt.Errorf("reading member %d access flags: %w", i, err)
		}
		m.AccessFlags = AccessFlags(flags)

		nameIndex, err := r.U16()
		if err != nil {
			return nil, fmt.Errorf("reading member %d name index: %w", i, err)
		}
		if m.Name, err = pool.Resolve(nameIndex); err != nil {
			return nil, fmt.Errorf("resolving member %d name: %w", i, err)
		}

		descIndex, err := r.U16()
		if err != nil {
			return nil, fmt.Errorf("reading member %d descriptor index: %w", i, err)
		}
		if m.Descriptor, err = pool.Resolve(descIndex); err != nil {
			return nil, fmt.Errorf("resolving member %d descriptor: %w", i, err)
		}

		if m.Attributes, err = parseAttributes(r, pool); err != nil {
			return nil, fmt.Errorf("parsing attributes of %s: %w", m.Name, err)
		}
	}
	return members, nil
}

func parseAttributes(r *Reader, pool ConstantPool) ([]Attribute, error) {
	count, err := r.U16()
	if err != nil {
		return nil, fmt.Errorf("reading attributes count: %w", err)
	}
	attrs := make([]Attribute, count)
	for i := range attrs {
		nameIndex, err := r.U16()
		if err != nil {
			return nil, fmt.Errorf("reading attribute %d name index: %w", i, err)
		}
		if attrs[i].Name, err = pool.Resolve(nameIndex); err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}
		if attrs[i].Data, err = r.BytesU32(); err != nil {
			return nil, fmt.Errorf("reading attribute %s data: %w", attrs[i].Name, err)
		}
	}
	return attrs, nil
}

// codeHeaderSize is max_stack(2) + max_locals(2) + code_length(4).
const codeHeaderSize = 8

// ParseCode decodes the fixed header of a Code attribute payload and slices
// out its bytecode. Anything after the bytecode is ignored.
func ParseCode(data []byte) (*CodeAttribute, error) {
	if len(data) < codeHeaderSize {
		return nil, fmt.Errorf("%w: Code attribute too short: %d bytes", ErrClassFormat, len(data))
	}
	codeLength := binary.BigEndian.Uint32(data[4:8])
	if uint64(len(data)) < codeHeaderSize+uint64(codeLength) {
		return nil, fmt.Errorf("%w: Code attribute data too short for code_length %d", ErrClassFormat, codeLength)
	}
	return &CodeAttribute{
		MaxStack:  binary.BigEndian.Uint16(data[0:2]),
		MaxLocals: binary.BigEndian.Uint16(data[2:4]),
		Code:      data[codeHeaderSize : codeHeaderSize+codeLength],
	}, nil
}

// Code returns the decoded Code attribute of a method.
func (m *Member) Code() (*CodeAttribute, error) {
	attr, ok := m.Attribute("Code")
	if !ok {
		return nil, fmt.Errorf("%w: method %s%s has no Code attribute", ErrClassFormat, m.Name, m.Descriptor)
	}
	return ParseCode(attr.Data)
}

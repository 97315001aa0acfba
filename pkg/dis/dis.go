// Package dis turns method bytecode and whole class files into javap-style
// listings.
package dis

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/daimatz/tinyjvm/pkg/classfile"
	"github.com/daimatz/tinyjvm/pkg/op"
)

// Instruction is one decoded instruction. Branch operands hold absolute
// target offsets rather than the encoded relative ones.
type Instruction struct {
	Offset   int     `json:"offset"`
	Op       op.Code `json:"-"`
	Mnemonic string  `json:"op"`
	Operands []int   `json:"operands,omitempty"`
	Comment  string  `json:"comment,omitempty"`

	// pool marks Operands[0] as a constant pool index.
	pool bool
}

func (i Instruction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d: %s", i.Offset, i.Mnemonic)
	for k, v := range i.Operands {
		if k == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		if k == 0 && i.pool {
			b.WriteByte('#')
		}
		b.WriteString(strconv.Itoa(v))
	}
	if i.Comment != "" {
		b.WriteString(" // ")
		b.WriteString(i.Comment)
	}
	return b.String()
}

// Disassemble decodes code in full. Constant pool operands are described
// from pool; an unresolvable index is reported in the comment rather than
// failing the listing.
func Disassemble(code []byte, pool classfile.ConstantPool) ([]Instruction, error) {
	var out []Instruction
	for pc := 0; pc < len(code); {
		ins, next, err := decode(code, pc, pool)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
		pc = next
	}
	return out, nil
}

// cursor reads operands after an opcode. The first overrun is kept in err
// and later reads return zeros.
type cursor struct {
	code []byte
	pos  int
	err  error
}

func (c *cursor) take(n int) []byte {
	if c.err == nil && c.pos+n > len(c.code) {
		c.err = fmt.Errorf("%w: operands truncated at offset %d", classfile.ErrClassFormat, c.pos)
	}
	if c.err != nil {
		return make([]byte, n)
	}
	b := c.code[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u8() int   { return int(c.take(1)[0]) }
func (c *cursor) i8() int   { return int(int8(c.take(1)[0])) }
func (c *cursor) u16() int  { return int(binary.BigEndian.Uint16(c.take(2))) }
func (c *cursor) i16() int  { return int(int16(binary.BigEndian.Uint16(c.take(2)))) }
func (c *cursor) i32() int  { return int(int32(binary.BigEndian.Uint32(c.take(4)))) }
func (c *cursor) left() int { return len(c.code) - c.pos }

// align skips the padding that puts switch tables on a 4-byte boundary.
func (c *cursor) align() {
	for c.err == nil && c.pos%4 != 0 {
		c.take(1)
	}
}

var arrayTypes = map[int]string{
	4: "boolean", 5: "char", 6: "float", 7: "double",
	8: "byte", 9: "short", 10: "int", 11: "long",
}

func decode(code []byte, pc int, pool classfile.ConstantPool) (Instruction, int, error) {
	c := op.Code(code[pc])
	info, ok := op.Lookup(c)
	if !ok {
		return Instruction{}, 0, fmt.Errorf("%w: unknown opcode 0x%02x at offset %d", classfile.ErrClassFormat, byte(c), pc)
	}
	ins := Instruction{Offset: pc, Op: c, Mnemonic: info.Name}
	r := &cursor{code: code, pos: pc + 1}

	switch c {
	case op.Bipush:
		ins.Operands = []int{r.i8()}
	case op.Sipush:
		ins.Operands = []int{r.i16()}
	case op.Ldc:
		ins.ref(r.u8(), pool)
	case op.LdcW, op.Ldc2W, op.Getstatic, op.Putstatic, op.Getfield, op.Putfield,
		op.Invokevirtual, op.Invokespecial, op.Invokestatic,
		op.New, op.Anewarray, op.Checkcast, op.Instanceof:
		ins.ref(r.u16(), pool)
	case op.Invokeinterface:
		ins.ref(r.u16(), pool)
		ins.Operands = append(ins.Operands, r.u8())
		r.u8()
	case op.Invokedynamic:
		ins.ref(r.u16(), pool)
		r.u16()
	case op.Multianewarray:
		ins.ref(r.u16(), pool)
		ins.Operands = append(ins.Operands, r.u8())
	case op.Iinc:
		ins.Operands = []int{r.u8(), r.i8()}
	case op.Newarray:
		t := r.u8()
		ins.Operands = []int{t}
		ins.Comment = arrayTypes[t]
	case op.Tableswitch:
		r.align()
		def, lo, hi := r.i32(), r.i32(), r.i32()
		if r.err == nil && (hi < lo || (hi-lo+1) > r.left()/4) {
			return Instruction{}, 0, fmt.Errorf("%w: tableswitch at %d has bad range [%d, %d]", classfile.ErrClassFormat, pc, lo, hi)
		}
		ins.Operands = []int{pc + def, lo, hi}
		for k := lo; r.err == nil && k <= hi; k++ {
			ins.Operands = append(ins.Operands, pc+r.i32())
		}
	case op.Lookupswitch:
		r.align()
		def, n := r.i32(), r.i32()
		if r.err == nil && (n < 0 || n > r.left()/8) {
			return Instruction{}, 0, fmt.Errorf("%w: lookupswitch at %d has %d pairs", classfile.ErrClassFormat, pc, n)
		}
		ins.Operands = []int{pc + def, n}
		for k := 0; r.err == nil && k < n; k++ {
			match := r.i32()
			ins.Operands = append(ins.Operands, match, pc+r.i32())
		}
	case op.Wide:
		inner := op.Code(r.u8())
		switch inner {
		case op.Iinc:
			ins.Operands = []int{r.u16(), r.i16()}
		case op.Iload, op.Lload, op.Fload, op.Dload, op.Aload,
			op.Istore, op.Lstore, op.Fstore, op.Dstore, op.Astore, op.Ret:
			ins.Operands = []int{r.u16()}
		default:
			if r.err == nil {
				return Instruction{}, 0, fmt.Errorf("%w: wide cannot modify %s at %d", classfile.ErrClassFormat, inner, pc)
			}
		}
		ins.Mnemonic = "wide " + inner.Name()
	default:
		switch info.Operands {
		case 1:
			ins.Operands = []int{r.u8()}
		case 2:
			ins.Operands = []int{pc + r.i16()}
		case 4:
			ins.Operands = []int{pc + r.i32()}
		}
	}
	if r.err != nil {
		return Instruction{}, 0, r.err
	}
	return ins, r.pos, nil
}

func (i *Instruction) ref(idx int, pool classfile.ConstantPool) {
	i.Operands = append(i.Operands, idx)
	i.pool = true
	i.Comment = Describe(pool, uint16(idx))
}

// Describe renders the constant at idx the way javap comments it.
func Describe(pool classfile.ConstantPool, idx uint16) string {
	e, err := pool.Get(idx)
	if err != nil {
		return "invalid constant #" + strconv.Itoa(int(idx))
	}
	switch c := e.(type) {
	case classfile.ConstantUtf8:
		return "Utf8 " + c.Value
	case classfile.ConstantInteger:
		return "int " + strconv.FormatInt(int64(c.Value), 10)
	case classfile.ConstantFloat:
		return "float " + strconv.FormatFloat(float64(c.Value), 'g', -1, 32) + "f"
	case classfile.ConstantLong:
		return "long " + strconv.FormatInt(c.Value, 10) + "l"
	case classfile.ConstantDouble:
		return "double " + strconv.FormatFloat(c.Value, 'g', -1, 64) + "d"
	case classfile.ConstantString:
		s, err := pool.Utf8(c.StringIndex)
		if err != nil {
			return "String #" + strconv.Itoa(int(c.StringIndex))
		}
		return "String " + s
	case classfile.ConstantClass:
		s, err := pool.Utf8(c.NameIndex)
		if err != nil {
			return "class #" + strconv.Itoa(int(c.NameIndex))
		}
		return "class " + s
	case classfile.ConstantRef:
		var ref classfile.MemberRef
		if c.Kind == classfile.TagFieldref {
			ref, err = pool.FieldRef(idx)
		} else {
			ref, err = pool.MethodRef(idx)
		}
		kind := strings.TrimSuffix(c.Kind.String(), "ref")
		if err != nil {
			return kind + " #" + strconv.Itoa(int(idx))
		}
		return kind + " " + ref.String()
	case classfile.ConstantNameAndType:
		name, desc, err := pool.NameAndType(idx)
		if err != nil {
			return "NameAndType #" + strconv.Itoa(int(idx))
		}
		return "NameAndType " + name + ":" + desc
	}
	return e.Tag().String()
}

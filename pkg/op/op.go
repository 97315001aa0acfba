// Package op enumerates the bytecode instruction set and the static
// metadata of each instruction.
package op

import "fmt"

// Code is a single bytecode instruction byte.
type Code byte

const (
	Nop             Code = 0x00
	AconstNull      Code = 0x01
	IconstM1        Code = 0x02
	Iconst0         Code = 0x03
	Iconst1         Code = 0x04
	Iconst2         Code = 0x05
	Iconst3         Code = 0x06
	Iconst4         Code = 0x07
	Iconst5         Code = 0x08
	Lconst0         Code = 0x09
	Lconst1         Code = 0x0A
	Fconst0         Code = 0x0B
	Fconst1         Code = 0x0C
	Fconst2         Code = 0x0D
	Dconst0         Code = 0x0E
	Dconst1         Code = 0x0F
	Bipush          Code = 0x10
	Sipush          Code = 0x11
	Ldc             Code = 0x12
	LdcW            Code = 0x13
	Ldc2W           Code = 0x14
	Iload           Code = 0x15
	Lload           Code = 0x16
	Fload           Code = 0x17
	Dload           Code = 0x18
	Aload           Code = 0x19
	Iload0          Code = 0x1A
	Iload1          Code = 0x1B
	Iload2          Code = 0x1C
	Iload3          Code = 0x1D
	Lload0          Code = 0x1E
	Lload1          Code = 0x1F
	Lload2          Code = 0x20
	Lload3          Code = 0x21
	Fload0          Code = 0x22
	Fload1          Code = 0x23
	Fload2          Code = 0x24
	Fload3          Code = 0x25
	Dload0          Code = 0x26
	Dload1          Code = 0x27
	Dload2          Code = 0x28
	Dload3          Code = 0x29
	Aload0          Code = 0x2A
	Aload1          Code = 0x2B
	Aload2          Code = 0x2C
	Aload3          Code = 0x2D
	Iaload          Code = 0x2E
	Laload          Code = 0x2F
	Faload          Code = 0x30
	Daload          Code = 0x31
	Aaload          Code = 0x32
	Baload          Code = 0x33
	Caload          Code = 0x34
	Saload          Code = 0x35
	Istore          Code = 0x36
	Lstore          Code = 0x37
	Fstore          Code = 0x38
	Dstore          Code = 0x39
	Astore          Code = 0x3A
	Istore0         Code = 0x3B
	Istore1         Code = 0x3C
	Istore2         Code = 0x3D
	Istore3         Code = 0x3E
	Lstore0         Code = 0x3F
	Lstore1         Code = 0x40
	Lstore2         Code = 0x41
	Lstore3         Code = 0x42
	Fstore0         Code = 0x43
	Fstore1         Code = 0x44
	Fstore2         Code = 0x45
	Fstore3         Code = 0x46
	Dstore0         Code = 0x47
	Dstore1         Code = 0x48
	Dstore2         Code = 0x49
	Dstore3         Code = 0x4A
	Astore0         Code = 0x4B
	Astore1         Code = 0x4C
	Astore2         Code = 0x4D
	Astore3         Code = 0x4E
	Iastore         Code = 0x4F
	Lastore         Code = 0x50
	Fastore         Code = 0x51
	Dastore         Code = 0x52
	Aastore         Code = 0x53
	Bastore         Code = 0x54
	Castore         Code = 0x55
	Sastore         Code = 0x56
	Pop             Code = 0x57
	Pop2            Code = 0x58
	Dup             Code = 0x59
	DupX1           Code = 0x5A
	DupX2           Code = 0x5B
	Dup2            Code = 0x5C
	Dup2X1          Code = 0x5D
	Dup2X2          Code = 0x5E
	Swap            Code = 0x5F
	Iadd            Code = 0x60
	Ladd            Code = 0x61
	Fadd            Code = 0x62
	Dadd            Code = 0x63
	Isub            Code = 0x64
	Lsub            Code = 0x65
	Fsub            Code = 0x66
	Dsub            Code = 0x67
	Imul            Code = 0x68
	Lmul            Code = 0x69
	Fmul            Code = 0x6A
	Dmul            Code = 0x6B
	Idiv            Code = 0x6C
	Ldiv            Code = 0x6D
	Fdiv            Code = 0x6E
	Ddiv            Code = 0x6F
	Irem            Code = 0x70
	Lrem            Code = 0x71
	Frem            Code = 0x72
	Drem            Code = 0x73
	Ineg            Code = 0x74
	Lneg            Code = 0x75
	Fneg            Code = 0x76
	Dneg            Code = 0x77
	Ishl            Code = 0x78
	Lshl            Code = 0x79
	Ishr            Code = 0x7A
	Lshr            Code = 0x7B
	Iushr           Code = 0x7C
	Lushr           Code = 0x7D
	Iand            Code = 0x7E
	Land            Code = 0x7F
	Ior             Code = 0x80
	Lor             Code = 0x81
	Ixor            Code = 0x82
	Lxor            Code = 0x83
	Iinc            Code = 0x84
	I2l             Code = 0x85
	I2f             Code = 0x86
	I2d             Code = 0x87
	L2i             Code = 0x88
	L2f             Code = 0x89
	L2d             Code = 0x8A
	F2i             Code = 0x8B
	F2l             Code = 0x8C
	F2d             Code = 0x8D
	D2i             Code = 0x8E
	D2l             Code = 0x8F
	D2f             Code = 0x90
	I2b             Code = 0x91
	I2c             Code = 0x92
	I2s             Code = 0x93
	Lcmp            Code = 0x94
	Fcmpl           Code = 0x95
	Fcmpg           Code = 0x96
	Dcmpl           Code = 0x97
	Dcmpg           Code = 0x98
	Ifeq            Code = 0x99
	Ifne            Code = 0x9A
	Iflt            Code = 0x9B
	Ifge            Code = 0x9C
	Ifgt            Code = 0x9D
	Ifle            Code = 0x9E
	IfIcmpeq        Code = 0x9F
	IfIcmpne        Code = 0xA0
	IfIcmplt        Code = 0xA1
	IfIcmpge        Code = 0xA2
	IfIcmpgt        Code = 0xA3
	IfIcmple        Code = 0xA4
	IfAcmpeq        Code = 0xA5
	IfAcmpne        Code = 0xA6
	Goto            Code = 0xA7
	Jsr             Code = 0xA8
	Ret             Code = 0xA9
	Tableswitch     Code = 0xAA
	Lookupswitch    Code = 0xAB
	Ireturn         Code = 0xAC
	Lreturn         Code = 0xAD
	Freturn         Code = 0xAE
	Dreturn         Code = 0xAF
	Areturn         Code = 0xB0
	Return          Code = 0xB1
	Getstatic       Code = 0xB2
	Putstatic       Code = 0xB3
	Getfield        Code = 0xB4
	Putfield        Code = 0xB5
	Invokevirtual   Code = 0xB6
	Invokespecial   Code = 0xB7
	Invokestatic    Code = 0xB8
	Invokeinterface Code = 0xB9
	Invokedynamic   Code = 0xBA
	New             Code = 0xBB
	Newarray        Code = 0xBC
	Anewarray       Code = 0xBD
	Arraylength     Code = 0xBE
	Athrow          Code = 0xBF
	Checkcast       Code = 0xC0
	Instanceof      Code = 0xC1
	Monitorenter    Code = 0xC2
	Monitorexit     Code = 0xC3
	Wide            Code = 0xC4
	Multianewarray  Code = 0xC5
	Ifnull          Code = 0xC6
	Ifnonnull       Code = 0xC7
	GotoW           Code = 0xC8
	JsrW            Code = 0xC9
	Breakpoint      Code = 0xCA
	Impdep1         Code = 0xFE
	Impdep2         Code = 0xFF
)

// Variable marks an operand width or stack effect that is not fixed: the
// switch instructions pad to alignment, and invocations depend on the
// method descriptor.
const Variable = -1

// Info is the static metadata of one instruction.
type Info struct {
	Name string
	// Operands is the number of immediate bytes following the opcode.
	Operands int
	// Pops is the minimum number of operand stack values consumed.
	Pops int
	// Pushes is the number of values produced.
	Pushes int
}

var infoTable = [256]*Info{
	Nop:             {"nop", 0, 0, 0},
	AconstNull:      {"aconst_null", 0, 0, 1},
	IconstM1:        {"iconst_m1", 0, 0, 1},
	Iconst0:         {"iconst_0", 0, 0, 1},
	Iconst1:         {"iconst_1", 0, 0, 1},
	Iconst2:         {"iconst_2", 0, 0, 1},
	Iconst3:         {"iconst_3", 0, 0, 1},
	Iconst4:         {"iconst_4", 0, 0, 1},
	Iconst5:         {"iconst_5", 0, 0, 1},
	Lconst0:         {"lconst_0", 0, 0, 1},
	Lconst1:         {"lconst_1", 0, 0, 1},
	Fconst0:         {"fconst_0", 0, 0, 1},
	Fconst1:         {"fconst_1", 0, 0, 1},
	Fconst2:         {"fconst_2", 0, 0, 1},
	Dconst0:         {"dconst_0", 0, 0, 1},
	Dconst1:         {"dconst_1", 0, 0, 1},
	Bipush:          {"bipush", 1, 0, 1},
	Sipush:          {"sipush", 2, 0, 1},
	Ldc:             {"ldc", 1, 0, 1},
	LdcW:            {"ldc_w", 2, 0, 1},
	Ldc2W:           {"ldc2_w", 2, 0, 1},
	Iload:           {"iload", 1, 0, 1},
	Lload:           {"lload", 1, 0, 1},
	Fload:           {"fload", 1, 0, 1},
	Dload:           {"dload", 1, 0, 1},
	Aload:           {"aload", 1, 0, 1},
	Iload0:          {"iload_0", 0, 0, 1},
	Iload1:          {"iload_1", 0, 0, 1},
	Iload2:          {"iload_2", 0, 0, 1},
	Iload3:          {"iload_3", 0, 0, 1},
	Lload0:          {"lload_0", 0, 0, 1},
	Lload1:          {"lload_1", 0, 0, 1},
	Lload2:          {"lload_2", 0, 0, 1},
	Lload3:          {"lload_3", 0, 0, 1},
	Fload0:          {"fload_0", 0, 0, 1},
	Fload1:          {"fload_1", 0, 0, 1},
	Fload2:          {"fload_2", 0, 0, 1},
	Fload3:          {"fload_3", 0, 0, 1},
	Dload0:          {"dload_0", 0, 0, 1},
	Dload1:          {"dload_1", 0, 0, 1},
	Dload2:          {"dload_2", 0, 0, 1},
	Dload3:          {"dload_3", 0, 0, 1},
	Aload0:          {"aload_0", 0, 0, 1},
	Aload1:          {"aload_1", 0, 0, 1},
	Aload2:          {"aload_2", 0, 0, 1},
	Aload3:          {"aload_3", 0, 0, 1},
	Iaload:          {"iaload", 0, 2, 1},
	Laload:          {"laload", 0, 2, 1},
	Faload:          {"faload", 0, 2, 1},
	Daload:          {"daload", 0, 2, 1},
	Aaload:          {"aaload", 0, 2, 1},
	Baload:          {"baload", 0, 2, 1},
	Caload:          {"caload", 0, 2, 1},
	Saload:          {"saload", 0, 2, 1},
	Istore:          {"istore", 1, 1, 0},
	Lstore:          {"lstore", 1, 1, 0},
	Fstore:          {"fstore", 1, 1, 0},
	Dstore:          {"dstore", 1, 1, 0},
	Astore:          {"astore", 1, 1, 0},
	Istore0:         {"istore_0", 0, 1, 0},
	Istore1:         {"istore_1", 0, 1, 0},
	Istore2:         {"istore_2", 0, 1, 0},
	Istore3:         {"istore_3", 0, 1, 0},
	Lstore0:         {"lstore_0", 0, 1, 0},
	Lstore1:         {"lstore_1", 0, 1, 0},
	Lstore2:         {"lstore_2", 0, 1, 0},
	Lstore3:         {"lstore_3", 0, 1, 0},
	Fstore0:         {"fstore_0", 0, 1, 0},
	Fstore1:         {"fstore_1", 0, 1, 0},
	Fstore2:         {"fstore_2", 0, 1, 0},
	Fstore3:         {"fstore_3", 0, 1, 0},
	Dstore0:         {"dstore_0", 0, 1, 0},
	Dstore1:         {"dstore_1", 0, 1, 0},
	Dstore2:         {"dstore_2", 0, 1, 0},
	Dstore3:         {"dstore_3", 0, 1, 0},
	Astore0:         {"astore_0", 0, 1, 0},
	Astore1:         {"astore_1", 0, 1, 0},
	Astore2:         {"astore_2", 0, 1, 0},
	Astore3:         {"astore_3", 0, 1, 0},
	Iastore:         {"iastore", 0, 3, 0},
	Lastore:         {"lastore", 0, 3, 0},
	Fastore:         {"fastore", 0, 3, 0},
	Dastore:         {"dastore", 0, 3, 0},
	Aastore:         {"aastore", 0, 3, 0},
	Bastore:         {"bastore", 0, 3, 0},
	Castore:         {"castore", 0, 3, 0},
	Sastore:         {"sastore", 0, 3, 0},
	Pop:             {"pop", 0, 1, 0},
	Pop2:            {"pop2", 0, 1, 0},
	Dup:             {"dup", 0, 1, 2},
	DupX1:           {"dup_x1", 0, 2, 3},
	DupX2:           {"dup_x2", 0, 2, 3},
	Dup2:            {"dup2", 0, 1, 2},
	Dup2X1:          {"dup2_x1", 0, 2, 3},
	Dup2X2:          {"dup2_x2", 0, 2, 3},
	Swap:            {"swap", 0, 2, 2},
	Iadd:            {"iadd", 0, 2, 1},
	Ladd:            {"ladd", 0, 2, 1},
	Fadd:            {"fadd", 0, 2, 1},
	Dadd:            {"dadd", 0, 2, 1},
	Isub:            {"isub", 0, 2, 1},
	Lsub:            {"lsub", 0, 2, 1},
	Fsub:            {"fsub", 0, 2, 1},
	Dsub:            {"dsub", 0, 2, 1},
	Imul:            {"imul", 0, 2, 1},
	Lmul:            {"lmul", 0, 2, 1},
	Fmul:            {"fmul", 0, 2, 1},
	Dmul:            {"dmul", 0, 2, 1},
	Idiv:            {"idiv", 0, 2, 1},
	Ldiv:            {"ldiv", 0, 2, 1},
	Fdiv:            {"fdiv", 0, 2, 1},
	Ddiv:            {"ddiv", 0, 2, 1},
	Irem:            {"irem", 0, 2, 1},
	Lrem:            {"lrem", 0, 2, 1},
	Frem:            {"frem", 0, 2, 1},
	Drem:            {"drem", 0, 2, 1},
	Ineg:            {"ineg", 0, 1, 1},
	Lneg:            {"lneg", 0, 1, 1},
	Fneg:            {"fneg", 0, 1, 1},
	Dneg:            {"dneg", 0, 1, 1},
	Ishl:            {"ishl", 0, 2, 1},
	Lshl:            {"lshl", 0, 2, 1},
	Ishr:            {"ishr", 0, 2, 1},
	Lshr:            {"lshr", 0, 2, 1},
	Iushr:           {"iushr", 0, 2, 1},
	Lushr:           {"lushr", 0, 2, 1},
	Iand:            {"iand", 0, 2, 1},
	Land:            {"land", 0, 2, 1},
	Ior:             {"ior", 0, 2, 1},
	Lor:             {"lor", 0, 2, 1},
	Ixor:            {"ixor", 0, 2, 1},
	Lxor:            {"lxor", 0, 2, 1},
	Iinc:            {"iinc", 2, 0, 0},
	I2l:             {"i2l", 0, 1, 1},
	I2f:             {"i2f", 0, 1, 1},
	I2d:             {"i2d", 0, 1, 1},
	L2i:             {"l2i", 0, 1, 1},
	L2f:             {"l2f", 0, 1, 1},
	L2d:             {"l2d", 0, 1, 1},
	F2i:             {"f2i", 0, 1, 1},
	F2l:             {"f2l", 0, 1, 1},
	F2d:             {"f2d", 0, 1, 1},
	D2i:             {"d2i", 0, 1, 1},
	D2l:             {"d2l", 0, 1, 1},
	D2f:             {"d2f", 0, 1, 1},
	I2b:             {"i2b", 0, 1, 1},
	I2c:             {"i2c", 0, 1, 1},
	I2s:             {"i2s", 0, 1, 1},
	Lcmp:            {"lcmp", 0, 2, 1},
	Fcmpl:           {"fcmpl", 0, 2, 1},
	Fcmpg:           {"fcmpg", 0, 2, 1},
	Dcmpl:           {"dcmpl", 0, 2, 1},
	Dcmpg:           {"dcmpg", 0, 2, 1},
	Ifeq:            {"ifeq", 2, 1, 0},
	Ifne:            {"ifne", 2, 1, 0},
	Iflt:            {"iflt", 2, 1, 0},
	Ifge:            {"ifge", 2, 1, 0},
	Ifgt:            {"ifgt", 2, 1, 0},
	Ifle:            {"ifle", 2, 1, 0},
	IfIcmpeq:        {"if_icmpeq", 2, 2, 0},
	IfIcmpne:        {"if_icmpne", 2, 2, 0},
	IfIcmplt:        {"if_icmplt", 2, 2, 0},
	IfIcmpge:        {"if_icmpge", 2, 2, 0},
	IfIcmpgt:        {"if_icmpgt", 2, 2, 0},
	IfIcmple:        {"if_icmple", 2, 2, 0},
	IfAcmpeq:        {"if_acmpeq", 2, 2, 0},
	IfAcmpne:        {"if_acmpne", 2, 2, 0},
	Goto:            {"goto", 2, 0, 0},
	Jsr:             {"jsr", 2, 0, 1},
	Ret:             {"ret", 1, 0, 0},
	Tableswitch:     {"tableswitch", Variable, 1, 0},
	Lookupswitch:    {"lookupswitch", Variable, 1, 0},
	Ireturn:         {"ireturn", 0, 1, 0},
	Lreturn:         {"lreturn", 0, 1, 0},
	Freturn:         {"freturn", 0, 1, 0},
	Dreturn:         {"dreturn", 0, 1, 0},
	Areturn:         {"areturn", 0, 1, 0},
	Return:          {"return", 0, 0, 0},
	Getstatic:       {"getstatic", 2, 0, 1},
	Putstatic:       {"putstatic", 2, 1, 0},
	Getfield:        {"getfield", 2, 1, 1},
	Putfield:        {"putfield", 2, 2, 0},
	Invokevirtual:   {"invokevirtual", 2, Variable, Variable},
	Invokespecial:   {"invokespecial", 2, Variable, Variable},
	Invokestatic:    {"invokestatic", 2, Variable, Variable},
	Invokeinterface: {"invokeinterface", 4, Variable, Variable},
	Invokedynamic:   {"invokedynamic", 4, Variable, Variable},
	New:             {"new", 2, 0, 1},
	Newarray:        {"newarray", 1, 1, 1},
	Anewarray:       {"anewarray", 2, 1, 1},
	Arraylength:     {"arraylength", 0, 1, 1},
	Athrow:          {"athrow", 0, 1, 0},
	Checkcast:       {"checkcast", 2, 1, 1},
	Instanceof:      {"instanceof", 2, 1, 1},
	Monitorenter:    {"monitorenter", 0, 1, 0},
	Monitorexit:     {"monitorexit", 0, 1, 0},
	Wide:            {"wide", Variable, 0, 0},
	Multianewarray:  {"multianewarray", 3, Variable, 1},
	Ifnull:          {"ifnull", 2, 1, 0},
	Ifnonnull:       {"ifnonnull", 2, 1, 0},
	GotoW:           {"goto_w", 4, 0, 0},
	JsrW:            {"jsr_w", 4, 0, 1},
	Breakpoint:      {"breakpoint", 0, 0, 0},
	Impdep1:         {"impdep1", 0, 0, 0},
	Impdep2:         {"impdep2", 0, 0, 0},
}

// Lookup returns the metadata of c. ok is false for bytes that are not
// assigned to any instruction.
func Lookup(c Code) (Info, bool) {
	if info := infoTable[c]; info != nil {
		return *info, true
	}
	return Info{}, false
}

// Name returns the mnemonic of c, or a hex placeholder for unassigned bytes.
func (c Code) Name() string {
	if info := infoTable[c]; info != nil {
		return info.Name
	}
	return fmt.Sprintf("unknown_%02x", byte(c))
}

func (c Code) String() string { return c.Name() }

// Width returns the encoded size of the instruction including its operands,
// or Variable.
func (c Code) Width() int {
	info := infoTable[c]
	if info == nil {
		return 1
	}
	if info.Operands == Variable {
		return Variable
	}
	return 1 + info.Operands
}

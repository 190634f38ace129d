package asm

import (
	"fmt"
	"strconv"

	"github.com/rv32toy/rv32toy/pkg/isa"
)

// Instruction is a single parsed source line, ready for pass-2 encoding
// once the label table is available. Implementations compose the
// 32-bit word via bit-field shifts on a uint32 (never string
// concatenation) and only convert to the textual '0'/'1' form at the
// very end of Encode.
type Instruction interface {
	// Line returns the 1-based source line this instruction came from.
	Line() int

	// Encode produces the 32-character '0'/'1' machine word for this
	// instruction. labels maps label name to byte address; pc is the
	// byte address of this instruction.
	Encode(labels map[string]uint32, pc uint32) (string, error)
}

func bits32(word uint32) string {
	return fmt.Sprintf("%032b", word)
}

// InstructionR is the add/sub/slt/srl/or/and family.
type InstructionR struct {
	Lineno       int
	Mnem         string
	Rd, Rs1, Rs2 uint32
}

func (ia InstructionR) Line() int { return ia.Lineno }

func (ia InstructionR) Encode(labels map[string]uint32, pc uint32) (string, error) {
	m := isa.Mnemonics[ia.Mnem]
	word := (m.Funct7&0x7f)<<25 | (ia.Rs2&0x1f)<<20 | (ia.Rs1&0x1f)<<15 |
		(m.Funct3&0x7)<<12 | (ia.Rd&0x1f)<<7 | (m.Opcode & 0x7f)
	return bits32(word), nil
}

// InstructionI is the lw/addi/jalr family. ImmTok is the literal token
// holding the immediate (an integer; labels are not valid I-type
// operands in this ISA).
type InstructionI struct {
	Lineno  int
	Mnem    string
	Rd, Rs1 uint32
	ImmTok  string
}

func (ia InstructionI) Line() int { return ia.Lineno }

func (ia InstructionI) Encode(labels map[string]uint32, pc uint32) (string, error) {
	m := isa.Mnemonics[ia.Mnem]
	value, err := strconv.ParseInt(ia.ImmTok, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q on line %d", ErrBadImmediate, ia.ImmTok, ia.Lineno)
	}
	imm, err := isa.ToField(value, 12)
	if err != nil {
		return "", fmt.Errorf("%w (line %d)", err, ia.Lineno)
	}
	word := imm<<20 | (ia.Rs1&0x1f)<<15 | (m.Funct3&0x7)<<12 | (ia.Rd&0x1f)<<7 | (m.Opcode & 0x7f)
	return bits32(word), nil
}

// InstructionS is the sw instruction.
type InstructionS struct {
	Lineno   int
	Mnem     string
	Rs2, Rs1 uint32
	ImmTok   string
}

func (ia InstructionS) Line() int { return ia.Lineno }

func (ia InstructionS) Encode(labels map[string]uint32, pc uint32) (string, error) {
	m := isa.Mnemonics[ia.Mnem]
	value, err := strconv.ParseInt(ia.ImmTok, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q on line %d", ErrBadImmediate, ia.ImmTok, ia.Lineno)
	}
	imm, err := isa.ToField(value, 12)
	if err != nil {
		return "", fmt.Errorf("%w (line %d)", err, ia.Lineno)
	}
	hi := (imm >> 5) & 0x7f
	lo := imm & 0x1f
	word := hi<<25 | (ia.Rs2&0x1f)<<20 | (ia.Rs1&0x1f)<<15 | (m.Funct3&0x7)<<12 | lo<<7 | (m.Opcode & 0x7f)
	return bits32(word), nil
}

// InstructionB is the beq/bne/blt family. Target is either a label name
// or a decimal integer literal byte offset relative to pc.
type InstructionB struct {
	Lineno   int
	Mnem     string
	Rs1, Rs2 uint32
	Target   string
}

func (ia InstructionB) Line() int { return ia.Lineno }

func (ia InstructionB) Encode(labels map[string]uint32, pc uint32) (string, error) {
	m := isa.Mnemonics[ia.Mnem]
	offset, err := resolveTarget(labels, ia.Target, pc, ia.Lineno)
	if err != nil {
		return "", err
	}
	if offset%2 != 0 {
		return "", fmt.Errorf("%w: offset %d on line %d", ErrMisaligned, offset, ia.Lineno)
	}
	field, err := isa.ToField(offset, 13)
	if err != nil {
		return "", fmt.Errorf("%w (line %d)", err, ia.Lineno)
	}
	imm12 := (field >> 12) & 0x1
	imm11 := (field >> 11) & 0x1
	imm10_5 := (field >> 5) & 0x3f
	imm4_1 := (field >> 1) & 0xf
	word := imm12<<31 | imm10_5<<25 | (ia.Rs2&0x1f)<<20 | (ia.Rs1&0x1f)<<15 |
		(m.Funct3&0x7)<<12 | imm4_1<<8 | imm11<<7 | (m.Opcode & 0x7f)
	return bits32(word), nil
}

// InstructionJ is the jal instruction. Target is either a label name or
// a decimal integer literal byte offset relative to pc.
type InstructionJ struct {
	Lineno int
	Rd     uint32
	Target string
}

func (ia InstructionJ) Line() int { return ia.Lineno }

func (ia InstructionJ) Encode(labels map[string]uint32, pc uint32) (string, error) {
	m := isa.Mnemonics["jal"]
	offset, err := resolveTarget(labels, ia.Target, pc, ia.Lineno)
	if err != nil {
		return "", err
	}
	if offset%2 != 0 {
		return "", fmt.Errorf("%w: offset %d on line %d", ErrMisaligned, offset, ia.Lineno)
	}
	field, err := isa.ToField(offset>>1, 20)
	if err != nil {
		return "", fmt.Errorf("%w (line %d)", err, ia.Lineno)
	}
	// This split-and-reassemble at the labeled imm[20]/imm[10:1]/imm[11]/
	// imm[19:12] boundaries reconstructs field unchanged (each slice is
	// OR'd back at the bit position it was extracted from); the word's
	// top 20 bits end up holding offset>>1 directly, MSB-first. pkg/vm's
	// decodeJ relies on exactly this when reading it back.
	bit20 := (field >> 19) & 0x1
	bits10_1 := (field >> 9) & 0x3ff
	bit11 := (field >> 8) & 0x1
	bits19_12 := field & 0xff
	immField := bit20<<19 | bits10_1<<9 | bit11<<8 | bits19_12
	word := immField<<12 | (ia.Rd&0x1f)<<7 | (m.Opcode & 0x7f)
	return bits32(word), nil
}

// resolveTarget resolves a branch/jal target token to a byte offset
// relative to pc: a label is looked up in labels, anything else is
// parsed as a decimal integer literal offset.
func resolveTarget(labels map[string]uint32, target string, pc uint32, lineno int) (int64, error) {
	if addr, ok := labels[target]; ok {
		return int64(addr) - int64(pc), nil
	}
	value, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q on line %d", ErrUndefinedLabel, target, lineno)
	}
	return value, nil
}

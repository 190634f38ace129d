// Package isa is the shared encoding contract consumed by both the
// assembler (pkg/asm) and the simulator (pkg/vm). It is read-only at
// process lifetime: mnemonic/opcode/register tables and the bit-width
// helpers used to build and interpret immediates.
//
// Instruction format
//
// Every instruction is a 32-bit word in one of five formats:
//
//	R: funct7[6:0] rs2[4:0] rs1[4:0] funct3[2:0] rd[4:0] opcode[6:0]
//	I: imm[11:0]            rs1[4:0] funct3[2:0] rd[4:0] opcode[6:0]
//	S: imm[11:5] rs2[4:0]   rs1[4:0] funct3[2:0] imm[4:0] opcode[6:0]
//	B: imm[12|10:5] rs2[4:0] rs1[4:0] funct3[2:0] imm[4:1|11] opcode[6:0]
//	J: imm[20:1] rd[4:0] opcode[6:0]
//
// The J immediate field holds offset>>1 in plain bit order, MSB-first;
// the RISC-V imm[20|10:1|11|19:12] bit scramble is not applied.
//
// Textual machine code is a 32-character string of '0'/'1' with the
// leftmost character being bit 31 (MSB-first).
package isa

import (
	"errors"
	"fmt"
)

// Format identifies one of the five instruction encodings.
type Format uint8

// The supported instruction formats.
const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatJ
)

func (f Format) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatI:
		return "I"
	case FormatS:
		return "S"
	case FormatB:
		return "B"
	case FormatJ:
		return "J"
	default:
		return "?"
	}
}

// Mnemonic describes a single supported instruction: its format, its
// 7-bit opcode, its 3-bit funct3 (unused by J), and its 7-bit funct7
// (only meaningful for R-format).
type Mnemonic struct {
	Format Format
	Opcode uint32
	Funct3 uint32
	Funct7 uint32
}

// Mnemonics maps every supported mnemonic to its encoding description.
var Mnemonics = map[string]Mnemonic{
	"add":  {Format: FormatR, Opcode: 0b0110011, Funct3: 0b000, Funct7: 0b0000000},
	"sub":  {Format: FormatR, Opcode: 0b0110011, Funct3: 0b000, Funct7: 0b0100000},
	"slt":  {Format: FormatR, Opcode: 0b0110011, Funct3: 0b010, Funct7: 0b0000000},
	"srl":  {Format: FormatR, Opcode: 0b0110011, Funct3: 0b101, Funct7: 0b0000000},
	"or":   {Format: FormatR, Opcode: 0b0110011, Funct3: 0b110, Funct7: 0b0000000},
	"and":  {Format: FormatR, Opcode: 0b0110011, Funct3: 0b111, Funct7: 0b0000000},
	"lw":   {Format: FormatI, Opcode: 0b0000011, Funct3: 0b010},
	"addi": {Format: FormatI, Opcode: 0b0010011, Funct3: 0b000},
	"jalr": {Format: FormatI, Opcode: 0b1100111, Funct3: 0b000},
	"sw":   {Format: FormatS, Opcode: 0b0100011, Funct3: 0b010},
	"beq":  {Format: FormatB, Opcode: 0b1100011, Funct3: 0b000},
	"bne":  {Format: FormatB, Opcode: 0b1100011, Funct3: 0b001},
	"blt":  {Format: FormatB, Opcode: 0b1100011, Funct3: 0b100},
	"jal":  {Format: FormatJ, Opcode: 0b1101111},
}

// OpcodeFormats maps a decoded 7-bit opcode to the format used to
// interpret the remaining bits of the instruction. OpcodeBranch covers
// beq/bne/blt, which share an opcode and are disambiguated by funct3.
var OpcodeFormats = map[uint32]Format{
	0b0110011: FormatR, // add, sub, slt, srl, or, and
	0b0000011: FormatI, // lw
	0b0010011: FormatI, // addi
	0b1100111: FormatI, // jalr
	0b0100011: FormatS, // sw
	0b1100011: FormatB, // beq, bne, blt
	0b1101111: FormatJ, // jal
}

// The following named opcodes let the simulator's executor dispatch
// within a format (I holds three distinct mnemonics; B holds three
// distinguished only by funct3) without re-deriving the value from the
// Mnemonics table on every step.
const (
	OpcodeRType  uint32 = 0b0110011
	OpcodeLoad   uint32 = 0b0000011
	OpcodeImm    uint32 = 0b0010011
	OpcodeJALR   uint32 = 0b1100111
	OpcodeStore  uint32 = 0b0100011
	OpcodeBranch uint32 = 0b1100011
	OpcodeJAL    uint32 = 0b1101111
)

// The following funct3 values distinguish the three branch mnemonics,
// which share OpcodeBranch.
const (
	Funct3BEQ uint32 = 0b000
	Funct3BNE uint32 = 0b001
	Funct3BLT uint32 = 0b100
)

// Registers maps every ABI register alias to its architectural index
// 0..31. fp and s0 are the same register; every other alias names a
// distinct index.
var Registers = map[string]uint32{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

// NumRegisters is the size of the architectural register file.
const NumRegisters = 32

// DataMemoryWords is the number of 32-bit words in data memory.
const DataMemoryWords = 32

// DataMemoryBase is the base address printed by the simulator's memory
// dump, regardless of the (word-indexed) addresses actually used by
// executing code.
const DataMemoryBase = 0x00010000

// FitsSigned reports whether value fits in a two's-complement field of
// the given bit width.
func FitsSigned(value int64, bits int) bool {
	if bits < 1 || bits > 64 {
		panic("isa: bits out of range")
	}
	lo := -(int64(1) << (bits - 1))
	hi := (int64(1) << (bits - 1)) - 1
	return value >= lo && value <= hi
}

// ToField truncates value into a bits-wide two's-complement bit field
// held in the low bits of the returned uint32. It returns an error if
// value does not fit in that width.
func ToField(value int64, bits int) (uint32, error) {
	if !FitsSigned(value, bits) {
		return 0, fmt.Errorf("%w: value %d does not fit in %d bits", ErrImmediateRange, value, bits)
	}
	mask := uint32(1)<<uint(bits) - 1
	return uint32(value) & mask, nil
}

// SignExtend sign-extends the low `bits` bits of value (a two's
// complement field of that width) to a full 32-bit signed integer.
func SignExtend(value uint32, bits int) int32 {
	if bits <= 0 || bits >= 32 {
		return int32(value)
	}
	shift := uint(32 - bits)
	return int32(value<<shift) >> shift
}

// ErrImmediateRange indicates an immediate does not fit in its field.
var ErrImmediateRange = errors.New("isa: immediate out of range")

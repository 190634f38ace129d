package asm

import (
	"fmt"

	"github.com/rv32toy/rv32toy/pkg/isa"
)

// ParseLine builds the Instruction described by tokens (already split
// by Tokenize, label already stripped by the caller). tokens[0] is the
// mnemonic. lineno is used only to annotate errors.
func ParseLine(tokens []string, lineno int) (Instruction, error) {
	mnem := tokens[0]
	m, ok := isa.Mnemonics[mnem]
	if !ok {
		return nil, fmt.Errorf("%w: %q on line %d", ErrUnknownMnemonic, mnem, lineno)
	}
	switch m.Format {
	case isa.FormatR:
		return parseR(mnem, tokens, lineno)
	case isa.FormatI:
		return parseI(mnem, tokens, lineno)
	case isa.FormatS:
		return parseS(mnem, tokens, lineno)
	case isa.FormatB:
		return parseB(mnem, tokens, lineno)
	case isa.FormatJ:
		return parseJ(mnem, tokens, lineno)
	default:
		return nil, fmt.Errorf("%w: %q on line %d", ErrUnknownMnemonic, mnem, lineno)
	}
}

func register(tok string, lineno int) (uint32, error) {
	idx, ok := isa.Registers[tok]
	if !ok {
		return 0, fmt.Errorf("%w: %q on line %d", ErrUnknownRegister, tok, lineno)
	}
	return idx, nil
}

func requireTokens(tokens []string, n int, lineno int) error {
	if len(tokens) < n {
		return fmt.Errorf("%w: %q needs %d operands, line %d", ErrMissingOperand, tokens[0], n-1, lineno)
	}
	return nil
}

// parseR handles "mnem rd, rs1, rs2".
func parseR(mnem string, tokens []string, lineno int) (Instruction, error) {
	if err := requireTokens(tokens, 4, lineno); err != nil {
		return nil, err
	}
	rd, err := register(tokens[1], lineno)
	if err != nil {
		return nil, err
	}
	rs1, err := register(tokens[2], lineno)
	if err != nil {
		return nil, err
	}
	rs2, err := register(tokens[3], lineno)
	if err != nil {
		return nil, err
	}
	return InstructionR{Lineno: lineno, Mnem: mnem, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
}

// parseI handles "lw rd, offset(base)" and "addi/jalr rd, rs1, imm".
// Both tokenize to exactly 4 tokens with the same token order
// [mnem, rd, X, Y]; the only difference is which operand is the
// register and which is the immediate, and lw's order (offset then
// base) is what the tokenizer naturally produces for `off(base)`.
func parseI(mnem string, tokens []string, lineno int) (Instruction, error) {
	if err := requireTokens(tokens, 4, lineno); err != nil {
		return nil, err
	}
	rd, err := register(tokens[1], lineno)
	if err != nil {
		return nil, err
	}
	if mnem == "lw" {
		base, err := register(tokens[3], lineno)
		if err != nil {
			return nil, err
		}
		return InstructionI{Lineno: lineno, Mnem: mnem, Rd: rd, Rs1: base, ImmTok: tokens[2]}, nil
	}
	rs1, err := register(tokens[2], lineno)
	if err != nil {
		return nil, err
	}
	return InstructionI{Lineno: lineno, Mnem: mnem, Rd: rd, Rs1: rs1, ImmTok: tokens[3]}, nil
}

// parseS handles "sw rs2, offset(base)".
func parseS(mnem string, tokens []string, lineno int) (Instruction, error) {
	if err := requireTokens(tokens, 4, lineno); err != nil {
		return nil, err
	}
	rs2, err := register(tokens[1], lineno)
	if err != nil {
		return nil, err
	}
	base, err := register(tokens[3], lineno)
	if err != nil {
		return nil, err
	}
	return InstructionS{Lineno: lineno, Mnem: mnem, Rs2: rs2, Rs1: base, ImmTok: tokens[2]}, nil
}

// parseB handles "mnem rs1, rs2, target".
func parseB(mnem string, tokens []string, lineno int) (Instruction, error) {
	if err := requireTokens(tokens, 4, lineno); err != nil {
		return nil, err
	}
	rs1, err := register(tokens[1], lineno)
	if err != nil {
		return nil, err
	}
	rs2, err := register(tokens[2], lineno)
	if err != nil {
		return nil, err
	}
	return InstructionB{Lineno: lineno, Mnem: mnem, Rs1: rs1, Rs2: rs2, Target: tokens[3]}, nil
}

// parseJ handles "jal rd, target".
func parseJ(mnem string, tokens []string, lineno int) (Instruction, error) {
	if err := requireTokens(tokens, 3, lineno); err != nil {
		return nil, err
	}
	rd, err := register(tokens[1], lineno)
	if err != nil {
		return nil, err
	}
	return InstructionJ{Lineno: lineno, Rd: rd, Target: tokens[2]}, nil
}

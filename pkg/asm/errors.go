package asm

import "errors"

// The following errors may be produced while assembling a line. They
// are wrapped with %w together with line context before being surfaced
// to the caller.
var (
	// ErrUnknownMnemonic indicates the first token of a line is not one
	// of the fourteen supported mnemonics.
	ErrUnknownMnemonic = errors.New("asm: unknown mnemonic")

	// ErrUnknownRegister indicates an operand naming a register does not
	// match any ABI alias.
	ErrUnknownRegister = errors.New("asm: unknown register")

	// ErrMissingOperand indicates a line has fewer tokens than its
	// mnemonic requires.
	ErrMissingOperand = errors.New("asm: missing operand")

	// ErrUndefinedLabel indicates a branch or jal target names a label
	// that was never defined in pass 1.
	ErrUndefinedLabel = errors.New("asm: undefined label")

	// ErrMisaligned indicates a branch or jal offset is odd.
	ErrMisaligned = errors.New("asm: branch/jump offset is not even")

	// ErrBadImmediate indicates an operand that should be a decimal
	// integer literal could not be parsed as one.
	ErrBadImmediate = errors.New("asm: malformed immediate")

	// ErrIO indicates the source reader failed; this is fatal, unlike
	// the per-line errors above.
	ErrIO = errors.New("asm: i/o error reading source")
)

// Package vm is the simulator half of the toolchain: it loads the
// textual machine code produced by pkg/asm, fetches and decodes one
// 32-bit word per cycle, executes it against a register file and a
// small data memory, and records a per-cycle architectural trace.
//
// The VM is untimed and purely functional: there is no pipeline, no
// cache, and no notion of wall-clock cycles beyond "one retired
// instruction per Step". See pkg/isa for the shared encoding contract
// this package decodes against.
package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rv32toy/rv32toy/pkg/isa"
)

// VM is a single simulator instance. It is not goroutine safe; a
// single goroutine should drive Step/Run for the lifetime of a run.
type VM struct {
	Registers [isa.NumRegisters]uint32
	Memory    [isa.DataMemoryWords]uint32
	Program   []string // instruction memory, one 32-char '0'/'1' word per slot
	PC        uint32
	Trace     []string // one line per retired instruction, in cycle order
}

// The following errors may be returned while loading, decoding, or
// stepping the VM.
var (
	// ErrMalformedWord indicates a machine-code line is not exactly 32
	// characters of '0'/'1'.
	ErrMalformedWord = errors.New("vm: malformed instruction word")

	// ErrHalted is returned by Step once the VM has stopped, either by
	// retiring the virtual-halt sentinel or by the program counter
	// falling outside instruction memory. Run treats it as the normal,
	// non-erroneous end of execution.
	ErrHalted = errors.New("vm: halted")
)

// LoadProgram reads machine code from r, one non-empty line per
// instruction, and returns a freshly initialized VM ready to run it.
// Blank lines are ignored, matching the assembler's own handling of
// label-only lines producing no output.
func LoadProgram(r io.Reader) (*VM, error) {
	machine := new(VM)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !isInstructionWord(line) {
			return nil, fmt.Errorf("%w: %q", ErrMalformedWord, line)
		}
		machine.Program = append(machine.Program, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return machine, nil
}

func isInstructionWord(s string) bool {
	if len(s) != 32 {
		return false
	}
	return strings.Trim(s, "01") == ""
}

// Decoded is the tagged-variant result of decoding one instruction
// word: the fields relevant to its format, with the immediate already
// sign-extended to 32 bits. Recognized is false for an opcode not in
// isa.OpcodeFormats; per spec, such words execute as no-ops.
type Decoded struct {
	Format     isa.Format
	Opcode     uint32
	Funct3     uint32
	Funct7     uint32
	Rd         uint32
	Rs1        uint32
	Rs2        uint32
	Imm        int32
	Recognized bool
}

// Decode extracts the fields of a single 32-character '0'/'1'
// instruction word, selecting the format from the opcode (the final 7
// characters) exactly as pkg/asm's per-format Encode methods produced
// them.
func Decode(word string) (Decoded, error) {
	if !isInstructionWord(word) {
		return Decoded{}, fmt.Errorf("%w: %q", ErrMalformedWord, word)
	}
	opcode, err := bitsTo(word[25:32])
	if err != nil {
		return Decoded{}, err
	}
	format, ok := isa.OpcodeFormats[opcode]
	if !ok {
		return Decoded{Opcode: opcode}, nil // unrecognized: executes as a no-op
	}
	switch format {
	case isa.FormatR:
		return decodeR(word, opcode), nil
	case isa.FormatI:
		return decodeI(word, opcode), nil
	case isa.FormatS:
		return decodeS(word, opcode), nil
	case isa.FormatB:
		return decodeB(word, opcode), nil
	case isa.FormatJ:
		return decodeJ(word, opcode), nil
	default:
		return Decoded{Opcode: opcode}, nil
	}
}

func bitsTo(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 2, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedWord, s)
	}
	return uint32(v), nil
}

// decodeR extracts funct7[0:7] rs2[7:12] rs1[12:17] funct3[17:20] rd[20:25].
func decodeR(word string, opcode uint32) Decoded {
	funct7, _ := bitsTo(word[0:7])
	rs2, _ := bitsTo(word[7:12])
	rs1, _ := bitsTo(word[12:17])
	funct3, _ := bitsTo(word[17:20])
	rd, _ := bitsTo(word[20:25])
	return Decoded{
		Format: isa.FormatR, Opcode: opcode, Funct3: funct3, Funct7: funct7,
		Rd: rd, Rs1: rs1, Rs2: rs2, Recognized: true,
	}
}

// decodeI extracts imm[0:12] rs1[12:17] funct3[17:20] rd[20:25].
func decodeI(word string, opcode uint32) Decoded {
	imm12, _ := bitsTo(word[0:12])
	rs1, _ := bitsTo(word[12:17])
	funct3, _ := bitsTo(word[17:20])
	rd, _ := bitsTo(word[20:25])
	return Decoded{
		Format: isa.FormatI, Opcode: opcode, Funct3: funct3,
		Rd: rd, Rs1: rs1, Imm: isa.SignExtend(imm12, 12), Recognized: true,
	}
}

// decodeS extracts imm[11:5][0:7] rs2[7:12] rs1[12:17] funct3[17:20] imm[4:0][20:25].
func decodeS(word string, opcode uint32) Decoded {
	hi, _ := bitsTo(word[0:7])
	rs2, _ := bitsTo(word[7:12])
	rs1, _ := bitsTo(word[12:17])
	funct3, _ := bitsTo(word[17:20])
	lo, _ := bitsTo(word[20:25])
	imm := hi<<5 | lo
	return Decoded{
		Format: isa.FormatS, Opcode: opcode, Funct3: funct3,
		Rs1: rs1, Rs2: rs2, Imm: isa.SignExtend(imm, 12), Recognized: true,
	}
}

// decodeB extracts the scattered branch immediate: imm[12][0:1]
// imm[10:5][1:7] rs2[7:12] rs1[12:17] funct3[17:20] imm[4:1][20:24]
// imm[11][24:25], then reassembles the 13-bit field in natural bit
// order (imm[12], imm[11], imm[10:5], imm[4:1], 0) before sign
// extension.
func decodeB(word string, opcode uint32) Decoded {
	imm12, _ := bitsTo(word[0:1])
	imm10_5, _ := bitsTo(word[1:7])
	rs2, _ := bitsTo(word[7:12])
	rs1, _ := bitsTo(word[12:17])
	funct3, _ := bitsTo(word[17:20])
	imm4_1, _ := bitsTo(word[20:24])
	imm11, _ := bitsTo(word[24:25])
	field := imm12<<12 | imm11<<11 | imm10_5<<5 | imm4_1<<1
	return Decoded{
		Format: isa.FormatB, Opcode: opcode, Funct3: funct3,
		Rs1: rs1, Rs2: rs2, Imm: isa.SignExtend(field, 13), Recognized: true,
	}
}

// decodeJ reads the top 20 bits of the word directly as the encoded
// offset>>1 field (pkg/asm's InstructionJ.Encode writes exactly these
// 20 bits there, unpermuted — see the comment on that method), sign
// extends over 20 bits, and doubles to recover the byte offset.
func decodeJ(word string, opcode uint32) Decoded {
	field, _ := bitsTo(word[0:20])
	rd, _ := bitsTo(word[20:25])
	offset := isa.SignExtend(field, 20) * 2
	return Decoded{Format: isa.FormatJ, Opcode: opcode, Rd: rd, Imm: offset, Recognized: true}
}

// isVirtualHalt reports whether d is the canonical beq x0, x0, 0
// sentinel, checked before normal dispatch so the halt instruction
// never performs a self-branch.
func isVirtualHalt(d Decoded) bool {
	return d.Recognized && d.Format == isa.FormatB && d.Funct3 == isa.Funct3BEQ &&
		d.Rs1 == 0 && d.Rs2 == 0 && d.Imm == 0
}

// Step runs exactly one cycle: fetch, decode, halt check, execute,
// retire. It returns ErrHalted once the VM has stopped: either the
// virtual-halt sentinel retired (a final trace line is recorded first)
// or the program counter fell outside instruction memory (silent, no
// trace line, per spec). Any other non-nil error is a malformed
// instruction word.
func (vm *VM) Step() error {
	idx := vm.PC / 4
	if idx >= uint32(len(vm.Program)) {
		return ErrHalted
	}
	d, err := Decode(vm.Program[idx])
	if err != nil {
		return err
	}
	if isVirtualHalt(d) {
		vm.PC += 4
		vm.Registers[0] = 0
		vm.recordTrace()
		return ErrHalted
	}
	vm.PC = vm.execute(d)
	vm.Registers[0] = 0
	vm.recordTrace()
	return nil
}

// Run steps the VM until it halts, swallowing ErrHalted as the
// expected terminal state and propagating anything else.
func (vm *VM) Run() error {
	for {
		err := vm.Step()
		if err == nil {
			continue
		}
		if errors.Is(err, ErrHalted) {
			return nil
		}
		return err
	}
}

// execute applies one decoded instruction's effects and returns the
// next program counter. Registers[0] is normalized to 0 by the caller
// immediately afterward, not here.
func (vm *VM) execute(d Decoded) uint32 {
	if !d.Recognized {
		return vm.PC + 4
	}
	switch d.Format {
	case isa.FormatR:
		return vm.executeR(d)
	case isa.FormatI:
		return vm.executeI(d)
	case isa.FormatS:
		return vm.executeS(d)
	case isa.FormatB:
		return vm.executeB(d)
	case isa.FormatJ:
		return vm.executeJ(d)
	default:
		return vm.PC + 4
	}
}

func (vm *VM) executeR(d Decoded) uint32 {
	a, b := vm.Registers[d.Rs1], vm.Registers[d.Rs2]
	switch d.Funct3 {
	case 0b000:
		if d.Funct7 == 0b0100000 {
			vm.Registers[d.Rd] = a - b // sub
		} else {
			vm.Registers[d.Rd] = a + b // add
		}
	case 0b010: // slt, signed
		if int32(a) < int32(b) {
			vm.Registers[d.Rd] = 1
		} else {
			vm.Registers[d.Rd] = 0
		}
	case 0b101: // srl, shift amount from the low 5 bits of rs2
		vm.Registers[d.Rd] = a >> (b & 0x1F)
	case 0b110:
		vm.Registers[d.Rd] = a | b
	case 0b111:
		vm.Registers[d.Rd] = a & b
	}
	return vm.PC + 4
}

func (vm *VM) executeI(d Decoded) uint32 {
	switch d.Opcode {
	case isa.OpcodeImm: // addi
		vm.Registers[d.Rd] = vm.Registers[d.Rs1] + uint32(d.Imm)
	case isa.OpcodeLoad: // lw
		addr := vm.Registers[d.Rs1] + uint32(d.Imm)
		vm.Registers[d.Rd] = vm.loadWord(addr)
	case isa.OpcodeJALR:
		link := vm.PC + 4
		target := (vm.Registers[d.Rs1] + uint32(d.Imm)) &^ 1
		vm.Registers[d.Rd] = link
		return target
	}
	return vm.PC + 4
}

func (vm *VM) executeS(d Decoded) uint32 {
	addr := vm.Registers[d.Rs1] + uint32(d.Imm)
	vm.storeWord(addr, vm.Registers[d.Rs2])
	return vm.PC + 4
}

func (vm *VM) executeB(d Decoded) uint32 {
	a, b := vm.Registers[d.Rs1], vm.Registers[d.Rs2]
	var taken bool
	switch d.Funct3 {
	case isa.Funct3BEQ:
		taken = a == b
	case isa.Funct3BNE:
		taken = a != b
	case isa.Funct3BLT: // signed
		taken = int32(a) < int32(b)
	}
	if taken {
		return vm.PC + uint32(d.Imm)
	}
	return vm.PC + 4
}

func (vm *VM) executeJ(d Decoded) uint32 {
	vm.Registers[d.Rd] = vm.PC + 4
	return vm.PC + uint32(d.Imm)
}

// loadWord and storeWord silently absorb out-of-range data-memory
// accesses: loads yield 0, stores are no-ops.
func (vm *VM) loadWord(addr uint32) uint32 {
	idx := addr / 4
	if idx >= isa.DataMemoryWords {
		return 0
	}
	return vm.Memory[idx]
}

func (vm *VM) storeWord(addr, value uint32) {
	idx := addr / 4
	if idx >= isa.DataMemoryWords {
		return
	}
	vm.Memory[idx] = value
}

// recordTrace appends one line: the current PC followed by all 32
// registers, space-separated decimal, unsigned modular.
func (vm *VM) recordTrace() {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", vm.PC)
	for _, r := range vm.Registers {
		fmt.Fprintf(&sb, " %d", r)
	}
	vm.Trace = append(vm.Trace, sb.String())
}

// WriteTrace writes the recorded trace lines followed by the 32-word
// memory dump (address:value, one per line, starting at
// isa.DataMemoryBase and incrementing by 4) to w.
func (vm *VM) WriteTrace(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, line := range vm.Trace {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	addr := uint32(isa.DataMemoryBase)
	for _, word := range vm.Memory {
		if _, err := fmt.Fprintf(bw, "0x%08X:%d\n", addr, word); err != nil {
			return err
		}
		addr += 4
	}
	return bw.Flush()
}

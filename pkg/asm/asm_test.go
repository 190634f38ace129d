package asm

import (
	"errors"
	"strings"
	"testing"
)

// assembleAll drains StartAssembler and reports every AssembledLine in
// order, failing the test immediately on an unexpected per-line error.
func assembleAll(t *testing.T, source string) []string {
	t.Helper()
	var words []string
	for line := range StartAssembler(strings.NewReader(source)) {
		if line.Err != nil {
			t.Fatalf("unexpected assembly error on line %d: %v", line.Lineno, line.Err)
		}
		words = append(words, line.Word)
	}
	return words
}

func TestEncodeRTypeAdd(t *testing.T) {
	words := assembleAll(t, "add a0, a1, a2\n")
	want := "00000000110001011000010100110011"
	if len(words) != 1 || words[0] != want {
		t.Fatalf("got %#v, want [%q]", words, want)
	}
}

func TestEncodeITypeAddiNegative(t *testing.T) {
	words := assembleAll(t, "addi t0, zero, -1\n")
	want := "11111111111100000000001010010011"
	if len(words) != 1 || words[0] != want {
		t.Fatalf("got %#v, want [%q]", words, want)
	}
}

func TestEncodeSTypeSw(t *testing.T) {
	words := assembleAll(t, "sw a1, 8(sp)\n")
	want := "00000000101100010010010000100011"
	if len(words) != 1 || words[0] != want {
		t.Fatalf("got %#v, want [%q]", words, want)
	}
}

func TestEncodeBranchToLabel(t *testing.T) {
	// addi t0,zero,5 (pc 0); L: addi t1,zero,7 (pc 4); beq t0,t0,L (pc 8).
	// beq targets L at pc 4, so offset = 4 - 8 = -4. The expected word
	// below was computed directly from the B-format bit layout
	// (imm12|imm10:5|rs2|rs1|funct3|imm4:1|imm11|opcode) for that offset.
	src := "addi t0, zero, 5\nL: addi t1, zero, 7\nbeq t0, t0, L\n"
	words := assembleAll(t, src)
	if len(words) != 3 {
		t.Fatalf("got %d words, want 3: %#v", len(words), words)
	}
	want := "11111110010100101000111011100011"
	if words[2] != want {
		t.Errorf("beq encoding = %q, want %q", words[2], want)
	}
}

func TestEveryWordIs32Bits(t *testing.T) {
	src := "addi t0, zero, 5\nL: addi t1, zero, 7\nbeq t0, t0, L\nsw t0, 0(zero)\nlw t1, 0(zero)\n"
	for _, w := range assembleAll(t, src) {
		if len(w) != 32 {
			t.Errorf("word %q has length %d, want 32", w, len(w))
		}
		for _, r := range w {
			if r != '0' && r != '1' {
				t.Errorf("word %q contains non-binary character %q", w, r)
			}
		}
	}
}

func TestUnknownMnemonicIsRecoverable(t *testing.T) {
	var gotErr error
	var words []string
	for line := range StartAssembler(strings.NewReader("frob a0, a1, a2\nadd a0, a1, a2\n")) {
		if line.Err != nil {
			gotErr = line.Err
			continue
		}
		words = append(words, line.Word)
	}
	if gotErr == nil || !errors.Is(gotErr, ErrUnknownMnemonic) {
		t.Fatalf("expected ErrUnknownMnemonic, got %v", gotErr)
	}
	if len(words) != 1 {
		t.Fatalf("expected the assembler to continue past the bad line, got %#v", words)
	}
}

func TestUnknownRegisterErrors(t *testing.T) {
	var gotErr error
	for line := range StartAssembler(strings.NewReader("add a0, bogus, a2\n")) {
		if line.Err != nil {
			gotErr = line.Err
		}
	}
	if gotErr == nil || !errors.Is(gotErr, ErrUnknownRegister) {
		t.Fatalf("expected ErrUnknownRegister, got %v", gotErr)
	}
}

func TestUndefinedLabelErrors(t *testing.T) {
	var gotErr error
	for line := range StartAssembler(strings.NewReader("beq t0, t1, nowhere\n")) {
		if line.Err != nil {
			gotErr = line.Err
		}
	}
	if gotErr == nil || !errors.Is(gotErr, ErrUndefinedLabel) {
		t.Fatalf("expected ErrUndefinedLabel, got %v", gotErr)
	}
}

func TestOddBranchOffsetErrors(t *testing.T) {
	var gotErr error
	for line := range StartAssembler(strings.NewReader("beq t0, t1, 3\n")) {
		if line.Err != nil {
			gotErr = line.Err
		}
	}
	if gotErr == nil || !errors.Is(gotErr, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", gotErr)
	}
}

func TestLabelOnlyLineConsumesPCSlot(t *testing.T) {
	// "mid:" alone still advances pc by 4, so "after" lands at byte 8
	// and the jal on line 1 (pc 0) targeting it encodes offset 8, not 4.
	src := "jal ra, after\nmid:\nafter: add a0, a0, a0\n"
	labels := CollectLabels(strings.Split(strings.TrimRight(src, "\n"), "\n"))
	if labels["mid"] != 4 {
		t.Errorf("mid label = %d, want 4", labels["mid"])
	}
	if labels["after"] != 8 {
		t.Errorf("after label = %d, want 8", labels["after"])
	}
}

func TestLwSwRoundTripTokenOrder(t *testing.T) {
	words := assembleAll(t, "lw t1, 4(sp)\n")
	if len(words) != 1 {
		t.Fatalf("got %#v", words)
	}
	// opcode field (low 7 bits) must be lw's opcode 0000011.
	if got := words[0][25:32]; got != "0000011" {
		t.Errorf("lw opcode = %s, want 0000011", got)
	}
}

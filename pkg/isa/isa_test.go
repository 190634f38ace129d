package isa

import "testing"

func TestRegistersABIAliases(t *testing.T) {
	tests := []struct {
		name string
		want uint32
	}{
		{"zero", 0}, {"ra", 1}, {"sp", 2}, {"gp", 3}, {"tp", 4},
		{"t0", 5}, {"t1", 6}, {"t2", 7},
		{"s0", 8}, {"fp", 8}, {"s1", 9},
		{"a0", 10}, {"a7", 17},
		{"s2", 18}, {"s11", 27},
		{"t3", 28}, {"t6", 31},
	}
	for _, tc := range tests {
		got, ok := Registers[tc.name]
		if !ok {
			t.Errorf("register %q not found", tc.name)
			continue
		}
		if got != tc.want {
			t.Errorf("register %q = %d, want %d", tc.name, got, tc.want)
		}
	}
	if len(Registers) != 33 { // 32 indices, fp/s0 share one
		t.Errorf("Registers has %d entries, want 33 (32 slots, s0/fp aliased)", len(Registers))
	}
}

func TestMnemonicsTable(t *testing.T) {
	tests := []struct {
		mnem   string
		format Format
		opcode uint32
	}{
		{"add", FormatR, 0b0110011},
		{"sub", FormatR, 0b0110011},
		{"lw", FormatI, 0b0000011},
		{"addi", FormatI, 0b0010011},
		{"jalr", FormatI, 0b1100111},
		{"sw", FormatS, 0b0100011},
		{"beq", FormatB, 0b1100011},
		{"bne", FormatB, 0b1100011},
		{"blt", FormatB, 0b1100011},
		{"jal", FormatJ, 0b1101111},
	}
	for _, tc := range tests {
		m, ok := Mnemonics[tc.mnem]
		if !ok {
			t.Errorf("mnemonic %q not found", tc.mnem)
			continue
		}
		if m.Format != tc.format {
			t.Errorf("%s: format = %s, want %s", tc.mnem, m.Format, tc.format)
		}
		if m.Opcode != tc.opcode {
			t.Errorf("%s: opcode = %07b, want %07b", tc.mnem, m.Opcode, tc.opcode)
		}
	}
	if len(Mnemonics) != 14 {
		t.Errorf("Mnemonics has %d entries, want 14", len(Mnemonics))
	}
}

func TestOpcodeFormatsCoversAllMnemonics(t *testing.T) {
	for mnem, m := range Mnemonics {
		f, ok := OpcodeFormats[m.Opcode]
		if !ok {
			t.Errorf("opcode for %q not present in OpcodeFormats", mnem)
			continue
		}
		if f != m.Format {
			t.Errorf("OpcodeFormats[%07b] = %s, want %s (from mnemonic %q)", m.Opcode, f, m.Format, mnem)
		}
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		value uint32
		bits  int
		want  int32
	}{
		{0x000, 12, 0},
		{0xFFF, 12, -1},
		{0x800, 12, -2048},
		{0x7FF, 12, 2047},
		{0x1000, 13, -4096}, // sign bit set in a 13-bit field
		{0x0FFF, 13, 4095},
		{0x100000, 21, -1048576},
	}
	for _, tc := range tests {
		got := SignExtend(tc.value, tc.bits)
		if got != tc.want {
			t.Errorf("SignExtend(%#x, %d) = %d, want %d", tc.value, tc.bits, got, tc.want)
		}
	}
}

func TestToFieldRoundTrip(t *testing.T) {
	tests := []struct {
		value int64
		bits  int
	}{
		{0, 12}, {-1, 12}, {2047, 12}, {-2048, 12},
		{5, 32}, {-5, 32},
	}
	for _, tc := range tests {
		field, err := ToField(tc.value, tc.bits)
		if err != nil {
			t.Fatalf("ToField(%d, %d) unexpected error: %v", tc.value, tc.bits, err)
		}
		got := SignExtend(field, tc.bits)
		if int64(got) != tc.value {
			t.Errorf("round trip ToField/SignExtend(%d, %d) = %d, want %d", tc.value, tc.bits, got, tc.value)
		}
	}
}

func TestToFieldOutOfRange(t *testing.T) {
	if _, err := ToField(2048, 12); err == nil {
		t.Error("ToField(2048, 12) should have errored, 12-bit range is [-2048,2047]")
	}
	if _, err := ToField(-2049, 12); err == nil {
		t.Error("ToField(-2049, 12) should have errored")
	}
}

func TestFitsSigned(t *testing.T) {
	if !FitsSigned(2047, 12) || FitsSigned(2048, 12) {
		t.Error("FitsSigned boundary wrong for 12 bits")
	}
	if !FitsSigned(-2048, 12) || FitsSigned(-2049, 12) {
		t.Error("FitsSigned negative boundary wrong for 12 bits")
	}
}

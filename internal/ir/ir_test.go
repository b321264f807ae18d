package ir

import (
	"errors"
	"testing"
)

func TestParseRegisterCanonical(t *testing.T) {
	tests := []struct {
		name string
		want Register
	}{
		{"$zero", Zero},
		{"$0", Zero},
		{"$t0", T0},
		{"$ra", Ra},
		{"$v1", V1},
	}

	for _, tt := range tests {
		got, err := ParseRegister(tt.name)
		if err != nil {
			t.Errorf("ParseRegister(%q) error: %v", tt.name, err)
			continue
		}

		if got != tt.want {
			t.Errorf("ParseRegister(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseRegisterUnknown(t *testing.T) {
	_, err := ParseRegister("$bogus")
	if !errors.Is(err, ErrRegister) {
		t.Errorf("ParseRegister(bogus) error = %v, want ErrRegister", err)
	}
}

func TestRegisterStringRoundTrip(t *testing.T) {
	for r := Zero; r < NumRegister; r++ {
		name := r.String()

		got, err := ParseRegister(name)
		if err != nil {
			t.Fatalf("ParseRegister(%q) error: %v", name, err)
		}

		if got != r {
			t.Errorf("round trip %v -> %q -> %v", r, name, got)
		}
	}
}

func TestMnemonicsCoverOpcodeNames(t *testing.T) {
	for op, name := range opcodeNames {
		got, ok := Mnemonics[name]
		if !ok {
			t.Errorf("Mnemonics missing entry for %q", name)
			continue
		}

		if got != op {
			t.Errorf("Mnemonics[%q] = %v, want %v", name, got, op)
		}
	}
}

func TestInstructionString(t *testing.T) {
	in := Instruction{Kind: ADD, Args: []Operand{Reg(T0), Reg(T1), Reg(T2)}}

	want := "add $t0, $t1, $t2"
	if got := in.String(); got != want {
		t.Errorf("Instruction.String() = %q, want %q", got, want)
	}
}

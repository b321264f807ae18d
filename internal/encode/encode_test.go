package encode

import (
	"reflect"
	"testing"

	"mipsvm/internal/addr"
	"mipsvm/internal/ir"
)

type fakeLabels map[string]addr.Address

func (f fakeLabels) Resolve(name string) (addr.Address, bool) {
	a, ok := f[name]
	return a, ok
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	labels := fakeLabels{"loop": 0x00400010, "done": 0x00400020}

	tests := []ir.Instruction{
		{Kind: ir.ADD, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1), ir.Reg(ir.T2)}},
		{Kind: ir.SUB, Args: []ir.Operand{ir.Reg(ir.V0), ir.Reg(ir.A0), ir.Reg(ir.A1)}},
		{Kind: ir.AND, Args: []ir.Operand{ir.Reg(ir.S0), ir.Reg(ir.S1), ir.Reg(ir.S2)}},
		{Kind: ir.SLT, Args: []ir.Operand{ir.Reg(ir.T3), ir.Reg(ir.T4), ir.Reg(ir.T5)}},
		{Kind: ir.SLL, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1), ir.Imm(4)}},
		{Kind: ir.SLLV, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1), ir.Reg(ir.T2)}},
		{Kind: ir.JR, Args: []ir.Operand{ir.Reg(ir.Ra)}},
		{Kind: ir.JALR, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1)}},
		{Kind: ir.SYSCALL, Args: nil},
		{Kind: ir.MULT, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1), ir.Reg(ir.T2)}},
		{Kind: ir.ADDI, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1), ir.Imm(-5)}},
		{Kind: ir.ANDI, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1), ir.Imm(0x00FF)}},
		{Kind: ir.LUI, Args: []ir.Operand{ir.Reg(ir.T0), ir.Imm(0x1234)}},
		{Kind: ir.LW, Args: []ir.Operand{ir.Reg(ir.T0), ir.Offset(8, ir.Sp)}},
		{Kind: ir.SW, Args: []ir.Operand{ir.Reg(ir.T0), ir.Offset(-4, ir.Sp)}},
	}

	for _, want := range tests {
		word, err := Encode(want, 0x00400000, labels)
		if err != nil {
			t.Errorf("Encode(%s) error: %v", want, err)
			continue
		}

		got, err := Decode(word)
		if err != nil {
			t.Errorf("Decode(%#x) for %s error: %v", word, want, err)
			continue
		}

		if got.Kind != want.Kind {
			t.Errorf("Decode(Encode(%s)).Kind = %s, want %s", want, got.Kind, want.Kind)
		}

		if !reflect.DeepEqual(got.Args, want.Args) {
			t.Errorf("Decode(Encode(%s)).Args = %v, want %v", want, got.Args, want.Args)
		}
	}
}

func TestEncodeJumpToLabel(t *testing.T) {
	labels := fakeLabels{"main": 0x00400000}

	word, err := Encode(ir.Instruction{Kind: ir.J, Args: []ir.Operand{ir.Label("main")}}, 0x00400004, labels)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if want := uint32(0x02)<<26 | 0x00400000; word != want {
		t.Errorf("Encode(j main) = %#x, want %#x", word, want)
	}
}

func TestEncodeUnresolvedLabelFails(t *testing.T) {
	_, err := Encode(ir.Instruction{Kind: ir.J, Args: []ir.Operand{ir.Label("nope")}}, 0, fakeLabels{})
	if err == nil {
		t.Fatal("expected error for unresolved label")
	}
}

func TestEncodeFieldOverflow(t *testing.T) {
	// A register index that doesn't fit in 5 bits can't arise through ir.Register (max 31), but
	// shamt from a raw immediate can.
	instr := ir.Instruction{Kind: ir.SLL, Args: []ir.Operand{ir.Reg(ir.T0), ir.Reg(ir.T1), ir.Imm(64)}}

	_, err := Encode(instr, 0, fakeLabels{})
	if err == nil {
		t.Fatal("expected field overflow error")
	}
}

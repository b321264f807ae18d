package cpu

import (
	"context"
	"testing"

	"mipsvm/internal/ir"
)

// TestReadStringNegativeMax checks that syscall 8 with a negative $a1 clamps to zero bytes instead
// of panicking on the slice bound.
func TestReadStringNegativeMax(t *testing.T) {
	prog := &ir.Program{
		Text: []ir.Block{{
			Label: "main",
			Instructions: []ir.Instruction{
				{Kind: ir.LI, Args: []ir.Operand{ir.Reg(ir.A1), ir.Imm(-1)}},
				{Kind: ir.LI, Args: []ir.Operand{ir.Reg(ir.V0), ir.Imm(8)}},
				{Kind: ir.SYSCALL},
				{Kind: ir.LI, Args: []ir.Operand{ir.Reg(ir.V0), ir.Imm(10)}},
				{Kind: ir.SYSCALL},
			},
		}},
	}

	machine, _ := newVM(t, prog, "hello\n")
	machine.Reg.Set(ir.A0, ir.Word(machine.Mem.Heap.Start))

	if err := machine.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
}

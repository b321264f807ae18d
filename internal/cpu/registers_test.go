package cpu

import (
	"testing"

	"mipsvm/internal/ir"
)

func TestZeroRegisterWriteDiscarded(t *testing.T) {
	var regs Registers

	regs.Set(ir.Zero, 42)

	if got := regs.Get(ir.Zero); got != 0 {
		t.Errorf("Get($zero) after Set = %d, want 0", got)
	}
}

func TestRegisterGetSigned(t *testing.T) {
	var regs Registers

	regs.Set(ir.T0, 0xFFFFFFFF)

	if got := regs.GetSigned(ir.T0); got != -1 {
		t.Errorf("GetSigned($t0) = %d, want -1", got)
	}
}

// Package cpu implements the register file and the fetch/decode/execute loop: the instruction
// interpreter at the center of the machine (spec §4.1, §4.5, §4.6, §4.7).
package cpu

import "mipsvm/internal/ir"

// Registers holds the 32 general-purpose registers. $zero always reads 0; writes to it are
// silently discarded by intercepting the write path (spec §9 design note), which keeps Get total.
type Registers [ir.NumRegister]ir.Word

// Get returns the value of r, or 0 if r is $zero.
func (regs *Registers) Get(r ir.Register) ir.Word {
	if r == ir.Zero {
		return 0
	}

	return regs[r]
}

// Set stores v in r; a no-op if r is $zero.
func (regs *Registers) Set(r ir.Register, v ir.Word) {
	if r == ir.Zero {
		return
	}

	regs[r] = v
}

// GetSigned returns the value of r reinterpreted as a signed 32-bit integer.
func (regs *Registers) GetSigned(r ir.Register) int32 {
	return int32(regs.Get(r))
}

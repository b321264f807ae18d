// Package encode turns a program's IR instructions into 32-bit R/I/J-format machine words,
// resolving labels through a map built by the loader. It also supplies Decode, used only by tests
// to verify the encode/decode round-trip property (spec §8).
package encode

import (
	"fmt"

	"mipsvm/internal/addr"
	"mipsvm/internal/ir"
)

// Labels resolves a label name to an address. The memory loader's label table satisfies this.
type Labels interface {
	Resolve(name string) (addr.Address, bool)
}

// field-width assertions (spec §4.4): every field must fit in its bit-slot.
const (
	maxReg5  = 1<<5 - 1
	maxImm16 = 1<<16 - 1
	maxTarget = 1<<32 - 1 // this implementation stores the full address, not a 26-bit word index.
)

type fields struct {
	opcode uint32
	rs     uint32
	rt     uint32
	rd     uint32
	shamt  uint32
	funct  uint32
	imm    uint32
	target uint32
}

func rType(rs, rt, rd, shamt, funct int) fields {
	return fields{rs: uint32(rs), rt: uint32(rt), rd: uint32(rd), shamt: uint32(shamt), funct: uint32(funct)}
}

func iType(opcode, rs, rt, imm int) fields {
	f := fields{opcode: uint32(opcode), rs: uint32(rs), rt: uint32(rt), imm: uint32(uint16(imm))}

	// imm fits if it reads as either a signed or an unsigned 16-bit value; anything else is
	// marked out of range so pack rejects it.
	if imm < -(1<<15) || imm > maxImm16 {
		f.imm = maxImm16 + 1
	}

	return f
}

func jType(opcode int, target uint32) fields {
	return fields{opcode: uint32(opcode), target: target}
}

func (f fields) pack(kind format) (uint32, error) {
	switch kind {
	case formatR:
		if f.rs > maxReg5 || f.rt > maxReg5 || f.rd > maxReg5 || f.shamt > maxReg5 {
			return 0, fmt.Errorf("%w: register field overflow", ErrInvalidInstruction)
		}

		return f.rs<<21 | f.rt<<16 | f.rd<<11 | f.shamt<<6 | f.funct, nil
	case formatI:
		if f.rs > maxReg5 || f.rt > maxReg5 || f.imm > maxImm16 {
			return 0, fmt.Errorf("%w: field overflow", ErrInvalidInstruction)
		}

		return f.opcode<<26 | f.rs<<21 | f.rt<<16 | f.imm, nil
	case formatJ:
		if f.target > maxTarget {
			return 0, fmt.Errorf("%w: target field overflow", ErrInvalidInstruction)
		}

		return f.opcode<<26 | f.target, nil
	default:
		return 0, fmt.Errorf("%w: unknown format", ErrInvalidInstruction)
	}
}

type format int

const (
	formatR format = iota
	formatI
	formatJ
	formatPseudo
)

// funct codes for R-type instructions (spec §4.4).
var functCodes = map[ir.Opcode]int{
	ir.ADD: 0x20, ir.ADDU: 0x21, ir.SUB: 0x22, ir.SUBU: 0x23,
	ir.AND: 0x24, ir.OR: 0x25, ir.XOR: 0x26, ir.NOR: 0x27,
	ir.SLT: 0x2A, ir.SLTU: 0x2B,
	ir.MULT: 0x18, ir.MULTU: 0x19, ir.DIV: 0x1A, ir.DIVU: 0x1B,
	ir.SLL: 0x00, ir.SRL: 0x02, ir.SRA: 0x03,
	ir.SLLV: 0x04, ir.SRLV: 0x06, ir.SRAV: 0x07,
	ir.JR: 0x08, ir.JALR: 0x09, ir.SYSCALL: 0x0C,
}

// opcode codes for I-type instructions (spec §4.4).
var opcodeCodes = map[ir.Opcode]int{
	ir.ADDI: 0x08, ir.ADDIU: 0x09, ir.ANDI: 0x0C, ir.ORI: 0x0D, ir.XORI: 0x0E,
	ir.SLTI: 0x0A, ir.SLTIU: 0x0B, ir.LUI: 0x0F,
	ir.BEQ: 0x04, ir.BNE: 0x05, ir.BLEZ: 0x06, ir.BGTZ: 0x07,
	ir.LB: 0x20, ir.LH: 0x21, ir.LW: 0x23, ir.LBU: 0x24, ir.LHU: 0x25,
	ir.SB: 0x28, ir.SH: 0x29, ir.SW: 0x2B,
}

// opcode codes for J-type instructions.
var jumpCodes = map[ir.Opcode]int{
	ir.J: 0x02, ir.JAL: 0x03,
}

var pseudoOps = map[ir.Opcode]bool{ir.LI: true, ir.LA: true, ir.MOVE: true, ir.NOP: true}

func kindOf(op ir.Opcode) format {
	switch {
	case pseudoOps[op]:
		return formatPseudo
	case isRType(op):
		return formatR
	case isIType(op):
		return formatI
	case isJType(op):
		return formatJ
	default:
		return formatPseudo
	}
}

func isRType(op ir.Opcode) bool { _, ok := functCodes[op]; return ok }
func isIType(op ir.Opcode) bool { _, ok := opcodeCodes[op]; return ok }
func isJType(op ir.Opcode) bool { _, ok := jumpCodes[op]; return ok }

// Encode produces one 32-bit word for instr, given its address (used to turn a branch's label
// operand into a byte displacement from the following instruction) and a label table for branch
// and J/JAL targets. Pseudo-instructions (li/la/move/nop) have no standard
// MIPS opcode; Encode reserves their slot with a fixed placeholder word so addresses stay
// 4-aligned; the interpreter special-cases them directly from the IR, never decoding this word.
func Encode(instr ir.Instruction, at addr.Address, labels Labels) (uint32, error) {
	switch kindOf(instr.Kind) {
	case formatR:
		return encodeR(instr)
	case formatI:
		return encodeI(instr, at, labels)
	case formatJ:
		return encodeJ(instr, labels)
	default:
		return pseudoPlaceholder, nil
	}
}

// pseudoPlaceholder marks a slot occupied by a pseudo-instruction. It decodes to nothing meaningful;
// the interpreter dispatches pseudo-ops straight from the IR table, never through this word.
const pseudoPlaceholder uint32 = 0x00000000

func regArg(args []ir.Operand, i int) int {
	if i >= len(args) || args[i].Kind != ir.OperandRegister {
		return 0
	}

	return int(args[i].Reg)
}

func encodeR(instr ir.Instruction) (uint32, error) {
	funct := functCodes[instr.Kind]
	args := instr.Args

	switch instr.Kind {
	case ir.SLL, ir.SRL, ir.SRA:
		// rd, rt, shamt
		rd, rt := regArg(args, 0), regArg(args, 1)
		shamt := 0

		if len(args) > 2 && args[2].Kind == ir.OperandImmediate {
			shamt = int(args[2].Imm)
		}

		return fields{rd: uint32(rd), rt: uint32(rt), shamt: uint32(shamt), funct: uint32(funct)}.pack(formatR)
	case ir.SLLV, ir.SRLV, ir.SRAV:
		// rd, rt, rs
		rd, rt, rs := regArg(args, 0), regArg(args, 1), regArg(args, 2)
		return rType(rs, rt, rd, 0, funct).pack(formatR)
	case ir.JR:
		rs := regArg(args, 0)
		return rType(rs, 0, 0, 0, funct).pack(formatR)
	case ir.JALR:
		rd, rs := regArg(args, 0), regArg(args, 1)
		return rType(rs, 0, rd, 0, funct).pack(formatR)
	case ir.SYSCALL:
		return rType(0, 0, 0, 0, funct).pack(formatR)
	case ir.MULT, ir.MULTU, ir.DIV, ir.DIVU:
		// fused single-destination convention (spec Open Question #1): rd, rs, rt
		rd, rs, rt := regArg(args, 0), regArg(args, 1), regArg(args, 2)
		return rType(rs, rt, rd, 0, funct).pack(formatR)
	default:
		// rd, rs, rt
		rd, rs, rt := regArg(args, 0), regArg(args, 1), regArg(args, 2)
		return rType(rs, rt, rd, 0, funct).pack(formatR)
	}
}

func encodeI(instr ir.Instruction, at addr.Address, labels Labels) (uint32, error) {
	opcode := opcodeCodes[instr.Kind]
	args := instr.Args

	switch instr.Kind {
	case ir.LUI:
		rt := regArg(args, 0)
		imm := immArg(args, 1)

		return iType(opcode, 0, rt, imm).pack(formatI)
	case ir.BEQ, ir.BNE:
		rs, rt := regArg(args, 0), regArg(args, 1)
		off, err := branchOffset(args, 2, at, labels)
		if err != nil {
			return 0, err
		}

		return iType(opcode, rs, rt, off).pack(formatI)
	case ir.BLEZ, ir.BGTZ:
		rs := regArg(args, 0)
		off, err := branchOffset(args, 1, at, labels)
		if err != nil {
			return 0, err
		}

		return iType(opcode, rs, 0, off).pack(formatI)
	case ir.LB, ir.LH, ir.LW, ir.LBU, ir.LHU, ir.SB, ir.SH, ir.SW:
		rt := regArg(args, 0)

		if len(args) < 2 || args[1].Kind != ir.OperandRegisterOffset {
			return 0, fmt.Errorf("%w: expected base(offset) operand", ErrInvalidInstruction)
		}

		return iType(opcode, int(args[1].Reg), rt, int(args[1].Imm)).pack(formatI)
	default:
		// addi/addiu/andi/ori/xori/slti/sltiu: rt, rs, imm
		rt, rs := regArg(args, 0), regArg(args, 1)
		imm := immArg(args, 2)

		return iType(opcode, rs, rt, imm).pack(formatI)
	}
}

func immArg(args []ir.Operand, i int) int {
	if i >= len(args) {
		return 0
	}

	return int(args[i].Imm)
}

func branchOffset(args []ir.Operand, i int, at addr.Address, labels Labels) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: missing branch target", ErrInvalidInstruction)
	}

	arg := args[i]

	switch arg.Kind {
	case ir.OperandImmediate:
		return int(arg.Imm), nil
	case ir.OperandLabel:
		target, ok := labels.Resolve(arg.Label)
		if !ok {
			return 0, &LabelError{Label: arg.Label}
		}
		// raw signed byte displacement from the already-advanced pc (spec Open Question #3).
		return int(int64(target) - int64(at) - 4), nil
	default:
		return 0, fmt.Errorf("%w: invalid branch operand", ErrInvalidInstruction)
	}
}

func encodeJ(instr ir.Instruction, labels Labels) (uint32, error) {
	opcode := jumpCodes[instr.Kind]
	args := instr.Args

	if len(args) == 0 {
		return 0, fmt.Errorf("%w: missing jump target", ErrInvalidInstruction)
	}

	var target uint32

	switch args[0].Kind {
	case ir.OperandLabel:
		t, ok := labels.Resolve(args[0].Label)
		if !ok {
			return 0, &LabelError{Label: args[0].Label}
		}

		target = uint32(t)
	case ir.OperandImmediate:
		target = uint32(args[0].Imm)
	default:
		return 0, fmt.Errorf("%w: invalid jump operand", ErrInvalidInstruction)
	}

	return jType(opcode, target).pack(formatJ)
}

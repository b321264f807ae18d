package encode

import (
	"fmt"

	"mipsvm/internal/ir"
)

var functToOpcode = reverse(functCodes)
var iOpcodeToOpcode = reverse(opcodeCodes)
var jOpcodeToOpcode = reverse(jumpCodes)

func reverse(m map[ir.Opcode]int) map[int]ir.Opcode {
	out := make(map[int]ir.Opcode, len(m))
	for k, v := range m {
		out[v] = k
	}

	return out
}

// Decode reverses Encode for every non-pseudo instruction, reproducing the original (kind, args)
// pair (spec §8 round-trip property). Branch/jump targets decode back to Immediate operands, not
// labels: labels exist only in the IR the assembler produces, not in the encoded word.
func Decode(word uint32) (ir.Instruction, error) {
	opcode := int(word>>26) & 0x3f

	if opcode == 0 {
		return decodeR(word)
	}

	if kind, ok := jOpcodeToOpcode[opcode]; ok {
		target := word & 0x03ffffff
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Imm(int32(target))}}, nil
	}

	if kind, ok := iOpcodeToOpcode[opcode]; ok {
		return decodeI(kind, word)
	}

	return ir.Instruction{}, fmt.Errorf("%w: unknown opcode %#x", ErrInvalidInstruction, opcode)
}

func decodeR(word uint32) (ir.Instruction, error) {
	rs := int((word >> 21) & 0x1f)
	rt := int((word >> 16) & 0x1f)
	rd := int((word >> 11) & 0x1f)
	shamt := int((word >> 6) & 0x1f)
	funct := int(word & 0x3f)

	kind, ok := functToOpcode[funct]
	if !ok {
		return ir.Instruction{}, fmt.Errorf("%w: unknown funct %#x", ErrInvalidInstruction, funct)
	}

	switch kind {
	case ir.SLL, ir.SRL, ir.SRA:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rd)), ir.Reg(ir.Register(rt)), ir.Imm(int32(shamt))}}, nil
	case ir.SLLV, ir.SRLV, ir.SRAV:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rd)), ir.Reg(ir.Register(rt)), ir.Reg(ir.Register(rs))}}, nil
	case ir.JR:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rs))}}, nil
	case ir.JALR:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rd)), ir.Reg(ir.Register(rs))}}, nil
	case ir.SYSCALL:
		return ir.Instruction{Kind: kind, Args: nil}, nil
	case ir.MULT, ir.MULTU, ir.DIV, ir.DIVU:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rd)), ir.Reg(ir.Register(rs)), ir.Reg(ir.Register(rt))}}, nil
	default:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rd)), ir.Reg(ir.Register(rs)), ir.Reg(ir.Register(rt))}}, nil
	}
}

func decodeI(kind ir.Opcode, word uint32) (ir.Instruction, error) {
	rs := int((word >> 21) & 0x1f)
	rt := int((word >> 16) & 0x1f)
	imm := int16(word & 0xffff)

	switch kind {
	case ir.LUI:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rt)), ir.Imm(int32(uint16(imm)))}}, nil
	case ir.BEQ, ir.BNE:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rs)), ir.Reg(ir.Register(rt)), ir.Imm(int32(imm))}}, nil
	case ir.BLEZ, ir.BGTZ:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rs)), ir.Imm(int32(imm))}}, nil
	case ir.LB, ir.LH, ir.LW, ir.LBU, ir.LHU, ir.SB, ir.SH, ir.SW:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rt)), ir.Offset(int32(imm), ir.Register(rs))}}, nil
	case ir.ANDI, ir.ORI, ir.XORI:
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rt)), ir.Reg(ir.Register(rs)), ir.Imm(int32(uint16(imm)))}}, nil
	default:
		// addi/addiu/slti/sltiu: rt, rs, imm (sign-extended)
		return ir.Instruction{Kind: kind, Args: []ir.Operand{ir.Reg(ir.Register(rt)), ir.Reg(ir.Register(rs)), ir.Imm(int32(imm))}}, nil
	}
}

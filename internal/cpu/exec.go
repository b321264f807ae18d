package cpu

// exec.go is the instruction cycle: fetch, advance, dispatch (spec §4.5).

import (
	"context"
	"fmt"

	"mipsvm/internal/addr"
	"mipsvm/internal/ir"
	"mipsvm/internal/mem"
)

// Run executes instructions until the program exits via syscall 10/17, the context is cancelled,
// or a fault occurs.
func (vm *VM) Run(ctx context.Context) error {
	vm.log.Info("START", "pc", vm.PC)

	var err error

	for !vm.halted {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err = vm.Step(); err != nil {
			break
		}
	}

	if err != nil {
		vm.log.Error("HALTED", "err", err, "pc", vm.PC)
	} else {
		vm.log.Info("HALTED", "pc", vm.PC)
	}

	return err
}

// Step executes a single instruction: fetch, advance pc by 4, then dispatch.
func (vm *VM) Step() error {
	if vm.halted {
		return ErrHalted
	}

	at := vm.PC

	instr, err := vm.Mem.InstructionAt(at)
	if err != nil {
		return err
	}

	if l := vm.labelAt(at); l != "" {
		vm.log.Debug("fetch", "label", l, "pc", at, "instr", instr)
	} else {
		vm.log.Debug("fetch", "pc", at, "instr", instr)
	}

	// Advance pc by 4 before executing, so jal captures the return address as the instruction
	// immediately following itself and branch offsets are relative to the already-advanced pc
	// (spec §4.5 step 3).
	vm.PC = at.Add(4)

	return vm.execute(instr, at)
}

func (vm *VM) labelAt(at addr.Address) string {
	for name, a := range vm.Mem.Labels {
		if a == at {
			return name
		}
	}

	return ""
}

func (vm *VM) execute(instr ir.Instruction, at addr.Address) error {
	args := instr.Args

	switch instr.Kind {
	case ir.ADD, ir.ADDU:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))+vm.Reg.Get(reg(args, 2)))
	case ir.SUB, ir.SUBU:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))-vm.Reg.Get(reg(args, 2)))
	case ir.AND:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))&vm.Reg.Get(reg(args, 2)))
	case ir.OR:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))|vm.Reg.Get(reg(args, 2)))
	case ir.XOR:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))^vm.Reg.Get(reg(args, 2)))
	case ir.NOR:
		vm.Reg.Set(reg(args, 0), ^(vm.Reg.Get(reg(args, 1)) | vm.Reg.Get(reg(args, 2))))
	case ir.SLT:
		vm.Reg.Set(reg(args, 0), boolWord(vm.Reg.GetSigned(reg(args, 1)) < vm.Reg.GetSigned(reg(args, 2))))
	case ir.SLTU:
		vm.Reg.Set(reg(args, 0), boolWord(vm.Reg.Get(reg(args, 1)) < vm.Reg.Get(reg(args, 2))))
	case ir.MULT:
		vm.Reg.Set(reg(args, 0), ir.Word(vm.Reg.GetSigned(reg(args, 1))*vm.Reg.GetSigned(reg(args, 2))))
	case ir.MULTU:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))*vm.Reg.Get(reg(args, 2)))
	case ir.DIV:
		divisor := vm.Reg.GetSigned(reg(args, 2))
		if divisor == 0 {
			return ErrDivideByZero
		}

		vm.Reg.Set(reg(args, 0), ir.Word(vm.Reg.GetSigned(reg(args, 1))/divisor))
	case ir.DIVU:
		divisor := vm.Reg.Get(reg(args, 2))
		if divisor == 0 {
			return ErrDivideByZero
		}

		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))/divisor)
	case ir.SLL:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))<<uint(immArg(args, 2)))
	case ir.SRL:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))>>uint(immArg(args, 2)))
	case ir.SRA:
		vm.Reg.Set(reg(args, 0), ir.Word(vm.Reg.GetSigned(reg(args, 1))>>uint(immArg(args, 2))))
	case ir.SLLV:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))<<(vm.Reg.Get(reg(args, 2))&0x1f))
	case ir.SRLV:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))>>(vm.Reg.Get(reg(args, 2))&0x1f))
	case ir.SRAV:
		vm.Reg.Set(reg(args, 0), ir.Word(vm.Reg.GetSigned(reg(args, 1))>>(vm.Reg.Get(reg(args, 2))&0x1f)))
	case ir.JR:
		vm.PC = addr.Address(vm.Reg.Get(reg(args, 0)))
	case ir.JALR:
		vm.Reg.Set(reg(args, 0), ir.Word(vm.PC))
		vm.PC = addr.Address(vm.Reg.Get(reg(args, 1)))
	case ir.SYSCALL:
		return vm.syscall()

	case ir.ADDI:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))+ir.Word(int32(immArg(args, 2))))
	case ir.ADDIU:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))+ir.Word(int32(immArg(args, 2))))
	case ir.ANDI:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))&ir.Word(uint32(uint16(immArg(args, 2)))))
	case ir.ORI:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))|ir.Word(uint32(uint16(immArg(args, 2)))))
	case ir.XORI:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1))^ir.Word(uint32(uint16(immArg(args, 2)))))
	case ir.SLTI:
		vm.Reg.Set(reg(args, 0), boolWord(vm.Reg.GetSigned(reg(args, 1)) < immArg(args, 2)))
	case ir.SLTIU:
		vm.Reg.Set(reg(args, 0), boolWord(vm.Reg.Get(reg(args, 1)) < ir.Word(immArg(args, 2))))
	case ir.LUI:
		vm.Reg.Set(reg(args, 0), ir.Word(uint32(immArg(args, 1))<<16))

	case ir.BEQ:
		if vm.Reg.Get(reg(args, 0)) == vm.Reg.Get(reg(args, 1)) {
			return vm.branch(args, 2, at)
		}
	case ir.BNE:
		if vm.Reg.Get(reg(args, 0)) != vm.Reg.Get(reg(args, 1)) {
			return vm.branch(args, 2, at)
		}
	case ir.BLEZ:
		if vm.Reg.GetSigned(reg(args, 0)) <= 0 {
			return vm.branch(args, 1, at)
		}
	case ir.BGTZ:
		if vm.Reg.GetSigned(reg(args, 0)) > 0 {
			return vm.branch(args, 1, at)
		}

	case ir.LB:
		b, err := vm.loadByte(args, 1)
		if err != nil {
			return err
		}

		vm.Reg.Set(reg(args, 0), ir.Word(int32(int8(b))))
	case ir.LBU:
		b, err := vm.loadByte(args, 1)
		if err != nil {
			return err
		}

		vm.Reg.Set(reg(args, 0), ir.Word(b))
	case ir.LH:
		h, err := vm.loadHalf(args, 1)
		if err != nil {
			return err
		}

		vm.Reg.Set(reg(args, 0), ir.Word(int32(int16(h))))
	case ir.LHU:
		h, err := vm.loadHalf(args, 1)
		if err != nil {
			return err
		}

		vm.Reg.Set(reg(args, 0), ir.Word(h))
	case ir.LW:
		a, err := vm.addressOf(args[1])
		if err != nil {
			return err
		}

		bytes, err := vm.Mem.ReadBytes(a, 4)
		if err != nil {
			return err
		}

		vm.Reg.Set(reg(args, 0), ir.Word(addr.LittleEndian(bytes)))
	case ir.SB:
		a, err := vm.addressOf(args[1])
		if err != nil {
			return err
		}

		return vm.Mem.WriteBytes(a, []byte{byte(vm.Reg.Get(reg(args, 0)))})
	case ir.SH:
		a, err := vm.addressOf(args[1])
		if err != nil {
			return err
		}

		v := uint16(vm.Reg.Get(reg(args, 0)))

		return vm.Mem.WriteBytes(a, []byte{byte(v), byte(v >> 8)})
	case ir.SW:
		a, err := vm.addressOf(args[1])
		if err != nil {
			return err
		}

		buf := make([]byte, 4)
		addr.PutLittleEndian(buf, uint32(vm.Reg.Get(reg(args, 0))))

		return vm.Mem.WriteBytes(a, buf)

	case ir.J:
		target, err := vm.addressOf(args[0])
		if err != nil {
			return err
		}

		vm.PC = target
	case ir.JAL:
		target, err := vm.addressOf(args[0])
		if err != nil {
			return err
		}

		vm.Reg.Set(ir.Ra, ir.Word(vm.PC))
		vm.PC = target

	case ir.LI:
		vm.Reg.Set(reg(args, 0), ir.Word(uint32(immArg(args, 1))))
	case ir.LA:
		target, err := vm.addressOf(args[1])
		if err != nil {
			return err
		}

		vm.Reg.Set(reg(args, 0), ir.Word(target))
	case ir.MOVE:
		vm.Reg.Set(reg(args, 0), vm.Reg.Get(reg(args, 1)))
	case ir.NOP:
		// no-op

	default:
		return fmt.Errorf("%w: unhandled opcode %s at %s", mem.ErrInvalidInstruction, instr.Kind, at)
	}

	return nil
}

// branch resolves the target operand at args[i] — a Label (looked up in the label table) or a raw
// signed byte displacement (Immediate) — and sets pc accordingly (spec §4.5).
func (vm *VM) branch(args []ir.Operand, i int, at addr.Address) error {
	op := args[i]

	switch op.Kind {
	case ir.OperandLabel:
		target, ok := vm.Mem.Labels[op.Label]
		if !ok {
			return &mem.LabelError{Label: op.Label}
		}

		vm.PC = target
	case ir.OperandImmediate:
		vm.PC = vm.PC.AddSigned(int64(op.Imm))
	default:
		return fmt.Errorf("%w: invalid branch operand at %s", mem.ErrInvalidInstruction, at)
	}

	return nil
}

func (vm *VM) loadByte(args []ir.Operand, i int) (byte, error) {
	a, err := vm.addressOf(args[i])
	if err != nil {
		return 0, err
	}

	b, err := vm.Mem.ReadBytes(a, 1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (vm *VM) loadHalf(args []ir.Operand, i int) (uint16, error) {
	a, err := vm.addressOf(args[i])
	if err != nil {
		return 0, err
	}

	b, err := vm.Mem.ReadBytes(a, 2)
	if err != nil {
		return 0, err
	}

	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// addressOf implements load_address (spec §4.5): resolves an operand to an address.
func (vm *VM) addressOf(op ir.Operand) (addr.Address, error) {
	switch op.Kind {
	case ir.OperandImmediate:
		return addr.Address(uint32(op.Imm)), nil
	case ir.OperandRegister:
		return addr.Address(vm.Reg.Get(op.Reg)), nil
	case ir.OperandRegisterOffset:
		base := addr.Address(vm.Reg.Get(op.Reg))
		return base.AddSigned(int64(op.Imm)), nil
	case ir.OperandLabel:
		a, ok := vm.Mem.Labels[op.Label]
		if !ok {
			return 0, &mem.LabelError{Label: op.Label}
		}

		return a, nil
	default:
		return 0, fmt.Errorf("%w: unknown operand kind", mem.ErrInvalidInstruction)
	}
}

func reg(args []ir.Operand, i int) ir.Register {
	if i >= len(args) {
		return ir.Zero
	}

	return args[i].Reg
}

func immArg(args []ir.Operand, i int) int32 {
	if i >= len(args) {
		return 0
	}

	return args[i].Imm
}

func boolWord(b bool) ir.Word {
	if b {
		return 1
	}

	return 0
}

package cpu

// vm.go assembles the VM: register file, memory and the two syscall-facing streams, built through
// an OptionFn pipeline the way the teacher's LC3 builder works.

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"mipsvm/internal/addr"
	"mipsvm/internal/ir"
	"mipsvm/internal/log"
	"mipsvm/internal/mem"
)

// VM holds the machine's entire architectural state: registers, memory and the program counter.
type VM struct {
	PC  addr.Address
	Reg Registers
	Mem *mem.Memory
	log *log.Logger

	Stdin  *bufio.Reader
	stdout *bufio.Writer

	halted bool
}

// OptionFn configures a VM during New. Options run in the order given.
type OptionFn func(*VM) error

// New builds a VM, applying each option in turn.
func New(opts ...OptionFn) (*VM, error) {
	vm := &VM{
		log:    log.DefaultLogger(),
		Stdin:  bufio.NewReader(os.Stdin),
		stdout: bufio.NewWriter(os.Stdout),
	}

	vm.Mem = mem.New(vm.log)

	for _, opt := range opts {
		if err := opt(vm); err != nil {
			return nil, err
		}
	}

	return vm, nil
}

// WithLogger sets the VM's logger, and its memory's.
func WithLogger(logger *log.Logger) OptionFn {
	return func(vm *VM) error {
		vm.log = logger
		vm.Mem = mem.New(logger)

		return nil
	}
}

// WithStreams overrides the syscall-facing stdin/stdout streams.
func WithStreams(in io.Reader, out io.Writer) OptionFn {
	return func(vm *VM) error {
		vm.Stdin = bufio.NewReader(in)
		vm.stdout = bufio.NewWriter(out)

		return nil
	}
}

// WithProgram loads prog into the VM's memory, sets PC to the resolved entry point and initializes
// $sp and $gp the way MARS/SPIM do (spec §1): $sp at the top of the stack, $gp at the fixed static
// data offset. Both are ordinary registers; a program is free to overwrite them.
func WithProgram(prog *ir.Program) OptionFn {
	return func(vm *VM) error {
		if err := vm.Mem.Load(prog); err != nil {
			return err
		}

		vm.PC = EntryPoint(prog, vm.Mem.Labels)
		vm.Reg.Set(ir.Sp, ir.Word(vm.Mem.Stack.Start))
		vm.Reg.Set(ir.Gp, ir.Word(mem.GlobalPointerDefault))

		return nil
	}
}

// EntryPoint resolves the first label containing "main", "entry" or "start" (case-sensitive
// substring match, in program order); falling back to the first instruction in .text (spec §6).
func EntryPoint(prog *ir.Program, labels mem.LabelMap) addr.Address {
	for _, b := range prog.Text {
		if b.Label == "" {
			continue
		}

		if strings.Contains(b.Label, "main") || strings.Contains(b.Label, "entry") || strings.Contains(b.Label, "start") {
			if a, ok := labels[b.Label]; ok {
				return a
			}
		}
	}

	return mem.TextStart
}

// ErrHalted is returned by Step once the VM has exited via syscall 10/17.
var ErrHalted = errors.New("halted")

// Halted reports whether the VM has exited.
func (vm *VM) Halted() bool { return vm.halted }

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"mipsvm/internal/cli"
	"mipsvm/internal/log"
	"mipsvm/internal/mem"
	"mipsvm/internal/parse"
)

// Asm builds the "asm" command: assemble a source file to its encoded instruction words without
// executing it, the encoder half of spec §4.4 exposed standalone.
func Asm() cli.Command {
	return new(asmCmd)
}

type asmCmd struct {
	outputPath string
}

func (asmCmd) Description() string { return "assemble a MIPS program to machine words" }

func (asmCmd) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `
asm [ -out FILE ] <file>

Parse and encode a MIPS assembly file, printing one line per instruction: its address, its
encoded word as a hexadecimal value, and the instruction.`)

	return err
}

func (a *asmCmd) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	fs.StringVar(&a.outputPath, "out", "", "output path (default: stdout)")

	return fs
}

func (a asmCmd) Run(_ context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(out, "asm: expected exactly one file argument")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintln(out, err)
		return 2
	}
	defer f.Close()

	p := parse.New(logger)
	if err := p.Parse(f); err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	prog := p.Program()
	m := mem.New(logger)

	if err := m.Load(prog); err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	dest := out

	if a.outputPath != "" {
		w, err := os.Create(a.outputPath)
		if err != nil {
			fmt.Fprintln(out, err)
			return 2
		}
		defer w.Close()

		dest = w
	}

	at := mem.TextStart
	words, instrs := m.Words(), m.Instructions()

	for i, word := range words {
		fmt.Fprintf(dest, "%s: %08x  %s\n", at, word, instrs[i])
		at = at.Add(4)
	}

	return 0
}

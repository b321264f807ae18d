package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"mipsvm/internal/cli"
	"mipsvm/internal/cpu"
	"mipsvm/internal/log"
)

// Run builds the "run" command: parse, load, execute starting at the entry point (spec §6).
func Run() cli.Command {
	return new(runCmd)
}

type runCmd struct {
	debug bool
	quiet bool
}

func (runCmd) Description() string { return "assemble and run a MIPS program" }

func (runCmd) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `
run [ -debug | -quiet ] <file>

Parse, load and execute a MIPS assembly file starting at its entry point.`)

	return err
}

func (r *runCmd) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.BoolVar(&r.debug, "debug", false, "enable per-instruction debug logging")
	fs.BoolVar(&r.quiet, "quiet", false, "suppress informational logging")

	return fs
}

func (r runCmd) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(out, "run: expected exactly one file argument")
		return 1
	}

	switch {
	case r.quiet:
		log.LogLevel.Set(log.Error)
	case r.debug:
		log.LogLevel.Set(log.Debug)
	}

	machine, err := loadFile(args[0], logger, cpu.WithStreams(os.Stdin, out))
	if err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	if err := machine.Run(ctx); err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	return 0
}

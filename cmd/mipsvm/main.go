// mipsvm is a MIPS32 virtual machine: it assembles and executes MIPS assembly text against a
// paged, protected address space with MARS/SPIM-compatible syscalls.
package main

import (
	"context"
	"os"

	"mipsvm/internal/cli"
	"mipsvm/internal/cli/cmd"
)

func main() {
	commands := []cli.Command{
		cmd.Run(),
		cmd.Dump(),
		cmd.Asm(),
		cmd.Monitor(),
	}

	code := cli.New(context.Background()).
		WithLogger(os.Stderr).
		WithCommands(commands).
		WithHelp(cmd.Help(commands)).
		Execute(os.Args[1:])

	os.Exit(code)
}

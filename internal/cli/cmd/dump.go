package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"mipsvm/internal/cli"
	"mipsvm/internal/dump"
	"mipsvm/internal/log"
)

// Dump builds the "dump" command: write a memory snapshot of a loaded program before execution
// (spec §6).
func Dump() cli.Command {
	d := new(dumpCmd)
	d.shard = dump.DefaultShardSize

	return d
}

type dumpCmd struct {
	shard      uint
	compress   bool
	outputPath string
}

func (dumpCmd) Description() string { return "write a memory snapshot for a program, without running it" }

func (dumpCmd) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `
dump [ -shard N ] [ -compress ] [ -out FILE ] <file>

Parse and load a MIPS assembly file, then write a memory snapshot.`)

	return err
}

func (d *dumpCmd) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	fs.UintVar(&d.shard, "shard", dump.DefaultShardSize, "shard size in bytes (4-4096, must divide 4096)")
	fs.BoolVar(&d.compress, "compress", true, "omit all-zero shards")
	fs.StringVar(&d.outputPath, "out", "", "output path (default: stdout)")

	return fs
}

func (d dumpCmd) Run(_ context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(out, "dump: expected exactly one file argument")
		return 1
	}

	machine, err := loadFile(args[0], logger)
	if err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	snap, err := dump.Snapshot(machine.Mem, uint32(d.shard), d.compress)
	if err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	var buf bytes.Buffer
	if _, err := snap.WriteTo(&buf); err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	if d.outputPath == "" {
		_, err = out.Write(buf.Bytes())
	} else {
		err = os.WriteFile(d.outputPath, buf.Bytes(), 0o644)
	}

	if err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	return 0
}

package cmd

import (
	"fmt"
	"os"

	"mipsvm/internal/cpu"
	"mipsvm/internal/log"
	"mipsvm/internal/parse"
)

// loadFile parses path into a Program and builds a VM from it with the given extra options.
func loadFile(path string, logger *log.Logger, opts ...cpu.OptionFn) (*cpu.VM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	p := parse.New(logger)
	if err := p.Parse(f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	prog := p.Program()

	all := append([]cpu.OptionFn{cpu.WithLogger(logger)}, opts...)
	all = append(all, cpu.WithProgram(prog))

	return cpu.New(all...)
}

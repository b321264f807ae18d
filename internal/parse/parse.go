// Package parse is a minimal, line-oriented assembler front end. It is an external collaborator
// to the core VM (spec §1, §6): it turns MIPS assembly text into the ir.Program the memory loader
// consumes, and nothing downstream depends on its internals surviving past that point.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"mipsvm/internal/ir"
	"mipsvm/internal/log"
)

var (
	space      = `[ \t]*`
	ident      = `([A-Za-z_.][A-Za-z0-9_.]*)`
	commentPat = regexp.MustCompile(`#.*$`)
	labelPat   = regexp.MustCompile(`^` + ident + `:`)
	sectionPat = regexp.MustCompile(`^\.(data|text)\b`)
	globalPat  = regexp.MustCompile(`^\.(global|globl)` + space + ident)
	dataDirPat = regexp.MustCompile(`^\.(asciiz|ascii|word|byte|space)` + space + `(.*)$`)
	instrPat   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)` + space + `(.*)$`)
)

// Parser accumulates a Program across one or more calls to Parse.
type Parser struct {
	log *log.Logger

	section string // "data" or "text"; "text" until the first section directive.

	data    []ir.StaticData
	blocks  []ir.Block
	globals []string

	pendingLabel string // label seen but not yet attached to a datum or instruction.
	lineNo       int
}

// New creates a Parser.
func New(logger *log.Logger) *Parser {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &Parser{log: logger, section: "text"}
}

// Parse reads assembly source from r, appending to the parser's accumulated state. Call Program
// once all sources have been parsed.
func (p *Parser) Parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		p.lineNo++

		if err := p.parseLine(scanner.Text()); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Program returns the accumulated Program. Call after all Parse calls complete.
func (p *Parser) Program() *ir.Program {
	return &ir.Program{Data: p.data, Text: p.blocks, Globals: p.globals}
}

func (p *Parser) parseLine(line string) error {
	line = commentPat.ReplaceAllString(line, "")

	if m := labelPat.FindStringSubmatch(line); m != nil {
		p.pendingLabel = m[1]
		line = line[len(m[0]):]
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return p.flushPendingLabel()
	}

	if m := sectionPat.FindStringSubmatch(line); m != nil {
		p.section = m[1]
		return p.flushPendingLabel()
	}

	if m := globalPat.FindStringSubmatch(line); m != nil {
		p.globals = append(p.globals, m[2])
		return p.flushPendingLabel()
	}

	if p.section == "data" {
		if m := dataDirPat.FindStringSubmatch(line); m != nil {
			return p.parseData(m[1], strings.TrimSpace(m[2]))
		}

		return &SyntaxError{Line: p.lineNo, Text: line, Err: fmt.Errorf("expected data directive")}
	}

	if m := instrPat.FindStringSubmatch(line); m != nil {
		return p.parseInstruction(strings.ToLower(m[1]), m[2])
	}

	return &SyntaxError{Line: p.lineNo, Text: line, Err: fmt.Errorf("unrecognized line")}
}

// flushPendingLabel attaches a label seen on an otherwise-empty or section-only line to an empty
// data entry or block, so a bare "loop:" line still creates an addressable point.
func (p *Parser) flushPendingLabel() error {
	if p.pendingLabel == "" {
		return nil
	}

	label := p.pendingLabel
	p.pendingLabel = ""

	if p.section == "data" {
		p.data = append(p.data, ir.StaticData{Label: label})
	} else {
		p.blocks = append(p.blocks, ir.Block{Label: label})
	}

	return nil
}

func (p *Parser) parseData(directive, arg string) error {
	label := p.pendingLabel
	p.pendingLabel = ""

	var bytes []byte

	switch directive {
	case "asciiz":
		s, err := unquote(arg)
		if err != nil {
			return &SyntaxError{Line: p.lineNo, Text: arg, Err: err}
		}

		bytes = append([]byte(s), 0)
	case "ascii":
		s, err := unquote(arg)
		if err != nil {
			return &SyntaxError{Line: p.lineNo, Text: arg, Err: err}
		}

		bytes = []byte(s)
	case "word":
		for _, field := range splitFields(arg) {
			v, err := parseImmediate(field)
			if err != nil {
				return &SyntaxError{Line: p.lineNo, Text: field, Err: err}
			}

			buf := make([]byte, 4)
			buf[0] = byte(v)
			buf[1] = byte(v >> 8)
			buf[2] = byte(v >> 16)
			buf[3] = byte(v >> 24)
			bytes = append(bytes, buf...)
		}
	case "byte":
		for _, field := range splitFields(arg) {
			v, err := parseImmediate(field)
			if err != nil {
				return &SyntaxError{Line: p.lineNo, Text: field, Err: err}
			}

			bytes = append(bytes, byte(v))
		}
	case "space":
		n, err := parseImmediate(arg)
		if err != nil {
			return &SyntaxError{Line: p.lineNo, Text: arg, Err: err}
		}

		bytes = make([]byte, n)
	}

	p.data = append(p.data, ir.StaticData{Label: label, Bytes: bytes})

	return nil
}

func (p *Parser) parseInstruction(mnemonic, operandText string) error {
	label := p.pendingLabel
	p.pendingLabel = ""

	op, ok := ir.Mnemonics[mnemonic]
	if !ok {
		return &SyntaxError{Line: p.lineNo, Text: mnemonic, Err: fmt.Errorf("unknown mnemonic")}
	}

	var operands []string
	if strings.TrimSpace(operandText) != "" {
		operands = splitFields(operandText)
	}

	args := make([]ir.Operand, 0, len(operands))

	for _, raw := range operands {
		operand, err := parseOperand(raw)
		if err != nil {
			return &SyntaxError{Line: p.lineNo, Text: raw, Err: err}
		}

		args = append(args, operand)
	}

	instr := ir.Instruction{Kind: op, Args: args}

	if label != "" || len(p.blocks) == 0 {
		p.blocks = append(p.blocks, ir.Block{Label: label})
	}

	last := &p.blocks[len(p.blocks)-1]
	last.Instructions = append(last.Instructions, instr)

	return nil
}

var offsetPat = regexp.MustCompile(`^(-?[\w]*)\(([^)]+)\)$`)

func parseOperand(s string) (ir.Operand, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "$") {
		r, err := ir.ParseRegister(s)
		if err != nil {
			return ir.Operand{}, err
		}

		return ir.Reg(r), nil
	}

	if m := offsetPat.FindStringSubmatch(s); m != nil {
		base, err := ir.ParseRegister(strings.TrimSpace(m[2]))
		if err != nil {
			return ir.Operand{}, err
		}

		disp := int64(0)

		if strings.TrimSpace(m[1]) != "" {
			v, err := parseImmediate(m[1])
			if err != nil {
				return ir.Operand{}, err
			}

			disp = v
		}

		return ir.Offset(int32(disp), base), nil
	}

	if v, err := parseImmediate(s); err == nil {
		return ir.Imm(int32(v)), nil
	}

	return ir.Label(s), nil
}

// parseImmediate parses a decimal, 0x-hex or 0b-binary integer literal (spec §6).
func parseImmediate(s string) (int64, error) {
	s = strings.TrimSpace(s)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var (
		v   uint64
		err error
	)

	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		v, err = strconv.ParseUint(s[2:], 2, 64)
	default:
		v, err = strconv.ParseUint(s, 10, 64)
	}

	if err != nil {
		return 0, err
	}

	n := int64(v)
	if neg {
		n = -n
	}

	return n, nil
}

// splitFields splits a comma-separated operand list, tolerating whitespace around commas.
func splitFields(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

// unquote interprets a double-quoted string literal with the C escape set \n \t \r \\ \" \0
// (spec §6).
func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)

	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("expected quoted string")
	}

	s = s[1 : len(s)-1]

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		c := s[i]

		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}

		i++

		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String(), nil
}

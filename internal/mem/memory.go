package mem

// memory.go is the memory controller: it owns the page table, the fixed segments and the label
// table, and implements Memory::load (spec §4.3) which consumes a Program exactly once.

import (
	"fmt"

	"mipsvm/internal/addr"
	"mipsvm/internal/encode"
	"mipsvm/internal/ir"
	"mipsvm/internal/log"
)

// LabelMap maps a label name to the one address it was assigned at load time.
type LabelMap map[string]addr.Address

// Resolve implements encode.Labels.
func (lm LabelMap) Resolve(name string) (addr.Address, bool) {
	a, ok := lm[name]
	return a, ok
}

// Memory is the machine's paged address space: a page table plus the fixed segments and the
// label table produced while loading a Program. It lives for the lifetime of the VM.
type Memory struct {
	Pages  *PageTable
	Labels LabelMap

	Text  Segment
	Data  Segment
	Heap  Segment
	Stack Segment
	mmio  []*Segment

	// words and instrs are the parallel, IR-by-index tables the interpreter fetches from,
	// indexed by (pc - Text.Start) / 4 (spec §9 design note). Program itself is discarded after
	// Load returns.
	words  []uint32
	instrs []ir.Instruction

	log *log.Logger
}

// New creates an empty Memory with segments not yet placed; call Load to populate it from a
// Program.
func New(logger *log.Logger) *Memory {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &Memory{
		Pages:  NewPageTable(logger),
		Labels: make(LabelMap),
		log:    logger,
	}
}

// Load lays out a Program into this Memory: data first, then text, then creates the heap and
// stack segments (spec §4.3, resolving Open Question #4 in favor of data-first).
func (m *Memory) Load(prog *ir.Program) error {
	if err := m.loadData(prog.Data); err != nil {
		return err
	}

	if err := m.loadText(prog.Text); err != nil {
		return err
	}

	m.Heap = Segment{Role: RoleHeap, Start: m.Data.End, End: m.Data.End}
	m.Stack = Segment{Role: RoleStack, Start: StackTop, End: StackTop}

	if m.Heap.End >= m.Stack.Start {
		return &AddressError{Kind: ErrInvalidHeap, Addr: m.Heap.End, Msg: "heap would collide with stack at load"}
	}

	m.log.Debug("memory loaded",
		"data", fmt.Sprintf("[%s,%s)", m.Data.Start, m.Data.End),
		"text", fmt.Sprintf("[%s,%s)", m.Text.Start, m.Text.End),
		"heap_start", m.Heap.Start,
		"stack_top", m.Stack.Start,
	)

	return nil
}

func (m *Memory) loadData(data []ir.StaticData) error {
	cursor := DataStart

	for _, d := range data {
		if d.Label != "" {
			m.Labels[d.Label] = cursor
		}

		if len(d.Bytes) == 0 {
			continue
		}

		startPage, endPage := cursor.PageNumber(), cursor.Add(addr.Address(len(d.Bytes)-1)).PageNumber()
		if err := m.Pages.Ensure(startPage, endPage, Read|Write); err != nil {
			return err
		}

		if err := m.Pages.WriteBytes(cursor, d.Bytes); err != nil {
			return err
		}

		cursor = cursor.Add(addr.Address(len(d.Bytes)))
	}

	m.Data = Segment{Role: RoleData, Start: DataStart, End: cursor}

	return nil
}

func (m *Memory) loadText(blocks []ir.Block) error {
	// First pass: size each block as 4 * instruction_count and record label -> address before any
	// encoding, so the encoder sees a fully populated label table (spec §9 design note).
	cursor := TextStart
	count := 0

	for _, b := range blocks {
		if b.Label != "" {
			m.Labels[b.Label] = cursor
		}

		for range b.Instructions {
			count++
			cursor = cursor.Add(4)
		}
	}

	if cursor > TextEnd {
		return &AddressError{Kind: ErrOutOfBounds, Addr: cursor, Msg: ".text exceeds upper bound"}
	}

	startPage := TextStart.PageNumber()
	endPage := startPage

	if count > 0 {
		endPage = cursor.Sub(4).PageNumber()
	}

	if err := m.Pages.Ensure(startPage, endPage, Read|Write); err != nil {
		return err
	}

	m.words = make([]uint32, count)
	m.instrs = make([]ir.Instruction, count)

	idx := 0
	at := TextStart

	for _, b := range blocks {
		for _, in := range b.Instructions {
			word, err := encode.Encode(in, at, m.Labels)
			if err != nil {
				return fmt.Errorf("encode at %s: %w", at, err)
			}

			buf := make([]byte, 4)
			addr.PutLittleEndian(buf, word)

			if err := m.Pages.WriteBytes(at, buf); err != nil {
				return err
			}

			m.words[idx] = word
			m.instrs[idx] = in

			idx++
			at = at.Add(4)
		}
	}

	m.Pages.SetProtection(startPage, endPage, Read|Execute)
	m.Text = Segment{Role: RoleText, Start: TextStart, End: cursor}

	return nil
}

// InstructionAt returns the decoded IR instruction whose address is pc, for use by the
// interpreter's fetch stage. pc must lie within the text segment.
func (m *Memory) InstructionAt(pc addr.Address) (ir.Instruction, error) {
	if !m.Text.Contains(pc) || pc.PageOffset()%4 != 0 {
		return ir.Instruction{}, &AddressError{Kind: ErrProtectionFault, Addr: pc, Msg: "fetch outside .text"}
	}

	idx := int(pc.Sub(m.Text.Start)) / 4
	if idx < 0 || idx >= len(m.instrs) {
		return ir.Instruction{}, &AddressError{Kind: ErrOutOfBounds, Addr: pc}
	}

	return m.instrs[idx], nil
}

// Words returns the encoded instruction words in text order, as produced by Load.
func (m *Memory) Words() []uint32 { return m.words }

// Instructions returns the IR instructions in text order, parallel to Words.
func (m *Memory) Instructions() []ir.Instruction { return m.instrs }

// RegisterMMIO attaches a read/write handler pair to an address range, which must lie within
// [0xFFFF0000, 0xFFFFFFFF] (spec §3, §4.3).
func (m *Memory) RegisterMMIO(start, end addr.Address, onRead ReadHandler, onWrite WriteHandler) error {
	if start < MMIOStart || end <= start {
		return &AddressError{Kind: ErrInvalidAddress, Addr: start, Msg: "mmio range outside reserved window"}
	}

	if err := m.Pages.Ensure(start.PageNumber(), end.Sub(1).PageNumber(), Read|Write); err != nil {
		return err
	}

	seg := &Segment{Role: RoleMMIO, Start: start, End: end, OnRead: onRead, OnWrite: onWrite}
	m.mmio = append(m.mmio, seg)

	return nil
}

func (m *Memory) mmioAt(a addr.Address) *Segment {
	for _, s := range m.mmio {
		if s.Contains(a) {
			return s
		}
	}

	return nil
}

// ReadBytes reads size bytes starting at a, routing through an MMIO handler one byte at a time
// when a falls in the MMIO window.
func (m *Memory) ReadBytes(a addr.Address, size uint32) ([]byte, error) {
	if seg := m.mmioAt(a); seg != nil {
		out := make([]byte, size)

		for i := uint32(0); i < size; i++ {
			b, err := seg.OnRead(a.Add(addr.Address(i)))
			if err != nil {
				return nil, err
			}

			out[i] = b
		}

		return out, nil
	}

	if err := m.ensureStackWindow(a, size); err != nil {
		return nil, err
	}

	return m.Pages.ReadBytes(a, size)
}

// WriteBytes writes data starting at a, routing through an MMIO handler one byte at a time when a
// falls in the MMIO window. .text pages are never writable post-load, so a write landing in
// .text surfaces ProtectionFault from the page table.
func (m *Memory) WriteBytes(a addr.Address, data []byte) error {
	if seg := m.mmioAt(a); seg != nil {
		for i, b := range data {
			if err := seg.OnWrite(a.Add(addr.Address(i)), b); err != nil {
				return err
			}
		}

		return nil
	}

	if err := m.ensureStackWindow(a, uint32(len(data))); err != nil {
		return err
	}

	return m.Pages.WriteBytes(a, data)
}

// ensureStackWindow backs the pages spanning [a, a+size) with R+W on demand when the range falls
// strictly between .heap.end and .stack top, the same allocate-as-you-descend behavior Push already
// gives the Push/Pop API (stack.go), extended to cover ordinary $sp-relative loads and stores
// (spec §4.6, §8 scenario 6). Addresses outside that window are left for the caller's normal
// SegmentFault/ProtectionFault handling.
func (m *Memory) ensureStackWindow(a addr.Address, size uint32) error {
	if size == 0 || a <= m.Heap.End {
		return nil
	}

	end := a.Add(addr.Address(size - 1))
	if end >= StackTop {
		return nil
	}

	if err := m.Pages.Ensure(a.PageNumber(), end.PageNumber(), Read|Write); err != nil {
		return err
	}

	if a.Less(m.Stack.Start) {
		m.Stack.Start = a
	}

	return nil
}

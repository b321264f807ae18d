package mem

// segment.go names the fixed address ranges of the process address space (spec §4.3) and their
// roles.

import "mipsvm/internal/addr"

// Fixed virtual addresses, MARS-compatible.
const (
	TextStart addr.Address = 0x00400000
	TextEnd   addr.Address = 0x0FFFFFFF // inclusive upper bound .text may not exceed.

	DataStart addr.Address = 0x10010000
	DataEnd   addr.Address = 0x7FFFFFFF

	StackTop addr.Address = 0x7FFFFFFF // descending; start == end == StackTop when empty.

	MMIOStart addr.Address = 0xFFFF0000
	MMIOEnd   addr.Address = 0xFFFFFFFF

	// GlobalPointerDefault is the $gp startup value MARS/SPIM use: a fixed offset into the static
	// data area, independent of how much .data a program actually declares.
	GlobalPointerDefault addr.Address = 0x10008000
)

// Role names a segment's purpose.
type Role int

const (
	RoleText Role = iota
	RoleData
	RoleHeap
	RoleStack
	RoleMMIO
)

func (r Role) String() string {
	switch r {
	case RoleText:
		return ".text"
	case RoleData:
		return ".data"
	case RoleHeap:
		return ".heap"
	case RoleStack:
		return ".stack"
	case RoleMMIO:
		return "mmio"
	default:
		return "?"
	}
}

// ReadHandler is invoked synchronously when an MMIO address is read; it must not re-enter the VM
// (spec §5).
type ReadHandler func(a addr.Address) (byte, error)

// WriteHandler is invoked synchronously when an MMIO address is written.
type WriteHandler func(a addr.Address, b byte) error

// Segment is a named, contiguous address range. Start and End bound the range as [Start, End); for
// the stack, which grows downward, Start tracks the current top and shrinks as pushes occur.
type Segment struct {
	Role  Role
	Start addr.Address
	End   addr.Address

	OnRead  ReadHandler
	OnWrite WriteHandler
}

// Contains reports whether a falls within [Start, End).
func (s *Segment) Contains(a addr.Address) bool {
	return a >= s.Start && a < s.End
}

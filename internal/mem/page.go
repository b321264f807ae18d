package mem

// page.go holds the page table: the paged backing store for the whole address space, keyed by
// page number, plus the R/W/X protection lattice.

import (
	"sort"

	"mipsvm/internal/addr"
	"mipsvm/internal/log"
)

// ProtectionLevel is a bitmask over the three orthogonal access rights (spec §9 design note:
// represent as bits, check with masks rather than enumerating eight variants).
type ProtectionLevel uint8

const (
	Read ProtectionLevel = 1 << iota
	Write
	Execute
)

func (p ProtectionLevel) String() string {
	s := [3]byte{'-', '-', '-'}

	if p&Read != 0 {
		s[0] = 'r'
	}

	if p&Write != 0 {
		s[1] = 'w'
	}

	if p&Execute != 0 {
		s[2] = 'x'
	}

	return string(s[:])
}

// Readable reports whether p grants read access.
func (p ProtectionLevel) Readable() bool { return p&Read != 0 }

// Writable reports whether p grants write access.
func (p ProtectionLevel) Writable() bool { return p&Write != 0 }

// Executable reports whether p grants execute access.
func (p ProtectionLevel) Executable() bool { return p&Execute != 0 }

// Page is a fixed 4 KiB cell of the address space plus its protection.
type Page struct {
	bytes [addr.PageSize]byte
	prot  ProtectionLevel
}

// PageTable maps page numbers to pages. Pages are zero-initialised on creation and never shrink or
// swap out; all allocated pages stay resident for the life of the table.
type PageTable struct {
	pages map[uint32]*Page
	log   *log.Logger
}

// NewPageTable creates an empty page table.
func NewPageTable(logger *log.Logger) *PageTable {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &PageTable{pages: make(map[uint32]*Page), log: logger}
}

// Ensure allocates a zeroed page with protection prot for every page in [startPage, endPage], when
// absent. If a page is already present, its protection must equal prot; otherwise Ensure fails with
// ErrProtectionFault (a "ProtectionMismatch" in spec terms).
func (pt *PageTable) Ensure(startPage, endPage uint32, prot ProtectionLevel) error {
	for pn := startPage; pn <= endPage; pn++ {
		if p, ok := pt.pages[pn]; ok {
			if p.prot != prot {
				return &AddressError{
					Kind: ErrProtectionFault,
					Addr: addr.FromPage(pn, 0),
					Msg:  "protection mismatch on ensure",
				}
			}

			continue
		}

		pt.pages[pn] = &Page{prot: prot}
	}

	return nil
}

// SetProtection overwrites the protection of existing pages in [startPage, endPage]. Pages that
// don't exist yet are silently allocated zeroed with the given protection, matching Ensure's
// allocate-on-demand behavior for promotion passes (e.g. .text R+X promotion after write).
func (pt *PageTable) SetProtection(startPage, endPage uint32, prot ProtectionLevel) {
	for pn := startPage; pn <= endPage; pn++ {
		p, ok := pt.pages[pn]
		if !ok {
			p = &Page{}
			pt.pages[pn] = p
		}

		p.prot = prot
	}
}

// WriteBytes writes data starting at a, across as many pages as needed. Every touched page must be
// Writable. An absent page is a SegmentFault; a present-but-unwritable page is a ProtectionFault.
func (pt *PageTable) WriteBytes(a addr.Address, data []byte) error {
	pos := 0

	for pos < len(data) {
		pn := a.PageNumber()
		off := a.PageOffset()

		p, ok := pt.pages[pn]
		if !ok {
			return &AddressError{Kind: ErrSegmentFault, Addr: a}
		}

		if !p.prot.Writable() {
			return &AddressError{Kind: ErrProtectionFault, Addr: a, Msg: "page not writable"}
		}

		n := copy(p.bytes[off:], data[pos:])
		pos += n
		a = a.Add(addr.Address(n))
	}

	return nil
}

// ReadBytes reads size bytes starting at a. Every touched page must be Readable; a page that has
// never been allocated within an otherwise-readable range is not a valid access here (callers that
// want zero-fill-on-unallocated supply a segment that pre-allocates its range at load time, per
// spec §4.2's "no page swap-out" note).
func (pt *PageTable) ReadBytes(a addr.Address, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, &AddressError{Kind: ErrInvalidSize, Addr: a, Msg: "zero-length read"}
	}

	out := make([]byte, 0, size)

	for uint32(len(out)) < size {
		pn := a.PageNumber()
		off := a.PageOffset()

		p, ok := pt.pages[pn]
		if !ok {
			return nil, &AddressError{Kind: ErrSegmentFault, Addr: a}
		}

		if !p.prot.Readable() {
			return nil, &AddressError{Kind: ErrProtectionFault, Addr: a, Msg: "page not readable"}
		}

		remaining := size - uint32(len(out))
		n := addr.PageSize - off

		if uint32(n) > remaining {
			n = remaining
		}

		out = append(out, p.bytes[off:uint32(off)+n]...)
		a = a.Add(addr.Address(n))
	}

	return out, nil
}

// Protection returns the protection of the page containing a, and whether that page exists.
func (pt *PageTable) Protection(a addr.Address) (ProtectionLevel, bool) {
	p, ok := pt.pages[a.PageNumber()]
	if !ok {
		return 0, false
	}

	return p.prot, true
}

// PageNumbers returns every allocated page number in ascending order.
func (pt *PageTable) PageNumbers() []uint32 {
	out := make([]uint32, 0, len(pt.pages))
	for pn := range pt.pages {
		out = append(out, pn)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

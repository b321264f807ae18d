// Package addr implements 32-bit virtual address arithmetic for the machine's address space.
//
// An Address is just a uint32, but wrapping it gives us a place to hang checked arithmetic and the
// page-number/offset split that the rest of the VM relies on. Addition, subtraction and the
// page/offset split never wrap silently: going outside [0, 2^32) is a programming error in this
// VM, not a user-triggerable condition, so it panics rather than returning an error (callers in
// this codebase only ever add small, program-controlled deltas to known-good addresses).
package addr

import "fmt"

// PageSize is the size, in bytes, of a single page of the virtual address space.
const PageSize = 0x1000 // 4 KiB

// PageShift is the number of bits in a page offset; PageSize == 1<<PageShift.
const PageShift = 12

// Address is a 32-bit virtual address.
type Address uint32

func (a Address) String() string {
	return fmt.Sprintf("%#08x", uint32(a))
}

// Add returns a + b, panicking if the result would overflow a 32-bit address.
func (a Address) Add(b Address) Address {
	sum := uint64(a) + uint64(b)
	if sum > 0xffffffff {
		panic(fmt.Sprintf("addr: overflow: %s + %s", a, b))
	}

	return Address(sum)
}

// AddSigned returns a shifted by a signed delta, panicking on overflow or underflow.
func (a Address) AddSigned(delta int64) Address {
	sum := int64(a) + delta
	if sum < 0 || sum > 0xffffffff {
		panic(fmt.Sprintf("addr: overflow: %s + %d", a, delta))
	}

	return Address(sum)
}

// Sub returns a - b, panicking if b is greater than a.
func (a Address) Sub(b Address) Address {
	if b > a {
		panic(fmt.Sprintf("addr: underflow: %s - %s", a, b))
	}

	return a - b
}

// Less reports whether a is ordered before b.
func (a Address) Less(b Address) bool { return a < b }

// PageNumber returns the page number containing the address: addr >> 12.
func (a Address) PageNumber() uint32 {
	return uint32(a) >> PageShift
}

// PageOffset returns the byte offset of the address within its page: addr & 0xfff.
func (a Address) PageOffset() uint32 {
	return uint32(a) & (PageSize - 1)
}

// PageBase returns the address of the first byte of the page containing a.
func (a Address) PageBase() Address {
	return Address(a.PageNumber() << PageShift)
}

// FromPage reconstructs an address from a page number and an in-page offset.
func FromPage(page uint32, offset uint32) Address {
	return Address(page<<PageShift | (offset & (PageSize - 1)))
}

// PutLittleEndian writes v into b[0:4] in little-endian order. b must have length >= 4.
func PutLittleEndian(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// LittleEndian reads a little-endian uint32 from b[0:4]. b must have length >= 4.
func LittleEndian(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

package mem

import "mipsvm/internal/addr"

// Allocate grows the heap by n bytes, returning the old break address (the sbrk convention, spec
// §4.7 syscall 9). Fails with ErrInvalidHeap if doing so would run into the stack.
func (m *Memory) Allocate(n uint32) (addr.Address, error) {
	newEnd := m.Heap.End.Add(addr.Address(n))

	if newEnd >= m.Stack.Start {
		return 0, &AddressError{Kind: ErrInvalidHeap, Addr: newEnd, Msg: "heap would collide with stack"}
	}

	if n > 0 {
		if err := m.Pages.Ensure(m.Heap.End.PageNumber(), newEnd.Sub(1).PageNumber(), Read|Write); err != nil {
			return 0, err
		}
	}

	result := m.Heap.End
	m.Heap.End = newEnd

	return result, nil
}

// Deallocate zero-fills n bytes at addr. There is no free list; this is bookkeeping only (spec
// §4.6, §9).
func (m *Memory) Deallocate(at addr.Address, n uint32) error {
	zeros := make([]byte, n)
	return m.Pages.WriteBytes(at, zeros)
}

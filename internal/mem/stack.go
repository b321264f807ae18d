package mem

// stack.go and heap.go implement spec §4.6: the stack grows down from StackTop, the
// heap grows up from the end of .data, and each checks it doesn't run into the other.

import "mipsvm/internal/addr"

// Push writes bytes below the current stack top and commits the new top, failing with
// ErrInvalidStack if doing so would run into the heap.
func (m *Memory) Push(data []byte) error {
	newStart := m.Stack.Start.Sub(addr.Address(len(data)))

	if newStart <= m.Heap.End {
		return &AddressError{Kind: ErrInvalidStack, Addr: newStart, Msg: "stack would collide with heap"}
	}

	if err := m.Pages.Ensure(newStart.PageNumber(), m.Stack.Start.Sub(1).PageNumber(), Read|Write); err != nil {
		return err
	}

	if err := m.Pages.WriteBytes(newStart, data); err != nil {
		return err
	}

	m.Stack.Start = newStart

	return nil
}

// Pop reads n bytes from the current stack top and advances the top upward by n.
func (m *Memory) Pop(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, &AddressError{Kind: ErrInvalidSize, Addr: m.Stack.Start, Msg: "zero-length pop"}
	}

	data, err := m.Pages.ReadBytes(m.Stack.Start, n)
	if err != nil {
		return nil, err
	}

	m.Stack.Start = m.Stack.Start.Add(addr.Address(n))

	return data, nil
}

// PushWord pushes a 4-byte little-endian word.
func (m *Memory) PushWord(w uint32) error {
	buf := make([]byte, 4)
	addr.PutLittleEndian(buf, w)

	return m.Push(buf)
}

// PopWord pops a 4-byte little-endian word.
func (m *Memory) PopWord() (uint32, error) {
	data, err := m.Pop(4)
	if err != nil {
		return 0, err
	}

	return addr.LittleEndian(data), nil
}

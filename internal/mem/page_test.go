package mem

import (
	"errors"
	"testing"

	"mipsvm/internal/addr"
	"mipsvm/internal/log"
)

func TestPageTableEnsureThenWriteRead(t *testing.T) {
	pt := NewPageTable(log.Discard())

	a := addr.Address(0x10010000)
	if err := pt.Ensure(a.PageNumber(), a.PageNumber(), Read|Write); err != nil {
		t.Fatalf("Ensure error: %v", err)
	}

	if err := pt.WriteBytes(a, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteBytes error: %v", err)
	}

	got, err := pt.ReadBytes(a, 4)
	if err != nil {
		t.Fatalf("ReadBytes error: %v", err)
	}

	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPageTableEnsureProtectionMismatch(t *testing.T) {
	pt := NewPageTable(log.Discard())

	a := addr.Address(0x00400000)
	if err := pt.Ensure(a.PageNumber(), a.PageNumber(), Read|Execute); err != nil {
		t.Fatalf("Ensure error: %v", err)
	}

	if err := pt.Ensure(a.PageNumber(), a.PageNumber(), Read|Write); !errors.Is(err, ErrProtectionFault) {
		t.Errorf("Ensure with mismatched protection error = %v, want ErrProtectionFault", err)
	}
}

func TestPageTableWriteUnallocatedIsSegmentFault(t *testing.T) {
	pt := NewPageTable(log.Discard())

	if err := pt.WriteBytes(addr.Address(0x10010000), []byte{1}); !errors.Is(err, ErrSegmentFault) {
		t.Errorf("WriteBytes to unallocated page error = %v, want ErrSegmentFault", err)
	}
}

func TestPageTableWriteUnwritableProtection(t *testing.T) {
	pt := NewPageTable(log.Discard())

	a := addr.Address(0x00400000)
	if err := pt.Ensure(a.PageNumber(), a.PageNumber(), Execute); err != nil {
		t.Fatalf("Ensure error: %v", err)
	}

	if err := pt.WriteBytes(a, []byte{1}); !errors.Is(err, ErrProtectionFault) {
		t.Errorf("WriteBytes to execute-only page error = %v, want ErrProtectionFault", err)
	}
}

func TestPageNumbersSorted(t *testing.T) {
	pt := NewPageTable(log.Discard())

	if err := pt.Ensure(5, 5, Read); err != nil {
		t.Fatalf("Ensure error: %v", err)
	}

	if err := pt.Ensure(2, 2, Read); err != nil {
		t.Fatalf("Ensure error: %v", err)
	}

	got := pt.PageNumbers()
	want := []uint32{2, 5}

	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("PageNumbers() = %v, want %v", got, want)
	}
}

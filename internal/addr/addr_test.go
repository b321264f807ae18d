package addr

import "testing"

func TestPageNumberOffset(t *testing.T) {
	tests := []struct {
		addr       Address
		wantPage   uint32
		wantOffset uint32
	}{
		{0x00400000, 0x00400, 0x000},
		{0x00400004, 0x00400, 0x004},
		{0x10010fff, 0x10010, 0xfff},
		{0x7FFFFFFF, 0x7ffff, 0xfff},
	}

	for _, tt := range tests {
		if got := tt.addr.PageNumber(); got != tt.wantPage {
			t.Errorf("PageNumber(%s) = %#x, want %#x", tt.addr, got, tt.wantPage)
		}

		if got := tt.addr.PageOffset(); got != tt.wantOffset {
			t.Errorf("PageOffset(%s) = %#x, want %#x", tt.addr, got, tt.wantOffset)
		}
	}
}

func TestFromPageRoundTrip(t *testing.T) {
	a := Address(0x10010123)

	got := FromPage(a.PageNumber(), a.PageOffset())
	if got != a {
		t.Errorf("FromPage round-trip = %s, want %s", got, a)
	}
}

func TestAddOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on overflow")
		}
	}()

	Address(0xfffffffe).Add(4)
}

func TestSubUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on underflow")
		}
	}()

	Address(0).Sub(1)
}

func TestLittleEndianRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	PutLittleEndian(buf, 0xDEADBEEF)

	if got := LittleEndian(buf); got != 0xDEADBEEF {
		t.Errorf("LittleEndian round-trip = %#x, want 0xdeadbeef", got)
	}

	if buf[0] != 0xEF || buf[3] != 0xDE {
		t.Errorf("PutLittleEndian byte order = % x, want EF .. .. DE", buf)
	}
}

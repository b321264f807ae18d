package dump

import (
	"bytes"
	"testing"

	"mipsvm/internal/ir"
	"mipsvm/internal/log"
	"mipsvm/internal/mem"
)

func loadedMemory(t *testing.T) *mem.Memory {
	t.Helper()

	m := mem.New(log.Discard())
	prog := &ir.Program{
		Data: []ir.StaticData{{Label: "val", Bytes: []byte{1, 2, 3, 4}}},
		Text: []ir.Block{{Label: "main", Instructions: []ir.Instruction{
			{Kind: ir.LI, Args: []ir.Operand{ir.Reg(ir.V0), ir.Imm(10)}},
			{Kind: ir.SYSCALL},
		}}},
	}

	if err := m.Load(prog); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	return m
}

func TestSnapshotCompressedSkipsZeroShards(t *testing.T) {
	m := loadedMemory(t)

	d, err := Snapshot(m, 256, true)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	for _, s := range d.Shards {
		if isZero(s.Data) {
			t.Errorf("compressed dump kept an all-zero shard at %s", s.Addr)
		}
	}
}

func TestSnapshotRawKeepsAllShards(t *testing.T) {
	m := loadedMemory(t)

	d, err := Snapshot(m, 256, false)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	pages := len(m.Pages.PageNumbers())
	shardsPerPage := 4096 / 256

	if got, want := len(d.Shards), pages*shardsPerPage; got != want {
		t.Errorf("raw dump has %d shards, want %d", got, want)
	}
}

func TestSnapshotInvalidShardSize(t *testing.T) {
	m := loadedMemory(t)

	if _, err := Snapshot(m, 3, false); err == nil {
		t.Error("expected error for shard size not dividing 4096")
	}

	if _, err := Snapshot(m, 5000, false); err == nil {
		t.Error("expected error for shard size exceeding page size")
	}
}

func TestWriteToCompressedLengthIncludesShardHeaders(t *testing.T) {
	m := loadedMemory(t)

	d, err := Snapshot(m, 256, true)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}

	if n != int64(buf.Len()) {
		t.Errorf("WriteTo returned %d, buffer has %d bytes", n, buf.Len())
	}

	wantLen := 0
	for _, s := range d.Shards {
		wantLen += 8 + len(s.Data)
	}

	if buf.Len() != wantLen {
		t.Errorf("compressed dump length = %d, want %d", buf.Len(), wantLen)
	}
}

func TestWriteToRawZeroFillsGaps(t *testing.T) {
	m := loadedMemory(t)

	d, err := Snapshot(m, 256, false)
	if err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}

	last := d.Shards[len(d.Shards)-1]
	wantLen := int64(last.Addr) - int64(d.Shards[0].Addr) + int64(len(last.Data))

	if int64(buf.Len()) != wantLen {
		t.Errorf("raw dump length = %d, want %d", buf.Len(), wantLen)
	}
}

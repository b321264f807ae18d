package mem

import (
	"errors"
	"testing"

	"mipsvm/internal/addr"
	"mipsvm/internal/ir"
	"mipsvm/internal/log"
)

func program() *ir.Program {
	return &ir.Program{
		Data: []ir.StaticData{
			{Label: "count", Bytes: []byte{0, 0, 0, 0}},
			{Label: "greeting", Bytes: []byte("hi\x00")},
			{Label: "empty"},
		},
		Text: []ir.Block{
			{
				Label: "main",
				Instructions: []ir.Instruction{
					{Kind: ir.LA, Args: []ir.Operand{ir.Reg(ir.T0), ir.Label("count")}},
					{Kind: ir.LW, Args: []ir.Operand{ir.Reg(ir.T1), ir.Offset(0, ir.T0)}},
					{Kind: ir.J, Args: []ir.Operand{ir.Label("main")}},
				},
			},
		},
	}
}

func TestLoadDataBeforeText(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if m.Data.Start != DataStart {
		t.Errorf("Data.Start = %s, want %s", m.Data.Start, DataStart)
	}

	if m.Text.Start != TextStart {
		t.Errorf("Text.Start = %s, want %s", m.Text.Start, TextStart)
	}
}

func TestLoadRecordsBareLabel(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if _, ok := m.Labels["empty"]; !ok {
		t.Error("bare label with no data bytes did not receive an address")
	}

	if _, ok := m.Labels["main"]; !ok {
		t.Error("text block label did not receive an address")
	}
}

func TestTextNotWritableAfterLoad(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if err := m.WriteBytes(m.Text.Start, []byte{0, 0, 0, 0}); !errors.Is(err, ErrProtectionFault) {
		t.Errorf("WriteBytes into .text error = %v, want ErrProtectionFault", err)
	}
}

func TestWordRoundTrip(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	at := m.Data.Start
	if err := m.WriteBytes(at, []byte{0xEF, 0xBE, 0xAD, 0xDE}); err != nil {
		t.Fatalf("WriteBytes error: %v", err)
	}

	got, err := m.ReadBytes(at, 4)
	if err != nil {
		t.Fatalf("ReadBytes error: %v", err)
	}

	if word := addr.LittleEndian(got); word != 0xDEADBEEF {
		t.Errorf("round-tripped word = %#x, want 0xdeadbeef", word)
	}
}

func TestHeapStackInvariant(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if !m.Heap.End.Less(m.Stack.Start) {
		t.Errorf("heap end %s must be below stack start %s", m.Heap.End, m.Stack.Start)
	}
}

func TestHeapAllocateCollidesWithStack(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	gap := uint32(m.Stack.Start.Sub(m.Heap.End))

	if _, err := m.Allocate(gap + 1); !errors.Is(err, ErrInvalidHeap) {
		t.Errorf("Allocate past stack error = %v, want ErrInvalidHeap", err)
	}
}

func TestStackPushPopRoundTrip(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if err := m.PushWord(0x12345678); err != nil {
		t.Fatalf("PushWord error: %v", err)
	}

	got, err := m.PopWord()
	if err != nil {
		t.Fatalf("PopWord error: %v", err)
	}

	if got != 0x12345678 {
		t.Errorf("PopWord = %#x, want 0x12345678", got)
	}
}

func TestStackCollidesWithHeap(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	gap := uint32(m.Stack.Start.Sub(m.Heap.End))

	if err := m.Push(make([]byte, gap)); !errors.Is(err, ErrInvalidStack) {
		t.Errorf("Push past heap error = %v, want ErrInvalidStack", err)
	}
}

func TestLabelResolveViaLoad(t *testing.T) {
	m := New(log.Discard())
	if err := m.Load(program()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	got, ok := m.Labels.Resolve("greeting")
	if !ok {
		t.Fatal("greeting label not resolved")
	}

	if got != m.Data.Start.Add(4) {
		t.Errorf("greeting resolved to %s, want %s", got, m.Data.Start.Add(4))
	}
}

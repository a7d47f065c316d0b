package mmu

import (
	"testing"

	"github.com/etsoc/shiresim/emu/ids"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/pma"
)

func newTestMMU(t *testing.T) (*MMU, *memory.DenseRegion) {
	t.Helper()
	mem := memory.NewMainMemory()
	dram := memory.NewDenseRegion("dram", pma.DRAMBase, 0x0010_0000, false)
	mem.AddRegion(dram)
	return New(mem, pma.NewETSOC1(), nil), dram
}

func TestDecodeATPBareOnUnknownMode(t *testing.T) {
	a := DecodeATP(uint64(5) << 60)
	if a.Mode != ModeBare {
		t.Errorf("expected bare mode for unsupported mode 5, got %v", a.Mode)
	}
}

func TestDecodeATPSv39(t *testing.T) {
	raw := uint64(8)<<60 | uint64(0x1234)
	a := DecodeATP(raw)
	if a.Mode != ModeSv39 {
		t.Errorf("expected Sv39, got %v", a.Mode)
	}
	if a.PPN != 0x1234 {
		t.Errorf("ppn = %#x, want 0x1234", a.PPN)
	}
}

func TestTranslateBareIdentity(t *testing.T) {
	m, _ := newTestMMU(t)
	req := Request{
		Vaddr:         pma.DRAMBase,
		Size:          8,
		Kind:          AccessLoad,
		ATP:           ATP{Mode: ModeBare},
		EffectiveMode: ids.PrivM,
		DRAMSizeBytes: 0x0010_0000,
	}
	paddr, err := m.Translate(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paddr != pma.DRAMBase {
		t.Errorf("paddr = %#x, want %#x", paddr, pma.DRAMBase)
	}
}

func TestReadWriteScalarRoundTrip(t *testing.T) {
	m, _ := newTestMMU(t)
	req := Request{
		Vaddr:         pma.DRAMBase + 0x100,
		Size:          4,
		Kind:          AccessStore,
		ATP:           ATP{Mode: ModeBare},
		EffectiveMode: ids.PrivM,
		DRAMSizeBytes: 0x0010_0000,
	}
	if err := m.WriteScalar(req, 0xcafef00d); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	req.Kind = AccessLoad
	v, err := m.ReadScalar(req)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if v != 0xcafef00d {
		t.Errorf("got %#x, want 0xcafef00d", v)
	}
}

func TestWalkRejectsInvalidPTE(t *testing.T) {
	m, dram := newTestMMU(t)
	_ = dram
	req := Request{
		Vaddr:         0x1000,
		Size:          8,
		Kind:          AccessLoad,
		ATP:           ATP{Mode: ModeSv39, PPN: (pma.DRAMBase) >> 12},
		EffectiveMode: ids.PrivS,
		DRAMSizeBytes: 0x0010_0000,
	}
	// Root page table is all zero (invalid PTEs): every walk must fault.
	_, err := m.Translate(req)
	if err != ErrPageFault {
		t.Errorf("expected page fault on all-zero root PT, got %v", err)
	}
}

func TestClassifyCrossLine(t *testing.T) {
	if got := ClassifyCrossLine(0, 32, 4); got != FullyInLine {
		t.Errorf("expected fully in line, got %v", got)
	}
	if got := ClassifyCrossLine(28, 8, 4); got != CrossesAtElementBoundary {
		t.Errorf("expected element-boundary cross, got %v", got)
	}
	if got := ClassifyCrossLine(30, 8, 4); got != CrossesMidElement {
		t.Errorf("expected mid-element cross, got %v", got)
	}
}

func TestAtomicRMW(t *testing.T) {
	m, _ := newTestMMU(t)
	req := Request{
		Vaddr:         pma.DRAMBase + 0x200,
		Size:          8,
		Kind:          AccessAtomic,
		ATP:           ATP{Mode: ModeBare},
		EffectiveMode: ids.PrivM,
		DRAMSizeBytes: 0x0010_0000,
	}
	old, err := m.AtomicRMW(req, func(cur uint64) uint64 { return cur + 5 })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if old != 0 {
		t.Errorf("expected initial value 0, got %d", old)
	}
	v, err := m.ReadScalar(Request{Vaddr: req.Vaddr, Size: 8, Kind: AccessLoad, ATP: req.ATP, EffectiveMode: ids.PrivM, DRAMSizeBytes: req.DRAMSizeBytes})
	if err != nil || v != 5 {
		t.Errorf("expected 5 after RMW, got %d err=%v", v, err)
	}
}

func TestAtomicRejectedOnScratchpad(t *testing.T) {
	m, _ := newTestMMU(t)
	req := Request{
		Vaddr:         pma.ScratchpadBase + 0x10,
		Size:          8,
		Kind:          AccessAtomic,
		ATP:           ATP{Mode: ModeBare},
		EffectiveMode: ids.PrivM,
	}
	_, err := m.AtomicRMW(req, func(cur uint64) uint64 { return cur })
	if err != ErrAccessFault {
		t.Errorf("expected access fault for atomic-to-scratchpad, got %v", err)
	}
}

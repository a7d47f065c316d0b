package elfload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/etsoc/shiresim/emu/memory"
)

func TestLoadRawPlacesBytesAtBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.bin")
	want := []byte{0x93, 0x00, 0x50, 0x00} // addi x1, x0, 5
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("writing test fixture: %v", err)
	}

	mem := memory.NewMainMemory()
	dram := memory.NewDenseRegion("dram", 0x1000, 0x1000, false)
	mem.AddRegion(dram)

	img, err := LoadRaw(path, 0x1000, mem)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if img.Entry != 0x1000 {
		t.Errorf("entry = %#x, want 0x1000", img.Entry)
	}

	v, err := mem.Read(0x1000, 4, nil)
	if err != nil {
		t.Fatalf("reading back loaded image: %v", err)
	}
	if uint32(v) != 0x00500093 {
		t.Errorf("loaded word = %#x, want 0x00500093", v)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	mem := memory.NewMainMemory()
	if _, err := Load(filepath.Join(t.TempDir(), "missing.elf"), mem); err == nil {
		t.Errorf("expected an error loading a nonexistent ELF")
	}
}

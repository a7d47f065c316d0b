/*
 * shiresim - ELF/raw image loader (§6.1): put a RV64 binary's loadable
 * segments into DRAM and report its entry point.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on the teacher's emu/assemble package, which also turns an
 * on-disk program image into words placed directly into memory before the
 * CPU starts; the mechanism here is debug/elf's program-header walk rather
 * than a line assembler, since the boot image for this chip is a compiled
 * RV64 ELF rather than hand-assembled S/370 text.
 */
package elfload

import (
	"debug/elf"
	"fmt"
	"os"

	"github.com/etsoc/shiresim/emu/memory"
)

// Image describes what was loaded, for the caller to seed hart PCs with.
type Image struct {
	Entry uint64
}

// Load reads the ELF file at path and writes every PT_LOAD segment's
// file-backed bytes into mem at the segment's physical address. Segments
// are expected to target DRAM; any other destination is a configuration
// error this chip's boot ROM would never produce.
func Load(path string, mem *memory.MainMemory) (Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("elfload: %w", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_RISCV {
		return Image{}, fmt.Errorf("elfload: %s is not a 64-bit RISC-V ELF", path)
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return Image{}, fmt.Errorf("elfload: reading segment at %#x: %w", prog.Paddr, err)
		}
		if err := mem.Init(prog.Paddr, data); err != nil {
			return Image{}, fmt.Errorf("elfload: loading segment at %#x: %w", prog.Paddr, err)
		}
	}

	return Image{Entry: f.Entry}, nil
}

// LoadRaw places a flat binary at base, for boot images with no ELF
// headers (the validation-harness images this chip's test suite uses).
func LoadRaw(path string, base uint64, mem *memory.MainMemory) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("elfload: %w", err)
	}
	if err := mem.Init(base, data); err != nil {
		return Image{}, fmt.Errorf("elfload: loading raw image at %#x: %w", base, err)
	}
	return Image{Entry: base}, nil
}

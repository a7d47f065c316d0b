/*
 * shiresim - MMU: Sv39/Sv48 page walker, PMA wrapping, and typed
 * scalar/vector/tensor/atomic memory accessors (§4.3, §4.4).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's emu/memory read/write entry
 * points (a small set of typed, width-dispatching accessor functions
 * sitting in front of the raw byte bus) generalized with a translation
 * stage and PMA gate in front of the existing emu/memory bus.
 */
package mmu

import (
	"errors"

	"github.com/etsoc/shiresim/emu/ids"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/observer"
	"github.com/etsoc/shiresim/emu/pma"
)

// ErrPageFault, ErrAccessFault and ErrBusFault classify a failed access;
// callers (the decode/execute layer) translate these into the appropriate
// trap cause.
var (
	ErrPageFault   = errors.New("mmu: page fault")
	ErrAccessFault = errors.New("mmu: access fault")
	ErrBusFault    = errors.New("mmu: bus fault")
	ErrMisaligned  = errors.New("mmu: misaligned access")
)

// TranslationMode is the atp.mode field (shared encoding between
// satp/matp, §4.3/§4.5).
type TranslationMode int

const (
	ModeBare TranslationMode = iota
	ModeSv39
	ModeSv48
)

// ATP is the decoded form of satp/matp: mode, address space id, and root
// page table physical page number.
type ATP struct {
	Mode TranslationMode
	ASID uint64
	PPN  uint64
}

// DecodeATP extracts mode/asid/ppn from a raw satp/matp value. Mode
// encoding mirrors upstream RISC-V Sv39=8, Sv48=9, Bare=0; anything else
// is treated as Bare (WARL, per §4.5 "writable only to supported modes").
func DecodeATP(raw uint64) ATP {
	mode := (raw >> 60) & 0xF
	a := ATP{ASID: (raw >> 44) & 0xFFFF, PPN: raw & ((1 << 44) - 1)}
	switch mode {
	case 8:
		a.Mode = ModeSv39
	case 9:
		a.Mode = ModeSv48
	default:
		a.Mode = ModeBare
	}
	return a
}

// AccessKind mirrors pma.AccessKind for the translation-level request (the
// MMU and PMA share one taxonomy so a single Request value flows through
// both stages).
type AccessKind = pma.AccessKind

const (
	AccessFetch  = pma.AccessFetch
	AccessLoad   = pma.AccessLoad
	AccessStore  = pma.AccessStore
	AccessAtomic = pma.AccessAtomic
	AccessTensor = pma.AccessTensor
	AccessCacheOp = pma.AccessCacheOp
)

// pageTableEntry is one Sv39/Sv48 8-byte PTE, decoded.
type pageTableEntry struct {
	valid, read, write, exec bool
	user                     bool
	global                   bool
	accessed, dirty          bool
	ppn                      uint64
}

func decodePTE(raw uint64) pageTableEntry {
	return pageTableEntry{
		valid:  raw&1 != 0,
		read:   raw&2 != 0,
		write:  raw&4 != 0,
		exec:   raw&8 != 0,
		user:   raw&16 != 0,
		global: raw&32 != 0,
		accessed: raw&64 != 0,
		dirty:    raw&128 != 0,
		ppn:      (raw >> 10) & ((1 << 44) - 1),
	}
}

func (p pageTableEntry) isLeaf() bool { return p.read || p.exec }

// levelConfig describes one Sv39/Sv48 walk: number of levels, bits per
// index, and the widened top-level index width (§4.3).
type levelConfig struct {
	levels      int
	topIndexBits int
}

func configFor(mode TranslationMode) (levelConfig, bool) {
	switch mode {
	case ModeSv39:
		return levelConfig{levels: 3, topIndexBits: 26}, true
	case ModeSv48:
		return levelConfig{levels: 4, topIndexBits: 17}, true
	default:
		return levelConfig{}, false
	}
}

const pteSize = 8
const pageBits = 12
const pageSize = 1 << pageBits
const idxBits = 9

// MMU wraps a physical memory bus and a PMA variant with Sv39/Sv48
// translation and the typed accessors instruction handlers call.
type MMU struct {
	Mem     *memory.MainMemory
	PMA     pma.Variant
	Obs     observer.Observer
}

func New(mem *memory.MainMemory, variant pma.Variant, obs observer.Observer) *MMU {
	if obs == nil {
		obs = observer.NopObserver{}
	}
	return &MMU{Mem: mem, PMA: variant, Obs: obs}
}

// Request carries everything the translate+PMA+bus pipeline needs for one
// access.
type Request struct {
	Vaddr          uint64
	Size           int
	Kind           AccessKind
	ATP            ATP
	EffectiveMode  ids.Privilege // MPRV-resolved for data, prv for fetch.
	MXR            bool
	SUM            bool
	RequesterShire int
	Secure         bool
	DRAMSizeBytes  uint64
	HartID         uint64 // For observer notifications only; not used by translation.
}

// Translate walks the page table (or passes through under Bare) and then
// runs the result through the PMA, returning the final physical address.
func (m *MMU) Translate(req Request) (uint64, error) {
	paddr := req.Vaddr
	cfg, walked := configFor(req.ATP.Mode)
	if req.ATP.Mode != ModeBare && req.EffectiveMode == ids.PrivM {
		// §4.3: "if current effective mode is M, use matp; otherwise satp" is
		// resolved by the caller selecting which ATP to pass in; M-mode with
		// Bare matp still falls through to the identity path below.
	}
	if walked {
		pa, err := m.walk(req, cfg)
		if err != nil {
			return 0, err
		}
		paddr = pa
	} else {
		// Bare: identity mapping. The reference truncates to 40 physical
		// bits, sized for a narrower address space than this chip's PMA
		// windows (up to bit 47); since Bare mode on this chip is how
		// M-mode code reaches ESR/scratchpad/service-processor windows
		// directly, truncating here would make those windows unreachable,
		// so identity is exact (see DESIGN.md Open Questions).
		paddr = req.Vaddr
	}

	res := m.PMA.Check(pma.Request{
		Vaddr:          req.Vaddr,
		Paddr:          paddr,
		Size:           req.Size,
		Kind:           req.Kind,
		RequesterShire: req.RequesterShire,
		Priv:           req.EffectiveMode,
		Secure:         req.Secure,
		DRAMSizeBytes:  req.DRAMSizeBytes,
	})
	if res.Fault == pma.FaultAccess {
		return 0, ErrAccessFault
	}
	if res.Fault == pma.FaultBus {
		return 0, ErrBusFault
	}
	return res.Paddr, nil
}

func vpn(vaddr uint64, level, topBits int, levels int) uint64 {
	if level == levels-1 {
		shift := pageBits + idxBits*level
		return (vaddr >> shift) & ((1 << topBits) - 1)
	}
	shift := pageBits + idxBits*level
	return (vaddr >> shift) & ((1 << idxBits) - 1)
}

func (m *MMU) walk(req Request, cfg levelConfig) (uint64, error) {
	ptBase := req.ATP.PPN << pageBits
	level := cfg.levels - 1
	var pte pageTableEntry
	for {
		idx := vpn(req.Vaddr, level, cfg.topIndexBits, cfg.levels)
		entryAddr := ptBase + idx*pteSize

		ptwRes := m.PMA.Check(pma.Request{
			Paddr: entryAddr, Size: pteSize, Kind: AccessLoad,
			RequesterShire: req.RequesterShire, Priv: ids.PrivM, Secure: req.Secure,
			DRAMSizeBytes: req.DRAMSizeBytes,
		})
		if ptwRes.Fault != pma.FaultNone {
			return 0, ErrAccessFault
		}

		raw, err := m.Mem.Read(ptwRes.Paddr, pteSize, nil)
		if err != nil {
			return 0, ErrBusFault
		}
		pte = decodePTE(raw)

		if !pte.valid || (!pte.read && pte.write) {
			return 0, ErrPageFault
		}
		if pte.isLeaf() {
			break
		}
		if level == 0 {
			return 0, ErrPageFault
		}
		ptBase = pte.ppn << pageBits
		level--
	}

	if !m.checkLeafPerm(req, pte) {
		return 0, ErrPageFault
	}
	if level > 0 {
		// Superpage: lower-level PPN bits must be zero (misaligned superpage
		// faults, §4.3).
		mask := uint64(1)<<(idxBits*level) - 1
		if pte.ppn&mask != 0 {
			return 0, ErrPageFault
		}
	}
	if !pte.accessed || (req.Kind == AccessStore && !pte.dirty) {
		return 0, ErrPageFault
	}

	pageOffset := req.Vaddr & (pageSize - 1)
	return (pte.ppn << pageBits) | pageOffset, nil
}

func (m *MMU) checkLeafPerm(req Request, pte pageTableEntry) bool {
	if req.Kind == AccessFetch {
		if !pte.exec {
			return false
		}
		if pte.user && req.EffectiveMode != ids.PrivU {
			return false
		}
		if !pte.user && req.EffectiveMode == ids.PrivU {
			return false
		}
		return true
	}
	needWrite := req.Kind == AccessStore || req.Kind == AccessAtomic
	if needWrite {
		if !pte.write {
			return false
		}
	} else {
		if !pte.read && !(req.MXR && pte.exec) {
			return false
		}
	}
	if pte.user && req.EffectiveMode == ids.PrivS && !req.SUM {
		return false
	}
	return true
}

/*
 * shiresim - Per-hart state: the hardware thread context.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's cpuState (emu/cpu/cpudefs.go):
 * one struct holding PC, general registers, FP registers, PSW-equivalent
 * flags and CSR-equivalent control fields, with plain exported-lowercase
 * fields accessed by sibling files in the same package rather than getters.
 */
package hart

import (
	"github.com/etsoc/shiresim/emu/ids"
)

// VLEN is the width in bits of the FP/vector register file and the tensor
// lane width the emulator realizes in Go; chosen (an Open Question per §9)
// to match the widest natural tensor access (256-bit) while keeping 128/512
// bit accesses as sub/multiples. See DESIGN.md.
const VLEN = 256

// MLEN is the width in bits of one mask register: one bit per byte lane of
// a VLEN-wide FP register (VLEN/8).
const MLEN = VLEN / 8

// Lifecycle is the hart's coarse state per §4.1.
type Lifecycle int

const (
	Nonexistent Lifecycle = iota
	Unavailable
	Running
	Halted
)

func (l Lifecycle) String() string {
	switch l {
	case Nonexistent:
		return "nonexistent"
	case Unavailable:
		return "unavailable"
	case Running:
		return "running"
	case Halted:
		return "halted"
	default:
		return "?"
	}
}

// SchedSet is which of the three scheduler sets a Running hart belongs to.
type SchedSet int

const (
	SetNone SchedSet = iota
	SetActive
	SetAwaking
	SetSleeping
)

// Waiting reasons, one bit each, combined into a bitmask (§3.2).
const (
	WaitTLoad0 = 1 << iota
	WaitTLoad1
	WaitTLoadTenB
	WaitTLoadL20
	WaitTLoadL21
	WaitTFMA
	WaitReduce
	WaitTQuant
	WaitTStore
	WaitCredit0
	WaitCredit1
	WaitInterrupt
)

// FetchLine is the 32-byte tagged fetch-line cache (§3.2, §4.2).
type FetchLine struct {
	Valid bool
	Tag   uint64 // PC-aligned base address of the cached line.
	Data  [32]byte
}

// DebugState is the per-hart debug-mode register set (§4.1, §7).
type DebugState struct {
	DCSR    uint64
	DPC     uint64
	DData0  uint64
	ProgBuf [2]uint64 // Two-word program buffer, per §4.6 progbuf ESRs.
}

// Hart is one hardware thread's complete architectural state.
type Hart struct {
	// Arena indices — never raw pointers, per the cross-component-reference
	// design note. A Hart finds its System/Core/Neighborhood/Shire only
	// through these.
	ShireIdx   int
	NeighIdx   int
	MinionIdx  int
	ThreadIdx  int
	MHartID    uint64

	PC  uint64
	NPC uint64

	X [32]uint64     // Integer register file.
	F [32][VLEN / 8]byte // FP/vector register file, lane-addressable.
	M [8]uint64      // Mask file, MLEN bits each (stored widened to uint64).

	Mode ids.Privilege // Current privilege mode (U/S/M).

	Fetch FetchLine

	// Standard RISC-V CSRs.
	MStatus  uint64
	MIE      uint64
	MIP      uint64
	MEDeleg  uint64
	MIDeleg  uint64
	MTVec    uint64
	STVec    uint64
	MEPC     uint64
	SEPC     uint64
	MCause   uint64
	SCause   uint64
	MTVal    uint64
	STVal    uint64
	MScratch uint64
	SScratch uint64
	FCSR     uint64 // fflags[4:0] | frm[7:5]
	MHPMCounters [32]uint64
	MHPMEvents   [32]uint64

	// Chip CSRs. satp/matp/mcache_control/ucache_control are per-hart
	// *views* backed by shared Core storage (§3.3); see emu/core.Core.
	TensorMask    uint64
	ConvSize      uint64
	ConvCtrl      uint64
	TensorCoop    uint64
	TensorError   uint64
	FLB           uint64
	FCC0          uint64
	FCC1          uint64
	PortCtrl      [4]uint64
	PortHead      [4]uint64
	PortHeadNB    [4]uint64
	GSCProgress   uint64
	Validation    [4]uint64

	Debug DebugState

	Waiting  uint32
	Life     Lifecycle
	Sched    SchedSet
	SchedPos int // Not maintained by emu/runtime; Scheduler.Wake finds a hart in its set by linear search.
}

// New constructs a hart at its arena position, fully Unavailable (cold-reset
// shape; callers apply cold_reset separately per §4.8).
func New(shireIdx, neighIdx, minionIdx, threadIdx int) *Hart {
	h := &Hart{
		ShireIdx:  shireIdx,
		NeighIdx:  neighIdx,
		MinionIdx: minionIdx,
		ThreadIdx: threadIdx,
		Life:      Unavailable,
	}
	h.MHartID = ids.GlobalHartID(shireIdx, ids.LocalThread(neighIdx, minionIdx, threadIdx))
	return h
}

// X0 always reads zero; WriteX is the only mutator and enforces it (§3.2
// invariant (d)).
func (h *Hart) WriteX(i int, v uint64) {
	if i == 0 {
		return
	}
	h.X[i] = v
}

func (h *Hart) ReadX(i int) uint64 {
	if i == 0 {
		return 0
	}
	return h.X[i]
}

// InvalidateFetchCache drops the cached line (MMU/MPROT/mstatus VM-bit
// change, or cache_invalidate CSR write, per §3.2).
func (h *Hart) InvalidateFetchCache() {
	h.Fetch.Valid = false
}

// EffectivePrivData is the privilege used for a data access: MPP under
// MPRV, else the current mode (§4.3).
func (h *Hart) EffectivePrivData() ids.Privilege {
	const mprv = 1 << 17
	const mppShift = 11
	if h.MStatus&mprv != 0 {
		return ids.Privilege((h.MStatus >> mppShift) & 0x3)
	}
	return h.Mode
}

// --- agent.Agent implementation ---
//
// Priv returns the effective data-access privilege (MPRV-aware), since
// that is what every memory/ESR gate actually wants; fetches use Mode
// directly instead of going through the agent.Agent interface (§4.3: "for
// fetches it is always prv").

func (h *Hart) Priv() ids.Privilege      { return h.EffectivePrivData() }
func (h *Hart) ShireIndex() int          { return h.ShireIdx }
func (h *Hart) IsServiceProcessor() bool { return ids.ShireIndexToID(h.ShireIdx) == ids.IOShireID }
func (h *Hart) IsHart() bool             { return true }

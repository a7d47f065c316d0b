/*
 * shiresim - Per-neighborhood and per-shire ESR state (§3.4), plus the
 * per-neighborhood cooperative tensor-load table (§3.5).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's per-device-state structs:
 * plain exported fields grouped by owning component, array-of-struct
 * banks rather than maps, sibling-package field access.
 */
package shire

import "github.com/etsoc/shiresim/emu/ids"

// MinionsPerShire bitset width for cooperative-load participant sets.
const minionsPerShireBits = ids.MinionsPerShire

// Bitset is a bitset<MINIONS_PER_SHIRE> realized as a plain uint32 (32 >=
// MinionsPerShire).
type Bitset uint32

func (b Bitset) None() bool         { return b == 0 }
func (b Bitset) Has(i int) bool     { return b&(1<<uint(i)) != 0 }
func (b *Bitset) Set(i int)         { *b |= 1 << uint(i) }
func (b *Bitset) Clear(i int)       { *b &^= 1 << uint(i) }
func (b *Bitset) ClearAll()         { *b = 0 }

// CoopTloadState is one cooperative-load-table entry: the full
// participant set and those not yet arrived (§3.5).
type CoopTloadState struct {
	All     Bitset
	Pending Bitset
}

// Free reports whether this entry is unused ("all.none()").
func (s *CoopTloadState) Free() bool { return s.All.None() }

// Arrive marks minion i as arrived, returning true once Pending becomes
// empty (the rendezvous condition for this entry).
func (s *CoopTloadState) Arrive(i int) bool {
	s.Pending.Clear(i)
	return s.Pending.None()
}

// Reset clears the entry back to free.
func (s *CoopTloadState) Reset() {
	s.All.ClearAll()
	s.Pending.ClearAll()
}

// CoopTloadTable is the per-neighborhood cooperative tensor-load table,
// indexed by the group id carried in the tensor_coop CSR (§3.5).
type CoopTloadTable struct {
	TLoadA [2][32]CoopTloadState
	TLoadB [32]CoopTloadState
}

func (t *CoopTloadTable) ClearAll() {
	for slot := range t.TLoadA {
		for i := range t.TLoadA[slot] {
			t.TLoadA[slot][i].Reset()
		}
	}
	for i := range t.TLoadB {
		t.TLoadB[i].Reset()
	}
}

// MProt is the neighborhood's DRAM PMP-like region plus I/O/PCIe/OSBox
// gating and secure-mode selector.
type MProt struct {
	DRAMBase   uint64
	DRAMSize   uint64
	IOEnable   bool
	PCIeEnable bool
	OSBoxEnable bool
	Secure     bool
}

// HartDebugStatus mirrors hactrl/hastatus0/hastatus1 (debug selection and
// halt status across the neighborhood's harts).
type HartDebugStatus struct {
	HActrl    uint64
	HAStatus0 uint64
	HAStatus1 uint64
}

// TextureUnit is the neighborhood's texture table/control/status block.
// The spec marks rasterizer-mode popcount as an uncovered subsystem stub
// (Open Question (a)); fields are carried but not exercised by any
// tensor/MMU path.
type TextureUnit struct {
	Table   [16]uint64
	Control uint64
	Status  uint64
}

// Neighborhood is the ESR state shared by a neighborhood's minions (§3.4).
type Neighborhood struct {
	ShireIdx int
	NeighIdx int

	ICacheErrLogInfo uint64
	IPIRedirectPC    uint64
	MinionBoot       uint64 // minion_boot reset-vector ESR; stored only, no reset copies it into a hart PC.
	MProt            MProt
	Debug            HartDebugStatus
	Texture          TextureUnit
	NeighChicken     uint64
	VMSPageSize      uint64
	PMUControl       uint64

	Coop CoopTloadTable
}

func NewNeighborhood(shireIdx, neighIdx int) *Neighborhood {
	return &Neighborhood{ShireIdx: shireIdx, NeighIdx: neighIdx}
}

// ShireCacheESRs is the four-bank L2/L3 control/error-log/perfmon block.
type ShireCacheESRs struct {
	Control  [4]uint64
	ErrorLog [4]uint64
	Perfmon  [4]uint64
}

// MinionFeature is the per-bit feature-enable mask for a shire's minions.
type MinionFeature uint32

const (
	FeatureML MinionFeature = 1 << iota
	FeatureGraphics
	FeatureCacheOps
	FeatureScratchpad
	FeatureLockUnlock
	FeatureMultithreadDisable
)

// ShireOtherESRs is the grab-bag shire-scope ESR block (§3.4).
type ShireOtherESRs struct {
	FastLocalBarrier  [32]uint64
	IPIRedirectFilter uint64
	IPIRedirectTrigger uint64
	PLLConfig         uint64
	DLLConfig         uint64
	CoopMode          bool
	Thread0Disable    bool
	Thread1Disable    bool
	MinionFeature     MinionFeature
	ShireConfig       uint64
	MtimeLocalTarget  uint64
	CacheRAMConfig    [4]uint64
	ClockGateControl  uint64
	ICachePrefetch    [4]uint64 // Indexed by privilege level.
}

// Shire is the ESR state owned at shire scope (§3.4).
type Shire struct {
	ShireIdx int

	CacheESRs    ShireCacheESRs
	OtherESRs    ShireOtherESRs
	BroadcastData uint64

	Neighborhoods []*Neighborhood
}

// New constructs a Shire with neighCount neighborhoods (4 for a compute
// shire, 1 for the I/O shire, per §3.1).
func New(shireIdx, neighCount int) *Shire {
	s := &Shire{ShireIdx: shireIdx, Neighborhoods: make([]*Neighborhood, neighCount)}
	for i := range s.Neighborhoods {
		s.Neighborhoods[i] = NewNeighborhood(shireIdx, i)
	}
	return s
}

// CoopModeEnabled reports whether cooperative tensor stores are legal on
// this shire (§4.7.2 requires shire_coop_mode for cooperative stores).
func (s *Shire) CoopModeEnabled() bool { return s.OtherESRs.CoopMode }

// BeginWarmReset resets ESRs to warm-reset defaults and clears every
// neighborhood's cooperative-TLoad tables (§4.8).
func (s *Shire) BeginWarmReset() {
	s.OtherESRs = ShireOtherESRs{}
	s.BroadcastData = 0
	for _, n := range s.Neighborhoods {
		n.Coop.ClearAll()
	}
}

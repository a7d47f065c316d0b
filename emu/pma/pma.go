/*
 * shiresim - Physical Memory Attributes checker.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on the teacher's chanDev.chanType-selected dispatch (a small
 * enum picks behavior once at channel-attach time, rather than a runtime
 * type switch per access) and on the §9 design note calling for a
 * table-driven trait with two implementations rather than macros.
 */
package pma

import "github.com/etsoc/shiresim/emu/ids"

// AccessKind distinguishes the operation requesting a physical access, since
// PMA rules (atomics/tensor-ops/cacheops allowed or not) depend on it.
type AccessKind int

const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
	AccessAtomic
	AccessTensor
	AccessCacheOp
)

// FaultKind reports why a PMA check failed.
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultAccess
	FaultBus
)

// Request bundles the parameters a PMA variant needs to make its decision.
type Request struct {
	Vaddr         uint64
	Paddr         uint64
	Size          int
	Kind          AccessKind
	RequesterShire int
	Priv          ids.Privilege
	Secure        bool
	DRAMSizeBytes uint64
}

// Result is what a variant returns: either the (possibly rewritten) physical
// address to use, or a fault.
type Result struct {
	Paddr uint64
	Fault FaultKind
}

// Variant is the PMA checker for one SoC configuration. Two implementations
// coexist per §4.3: Variant is a table-driven interface passed once to
// system.New (which hands it to the MMU), never switched at runtime.
type Variant interface {
	Check(req Request) Result
	// TruncateDRAM applies the controller's address-aliasing modulo the
	// installed DRAM size (§4.3, §8 round-trip law).
	TruncateDRAM(addr uint64, dramSizeBytes uint64) uint64
}

// TruncateDRAMAddr is the shared idempotent-truncation helper both variants
// use: addr modulo size, size a power of two.
func TruncateDRAMAddr(addr, size uint64) uint64 {
	if size == 0 {
		return addr
	}
	return addr % size
}

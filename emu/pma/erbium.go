/*
 * shiresim - PMA variant for the simpler Erbium SoC (MRAM/bootrom/sram/ESR/PLIC).
 *
 * Copyright 2026, shiresim contributors
 */
package pma

import "github.com/etsoc/shiresim/emu/ids"

const (
	ErbiumMRAMBase    = 0x0000_0000_8000_0000
	ErbiumMRAMSize    = 0x0000_0000_4000_0000
	ErbiumBootROMBase = 0x0000_0000_0000_0000
	ErbiumBootROMSize = 0x0000_0000_0001_0000
	ErbiumSRAMBase    = 0x0000_0000_1000_0000
	ErbiumSRAMSize    = 0x0000_0000_0010_0000
	ErbiumESRBase     = 0x0000_0000_4000_0000
	ErbiumESRSize     = 0x0000_0000_0040_0000
	ErbiumPLICBase    = 0x0000_0000_4400_0000
	ErbiumPLICSize    = 0x0000_0000_0040_0000
)

type erbiumVariant struct{}

// NewErbium returns the simplified PMA variant for Erbium-class tiles.
func NewErbium() Variant { return erbiumVariant{} }

func (erbiumVariant) TruncateDRAM(addr, size uint64) uint64 {
	return TruncateDRAMAddr(addr, size)
}

func (v erbiumVariant) Check(req Request) Result {
	switch {
	case req.Paddr >= ErbiumBootROMBase && req.Paddr < ErbiumBootROMBase+ErbiumBootROMSize:
		if req.Kind == AccessStore {
			return Result{Fault: FaultAccess}
		}
		return Result{Paddr: req.Paddr}
	case req.Paddr >= ErbiumSRAMBase && req.Paddr < ErbiumSRAMBase+ErbiumSRAMSize:
		if req.Kind == AccessTensor {
			return Result{Fault: FaultAccess}
		}
		return Result{Paddr: req.Paddr}
	case req.Paddr >= ErbiumESRBase && req.Paddr < ErbiumESRBase+ErbiumESRSize:
		if req.Kind == AccessTensor || req.Kind == AccessCacheOp {
			return Result{Fault: FaultAccess}
		}
		return Result{Paddr: req.Paddr}
	case req.Paddr >= ErbiumPLICBase && req.Paddr < ErbiumPLICBase+ErbiumPLICSize:
		if req.Priv == ids.PrivU {
			return Result{Fault: FaultAccess}
		}
		return Result{Paddr: req.Paddr}
	case req.Paddr >= ErbiumMRAMBase && req.Paddr < ErbiumMRAMBase+ErbiumMRAMSize:
		off := req.Paddr - ErbiumMRAMBase
		limit := req.DRAMSizeBytes
		if limit == 0 || limit > ErbiumMRAMSize {
			limit = ErbiumMRAMSize
		}
		return Result{Paddr: ErbiumMRAMBase + TruncateDRAMAddr(off, limit)}
	default:
		return Result{Fault: FaultBus}
	}
}

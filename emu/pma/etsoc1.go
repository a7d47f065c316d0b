/*
 * shiresim - PMA variant for the full chip ("ET-SoC-1 variant" of §6.3).
 *
 * Copyright 2026, shiresim contributors
 */
package pma

import "github.com/etsoc/shiresim/emu/ids"

// Physical layout for the full-chip variant. Each window is large enough
// to hold every shire's slice without overlap; ESR/scratchpad addresses are
// further decoded by the emu/system ESR plane once PMA has allowed the
// access through.
const (
	DRAMBase        = 0x0000_8000_0000_0000
	DRAMWindowSize  = 0x0000_0040_0000_0000 // 256GiB ceiling per §4.3 dram_size clamp.
	ScratchpadBase  = 0x0000_4000_0000_0000
	ScratchpadShireStride = 0x0000_0000_0010_0000
	ESRBase         = 0x0000_9000_0000_0000
	ESRWindowSize   = 0x0000_0000_1000_0000
	ServiceProcBase = 0x0000_A000_0000_0000
	ServiceProcSize = 0x0000_0000_0100_0000
	IOBase          = 0x0000_B000_0000_0000
	IOWindowSize    = 0x0000_0010_0000_0000
	PCIeBase        = 0x0000_C000_0000_0000
	PCIeWindowSize  = 0x0000_0040_0000_0000

	// DRAM secure-mode sub-windows (Mcode/Mdata/Scode/Sdata/OSbox), each an
	// equal slice of DRAMWindowSize.
	dramSecureSlices   = 5
	dramNonSecureSlices = 3 // Mbox/Sbox/OSbox.
)

type etsoc1Variant struct{}

// NewETSOC1 returns the full-chip PMA variant.
func NewETSOC1() Variant { return etsoc1Variant{} }

func (etsoc1Variant) TruncateDRAM(addr, size uint64) uint64 {
	return TruncateDRAMAddr(addr, size)
}

func (v etsoc1Variant) Check(req Request) Result {
	switch {
	case req.Paddr >= DRAMBase && req.Paddr < DRAMBase+DRAMWindowSize:
		return v.checkDRAM(req)
	case req.Paddr >= ScratchpadBase && req.Paddr < ScratchpadBase+uint64(ids.NeighPerShire*64)*ScratchpadShireStride:
		return v.checkScratchpad(req)
	case req.Paddr >= ESRBase && req.Paddr < ESRBase+ESRWindowSize:
		return v.checkESR(req)
	case req.Paddr >= ServiceProcBase && req.Paddr < ServiceProcBase+ServiceProcSize:
		return v.checkServiceProc(req)
	case req.Paddr >= IOBase && req.Paddr < IOBase+IOWindowSize:
		return v.checkIO(req)
	case req.Paddr >= PCIeBase && req.Paddr < PCIeBase+PCIeWindowSize:
		return v.checkPCIe(req)
	default:
		return Result{Fault: FaultBus}
	}
}

// checkDRAM subdivides DRAMWindowSize into dramSecureSlices (Mcode/Mdata/
// Scode/Sdata/OSbox) or dramNonSecureSlices (Mbox/Sbox/OSbox) equal slices
// depending on req.Secure, then truncates within the selected slice to
// req.DRAMSizeBytes (the host-backed dram region is far smaller than a
// slice, §4.3).
func (v etsoc1Variant) checkDRAM(req Request) Result {
	if req.Kind == AccessCacheOp {
		return Result{Fault: FaultAccess} // DRAM has no cache-op surface.
	}
	numSlices := uint64(dramNonSecureSlices)
	if req.Secure {
		numSlices = dramSecureSlices
	}
	sliceSize := DRAMWindowSize / numSlices
	off := req.Paddr - DRAMBase
	slice := off / sliceSize
	if slice >= numSlices {
		return Result{Fault: FaultAccess}
	}
	within := off % sliceSize
	limit := req.DRAMSizeBytes
	if limit == 0 || limit > sliceSize {
		limit = sliceSize
	}
	truncated := TruncateDRAMAddr(within, limit)
	return Result{Paddr: DRAMBase + slice*sliceSize + truncated}
}

func (v etsoc1Variant) checkScratchpad(req Request) Result {
	if req.Kind == AccessAtomic {
		// §4.4: local atomic variants disallow access to scratchpad.
		return Result{Fault: FaultAccess}
	}
	// Stride-swizzle normalization plus local-shire rewrite: addresses
	// targeting another shire's scratchpad are only valid with an explicit
	// shire selector; "local" accesses are rewritten onto the requester's
	// own slice.
	off := req.Paddr - ScratchpadBase
	shireSlot := off / ScratchpadShireStride
	within := off % ScratchpadShireStride
	if shireSlot == 0xFF && req.RequesterShire >= 0 {
		return Result{Paddr: ScratchpadBase + uint64(req.RequesterShire)*ScratchpadShireStride + within}
	}
	return Result{Paddr: req.Paddr}
}

func (v etsoc1Variant) checkESR(req Request) Result {
	// Privilege required is encoded in the address itself (PP field, §6.3);
	// the ESR plane re-derives and enforces it on top of this pass-through.
	if req.Kind == AccessTensor || req.Kind == AccessCacheOp {
		return Result{Fault: FaultAccess}
	}
	return Result{Paddr: req.Paddr}
}

func (v etsoc1Variant) checkServiceProc(req Request) Result {
	if req.RequesterShire >= 0 && ids.ShireIndexToID(req.RequesterShire) != ids.IOShireID && req.Priv != ids.PrivM {
		return Result{Fault: FaultAccess}
	}
	return Result{Paddr: req.Paddr}
}

func (v etsoc1Variant) checkIO(req Request) Result {
	if req.Priv == ids.PrivU {
		return Result{Fault: FaultAccess}
	}
	if req.Kind == AccessTensor {
		return Result{Fault: FaultAccess}
	}
	return Result{Paddr: req.Paddr}
}

func (v etsoc1Variant) checkPCIe(req Request) Result {
	if req.Priv == ids.PrivU {
		return Result{Fault: FaultAccess}
	}
	if req.Kind == AccessAtomic || req.Kind == AccessTensor {
		return Result{Fault: FaultAccess}
	}
	return Result{Paddr: req.Paddr}
}

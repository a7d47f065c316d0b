/*
 * shiresim - CSR plane: the csrget/csrset dispatch surface (§4.5).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's opcode dispatch table
 * (emu/cpu's instruction-to-handler map keyed by a numeric code)
 * generalized from opcode numbers to CSR numbers, each entry a pair of
 * get/set closures instead of one execute closure.
 */
package csr

import (
	"errors"

	"github.com/etsoc/shiresim/emu/core"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/ids"
)

// ErrIllegalCSR is raised for an unknown CSR number or a privilege
// violation, translated by the caller into an illegal-instruction trap.
var ErrIllegalCSR = errors.New("csr: illegal csr access")

// TensorLauncher is implemented by the tensor subsystem; csr depends on
// this narrow interface instead of importing emu/tensor, avoiding a
// hart/csr/tensor import cycle (writing a tensor CSR launches a
// coprocessor, per §4.5: "Writing tensor_fma/reduce/quant/load/store is
// the command channel").
type TensorLauncher interface {
	LaunchTLoad(h *hart.Hart, c *core.Core, slot int, value uint64)
	LaunchTStore(h *hart.Hart, c *core.Core, value uint64)
	LaunchTFMA(h *hart.Hart, c *core.Core, value uint64)
	LaunchTQuant(h *hart.Hart, c *core.Core, value uint64)
	LaunchTReduce(h *hart.Hart, c *core.Core, value uint64)
	Wait(h *hart.Hart, c *core.Core, target uint64)
}

// CSR numbers. Only the subset named by §4.5/§3.2/§3.6 is modeled; the
// full RISC-V privileged-spec numbering is not reproduced since nothing
// in the emulator switches on unlisted numbers.
const (
	CsrFFlags = 0x001
	CsrFRM    = 0x002
	CsrFCSR   = 0x003

	CsrSStatus = 0x100
	CsrSIE     = 0x104
	CsrSTVec   = 0x105
	CsrSScratch = 0x140
	CsrSEPC    = 0x141
	CsrSCause  = 0x142
	CsrSTVal   = 0x143
	CsrSIP     = 0x144
	CsrSATP    = 0x180

	CsrMStatus = 0x300
	CsrMIE     = 0x304
	CsrMTVec   = 0x305
	CsrMScratch = 0x340
	CsrMEPC    = 0x341
	CsrMCause  = 0x342
	CsrMTVal   = 0x343
	CsrMIP     = 0x344
	CsrMEDeleg = 0x302
	CsrMIDeleg = 0x303

	CsrMATP = 0x7C0 // Chip-specific: machine-mode address translation (shared at Core).

	CsrMCacheControl = 0x7C1
	CsrUCacheControl = 0x7C2
	CsrTensorMask    = 0x7C3
	CsrConvSize      = 0x7C4
	CsrConvCtrl      = 0x7C5
	CsrTensorCoop    = 0x7C6
	CsrTensorError   = 0x7C7
	CsrFLB           = 0x7C8
	CsrFCC0          = 0x7C9
	CsrFCC1          = 0x7CA
	CsrGSCProgress   = 0x7CB
	CsrStall         = 0x7CC
	CsrCacheInvalidate = 0x7CD

	CsrTensorLoadA0 = 0x7D0
	CsrTensorLoadA1 = 0x7D1
	CsrTensorLoadB  = 0x7D2
	CsrTensorStore  = 0x7D3
	CsrTensorFMA    = 0x7D4
	CsrTensorQuant  = 0x7D5
	CsrTensorReduce = 0x7D6
	CsrTensorWait   = 0x7D7

	CsrValidation0 = 0x7E0
	CsrValidation1 = 0x7E1
	CsrValidation2 = 0x7E2
	CsrValidation3 = 0x7E3

	csrBase = 0x7C0
)

func mhpmcounter(n int) int { return 0xB00 + n }
func mhpmevent(n int) int   { return 0x320 + n }

const (
	mstatusFSShift = 13
	mstatusFSMask  = 0x3 << mstatusFSShift
	mstatusMPRV    = 1 << 17
)

// fsActive reports whether mstatus.FS is non-zero (FP state active),
// gating fflags/frm/fcsr per §4.5.
func fsActive(h *hart.Hart) bool { return h.MStatus&mstatusFSMask != 0 }

func privOf(csrNum int) ids.Privilege {
	return ids.Privilege((csrNum >> 8) & 0x3)
}

// Context bundles everything a CSR access needs: the requesting hart, its
// Core (for the four Core-shared CSRs), and the tensor subsystem to
// dispatch command-channel writes into.
type Context struct {
	Hart    *hart.Hart
	Core    *core.Core
	Tensor  TensorLauncher
}

// Get implements csrget: read the current value of csr, honoring
// privilege and FP-state gating.
func Get(ctx Context, csrNum int) (uint64, error) {
	h := ctx.Hart
	if ctx.Hart.Mode < privOf(csrNum) {
		return 0, ErrIllegalCSR
	}
	switch csrNum {
	case CsrFFlags:
		if !fsActive(h) {
			return 0, ErrIllegalCSR
		}
		return h.FCSR & 0x1F, nil
	case CsrFRM:
		if !fsActive(h) {
			return 0, ErrIllegalCSR
		}
		return (h.FCSR >> 5) & 0x7, nil
	case CsrFCSR:
		if !fsActive(h) {
			return 0, ErrIllegalCSR
		}
		return h.FCSR & 0xFF, nil

	case CsrSStatus:
		return sstatusWindow(h.MStatus), nil
	case CsrSIE:
		return h.MIE & h.MIDeleg, nil
	case CsrSIP:
		return h.MIP & h.MIDeleg, nil
	case CsrSTVec:
		return h.STVec, nil
	case CsrSScratch:
		return h.SScratch, nil
	case CsrSEPC:
		return h.SEPC, nil
	case CsrSCause:
		return h.SCause, nil
	case CsrSTVal:
		return h.STVal, nil
	case CsrSATP:
		return ctx.Core.SATP, nil

	case CsrMStatus:
		return h.MStatus, nil
	case CsrMIE:
		return h.MIE, nil
	case CsrMIP:
		return h.MIP, nil
	case CsrMTVec:
		return h.MTVec, nil
	case CsrMScratch:
		return h.MScratch, nil
	case CsrMEPC:
		return h.MEPC, nil
	case CsrMCause:
		return h.MCause, nil
	case CsrMTVal:
		return h.MTVal, nil
	case CsrMEDeleg:
		return h.MEDeleg, nil
	case CsrMIDeleg:
		return h.MIDeleg, nil

	case CsrMATP:
		return ctx.Core.MATP, nil
	case CsrMCacheControl:
		return uint64(ctx.Core.MCacheControl), nil
	case CsrUCacheControl:
		return uint64(ctx.Core.UCacheControl), nil

	case CsrTensorMask:
		return h.TensorMask, nil
	case CsrConvSize:
		return h.ConvSize, nil
	case CsrConvCtrl:
		return h.ConvCtrl, nil
	case CsrTensorCoop:
		return h.TensorCoop, nil
	case CsrTensorError:
		return h.TensorError, nil
	case CsrFLB:
		return h.FLB, nil
	case CsrFCC0:
		return h.FCC0, nil
	case CsrFCC1:
		return h.FCC1, nil
	case CsrGSCProgress:
		return h.GSCProgress, nil

	case CsrValidation0:
		return h.Validation[0], nil
	case CsrValidation1:
		return h.Validation[1], nil
	case CsrValidation2:
		return h.Validation[2], nil
	case CsrValidation3:
		return h.Validation[3], nil
	}
	if csrNum >= mhpmcounter(0) && csrNum < mhpmcounter(32) {
		return h.MHPMCounters[csrNum-mhpmcounter(0)], nil
	}
	if csrNum >= mhpmevent(0) && csrNum < mhpmevent(32) {
		return h.MHPMEvents[csrNum-mhpmevent(0)], nil
	}
	return 0, ErrIllegalCSR
}

func sstatusWindow(mstatus uint64) uint64 {
	const sstatusMask = 0x800000030001E122
	return mstatus & sstatusMask
}

// Set implements csrset: apply WARL masks and side effects, then store.
func Set(ctx Context, csrNum int, value uint64) error {
	h := ctx.Hart
	if ctx.Hart.Mode < privOf(csrNum) {
		return ErrIllegalCSR
	}
	switch csrNum {
	case CsrFFlags:
		if !fsActive(h) {
			return ErrIllegalCSR
		}
		h.FCSR = (h.FCSR &^ 0x1F) | (value & 0x1F)
		return nil
	case CsrFRM:
		if !fsActive(h) {
			return ErrIllegalCSR
		}
		h.FCSR = (h.FCSR &^ (0x7 << 5)) | ((value & 0x7) << 5)
		return nil
	case CsrFCSR:
		if !fsActive(h) {
			return ErrIllegalCSR
		}
		h.FCSR = value & 0xFF
		return nil

	case CsrSStatus:
		const mask = 0x800000030001E122
		h.MStatus = (h.MStatus &^ mask) | (value & mask)
		return nil
	case CsrSIE:
		h.MIE = (h.MIE &^ h.MIDeleg) | (value & h.MIDeleg)
		return nil
	case CsrSIP:
		h.MIP = (h.MIP &^ h.MIDeleg) | (value & h.MIDeleg)
		return nil
	case CsrSTVec:
		h.STVec = value
		return nil
	case CsrSScratch:
		h.SScratch = value
		return nil
	case CsrSEPC:
		h.SEPC = value &^ 1
		return nil
	case CsrSCause:
		h.SCause = value
		return nil
	case CsrSTVal:
		h.STVal = value
		return nil
	case CsrSATP:
		if err := setATP(&ctx.Core.SATP, value, false, ctx.Core); err != nil {
			return err
		}
		h.InvalidateFetchCache()
		return nil

	case CsrMStatus:
		h.MStatus = value
		return nil
	case CsrMIE:
		h.MIE = value
		return nil
	case CsrMIP:
		h.MIP = value
		return nil
	case CsrMTVec:
		h.MTVec = value
		return nil
	case CsrMScratch:
		h.MScratch = value
		return nil
	case CsrMEPC:
		h.MEPC = value &^ 1
		return nil
	case CsrMCause:
		h.MCause = value
		return nil
	case CsrMTVal:
		h.MTVal = value
		return nil
	case CsrMEDeleg:
		h.MEDeleg = value
		return nil
	case CsrMIDeleg:
		h.MIDeleg = value
		return nil

	case CsrMATP:
		if err := setATP(&ctx.Core.MATP, value, ctx.Core.MATPLocked, ctx.Core); err != nil {
			return err
		}
		h.InvalidateFetchCache()
		return nil
	case CsrMCacheControl:
		return setCacheControl(&ctx.Core.MCacheControl, ctx.Core, value)
	case CsrUCacheControl:
		return setCacheControl(&ctx.Core.UCacheControl, ctx.Core, value)

	case CsrTensorMask:
		h.TensorMask = value
		return nil
	case CsrConvSize:
		h.ConvSize = value
		return nil
	case CsrConvCtrl:
		h.ConvCtrl = value
		return nil
	case CsrTensorCoop:
		h.TensorCoop = value
		return nil
	case CsrTensorError:
		h.TensorError = value
		return nil
	case CsrFLB:
		h.FLB = value
		return nil
	case CsrFCC0:
		return decrementCredit(&h.FCC0, value)
	case CsrFCC1:
		return decrementCredit(&h.FCC1, value)
	case CsrGSCProgress:
		h.GSCProgress = value
		return nil
	case CsrStall:
		return stall(h, ctx.Core)
	case CsrCacheInvalidate:
		h.InvalidateFetchCache()
		return nil

	case CsrTensorLoadA0:
		ctx.Tensor.LaunchTLoad(h, ctx.Core, 0, value)
		return nil
	case CsrTensorLoadA1:
		ctx.Tensor.LaunchTLoad(h, ctx.Core, 1, value)
		return nil
	case CsrTensorLoadB:
		ctx.Tensor.LaunchTLoad(h, ctx.Core, -1, value)
		return nil
	case CsrTensorStore:
		ctx.Tensor.LaunchTStore(h, ctx.Core, value)
		return nil
	case CsrTensorFMA:
		ctx.Tensor.LaunchTFMA(h, ctx.Core, value)
		return nil
	case CsrTensorQuant:
		ctx.Tensor.LaunchTQuant(h, ctx.Core, value)
		return nil
	case CsrTensorReduce:
		ctx.Tensor.LaunchTReduce(h, ctx.Core, value)
		return nil
	case CsrTensorWait:
		ctx.Tensor.Wait(h, ctx.Core, value)
		return nil

	case CsrValidation0:
		h.Validation[0] = value
		return nil
	case CsrValidation1:
		h.Validation[1] = value
		return nil
	case CsrValidation2:
		h.Validation[2] = value
		return nil
	case CsrValidation3:
		h.Validation[3] = value
		return nil
	}
	if csrNum >= mhpmcounter(0) && csrNum < mhpmcounter(32) {
		h.MHPMCounters[csrNum-mhpmcounter(0)] = value
		return nil
	}
	if csrNum >= mhpmevent(0) && csrNum < mhpmevent(32) {
		h.MHPMEvents[csrNum-mhpmevent(0)] = value
		return nil
	}
	return ErrIllegalCSR
}

// setATP applies the Bare/Sv39/Sv48 WARL mask and honors matp's lock bit.
func setATP(dst *uint64, value uint64, locked bool, c *core.Core) error {
	if locked && dst == &c.MATP {
		return nil // Silently ignored while locked, not an error (§4.5).
	}
	mode := (value >> 60) & 0xF
	if mode != 0 && mode != 8 && mode != 9 {
		mode = 0 // WARL: unsupported modes collapse to Bare.
	}
	*dst = (mode << 60) | (value &^ (uint64(0xF) << 60))
	return nil
}

// setCacheControl applies the transition table; an illegal transition is
// silently refused (WARL), matching §4.5's "obey a transition table"
// without naming an explicit error for a rejected request.
func setCacheControl(dst *core.CacheMode, c *core.Core, value uint64) error {
	want := core.CacheMode(value & 0x3)
	if c.AnyTLoadPending() && *dst == core.CacheL1SCP && want != core.CacheL1SCP {
		return errors.New("csr: cannot disable L1SCP while a cooperative TLoad is pending")
	}
	if core.CacheModeTransitionAllowed(*dst, want) {
		*dst = want
	}
	return nil
}

// decrementCredit implements fcc's decrement-with-block semantics: a
// write decrements the counter by the written amount, blocking (returning
// an error the caller turns into a wait) if the result would go negative.
func decrementCredit(dst *uint64, value uint64) error {
	if value > *dst {
		return errors.New("csr: fcc decrement below zero blocks")
	}
	*dst -= value
	return nil
}

// stall puts the hart into Waiting::interrupt unless in exclusive mode or
// already-pending interrupts satisfy mie (§4.5).
func stall(h *hart.Hart, c *core.Core) error {
	if (c != nil && c.ExclMode) || h.MIP&h.MIE != 0 {
		return nil
	}
	h.Waiting |= hart.WaitInterrupt
	return nil
}

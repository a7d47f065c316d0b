package csr

import (
	"testing"

	"github.com/etsoc/shiresim/emu/core"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/ids"
)

type fakeLauncher struct {
	loadSlot  int
	loadValue uint64
	waited    bool
}

func (f *fakeLauncher) LaunchTLoad(h *hart.Hart, c *core.Core, slot int, value uint64) {
	f.loadSlot = slot
	f.loadValue = value
}
func (f *fakeLauncher) LaunchTStore(h *hart.Hart, c *core.Core, value uint64)  {}
func (f *fakeLauncher) LaunchTFMA(h *hart.Hart, c *core.Core, value uint64)    {}
func (f *fakeLauncher) LaunchTQuant(h *hart.Hart, c *core.Core, value uint64)  {}
func (f *fakeLauncher) LaunchTReduce(h *hart.Hart, c *core.Core, value uint64) {}
func (f *fakeLauncher) Wait(h *hart.Hart, c *core.Core, target uint64)         { f.waited = true }

func newCtx() (Context, *fakeLauncher) {
	h := hart.New(0, 0, 0, 0)
	h.Mode = ids.PrivM
	c := core.New(0, 0, 0)
	fl := &fakeLauncher{}
	return Context{Hart: h, Core: c, Tensor: fl}, fl
}

func TestFFlagsGatedByFS(t *testing.T) {
	ctx, _ := newCtx()
	if err := Set(ctx, CsrFFlags, 0x1F); err != ErrIllegalCSR {
		t.Fatalf("expected illegal csr with FS=0, got %v", err)
	}
	ctx.Hart.MStatus = 1 << mstatusFSShift
	if err := Set(ctx, CsrFFlags, 0x1F); err != nil {
		t.Fatalf("unexpected error with FS active: %v", err)
	}
	v, err := Get(ctx, CsrFFlags)
	if err != nil || v != 0x1F {
		t.Errorf("fflags = %v err=%v, want 0x1F", v, err)
	}
}

func TestCacheControlTransitionTable(t *testing.T) {
	ctx, _ := newCtx()
	if err := Set(ctx, CsrMCacheControl, uint64(core.CacheL1SCP)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Core.MCacheControl != core.CacheBypass {
		t.Errorf("bypass->L1SCP should be refused, got %v", ctx.Core.MCacheControl)
	}
	_ = Set(ctx, CsrMCacheControl, uint64(core.CacheCached))
	_ = Set(ctx, CsrMCacheControl, uint64(core.CacheL1SCP))
	if ctx.Core.MCacheControl != core.CacheL1SCP {
		t.Errorf("expected L1SCP after valid transitions, got %v", ctx.Core.MCacheControl)
	}
}

func TestCacheControlRefusesDisableWithPendingTLoad(t *testing.T) {
	ctx, _ := newCtx()
	ctx.Core.MCacheControl = core.CacheL1SCP
	ctx.Core.TLoadB.State = core.TLoadWaitingCoop
	if err := Set(ctx, CsrMCacheControl, uint64(core.CacheCached)); err == nil {
		t.Fatalf("expected error disabling L1SCP with a pending TLoad")
	}
}

func TestMATPLockHonored(t *testing.T) {
	ctx, _ := newCtx()
	ctx.Core.MATP = 0x1234
	ctx.Core.MATPLocked = true
	if err := Set(ctx, CsrMATP, 0xFFFF); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Core.MATP != 0x1234 {
		t.Errorf("expected locked matp to be unchanged, got %#x", ctx.Core.MATP)
	}
}

func TestSetATPCollapsesUnsupportedModeToBare(t *testing.T) {
	ctx, _ := newCtx()
	if err := Set(ctx, CsrSATP, uint64(5)<<60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if (ctx.Core.SATP>>60)&0xF != 0 {
		t.Errorf("expected unsupported mode to collapse to bare, got mode %d", (ctx.Core.SATP>>60)&0xF)
	}
}

func TestTensorCSRWriteDispatchesLaunch(t *testing.T) {
	ctx, fl := newCtx()
	if err := Set(ctx, CsrTensorLoadA0, 0xABCD); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fl.loadSlot != 0 || fl.loadValue != 0xABCD {
		t.Errorf("expected launch(slot=0, value=0xabcd), got slot=%d value=%#x", fl.loadSlot, fl.loadValue)
	}
}

func TestFCCDecrementBlocksBelowZero(t *testing.T) {
	ctx, _ := newCtx()
	ctx.Hart.FCC0 = 2
	if err := Set(ctx, CsrFCC0, 3); err == nil {
		t.Fatalf("expected decrement below zero to block")
	}
	if err := Set(ctx, CsrFCC0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Hart.FCC0 != 0 {
		t.Errorf("fcc0 = %d, want 0", ctx.Hart.FCC0)
	}
}

func TestStallSetsWaitingUnlessInterruptPending(t *testing.T) {
	ctx, _ := newCtx()
	if err := Set(ctx, CsrStall, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Hart.Waiting&hart.WaitInterrupt == 0 {
		t.Errorf("expected stall to set WaitInterrupt")
	}
	ctx.Hart.Waiting = 0
	ctx.Hart.MIP = 1
	ctx.Hart.MIE = 1
	if err := Set(ctx, CsrStall, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Hart.Waiting&hart.WaitInterrupt != 0 {
		t.Errorf("expected stall to be a no-op when an interrupt already satisfies mie")
	}
}

func TestPrivilegeGateRejectsLowerMode(t *testing.T) {
	ctx, _ := newCtx()
	ctx.Hart.Mode = ids.PrivU
	if _, err := Get(ctx, CsrMStatus); err != ErrIllegalCSR {
		t.Errorf("expected illegal csr access from U mode to an M-mode csr, got %v", err)
	}
}

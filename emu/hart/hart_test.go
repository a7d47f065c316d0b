package hart

import (
	"testing"

	"github.com/etsoc/shiresim/emu/agent"
	"github.com/etsoc/shiresim/emu/ids"
)

func TestX0AlwaysZero(t *testing.T) {
	h := New(0, 0, 0, 0)
	h.WriteX(0, 0xdeadbeef)
	if h.ReadX(0) != 0 {
		t.Errorf("x0 must read zero, got %#x", h.ReadX(0))
	}
}

func TestWriteXOtherRegisters(t *testing.T) {
	h := New(0, 0, 0, 0)
	h.WriteX(5, 42)
	if h.ReadX(5) != 42 {
		t.Errorf("x5 = %d, want 42", h.ReadX(5))
	}
}

func TestGlobalHartIDMatchesShireAndThread(t *testing.T) {
	h := New(2, 1, 3, 0)
	local := ids.LocalThread(1, 3, 0)
	want := ids.GlobalHartID(2, local)
	if h.MHartID != want {
		t.Errorf("mhartid = %d, want %d", h.MHartID, want)
	}
}

func TestEffectivePrivUsesMPPUnderMPRV(t *testing.T) {
	h := New(0, 0, 0, 0)
	h.Mode = ids.PrivU
	h.MStatus = (1 << 17) | (uint64(ids.PrivM) << 11) // MPRV set, MPP=M
	if h.EffectivePrivData() != ids.PrivM {
		t.Errorf("expected MPRV to select MPP=M, got %v", h.EffectivePrivData())
	}
}

func TestHartSatisfiesAgent(t *testing.T) {
	var _ agent.Agent = New(0, 0, 0, 0)
}

func TestNewHartIsUnavailable(t *testing.T) {
	h := New(0, 0, 0, 0)
	if h.Life != Unavailable {
		t.Errorf("expected new hart to start Unavailable, got %v", h.Life)
	}
}

package system

import (
	"testing"

	"github.com/etsoc/shiresim/emu/agent"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/ids"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/pma"
)

func newTestSystem() *System {
	mem := memory.NewMainMemory()
	return New(2, pma.NewETSOC1(), mem, nil)
}

func TestNewBuildsIOShireSingleton(t *testing.T) {
	s := newTestSystem()
	if len(s.Harts[ids.IOShireSP]) != 1 || len(s.Harts[ids.IOShireSP][0]) != 1 || len(s.Harts[ids.IOShireSP][0][0]) != 1 {
		t.Fatalf("expected io shire to be a 1x1x1 singleton, got %d/%d/%d",
			len(s.Harts[ids.IOShireSP]), len(s.Harts[ids.IOShireSP][0]), len(s.Harts[ids.IOShireSP][0][0]))
	}
}

func TestNewBuildsComputeShireFullTopology(t *testing.T) {
	s := newTestSystem()
	if len(s.Harts[1]) != ids.NeighPerShire {
		t.Fatalf("expected %d neighborhoods, got %d", ids.NeighPerShire, len(s.Harts[1]))
	}
	if len(s.Harts[1][0]) != ids.MinionsPerNeigh {
		t.Fatalf("expected %d minions, got %d", ids.MinionsPerNeigh, len(s.Harts[1][0]))
	}
	if len(s.Harts[1][0][0]) != ids.ThreadsPerMinion {
		t.Fatalf("expected %d threads, got %d", ids.ThreadsPerMinion, len(s.Harts[1][0][0]))
	}
}

func TestESRWriteNeighBroadcastReachesAllNeighborhoods(t *testing.T) {
	s := newTestSystem()
	addr := pma.ESRBase | uint64(1)<<30 /* PP=S */ | uint64(1)<<22 /* shire id 1 */ | uint64(1)<<20 /* sub=neigh */ | uint64(0xF)<<16 /* broadcast */ | uint64(regNeighMinionBoot)<<3
	if err := s.ESRWrite(addr, 0xABCD, agent.Noagent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for ni := 0; ni < ids.NeighPerShire; ni++ {
		if s.NeighborhoodAt(1, ni).MinionBoot != 0xABCD {
			t.Errorf("neighborhood %d minion_boot = %#x, want 0xabcd", ni, s.NeighborhoodAt(1, ni).MinionBoot)
		}
	}
}

func TestESRReadUnknownShireIsMemoryError(t *testing.T) {
	s := newTestSystem()
	addr := pma.ESRBase | uint64(99)<<22
	if _, err := s.ESRRead(addr, agent.Noagent{}); err != ErrMemoryError {
		t.Errorf("expected memory error for out-of-range shire, got %v", err)
	}
}

func TestIPITriggerSetsWaitingMinionsMIP(t *testing.T) {
	s := newTestSystem()
	sh := s.ShireAt(1)
	sh.OtherESRs.IPIRedirectFilter = ^uint64(0)
	addr := pma.ESRBase | uint64(1)<<30 | uint64(1)<<22 | uint64(3)<<20 | uint64(regShireIPITrigger)<<3
	if err := s.ESRWrite(addr, 1<<2, agent.Noagent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Harts[1][0][2][0].MIP&(1<<3) == 0 {
		t.Errorf("expected minion 2's mip.msip to be set")
	}
}

func TestColdResetRoutesToHaltedWhenHactrlBitSet(t *testing.T) {
	s := newTestSystem()
	s.NeighborhoodAt(1, 0).Debug.HActrl = 1
	s.ColdReset(1)
	// hactrl survives the shire rebuild, so its bit 0 routes the
	// neighborhood's harts to Halted.
	for _, h := range s.Harts[1][0][0] {
		if h.Life != hart.Halted {
			t.Fatalf("expected reset to route the hart to halted, got %v", h.Life)
		}
	}
}

func TestRecalculateThreadEnableDisablesThread1(t *testing.T) {
	s := newTestSystem()
	for _, h := range s.Harts[1][0][0] {
		h.Life = hart.Unavailable
	}
	s.ShireAt(1).OtherESRs.Thread1Disable = true
	s.recalculateThreadEnable(1, 1)
	if s.Harts[1][0][0][1].Life != hart.Unavailable {
		t.Errorf("expected thread 1 to stay unavailable when disabled")
	}
}

func TestHasAvailableHartsFalseWhenAllHalted(t *testing.T) {
	s := newTestSystem()
	for si := range s.Harts {
		for ni := range s.Harts[si] {
			for mi := range s.Harts[si][ni] {
				for _, h := range s.Harts[si][ni][mi] {
					h.Life = hart.Halted
				}
			}
		}
	}
	if s.HasAvailableHarts() {
		t.Errorf("expected no available harts once every hart is halted")
	}
}

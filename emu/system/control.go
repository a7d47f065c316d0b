/*
 * shiresim - Reset ladders and the external control surface (§4.8, §6.2).
 *
 * Copyright 2026, shiresim contributors
 */
package system

import (
	"github.com/etsoc/shiresim/emu/core"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/ids"
	"github.com/etsoc/shiresim/emu/shire"
)

// defaultMinionFeature/defaultIOThreadDisable are the cold-reset defaults
// named by §4.8: "1 for compute shires, 0x3b for I/O shire."
const (
	defaultMinionFeature = 1
	defaultIOThreadDisable = 0x3b
)

// Init performs pre-reset configuration: binding is implicit in this
// implementation, since every hart and core already sits at its arena
// position from New; Init records the stepping tag for diagnostics.
func (s *System) Init(stepping string) {
	s.Stepping = stepping
}

// ColdReset implements cold_reset(shire): ESRs return to their reset
// values (except each neighborhood's hactrl, which only DebugReset clears),
// minion_feature/thread{0,1}_disable come back to their per-shire
// defaults, and every hart becomes Unavailable before should_halt_on_reset
// (hactrl bit 0) routes it to Halted or Running.
func (s *System) ColdReset(shireIdx int) {
	sh := s.ShireAt(shireIdx)
	if sh == nil {
		return
	}
	hactrl := make([]uint64, len(sh.Neighborhoods))
	for i, n := range sh.Neighborhoods {
		hactrl[i] = n.Debug.HActrl
	}
	*sh = *shire.New(shireIdx, len(sh.Neighborhoods))
	for i, n := range sh.Neighborhoods {
		n.MProt.DRAMSize = s.DefaultDRAMSize
		n.Debug.HActrl = hactrl[i]
	}
	if ids.ShireIndexToID(shireIdx) == ids.IOShireID {
		sh.OtherESRs.Thread1Disable = true
		sh.OtherESRs.MinionFeature = defaultIOThreadDisable
	} else {
		sh.OtherESRs.MinionFeature = defaultMinionFeature
	}

	for ni := range s.Harts[shireIdx] {
		shouldHalt := sh.Neighborhoods[ni].Debug.HActrl&1 != 0
		for mi := range s.Harts[shireIdx][ni] {
			s.Cores[shireIdx][ni][mi] = resetCore(s.Cores[shireIdx][ni][mi])
			for _, h := range s.Harts[shireIdx][ni][mi] {
				if shouldHalt {
					h.Life = hart.Halted
				} else {
					h.Life = hart.Running
				}
			}
		}
	}
}

// resetCore rebuilds a Core at its arena position, discarding all transient
// tensor/cache state (the struct's own zero value already matches
// cold-reset's "FSMs idle, cache bypassed" shape).
func resetCore(c *core.Core) *core.Core {
	return core.New(c.ShireIdx, c.NeighIdx, c.MinionIdx)
}

// BeginWarmReset implements begin_warm_reset: ESRs reset to warm-reset
// defaults and cooperative-TLoad tables clear, without touching hart
// lifecycle.
func (s *System) BeginWarmReset(shireIdx int) {
	sh := s.ShireAt(shireIdx)
	if sh == nil {
		return
	}
	sh.BeginWarmReset()
}

// EndWarmReset implements end_warm_reset: recompute both threads' enable
// state from the (possibly just-reset) thread-disable/minion-feature ESRs.
func (s *System) EndWarmReset(shireIdx int) {
	s.recalculateThreadEnable(shireIdx, 0)
	s.recalculateThreadEnable(shireIdx, 1)
}

// DebugReset implements debug_reset: clears hactrl/hastatus on every
// neighborhood of shireIdx, then installs each hart's debug-mode reset
// state (dpc/dcsr cleared).
func (s *System) DebugReset(shireIdx int) {
	sh := s.ShireAt(shireIdx)
	if sh == nil {
		return
	}
	for _, n := range sh.Neighborhoods {
		n.Debug = shire.HartDebugStatus{}
	}
	for ni := range s.Harts[shireIdx] {
		for mi := range s.Harts[shireIdx][ni] {
			for _, h := range s.Harts[shireIdx][ni][mi] {
				h.Debug = hart.DebugState{}
			}
		}
	}
}

// ConfigResetPC implements config_reset_pc(neigh, value): sets minion_boot
// for a neighborhood. The value is only stored (and readable through the
// neighborhood ESR); no reset loads it into a hart's PC, and ColdReset
// sets it back to zero.
func (s *System) ConfigResetPC(shireIdx, neighIdx int, value uint64) {
	n := s.NeighborhoodAt(shireIdx, neighIdx)
	if n == nil {
		return
	}
	n.MinionBoot = value
}

// ConfigSimulatedHarts implements config_simulated_harts: populates
// lifecycle tags for a shire's minions ahead of the next reset, selecting
// which minions exist at all (minionMask), whether each runs both threads
// (multithreaded), and whether the shire is present (enabled).
func (s *System) ConfigSimulatedHarts(shireIdx int, minionMask uint64, multithreaded, enabled bool) {
	for ni := range s.Harts[shireIdx] {
		for mi := range s.Harts[shireIdx][ni] {
			present := enabled && minionMask&(1<<uint(mi)) != 0
			for ti, h := range s.Harts[shireIdx][ni][mi] {
				if !present || (ti == 1 && !multithreaded) {
					h.Life = hart.Nonexistent
				} else if h.Life == hart.Nonexistent {
					h.Life = hart.Unavailable
				}
			}
		}
	}
}

// SetEmuDone implements set_emu_done/the EOT and validation0 exit paths
// (§5 "Cancellation and timeouts").
func (s *System) SetEmuDone(done bool, failure bool) {
	s.EmuDone = done
	s.EmuFail = failure
}

func (s *System) GetEmuDone() bool { return s.EmuDone }
func (s *System) GetEmuFail() bool { return s.EmuFail }

// ExitCode implements §6.2's exit code mapping.
func (s *System) ExitCode() int {
	if s.EmuDone && !s.EmuFail {
		return 0
	}
	if s.EmuFail {
		return 1
	}
	return 0
}

// RaiseExternalInterrupt sets the selected MIP bit on one hart, the shape
// shared by raise_*_interrupt/clear_*_interrupt (§6.2).
func (s *System) RaiseExternalInterrupt(shireIdx, neighIdx, minionIdx, threadIdx int, bit uint64) {
	h := s.HartAt(shireIdx, neighIdx, minionIdx, threadIdx)
	if h == nil {
		return
	}
	h.MIP |= bit
}

func (s *System) ClearExternalInterrupt(shireIdx, neighIdx, minionIdx, threadIdx int, bit uint64) {
	h := s.HartAt(shireIdx, neighIdx, minionIdx, threadIdx)
	if h == nil {
		return
	}
	h.MIP &^= bit
}

// HasAvailableHarts reports whether any hart remains able to run (used by
// the scheduler's deadlock heuristic, §5).
func (s *System) HasAvailableHarts() bool {
	for si := range s.Harts {
		for ni := range s.Harts[si] {
			for mi := range s.Harts[si][ni] {
				for _, h := range s.Harts[si][ni][mi] {
					if h.Life == hart.Running {
						return true
					}
				}
			}
		}
	}
	return false
}

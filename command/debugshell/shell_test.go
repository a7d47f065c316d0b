package debugshell

import (
	"testing"

	"github.com/etsoc/shiresim/command/command"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/pma"
	"github.com/etsoc/shiresim/emu/runtime"
	"github.com/etsoc/shiresim/emu/system"
)

func newTestTarget(t *testing.T) *command.Target {
	t.Helper()
	mem := memory.NewMainMemory()
	mem.AddRegion(memory.NewDenseRegion("dram", pma.DRAMBase, 0x0010_0000, false))
	sys := system.New(1, pma.NewETSOC1(), mem, nil)
	sys.ColdReset(0)
	h := sys.HartAt(0, 0, 0, 0)
	h.PC = pma.DRAMBase
	h.Life = hart.Running
	return &command.Target{Sys: sys, Sch: runtime.New(sys)}
}

func TestProcessCommandUnknown(t *testing.T) {
	tgt := newTestTarget(t)
	_, err := ProcessCommand("bogus", tgt)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestProcessCommandUnderLengthPrefix(t *testing.T) {
	tgt := newTestTarget(t)
	// "s" is a valid prefix for step/stop/show, all with min >= 2, so a
	// single-char word matches none of them and should be reported
	// "unknown" rather than "ambiguous" (it's shorter than every min).
	_, err := ProcessCommand("s", tgt)
	if err == nil {
		t.Fatal("expected error for under-length prefix")
	}
}

func TestProcessCommandExamineDepositRoundTrip(t *testing.T) {
	tgt := newTestTarget(t)
	if _, err := ProcessCommand("deposit x5 2a", tgt); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	h, err := selectedHart(tgt)
	if err != nil {
		t.Fatalf("selectedHart: %v", err)
	}
	if h.X[5] != 0x2a {
		t.Errorf("x5 = %#x, want 0x2a", h.X[5])
	}
	if _, err := ProcessCommand("examine x5", tgt); err != nil {
		t.Fatalf("examine: %v", err)
	}
}

func TestProcessCommandQuit(t *testing.T) {
	tgt := newTestTarget(t)
	quit, err := ProcessCommand("quit", tgt)
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if !quit {
		t.Error("expected quit to report true")
	}
}

func TestProcessCommandHartSelect(t *testing.T) {
	tgt := newTestTarget(t)
	if _, err := ProcessCommand("hart 0 0 0 0", tgt); err != nil {
		t.Fatalf("hart select: %v", err)
	}
	if _, err := ProcessCommand("hart 9 9 9 9", tgt); err == nil {
		t.Fatal("expected error selecting nonexistent hart")
	}
}

func TestMatchCommandAbbreviation(t *testing.T) {
	m := cmd{name: "examine", min: 1}
	if !matchCommand(m, "e") {
		t.Error("single-char prefix should match min:1 command")
	}
	if matchCommand(m, "examined") {
		t.Error("word longer than name should not match")
	}
}

package runtime

import (
	"testing"

	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/pma"
	"github.com/etsoc/shiresim/emu/system"
)

func newTestSystem(t *testing.T, program []uint32) *system.System {
	t.Helper()
	mem := memory.NewMainMemory()
	dram := memory.NewDenseRegion("dram", pma.DRAMBase, 0x0010_0000, false)
	mem.AddRegion(dram)
	sys := system.New(1, pma.NewETSOC1(), mem, nil)
	sys.ColdReset(0)

	for i, w := range program {
		if err := mem.Write(pma.DRAMBase+uint64(i*4), 4, uint64(w), nil); err != nil {
			t.Fatalf("loading program word %d: %v", i, err)
		}
	}

	h := sys.HartAt(0, 0, 0, 0)
	h.PC = pma.DRAMBase
	h.Life = hart.Running
	return sys
}

func rtype(opcode, funct3, funct7 uint32, rd, rs1, rs2 int) uint32 {
	return opcode | uint32(rd)<<7 | funct3<<12 | uint32(rs1)<<15 | uint32(rs2)<<20 | funct7<<25
}

func itype(opcode, funct3 uint32, rd, rs1 int, imm int32) uint32 {
	return opcode | uint32(rd)<<7 | funct3<<12 | uint32(rs1)<<15 | (uint32(imm)&0xFFF)<<20
}

func TestSchedulerRunsAddiSequence(t *testing.T) {
	program := []uint32{
		itype(0x13, 0, 1, 0, 5),  // addi x1, x0, 5
		itype(0x13, 0, 2, 1, 10), // addi x2, x1, 10
	}
	sys := newTestSystem(t, program)
	sch := New(sys)
	sch.RunPass()
	sch.RunPass()

	h := sys.HartAt(0, 0, 0, 0)
	if h.X[1] != 5 {
		t.Errorf("x1 = %d, want 5", h.X[1])
	}
	if h.X[2] != 15 {
		t.Errorf("x2 = %d, want 15", h.X[2])
	}
}

func TestSchedulerTakesIllegalInstructionTrap(t *testing.T) {
	program := []uint32{0xFFFFFFFF} // Not a legal RV64 encoding under our decode table.
	sys := newTestSystem(t, program)
	h := sys.HartAt(0, 0, 0, 0)
	h.MTVec = 0x1000
	sch := New(sys)
	sch.RunPass()
	if h.PC != 0x1000 {
		t.Errorf("pc = %#x, want trap vector 0x1000", h.PC)
	}
	if h.MCause != 2 {
		t.Errorf("mcause = %d, want 2 (illegal instruction)", h.MCause)
	}
}

func TestSchedulerValidation0EmuFailStopsRun(t *testing.T) {
	sys := newTestSystem(t, []uint32{0})
	h := sys.HartAt(0, 0, 0, 0)
	h.Validation[0] = validationEmuFail
	sch := New(sys)
	sch.checkValidationExit(h)
	if !sys.GetEmuDone() || !sys.GetEmuFail() {
		t.Errorf("expected emu_done/emu_fail set after validation0 sentinel")
	}
}

func TestSchedulerDeadlockDetection(t *testing.T) {
	sys := newTestSystem(t, []uint32{0})
	h := sys.HartAt(0, 0, 0, 0)
	h.Life = hart.Halted // No running harts anywhere.
	sch := New(sys)
	code := sch.Run()
	if code != 1 {
		t.Errorf("exit code = %d, want 1 (no available harts)", code)
	}
}

func TestSchedulerRunsAddRType(t *testing.T) {
	program := []uint32{
		itype(0x13, 0, 1, 0, 7),     // addi x1, x0, 7
		itype(0x13, 0, 2, 0, 35),    // addi x2, x0, 35
		rtype(0x33, 0, 0, 3, 1, 2),  // add x3, x1, x2
	}
	sys := newTestSystem(t, program)
	sch := New(sys)
	for i := 0; i < 3; i++ {
		sch.RunPass()
	}
	h := sys.HartAt(0, 0, 0, 0)
	if h.X[3] != 42 {
		t.Errorf("x3 = %d, want 42", h.X[3])
	}
}

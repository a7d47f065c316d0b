/*
 * shiresim - Instruction execution: RV64IMC base integer core plus the
 * Zicsr bridge into the chip's CSR/tensor planes (§4.2, §4.5).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's cpuState.execute: a per-opcode
 * switch that reads operands, computes a result, and writes it back,
 * with traps signaled by returning a program-check code instead of a Go
 * error. Here the same shape returns a Trap value instead, since this
 * chip's instruction formats are fixed-width and don't need the
 * teacher's RR/RX/SS operand-fetch branching.
 */
package decode

import (
	"math/bits"

	"math"

	"github.com/etsoc/shiresim/emu/core"
	"github.com/etsoc/shiresim/emu/csr"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/ids"
	"github.com/etsoc/shiresim/emu/mmu"
	"github.com/etsoc/shiresim/emu/shire"
)

// Trap names the handful of exceptions this core raises directly; the
// values are not mcause codes (the scheduler maps each one to its mcause
// when it takes the trap). Interrupts are injected by the scheduler, not
// by Execute.
type Trap int

const (
	TrapNone Trap = iota
	TrapIllegalInstruction
	TrapLoadAccessFault
	TrapStoreAccessFault
	TrapBreakpoint
	TrapECall
)

// Machine bundles everything Execute needs to run one instruction: the
// hart and its Core (for the shared satp/matp/cache-control CSRs) plus the
// MMU the hart's loads, stores, and AMOs go through.
type Machine struct {
	Hart  *hart.Hart
	Core  *core.Core
	MMU   *mmu.MMU
	Neigh *shire.Neighborhood // mprot gating for memRequest's Secure/DRAMSizeBytes (§3.4, §4.3).
}

func atpFor(mode ids.Privilege, c *core.Core) mmu.ATP {
	if mode == ids.PrivM {
		return mmu.DecodeATP(c.MATP)
	}
	return mmu.DecodeATP(c.SATP)
}

func (m *Machine) memRequest(vaddr uint64, size int, kind mmu.AccessKind) mmu.Request {
	h := m.Hart
	effMode := h.Mode
	if h.MStatus&(1<<17) != 0 && kind != mmu.AccessFetch { // mstatus.MPRV
		effMode = ids.Privilege((h.MStatus >> 9) & 0x3) // mstatus.MPP
	}
	req := mmu.Request{
		Vaddr:          vaddr,
		Size:           size,
		Kind:           kind,
		ATP:            atpFor(h.Mode, m.Core),
		EffectiveMode:  effMode,
		RequesterShire: h.ShireIdx,
		HartID:         ids.GlobalHartID(h.ShireIdx, ids.LocalThread(h.NeighIdx, h.MinionIdx, h.ThreadIdx)),
	}
	if m.Neigh != nil {
		req.Secure = m.Neigh.MProt.Secure
		req.DRAMSizeBytes = m.Neigh.MProt.DRAMSize
	}
	return req
}

func signExtendW(v uint64) uint64 { return uint64(int64(int32(v))) }

// Standard mstatus bit positions consulted by mret/sret.
const (
	mstatusSIE      = 1 << 1
	mstatusMIE      = 1 << 3
	mstatusSPIE     = 1 << 5
	mstatusMPIE     = 1 << 7
	mstatusSPPShift = 8
	mstatusMPPShift = 11
)

// Execute runs one decoded instruction against the hart/core/MMU in m,
// using ctx for CSR dispatch (the caller builds ctx once per step so the
// live TensorLauncher and Core pointers are threaded through). It returns
// the trap raised, if any; on TrapNone the caller is responsible for
// advancing PC to NPC (branches/jumps set NPC themselves; everything else
// leaves NPC at its instruction-length default, set by the caller before
// calling Execute).
func Execute(m *Machine, ctx csr.Context, in Inst) Trap {
	h := m.Hart
	switch in.Op {
	case OpLUI:
		h.WriteX(in.Rd, uint64(in.Imm))
	case OpAUIPC:
		h.WriteX(in.Rd, h.PC+uint64(in.Imm))
	case OpJAL:
		h.WriteX(in.Rd, h.PC+uint64(in.Size))
		h.NPC = h.PC + uint64(in.Imm)
	case OpJALR:
		target := (h.X[in.Rs1] + uint64(in.Imm)) &^ 1
		h.WriteX(in.Rd, h.PC+uint64(in.Size))
		h.NPC = target
	case OpBranch:
		if branchTaken(in.Funct3, h.X[in.Rs1], h.X[in.Rs2]) {
			h.NPC = h.PC + uint64(in.Imm)
		}
	case OpLoad:
		return execLoad(m, in)
	case OpStore:
		return execStore(m, in)
	case OpOpImm:
		h.WriteX(in.Rd, execOpImm(in, h.X[in.Rs1]))
	case OpOpImm32:
		h.WriteX(in.Rd, signExtendW(execOpImm(in, h.X[in.Rs1])))
	case OpOp:
		h.WriteX(in.Rd, execOp(in, h.X[in.Rs1], h.X[in.Rs2]))
	case OpOp32:
		h.WriteX(in.Rd, signExtendW(execOp(in, h.X[in.Rs1], h.X[in.Rs2])))
	case OpMiscMem:
		// fence/fence.i: this model's memory is sequentially consistent
		// from any single hart's perspective, so there is nothing to do.
	case OpAMO:
		return execAMO(m, in)
	case OpLoadFP:
		return execFLoad(m, in)
	case OpStoreFP:
		return execFStore(m, in)
	case OpOpFP:
		return execOpFP(m, in)
	case OpMAdd, OpMSub, OpNMSub, OpNMAdd:
		return execFMAdd(m, in)
	case OpSystem:
		return execSystem(m, ctx, in)
	default:
		return TrapIllegalInstruction
	}
	return TrapNone
}

func branchTaken(funct3 uint32, a, b uint64) bool {
	switch funct3 {
	case 0x0: // beq
		return a == b
	case 0x1: // bne
		return a != b
	case 0x4: // blt
		return int64(a) < int64(b)
	case 0x5: // bge
		return int64(a) >= int64(b)
	case 0x6: // bltu
		return a < b
	case 0x7: // bgeu
		return a >= b
	}
	return false
}

func execOpImm(in Inst, rs1 uint64) uint64 {
	imm := uint64(in.Imm)
	switch in.Funct3 {
	case 0x0: // addi
		return rs1 + imm
	case 0x1: // slli
		return rs1 << (imm & 0x3F)
	case 0x2: // slti
		return boolU64(int64(rs1) < in.Imm)
	case 0x3: // sltiu
		return boolU64(rs1 < imm)
	case 0x4: // xori
		return rs1 ^ imm
	case 0x5: // srli/srai
		shamt := imm & 0x3F
		if in.Funct7&0x20 != 0 {
			return uint64(int64(rs1) >> shamt)
		}
		return rs1 >> shamt
	case 0x6: // ori
		return rs1 | imm
	case 0x7: // andi
		return rs1 & imm
	}
	return 0
}

func execOp(in Inst, a, b uint64) uint64 {
	if in.Funct7 == 0x01 { // RV64M
		return execMulDiv(in, a, b)
	}
	switch in.Funct3 {
	case 0x0:
		if in.Funct7&0x20 != 0 {
			return a - b
		}
		return a + b
	case 0x1:
		return a << (b & 0x3F)
	case 0x2:
		return boolU64(int64(a) < int64(b))
	case 0x3:
		return boolU64(a < b)
	case 0x4:
		return a ^ b
	case 0x5:
		if in.Funct7&0x20 != 0 {
			return uint64(int64(a) >> (b & 0x3F))
		}
		return a >> (b & 0x3F)
	case 0x6:
		return a | b
	case 0x7:
		return a & b
	}
	return 0
}

func execMulDiv(in Inst, a, b uint64) uint64 {
	switch in.Funct3 {
	case 0x0: // mul
		return a * b
	case 0x1: // mulh
		return uint64(mulh(int64(a), int64(b)))
	case 0x2: // mulhsu
		return uint64(mulhsu(int64(a), b))
	case 0x3: // mulhu
		hi, _ := bits.Mul64(a, b)
		return hi
	case 0x4: // div
		if b == 0 {
			return ^uint64(0)
		}
		if a == 1<<63 && int64(b) == -1 {
			return a
		}
		return uint64(int64(a) / int64(b))
	case 0x5: // divu
		if b == 0 {
			return ^uint64(0)
		}
		return a / b
	case 0x6: // rem
		if b == 0 {
			return a
		}
		if a == 1<<63 && int64(b) == -1 {
			return 0
		}
		return uint64(int64(a) % int64(b))
	case 0x7: // remu
		if b == 0 {
			return a
		}
		return a % b
	}
	return 0
}

func mulh(a, b int64) int64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	prod := int64(hi)
	if a < 0 {
		prod -= b
	}
	if b < 0 {
		prod -= a
	}
	return prod
}

func mulhsu(a int64, b uint64) int64 {
	hi, _ := bits.Mul64(uint64(a), b)
	prod := int64(hi)
	if a < 0 {
		prod -= int64(b)
	}
	return prod
}

func boolU64(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

var sizeForFunct3 = map[uint32]int{0: 1, 1: 2, 2: 4, 3: 8, 4: 1, 5: 2, 6: 4}

func execLoad(m *Machine, in Inst) Trap {
	size, ok := sizeForFunct3[in.Funct3]
	if !ok {
		return TrapIllegalInstruction
	}
	req := m.memRequest(m.Hart.X[in.Rs1]+uint64(in.Imm), size, mmu.AccessLoad)
	v, err := m.MMU.ReadScalar(req)
	if err != nil {
		return TrapLoadAccessFault
	}
	if in.Funct3 < 4 { // sign-extend for lb/lh/lw (not the unsigned lbu/lhu/lwu variants)
		shift := uint(64 - size*8)
		v = uint64(int64(v<<shift) >> shift)
	}
	m.Hart.WriteX(in.Rd, v)
	return TrapNone
}

var storeSizeForFunct3 = map[uint32]int{0: 1, 1: 2, 2: 4, 3: 8}

func execStore(m *Machine, in Inst) Trap {
	size, ok := storeSizeForFunct3[in.Funct3]
	if !ok {
		return TrapIllegalInstruction
	}
	req := m.memRequest(m.Hart.X[in.Rs1]+uint64(in.Imm), size, mmu.AccessStore)
	if err := m.MMU.WriteScalar(req, m.Hart.X[in.Rs2]); err != nil {
		return TrapStoreAccessFault
	}
	return TrapNone
}

// execAMO covers RV64A: lr/sc plus the amoswap/amoadd/amoxor/amoand/amoor/
// amomin/amomax/amominu/amomaxu read-modify-writes, routed through
// MMU.ReadScalar/WriteScalar/AtomicRMW.
func execAMO(m *Machine, in Inst) Trap {
	h := m.Hart
	addr := h.X[in.Rs1]
	size := 4
	if in.Funct3 == 0x3 {
		size = 8
	}
	req := m.memRequest(addr, size, mmu.AccessAtomic)
	funct5 := in.Funct7 // Decode already stores the AMO funct5 here.
	switch funct5 {
	case 0x02: // lr
		lr := req
		lr.Kind = mmu.AccessLoad
		v, err := m.MMU.ReadScalar(lr)
		if err != nil {
			return TrapLoadAccessFault
		}
		h.WriteX(in.Rd, amoSignExtend(v, size))
		return TrapNone
	case 0x03: // sc: this model has no reservation tracking, so it always succeeds.
		if err := m.MMU.WriteScalar(req, h.X[in.Rs2]); err != nil {
			return TrapStoreAccessFault
		}
		h.WriteX(in.Rd, 0)
		return TrapNone
	default:
		old, err := m.MMU.AtomicRMW(req, func(cur uint64) uint64 {
			return amoResult(funct5, amoSignExtend(cur, size), h.X[in.Rs2])
		})
		if err != nil {
			return TrapStoreAccessFault
		}
		h.WriteX(in.Rd, amoSignExtend(old, size))
		return TrapNone
	}
}

// amoSignExtend sign-extends a word-sized (.w) AMO operand to 64 bits; the
// doubleword (.d) forms pass size=8 and are already full-width.
func amoSignExtend(v uint64, size int) uint64 {
	if size == 4 {
		return uint64(int64(int32(v)))
	}
	return v
}

func amoResult(funct5 uint32, cur, rs2 uint64) uint64 {
	switch funct5 {
	case 0x00:
		return cur + rs2
	case 0x01:
		return rs2
	case 0x04:
		return cur ^ rs2
	case 0x0C:
		return cur & rs2
	case 0x08:
		return cur | rs2
	case 0x10:
		if int64(cur) < int64(rs2) {
			return cur
		}
		return rs2
	case 0x14:
		if int64(cur) > int64(rs2) {
			return cur
		}
		return rs2
	case 0x18:
		if cur < rs2 {
			return cur
		}
		return rs2
	case 0x1C:
		if cur > rs2 {
			return cur
		}
		return rs2
	}
	return cur
}

// execSystem handles ecall/ebreak and the four csrrw/csrrs/csrrc(i)
// forms, the command channel for every chip-specific CSR (§4.5, §4.7).
func execSystem(m *Machine, ctx csr.Context, in Inst) Trap {
	h := m.Hart
	if in.Funct3 == 0 {
		switch in.CSR {
		case 0x000:
			return TrapECall
		case 0x001:
			return TrapBreakpoint
		case 0x302: // mret
			mpp := ids.Privilege((h.MStatus >> mstatusMPPShift) & 0x3)
			if h.MStatus&mstatusMPIE != 0 {
				h.MStatus |= mstatusMIE
			} else {
				h.MStatus &^= mstatusMIE
			}
			h.MStatus |= mstatusMPIE
			h.MStatus &^= 0x3 << mstatusMPPShift
			h.Mode = mpp
			h.NPC = h.MEPC
			return TrapNone
		case 0x102: // sret
			spp := ids.Privilege((h.MStatus >> mstatusSPPShift) & 0x1)
			if h.MStatus&mstatusSPIE != 0 {
				h.MStatus |= mstatusSIE
			} else {
				h.MStatus &^= mstatusSIE
			}
			h.MStatus |= mstatusSPIE
			h.MStatus &^= 1 << mstatusSPPShift
			h.Mode = spp
			h.NPC = h.SEPC
			return TrapNone
		default:
			// wfi and anything else in this minor-opcode space: fences
			// without changing state. Actual idling goes through the
			// `stall` CSR (§4.5), not wfi.
			return TrapNone
		}
	}

	csrNum := int(in.CSR)
	old, err := csr.Get(ctx, csrNum)
	if err != nil {
		return TrapIllegalInstruction
	}

	var rs1 uint64
	if in.Funct3 >= 5 { // csrrwi/csrrsi/csrrci: immediate lives in in.Imm (rs1 field).
		rs1 = uint64(in.Imm)
	} else {
		rs1 = h.X[in.Rs1]
	}

	// csrrs/csrrc skip the write when their source operand is zero: rs1==x0
	// for the register forms, a zero 5-bit immediate for the *i forms.
	sourceIsZero := rs1 == 0

	var newVal uint64
	writeBack := true
	switch in.Funct3 & 0x3 {
	case 0x1: // csrrw/csrrwi
		newVal = rs1
	case 0x2: // csrrs/csrrsi
		writeBack = !sourceIsZero
		newVal = old | rs1
	case 0x3: // csrrc/csrrci
		writeBack = !sourceIsZero
		newVal = old &^ rs1
	default:
		return TrapIllegalInstruction
	}

	if writeBack {
		// A refused fcc decrement blocks: the hart sleeps with npc==pc and
		// retries the same write on every scheduler pass.
		h.Waiting &^= hart.WaitCredit0 | hart.WaitCredit1
		if err := csr.Set(ctx, csrNum, newVal); err != nil {
			switch csrNum {
			case csr.CsrFCC0:
				h.Waiting |= hart.WaitCredit0
				return TrapNone
			case csr.CsrFCC1:
				h.Waiting |= hart.WaitCredit1
				return TrapNone
			}
			return TrapIllegalInstruction
		}
	}
	h.WriteX(in.Rd, old)
	return TrapNone
}

// F-extension single-precision fflags bits (fflags[4:0], §4.5's fcsr).
const (
	fflagNX = 1 << 0 // inexact
	fflagUF = 1 << 1 // underflow
	fflagOF = 1 << 2 // overflow
	fflagDZ = 1 << 3 // divide by zero
	fflagNV = 1 << 4 // invalid operation
)

// mstatusFSMask duplicates emu/csr's private mstatus.FS gate; execute.go
// and csr.go each need their own copy since FS gates both CSR access and
// instruction execution.
const mstatusFSMask = 0x3 << 13

func fpEnabled(h *hart.Hart) bool { return h.MStatus&mstatusFSMask != 0 }

// readF32 returns the single-precision value in lane 0 of F register reg.
func readF32(h *hart.Hart, reg int) uint32 {
	b := &h.F[reg]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func f32(h *hart.Hart, reg int) float32 { return math.Float32frombits(readF32(h, reg)) }

// writeF32 stores bits into lane 0 of F register reg and NaN-boxes the rest
// of the VLEN-wide register (all-ones above a narrower value, matching the
// RISC-V convention for a value narrower than the register width).
func writeF32(h *hart.Hart, reg int, bits uint32) {
	b := &h.F[reg]
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
	for i := 4; i < len(b); i++ {
		b[i] = 0xFF
	}
}

func execFLoad(m *Machine, in Inst) Trap {
	if !fpEnabled(m.Hart) {
		return TrapIllegalInstruction
	}
	req := m.memRequest(m.Hart.X[in.Rs1]+uint64(in.Imm), 4, mmu.AccessLoad)
	v, err := m.MMU.ReadScalar(req)
	if err != nil {
		return TrapLoadAccessFault
	}
	writeF32(m.Hart, in.Rd, uint32(v))
	return TrapNone
}

func execFStore(m *Machine, in Inst) Trap {
	if !fpEnabled(m.Hart) {
		return TrapIllegalInstruction
	}
	req := m.memRequest(m.Hart.X[in.Rs1]+uint64(in.Imm), 4, mmu.AccessStore)
	if err := m.MMU.WriteScalar(req, uint64(readF32(m.Hart, in.Rs2))); err != nil {
		return TrapStoreAccessFault
	}
	return TrapNone
}

func fmin32(a, b float32) float32 {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func fmax32(a, b float32) float32 {
	if math.IsNaN(float64(a)) {
		return b
	}
	if math.IsNaN(float64(b)) {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// fclass32 implements fclass.s's ten-bit classification (bit i set per
// RISC-V's fclass encoding: negative infinity, negative normal, negative
// subnormal, negative zero, positive zero, positive subnormal, positive
// normal, positive infinity, signaling NaN, quiet NaN, low to high).
func fclass32(a float32) uint32 {
	bits := math.Float32bits(a)
	neg := bits&(1<<31) != 0
	switch {
	case math.IsNaN(float64(a)):
		if bits&(1<<22) != 0 {
			return 1 << 9
		}
		return 1 << 8
	case math.IsInf(float64(a), 1):
		return 1 << 7
	case math.IsInf(float64(a), -1):
		return 1 << 0
	case a == 0:
		if neg {
			return 1 << 3
		}
		return 1 << 4
	default:
		exp := (bits >> 23) & 0xFF
		switch {
		case exp == 0 && neg:
			return 1 << 2
		case exp == 0:
			return 1 << 5
		case neg:
			return 1 << 1
		default:
			return 1 << 6
		}
	}
}

func fcvtWS(a float32) uint64  { return uint64(int64(int32(a))) }
func fcvtWUS(a float32) uint64 { return uint64(int64(int32(uint32(int64(a))))) }

// execOpFP handles the R-type OpOpFP space: arithmetic, sign-injection,
// min/max, integer/float conversions, moves, classify, and compares, all
// single-precision (funct7's low 2 "fmt" bits are assumed 00/S, since this
// chip carries no D-extension).
func execOpFP(m *Machine, in Inst) Trap {
	h := m.Hart
	if !fpEnabled(h) {
		return TrapIllegalInstruction
	}
	switch in.Funct7 {
	case 0x00: // fadd.s
		writeF32(h, in.Rd, math.Float32bits(f32(h, in.Rs1)+f32(h, in.Rs2)))
	case 0x04: // fsub.s
		writeF32(h, in.Rd, math.Float32bits(f32(h, in.Rs1)-f32(h, in.Rs2)))
	case 0x08: // fmul.s
		writeF32(h, in.Rd, math.Float32bits(f32(h, in.Rs1)*f32(h, in.Rs2)))
	case 0x0C: // fdiv.s
		b := f32(h, in.Rs2)
		if b == 0 {
			h.FCSR |= fflagDZ
		}
		writeF32(h, in.Rd, math.Float32bits(f32(h, in.Rs1)/b))
	case 0x2C: // fsqrt.s
		a := f32(h, in.Rs1)
		if a < 0 {
			h.FCSR |= fflagNV
		}
		writeF32(h, in.Rd, math.Float32bits(float32(math.Sqrt(float64(a)))))
	case 0x10: // fsgnj.s / fsgnjn.s / fsgnjx.s
		a := readF32(h, in.Rs1)
		b := readF32(h, in.Rs2)
		var res uint32
		switch in.Funct3 {
		case 0:
			res = (a &^ (1 << 31)) | (b & (1 << 31))
		case 1:
			res = (a &^ (1 << 31)) | ((^b) & (1 << 31))
		case 2:
			res = a ^ (b & (1 << 31))
		default:
			return TrapIllegalInstruction
		}
		writeF32(h, in.Rd, res)
	case 0x14: // fmin.s / fmax.s
		a, b := f32(h, in.Rs1), f32(h, in.Rs2)
		if in.Funct3 == 0 {
			writeF32(h, in.Rd, math.Float32bits(fmin32(a, b)))
		} else {
			writeF32(h, in.Rd, math.Float32bits(fmax32(a, b)))
		}
	case 0x60: // fcvt.w.s / fcvt.wu.s
		a := f32(h, in.Rs1)
		if in.Rs2 == 1 {
			h.WriteX(in.Rd, fcvtWUS(a))
		} else {
			h.WriteX(in.Rd, fcvtWS(a))
		}
	case 0x68: // fcvt.s.w / fcvt.s.wu
		x := h.X[in.Rs1]
		if in.Rs2 == 1 {
			writeF32(h, in.Rd, math.Float32bits(float32(uint32(x))))
		} else {
			writeF32(h, in.Rd, math.Float32bits(float32(int32(x))))
		}
	case 0x70: // fmv.x.w / fclass.s
		if in.Funct3 == 1 {
			h.WriteX(in.Rd, uint64(fclass32(f32(h, in.Rs1))))
		} else {
			h.WriteX(in.Rd, uint64(int64(int32(readF32(h, in.Rs1)))))
		}
	case 0x78: // fmv.w.x
		writeF32(h, in.Rd, uint32(h.X[in.Rs1]))
	case 0x50: // feq.s / flt.s / fle.s
		a, b := f32(h, in.Rs1), f32(h, in.Rs2)
		var res bool
		switch in.Funct3 {
		case 0:
			res = a <= b
		case 1:
			res = a < b
		case 2:
			res = a == b
		default:
			return TrapIllegalInstruction
		}
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			h.FCSR |= fflagNV
			res = false
		}
		h.WriteX(in.Rd, boolU64(res))
	default:
		return TrapIllegalInstruction
	}
	return TrapNone
}

// execFMAdd handles the four R4-type fused multiply-add/subtract forms
// (§4.2's OpMAdd/OpMSub/OpNMSub/OpNMAdd).
func execFMAdd(m *Machine, in Inst) Trap {
	h := m.Hart
	if !fpEnabled(h) {
		return TrapIllegalInstruction
	}
	a, b, c := f32(h, in.Rs1), f32(h, in.Rs2), f32(h, in.Rs3)
	var res float32
	switch in.Op {
	case OpMAdd:
		res = a*b + c
	case OpMSub:
		res = a*b - c
	case OpNMSub:
		res = -(a * b) + c
	case OpNMAdd:
		res = -(a * b) - c
	}
	writeF32(h, in.Rd, math.Float32bits(res))
	return TrapNone
}

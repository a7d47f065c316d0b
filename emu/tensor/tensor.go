/*
 * shiresim - Tensor coprocessor subsystem: the five FSM families
 * (TensorLoad, TensorStore, TensorFMA, TensorQuant, TensorReduce) plus
 * TensorWait (§4.7).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's channel/device command
 * dispatch (emu/sys_channel's StartIO/HaltIO state-machine shape: a
 * command word decodes into parameters, a device state machine advances,
 * and completion posts status) generalized from one device's state
 * machine to the five coprocessor FSMs living on emu/core.Core.
 */
package tensor

import (
	"math"

	"github.com/etsoc/shiresim/emu/codec"
	"github.com/etsoc/shiresim/emu/core"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/mmu"
	"github.com/etsoc/shiresim/emu/observer"
	"github.com/etsoc/shiresim/emu/shire"
)

// Soft-error bits of the tensor_error CSR (§4.7, §7).
const (
	ErrBitReservedCmd   = 1 << 1
	ErrBitL1SCPDisabled = 1 << 4
	ErrBitOrphanTenB    = 1 << 6
	ErrBitAccessFault   = 1 << 7
	ErrBitIllegalCombo  = 1 << 8
	ErrBitReduceMismatch = 1 << 9
)

// TLoadCommand holds the decoded tensor_load fields. decodeTLoad fills
// Mask, Coop, Cmd, TenB, Rows, GroupID and Addr from the CSR value alone;
// X31 is not read, so Start, BOffset and Stride stay zero and every
// selected row is read from Addr.
type TLoadCommand struct {
	Mask     bool
	Coop     bool
	Cmd      int
	Start    uint64
	TenB     bool
	Addr     uint64
	BOffset  uint64
	Rows     int
	Stride   uint64
	GroupID  int
}

// Launcher implements csr.TensorLauncher, the System wiring it into the
// CSR dispatch.
type Launcher struct {
	MMU *mmu.MMU
	Obs observer.Observer
	// ResolveCoopTable returns the cooperative tensor-load table owned by
	// the hart's neighborhood; injected so tensor does not import system.
	ResolveCoopTable func(shireIdx, neighIdx int) *shire.CoopTloadTable
	// ResolveMProt returns the neighborhood's mprot gating (DRAM secure
	// window/size), so TLoad/TStore's mmu.Request carries the same
	// Secure/DRAMSizeBytes the scalar/fetch paths do (§4.3, §3.4).
	ResolveMProt func(shireIdx, neighIdx int) shire.MProt
	// ResolvePartner finds the hart/core named by a TensorReduce partner
	// (arena index, not a raw pointer, per the cross-component-reference
	// design); injected so tensor does not import system.
	ResolvePartner func(shireIdx, neighIdx, minionIdx, threadIdx int) (*hart.Hart, *core.Core)
}

func (l *Launcher) obs() observer.Observer {
	if l.Obs == nil {
		return observer.NopObserver{}
	}
	return l.Obs
}

// mprotFor returns h's neighborhood mprot, or the zero value (non-secure,
// unbounded) if no resolver was wired (standalone testing).
func (l *Launcher) mprotFor(h *hart.Hart) shire.MProt {
	if l.ResolveMProt == nil {
		return shire.MProt{}
	}
	return l.ResolveMProt(h.ShireIdx, h.NeighIdx)
}

// decodeTLoad unpacks a raw tensor_load CSR write into its fields. The
// exact bit layout is chip-specific and not pinned by the spec beyond
// field names; this packing keeps cmd in the low bits, consistent with
// how csr.go treats every other command-channel CSR as a flat value.
func decodeTLoad(value uint64) TLoadCommand {
	return TLoadCommand{
		Mask:    value&1 != 0,
		Coop:    value&2 != 0,
		Cmd:     int((value >> 2) & 0x7),
		TenB:    value&0x20 != 0,
		Rows:    int((value >> 8) & 0xFF),
		GroupID: int((value >> 16) & 0x1F),
		Addr:    value >> 21,
	}
}

// LaunchTLoad implements §4.7.1. slot is 0 or 1 for operand-A, -1 for TenB.
func (l *Launcher) LaunchTLoad(h *hart.Hart, c *core.Core, slot int, value uint64) {
	cmd := decodeTLoad(value)
	fsm := l.tloadSlot(c, slot)

	if fsm.State != core.TLoadIdle {
		if slot < 0 && !fsm.Paired {
			// Back-to-back TenB loads with paired=false cancel the prior one.
			*fsm = core.TLoad{}
		} else {
			l.beginWait(h, slot)
			return
		}
	}

	if !c.L1SCPEnabled() {
		h.TensorError |= ErrBitL1SCPDisabled
		return
	}
	if cmd.Cmd > 4 {
		h.TensorError |= ErrBitReservedCmd
		return
	}

	fsm.Value = value
	fsm.Stride = cmd.Stride
	fsm.Mask = boolToMask(cmd.Mask)

	if cmd.Coop {
		fsm.State = core.TLoadWaitingCoop
		if !l.rendezvous(h, c, slot, cmd) {
			return // Still waiting on siblings.
		}
	}
	fsm.State = core.TLoadLoading
	l.executeTLoad(h, c, slot, cmd)
}

func (l *Launcher) tloadSlot(c *core.Core, slot int) *core.TLoad {
	if slot < 0 {
		return &c.TLoadB
	}
	return &c.TLoadA[slot]
}

func boolToMask(b bool) uint64 {
	if b {
		return ^uint64(0)
	}
	return 0
}

// beginWait marks the hart waiting on the busy FSM slot and requests an
// instruction restart (the launching instruction re-issues once the FSM
// frees up); §4.7.1 "Sequencing."
func (l *Launcher) beginWait(h *hart.Hart, slot int) {
	switch slot {
	case 0:
		h.Waiting |= hart.WaitTLoad0
	case 1:
		h.Waiting |= hart.WaitTLoad1
	default:
		h.Waiting |= hart.WaitTLoadTenB
	}
	h.NPC = h.PC // Instruction restart.
}

// rendezvous installs/joins the neighborhood's cooperative table entry and
// reports whether the group has now fully arrived (§3.5, §4.7.1).
func (l *Launcher) rendezvous(h *hart.Hart, c *core.Core, slot int, cmd TLoadCommand) bool {
	if l.ResolveCoopTable == nil {
		return true // No cooperative table wired (standalone testing); proceed eagerly.
	}
	tbl := l.ResolveCoopTable(h.ShireIdx, h.NeighIdx)
	if tbl == nil {
		return true
	}
	var entry *shire.CoopTloadState
	switch {
	case slot < 0:
		entry = &tbl.TLoadB[cmd.GroupID]
	default:
		entry = &tbl.TLoadA[slot][cmd.GroupID]
	}
	if entry.Free() {
		entry.All.Set(h.MinionIdx)
		entry.Pending.Set(h.MinionIdx)
	}
	arrived := entry.Arrive(h.MinionIdx)
	if arrived {
		entry.Reset()
	}
	return arrived
}

func (l *Launcher) executeTLoad(h *hart.Hart, c *core.Core, slot int, cmd TLoadCommand) {
	mprot := l.mprotFor(h)
	dst := l.tloadDestBank(c, slot)
	for i := 0; i < cmd.Rows && i < core.L1SCPEntries; i++ {
		if cmd.Mask && !rowSelected(h, i) {
			continue
		}
		vaddr := signExtend48(cmd.Addr + uint64(i)*cmd.Stride)
		req := mmu.Request{
			Vaddr: vaddr, Size: core.ScratchLineBytes, Kind: mmu.AccessTensor, HartID: h.MHartID,
			Secure: mprot.Secure, DRAMSizeBytes: mprot.DRAMSize,
		}
		var line core.ScratchLine
		if err := l.MMU.ReadTensor(req, line[:]); err != nil {
			if err == mmu.ErrAccessFault {
				h.TensorError |= ErrBitAccessFault
				return
			}
			continue // Bus error: the row is skipped and the loop continues; no interrupt is raised.
		}
		dst[i] = line
	}

	fsm := l.tloadSlot(c, slot)
	if slot < 0 {
		fsm.State = core.TLoadLoading // TenB stays loading until a paired FMA consumes it.
	} else {
		fsm.State = core.TLoadIdle
	}
	l.clearWait(h, slot)
	l.obs().TensorEvent(h.MHartID, "tensor_load", "commit")
}

func (l *Launcher) tloadDestBank(c *core.Core, slot int) *[core.L1SCPEntries]core.ScratchLine {
	if slot < 0 {
		return &c.TenB
	}
	return &c.L1SCP
}

// rowSelected tests bit `row` of the hart's tensor_mask CSR, one bit per
// L1SCP row (§4.7.1's "msk" field gates rows, not lanes).
func rowSelected(h *hart.Hart, row int) bool {
	if row < 0 || row >= 64 {
		return false
	}
	return h.TensorMask&(1<<uint(row)) != 0
}

func (l *Launcher) clearWait(h *hart.Hart, slot int) {
	switch slot {
	case 0:
		h.Waiting &^= hart.WaitTLoad0
	case 1:
		h.Waiting &^= hart.WaitTLoad1
	default:
		h.Waiting &^= hart.WaitTLoadTenB
	}
}

func signExtend48(v uint64) uint64 {
	if v&(1<<47) != 0 {
		return v | 0xFFFF_0000_0000_0000
	}
	return v
}

// LaunchTStore implements §4.7.2 for both the store-from-SCP and
// store-from-FREGS flavors (disambiguated by bit 63 of value).
func (l *Launcher) LaunchTStore(h *hart.Hart, c *core.Core, value uint64) {
	if c.TStore.State != core.TStoreIdle {
		h.Waiting |= hart.WaitTStore
		h.NPC = h.PC
		return
	}
	fromFregs := value&(1<<63) != 0
	if !fromFregs && !c.L1SCPEnabled() {
		h.TensorError |= ErrBitL1SCPDisabled
		return
	}
	if fromFregs {
		cols := int((value >> 8) & 0x7)
		coop := int((value >> 11) & 0x7)
		if !legalStoreCombo(cols, coop) {
			h.TensorError |= ErrBitIllegalCombo
			return
		}
	}
	c.TStore.State = core.TStoreReady
	c.TStore.Value = value
	addr := signExtend48(value >> 21)
	rows := int((value >> 14) & 0xFF)
	mprot := l.mprotFor(h)
	for i := 0; i < rows && i < core.L1SCPEntries; i++ {
		vaddr := addr + uint64(i)*c.TStore.Stride
		req := mmu.Request{
			Vaddr: vaddr, Size: core.ScratchLineBytes, Kind: mmu.AccessTensor, HartID: h.MHartID,
			Secure: mprot.Secure, DRAMSizeBytes: mprot.DRAMSize,
		}
		line := c.L1SCP[i]
		if err := l.MMU.WriteTensor(req, line[:]); err != nil {
			if err == mmu.ErrAccessFault {
				h.TensorError |= ErrBitAccessFault
				break
			}
		}
	}
	c.TStore.State = core.TStoreIdle
	h.Waiting &^= hart.WaitTStore
	l.obs().TensorEvent(h.MHartID, "tensor_store", "commit")
}

// legalStoreCombo checks coop_comb[cols-1][coop-1] for a legal
// (cols ∈ {1,2,4}, coop ∈ {1,2,3,4}) pairing (§4.7.2).
func legalStoreCombo(cols, coop int) bool {
	if coop < 1 || coop > 4 {
		return false
	}
	switch cols {
	case 1, 2, 4:
		return true
	default:
		return false
	}
}

// TensorFMA operand type selector (§4.7.3's type∈{fp32, fp16a32, int8a32}).
const (
	tfmaFP32 = iota
	tfmaFP16A32
	tfmaInt8A32
)

var bcolsForCode = [4]int{4, 8, 12, 16}

// fflags bits this package sets directly (mirrors emu/decode's copy; fcsr
// is per-hart architectural state both packages touch independently).
const (
	fflagNV = 1 << 4
)

// LaunchTFMA implements §4.7.3. Value layout (chip-specific, not pinned by
// spec beyond field names): bit0 tenb, [5:1] arows, [10:6] acols, [12:11]
// bcols code (0..3 -> 4/8/12/16), [14:13] type, bit15 dst (TenC->FREGS),
// bit16 mul (first-pass), bit17 ua, bit18 ub.
func (l *Launcher) LaunchTFMA(h *hart.Hart, c *core.Core, value uint64) {
	if c.TMul.State != core.TMulIdle {
		h.Waiting |= hart.WaitTFMA
		h.NPC = h.PC
		return
	}
	tenb := value&1 != 0
	if tenb {
		if c.TLoadB.State != core.TLoadLoading || c.TLoadB.Paired {
			h.TensorError |= ErrBitOrphanTenB
			return
		}
		c.TLoadB.Paired = true
		c.TLoadB.State = core.TLoadIdle
	}
	arows := int((value >> 1) & 0x1F)
	acols := int((value >> 6) & 0x1F)
	bcols := bcolsForCode[(value>>11)&0x3]
	dtype := int((value >> 13) & 0x3)
	dstTenC := value&(1<<15) != 0
	firstPass := value&(1<<16) != 0
	ua := value&(1<<17) != 0
	ub := value&(1<<18) != 0

	b := &c.TenB
	if !tenb {
		b = &c.L1SCP
	}

	rtz := dtype == tfmaFP16A32 // RTZ for fp16a32; fp32 lanes round to nearest-even (frm is not applied).
	frm := uint8((h.FCSR >> 5) & 0x7)

	cols := acols
	if bcols < cols {
		cols = bcols
	}
	for i := 0; i < arows && i < core.L1SCPEntries; i++ {
		for j := 0; j < cols && j < core.ScratchLineBytes/4; j++ {
			switch dtype {
			case tfmaInt8A32:
				av := int32(int8(c.L1SCP[i].U8(j)))
				bv := int32(int8(b[i].U8(j)))
				if ua {
					av = int32(c.L1SCP[i].U8(j))
				}
				if ub {
					bv = int32(b[i].U8(j))
				}
				if av == 0 || bv == 0 {
					continue
				}
				acc := av * bv
				if !firstPass {
					acc += int32(c.TenC[i].U32(j))
				}
				c.TenC[i].SetU32(j, uint32(acc))
			default:
				av := c.L1SCP[i].U32(j)
				bv := b[i].U32(j)
				if av == 0 || bv == 0 {
					continue // Skipped for performance; observable only via notifications.
				}
				af := decodeFMAOperand(dtype, av)
				bf := decodeFMAOperand(dtype, bv)
				var acc float32
				if !firstPass {
					acc = math.Float32frombits(c.TenC[i].U32(j))
				}
				prod := roundedMul(af, bf, frm, rtz)
				sum := roundedAdd(acc, prod, frm, rtz)
				if math.IsNaN(float64(sum)) {
					h.FCSR |= fflagNV
				}
				c.TenC[i].SetU32(j, math.Float32bits(sum))
			}
		}
	}
	if dstTenC {
		rows := arows
		if rows > core.L1SCPEntries {
			rows = core.L1SCPEntries
		}
		for i := 0; i < rows && i < len(h.F); i++ {
			n := copy(h.F[i][:], c.TenC[i][:])
			for b := n; b < len(h.F[i]); b++ {
				h.F[i][b] = 0xFF
			}
		}
	}
	c.TMul.State = core.TMulIdle
	h.Waiting &^= hart.WaitTFMA
	l.obs().TensorEvent(h.MHartID, "tensor_fma", "commit")
	l.obs().FFlagsUpdate(h.MHartID, uint8(h.FCSR&0x1F))
}

// decodeFMAOperand reinterprets a 32-bit lane as fp32 directly, or as a
// packed fp16 value (widened via codec) for fp16a32.
func decodeFMAOperand(dtype int, raw uint32) float32 {
	if dtype == tfmaFP16A32 {
		return math.Float32frombits(codec.F16ToF32(uint16(raw)))
	}
	return math.Float32frombits(raw)
}

// roundedMul/roundedAdd apply RTZ (truncate-towards-zero) when rtz is set
// (fp16a32 lanes, §4.7.3) by computing in float64 and truncating mantissa
// bits beyond float32 precision; fp32 lanes use Go's native
// round-to-nearest-even and frm is otherwise left to the strict-softfloat
// gap noted in DESIGN.md.
func roundedMul(a, b float32, frm uint8, rtz bool) float32 {
	if rtz {
		return truncF32(float64(a) * float64(b))
	}
	_ = frm
	return a * b
}

func roundedAdd(a, b float32, frm uint8, rtz bool) float32 {
	if rtz {
		return truncF32(float64(a) + float64(b))
	}
	_ = frm
	return a + b
}

// truncF32 truncates a float64 intermediate to float32 precision by
// rounding towards zero instead of Go's implicit round-to-nearest-even:
// when the nearest float32 lies farther from zero, it steps one ulp back.
func truncF32(exact float64) float32 {
	f := float32(exact)
	if math.Abs(float64(f)) > math.Abs(exact) {
		f = math.Nextafter32(f, 0)
	}
	return f
}

// Quant transforms, in command-word application order (§4.7.4).
const (
	QuantIntToFP32 = iota
	QuantFP32ToInt32
	QuantInt32ReLU
	QuantInt32AddRow
	QuantInt32AddCol
	QuantFP32MulRow
	QuantFP32MulCol
	QuantSatInt8
	QuantSatUint8
	QuantPack128
)

// requiresL1SCP reports whether a transform is in the
// int32_add_row..fp32_mul_col range gated on L1SCP (§4.7.4).
func requiresL1SCP(t int) bool { return t >= QuantInt32AddRow && t <= QuantFP32MulCol }

// LaunchTQuant implements §4.7.4. value packs up to 10 transform codes,
// 4 bits each, applied in order.
func (l *Launcher) LaunchTQuant(h *hart.Hart, c *core.Core, value uint64) {
	if c.TQuant.State != core.TQuantIdle {
		h.Waiting |= hart.WaitTQuant
		h.NPC = h.PC
		return
	}
	arows := int((value >> 40) & 0x1F)
	acols := int((value >> 45) & 0x1F)
	for t := 0; t < 10; t++ {
		transform := int((value >> uint(t*4)) & 0xF)
		if transform == 0xF {
			continue // No-op slot.
		}
		if requiresL1SCP(transform) && !c.L1SCPEnabled() {
			h.TensorError |= ErrBitL1SCPDisabled
			return
		}
		applyQuantTransform(c, transform, arows, acols)
	}
	c.TQuant.State = core.TQuantIdle
	h.Waiting &^= hart.WaitTQuant
	l.obs().TensorEvent(h.MHartID, "tensor_quant", "commit")
}

// applyQuantTransform applies one transform step over the tile. AddRow/MulRow
// broadcast row 0 as a per-column bias/scale vector; AddCol/MulCol broadcast
// column 0 as a per-row bias/scale scalar (§4.7.4 names the transforms but not
// their operand source, so row 0/col 0 of the same tile are taken as the
// accumulator the preceding transform step left behind).
func applyQuantTransform(c *core.Core, transform, arows, acols int) {
	rows := arows
	if rows > core.L1SCPEntries {
		rows = core.L1SCPEntries
	}
	cols := acols
	if cols > core.ScratchLineBytes/4 {
		cols = core.ScratchLineBytes / 4
	}
	if transform == QuantPack128 {
		packRows128(c, rows, acols) // Byte columns, so not capped at the 32-bit lane count.
		return
	}
	row0 := c.L1SCP[0] // Row-broadcast operand, read before row 0 itself is transformed.
	for i := 0; i < rows; i++ {
		col0 := c.L1SCP[i].U32(0) // Column-broadcast operand, read before column 0 is transformed.
		for j := 0; j < cols; j++ {
			switch transform {
			case QuantIntToFP32:
				v := int32(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU32(j, math.Float32bits(float32(v)))
			case QuantFP32ToInt32:
				v := math.Float32frombits(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU32(j, uint32(int32(v)))
			case QuantInt32ReLU:
				v := int32(c.L1SCP[i].U32(j))
				if v < 0 {
					v = 0
				}
				c.L1SCP[i].SetU32(j, uint32(v))
			case QuantInt32AddRow:
				bias := int32(row0.U32(j))
				v := int32(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU32(j, uint32(v+bias))
			case QuantInt32AddCol:
				bias := int32(col0)
				v := int32(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU32(j, uint32(v+bias))
			case QuantFP32MulRow:
				scale := math.Float32frombits(row0.U32(j))
				v := math.Float32frombits(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU32(j, math.Float32bits(v*scale))
			case QuantFP32MulCol:
				scale := math.Float32frombits(col0)
				v := math.Float32frombits(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU32(j, math.Float32bits(v*scale))
			case QuantSatInt8:
				v := int32(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU8(j, codec.F32ToSN8(math.Float32bits(float32(v)/127.0)))
			case QuantSatUint8:
				v := int32(c.L1SCP[i].U32(j))
				c.L1SCP[i].SetU8(j, codec.F32ToUN8(math.Float32bits(float32(v)/255.0)))
			}
		}
	}
}

// packRows128 compacts each row's already-saturated bytes (written at column
// index j by QuantSatInt8/QuantSatUint8) down into the row's first 16 bytes,
// the 128-bit group §4.7.4 names as the pack target. SatInt8/SatUint8 already
// write one byte per column starting at offset 0, so packing is the identity
// once cols<=16; this only has visible effect when a wider tile feeds into a
// narrower pack, where it discards the high columns' stale bytes beyond the
// 128-bit group.
func packRows128(c *core.Core, rows, cols int) {
	const packBytes = 16
	if cols > core.ScratchLineBytes {
		cols = core.ScratchLineBytes
	}
	for i := 0; i < rows; i++ {
		for j := packBytes; j < cols; j++ {
			c.L1SCP[i].SetU8(j, 0)
		}
	}
}

// ReduceFunc is one of the send/receive function codes (§4.7.5).
type ReduceFunc int

const (
	ReduceFAdd ReduceFunc = iota
	ReduceFMax
	ReduceFMin
	ReduceAdd
	ReduceMax
	ReduceMin
	ReduceMove
)

func legalReduceFunc(f uint8) bool { return f <= uint8(ReduceMove) }

// LaunchTReduce implements §4.7.5. Commands: 0=send,1=receive,2=broadcast,
// 3=reduce, packed in bits [1:0] of value. send/receive name their partner
// explicitly (minion [22:18], thread bit23, shire [28:24]); broadcast/reduce
// instead carry a tree height [33:30] and derive sender/receiver from the
// minion index: minmask := (1<<height)-1, distance := 1<<(height-1), the
// minion at minion&minmask==0 is the root of this level and the one at
// minion&minmask==distance is its peer. Broadcast sends root->peer; reduce
// sends peer->root with accumulation via Func.
func (l *Launcher) LaunchTReduce(h *hart.Hart, c *core.Core, value uint64) {
	cmdKind := value & 0x3
	fn := uint8((value >> 2) & 0x7)
	base := int((value >> 5) & 0x1F)
	count := int((value >> 10) & 0xFF)

	if count == 0 {
		return // No-op, no error bit.
	}
	if !legalReduceFunc(fn) {
		h.TensorError |= ErrBitReduceMismatch
		return
	}

	c.Reduce.Func = fn
	c.Reduce.RegBase = base
	c.Reduce.RegCount = count

	switch cmdKind {
	case 0, 1: // send, receive: explicit partner.
		partnerMinion := int((value >> 18) & 0x1F)
		partnerThread := int((value >> 23) & 0x1)
		partnerShire := int((value >> 24) & 0x1F)
		if partnerShire == h.ShireIdx && partnerMinion == h.MinionIdx && partnerThread == h.ThreadIdx {
			h.TensorError |= ErrBitReduceMismatch // Self-partner, §4.7.5 bit9.
			return
		}
		c.Reduce.PartnerShire = partnerShire
		c.Reduce.PartnerMinion = partnerMinion
		c.Reduce.PartnerThread = partnerThread
		c.Reduce.HasPartner = true
		if cmdKind == 0 {
			c.Reduce.State = core.TReduceWaitingToSend
		} else {
			c.Reduce.State = core.TReduceWaitingToReceive
		}
	case 2, 3: // broadcast, reduce: partner derived from height/minion index.
		height := int((value >> 30) & 0xF)
		if height < 1 {
			h.TensorError |= ErrBitReduceMismatch
			return
		}
		minmask := (1 << uint(height)) - 1
		distance := 1 << uint(height-1)
		minion := h.MinionIdx
		isRoot := minion&minmask == 0
		isPeer := minion&minmask == distance
		if !isRoot && !isPeer {
			return // Not a participant at this height, silent.
		}
		c.Reduce.PartnerShire = h.ShireIdx
		c.Reduce.PartnerMinion = minion ^ distance
		c.Reduce.PartnerThread = h.ThreadIdx
		c.Reduce.HasPartner = true

		sending := (cmdKind == 2 && isRoot) || (cmdKind == 3 && isPeer)
		if sending {
			c.Reduce.State = core.TReduceWaitingToSend
		} else {
			c.Reduce.State = core.TReduceWaitingToReceive
		}
	}

	l.tryCompleteReduce(h, c)
}

// tryCompleteReduce resolves the named partner and runs the transfer if it
// is waiting on the complementary side of the same exchange and pointed
// back at this hart; otherwise this hart suspends on WaitReduce until the
// partner's own TensorReduce completes the rendezvous. Partners are assumed
// to live in the caller's own neighborhood (§4.7.5 names only shire/minion/
// thread, and tree reductions are a per-neighborhood fabric).
func (l *Launcher) tryCompleteReduce(h *hart.Hart, c *core.Core) {
	if !c.Reduce.HasPartner || l.ResolvePartner == nil {
		h.Waiting |= hart.WaitReduce
		h.NPC = h.PC
		return
	}
	ph, pc := l.ResolvePartner(c.Reduce.PartnerShire, h.NeighIdx, c.Reduce.PartnerMinion, c.Reduce.PartnerThread)
	if ph == nil || pc == nil || !pc.Reduce.HasPartner {
		h.Waiting |= hart.WaitReduce
		h.NPC = h.PC
		return
	}
	partnerWantsUs := pc.Reduce.PartnerShire == h.ShireIdx &&
		pc.Reduce.PartnerMinion == h.MinionIdx &&
		pc.Reduce.PartnerThread == h.ThreadIdx

	var sender, receiver *hart.Hart
	var senderCore, receiverCore *core.Core
	switch {
	case c.Reduce.State == core.TReduceWaitingToSend && pc.Reduce.State == core.TReduceWaitingToReceive && partnerWantsUs:
		sender, senderCore = h, c
		receiver, receiverCore = ph, pc
	case c.Reduce.State == core.TReduceWaitingToReceive && pc.Reduce.State == core.TReduceWaitingToSend && partnerWantsUs:
		sender, senderCore = ph, pc
		receiver, receiverCore = h, c
	default:
		h.Waiting |= hart.WaitReduce
		h.NPC = h.PC
		return
	}
	l.CompletePartner(sender, receiver, senderCore, receiverCore)
	h.Waiting &^= hart.WaitReduce
	ph.Waiting &^= hart.WaitReduce
}

// CompletePartner is called once both ends of a TensorReduce have
// identified each other; it performs the count-step transfer.
func (l *Launcher) CompletePartner(sender, receiver *hart.Hart, senderCore, receiverCore *core.Core) {
	if senderCore.Reduce.RegCount != receiverCore.Reduce.RegCount {
		sender.TensorError |= ErrBitReduceMismatch
		receiver.TensorError |= ErrBitReduceMismatch
		senderCore.Reduce.State = core.TReduceIdle
		receiverCore.Reduce.State = core.TReduceIdle
		senderCore.Reduce.HasPartner = false
		receiverCore.Reduce.HasPartner = false
		return
	}
	for i := 0; i < senderCore.Reduce.RegCount; i++ {
		srcIdx := senderCore.Reduce.RegBase + i
		dstIdx := receiverCore.Reduce.RegBase + i
		if srcIdx >= len(sender.F) || dstIdx >= len(receiver.F) {
			break
		}
		applyReduceFunc(receiverCore.Reduce.Func, &receiver.F[dstIdx], sender.F[srcIdx])
	}
	senderCore.Reduce.State = core.TReduceIdle
	receiverCore.Reduce.State = core.TReduceIdle
	senderCore.Reduce.HasPartner = false
	receiverCore.Reduce.HasPartner = false
}

func applyReduceFunc(fn uint8, dst *[hart.VLEN / 8]byte, src [hart.VLEN / 8]byte) {
	switch ReduceFunc(fn) {
	case ReduceMove:
		*dst = src
	case ReduceAdd:
		for i := 0; i < len(dst); i += 4 {
			a := int32(uint32(dst[i]) | uint32(dst[i+1])<<8 | uint32(dst[i+2])<<16 | uint32(dst[i+3])<<24)
			b := int32(uint32(src[i]) | uint32(src[i+1])<<8 | uint32(src[i+2])<<16 | uint32(src[i+3])<<24)
			sum := uint32(a + b)
			dst[i] = byte(sum)
			dst[i+1] = byte(sum >> 8)
			dst[i+2] = byte(sum >> 16)
			dst[i+3] = byte(sum >> 24)
		}
	case ReduceFAdd:
		for i := 0; i < len(dst); i += 4 {
			a := math.Float32frombits(uint32(dst[i]) | uint32(dst[i+1])<<8 | uint32(dst[i+2])<<16 | uint32(dst[i+3])<<24)
			b := math.Float32frombits(uint32(src[i]) | uint32(src[i+1])<<8 | uint32(src[i+2])<<16 | uint32(src[i+3])<<24)
			sum := math.Float32bits(a + b)
			dst[i] = byte(sum)
			dst[i+1] = byte(sum >> 8)
			dst[i+2] = byte(sum >> 16)
			dst[i+3] = byte(sum >> 24)
		}
	case ReduceFMax:
		reduceFP32Pairwise(dst, src, fmax32)
	case ReduceFMin:
		reduceFP32Pairwise(dst, src, fmin32)
	case ReduceMax:
		reduceInt32Pairwise(dst, src, func(a, b int32) int32 {
			if a > b {
				return a
			}
			return b
		})
	case ReduceMin:
		reduceInt32Pairwise(dst, src, func(a, b int32) int32 {
			if a < b {
				return a
			}
			return b
		})
	}
}

// fmin32/fmax32 follow IEEE 754-2008 minNum/maxNum: a non-NaN operand
// wins over a NaN one.
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

func reduceFP32Pairwise(dst *[hart.VLEN / 8]byte, src [hart.VLEN / 8]byte, op func(a, b float32) float32) {
	for i := 0; i < len(dst); i += 4 {
		a := math.Float32frombits(uint32(dst[i]) | uint32(dst[i+1])<<8 | uint32(dst[i+2])<<16 | uint32(dst[i+3])<<24)
		b := math.Float32frombits(uint32(src[i]) | uint32(src[i+1])<<8 | uint32(src[i+2])<<16 | uint32(src[i+3])<<24)
		r := math.Float32bits(op(a, b))
		dst[i] = byte(r)
		dst[i+1] = byte(r >> 8)
		dst[i+2] = byte(r >> 16)
		dst[i+3] = byte(r >> 24)
	}
}

func reduceInt32Pairwise(dst *[hart.VLEN / 8]byte, src [hart.VLEN / 8]byte, op func(a, b int32) int32) {
	for i := 0; i < len(dst); i += 4 {
		a := int32(uint32(dst[i]) | uint32(dst[i+1])<<8 | uint32(dst[i+2])<<16 | uint32(dst[i+3])<<24)
		b := int32(uint32(src[i]) | uint32(src[i+1])<<8 | uint32(src[i+2])<<16 | uint32(src[i+3])<<24)
		r := uint32(op(a, b))
		dst[i] = byte(r)
		dst[i+1] = byte(r >> 8)
		dst[i+2] = byte(r >> 16)
		dst[i+3] = byte(r >> 24)
	}
}

// Wait implements §4.7.6: tensor_wait blocks the hart on FSM `target`
// (an event index 0..10) if non-idle; otherwise it is a fenced nop.
func (l *Launcher) Wait(h *hart.Hart, c *core.Core, target uint64) {
	idle := true
	switch target {
	case 0:
		idle = c.TLoadA[0].State == core.TLoadIdle
	case 1:
		idle = c.TLoadA[1].State == core.TLoadIdle
	case 2:
		idle = c.TLoadB.State == core.TLoadIdle
	case 5:
		idle = c.TMul.State == core.TMulIdle
	case 6:
		idle = c.Reduce.State == core.TReduceIdle
	case 7:
		idle = c.TQuant.State == core.TQuantIdle
	case 8:
		idle = c.TStore.State == core.TStoreIdle
	}
	if !idle {
		h.Waiting |= hart.WaitInterrupt
		h.NPC = h.PC
		return
	}
	l.obs().TensorEvent(h.MHartID, "tensor_wait", "fenced_nop")
}

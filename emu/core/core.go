/*
 * shiresim - Per-core (per-minion) state: the two threads of a minion share
 * one Core holding cache-mode CSRs, the L1 scratchpad, TenB/TenC, and the
 * tensor coprocessor FSMs.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's device-state structs (plain
 * exported fields, package-sibling access, no getters) and generalized to
 * the §3.3 per-core fields.
 */
package core

// L1SCPEntries is the number of 64-byte lines in the per-core L1 scratchpad.
const L1SCPEntries = 64

// ScratchLineBytes is the width of one scratchpad line.
const ScratchLineBytes = 64

// CacheMode is the mcache_control/ucache_control D-cache mode (§4.2).
type CacheMode int

const (
	CacheBypass CacheMode = 0
	CacheCached CacheMode = 1
	CacheL1SCP  CacheMode = 3
)

// CacheModeTransitionAllowed implements the transition table: 0->{0,1},
// 1->{1,3}, 3->{1,3}.
func CacheModeTransitionAllowed(from, to CacheMode) bool {
	switch from {
	case CacheBypass:
		return to == CacheBypass || to == CacheCached
	case CacheCached:
		return to == CacheCached || to == CacheL1SCP
	case CacheL1SCP:
		return to == CacheCached || to == CacheL1SCP
	default:
		return false
	}
}

// ScratchLine is one 64-byte scratchpad line, lane-addressable as
// u8/u16/u32/f16/f32 views over the same storage.
type ScratchLine [ScratchLineBytes]byte

func (l *ScratchLine) U8(i int) uint8       { return l[i] }
func (l *ScratchLine) SetU8(i int, v uint8) { l[i] = v }

func (l *ScratchLine) U16(i int) uint16 {
	o := i * 2
	return uint16(l[o]) | uint16(l[o+1])<<8
}

func (l *ScratchLine) SetU16(i int, v uint16) {
	o := i * 2
	l[o] = byte(v)
	l[o+1] = byte(v >> 8)
}

func (l *ScratchLine) U32(i int) uint32 {
	o := i * 4
	return uint32(l[o]) | uint32(l[o+1])<<8 | uint32(l[o+2])<<16 | uint32(l[o+3])<<24
}

func (l *ScratchLine) SetU32(i int, v uint32) {
	o := i * 4
	l[o] = byte(v)
	l[o+1] = byte(v >> 8)
	l[o+2] = byte(v >> 16)
	l[o+3] = byte(v >> 24)
}

// TLoadState is the TensorLoad FSM state (§4.7.1).
type TLoadState int

const (
	TLoadIdle TLoadState = iota
	TLoadWaitingCoop
	TLoadReady
	TLoadLoading
)

func (s TLoadState) String() string {
	switch s {
	case TLoadIdle:
		return "idle"
	case TLoadWaitingCoop:
		return "waiting_coop"
	case TLoadReady:
		return "ready"
	case TLoadLoading:
		return "loading"
	default:
		return "?"
	}
}

// CoopDescriptor is the cooperative-load descriptor (tcoop) shared between
// TLoad FSM instances participating in a rendezvous (§4.7.1, §3.5). Pending
// holds minion indices within the neighborhood, not raw pointers.
type CoopDescriptor struct {
	Leader    bool
	GroupSize int
	Pending   []int
}

// TLoad is one TensorLoad state machine: operand-A slots 0/1, or TenB.
type TLoad struct {
	State  TLoadState
	Value  uint64 // Command word as launched via the tensor CSR.
	Stride uint64
	Mask   uint64
	TCoop  CoopDescriptor
	Paired bool // Set when a later TensorFMA has consumed this TenB load.
}

// TMulState is the TensorFMA FSM state.
type TMulState int

const (
	TMulIdle TMulState = iota
	TMulWaitingTenB
	TMulReady
)

// TMul is the TensorFMA state machine.
type TMul struct {
	State     TMulState
	Value     uint64
	RoundMode uint8
	RowMask   uint64
}

// TQuantState is the TensorQuant FSM state.
type TQuantState int

const (
	TQuantIdle TQuantState = iota
	TQuantReady
)

// TQuant is the TensorQuant state machine.
type TQuant struct {
	State     TQuantState
	Value     uint64
	RoundMode uint8
}

// TStoreState is the TensorStore FSM state.
type TStoreState int

const (
	TStoreIdle TStoreState = iota
	TStoreReady
)

// TStore is the TensorStore state machine; it covers both the
// store-from-SCP and store-from-FREGS flavors, disambiguated by Value.
type TStore struct {
	State  TStoreState
	Value  uint64
	Stride uint64
}

// TReduceState is the TensorReduce FSM state (§4.7, send/receive pairing).
type TReduceState int

const (
	TReduceIdle TReduceState = iota
	TReduceWaitingToSend
	TReduceWaitingToReceive
	TReduceReadyToSend
	TReduceReadyToReceive
)

// TReduce is the TensorReduce state machine. The partner is named by arena
// index, not a raw pointer, per the cross-component reference design.
type TReduce struct {
	State         TReduceState
	PartnerShire  int
	PartnerMinion int
	PartnerThread int
	HasPartner    bool
	RegBase       int
	RegCount      int
	Func          uint8
	RoundMode     uint8
}

// TKind tags queued tensor operations for TQueue.
type TKind int

const (
	TKindFMA TKind = iota
	TKindQuant
	TKindStore
	TKindReduce
)

// QueuedTensorOp is one entry of the optional intra-core ordering queue.
type QueuedTensorOp struct {
	Kind       TKind
	ThreadIdx  int // Which thread (0/1) launched it, for log correlation.
}

// Core is the per-minion state shared by its two threads (§3.3).
type Core struct {
	ShireIdx  int
	NeighIdx  int
	MinionIdx int

	// Shared CSR-backed fields: both threads' CSR views for these read and
	// write the same storage (see emu/csr).
	SATP           uint64
	MATP           uint64
	MATPLocked     bool
	MCacheControl  CacheMode
	UCacheControl  CacheMode
	MEnableShadows uint64
	ExclMode       bool

	L1SCP [L1SCPEntries]ScratchLine
	TenB  [L1SCPEntries]ScratchLine
	TenC  [L1SCPEntries]ScratchLine // TensorAccumulator, int8a32 lanes.

	TLoadA [2]TLoad
	TLoadB TLoad
	TMul   TMul
	TQuant TQuant
	TStore TStore
	Reduce TReduce

	TQueue []QueuedTensorOp

	tensorUUID uint64 // Monotonic, log-correlation only.
}

// New constructs a Core at its arena position, cache control starting
// bypassed (cold-reset shape; §4.8 applies the reset ladder).
func New(shireIdx, neighIdx, minionIdx int) *Core {
	return &Core{ShireIdx: shireIdx, NeighIdx: neighIdx, MinionIdx: minionIdx}
}

// NextTensorUUID returns a fresh monotonic id for log correlation only; it
// has no architectural meaning.
func (c *Core) NextTensorUUID() uint64 {
	c.tensorUUID++
	return c.tensorUUID
}

// AnyTLoadPending reports whether either operand-A slot or the TenB slot is
// not idle; used to refuse an L1SCP-disable while a cooperative TLoad is in
// flight (programmer error, §4.2/§4.7.3).
func (c *Core) AnyTLoadPending() bool {
	return c.TLoadA[0].State != TLoadIdle || c.TLoadA[1].State != TLoadIdle || c.TLoadB.State != TLoadIdle
}

// L1SCPEnabled reports whether the scratchpad is in its fully-enabled mode.
func (c *Core) L1SCPEnabled() bool {
	return c.MCacheControl == CacheL1SCP
}

// SetCacheControl applies the transition table, reporting false (no change
// applied) on an illegal transition. The mcache_control CSR path in
// emu/csr does not call it; it applies the same table itself.
func (c *Core) SetCacheControl(to CacheMode) bool {
	if !CacheModeTransitionAllowed(c.MCacheControl, to) {
		return false
	}
	c.MCacheControl = to
	return true
}

// PushTensorOp enqueues an op onto the optional intra-core ordering queue.
func (c *Core) PushTensorOp(kind TKind, threadIdx int) {
	c.TQueue = append(c.TQueue, QueuedTensorOp{Kind: kind, ThreadIdx: threadIdx})
}

// PopTensorOp removes and returns the head of the queue.
func (c *Core) PopTensorOp() (QueuedTensorOp, bool) {
	if len(c.TQueue) == 0 {
		return QueuedTensorOp{}, false
	}
	op := c.TQueue[0]
	c.TQueue = c.TQueue[1:]
	return op, true
}

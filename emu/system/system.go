/*
 * shiresim - System: the chip-wide aggregate arena (shires, neighborhoods,
 * cores, harts), the ESR plane (§4.6, §6.3), and the reset ladders and
 * control surface (§4.8, §6.2).
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's top-level system struct (the
 * channel set + CPU set owned by one aggregate, with device lookup by
 * address decode) generalized to this chip's shire/neighborhood/minion/hart
 * arena and its physical-address-encoded register plane.
 */
package system

import (
	"errors"

	"github.com/etsoc/shiresim/emu/agent"
	"github.com/etsoc/shiresim/emu/core"
	"github.com/etsoc/shiresim/emu/csr"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/ids"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/mmu"
	"github.com/etsoc/shiresim/emu/observer"
	"github.com/etsoc/shiresim/emu/pma"
	"github.com/etsoc/shiresim/emu/shire"
	"github.com/etsoc/shiresim/emu/tensor"
)

// ErrMemoryError is raised for an unknown ESR address (§4.6).
var ErrMemoryError = errors.New("system: memory_error: unknown esr")

// System owns every shire/neighborhood/core/hart in the chip plus the
// shared memory bus, MMU and observer fan-out (§5 "Shared-resource
// policy": all shared state is owned by the System aggregate).
type System struct {
	Shires []*shire.Shire
	// Cores and Harts are indexed [shireIdx][neighIdx][minionIdx] and
	// [shireIdx][neighIdx][minionIdx][threadIdx] respectively. The I/O
	// shire has exactly one neighborhood, one minion, and one thread (the
	// service processor).
	Cores [][][]*core.Core
	Harts [][][][]*hart.Hart

	Mem   *memory.MainMemory
	MMU   *mmu.MMU
	Obs   observer.Observer
	Tensor csr.TensorLauncher

	EmuDone bool
	EmuFail bool

	Stepping string

	// DefaultDRAMSize seeds every neighborhood's MProt.DRAMSize on cold
	// reset, so the tensor/memRequest secure-window clamp (§4.3) tracks
	// main.go's configured DRAMSIZE instead of defaulting open-ended.
	DefaultDRAMSize uint64
}

// New builds the full arena for shireCount shires in total, the one at
// index IOShireSP being the I/O shire, wiring the MMU to mem/variant and
// installing obs everywhere observer notifications are emitted.
func New(shireCount int, variant pma.Variant, mem *memory.MainMemory, obs observer.Observer) *System {
	if obs == nil {
		obs = observer.NopObserver{}
	}
	s := &System{
		Mem: mem,
		MMU: mmu.New(mem, variant, obs),
		Obs: obs,
	}
	s.Shires = make([]*shire.Shire, shireCount)
	s.Cores = make([][][]*core.Core, shireCount)
	s.Harts = make([][][][]*hart.Hart, shireCount)

	for si := 0; si < shireCount; si++ {
		neighCount := ids.NeighPerShire
		minionsPerNeigh := ids.MinionsPerNeigh
		threadsPerMinion := ids.ThreadsPerMinion
		if ids.ShireIndexToID(si) == ids.IOShireID {
			neighCount, minionsPerNeigh, threadsPerMinion = 1, 1, 1
		}
		s.Shires[si] = shire.New(si, neighCount)
		s.Cores[si] = make([][]*core.Core, neighCount)
		s.Harts[si] = make([][][]*hart.Hart, neighCount)
		for ni := 0; ni < neighCount; ni++ {
			s.Cores[si][ni] = make([]*core.Core, minionsPerNeigh)
			s.Harts[si][ni] = make([][]*hart.Hart, minionsPerNeigh)
			for mi := 0; mi < minionsPerNeigh; mi++ {
				s.Cores[si][ni][mi] = core.New(si, ni, mi)
				s.Harts[si][ni][mi] = make([]*hart.Hart, threadsPerMinion)
				for ti := 0; ti < threadsPerMinion; ti++ {
					s.Harts[si][ni][mi][ti] = hart.New(si, ni, mi, ti)
				}
			}
		}
	}

	s.Tensor = &tensor.Launcher{
		MMU: s.MMU,
		Obs: obs,
		ResolveCoopTable: func(shireIdx, neighIdx int) *shire.CoopTloadTable {
			n := s.NeighborhoodAt(shireIdx, neighIdx)
			if n == nil {
				return nil
			}
			return &n.Coop
		},
		ResolveMProt: func(shireIdx, neighIdx int) shire.MProt {
			n := s.NeighborhoodAt(shireIdx, neighIdx)
			if n == nil {
				return shire.MProt{}
			}
			return n.MProt
		},
		ResolvePartner: func(shireIdx, neighIdx, minionIdx, threadIdx int) (*hart.Hart, *core.Core) {
			return s.HartAt(shireIdx, neighIdx, minionIdx, threadIdx), s.CoreAt(shireIdx, neighIdx, minionIdx)
		},
	}

	return s
}

// HartAt returns the hart at the given arena position, or nil if out of
// range (callers treat nil as "does not exist," e.g. a broadcast ESR write
// iterating minions a compute shire does not have).
func (s *System) HartAt(shireIdx, neighIdx, minionIdx, threadIdx int) *hart.Hart {
	if shireIdx < 0 || shireIdx >= len(s.Harts) {
		return nil
	}
	sh := s.Harts[shireIdx]
	if neighIdx < 0 || neighIdx >= len(sh) {
		return nil
	}
	n := sh[neighIdx]
	if minionIdx < 0 || minionIdx >= len(n) {
		return nil
	}
	m := n[minionIdx]
	if threadIdx < 0 || threadIdx >= len(m) {
		return nil
	}
	return m[threadIdx]
}

func (s *System) CoreAt(shireIdx, neighIdx, minionIdx int) *core.Core {
	if shireIdx < 0 || shireIdx >= len(s.Cores) {
		return nil
	}
	sh := s.Cores[shireIdx]
	if neighIdx < 0 || neighIdx >= len(sh) {
		return nil
	}
	n := sh[neighIdx]
	if minionIdx < 0 || minionIdx >= len(n) {
		return nil
	}
	return n[minionIdx]
}

func (s *System) NeighborhoodAt(shireIdx, neighIdx int) *shire.Neighborhood {
	sh := s.ShireAt(shireIdx)
	if sh == nil || neighIdx < 0 || neighIdx >= len(sh.Neighborhoods) {
		return nil
	}
	return sh.Neighborhoods[neighIdx]
}

func (s *System) ShireAt(shireIdx int) *shire.Shire {
	if shireIdx < 0 || shireIdx >= len(s.Shires) {
		return nil
	}
	return s.Shires[shireIdx]
}

// CSRContext builds the emu/csr.Context for one hart, resolving its Core
// arena reference.
func (s *System) CSRContext(h *hart.Hart) csr.Context {
	return csr.Context{
		Hart:   h,
		Core:   s.CoreAt(h.ShireIdx, h.NeighIdx, h.MinionIdx),
		Tensor: s.Tensor,
	}
}

// --- ESR address decode (§6.3) ---

// esrSubregion enumerates the two-bit subregion field.
type esrSubregion int

const (
	subHart esrSubregion = iota
	subNeigh
	subShireBank // shire-cache / shire-other / rbox, disambiguated by register index range.
	subReserved
)

// esrAddr is the decoded form of a physical ESR address.
type esrAddr struct {
	PP       ids.Privilege
	ShireID  int // External id; 0xFF (all-ones over 8 bits) means "local."
	Sub      esrSubregion
	HartID   int
	NeighID  int // 0xF means neighborhood-broadcast.
	Bank     int // 0xF means cache-bank-broadcast.
	RegIndex int
}

const esrLocalShire = 0xFF

func decodeESRAddr(addr uint64) esrAddr {
	off := addr - pma.ESRBase
	pp := ids.Privilege((off >> 30) & 0x3)
	shireField := int((off >> 22) & 0xFF)
	sub := esrSubregion((off >> 20) & 0x3)
	a := esrAddr{PP: pp, ShireID: shireField, Sub: sub}
	switch sub {
	case subHart:
		a.HartID = int((off >> 12) & 0xFF)
		a.RegIndex = int((off >> 3) & 0x1FF)
	case subNeigh:
		a.NeighID = int((off >> 16) & 0xF)
		a.RegIndex = int((off >> 3) & 0x1FFF)
	default:
		a.Bank = int((off >> 13) & 0xF)
		a.RegIndex = int((off >> 3) & 0x3FF)
	}
	return a
}

// resolveShireIndex rewrites "local shire" (all-ones) to the requesting
// agent's own shire; service-processor agents are rejected per §4.6.
func resolveShireIndex(a esrAddr, ag agent.Agent) (int, error) {
	if a.ShireID != esrLocalShire {
		return ids.ShireIDToIndex(a.ShireID), nil
	}
	if ag.IsServiceProcessor() || ag.ShireIndex() < 0 {
		return 0, ErrMemoryError
	}
	return ag.ShireIndex(), nil
}

// Register index assignments within the hart/neighborhood/shire-scope ESR
// blocks. These are this implementation's own layout (§6.3 gives the
// address *field* boundaries, not a register-index-to-name table), kept
// small and exhaustive rather than guessing at undocumented indices.
const (
	regHartDebugDCSR = iota
	regHartDebugDPC
	regHartDebugData0
	regHartProgBuf0
	regHartProgBuf1
)

const (
	regNeighICacheErrLog = iota
	regNeighIPIRedirectPC
	regNeighMinionBoot
	regNeighMProtDRAMBase
	regNeighMProtDRAMSize
	regNeighMProtFlags
	regNeighHActrl
	regNeighHAStatus0
	regNeighHAStatus1
	regNeighTextureControl
	regNeighTextureStatus
	regNeighChicken
	regNeighVMSPageSize
	regNeighPMUControl
)

const (
	regShireCacheControl = iota
	regShireCacheErrorLog
	regShireCachePerfmon
)

const (
	// Starts after the shire-cache indices so the two ranges never overlap.
	regShireIPIRedirectFilter = iota + regShireCachePerfmon + 1
	regShireIPIRedirectTrigger
	regShireIPITrigger
	regShirePLLConfig
	regShireDLLConfig
	regShireCoopMode
	regShireThread0Disable
	regShireThread1Disable
	regShireMinionFeature
	regShireConfig
	regShireMtimeLocalTarget
	regShireClockGateControl
	regShireBroadcastData
	regShireUBroadcast
	regShireSBroadcast
	regShireMBroadcast
	regShireFCCCredInc
)

// checkPrivilege enforces the PP field (§6.3): PrivDebug is restricted to
// the service processor regardless of the requester's own mode; any other
// level requires the requester to be running at that level or higher.
func checkPrivilege(a esrAddr, ag agent.Agent) error {
	if a.PP == ids.PrivDebug {
		if !ag.IsServiceProcessor() {
			return ErrMemoryError
		}
		return nil
	}
	if ag.Priv() < a.PP {
		return ErrMemoryError
	}
	return nil
}

// ESRRead implements memory.ESRReadWriter.
func (s *System) ESRRead(addr uint64, ag agent.Agent) (uint64, error) {
	a := decodeESRAddr(addr)
	if err := checkPrivilege(a, ag); err != nil {
		return 0, err
	}
	shireIdx, err := resolveShireIndex(a, ag)
	if err != nil {
		return 0, err
	}
	switch a.Sub {
	case subHart:
		return s.esrReadHart(shireIdx, a)
	case subNeigh:
		return s.esrReadNeigh(shireIdx, a)
	default:
		return s.esrReadShire(shireIdx, a)
	}
}

func (s *System) esrReadHart(shireIdx int, a esrAddr) (uint64, error) {
	h := s.hartByHartID(shireIdx, a.HartID)
	if h == nil {
		return 0, ErrMemoryError
	}
	switch a.RegIndex {
	case regHartDebugDCSR:
		return h.Debug.DCSR, nil
	case regHartDebugDPC:
		return h.Debug.DPC, nil
	case regHartDebugData0:
		return h.Debug.DData0, nil
	case regHartProgBuf0:
		return h.Debug.ProgBuf[0], nil
	case regHartProgBuf1:
		return h.Debug.ProgBuf[1], nil
	default:
		return 0, nil // Reserved slot reads as zero.
	}
}

func (s *System) esrReadNeigh(shireIdx int, a esrAddr) (uint64, error) {
	n := s.NeighborhoodAt(shireIdx, a.NeighID)
	if n == nil {
		return 0, ErrMemoryError
	}
	switch a.RegIndex {
	case regNeighICacheErrLog:
		return n.ICacheErrLogInfo, nil
	case regNeighIPIRedirectPC:
		return n.IPIRedirectPC, nil
	case regNeighMinionBoot:
		return n.MinionBoot, nil
	case regNeighMProtDRAMBase:
		return n.MProt.DRAMBase, nil
	case regNeighMProtDRAMSize:
		return n.MProt.DRAMSize, nil
	case regNeighMProtFlags:
		return mprotFlags(n.MProt), nil
	case regNeighHActrl:
		return n.Debug.HActrl, nil
	case regNeighHAStatus0:
		return n.Debug.HAStatus0, nil
	case regNeighHAStatus1:
		return n.Debug.HAStatus1, nil
	case regNeighTextureControl:
		return n.Texture.Control, nil
	case regNeighTextureStatus:
		return n.Texture.Status, nil
	case regNeighChicken:
		return n.NeighChicken, nil
	case regNeighVMSPageSize:
		return n.VMSPageSize, nil
	case regNeighPMUControl:
		return n.PMUControl, nil
	default:
		return 0, nil
	}
}

func mprotFlags(m shire.MProt) uint64 {
	var v uint64
	if m.IOEnable {
		v |= 1
	}
	if m.PCIeEnable {
		v |= 2
	}
	if m.OSBoxEnable {
		v |= 4
	}
	if m.Secure {
		v |= 8
	}
	return v
}

func (s *System) esrReadShire(shireIdx int, a esrAddr) (uint64, error) {
	sh := s.ShireAt(shireIdx)
	if sh == nil {
		return 0, ErrMemoryError
	}
	if a.Bank <= 3 {
		switch a.RegIndex {
		case regShireCacheControl:
			return sh.CacheESRs.Control[a.Bank], nil
		case regShireCacheErrorLog:
			return sh.CacheESRs.ErrorLog[a.Bank], nil
		case regShireCachePerfmon:
			return sh.CacheESRs.Perfmon[a.Bank], nil
		}
	}
	switch a.RegIndex {
	case regShireIPIRedirectFilter:
		return sh.OtherESRs.IPIRedirectFilter, nil
	case regShireIPIRedirectTrigger:
		return sh.OtherESRs.IPIRedirectTrigger, nil
	case regShirePLLConfig:
		return sh.OtherESRs.PLLConfig, nil
	case regShireDLLConfig:
		return sh.OtherESRs.DLLConfig, nil
	case regShireCoopMode:
		return boolU64(sh.OtherESRs.CoopMode), nil
	case regShireThread0Disable:
		return boolU64(sh.OtherESRs.Thread0Disable), nil
	case regShireThread1Disable:
		return boolU64(sh.OtherESRs.Thread1Disable), nil
	case regShireMinionFeature:
		return uint64(sh.OtherESRs.MinionFeature), nil
	case regShireConfig:
		return sh.OtherESRs.ShireConfig, nil
	case regShireMtimeLocalTarget:
		return sh.OtherESRs.MtimeLocalTarget, nil
	case regShireClockGateControl:
		return sh.OtherESRs.ClockGateControl, nil
	case regShireBroadcastData:
		return sh.BroadcastData, nil
	default:
		return 0, nil
	}
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// ESRWrite implements memory.ESRReadWriter.
func (s *System) ESRWrite(addr uint64, value uint64, ag agent.Agent) error {
	a := decodeESRAddr(addr)
	if err := checkPrivilege(a, ag); err != nil {
		return err
	}
	shireIdx, err := resolveShireIndex(a, ag)
	if err != nil {
		return err
	}
	switch a.Sub {
	case subHart:
		return s.esrWriteHart(shireIdx, a, value)
	case subNeigh:
		return s.esrWriteNeigh(shireIdx, a, value)
	default:
		return s.esrWriteShire(shireIdx, a, value)
	}
}

func (s *System) esrWriteHart(shireIdx int, a esrAddr, value uint64) error {
	h := s.hartByHartID(shireIdx, a.HartID)
	if h == nil {
		return ErrMemoryError
	}
	switch a.RegIndex {
	case regHartDebugDCSR:
		h.Debug.DCSR = value
	case regHartDebugDPC:
		h.Debug.DPC = value
	case regHartDebugData0:
		h.Debug.DData0 = value
	case regHartProgBuf0:
		h.Debug.ProgBuf[0] = value
	case regHartProgBuf1:
		h.Debug.ProgBuf[1] = value
	}
	return nil
}

func (s *System) esrWriteNeigh(shireIdx int, a esrAddr, value uint64) error {
	neighIDs := s.neighTargets(shireIdx, a.NeighID)
	if len(neighIDs) == 0 {
		return ErrMemoryError
	}
	for _, nid := range neighIDs {
		n := s.NeighborhoodAt(shireIdx, nid)
		if n == nil {
			continue
		}
		switch a.RegIndex {
		case regNeighICacheErrLog:
			n.ICacheErrLogInfo = value
		case regNeighIPIRedirectPC:
			n.IPIRedirectPC = value
		case regNeighMinionBoot:
			n.MinionBoot = value
		case regNeighMProtDRAMBase:
			n.MProt.DRAMBase = value
		case regNeighMProtDRAMSize:
			n.MProt.DRAMSize = value
		case regNeighMProtFlags:
			n.MProt.IOEnable = value&1 != 0
			n.MProt.PCIeEnable = value&2 != 0
			n.MProt.OSBoxEnable = value&4 != 0
			n.MProt.Secure = value&8 != 0
		case regNeighHActrl:
			n.Debug.HActrl = value
		case regNeighHAStatus0:
			n.Debug.HAStatus0 = value
		case regNeighHAStatus1:
			n.Debug.HAStatus1 = value
		case regNeighTextureControl:
			n.Texture.Control = value
		case regNeighTextureStatus:
			n.Texture.Status = value
		case regNeighChicken:
			n.NeighChicken = value
		case regNeighVMSPageSize:
			n.VMSPageSize = value
		case regNeighPMUControl:
			n.PMUControl = value
		}
	}
	return nil
}

// neighTargets expands a neighborhood-id field (0xF = broadcast) into the
// concrete neighborhood indices it addresses.
func (s *System) neighTargets(shireIdx, neighID int) []int {
	sh := s.ShireAt(shireIdx)
	if sh == nil {
		return nil
	}
	if neighID == 0xF {
		out := make([]int, len(sh.Neighborhoods))
		for i := range out {
			out[i] = i
		}
		return out
	}
	if neighID < 0 || neighID >= len(sh.Neighborhoods) {
		return nil
	}
	return []int{neighID}
}

func (s *System) esrWriteShire(shireIdx int, a esrAddr, value uint64) error {
	sh := s.ShireAt(shireIdx)
	if sh == nil {
		return ErrMemoryError
	}
	banks := s.bankTargets(a.Bank)
	if a.RegIndex == regShireCacheControl || a.RegIndex == regShireCacheErrorLog || a.RegIndex == regShireCachePerfmon {
		for _, b := range banks {
			switch a.RegIndex {
			case regShireCacheControl:
				sh.CacheESRs.Control[b] = value
			case regShireCacheErrorLog:
				sh.CacheESRs.ErrorLog[b] = value
			case regShireCachePerfmon:
				sh.CacheESRs.Perfmon[b] = value
			}
		}
		return nil
	}

	switch a.RegIndex {
	case regShireIPIRedirectFilter:
		sh.OtherESRs.IPIRedirectFilter = value
	case regShireIPIRedirectTrigger:
		sh.OtherESRs.IPIRedirectTrigger = value
	case regShireIPITrigger:
		s.raiseMachineSoftwareInterrupt(shireIdx, value&sh.OtherESRs.IPIRedirectFilter)
	case regShirePLLConfig:
		sh.OtherESRs.PLLConfig = value
	case regShireDLLConfig:
		sh.OtherESRs.DLLConfig = value
	case regShireCoopMode:
		sh.OtherESRs.CoopMode = value != 0
	case regShireThread0Disable:
		sh.OtherESRs.Thread0Disable = value != 0
		s.recalculateThreadEnable(shireIdx, 0)
	case regShireThread1Disable:
		sh.OtherESRs.Thread1Disable = value != 0
		s.recalculateThreadEnable(shireIdx, 1)
	case regShireMinionFeature:
		sh.OtherESRs.MinionFeature = shire.MinionFeature(value)
		s.recalculateThreadEnable(shireIdx, 0)
		s.recalculateThreadEnable(shireIdx, 1)
	case regShireConfig:
		sh.OtherESRs.ShireConfig = value
	case regShireMtimeLocalTarget:
		sh.OtherESRs.MtimeLocalTarget = value
	case regShireClockGateControl:
		sh.OtherESRs.ClockGateControl = value
	case regShireBroadcastData:
		sh.BroadcastData = value
	case regShireUBroadcast:
		return s.broadcast(ids.PrivU, value)
	case regShireSBroadcast:
		return s.broadcast(ids.PrivS, value)
	case regShireMBroadcast:
		return s.broadcast(ids.PrivM, value)
	case regShireFCCCredInc:
		s.incrementFCCCredit(shireIdx, value)
	}
	return nil
}

func (s *System) bankTargets(bank int) []int {
	if bank == 0xF {
		return []int{0, 1, 2, 3}
	}
	if bank < 0 || bank > 3 {
		return nil
	}
	return []int{bank}
}

// broadcast decodes an ESR_{U,S,M}BROADCAST payload against the target
// shire's already-latched ESR_BROADCAST_DATA and replays esr_write to each
// selected shire (§4.6). The payload's own top bits rebuild the target
// ESR address; the bottom 40 bits are a destination-shire bitmap.
func (s *System) broadcast(pp ids.Privilege, payload uint64) error {
	destMask := payload & ((1 << 40) - 1)
	targetAddr := pma.ESRBase | ((payload >> 40) & 0x7FFF_FFFF)
	for shireIdx := range s.Shires {
		id := ids.ShireIndexToID(shireIdx)
		if id >= 40 {
			continue
		}
		if destMask&(1<<uint(id)) == 0 {
			continue
		}
		data := s.Shires[shireIdx].BroadcastData
		if err := s.ESRWrite(targetAddr, data, agent.Noagent{}); err != nil {
			return err
		}
	}
	return nil
}

// raiseMachineSoftwareInterrupt sets MIP.MSIP on every hart selected by
// mask within shireIdx (§4.6's IPI_TRIGGER side effect).
func (s *System) raiseMachineSoftwareInterrupt(shireIdx int, mask uint64) {
	const mipMSIP = 1 << 3
	sh := s.Harts[shireIdx]
	for ni := range sh {
		for mi := range sh[ni] {
			if mask&(1<<uint(mi)) == 0 {
				continue
			}
			for _, h := range sh[ni][mi] {
				h.MIP |= mipMSIP
			}
		}
	}
}

// incrementFCCCredit adds to every selected minion's fcc0 credit counter
// (§4.6's FCC_CREDINC_n side effect).
func (s *System) incrementFCCCredit(shireIdx int, mask uint64) {
	sh := s.Harts[shireIdx]
	for ni := range sh {
		for mi := range sh[ni] {
			if mask&(1<<uint(mi)) == 0 {
				continue
			}
			for _, h := range sh[ni][mi] {
				h.FCC0++
			}
		}
	}
}

// recalculateThreadEnable recomputes thread `thread`'s lifecycle across
// every minion of shireIdx from thread{0,1}_disable and minion_feature's
// MultithreadDisable bit (§4.1, §4.6).
func (s *System) recalculateThreadEnable(shireIdx, thread int) {
	sh := s.ShireAt(shireIdx)
	harts := s.Harts[shireIdx]
	disabled := false
	if thread == 0 {
		disabled = sh.OtherESRs.Thread0Disable
	} else {
		disabled = sh.OtherESRs.Thread1Disable
	}
	if thread == 1 && sh.OtherESRs.MinionFeature&shire.FeatureMultithreadDisable != 0 {
		disabled = true
	}
	for ni := range harts {
		for mi := range harts[ni] {
			if thread >= len(harts[ni][mi]) {
				continue
			}
			h := harts[ni][mi][thread]
			if disabled {
				h.Life = hart.Unavailable
			} else if h.Life == hart.Unavailable {
				h.Life = hart.Halted
			}
		}
	}
}

func (s *System) hartByHartID(shireIdx, hartID int) *hart.Hart {
	if shireIdx < 0 || shireIdx >= len(s.Harts) {
		return nil
	}
	harts := s.Harts[shireIdx]
	for ni := range harts {
		for mi := range harts[ni] {
			for ti, h := range harts[ni][mi] {
				if ids.LocalThread(ni, mi, ti) == hartID {
					return h
				}
			}
		}
	}
	return nil
}

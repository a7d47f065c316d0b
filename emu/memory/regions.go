/*
 * shiresim - Concrete memory region kinds: Dense, Sysreg, PLIC, RVTimer.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on the teacher's Device interface (StartIO/StartCmd/HaltIO/
 * InitDev) dispatching through sys_channel: here the "device" surface is a
 * physical-address region instead of a channel-attached unit, but the
 * shape — a narrow interface satisfied by several concrete kinds, looked
 * up by a router — is the same.
 */
package memory

import (
	"time"

	"github.com/etsoc/shiresim/emu/agent"
)

// DenseRegion is plain RAM/ROM: byte-addressable, read/write (or read-only
// for ROM), with init-only semantics for ROM.
type DenseRegion struct {
	first    uint64
	last     uint64
	name     string
	readOnly bool
	bytes    []byte
}

// NewDenseRegion allocates a zero-filled RAM or ROM region of size bytes
// starting at first.
func NewDenseRegion(name string, first uint64, size uint64, readOnly bool) *DenseRegion {
	return &DenseRegion{
		first:    first,
		last:     first + size - 1,
		name:     name,
		readOnly: readOnly,
		bytes:    make([]byte, size),
	}
}

func (d *DenseRegion) First() uint64 { return d.first }
func (d *DenseRegion) Last() uint64  { return d.last }
func (d *DenseRegion) Dump() string  { return d.name }

func (d *DenseRegion) Read(addr uint64, size int, _ agent.Agent) (uint64, error) {
	off := addr - d.first
	if off+uint64(size) > uint64(len(d.bytes)) {
		return 0, ErrMemoryBus
	}
	var v uint64
	for i := 0; i < size; i++ {
		v |= uint64(d.bytes[off+uint64(i)]) << (8 * i)
	}
	return v, nil
}

func (d *DenseRegion) Write(addr uint64, size int, value uint64, _ agent.Agent) error {
	if d.readOnly {
		return ErrMemoryBus
	}
	off := addr - d.first
	if off+uint64(size) > uint64(len(d.bytes)) {
		return ErrMemoryBus
	}
	for i := 0; i < size; i++ {
		d.bytes[off+uint64(i)] = byte(value >> (8 * i))
	}
	return nil
}

func (d *DenseRegion) Init(addr uint64, data []byte) error {
	off := addr - d.first
	if off+uint64(len(data)) > uint64(len(d.bytes)) {
		return ErrMemoryBus
	}
	copy(d.bytes[off:], data)
	return nil
}

// RawBytes exposes the backing slice for direct byte access. The MMU's
// typed accessors and the scheduler's fetch-line refill do not use it;
// they go through MainMemory.Read/Write.
func (d *DenseRegion) RawBytes() []byte { return d.bytes }
func (d *DenseRegion) Offset(addr uint64) uint64 { return addr - d.first }

// ESRReadWriter decouples the Sysreg region from the system package that
// owns the actual ESR banks: the System registers itself as the
// implementation at chip-init time, mirroring the way the teacher's
// Device interface is satisfied by concrete device packages the channel
// layer never imports.
type ESRReadWriter interface {
	ESRRead(addr uint64, ag agent.Agent) (uint64, error)
	ESRWrite(addr uint64, value uint64, ag agent.Agent) error
}

// SysregRegion delegates 8-byte accesses to the installed ESRReadWriter.
type SysregRegion struct {
	first, last uint64
	rw          ESRReadWriter
}

func NewSysregRegion(first, last uint64, rw ESRReadWriter) *SysregRegion {
	return &SysregRegion{first: first, last: last, rw: rw}
}

func (s *SysregRegion) First() uint64 { return s.first }
func (s *SysregRegion) Last() uint64  { return s.last }
func (s *SysregRegion) Dump() string  { return "esr" }

func (s *SysregRegion) Read(addr uint64, size int, ag agent.Agent) (uint64, error) {
	v, err := s.rw.ESRRead(addr&^7, ag)
	if err != nil {
		return 0, err
	}
	if size < 8 {
		shift := (addr & 7) * 8
		mask := (uint64(1) << (8 * uint(size))) - 1
		v = (v >> shift) & mask
	}
	return v, nil
}

func (s *SysregRegion) Write(addr uint64, size int, value uint64, ag agent.Agent) error {
	if size == 8 {
		return s.rw.ESRWrite(addr&^7, value, ag)
	}
	// Narrow ESR writes read-modify-write the containing 8-byte register.
	cur, err := s.rw.ESRRead(addr&^7, ag)
	if err != nil {
		return err
	}
	shift := (addr & 7) * 8
	mask := (uint64(1) << (8 * uint(size))) - 1
	cur = (cur &^ (mask << shift)) | ((value & mask) << shift)
	return s.rw.ESRWrite(addr&^7, cur, ag)
}

func (s *SysregRegion) Init(uint64, []byte) error { return ErrMemoryBus }

// PLICRegion models the 40-bit PLIC register space: priority, pending and
// enable words plus one claim/complete register per context.
type PLICRegion struct {
	first, last uint64
	priority    [1024]uint32
	pending     [32]uint32
	enable      map[uint64][32]uint32 // keyed by context id
	threshold   map[uint64]uint32
}

func NewPLICRegion(first, last uint64) *PLICRegion {
	return &PLICRegion{
		first:     first,
		last:      last,
		enable:    make(map[uint64][32]uint32),
		threshold: make(map[uint64]uint32),
	}
}

func (p *PLICRegion) First() uint64 { return p.first }
func (p *PLICRegion) Last() uint64  { return p.last }
func (p *PLICRegion) Dump() string  { return "plic" }

const (
	plicPriorityBase = 0x000000
	plicPendingBase  = 0x001000
	plicEnableBase   = 0x002000
	plicEnableStride = 0x80
	plicContextBase  = 0x200000
	plicContextStride = 0x1000
)

func (p *PLICRegion) Read(addr uint64, size int, _ agent.Agent) (uint64, error) {
	off := addr - p.first
	switch {
	case off >= plicPriorityBase && off < plicPriorityBase+4*1024:
		return uint64(p.priority[(off-plicPriorityBase)/4]), nil
	case off >= plicPendingBase && off < plicPendingBase+128:
		return uint64(p.pending[(off-plicPendingBase)/4]), nil
	case off >= plicContextBase:
		ctxOff := off - plicContextBase
		ctx := ctxOff / plicContextStride
		reg := ctxOff % plicContextStride
		if reg == 0 {
			return uint64(p.threshold[ctx]), nil
		}
		return 0, nil // Claim register reads as 0 until a real claim queue is modeled.
	}
	return 0, nil
}

func (p *PLICRegion) Write(addr uint64, size int, value uint64, _ agent.Agent) error {
	off := addr - p.first
	switch {
	case off >= plicPriorityBase && off < plicPriorityBase+4*1024:
		p.priority[(off-plicPriorityBase)/4] = uint32(value)
	case off >= plicEnableBase && off < plicContextBase:
		ctxOff := off - plicEnableBase
		ctx := ctxOff / plicEnableStride
		reg := (ctxOff % plicEnableStride) / 4
		e := p.enable[ctx]
		e[reg] = uint32(value)
		p.enable[ctx] = e
	case off >= plicContextBase:
		ctxOff := off - plicContextBase
		ctx := ctxOff / plicContextStride
		reg := ctxOff % plicContextStride
		if reg == 0 {
			p.threshold[ctx] = uint32(value)
		}
	}
	return nil
}

func (p *PLICRegion) Init(uint64, []byte) error { return ErrMemoryBus }

// SetPending / ClearPending implement §6.2's pu_plic/spio_plic
// interrupt_pending_set/clear(source) control surface.
func (p *PLICRegion) SetPending(source int)   { p.pending[source/32] |= 1 << uint(source%32) }
func (p *PLICRegion) ClearPending(source int) { p.pending[source/32] &^= 1 << uint(source%32) }
func (p *PLICRegion) IsPending(source int) bool {
	return p.pending[source/32]&(1<<uint(source%32)) != 0
}

// RVTimerRegion models mtime/mtimecmp, ticking from the wall clock the way
// the teacher's emu/timer package derives its cadence from wall-clock time
// rather than a modeled cycle counter.
type RVTimerRegion struct {
	first, last uint64
	start       time.Time
	freqHz      uint64
	mtimecmp    []uint64 // one per hart
}

func NewRVTimerRegion(first, last uint64, freqHz uint64, harts int) *RVTimerRegion {
	return &RVTimerRegion{
		first:    first,
		last:     last,
		start:    time.Now(),
		freqHz:   freqHz,
		mtimecmp: make([]uint64, harts),
	}
}

func (r *RVTimerRegion) First() uint64 { return r.first }
func (r *RVTimerRegion) Last() uint64  { return r.last }
func (r *RVTimerRegion) Dump() string  { return "rvtimer" }

func (r *RVTimerRegion) mtime() uint64 {
	return uint64(time.Since(r.start).Seconds() * float64(r.freqHz))
}

func (r *RVTimerRegion) Read(addr uint64, size int, _ agent.Agent) (uint64, error) {
	off := addr - r.first
	switch {
	case off == 0:
		return r.mtime(), nil
	case off >= 8 && int(off-8)/8 < len(r.mtimecmp):
		return r.mtimecmp[(off-8)/8], nil
	}
	return 0, ErrSysreg
}

func (r *RVTimerRegion) Write(addr uint64, size int, value uint64, _ agent.Agent) error {
	off := addr - r.first
	if off >= 8 && int(off-8)/8 < len(r.mtimecmp) {
		r.mtimecmp[(off-8)/8] = value
		return nil
	}
	return ErrSysreg
}

func (r *RVTimerRegion) Init(uint64, []byte) error { return ErrMemoryBus }

// Expired reports whether hart h's mtimecmp has passed, for the scheduler's
// timer-interrupt fanout.
func (r *RVTimerRegion) Expired(h int) bool {
	if h < 0 || h >= len(r.mtimecmp) {
		return false
	}
	return r.mtime() >= r.mtimecmp[h]
}

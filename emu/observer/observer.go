/*
 * shiresim - Pluggable observer trait for structured instruction notifications.
 *
 * Copyright 2026, shiresim contributors
 */

// Package observer models the notify_* hooks instruction execution emits
// (register reads/writes, memory accesses, tensor milestones, PC updates,
// fflags/tensor_error changes). Logging is one observer; checker subsystems
// (out of scope for this repository) would register additional ones through
// the same interface, composed the way the teacher composes its slog
// handler around an inner handler.
package observer

// Observer receives structured notifications from the hart execution engine.
// Every method has a cheap default via NopObserver so call sites never need
// nil checks.
type Observer interface {
	MemRead(agentHart uint64, addr uint64, size int, value uint64)
	MemWrite(agentHart uint64, addr uint64, size int, value uint64)
	RegWrite(hart uint64, kind string, index int, value uint64)
	PCUpdate(hart uint64, pc uint64)
	TensorEvent(hart uint64, family string, milestone string)
	TensorError(hart uint64, bit int)
	FFlagsUpdate(hart uint64, flags uint8)
}

// NopObserver discards every notification; it is the zero-cost default.
type NopObserver struct{}

func (NopObserver) MemRead(uint64, uint64, int, uint64)     {}
func (NopObserver) MemWrite(uint64, uint64, int, uint64)    {}
func (NopObserver) RegWrite(uint64, string, int, uint64)    {}
func (NopObserver) PCUpdate(uint64, uint64)                 {}
func (NopObserver) TensorEvent(uint64, string, string)      {}
func (NopObserver) TensorError(uint64, int)                 {}
func (NopObserver) FFlagsUpdate(uint64, uint8)              {}

// Multi fans a notification out to every installed observer, the same
// composition shape as the teacher's logger.LogHandler wrapping an inner
// slog.Handler.
type Multi struct {
	Observers []Observer
}

func (m Multi) MemRead(h, addr uint64, size int, v uint64) {
	for _, o := range m.Observers {
		o.MemRead(h, addr, size, v)
	}
}

func (m Multi) MemWrite(h, addr uint64, size int, v uint64) {
	for _, o := range m.Observers {
		o.MemWrite(h, addr, size, v)
	}
}

func (m Multi) RegWrite(h uint64, kind string, index int, v uint64) {
	for _, o := range m.Observers {
		o.RegWrite(h, kind, index, v)
	}
}

func (m Multi) PCUpdate(h, pc uint64) {
	for _, o := range m.Observers {
		o.PCUpdate(h, pc)
	}
}

func (m Multi) TensorEvent(h uint64, family, milestone string) {
	for _, o := range m.Observers {
		o.TensorEvent(h, family, milestone)
	}
}

func (m Multi) TensorError(h uint64, bit int) {
	for _, o := range m.Observers {
		o.TensorError(h, bit)
	}
}

func (m Multi) FFlagsUpdate(h uint64, flags uint8) {
	for _, o := range m.Observers {
		o.FFlagsUpdate(h, flags)
	}
}

/*
 * shiresim - Typed memory accessors: scalar, vector (VLENB-wide, masked),
 * tensor, and atomic (§4.4).
 *
 * Copyright 2026, shiresim contributors
 */
package mmu

// ReadScalar performs an aligned or unaligned load of 1/2/4/8 bytes,
// translating through the MMU/PMA and notifying the observer.
func (m *MMU) ReadScalar(req Request) (uint64, error) {
	paddr, err := m.Translate(req)
	if err != nil {
		return 0, err
	}
	v, err := m.Mem.Read(paddr, req.Size, nil)
	if err != nil {
		return 0, err
	}
	m.Obs.MemRead(req.HartID, paddr, req.Size, v)
	return v, nil
}

// WriteScalar performs an aligned or unaligned store of 1/2/4/8 bytes.
func (m *MMU) WriteScalar(req Request, value uint64) error {
	paddr, err := m.Translate(req)
	if err != nil {
		return err
	}
	if err := m.Mem.Write(paddr, req.Size, value, nil); err != nil {
		return err
	}
	m.Obs.MemWrite(req.HartID, paddr, req.Size, value)
	return nil
}

// CrossLineCase classifies how a VLENB-wide vector access sits relative to
// the underlying cache-line granularity (§4.4's three cases).
type CrossLineCase int

const (
	FullyInLine CrossLineCase = iota
	CrossesAtElementBoundary
	CrossesMidElement
)

const cacheLineBytes = 32

// ClassifyCrossLine determines which of the three cross-line cases a
// vlenBytes-wide access starting at vaddr falls into, given elemBytes per
// lane.
func ClassifyCrossLine(vaddr uint64, vlenBytes, elemBytes int) CrossLineCase {
	end := vaddr + uint64(vlenBytes) - 1
	if vaddr/cacheLineBytes == end/cacheLineBytes {
		return FullyInLine
	}
	lineBoundary := (vaddr/cacheLineBytes + 1) * cacheLineBytes
	offsetIntoLastElem := (lineBoundary - vaddr) % uint64(elemBytes)
	if offsetIntoLastElem == 0 {
		return CrossesAtElementBoundary
	}
	return CrossesMidElement
}

// ReadVector performs a VLENB-wide masked vector load, one lane at a time
// (mask bit i gates lane i); lanes with a clear mask bit are left
// untouched in dst. elemBytes is the per-lane width (1/2/4 for u8/u16/u32,
// matching f16/f32 reinterpreted).
func (m *MMU) ReadVector(req Request, mask uint64, elemBytes int, dst []byte) error {
	lanes := req.Size / elemBytes
	if ClassifyCrossLine(req.Vaddr, req.Size, elemBytes) == FullyInLine {
		return m.readVectorWhole(req, mask, elemBytes, lanes, dst)
	}
	return m.readVectorLanes(req, mask, elemBytes, lanes, dst)
}

// readVectorWhole translates once for the whole access, used when
// ClassifyCrossLine reports the entire vector sits in one cache line.
func (m *MMU) readVectorWhole(req Request, mask uint64, elemBytes, lanes int, dst []byte) error {
	paddr, err := m.Translate(req)
	if err != nil {
		return err
	}
	for i := 0; i < lanes; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		v, err := m.Mem.Read(paddr+uint64(i*elemBytes), elemBytes, nil)
		if err != nil {
			return err
		}
		for b := 0; b < elemBytes; b++ {
			dst[i*elemBytes+b] = byte(v >> (8 * b))
		}
		m.Obs.MemRead(req.HartID, paddr+uint64(i*elemBytes), elemBytes, v)
	}
	return nil
}

// readVectorLanes translates lane-by-lane, used when the access straddles a
// cache-line boundary (at or mid an element, §4.4).
func (m *MMU) readVectorLanes(req Request, mask uint64, elemBytes, lanes int, dst []byte) error {
	for i := 0; i < lanes; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		lr := req
		lr.Vaddr = req.Vaddr + uint64(i*elemBytes)
		lr.Size = elemBytes
		v, err := m.ReadScalar(lr)
		if err != nil {
			return err
		}
		for b := 0; b < elemBytes; b++ {
			dst[i*elemBytes+b] = byte(v >> (8 * b))
		}
	}
	return nil
}

// WriteVector is the masked vector-store counterpart of ReadVector.
func (m *MMU) WriteVector(req Request, mask uint64, elemBytes int, src []byte) error {
	lanes := req.Size / elemBytes
	if ClassifyCrossLine(req.Vaddr, req.Size, elemBytes) == FullyInLine {
		return m.writeVectorWhole(req, mask, elemBytes, lanes, src)
	}
	return m.writeVectorLanes(req, mask, elemBytes, lanes, src)
}

func (m *MMU) writeVectorWhole(req Request, mask uint64, elemBytes, lanes int, src []byte) error {
	paddr, err := m.Translate(req)
	if err != nil {
		return err
	}
	for i := 0; i < lanes; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		var v uint64
		for b := 0; b < elemBytes; b++ {
			v |= uint64(src[i*elemBytes+b]) << (8 * b)
		}
		if err := m.Mem.Write(paddr+uint64(i*elemBytes), elemBytes, v, nil); err != nil {
			return err
		}
		m.Obs.MemWrite(req.HartID, paddr+uint64(i*elemBytes), elemBytes, v)
	}
	return nil
}

func (m *MMU) writeVectorLanes(req Request, mask uint64, elemBytes, lanes int, src []byte) error {
	for i := 0; i < lanes; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		var v uint64
		for b := 0; b < elemBytes; b++ {
			v |= uint64(src[i*elemBytes+b]) << (8 * b)
		}
		lr := req
		lr.Vaddr = req.Vaddr + uint64(i*elemBytes)
		lr.Size = elemBytes
		if err := m.WriteScalar(lr, v); err != nil {
			return err
		}
	}
	return nil
}

// ReadTensor performs a natural-aligned 128/256/512-bit tensor access.
func (m *MMU) ReadTensor(req Request, dst []byte) error {
	if req.Vaddr%uint64(req.Size) != 0 {
		return ErrMisaligned
	}
	paddr, err := m.Translate(req)
	if err != nil {
		return err
	}
	for i := 0; i < req.Size; i += 8 {
		n := 8
		if i+n > req.Size {
			n = req.Size - i
		}
		v, err := m.Mem.Read(paddr+uint64(i), n, nil)
		if err != nil {
			return err
		}
		for b := 0; b < n; b++ {
			dst[i+b] = byte(v >> (8 * b))
		}
	}
	m.Obs.TensorEvent(req.HartID, "tensor_load", "commit")
	return nil
}

// WriteTensor is the store counterpart of ReadTensor.
func (m *MMU) WriteTensor(req Request, src []byte) error {
	if req.Vaddr%uint64(req.Size) != 0 {
		return ErrMisaligned
	}
	paddr, err := m.Translate(req)
	if err != nil {
		return err
	}
	for i := 0; i < req.Size; i += 8 {
		n := 8
		if i+n > req.Size {
			n = req.Size - i
		}
		var v uint64
		for b := 0; b < n; b++ {
			v |= uint64(src[i+b]) << (8 * b)
		}
		if err := m.Mem.Write(paddr+uint64(i), n, v, nil); err != nil {
			return err
		}
	}
	m.Obs.TensorEvent(req.HartID, "tensor_store", "commit")
	return nil
}

// AtomicRMW performs a read-modify-write at req.Vaddr using fn on the
// current value, returning the prior value (the AMO result register).
// There is no separate local/global variant: every call is checked as
// AccessAtomic, which the ET-SoC-1 PMA rejects for scratchpad destinations.
func (m *MMU) AtomicRMW(req Request, fn func(old uint64) uint64) (uint64, error) {
	req.Kind = AccessAtomic
	paddr, err := m.Translate(req)
	if err != nil {
		return 0, err
	}
	old, err := m.Mem.Read(paddr, req.Size, nil)
	if err != nil {
		return 0, err
	}
	next := fn(old)
	if err := m.Mem.Write(paddr, req.Size, next, nil); err != nil {
		return 0, err
	}
	return old, nil
}

// CompareExchange performs an atomic compare-and-swap at req.Vaddr.
func (m *MMU) CompareExchange(req Request, expected, newVal uint64) (uint64, bool, error) {
	req.Kind = AccessAtomic
	paddr, err := m.Translate(req)
	if err != nil {
		return 0, false, err
	}
	old, err := m.Mem.Read(paddr, req.Size, nil)
	if err != nil {
		return 0, false, err
	}
	if old != expected {
		return old, false, nil
	}
	if err := m.Mem.Write(paddr, req.Size, newVal, nil); err != nil {
		return 0, false, err
	}
	return old, true, nil
}

// CheckCacheOp reports whether req's target address permits a cache-
// maintenance operation (clean/invalidate/flush), by routing an
// AccessCacheOp probe through the PMA without touching the bus.
func (m *MMU) CheckCacheOp(req Request) bool {
	req.Kind = AccessCacheOp
	_, err := m.Translate(req)
	return err == nil
}

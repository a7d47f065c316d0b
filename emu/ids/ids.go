/*
 * shiresim - Identifier space: shires, neighborhoods, minions, harts.
 *
 * Copyright 2026, shiresim contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package ids defines the chip's identifier space: shires, neighborhoods,
// minions and harts, and the conversions between them. Arena-index pairs
// (not pointers) are how every other package refers across the topology,
// per the cross-component-reference design note.
package ids

const (
	NeighPerShire   = 4 // EMU_NEIGH_PER_SHIRE
	MinionsPerNeigh = 8 // EMU_MINIONS_PER_NEIGH
	ThreadsPerMinion = 2 // EMU_THREADS_PER_MINION

	MinionsPerShire = NeighPerShire * MinionsPerNeigh // 32
	ThreadsPerShire = MinionsPerShire * ThreadsPerMinion

	// IOShireID is the external (wire-visible) identifier of the I/O shire.
	// IOShireSP is its position in the System's shire array. The two are
	// deliberately different encodings; callers must never cross them
	// without ShireIDToIndex/ShireIndexToID.
	IOShireID = 0x3F
	IOShireSP = 0

	// ServiceProcessorHart is the distinguished mhartid of the I/O shire's
	// single service-processor thread.
	ServiceProcessorHart = 0xFFFF
)

// ShireIDToIndex converts an external shire id (as it appears in ESR
// addresses and IPI bitmaps) to its array index in a System. The I/O shire
// is special-cased; all other shires use identity mapping in this topology.
func ShireIDToIndex(id int) int {
	if id == IOShireID {
		return IOShireSP
	}
	return id
}

// ShireIndexToID is the inverse of ShireIDToIndex.
func ShireIndexToID(index int) int {
	if index == IOShireSP {
		return IOShireID
	}
	return index
}

// GlobalHartID computes mhartid from a shire index and a local thread
// number (local = neigh*MinionsPerNeigh*ThreadsPerMinion + minion*ThreadsPerMinion + thread).
func GlobalHartID(shireIndex, local int) uint64 {
	if ShireIndexToID(shireIndex) == IOShireID {
		return ServiceProcessorHart
	}
	return uint64(shireIndex*ThreadsPerShire + local)
}

// LocalThread packs neighborhood/minion/thread indices into the "local"
// offset used by GlobalHartID.
func LocalThread(neigh, minion, thread int) int {
	return (neigh*MinionsPerNeigh+minion)*ThreadsPerMinion + thread
}

// Privilege levels, shared across CSR/ESR/MMU/PMA gating.
type Privilege int

const (
	PrivU Privilege = 0
	PrivS Privilege = 1
	PrivM Privilege = 3
	// PrivDebug is used only by ESR address PP-field decode: it restricts
	// the access to the service processor regardless of current mode.
	PrivDebug Privilege = 2
)

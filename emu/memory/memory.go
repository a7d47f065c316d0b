/*
 * shiresim - Main memory: a flat router over a sorted list of physical
 * memory regions.
 *
 * Copyright 2026, shiresim contributors
 *
 * Grounded on github.com/rcornwell/S370's emu/memory (flat array with
 * access-bit bookkeeping) and emu/sys_channel (a sorted dispatch table
 * keyed by device address). MainMemory generalizes the former into the
 * latter's region-table shape, since this chip's physical space is not
 * one flat array but DRAM, scratchpad, ESR, IO and PCIe windows.
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

package memory

import (
	"errors"
	"sort"

	"github.com/etsoc/shiresim/emu/agent"
)

// ErrMemoryBus is the bus-error sentinel a region returns for an unmapped
// or inaccessible physical address (§7 memory_error(addr)).
var ErrMemoryBus = errors.New("memory: bus error")

// ErrSysreg distinguishes the timer-ESR special case from a generic bus
// error (§7 sysreg_error(addr)).
var ErrSysreg = errors.New("memory: sysreg error")

// Region is one physical-address-keyed handler. Implementations dispatch
// read/write/init by agent context; First/Last give the inclusive physical
// range the region claims.
type Region interface {
	First() uint64
	Last() uint64
	Read(addr uint64, size int, ag agent.Agent) (uint64, error)
	Write(addr uint64, size int, value uint64, ag agent.Agent) error
	Init(addr uint64, data []byte) error
	Dump() string
}

// MainMemory is the router: a sorted, disjoint list of Regions.
type MainMemory struct {
	regions []Region
}

// NewMainMemory creates an empty router.
func NewMainMemory() *MainMemory {
	return &MainMemory{}
}

// AddRegion inserts a region, keeping the list sorted by First address. It
// panics on overlap with an existing region: overlapping physical windows
// are a configuration error caught at chip-init time, not a runtime fault.
func (m *MainMemory) AddRegion(r Region) {
	for _, existing := range m.regions {
		if r.First() <= existing.Last() && existing.First() <= r.Last() {
			panic("memory: region overlap")
		}
	}
	m.regions = append(m.regions, r)
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].First() < m.regions[j].First()
	})
}

// find returns the region claiming addr, or nil.
func (m *MainMemory) find(addr uint64) Region {
	i := sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].Last() >= addr
	})
	if i < len(m.regions) && m.regions[i].First() <= addr && addr <= m.regions[i].Last() {
		return m.regions[i]
	}
	return nil
}

// Read dispatches a typed read to the owning region.
func (m *MainMemory) Read(addr uint64, size int, ag agent.Agent) (uint64, error) {
	r := m.find(addr)
	if r == nil {
		return 0, ErrMemoryBus
	}
	return r.Read(addr, size, ag)
}

// Write dispatches a typed write to the owning region.
func (m *MainMemory) Write(addr uint64, size int, value uint64, ag agent.Agent) error {
	r := m.find(addr)
	if r == nil {
		return ErrMemoryBus
	}
	return r.Write(addr, size, value, ag)
}

// Init loads raw bytes into the region claiming addr (§6.1 ELF/raw load).
func (m *MainMemory) Init(addr uint64, data []byte) error {
	r := m.find(addr)
	if r == nil {
		return ErrMemoryBus
	}
	return r.Init(addr, data)
}

// RegionAt exposes the owning region for diagnostics (debug shell).
func (m *MainMemory) RegionAt(addr uint64) Region {
	return m.find(addr)
}

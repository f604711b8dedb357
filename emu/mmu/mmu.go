/*
rv32ima Sv32 MMU.

	Copyright (c) 2024, Richard Cornwell

	Permission is hereby granted, free of charge, to any person obtaining a
	copy of this software and associated documentation files (the "Software"),
	to deal in the Software without restriction, including without limitation
	the rights to use, copy, modify, merge, publish, distribute, sublicense,
	and/or sell copies of the Software, and to permit persons to whom the
	Software is furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in
	all copies or substantial portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
	IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
	FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
	RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
	IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package mmu implements the Sv32 two-level page-table walk (spec component
// C6): a PTE cache keyed by ASID, a bounded physical-address cache, and a
// one-entry-per-kind translation accelerator. Grounded on
// original_source/pyrve's MMU class (find_pte/translate_addr/
// translate_addr_accel) and generalized from the teacher's transAddr DAT
// walk in emu/cpu/cpu.go.
package mmu

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rcornwell/rv32ima/emu/bits"
	"github.com/rcornwell/rv32ima/emu/memory"
	"github.com/rcornwell/rv32ima/emu/trap"
)

// AccessKind selects which permission bit and which accelerator slot a
// translation request uses.
type AccessKind uint8

const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
)

func (k AccessKind) pageFaultCause() trap.Cause {
	switch k {
	case AccessFetch:
		return trap.InstPageFault
	case AccessStore:
		return trap.StoreAmoPageFault
	default:
		return trap.LoadPageFault
	}
}

// CSRView is the slice of CSR state the MMU needs. cpu.CSRFile satisfies
// this structurally; the MMU package never imports cpu, keeping the
// dependency one-way (cpu -> mmu, not the reverse).
type CSRView interface {
	SatpMode() uint32
	SatpASID() uint32
	SatpPPN() uint32
	SUM() bool
	MXR() bool
}

const pageShift = 12
const pageMask = uint32(0xFFF)

type pteEntry struct {
	pte       uint32
	pteAddr   uint32
	superpage bool
}

type pteKey struct {
	asid  uint32
	vpage uint32
}

type paKey struct {
	pteMasked uint32
	superpage bool
	vaddr     uint32
}

type accelEntry struct {
	valid bool
	vpage uint32
	paddr uint32 // physical address of the start of vpage
}

// MMU is one hart's Sv32 translation state.
type MMU struct {
	bus *memory.Bus

	pteCache *lru.Cache[pteKey, pteEntry]
	paCache  *lru.Cache[paKey, uint32]
	accel    [3]accelEntry

	// onStoreTranslate is invoked with the physical frame number after any
	// successful store translation, so the fetch loop's decoded-block cache
	// can evict that frame (self-modifying-code safety).
	onStoreTranslate func(frame uint32)
}

const (
	pteCacheSize = 4096
	paCacheSize  = 524288 // matches original_source/pyrve's bound, spec.md 4
)

// New builds an MMU bound to bus for PTE and physical memory access.
func New(bus *memory.Bus) *MMU {
	pc, err := lru.New[pteKey, pteEntry](pteCacheSize)
	if err != nil {
		panic(err)
	}
	pa, err := lru.New[paKey, uint32](paCacheSize)
	if err != nil {
		panic(err)
	}
	return &MMU{bus: bus, pteCache: pc, paCache: pa}
}

// SetStoreHook installs the decoded-block invalidation callback.
func (m *MMU) SetStoreHook(fn func(frame uint32)) { m.onStoreTranslate = fn }

// InvalidateAccel flushes the translation accelerator. Called by the fetch
// loop when satp changes or mode changes (spec.md 4.4 step 1, 4.6).
func (m *MMU) InvalidateAccel() {
	m.accel = [3]accelEntry{}
}

// InvalidateASID drops every PTE-cache entry for asid, or all entries if
// asid's all-ASID flag is set. Used by SFENCE.VMA.
func (m *MMU) InvalidateASID(asid uint32, all bool) {
	if all {
		m.pteCache.Purge()
		return
	}
	for _, k := range m.pteCache.Keys() {
		if k.asid == asid {
			m.pteCache.Remove(k)
		}
	}
}

// InvalidatePTEWrite drops any pte_cache entries that reference a
// freshly-written PTE at physAddr (spec.md 4.5: "invalidated ... on any PTE
// write"). pa_cache entries are left in place.
func (m *MMU) InvalidatePTEWrite(physAddr uint32) {
	for _, k := range m.pteCache.Keys() {
		if v, ok := m.pteCache.Peek(k); ok && v.pteAddr == physAddr {
			m.pteCache.Remove(k)
		}
	}
}

// Translate converts vaddr to a physical address for the given access kind
// under csrs/mode, per spec.md 4.6.
func (m *MMU) Translate(vaddr uint32, mode trap.Mode, kind AccessKind, csrs CSRView) (uint32, error) {
	if mode == trap.ModeM || csrs.SatpMode() == 0 {
		if kind == AccessStore && m.onStoreTranslate != nil {
			m.onStoreTranslate(vaddr >> pageShift)
		}
		return vaddr, nil
	}

	if paddr, ok := m.tryAccel(vaddr, kind); ok {
		if kind == AccessStore && m.onStoreTranslate != nil {
			m.onStoreTranslate(paddr >> pageShift)
		}
		return paddr, nil
	}

	vpage := vaddr &^ pageMask
	asid := csrs.SatpASID()
	entry, ok := m.pteCache.Get(pteKey{asid: asid, vpage: vpage})
	if !ok {
		var err error
		entry, err = m.walk(vaddr, kind, csrs)
		if err != nil {
			return 0, err
		}
		m.pteCache.Add(pteKey{asid: asid, vpage: vpage}, entry)
	}

	if err := m.checkPermissions(entry.pte, vaddr, mode, kind, csrs); err != nil {
		return 0, err
	}
	if entry.superpage && bits.Cut(entry.pte, 10, 19) != 0 {
		return 0, trap.New(kind.pageFaultCause(), vaddr)
	}

	if updated, changed := updateAD(entry.pte, kind == AccessStore); changed {
		entry.pte = updated
		if err := m.bus.WriteU32(entry.pteAddr, updated); err != nil {
			return 0, err
		}
		m.pteCache.Add(pteKey{asid: asid, vpage: vpage}, entry)
	}

	pak := paKey{pteMasked: entry.pte & 0xFFFFFC00, superpage: entry.superpage, vaddr: vaddr}
	paddr, ok := m.paCache.Get(pak)
	if !ok {
		paddr = composePhysical(entry, vaddr)
		m.paCache.Add(pak, paddr)
	}

	if kind == AccessStore && m.onStoreTranslate != nil {
		m.onStoreTranslate(paddr >> pageShift)
	}

	m.accel[kind] = accelEntry{valid: true, vpage: vpage, paddr: paddr &^ pageMask}
	return paddr, nil
}

func (m *MMU) tryAccel(vaddr uint32, kind AccessKind) (uint32, bool) {
	a := m.accel[kind]
	if !a.valid {
		return 0, false
	}
	vpage := vaddr &^ pageMask
	if vpage != a.vpage {
		return 0, false
	}
	return a.paddr + (vaddr - a.vpage), true
}

// walk performs the two-level page-table lookup described in spec.md 4.6
// steps 2a-2c, reading each level's PTE from the bus; pa_cache is consulted
// by Translate after the walk, not here.
func (m *MMU) walk(vaddr uint32, kind AccessKind, csrs CSRView) (pteEntry, error) {
	vpn1 := bits.Cut(vaddr, 22, 31)
	vpn0 := bits.Cut(vaddr, 12, 21)

	addr1 := csrs.SatpPPN()*4096 + vpn1*4
	pte1, err := m.bus.ReadU32(addr1)
	if err != nil {
		return pteEntry{}, trap.New(trap.AccessFault, vaddr)
	}
	if !valid(pte1) {
		traceFault(vaddr, "invalid level-1 pte")
		return pteEntry{}, trap.New(kind.pageFaultCause(), vaddr)
	}

	if !isPointer(pte1) {
		return pteEntry{pte: pte1, pteAddr: addr1, superpage: true}, nil
	}

	ppn := bits.Cut(pte1, 10, 19) | bits.Cut(pte1, 20, 31)<<10
	addr0 := ppn*4096 + vpn0*4
	pte0, err := m.bus.ReadU32(addr0)
	if err != nil {
		return pteEntry{}, trap.New(trap.AccessFault, vaddr)
	}
	if !valid(pte0) || isPointer(pte0) {
		traceFault(vaddr, "invalid level-0 pte")
		return pteEntry{}, trap.New(kind.pageFaultCause(), vaddr)
	}
	return pteEntry{pte: pte0, pteAddr: addr0, superpage: false}, nil
}

func valid(pte uint32) bool {
	v := bits.GetBit(pte, 0) == 1
	w := bits.GetBit(pte, 2) == 1
	r := bits.GetBit(pte, 1) == 1
	return v && !(w && !r)
}

// isPointer reports whether pte is a non-leaf pointer to the next level
// (R=0 and X=0).
func isPointer(pte uint32) bool {
	return bits.GetBit(pte, 1) == 0 && bits.GetBit(pte, 3) == 0
}

func (m *MMU) checkPermissions(pte uint32, vaddr uint32, mode trap.Mode, kind AccessKind, csrs CSRView) error {
	r := bits.GetBit(pte, 1) == 1
	w := bits.GetBit(pte, 2) == 1
	x := bits.GetBit(pte, 3) == 1
	u := bits.GetBit(pte, 4) == 1
	fault := kind.pageFaultCause()

	if kind == AccessStore && !w {
		return trap.New(fault, vaddr)
	}
	if mode == trap.ModeU && !u {
		return trap.New(fault, vaddr)
	}
	if mode == trap.ModeS && u && !csrs.SUM() {
		return trap.New(fault, vaddr)
	}
	if kind == AccessFetch && !x {
		return trap.New(fault, vaddr)
	}
	if kind == AccessLoad && !r && !(csrs.MXR() && x) {
		return trap.New(fault, vaddr)
	}
	return nil
}

// updateAD sets A (and D on a store) if not already set, returning the new
// PTE word and whether it changed.
func updateAD(pte uint32, isStore bool) (uint32, bool) {
	changed := false
	if bits.GetBit(pte, 6) == 0 {
		pte = bits.SetBit(pte, 6, true)
		changed = true
	}
	if isStore && bits.GetBit(pte, 7) == 0 {
		pte = bits.SetBit(pte, 7, true)
		changed = true
	}
	return pte, changed
}

func composePhysical(e pteEntry, vaddr uint32) uint32 {
	offset := bits.Cut(vaddr, 0, 11)
	ppn1 := bits.Cut(e.pte, 20, 31)
	var ppn0 uint32
	if e.superpage {
		ppn0 = bits.Cut(vaddr, 12, 21)
	} else {
		ppn0 = bits.Cut(e.pte, 10, 19)
	}
	return ppn1<<22 | ppn0<<12 | offset
}

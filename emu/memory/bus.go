/*
rv32ima physical address-space fabric.

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

// Package memory implements the physical address-space fabric: a root
// region spanning the full 32-bit space, holding ordered, non-overlapping
// sub-regions that are either plain backing bytes (RAM, flash) or
// memory-mapped devices (UART, CLINT). It also owns the single-hart
// load-reservation used by LR.W/SC.W.
package memory

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rcornwell/rv32ima/emu/bits"
	"github.com/rcornwell/rv32ima/emu/device"
)

// ErrInvalidAddress is returned for any access that does not land inside a
// mapped region.
var ErrInvalidAddress = errors.New("memory: invalid address")

// region is a single mapped window of the physical address space.
type region struct {
	name   string
	base   uint32
	size   uint32
	buf    []byte        // non-nil for backing-memory regions
	dev    device.Device // non-nil for device regions
	frozen bool          // true once the bus has started dispatching
}

func (r *region) end() uint32 { return r.base + r.size } // exclusive

func (r *region) contains(addr uint32) bool {
	return addr >= r.base && addr < r.end()
}

// Bus is the physical address-space fabric (spec component C2).
type Bus struct {
	regions     []*region
	reservation struct {
		valid bool
		addr  uint32
		value uint32
	}
	// onWrite is invoked after every successful write with the physical
	// address and length touched; the fetch loop's block cache uses this to
	// invalidate decoded blocks in the written frame. nil is a valid value
	// (no subscriber yet).
	onWrite func(addr uint32, length int)
}

// NewBus creates an empty address-space fabric.
func NewBus() *Bus {
	return &Bus{}
}

// SetWriteHook installs the callback invoked after every write.
func (b *Bus) SetWriteHook(fn func(addr uint32, length int)) {
	b.onWrite = fn
}

// MapRAM adds a backing-bytes region at [base, base+size). The returned
// slice aliases the region's storage and may be used by a loader to seed
// initial contents.
func (b *Bus) MapRAM(name string, base, size uint32) []byte {
	buf := make([]byte, size)
	b.addRegion(&region{name: name, base: base, size: size, buf: buf})
	return buf
}

// MapDevice adds a device-backed region at the device's own Base()/Size().
func (b *Bus) MapDevice(dev device.Device) {
	b.addRegion(&region{name: dev.Name(), base: dev.Base(), size: dev.Size(), dev: dev})
}

func (b *Bus) addRegion(r *region) {
	for _, existing := range b.regions {
		if r.base < existing.end() && existing.base < r.end() {
			panic(fmt.Sprintf("memory: region %q overlaps %q", r.name, existing.name))
		}
	}
	b.regions = append(b.regions, r)
	sort.Slice(b.regions, func(i, j int) bool { return b.regions[i].base < b.regions[j].base })
}

// find returns the innermost region containing addr, or nil.
func (b *Bus) find(addr uint32) *region {
	// Regions are kept sorted and non-overlapping by construction, so a
	// binary search would do; a pack this small favors a linear scan for
	// clarity (device counts stay in the single digits).
	for _, r := range b.regions {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

// Read returns length bytes starting at addr. Crossing a region boundary is
// not supported: the ISA only ever issues naturally aligned, single-region
// requests (the MMU operates per access, one page at a time).
func (b *Bus) Read(addr uint32, length int) ([]byte, error) {
	r := b.find(addr)
	if r == nil {
		return nil, fmt.Errorf("%w: read at %#08x", ErrInvalidAddress, addr)
	}
	out := make([]byte, length)
	if r.dev != nil {
		for i := 0; i < length; i++ {
			out[i] = r.dev.ReadByte(addr + uint32(i))
		}
		return out, nil
	}
	off := addr - r.base
	copy(out, r.buf[off:off+uint32(length)])
	return out, nil
}

// Write stores data at addr.
func (b *Bus) Write(addr uint32, data []byte) error {
	r := b.find(addr)
	if r == nil {
		return fmt.Errorf("%w: write at %#08x", ErrInvalidAddress, addr)
	}
	if r.dev != nil {
		for i, v := range data {
			r.dev.WriteByte(addr+uint32(i), v)
		}
	} else {
		off := addr - r.base
		copy(r.buf[off:off+uint32(len(data))], data)
	}
	b.ClearReservation(addr, len(data))
	if b.onWrite != nil {
		b.onWrite(addr, len(data))
	}
	return nil
}

// Typed little-endian accessors built atop Read/Write, covering the
// signed/unsigned 8/16/32/64-bit loads and stores the ISA and CLINT need.

func (b *Bus) ReadU8(addr uint32) (uint8, error) {
	v, err := b.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return bits.Read8(v), nil
}

func (b *Bus) ReadU16(addr uint32) (uint16, error) {
	v, err := b.Read(addr, 2)
	if err != nil {
		return 0, err
	}
	return bits.Read16(v), nil
}

func (b *Bus) ReadU32(addr uint32) (uint32, error) {
	v, err := b.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return bits.Read32(v), nil
}

func (b *Bus) ReadU64(addr uint32) (uint64, error) {
	v, err := b.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	return bits.Read64(v), nil
}

func (b *Bus) ReadS8(addr uint32) (int32, error) {
	v, err := b.ReadU8(addr)
	return int32(int8(v)), err
}

func (b *Bus) ReadS16(addr uint32) (int32, error) {
	v, err := b.ReadU16(addr)
	return int32(int16(v)), err
}

func (b *Bus) WriteU8(addr uint32, v uint8) error {
	buf := []byte{v}
	return b.Write(addr, buf)
}

func (b *Bus) WriteU16(addr uint32, v uint16) error {
	buf := make([]byte, 2)
	bits.Write16(buf, v)
	return b.Write(addr, buf)
}

func (b *Bus) WriteU32(addr uint32, v uint32) error {
	buf := make([]byte, 4)
	bits.Write32(buf, v)
	return b.Write(addr, buf)
}

func (b *Bus) WriteU64(addr uint32, v uint64) error {
	buf := make([]byte, 8)
	bits.Write64(buf, v)
	return b.Write(addr, buf)
}

// LoadReserve records a reservation for LR.W: the word currently at addr.
func (b *Bus) LoadReserve(addr uint32, value uint32) {
	b.reservation.valid = true
	b.reservation.addr = addr
	b.reservation.value = value
}

// StoreConditional attempts SC.W: it succeeds iff a reservation is held for
// addr and the word currently stored there still equals the reserved value.
// The reservation is always cleared, win or lose, matching spec.md's chosen
// "reload and compare" form of LR/SC (weaker than an address-range
// invalidation scheme, but adequate for a single hart).
func (b *Bus) StoreConditional(addr uint32, newValue uint32) (ok bool, err error) {
	defer func() { b.reservation.valid = false }()
	if !b.reservation.valid || b.reservation.addr != addr {
		return false, nil
	}
	cur, err := b.ReadU32(addr)
	if err != nil {
		return false, err
	}
	if cur != b.reservation.value {
		return false, nil
	}
	return true, b.WriteU32(addr, newValue)
}

// ClearReservation drops any held reservation, e.g. because an intervening
// store hit the reserved word.
func (b *Bus) ClearReservation(addr uint32, length int) {
	if !b.reservation.valid {
		return
	}
	if addr <= b.reservation.addr && b.reservation.addr < addr+uint32(length) {
		b.reservation.valid = false
	}
}

/*
rv32ima CLINT timer device.

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

// Package clint implements the core-local interruptor from spec.md 6: a
// 64-bit mtime counter and a 64-bit mtimecmp compare register, each
// little-endian, at the fixed offsets within the device's 64 KiB window.
package clint

import "sync"

// Size is the CLINT's MMIO window (spec.md 6).
const Size = 0x10000

const (
	offMtime    = 0xBFF8
	offMtimecmp = 0x4000
)

// CLINT is the memory-mapped mtime/mtimecmp pair. Notify, if set, is called
// every time a write could change the MTIP comparison, so the hart can
// latch CSR.mip.MTIP without the device needing to know about CSR internals.
type CLINT struct {
	base uint32

	mu       sync.Mutex
	mtime    uint64
	mtimecmp uint64
	notify   func(pending bool)
}

// New builds a CLINT at physical address base. notify is invoked with the
// current mtime>=mtimecmp result whenever either register changes.
func New(base uint32, notify func(pending bool)) *CLINT {
	return &CLINT{base: base, notify: notify}
}

func (c *CLINT) Name() string { return "clint0" }
func (c *CLINT) Base() uint32 { return c.base }
func (c *CLINT) Size() uint32 { return Size }
func (c *CLINT) Shutdown()    {}

// SetMtime is called by the hart's poll step (spec.md 4.4 step 5, 9) with
// the host-clock-derived counter value, and re-evaluates MTIP.
func (c *CLINT) SetMtime(v uint64) {
	c.mu.Lock()
	c.mtime = v
	c.mu.Unlock()
	c.evaluate()
}

func (c *CLINT) evaluate() {
	c.mu.Lock()
	pending := c.mtime >= c.mtimecmp
	c.mu.Unlock()
	if c.notify != nil {
		c.notify(pending)
	}
}

// ReadByte implements little-endian byte access into whichever 8-byte
// register addr falls within; any other offset in the 64 KiB window reads
// as zero (spec.md 6 names only these two live registers).
func (c *CLINT) ReadByte(addr uint32) uint8 {
	off := addr - c.base
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case off >= offMtime && off < offMtime+8:
		return byteOf(c.mtime, off-offMtime)
	case off >= offMtimecmp && off < offMtimecmp+8:
		return byteOf(c.mtimecmp, off-offMtimecmp)
	}
	return 0
}

// WriteByte implements the guest-writable path for both registers: writes
// to mtime are directly visible (spec.md 6), writes to mtimecmp update the
// compare value, and either re-evaluates MTIP.
func (c *CLINT) WriteByte(addr uint32, value uint8) {
	off := addr - c.base
	c.mu.Lock()
	switch {
	case off >= offMtime && off < offMtime+8:
		c.mtime = setByteOf(c.mtime, off-offMtime, value)
	case off >= offMtimecmp && off < offMtimecmp+8:
		c.mtimecmp = setByteOf(c.mtimecmp, off-offMtimecmp, value)
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.evaluate()
}

func byteOf(v uint64, i uint32) uint8 {
	return uint8(v >> (8 * i))
}

func setByteOf(v uint64, i uint32, b uint8) uint64 {
	shift := 8 * i
	mask := uint64(0xFF) << shift
	return (v &^ mask) | uint64(b)<<shift
}

/*
rv32ima 8250-style UART device.

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

// Package uart implements the 8250-style serial peripheral from spec.md 6:
// a one-byte data register and a line-status register, backed by a pair of
// bounded queues ferrying bytes to and from a host io.Reader/io.Writer, the
// same goroutine-plus-channel shape telnet uses for its own client I/O.
package uart

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Size is the UART's fixed MMIO window (spec.md 6).
const Size = 256

const (
	regData = 0x00
	regLSR  = 0x05
)

// lsrBase is TEMT|THRE (bits 6,5) — the transmit side is modeled as always
// immediately ready, since WriteByte never blocks the guest.
const lsrBase = 0x60

// UART is a 16550/8250-compatible serial port. The host side is connected
// through plain io.Reader/io.Writer, so the caller decides whether that is
// a terminal, a telnet session, or a test buffer.
type UART struct {
	name string
	base uint32

	rx chan byte
	tx chan byte

	shutdown chan struct{}
	wg       sync.WaitGroup
}

// New builds a UART at physical address base, pumping bytes to/from r and w
// on its own goroutines. Either may be nil to run that direction disconnected.
func New(name string, base uint32, r io.Reader, w io.Writer) *UART {
	u := &UART{
		name:     name,
		base:     base,
		rx:       make(chan byte, 256),
		tx:       make(chan byte, 256),
		shutdown: make(chan struct{}),
	}
	if r != nil {
		u.wg.Add(1)
		go u.readPump(r)
	}
	if w != nil {
		u.wg.Add(1)
		go u.writePump(w)
	}
	return u
}

func (u *UART) Name() string { return u.name }
func (u *UART) Base() uint32 { return u.base }
func (u *UART) Size() uint32 { return Size }

// ReadByte implements spec.md 6's register semantics for reads.
func (u *UART) ReadByte(addr uint32) uint8 {
	switch addr - u.base {
	case regData:
		select {
		case b := <-u.rx:
			return b
		default:
			return 0
		}
	case regLSR:
		lsr := uint8(lsrBase)
		if len(u.rx) > 0 {
			lsr |= 1
		}
		return lsr
	}
	return 0
}

// WriteByte implements spec.md 6's register semantics for writes: a write
// to the data register enqueues a byte for transmission. A full tx queue
// drops the byte rather than blocking the guest's fetch loop.
func (u *UART) WriteByte(addr uint32, value uint8) {
	if addr-u.base != regData {
		return
	}
	select {
	case u.tx <- value:
	default:
		slog.Warn("uart: tx queue full, dropping byte", "device", u.name)
	}
}

// Debug reports queue depths for the monitor package (device.Debugger).
func (u *UART) Debug() string {
	return fmt.Sprintf("%s: rx=%d tx=%d", u.name, len(u.rx), len(u.tx))
}

// Shutdown stops the pump goroutines and waits for both to exit. The read
// side can only unblock once r itself is closed by the caller or returns an
// error (a blocking io.Reader.Read cannot be interrupted from here), so
// Shutdown blocks until then. Bytes still queued for transmission are not
// flushed.
func (u *UART) Shutdown() {
	close(u.shutdown)
	u.wg.Wait()
}

func (u *UART) readPump(r io.Reader) {
	defer u.wg.Done()
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		select {
		case u.rx <- b:
		case <-u.shutdown:
			return
		}
	}
}

func (u *UART) writePump(w io.Writer) {
	defer u.wg.Done()
	for {
		select {
		case b := <-u.tx:
			if _, err := w.Write([]byte{b}); err != nil {
				return
			}
		case <-u.shutdown:
			return
		}
	}
}

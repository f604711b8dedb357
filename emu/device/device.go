/*
rv32ima memory-mapped device interface.

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
package device

// Device is implemented by every memory-mapped peripheral hung off the
// address-space fabric. Unlike a backing-memory region, a device may have
// side effects on read (draining a receive queue) and is never cached by
// the decoded-instruction block cache.
type Device interface {
	// Name identifies the device for logging and the debug shell.
	Name() string

	// Base and Size describe the device's fixed window in the physical
	// address space.
	Base() uint32
	Size() uint32

	// ReadByte and WriteByte access a single register at a physical address
	// that is guaranteed to fall within [Base, Base+Size).
	ReadByte(addr uint32) uint8
	WriteByte(addr uint32, value uint8)

	// Shutdown releases any host resources (sockets, goroutines) held by
	// the device.
	Shutdown()
}

// Debugger is optionally implemented by devices that can report internal
// state to the monitor package.
type Debugger interface {
	Debug() string
}

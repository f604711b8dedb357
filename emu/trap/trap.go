/*
rv32ima trap causes.

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

// Package trap holds the mcause/scause encoding shared by the MMU and the
// CPU's trap engine, so neither package needs to import the other just to
// raise or classify an exception.
package trap

import "fmt"

// Mode is a hart privilege level, using the same 2-bit encoding as
// mstatus.MPP/SPP (U=0b00, S=0b01, M=0b11) so it can be stored into those
// fields without translation.
type Mode uint8

const (
	ModeU Mode = 0b00
	ModeS Mode = 0b01
	ModeM Mode = 0b11
)

func (m Mode) String() string {
	switch m {
	case ModeM:
		return "M"
	case ModeS:
		return "S"
	default:
		return "U"
	}
}

// Cause is an mcause/scause value: bit 31 set marks an interrupt, clear
// marks an exception.
type Cause uint32

const interruptBit = uint32(1) << 31

const (
	IllegalInstruction  Cause = 2
	Breakpoint          Cause = 3
	InstPageFault       Cause = 12
	LoadPageFault       Cause = 13
	AccessFault         Cause = 1
	StoreAmoPageFault   Cause = 15
	EcallFromU          Cause = 8
	EcallFromS          Cause = 9
	EcallFromM          Cause = 11

	InterruptTimerS Cause = Cause(interruptBit) | 5
	InterruptTimerM Cause = Cause(interruptBit) | 7
)

// IsInterrupt reports whether c carries the interrupt bit.
func (c Cause) IsInterrupt() bool { return uint32(c)&interruptBit != 0 }

// Code returns c with the interrupt bit stripped, the value exposed in the
// low bits of mcause/scause.
func (c Cause) Code() uint32 { return uint32(c) &^ interruptBit }

// Error is raised by the MMU and execution units and carries enough for the
// trap engine to populate mcause/mtval (or scause/stval) directly. It is
// the "result values returned up the stack" form chosen in SPEC_FULL.md 7
// over a pending-trap field on the hart.
type Error struct {
	Cause Cause
	Tval  uint32
}

func (e *Error) Error() string {
	return fmt.Sprintf("trap: cause=%#x tval=%#x", uint32(e.Cause), e.Tval)
}

// New builds a trap Error for cause at tval.
func New(cause Cause, tval uint32) *Error { return &Error{Cause: cause, Tval: tval} }

/*
CPU: privilege and trap engine.

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
package cpu

import "github.com/rcornwell/rv32ima/emu/trap"

// delegated reports whether cause's code bit is set in a medeleg/mideleg
// word.
func delegated(delegReg uint32, cause trap.Cause) bool {
	return delegReg&(1<<cause.Code()) != 0
}

// TakeTrap implements spec.md 4.7's take_trap(cause, tval). Exceptions
// always trap; interrupts may be masked entirely (left pending, the loop
// continues) depending on the current mode and the global interrupt-enable
// bit for that mode.
func (h *Hart) TakeTrap(cause trap.Cause, tval uint32) {
	toS := false
	if cause.IsInterrupt() {
		mDeliverable := (h.Mode == trap.ModeM && h.CSR.MIE()) || h.Mode < trap.ModeM
		sDeliverable := (h.Mode == trap.ModeS && h.CSR.SIE()) || h.Mode < trap.ModeS
		switch {
		case mDeliverable && !delegated(h.CSR.MIDELEG(), cause):
			toS = false
		case sDeliverable && delegated(h.CSR.MIDELEG(), cause):
			toS = true
		default:
			return // masked: defer
		}
	} else {
		toS = h.Mode < trap.ModeM && delegated(h.CSR.MEDELEG(), cause)
	}

	if toS {
		h.enterS(cause, tval)
	} else {
		h.enterM(cause, tval)
	}
}

func (h *Hart) enterM(cause trap.Cause, tval uint32) {
	h.CSR.SetMCAUSE(uint32(cause))
	h.CSR.SetMEPC(h.PC)
	h.CSR.SetMTVAL(tval)
	h.CSR.SetMPIE(h.CSR.MIE())
	h.CSR.SetMIE(false)
	h.CSR.SetMPP(uint8(h.Mode))
	h.Mode = trap.ModeM
	h.jumpTo(h.CSR.MTVEC() &^ 0x3)
}

func (h *Hart) enterS(cause trap.Cause, tval uint32) {
	h.CSR.SetSCAUSE(uint32(cause))
	h.CSR.SetSEPC(h.PC)
	h.CSR.SetSTVAL(tval)
	h.CSR.SetSPIE(h.CSR.SIE())
	h.CSR.SetSIE(false)
	spp := uint8(0)
	if h.Mode == trap.ModeS {
		spp = 1
	}
	h.CSR.SetSPP(spp)
	h.Mode = trap.ModeS
	h.jumpTo(h.CSR.STVEC() &^ 0x3)
}

// mret implements spec.md 4.3's MRET.
func (h *Hart) mret() {
	h.jumpTo(h.CSR.MEPC())
	h.CSR.SetMIE(h.CSR.MPIE())
	h.CSR.SetMPIE(true)
	h.Mode = trap.Mode(h.CSR.MPP())
	h.CSR.SetMPP(uint8(trap.ModeU))
}

// sret implements spec.md 4.3's SRET, symmetric in the S view.
func (h *Hart) sret() {
	h.jumpTo(h.CSR.SEPC())
	h.CSR.SetSIE(h.CSR.SPIE())
	h.CSR.SetSPIE(true)
	if h.CSR.SPP() == 1 {
		h.Mode = trap.ModeS
	} else {
		h.Mode = trap.ModeU
	}
	h.CSR.SetSPP(0)
}

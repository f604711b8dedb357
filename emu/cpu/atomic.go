/*
CPU: LR/SC and AMO* semantics.

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

import (
	"github.com/rcornwell/rv32ima/emu/decoder"
	"github.com/rcornwell/rv32ima/emu/mmu"
	"github.com/rcornwell/rv32ima/emu/trap"
)

// execAtomic implements LR.W, SC.W and the AMO* family (spec.md 4.3).
func (h *Hart) execAtomic(inst decoder.Inst) error {
	vaddr := h.X[inst.Rs1]

	if inst.Op == decoder.OpLRW {
		paddr, err := h.MMU.Translate(vaddr, h.Mode, mmu.AccessLoad, h.CSR)
		if err != nil {
			return err
		}
		v, err := h.Bus.ReadU32(paddr)
		if err != nil {
			return trap.New(trap.AccessFault, vaddr)
		}
		h.Bus.LoadReserve(paddr, v)
		h.setX(inst.Rd, v)
		return nil
	}

	paddr, err := h.MMU.Translate(vaddr, h.Mode, mmu.AccessStore, h.CSR)
	if err != nil {
		return err
	}

	if inst.Op == decoder.OpSCW {
		ok, err := h.Bus.StoreConditional(paddr, h.X[inst.Rs2])
		if err != nil {
			return trap.New(trap.AccessFault, vaddr)
		}
		h.setX(inst.Rd, boolU32(!ok)) // 0 = success, 1 = failure (spec.md 4.3)
		return nil
	}

	old, err := h.Bus.ReadU32(paddr)
	if err != nil {
		return trap.New(trap.AccessFault, vaddr)
	}
	rs2 := h.X[inst.Rs2]
	var next uint32
	switch inst.Op {
	case decoder.OpAMOSWAPW:
		next = rs2
	case decoder.OpAMOADDW:
		next = old + rs2
	case decoder.OpAMOANDW:
		next = old & rs2
	case decoder.OpAMOORW:
		next = old | rs2
	case decoder.OpAMOXORW:
		next = old ^ rs2
	case decoder.OpAMOMAXW:
		next = maxS32(old, rs2)
	case decoder.OpAMOMINW:
		next = minS32(old, rs2)
	case decoder.OpAMOMAXUW:
		next = maxU32(old, rs2)
	case decoder.OpAMOMINUW:
		next = minU32(old, rs2)
	}
	if err := h.Bus.WriteU32(paddr, next); err != nil {
		return trap.New(trap.AccessFault, vaddr)
	}
	h.setX(inst.Rd, old)
	return nil
}

func maxS32(a, b uint32) uint32 {
	if int32(a) > int32(b) {
		return a
	}
	return b
}

func minS32(a, b uint32) uint32 {
	if int32(a) < int32(b) {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

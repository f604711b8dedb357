/*
CPU: CSR-instruction semantics.

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
	"github.com/rcornwell/rv32ima/emu/trap"
)

// execCSR implements the six CSR* instructions (spec.md 4.5): a read of the
// index, an optional read-modify-write, and the result to rd. An
// unrecognized index raises ILLEGAL_INSTRUCTION (CSRFile.Read/Write).
func (h *Hart) execCSR(inst decoder.Inst) error {
	idx := uint16(inst.Imm)

	old, err := h.CSR.Read(idx)
	if err != nil {
		return trap.New(trap.IllegalInstruction, h.PC)
	}

	var operand uint32
	switch inst.Op {
	case decoder.OpCSRRWI, decoder.OpCSRRSI, decoder.OpCSRRCI:
		operand = uint32(inst.Rs1) // zero-extended 5-bit immediate in the rs1 field slot
	default:
		operand = h.X[inst.Rs1]
	}

	write := true
	var next uint32
	switch inst.Op {
	case decoder.OpCSRRW, decoder.OpCSRRWI:
		next = operand
	case decoder.OpCSRRS, decoder.OpCSRRSI:
		next = old | operand
		write = operand != 0
	case decoder.OpCSRRC, decoder.OpCSRRCI:
		next = old &^ operand
		write = operand != 0
	}

	if write {
		if _, err := h.CSR.Write(idx, next); err != nil {
			return trap.New(trap.IllegalInstruction, h.PC)
		}
	}

	h.setX(inst.Rd, old)
	return nil
}

/*
rv32ima instruction formats.

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
package decoder

import "github.com/rcornwell/rv32ima/emu/bits"

// Format tags the instruction variant used to lay out operand fields.
type Format uint8

const (
	FormatR Format = iota
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
	FormatAtomic // R-type with funct5/aq/rl in place of funct7
)

func opcode(w uint32) uint32 { return bits.Cut(w, 0, 6) }
func rd(w uint32) uint8      { return uint8(bits.Cut(w, 7, 11)) }
func funct3(w uint32) uint8  { return uint8(bits.Cut(w, 12, 14)) }
func rs1(w uint32) uint8     { return uint8(bits.Cut(w, 15, 19)) }
func rs2(w uint32) uint8     { return uint8(bits.Cut(w, 20, 24)) }
func funct7(w uint32) uint8  { return uint8(bits.Cut(w, 25, 31)) }
func funct5(w uint32) uint8  { return uint8(bits.Cut(w, 27, 31)) }

func immI(w uint32) uint32 { return bits.SignExtend(bits.Cut(w, 20, 31), 12) }

func immS(w uint32) uint32 {
	v := bits.Cut(w, 7, 11) | bits.Cut(w, 25, 31)<<5
	return bits.SignExtend(v, 12)
}

func immB(w uint32) uint32 {
	v := bits.Cut(w, 8, 11)<<1 |
		bits.Cut(w, 25, 30)<<5 |
		bits.Cut(w, 7, 7)<<11 |
		bits.Cut(w, 31, 31)<<12
	return bits.SignExtend(v, 13)
}

func immU(w uint32) uint32 { return bits.Cut(w, 12, 31) << 12 }

func immJ(w uint32) uint32 {
	v := bits.Cut(w, 21, 30)<<1 |
		bits.Cut(w, 20, 20)<<11 |
		bits.Cut(w, 12, 19)<<12 |
		bits.Cut(w, 31, 31)<<20
	return bits.SignExtend(v, 21)
}

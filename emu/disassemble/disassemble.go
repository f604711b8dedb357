/*
rv32ima disassembler.

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

// Package disassemble renders a decoded instruction as RISC-V assembly text,
// for the debug shell and trace logging (component A5).
package disassemble

import (
	"fmt"

	"github.com/rcornwell/rv32ima/emu/decoder"
)

// mnemonic, by decoder.Op. Pseudo-forms (mv, nop, li, ret, j) are not
// synthesized: this prints what the hardware actually executes, the way a
// trace log needs to.
var mnemonic = map[decoder.Op]string{
	decoder.OpADD: "add", decoder.OpSUB: "sub", decoder.OpXOR: "xor",
	decoder.OpOR: "or", decoder.OpAND: "and", decoder.OpSLL: "sll",
	decoder.OpSRL: "srl", decoder.OpSRA: "sra", decoder.OpSLT: "slt",
	decoder.OpSLTU: "sltu",

	decoder.OpADDI: "addi", decoder.OpXORI: "xori", decoder.OpORI: "ori",
	decoder.OpANDI: "andi", decoder.OpSLLI: "slli", decoder.OpSRLI: "srli",
	decoder.OpSRAI: "srai", decoder.OpSLTI: "slti", decoder.OpSLTIU: "sltiu",

	decoder.OpLB: "lb", decoder.OpLH: "lh", decoder.OpLW: "lw",
	decoder.OpLBU: "lbu", decoder.OpLHU: "lhu",

	decoder.OpSB: "sb", decoder.OpSH: "sh", decoder.OpSW: "sw",

	decoder.OpBEQ: "beq", decoder.OpBNE: "bne", decoder.OpBLT: "blt",
	decoder.OpBGE: "bge", decoder.OpBLTU: "bltu", decoder.OpBGEU: "bgeu",

	decoder.OpJAL: "jal", decoder.OpJALR: "jalr",
	decoder.OpLUI: "lui", decoder.OpAUIPC: "auipc",

	decoder.OpECALL: "ecall", decoder.OpEBREAK: "ebreak",
	decoder.OpMRET: "mret", decoder.OpSRET: "sret", decoder.OpWFI: "wfi",
	decoder.OpSFENCEVMA: "sfence.vma",

	decoder.OpCSRRW: "csrrw", decoder.OpCSRRS: "csrrs", decoder.OpCSRRC: "csrrc",
	decoder.OpCSRRWI: "csrrwi", decoder.OpCSRRSI: "csrrsi", decoder.OpCSRRCI: "csrrci",

	decoder.OpFENCE: "fence", decoder.OpFENCEI: "fence.i", decoder.OpCBOZERO: "cbo.zero",

	decoder.OpMUL: "mul", decoder.OpMULH: "mulh", decoder.OpMULHSU: "mulhsu",
	decoder.OpMULHU: "mulhu", decoder.OpDIV: "div", decoder.OpDIVU: "divu",
	decoder.OpREM: "rem", decoder.OpREMU: "remu",

	decoder.OpLRW: "lr.w", decoder.OpSCW: "sc.w",
	decoder.OpAMOSWAPW: "amoswap.w", decoder.OpAMOADDW: "amoadd.w",
	decoder.OpAMOANDW: "amoand.w", decoder.OpAMOORW: "amoor.w",
	decoder.OpAMOXORW: "amoxor.w", decoder.OpAMOMAXW: "amomax.w",
	decoder.OpAMOMINW: "amomin.w", decoder.OpAMOMAXUW: "amomaxu.w",
	decoder.OpAMOMINUW: "amominu.w",
}

// reg renders x0..x31 in ABI mnemonic form, which is what a reader debugging
// a guest kernel actually wants to see.
var regName = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func reg(i uint8) string { return regName[i&31] }

// Disassemble renders inst as one line of RISC-V assembly text. pc is used
// only to resolve a JAL/branch target to an absolute address for display.
func Disassemble(inst decoder.Inst, pc uint32) string {
	name, ok := mnemonic[inst.Op]
	if !ok {
		return fmt.Sprintf(".word %#08x", inst.Raw)
	}

	switch inst.Op {
	case decoder.OpECALL, decoder.OpEBREAK, decoder.OpMRET, decoder.OpSRET, decoder.OpWFI:
		return name
	case decoder.OpFENCE, decoder.OpFENCEI:
		return name
	case decoder.OpSFENCEVMA:
		return fmt.Sprintf("%s %s, %s", name, reg(inst.Rs1), reg(inst.Rs2))
	}

	switch inst.Format {
	case decoder.FormatR:
		return fmt.Sprintf("%-8s %s, %s, %s", name, reg(inst.Rd), reg(inst.Rs1), reg(inst.Rs2))
	case decoder.FormatAtomic:
		if inst.Op == decoder.OpLRW {
			return fmt.Sprintf("%-8s %s, (%s)", name, reg(inst.Rd), reg(inst.Rs1))
		}
		return fmt.Sprintf("%-8s %s, %s, (%s)", name, reg(inst.Rd), reg(inst.Rs2), reg(inst.Rs1))
	case decoder.FormatI:
		switch inst.Op {
		case decoder.OpLB, decoder.OpLH, decoder.OpLW, decoder.OpLBU, decoder.OpLHU:
			return fmt.Sprintf("%-8s %s, %d(%s)", name, reg(inst.Rd), int32(inst.Imm), reg(inst.Rs1))
		case decoder.OpJALR:
			return fmt.Sprintf("%-8s %s, %d(%s)", name, reg(inst.Rd), int32(inst.Imm), reg(inst.Rs1))
		case decoder.OpCSRRW, decoder.OpCSRRS, decoder.OpCSRRC:
			return fmt.Sprintf("%-8s %s, %#x, %s", name, reg(inst.Rd), inst.Imm, reg(inst.Rs1))
		case decoder.OpCSRRWI, decoder.OpCSRRSI, decoder.OpCSRRCI:
			return fmt.Sprintf("%-8s %s, %#x, %d", name, reg(inst.Rd), inst.Imm, inst.Rs1)
		default:
			return fmt.Sprintf("%-8s %s, %s, %d", name, reg(inst.Rd), reg(inst.Rs1), int32(inst.Imm))
		}
	case decoder.FormatS:
		return fmt.Sprintf("%-8s %s, %d(%s)", name, reg(inst.Rs2), int32(inst.Imm), reg(inst.Rs1))
	case decoder.FormatB:
		target := pc + inst.Imm
		return fmt.Sprintf("%-8s %s, %s, %#x", name, reg(inst.Rs1), reg(inst.Rs2), target)
	case decoder.FormatU:
		return fmt.Sprintf("%-8s %s, %#x", name, reg(inst.Rd), inst.Imm>>12)
	case decoder.FormatJ:
		target := pc + inst.Imm
		return fmt.Sprintf("%-8s %s, %#x", name, reg(inst.Rd), target)
	}
	return fmt.Sprintf(".word %#08x", inst.Raw)
}

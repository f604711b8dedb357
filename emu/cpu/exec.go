/*
CPU: RV32IMA execution semantics.

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

// execute carries out one decoded instruction against the hart's registers,
// CSRs and MMU-mediated memory (spec.md 4.3). A returned error is always a
// *trap.Error; the fetch loop routes it to TakeTrap.
func (h *Hart) execute(inst decoder.Inst) error {
	switch inst.Op {
	case decoder.OpADD, decoder.OpSUB, decoder.OpXOR, decoder.OpOR, decoder.OpAND,
		decoder.OpSLL, decoder.OpSRL, decoder.OpSRA, decoder.OpSLT, decoder.OpSLTU:
		return h.execAluReg(inst)

	case decoder.OpADDI, decoder.OpXORI, decoder.OpORI, decoder.OpANDI,
		decoder.OpSLLI, decoder.OpSRLI, decoder.OpSRAI, decoder.OpSLTI, decoder.OpSLTIU:
		return h.execAluImm(inst)

	case decoder.OpMUL, decoder.OpMULH, decoder.OpMULHSU, decoder.OpMULHU,
		decoder.OpDIV, decoder.OpDIVU, decoder.OpREM, decoder.OpREMU:
		return h.execMulDiv(inst)

	case decoder.OpLB, decoder.OpLH, decoder.OpLW, decoder.OpLBU, decoder.OpLHU:
		return h.execLoad(inst)

	case decoder.OpSB, decoder.OpSH, decoder.OpSW:
		return h.execStore(inst)

	case decoder.OpBEQ, decoder.OpBNE, decoder.OpBLT, decoder.OpBGE, decoder.OpBLTU, decoder.OpBGEU:
		return h.execBranch(inst)

	case decoder.OpJAL:
		h.setX(inst.Rd, h.PC+4)
		h.jumpTo(h.PC + inst.Imm)
		return nil

	case decoder.OpJALR:
		target := (h.X[inst.Rs1] + inst.Imm) &^ 1
		h.setX(inst.Rd, h.PC+4)
		h.jumpTo(target)
		return nil

	case decoder.OpLUI:
		h.setX(inst.Rd, inst.Imm)
		return nil

	case decoder.OpAUIPC:
		h.setX(inst.Rd, h.PC+inst.Imm)
		return nil

	case decoder.OpECALL:
		return h.execEcall()

	case decoder.OpEBREAK:
		return trap.New(trap.Breakpoint, h.PC)

	case decoder.OpMRET:
		h.mret()
		return nil

	case decoder.OpSRET:
		h.sret()
		return nil

	case decoder.OpWFI:
		return nil // spec.md 4.3: functionally a no-op

	case decoder.OpSFENCEVMA:
		h.MMU.InvalidateASID(h.X[inst.Rs2], inst.Rs2 == 0)
		return nil

	case decoder.OpCSRRW, decoder.OpCSRRS, decoder.OpCSRRC,
		decoder.OpCSRRWI, decoder.OpCSRRSI, decoder.OpCSRRCI:
		return h.execCSR(inst)

	case decoder.OpFENCE, decoder.OpFENCEI:
		return nil

	case decoder.OpCBOZERO:
		return h.execCBOZero(inst)

	case decoder.OpLRW, decoder.OpSCW, decoder.OpAMOSWAPW, decoder.OpAMOADDW,
		decoder.OpAMOANDW, decoder.OpAMOORW, decoder.OpAMOXORW,
		decoder.OpAMOMAXW, decoder.OpAMOMINW, decoder.OpAMOMAXUW, decoder.OpAMOMINUW:
		return h.execAtomic(inst)

	default:
		return trap.New(trap.IllegalInstruction, h.PC)
	}
}

func (h *Hart) execAluReg(inst decoder.Inst) error {
	a, b := h.X[inst.Rs1], h.X[inst.Rs2]
	var r uint32
	switch inst.Op {
	case decoder.OpADD:
		r = a + b
	case decoder.OpSUB:
		r = a - b
	case decoder.OpXOR:
		r = a ^ b
	case decoder.OpOR:
		r = a | b
	case decoder.OpAND:
		r = a & b
	case decoder.OpSLL:
		r = a << (b & 0x1F)
	case decoder.OpSRL:
		r = a >> (b & 0x1F)
	case decoder.OpSRA:
		r = uint32(int32(a) >> (b & 0x1F))
	case decoder.OpSLT:
		r = boolU32(int32(a) < int32(b))
	case decoder.OpSLTU:
		r = boolU32(a < b)
	}
	h.setX(inst.Rd, r)
	return nil
}

func (h *Hart) execAluImm(inst decoder.Inst) error {
	a, imm := h.X[inst.Rs1], inst.Imm
	var r uint32
	switch inst.Op {
	case decoder.OpADDI:
		r = a + imm
	case decoder.OpXORI:
		r = a ^ imm
	case decoder.OpORI:
		r = a | imm
	case decoder.OpANDI:
		r = a & imm
	case decoder.OpSLLI:
		r = a << (imm & 0x1F)
	case decoder.OpSRLI:
		r = a >> (imm & 0x1F)
	case decoder.OpSRAI:
		r = uint32(int32(a) >> (imm & 0x1F))
	case decoder.OpSLTI:
		r = boolU32(int32(a) < int32(imm))
	case decoder.OpSLTIU:
		r = boolU32(a < imm)
	}
	h.setX(inst.Rd, r)
	return nil
}

func (h *Hart) execMulDiv(inst decoder.Inst) error {
	a, b := h.X[inst.Rs1], h.X[inst.Rs2]
	var r uint32
	switch inst.Op {
	case decoder.OpMUL:
		r = a * b
	case decoder.OpMULH:
		r = uint32((int64(int32(a)) * int64(int32(b))) >> 32)
	case decoder.OpMULHSU:
		r = uint32((int64(int32(a)) * int64(uint64(b))) >> 32)
	case decoder.OpMULHU:
		r = uint32((uint64(a) * uint64(b)) >> 32)
	case decoder.OpDIV:
		r = divSigned(int32(a), int32(b))
	case decoder.OpDIVU:
		r = divUnsigned(a, b)
	case decoder.OpREM:
		r = remSigned(int32(a), int32(b))
	case decoder.OpREMU:
		r = remUnsigned(a, b)
	}
	h.setX(inst.Rd, r)
	return nil
}

// divSigned implements spec.md 4.3's DIV: by-zero returns all-ones;
// INT_MIN/-1 overflow returns INT_MIN; otherwise truncating division.
func divSigned(a, b int32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	if a == -0x80000000 && b == -1 {
		return uint32(a)
	}
	return uint32(a / b)
}

func remSigned(a, b int32) uint32 {
	if b == 0 {
		return uint32(a)
	}
	if a == -0x80000000 && b == -1 {
		return 0
	}
	return uint32(a % b)
}

func divUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

func remUnsigned(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}

func boolU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

func (h *Hart) effectiveAddr(rs1 uint8, imm uint32) uint32 {
	return h.X[rs1] + imm
}

func (h *Hart) execLoad(inst decoder.Inst) error {
	vaddr := h.effectiveAddr(inst.Rs1, inst.Imm)
	paddr, err := h.MMU.Translate(vaddr, h.Mode, mmu.AccessLoad, h.CSR)
	if err != nil {
		return err
	}
	var v uint32
	switch inst.Op {
	case decoder.OpLB:
		sv, err := h.Bus.ReadS8(paddr)
		if err != nil {
			return trap.New(trap.AccessFault, vaddr)
		}
		v = uint32(sv)
	case decoder.OpLH:
		sv, err := h.Bus.ReadS16(paddr)
		if err != nil {
			return trap.New(trap.AccessFault, vaddr)
		}
		v = uint32(sv)
	case decoder.OpLW:
		uv, err := h.Bus.ReadU32(paddr)
		if err != nil {
			return trap.New(trap.AccessFault, vaddr)
		}
		v = uv
	case decoder.OpLBU:
		uv, err := h.Bus.ReadU8(paddr)
		if err != nil {
			return trap.New(trap.AccessFault, vaddr)
		}
		v = uint32(uv)
	case decoder.OpLHU:
		uv, err := h.Bus.ReadU16(paddr)
		if err != nil {
			return trap.New(trap.AccessFault, vaddr)
		}
		v = uint32(uv)
	}
	h.setX(inst.Rd, v)
	return nil
}

func (h *Hart) execStore(inst decoder.Inst) error {
	vaddr := h.effectiveAddr(inst.Rs1, inst.Imm)
	paddr, err := h.MMU.Translate(vaddr, h.Mode, mmu.AccessStore, h.CSR)
	if err != nil {
		return err
	}
	v := h.X[inst.Rs2]
	var werr error
	switch inst.Op {
	case decoder.OpSB:
		werr = h.Bus.WriteU8(paddr, uint8(v))
	case decoder.OpSH:
		werr = h.Bus.WriteU16(paddr, uint16(v))
	case decoder.OpSW:
		werr = h.Bus.WriteU32(paddr, v)
	}
	if werr != nil {
		return trap.New(trap.AccessFault, vaddr)
	}
	return nil
}

func (h *Hart) execBranch(inst decoder.Inst) error {
	a, b := h.X[inst.Rs1], h.X[inst.Rs2]
	var taken bool
	switch inst.Op {
	case decoder.OpBEQ:
		taken = a == b
	case decoder.OpBNE:
		taken = a != b
	case decoder.OpBLT:
		taken = int32(a) < int32(b)
	case decoder.OpBGE:
		taken = int32(a) >= int32(b)
	case decoder.OpBLTU:
		taken = a < b
	case decoder.OpBGEU:
		taken = a >= b
	}
	if taken {
		h.jumpTo(h.PC + inst.Imm)
	}
	return nil
}

func (h *Hart) execEcall() error {
	switch h.Mode {
	case trap.ModeU:
		return trap.New(trap.EcallFromU, 0)
	case trap.ModeS:
		return trap.New(trap.EcallFromS, 0)
	default:
		return trap.New(trap.EcallFromM, 0)
	}
}

// execCBOZero zeros the 4 KiB block containing the address in rs1 (spec.md
// 4.3's CBO.ZERO).
func (h *Hart) execCBOZero(inst decoder.Inst) error {
	vaddr := h.X[inst.Rs1] &^ 0xFFF
	paddr, err := h.MMU.Translate(vaddr, h.Mode, mmu.AccessStore, h.CSR)
	if err != nil {
		return err
	}
	paddr &^= 0xFFF
	for off := uint32(0); off < 0x1000; off += 4 {
		if err := h.Bus.WriteU32(paddr+off, 0); err != nil {
			return trap.New(trap.AccessFault, vaddr+off)
		}
	}
	return nil
}

/*
rv32ima instruction decoder.

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

// Package decoder turns a 32-bit RV32IMA instruction word into a tagged,
// pre-extracted Inst value (spec component C3). Decoding is a pure function
// of the word, memoized behind an LRU cache keyed on the raw word since the
// fetch loop re-decodes the same handful of words millions of times a
// second.
package decoder

import (
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rcornwell/rv32ima/emu/bits"
)

// Op tags which RV32IMA instruction a decoded word represents.
type Op uint8

const (
	OpUnknown Op = iota

	OpADD
	OpSUB
	OpXOR
	OpOR
	OpAND
	OpSLL
	OpSRL
	OpSRA
	OpSLT
	OpSLTU

	OpADDI
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpSLTI
	OpSLTIU

	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	OpSB
	OpSH
	OpSW

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpJAL
	OpJALR
	OpLUI
	OpAUIPC

	OpECALL
	OpEBREAK
	OpMRET
	OpSRET
	OpWFI
	OpSFENCEVMA

	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	OpFENCE
	OpFENCEI
	OpCBOZERO

	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	OpLRW
	OpSCW
	OpAMOSWAPW
	OpAMOADDW
	OpAMOANDW
	OpAMOORW
	OpAMOXORW
	OpAMOMAXW
	OpAMOMINW
	OpAMOMAXUW
	OpAMOMINUW
)

// Inst is a fully decoded instruction: the ISA variant tag plus
// pre-extracted operand fields and sign-extended immediate, if any.
type Inst struct {
	Op      Op
	Format  Format
	Raw     uint32
	Rd      uint8
	Rs1     uint8
	Rs2     uint8
	Funct3  uint8
	Funct7  uint8
	Imm     uint32
	MayJump bool // terminates straight-line block prefetch, see spec C8
}

// ErrUndecodable is returned for any 32-bit word that does not match a
// known RV32IMA encoding.
type ErrUndecodable struct{ Word uint32 }

func (e ErrUndecodable) Error() string {
	return fmt.Sprintf("decoder: undecodable instruction word %#08x", e.Word)
}

var cache *lru.Cache[uint32, Inst]

func init() {
	// 20480 entries matches the working-set size real guest kernels churn
	// through in their hot loops without thrashing.
	c, err := lru.New[uint32, Inst](20480)
	if err != nil {
		panic(err) // only fails for a non-positive size, which is a bug here
	}
	cache = c
}

// Decode returns the decoded form of w, consulting (and populating) the LRU
// memo table. Decode is a pure function of w: repeated calls with the same
// w always return an equal Inst (spec invariant 8).
func Decode(w uint32) (Inst, error) {
	if inst, ok := cache.Get(w); ok {
		return inst, nil
	}
	inst, err := decodeSlow(w)
	if err != nil {
		if missTrace {
			slog.Debug("decoder: undecodable word", "word", w)
		}
		return Inst{}, err
	}
	cache.Add(w, inst)
	return inst, nil
}

//nolint:gocyclo // a decode table is inherently a flat dispatch on opcode/funct bits.
func decodeSlow(w uint32) (Inst, error) {
	op := opcode(w)
	f3 := funct3(w)
	f7 := funct7(w)

	switch op {
	case 0b0110011: // register-register ALU
		if f7 == 0x01 {
			return decodeMulDiv(w, f3)
		}
		return decodeAluReg(w, f3, f7)

	case 0b0010011: // register-immediate ALU
		return decodeAluImm(w, f3)

	case 0b0000011: // loads
		return decodeLoad(w, f3)

	case 0b0100011: // stores
		return decodeStore(w, f3)

	case 0b1100011: // branches
		return decodeBranch(w, f3)

	case 0b1101111: // JAL
		return Inst{Op: OpJAL, Format: FormatJ, Raw: w, Rd: rd(w), Imm: immJ(w), MayJump: true}, nil

	case 0b1100111: // JALR
		if f3 != 0 {
			return Inst{}, ErrUndecodable{w}
		}
		return Inst{Op: OpJALR, Format: FormatI, Raw: w, Rd: rd(w), Rs1: rs1(w), Imm: immI(w), MayJump: true}, nil

	case 0b0110111: // LUI
		return Inst{Op: OpLUI, Format: FormatU, Raw: w, Rd: rd(w), Imm: immU(w)}, nil

	case 0b0010111: // AUIPC
		return Inst{Op: OpAUIPC, Format: FormatU, Raw: w, Rd: rd(w), Imm: immU(w)}, nil

	case 0b1110011: // SYSTEM: ECALL/EBREAK/MRET/SRET/WFI/SFENCE.VMA/CSR*
		return decodeSystem(w, f3)

	case 0b0001111: // FENCE / FENCE.I / CBO.ZERO
		return decodeFence(w, f3)

	case 0b0101111: // atomics
		return decodeAtomic(w, f3)
	}
	return Inst{}, ErrUndecodable{w}
}

func decodeAluReg(w uint32, f3, f7 uint8) (Inst, error) {
	base := Inst{Op: OpUnknown, Format: FormatR, Raw: w, Rd: rd(w), Rs1: rs1(w), Rs2: rs2(w), Funct3: f3, Funct7: f7}
	switch {
	case f3 == 0x0 && f7 == 0x00:
		base.Op = OpADD
	case f3 == 0x0 && f7 == 0x20:
		base.Op = OpSUB
	case f3 == 0x4 && f7 == 0x00:
		base.Op = OpXOR
	case f3 == 0x6 && f7 == 0x00:
		base.Op = OpOR
	case f3 == 0x7 && f7 == 0x00:
		base.Op = OpAND
	case f3 == 0x1 && f7 == 0x00:
		base.Op = OpSLL
	case f3 == 0x5 && f7 == 0x00:
		base.Op = OpSRL
	case f3 == 0x5 && f7 == 0x20:
		base.Op = OpSRA
	case f3 == 0x2 && f7 == 0x00:
		base.Op = OpSLT
	case f3 == 0x3 && f7 == 0x00:
		base.Op = OpSLTU
	default:
		return Inst{}, ErrUndecodable{w}
	}
	return base, nil
}

func decodeMulDiv(w uint32, f3 uint8) (Inst, error) {
	base := Inst{Format: FormatR, Raw: w, Rd: rd(w), Rs1: rs1(w), Rs2: rs2(w), Funct3: f3}
	ops := [8]Op{OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU}
	base.Op = ops[f3]
	return base, nil
}

func decodeAluImm(w uint32, f3 uint8) (Inst, error) {
	base := Inst{Format: FormatI, Raw: w, Rd: rd(w), Rs1: rs1(w), Funct3: f3, Imm: immI(w)}
	switch f3 {
	case 0x0:
		base.Op = OpADDI
	case 0x4:
		base.Op = OpXORI
	case 0x6:
		base.Op = OpORI
	case 0x7:
		base.Op = OpANDI
	case 0x2:
		base.Op = OpSLTI
	case 0x3:
		base.Op = OpSLTIU
	case 0x1:
		if funct7(w) != 0x00 {
			return Inst{}, ErrUndecodable{w}
		}
		base.Op = OpSLLI
		base.Imm = uint32(rs2(w)) // shamt
	case 0x5:
		switch funct7(w) {
		case 0x00:
			base.Op = OpSRLI
		case 0x20:
			base.Op = OpSRAI
		default:
			return Inst{}, ErrUndecodable{w}
		}
		base.Imm = uint32(rs2(w)) // shamt
	default:
		return Inst{}, ErrUndecodable{w}
	}
	return base, nil
}

func decodeLoad(w uint32, f3 uint8) (Inst, error) {
	base := Inst{Format: FormatI, Raw: w, Rd: rd(w), Rs1: rs1(w), Funct3: f3, Imm: immI(w)}
	switch f3 {
	case 0x0:
		base.Op = OpLB
	case 0x1:
		base.Op = OpLH
	case 0x2:
		base.Op = OpLW
	case 0x4:
		base.Op = OpLBU
	case 0x5:
		base.Op = OpLHU
	default:
		return Inst{}, ErrUndecodable{w}
	}
	return base, nil
}

func decodeStore(w uint32, f3 uint8) (Inst, error) {
	base := Inst{Format: FormatS, Raw: w, Rs1: rs1(w), Rs2: rs2(w), Funct3: f3, Imm: immS(w)}
	switch f3 {
	case 0x0:
		base.Op = OpSB
	case 0x1:
		base.Op = OpSH
	case 0x2:
		base.Op = OpSW
	default:
		return Inst{}, ErrUndecodable{w}
	}
	return base, nil
}

func decodeBranch(w uint32, f3 uint8) (Inst, error) {
	base := Inst{Format: FormatB, Raw: w, Rs1: rs1(w), Rs2: rs2(w), Funct3: f3, Imm: immB(w), MayJump: true}
	switch f3 {
	case 0x0:
		base.Op = OpBEQ
	case 0x1:
		base.Op = OpBNE
	case 0x4:
		base.Op = OpBLT
	case 0x5:
		base.Op = OpBGE
	case 0x6:
		base.Op = OpBLTU
	case 0x7:
		base.Op = OpBGEU
	default:
		return Inst{}, ErrUndecodable{w}
	}
	return base, nil
}

func decodeSystem(w uint32, f3 uint8) (Inst, error) {
	base := Inst{Format: FormatI, Raw: w, Rd: rd(w), Rs1: rs1(w), Funct3: f3, MayJump: true}
	if f3 == 0x0 {
		imm := bits.Cut(w, 20, 31)
		switch {
		case imm == 0x000:
			base.Op = OpECALL
		case imm == 0x001:
			base.Op = OpEBREAK
		case imm == 0x302:
			base.Op = OpMRET
		case imm == 0x102:
			base.Op = OpSRET
		case imm == 0x105:
			base.Op = OpWFI
		case funct7(w) == 0x09:
			base.Op = OpSFENCEVMA
			base.Rs1, base.Rs2 = rs1(w), rs2(w)
		default:
			return Inst{}, ErrUndecodable{w}
		}
		return base, nil
	}
	base.Imm = bits.Cut(w, 20, 31) // CSR index
	switch f3 {
	case 0x1:
		base.Op = OpCSRRW
	case 0x2:
		base.Op = OpCSRRS
	case 0x3:
		base.Op = OpCSRRC
	case 0x5:
		base.Op = OpCSRRWI
	case 0x6:
		base.Op = OpCSRRSI
	case 0x7:
		base.Op = OpCSRRCI
	default:
		return Inst{}, ErrUndecodable{w}
	}
	return base, nil
}

func decodeFence(w uint32, f3 uint8) (Inst, error) {
	switch f3 {
	case 0x0:
		return Inst{Op: OpFENCE, Format: FormatI, Raw: w}, nil
	case 0x1:
		return Inst{Op: OpFENCEI, Format: FormatI, Raw: w}, nil
	case 0x2:
		if immI(w)&0xfff == 0x004 {
			return Inst{Op: OpCBOZERO, Format: FormatI, Raw: w, Rs1: rs1(w)}, nil
		}
	}
	return Inst{}, ErrUndecodable{w}
}

func decodeAtomic(w uint32, f3 uint8) (Inst, error) {
	if f3 != 0x2 {
		return Inst{}, ErrUndecodable{w}
	}
	base := Inst{Format: FormatAtomic, Raw: w, Rd: rd(w), Rs1: rs1(w), Rs2: rs2(w), Funct3: f3}
	switch funct5(w) {
	case 0x02:
		base.Op = OpLRW
	case 0x03:
		base.Op = OpSCW
	case 0x01:
		base.Op = OpAMOSWAPW
	case 0x00:
		base.Op = OpAMOADDW
	case 0x0C:
		base.Op = OpAMOANDW
	case 0x08:
		base.Op = OpAMOORW
	case 0x04:
		base.Op = OpAMOXORW
	case 0x14:
		base.Op = OpAMOMAXW
	case 0x10:
		base.Op = OpAMOMINW
	case 0x18:
		base.Op = OpAMOMINUW
	case 0x1C:
		base.Op = OpAMOMAXUW
	default:
		return Inst{}, ErrUndecodable{w}
	}
	return base, nil
}

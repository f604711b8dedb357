/*
rv32ima CSR file.

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

import "github.com/rcornwell/rv32ima/emu/bits"

// CSR indexes used by this core. Only these are live; everything else in
// the 4096-entry space traps as an illegal instruction.
const (
	csrSstatus  uint16 = 0x100
	csrSie      uint16 = 0x104
	csrStvec    uint16 = 0x105
	csrSenvcfg  uint16 = 0x10A
	csrSscratch uint16 = 0x140
	csrSepc     uint16 = 0x141
	csrScause   uint16 = 0x142
	csrStval    uint16 = 0x143
	csrSip      uint16 = 0x144
	csrSatp     uint16 = 0x180
	csrMstatus  uint16 = 0x300
	csrMisa     uint16 = 0x301
	csrMedeleg  uint16 = 0x302
	csrMideleg  uint16 = 0x303
	csrMie      uint16 = 0x304
	csrMtvec    uint16 = 0x305
	csrMscratch uint16 = 0x340
	csrMepc     uint16 = 0x341
	csrMcause   uint16 = 0x342
	csrMtval    uint16 = 0x343
	csrMip      uint16 = 0x344
	csrTime     uint16 = 0xC01
	csrTimeh    uint16 = 0xC81
	csrMvendor  uint16 = 0xF11
	csrMarchid  uint16 = 0xF12
	csrMimpid   uint16 = 0xF13
	csrMhartid  uint16 = 0xF14
	csrMconfig  uint16 = 0xF15
)

// mstatus/sstatus field bit positions, per spec.md 4.5.
const (
	bitSIE  uint = 1
	bitMIE  uint = 3
	bitSPIE uint = 5
	bitMPIE uint = 7
	bitSPP  uint = 8
	loMPP   uint = 11
	hiMPP   uint = 12
	bitSUM  uint = 18
	bitMXR  uint = 19
)

// mie/mip field bit positions.
const (
	bitSTIE uint = 5
	bitMTIE uint = 7
	bitSTIP uint = 5
	bitMTIP uint = 7
)

// satp field bit ranges.
const (
	loPPN, hiPPN   = 0, 21
	loASID, hiASID = 22, 30
	bitSATPMode    = 31
)

const (
	sstatusMask = 1<<bitSIE | 1<<bitSPIE | 1<<bitSPP | 1<<bitSUM | 1<<bitMXR
	sieMask     = uint32(1) << bitSTIE
	sipMask     = uint32(1) << bitSTIP
)

// CSRFile holds every named control/status register. mstatus/sstatus,
// mie/sie and mip/sip share a single backing word each (they are masked
// views over the same storage, per spec.md 4.5 and DESIGN NOTES); satp is
// its own register with typed field accessors.
type CSRFile struct {
	mstatus uint32
	mie     uint32
	mip     uint32
	satp    uint32
	scalar  map[uint16]uint32
}

func newCSRFile() *CSRFile {
	f := &CSRFile{scalar: make(map[uint16]uint32)}
	for _, idx := range []uint16{
		csrStvec, csrSenvcfg, csrSscratch, csrSepc, csrScause, csrStval,
		csrMisa, csrMedeleg, csrMideleg, csrMtvec, csrMscratch, csrMepc,
		csrMcause, csrMtval, csrTime, csrTimeh, csrMvendor, csrMarchid,
		csrMimpid, csrMhartid, csrMconfig,
	} {
		f.scalar[idx] = 0
	}
	f.scalar[csrMisa] = 0x40141101 // RV32IMA, S+U modes
	f.scalar[csrMvendor] = 0x0052_5630 // arbitrary nonzero vendor id ("RV0")
	return f
}

func (f *CSRFile) defined(idx uint16) bool {
	switch idx {
	case csrSstatus, csrSie, csrSip, csrSatp, csrMstatus, csrMie, csrMip:
		return true
	default:
		_, ok := f.scalar[idx]
		return ok
	}
}

// Read returns the value seen by a guest CSR* instruction at idx, or an
// error if idx is not a live register (illegal-instruction trap material).
func (f *CSRFile) Read(idx uint16) (uint32, error) {
	switch idx {
	case csrMstatus:
		return f.mstatus, nil
	case csrSstatus:
		return f.mstatus & sstatusMask, nil
	case csrMie:
		return f.mie, nil
	case csrSie:
		return f.mie & sieMask, nil
	case csrMip:
		return f.mip, nil
	case csrSip:
		return f.mip & sipMask, nil
	case csrSatp:
		return f.satp, nil
	}
	if v, ok := f.scalar[idx]; ok {
		return v, nil
	}
	return 0, errIllegalCSR{idx}
}

// Write stores value at idx, masking writes to shared-storage views to only
// the bits that view owns. Returns whether satp actually changed value;
// the fetch loop does not use this result, it compares satp with the value
// it last saw to decide when to invalidate the MMU's translation
// accelerator.
func (f *CSRFile) Write(idx uint16, value uint32) (satpChanged bool, err error) {
	switch idx {
	case csrMstatus:
		f.mstatus = value
	case csrSstatus:
		f.mstatus = (f.mstatus &^ uint32(sstatusMask)) | (value & sstatusMask)
	case csrMie:
		f.mie = value
	case csrSie:
		f.mie = (f.mie &^ sieMask) | (value & sieMask)
	case csrMip:
		f.mip = value
	case csrSip:
		f.mip = (f.mip &^ sipMask) | (value & sipMask)
	case csrSatp:
		if f.satp != value {
			satpChanged = true
		}
		f.satp = value
	default:
		if _, ok := f.scalar[idx]; !ok {
			return false, errIllegalCSR{idx}
		}
		f.scalar[idx] = value
	}
	return satpChanged, nil
}

type errIllegalCSR struct{ idx uint16 }

func (e errIllegalCSR) Error() string { return "cpu: illegal CSR index" }

// Typed field accessors, used internally by the trap engine and MMU instead
// of routing through Read/Write (which exist for guest CSR* instructions
// and enforce the illegal-CSR check).

func (f *CSRFile) MIE() bool  { return bits.GetBit(f.mstatus, bitMIE) == 1 }
func (f *CSRFile) SIE() bool  { return bits.GetBit(f.mstatus, bitSIE) == 1 }
func (f *CSRFile) MPIE() bool { return bits.GetBit(f.mstatus, bitMPIE) == 1 }
func (f *CSRFile) SPIE() bool { return bits.GetBit(f.mstatus, bitSPIE) == 1 }
func (f *CSRFile) SPP() uint8 { return uint8(bits.GetBit(f.mstatus, bitSPP)) }
func (f *CSRFile) MPP() uint8 { return uint8(bits.Cut(f.mstatus, loMPP, hiMPP)) }
func (f *CSRFile) SUM() bool  { return bits.GetBit(f.mstatus, bitSUM) == 1 }
func (f *CSRFile) MXR() bool  { return bits.GetBit(f.mstatus, bitMXR) == 1 }

func (f *CSRFile) SetMIE(v bool)  { f.mstatus = bits.SetBit(f.mstatus, bitMIE, v) }
func (f *CSRFile) SetSIE(v bool)  { f.mstatus = bits.SetBit(f.mstatus, bitSIE, v) }
func (f *CSRFile) SetMPIE(v bool) { f.mstatus = bits.SetBit(f.mstatus, bitMPIE, v) }
func (f *CSRFile) SetSPIE(v bool) { f.mstatus = bits.SetBit(f.mstatus, bitSPIE, v) }
func (f *CSRFile) SetSPP(v uint8) { f.mstatus = bits.SetBit(f.mstatus, bitSPP, v != 0) }
func (f *CSRFile) SetMPP(v uint8) { f.mstatus = bits.Put(f.mstatus, loMPP, hiMPP, uint32(v)) }

func (f *CSRFile) MTIE() bool { return bits.GetBit(f.mie, bitMTIE) == 1 }
func (f *CSRFile) STIE() bool { return bits.GetBit(f.mie, bitSTIE) == 1 }
func (f *CSRFile) MTIP() bool { return bits.GetBit(f.mip, bitMTIP) == 1 }
func (f *CSRFile) STIP() bool { return bits.GetBit(f.mip, bitSTIP) == 1 }

func (f *CSRFile) SetMTIP(v bool) { f.mip = bits.SetBit(f.mip, bitMTIP, v) }
func (f *CSRFile) SetSTIP(v bool) { f.mip = bits.SetBit(f.mip, bitSTIP, v) }

func (f *CSRFile) SatpMode() uint32 { return bits.GetBit(f.satp, bitSATPMode) }
func (f *CSRFile) SatpASID() uint32 { return bits.Cut(f.satp, loASID, hiASID) }
func (f *CSRFile) SatpPPN() uint32  { return bits.Cut(f.satp, loPPN, hiPPN) }

func (f *CSRFile) MTVEC() uint32    { return f.scalar[csrMtvec] }
func (f *CSRFile) STVEC() uint32    { return f.scalar[csrStvec] }
func (f *CSRFile) MEDELEG() uint32  { return f.scalar[csrMedeleg] }
func (f *CSRFile) MIDELEG() uint32  { return f.scalar[csrMideleg] }

func (f *CSRFile) SetMEPC(v uint32)   { f.scalar[csrMepc] = v }
func (f *CSRFile) MEPC() uint32       { return f.scalar[csrMepc] }
func (f *CSRFile) SetSEPC(v uint32)   { f.scalar[csrSepc] = v }
func (f *CSRFile) SEPC() uint32       { return f.scalar[csrSepc] }
func (f *CSRFile) SetMCAUSE(v uint32) { f.scalar[csrMcause] = v }
func (f *CSRFile) SetSCAUSE(v uint32) { f.scalar[csrScause] = v }
func (f *CSRFile) SetMTVAL(v uint32)  { f.scalar[csrMtval] = v }
func (f *CSRFile) SetSTVAL(v uint32)  { f.scalar[csrStval] = v }

func (f *CSRFile) SetTime(lo, hi uint32) {
	f.scalar[csrTime] = lo
	f.scalar[csrTimeh] = hi
}

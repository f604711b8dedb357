package cpu

import "testing"

func csrInst(funct3, csr, rs1, rd uint32) uint32 {
	return encodeI(csr, rs1, funct3, rd, 0b1110011)
}

func csrrw(rd, csr, rs1 uint32) uint32  { return csrInst(0x1, csr, rs1, rd) }
func csrrs(rd, csr, rs1 uint32) uint32  { return csrInst(0x2, csr, rs1, rd) }
func csrrc(rd, csr, rs1 uint32) uint32  { return csrInst(0x3, csr, rs1, rd) }
func csrrwi(rd, csr, zimm uint32) uint32 { return csrInst(0x5, csr, zimm, rd) }
func csrrsi(rd, csr, zimm uint32) uint32 { return csrInst(0x6, csr, zimm, rd) }
func csrrci(rd, csr, zimm uint32) uint32 { return csrInst(0x7, csr, zimm, rd) }

// TestCSRRWRoundTrip covers the plain write/read path through a scalar CSR.
func TestCSRRWRoundTrip(t *testing.T) {
	h, bus := newTestHart(t)
	h.X[1] = 0xABCD0000
	loadProgram(t, bus, ramBase,
		csrrw(2, uint32(csrMscratch), 1), // x2 = old mscratch (0), mscratch = x1
		csrrw(3, uint32(csrMscratch), 0), // x3 = mscratch, mscratch = x0 (0)
	)
	if err := h.Run(2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.X[2] != 0 {
		t.Errorf("x2 (old mscratch) = %#x, want 0", h.X[2])
	}
	if h.X[3] != 0xABCD0000 {
		t.Errorf("x3 (mscratch after first write) = %#x, want 0xABCD0000", h.X[3])
	}
	if h.CSR.scalar[csrMscratch] != 0 {
		t.Errorf("mscratch = %#x, want 0 after the second CSRRW", h.CSR.scalar[csrMscratch])
	}
}

// TestCSRRSZeroOperandSkipsWrite covers the real RISC-V rule that CSRRS
// (and CSRRC) with a zero rs1/zimm operand performs the read with no write
// side effect at all.
func TestCSRRSZeroOperandSkipsWrite(t *testing.T) {
	h, bus := newTestHart(t)
	h.CSR.scalar[csrMscratch] = 0x11111111
	h.X[5] = 0
	loadProgram(t, bus, ramBase, csrrs(1, uint32(csrMscratch), 5))
	if err := h.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.X[1] != 0x11111111 {
		t.Errorf("x1 = %#x, want 0x11111111 (the read still happens)", h.X[1])
	}
	if h.CSR.scalar[csrMscratch] != 0x11111111 {
		t.Errorf("mscratch = %#x, want unchanged", h.CSR.scalar[csrMscratch])
	}
}

// TestCSRRSSetsBits covers a nonzero CSRRS operand actually oring in bits.
func TestCSRRSSetsBits(t *testing.T) {
	h, bus := newTestHart(t)
	h.CSR.scalar[csrMscratch] = 0x0000F0F0
	h.X[5] = 0x0000000F
	loadProgram(t, bus, ramBase, csrrs(0, uint32(csrMscratch), 5))
	if err := h.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.CSR.scalar[csrMscratch] != 0x0000F0FF {
		t.Errorf("mscratch = %#x, want 0x0000F0FF", h.CSR.scalar[csrMscratch])
	}
}

// TestCSRRCClearsBits covers CSRRC's and-not semantics.
func TestCSRRCClearsBits(t *testing.T) {
	h, bus := newTestHart(t)
	h.CSR.scalar[csrMscratch] = 0xFFFFFFFF
	h.X[5] = 0x0000FFFF
	loadProgram(t, bus, ramBase, csrrc(0, uint32(csrMscratch), 5))
	if err := h.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.CSR.scalar[csrMscratch] != 0xFFFF0000 {
		t.Errorf("mscratch = %#x, want 0xFFFF0000", h.CSR.scalar[csrMscratch])
	}
}

// TestCSRImmediateForms covers CSRRWI/CSRRSI/CSRRCI reading the 5-bit zimm
// out of the rs1 field slot rather than a register.
func TestCSRImmediateForms(t *testing.T) {
	h, bus := newTestHart(t)
	loadProgram(t, bus, ramBase,
		csrrwi(0, uint32(csrMscratch), 0x1F),
		csrrsi(1, uint32(csrMscratch), 0x00),
		csrrci(0, uint32(csrMscratch), 0x0F),
	)
	if err := h.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.X[1] != 0x1F {
		t.Errorf("x1 = %#x, want 0x1F", h.X[1])
	}
	if h.CSR.scalar[csrMscratch] != 0x10 {
		t.Errorf("mscratch = %#x, want 0x10 after clearing the low nibble", h.CSR.scalar[csrMscratch])
	}
}

// TestCSRIllegalIndexTraps covers an undefined CSR index raising
// ILLEGAL_INSTRUCTION rather than panicking or silently no-opping.
func TestCSRIllegalIndexTraps(t *testing.T) {
	h, bus := newTestHart(t)
	const trapVec = ramBase + 0x2000
	h.CSR.scalar[csrMtvec] = trapVec
	loadProgram(t, bus, ramBase, csrrw(1, 0x7FF, 0)) // 0x7FF is not a live CSR
	if err := h.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.PC != trapVec {
		t.Fatalf("pc = %#x, want trap vector %#x after an illegal CSR access", h.PC, trapVec)
	}
	if h.CSR.scalar[csrMcause] != uint32(2) { // trap.IllegalInstruction
		t.Errorf("mcause = %d, want 2 (illegal instruction)", h.CSR.scalar[csrMcause])
	}
}

// TestSstatusMasksToOwnedBits covers the sstatus shared-storage view only
// exposing/accepting the bits it owns out of mstatus.
func TestSstatusMasksToOwnedBits(t *testing.T) {
	h, bus := newTestHart(t)
	h.CSR.SetMIE(true) // an mstatus bit sstatus does not own
	loadProgram(t, bus, ramBase, csrrs(1, uint32(csrSstatus), 0))
	if err := h.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.X[1]&(1<<bitMIE) != 0 {
		t.Errorf("sstatus read exposed MIE, want it masked out: %#x", h.X[1])
	}
}

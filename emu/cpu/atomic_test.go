package cpu

import "testing"

func amo(funct5 uint32, rd, rs1, rs2 uint32) uint32 {
	return encodeR(funct5<<2, rs2, rs1, 0x2, rd, 0b0101111)
}

func amoswapw(rd, rs1, rs2 uint32) uint32 { return amo(0x01, rd, rs1, rs2) }
func amoaddw(rd, rs1, rs2 uint32) uint32  { return amo(0x00, rd, rs1, rs2) }
func amoandw(rd, rs1, rs2 uint32) uint32  { return amo(0x0C, rd, rs1, rs2) }
func amoorw(rd, rs1, rs2 uint32) uint32   { return amo(0x08, rd, rs1, rs2) }
func amoxorw(rd, rs1, rs2 uint32) uint32  { return amo(0x04, rd, rs1, rs2) }
func amomaxw(rd, rs1, rs2 uint32) uint32  { return amo(0x14, rd, rs1, rs2) }
func amominw(rd, rs1, rs2 uint32) uint32  { return amo(0x10, rd, rs1, rs2) }
func amomaxuw(rd, rs1, rs2 uint32) uint32 { return amo(0x1C, rd, rs1, rs2) }
func amominuw(rd, rs1, rs2 uint32) uint32 { return amo(0x18, rd, rs1, rs2) }

func TestAMOSWAPW(t *testing.T) {
	h, bus := newTestHart(t)
	const addr = ramBase + 0x1000
	bus.WriteU32(addr, 111)
	h.X[10], h.X[5] = addr, 222
	loadProgram(t, bus, ramBase, amoswapw(1, 10, 5))
	if err := h.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.X[1] != 111 {
		t.Errorf("rd = %d, want 111 (pre-op value)", h.X[1])
	}
	v, _ := bus.ReadU32(addr)
	if v != 222 {
		t.Errorf("mem = %d, want 222", v)
	}
}

func TestAMOADDW(t *testing.T) {
	h, bus := newTestHart(t)
	const addr = ramBase + 0x1000
	bus.WriteU32(addr, 10)
	h.X[10], h.X[5] = addr, 32
	loadProgram(t, bus, ramBase, amoaddw(1, 10, 5))
	if err := h.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.X[1] != 10 {
		t.Errorf("rd = %d, want 10 (pre-op value)", h.X[1])
	}
	v, _ := bus.ReadU32(addr)
	if v != 42 {
		t.Errorf("mem = %d, want 42", v)
	}
}

func TestAMOBitwiseFamily(t *testing.T) {
	tests := []struct {
		name string
		enc  func(rd, rs1, rs2 uint32) uint32
		mem  uint32
		reg  uint32
		want uint32
	}{
		{"AND", amoandw, 0xFF00FF00, 0x0F0F0F0F, 0x0F000F00},
		{"OR", amoorw, 0xFF00FF00, 0x000000FF, 0xFF00FFFF},
		{"XOR", amoxorw, 0xFF00FF00, 0xFFFFFFFF, 0x00FF00FF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, bus := newTestHart(t)
			const addr = ramBase + 0x1000
			bus.WriteU32(addr, tc.mem)
			h.X[10], h.X[5] = addr, tc.reg
			loadProgram(t, bus, ramBase, tc.enc(1, 10, 5))
			if err := h.Run(1); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if h.X[1] != tc.mem {
				t.Errorf("rd = %#x, want pre-op value %#x", h.X[1], tc.mem)
			}
			v, _ := bus.ReadU32(addr)
			if v != tc.want {
				t.Errorf("mem = %#x, want %#x", v, tc.want)
			}
		})
	}
}

func TestAMOMinMaxSignedAndUnsigned(t *testing.T) {
	tests := []struct {
		name string
		enc  func(rd, rs1, rs2 uint32) uint32
		mem  uint32
		reg  uint32
		want uint32
	}{
		{"MAX signed picks larger signed", amomaxw, 0xFFFFFFFF /* -1 */, 5, 5},
		{"MIN signed picks smaller signed", amominw, 0xFFFFFFFF /* -1 */, 5, 0xFFFFFFFF},
		{"MAXU unsigned picks larger bit pattern", amomaxuw, 0xFFFFFFFF, 5, 0xFFFFFFFF},
		{"MINU unsigned picks smaller bit pattern", amominuw, 0xFFFFFFFF, 5, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, bus := newTestHart(t)
			const addr = ramBase + 0x1000
			bus.WriteU32(addr, tc.mem)
			h.X[10], h.X[5] = addr, tc.reg
			loadProgram(t, bus, ramBase, tc.enc(1, 10, 5))
			if err := h.Run(1); err != nil {
				t.Fatalf("Run: %v", err)
			}
			v, _ := bus.ReadU32(addr)
			if v != tc.want {
				t.Errorf("mem = %#x, want %#x", v, tc.want)
			}
		})
	}
}

// TestLRWThenUnrelatedStoreKeepsReservation covers that a store to a word
// other than the one LR.W reserved leaves the reservation in place, so the
// following SC.W to the reserved word succeeds (invariant 7,
// address-sensitive case).
func TestLRWThenUnrelatedStoreKeepsReservation(t *testing.T) {
	h, bus := newTestHart(t)
	const addr = ramBase + 0x1000
	const other = ramBase + 0x1004
	bus.WriteU32(addr, 7)
	bus.WriteU32(other, 0)
	h.X[10], h.X[11], h.X[3] = addr, other, 99

	lrw := func(rd, rs1 uint32) uint32 { return encodeR(0x02<<2, 0, rs1, 0x2, rd, 0b0101111) }
	scw := func(rd, rs1, rs2 uint32) uint32 { return encodeR(0x03<<2, rs2, rs1, 0x2, rd, 0b0101111) }
	sw := func(rs1, rs2 uint32) uint32 { return encodeR(0x00, rs2, rs1, 0x2, 0, 0b0100011) }

	loadProgram(t, bus, ramBase, lrw(1, 10), sw(11, 3), scw(2, 10, 3))
	if err := h.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.X[2] != 0 {
		t.Errorf("sc.w after an intervening unrelated store = %d, want 0 (success)", h.X[2])
	}
}

package decoder

import "testing"

// encodeI builds an I-type word: imm[11:0] rs1 funct3 rd opcode.
func encodeI(imm uint32, rs1, funct3, rd, opcode uint8) uint32 {
	return (imm&0xfff)<<20 | uint32(rs1)<<15 | uint32(funct3)<<12 | uint32(rd)<<7 | uint32(opcode)
}

func encodeR(funct7 uint8, rs2, rs1, funct3, rd, opcode uint8) uint32 {
	return uint32(funct7)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(funct3)<<12 | uint32(rd)<<7 | uint32(opcode)
}

func TestDecodeADDI(t *testing.T) {
	// ADDI x1, x0, 5
	w := encodeI(5, 0, 0x0, 1, 0b0010011)
	inst, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Op != OpADDI || inst.Rd != 1 || inst.Rs1 != 0 || inst.Imm != 5 {
		t.Errorf("got %+v", inst)
	}
}

func TestDecodeNegativeImmediate(t *testing.T) {
	// ADDI x2, x1, -1
	w := encodeI(0xfff, 1, 0x0, 2, 0b0010011)
	inst, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Imm != 0xffffffff {
		t.Errorf("Imm = %#x, want 0xffffffff", inst.Imm)
	}
}

func TestDecodeADD(t *testing.T) {
	w := encodeR(0x00, 2, 1, 0x0, 3, 0b0110011)
	inst, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Op != OpADD {
		t.Errorf("Op = %v, want OpADD", inst.Op)
	}
}

func TestDecodeDIV(t *testing.T) {
	w := encodeR(0x01, 2, 1, 0x4, 3, 0b0110011)
	inst, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Op != OpDIV {
		t.Errorf("Op = %v, want OpDIV", inst.Op)
	}
}

func TestDecodeIsPure(t *testing.T) {
	w := encodeI(5, 0, 0x0, 1, 0b0010011)
	a, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := Decode(w) // second call should hit the LRU memo
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if a != b {
		t.Errorf("decode(w) not stable across calls: %+v != %+v", a, b)
	}
}

func TestDecodeUndecodable(t *testing.T) {
	if _, err := Decode(0x7f); err == nil {
		t.Errorf("expected an error for a reserved opcode")
	}
}

func TestBranchAndJumpTagMayJump(t *testing.T) {
	beq := encodeI(0, 0, 0x0, 0, 0b1100011) // funct3=0 => BEQ, imm bits ignored here
	inst, err := Decode(beq)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !inst.MayJump {
		t.Errorf("BEQ should be tagged MayJump")
	}
	jal := uint32(0b1101111) // JAL x0, 0
	inst, err = Decode(jal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !inst.MayJump {
		t.Errorf("JAL should be tagged MayJump")
	}
}

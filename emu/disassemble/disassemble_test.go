package disassemble

import (
	"strings"
	"testing"

	"github.com/rcornwell/rv32ima/emu/decoder"
)

func decodeOrFatal(t *testing.T, w uint32) decoder.Inst {
	t.Helper()
	inst, err := decoder.Decode(w)
	if err != nil {
		t.Fatalf("Decode(%#08x): %v", w, err)
	}
	return inst
}

func TestDisassembleADDI(t *testing.T) {
	// addi a0, zero, 5
	w := uint32(5)<<20 | 0<<15 | 0<<12 | 10<<7 | 0b0010011
	got := Disassemble(decodeOrFatal(t, w), 0x8000_0000)
	if !strings.HasPrefix(got, "addi") || !strings.Contains(got, "a0") || !strings.Contains(got, "zero") {
		t.Errorf("Disassemble = %q, want an addi mnemonic naming a0 and zero", got)
	}
}

func TestDisassembleBranchResolvesTarget(t *testing.T) {
	// beq a0, a1, +8
	w := (uint32(8)>>12&1)<<31 | (uint32(8)>>5&0x3F)<<25 | 11<<20 | 10<<15 | 0<<12 | (uint32(8)>>1&0xF)<<8 | (uint32(8)>>11&1)<<7 | 0b1100011
	got := Disassemble(decodeOrFatal(t, w), 0x8000_0000)
	if !strings.Contains(got, "80000008") {
		t.Errorf("Disassemble = %q, want the resolved branch target 0x80000008", got)
	}
}

func TestDisassembleLoadShowsOffsetAndBase(t *testing.T) {
	// lw a0, 4(sp)
	w := uint32(4)<<20 | 2<<15 | 0x2<<12 | 10<<7 | 0b0000011
	got := Disassemble(decodeOrFatal(t, w), 0)
	if !strings.HasPrefix(got, "lw") || !strings.Contains(got, "(sp)") {
		t.Errorf("Disassemble = %q, want a lw of the form \"lw a0, 4(sp)\"", got)
	}
}

func TestDisassembleUndecodableWordFallsBackToWordLiteral(t *testing.T) {
	got := Disassemble(decoder.Inst{Op: decoder.OpUnknown, Raw: 0xFFFFFFFF}, 0)
	if !strings.HasPrefix(got, ".word") {
		t.Errorf("Disassemble = %q, want a .word fallback", got)
	}
}

func TestDisassembleSystemInstructionsHaveNoOperands(t *testing.T) {
	got := Disassemble(decoder.Inst{Op: decoder.OpECALL}, 0)
	if got != "ecall" {
		t.Errorf("Disassemble(ECALL) = %q, want \"ecall\"", got)
	}
}

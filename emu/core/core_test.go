package core

import (
	"testing"
	"time"

	"github.com/rcornwell/rv32ima/emu/cpu"
	"github.com/rcornwell/rv32ima/emu/memory"
)

func newTestCore(t *testing.T) (*Core, *memory.Bus) {
	t.Helper()
	bus := memory.NewBus()
	bus.MapRAM("ram", 0x8000_0000, 0x10000)
	h := cpu.New(bus, 0x8000_0000)
	return New(h), bus
}

func encodeI(imm, rs1, funct3, rd, opcode uint32) uint32 {
	return (imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeJ(imm int32, rd, opcode uint32) uint32 {
	u := uint32(imm)
	return (u>>20&1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&1)<<20 | (u>>12&0xFF)<<12 | rd<<7 | opcode
}

// selfLoop is jal x0, 0: a guest idiom for an idle spin.
func selfLoop() uint32 { return encodeJ(0, 0, 0b1101111) }

// countingLoop increments x2 every iteration and jumps back to itself, so a
// test can tell whether the hart is actually retiring instructions.
func countingLoop(at uint32, bus *memory.Bus) {
	bus.WriteU32(at, encodeI(1, 2, 0x0, 2, 0b0010011))   // addi x2, x2, 1
	bus.WriteU32(at+4, encodeJ(-4, 0, 0b1101111))        // jal x0, -4
}

func TestStartStopReturnsPromptly(t *testing.T) {
	c, bus := newTestCore(t)
	if err := bus.WriteU32(0x8000_0000, selfLoop()); err != nil {
		t.Fatalf("seed program: %v", err)
	}
	c.Start()
	time.Sleep(10 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestPauseStopsRetirement(t *testing.T) {
	c, bus := newTestCore(t)
	countingLoop(0x8000_0000, bus)
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Pause()
	time.Sleep(5 * time.Millisecond)
	x2AfterPause := c.Hart.X[2]
	time.Sleep(20 * time.Millisecond)
	if c.Hart.X[2] != x2AfterPause {
		t.Errorf("x2 advanced to %d after Pause, want it held at %d", c.Hart.X[2], x2AfterPause)
	}
	c.Stop()
}

/*
CPU: main hart fetch and execute loop.

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

// Package cpu implements the RV32IMA hart: registers, CSR file, trap
// engine and the fetch-decode-execute loop with its decoded-block cache
// (spec components C4, C5, C7, C8). It drives the MMU (emu/mmu) for every
// instruction fetch and every data access.
package cpu

import (
	"log/slog"
	"time"

	"github.com/rcornwell/rv32ima/emu/decoder"
	"github.com/rcornwell/rv32ima/emu/memory"
	"github.com/rcornwell/rv32ima/emu/mmu"
	"github.com/rcornwell/rv32ima/emu/trap"
)

// pollInterval is how many retired instructions separate timer/interrupt
// polls (spec.md 4.4 step 5).
const pollInterval = 2048

// block is a decoded straight-line run of instructions sharing one
// physical frame, plus the physical address it starts at.
type block struct {
	paddr uint32
	insts []decoder.Inst
}

// Hart is the single RV32IMA hart state: registers, mode, CSRs, and the
// caches the fetch loop owns directly (the MMU owns its own).
type Hart struct {
	PC   uint32
	X    [32]uint32
	Mode trap.Mode
	CSR  *CSRFile

	Bus *memory.Bus
	MMU *mmu.MMU

	// Clock returns host monotonic nanoseconds; overridable for tests.
	Clock func() uint64

	// TimebaseHz is the mtime tick frequency mtime/time are scaled to.
	TimebaseHz uint64

	// TimerSink, if set, receives the polled mtime value every poll (e.g. a
	// wired CLINT device), which compares it against mtimecmp and calls
	// NotifyTimerCompare back. With no sink, MTIP is only ever driven by an
	// explicit NotifyTimerCompare call (e.g. from a test).
	TimerSink func(mtime uint64)

	retired  uint64
	lastSatp uint32
	lastMode trap.Mode

	// blockCache maps a physical frame number to the blocks starting in it,
	// keyed by starting physical address within the frame.
	blockCache map[uint32]map[uint32]*block

	running bool
	wfi     bool

	// pcWritten is set by any instruction that explicitly assigns PC
	// (jumps, taken branches, trap entry/return), so the fetch loop knows
	// not to auto-advance by 4 even when the new value happens to equal
	// the old one (e.g. a deliberate `jal x0, 0` self-loop).
	pcWritten bool
}

// jumpTo explicitly sets PC and marks it as written for this instruction.
func (h *Hart) jumpTo(pc uint32) {
	h.PC = pc
	h.pcWritten = true
}

// New builds a hart wired to bus, with its own MMU, at the initial-state
// contract from spec.md 6: pc=ramBase, all x zero, mode=M, mstatus.MPP=M,
// misa/mvendorid preset by newCSRFile.
func New(bus *memory.Bus, ramBase uint32) *Hart {
	start := time.Now()
	h := &Hart{
		PC:         ramBase,
		Mode:       trap.ModeM,
		CSR:        newCSRFile(),
		Bus:        bus,
		MMU:        mmu.New(bus),
		Clock:      func() uint64 { return uint64(time.Since(start).Nanoseconds()) },
		TimebaseHz: 1_000_000,
		blockCache: make(map[uint32]map[uint32]*block),
	}
	h.CSR.SetMPP(uint8(trap.ModeM))
	h.MMU.SetStoreHook(h.invalidateFrame)
	h.Bus.SetWriteHook(func(addr uint32, length int) { h.invalidateFrame(addr >> 12) })
	return h
}

// invalidateFrame drops every cached block starting in physical frame.
func (h *Hart) invalidateFrame(frame uint32) {
	delete(h.blockCache, frame)
}

// setX writes v to register i, discarding writes to x0 (spec.md 3).
func (h *Hart) setX(i uint8, v uint32) {
	if i != 0 {
		h.X[i] = v
	}
}

// Run executes until n instructions have retired or a fatal (non-trap)
// error occurs; traps are handled internally and do not stop the loop.
func (h *Hart) Run(n uint64) error {
	h.running = true
	for n > 0 && h.running {
		done, err := h.step(n)
		if err != nil {
			return err
		}
		n -= done
	}
	return nil
}

// Stop clears the running flag; checked between instructions, matching the
// cooperative cancellation model of spec.md 5.
func (h *Hart) Stop() { h.running = false }

// step executes up to budget instructions of the decoded block at pc (or
// takes exactly one fetch trap) and reports how many instructions it retired
// or trapped on, implementing the fetch loop of spec.md 4.4.
func (h *Hart) step(budget uint64) (uint64, error) {
	if h.CSR.satp != h.lastSatp || h.Mode != h.lastMode {
		h.MMU.InvalidateAccel()
		h.lastSatp = h.CSR.satp
		h.lastMode = h.Mode
	}

	blk, err := h.fetchBlock(h.PC)
	if err != nil {
		h.handleFault(err)
		return 1, nil
	}

	var done uint64
	for _, inst := range blk.insts {
		if traceEnabled {
			slog.Debug("cpu: retire", "pc", h.PC, "op", inst.Op)
		}
		h.pcWritten = false
		err := h.execute(inst)
		h.retired++
		done++
		if err != nil {
			h.handleFault(err)
			break
		}
		if !h.pcWritten {
			h.PC += 4
		}
		if inst.MayJump {
			// A may-jump instruction always ends the block: re-fetch so a
			// changed pc (or mode/satp) is picked up fresh next iteration.
			break
		}
		if h.retired%pollInterval == 0 && h.pollTimer() {
			// A timer interrupt redirected pc out from under the rest of
			// this decoded block: stop executing it, the next step() call
			// re-fetches at the new pc.
			break
		}
		if done == budget {
			break
		}
	}
	if h.retired%pollInterval == 0 {
		h.pollTimer()
	}
	return done, nil
}

// handleFault converts a returned error into a taken trap. Only *trap.Error
// values are expected from fetch/execute; anything else is a programming
// bug and is wrapped as an illegal instruction rather than propagated,
// keeping the run loop's contract ("traps never stop it") intact.
func (h *Hart) handleFault(err error) {
	te, ok := err.(*trap.Error)
	if !ok {
		te = trap.New(trap.IllegalInstruction, h.PC)
	}
	h.TakeTrap(te.Cause, te.Tval)
}

// fetchBlock returns the decoded block starting at virtual address pc,
// decoding and caching it on a miss (spec.md 4.4 step 3, 4.8).
func (h *Hart) fetchBlock(pc uint32) (*block, error) {
	paddr, err := h.MMU.Translate(pc, h.Mode, mmu.AccessFetch, h.CSR)
	if err != nil {
		return nil, err
	}

	frame := paddr >> 12
	byFrame, ok := h.blockCache[frame]
	if !ok {
		byFrame = make(map[uint32]*block)
		h.blockCache[frame] = byFrame
	}
	if b, ok := byFrame[paddr]; ok {
		return b, nil
	}

	b, err := h.decodeBlock(paddr)
	if err != nil {
		return nil, err
	}
	byFrame[paddr] = b
	return b, nil
}

// decodeBlock decodes forward from the physical address paddr until the
// page boundary or a may-jump instruction (spec.md 4.4 step 3, 4.8).
func (h *Hart) decodeBlock(paddr uint32) (*block, error) {
	b := &block{paddr: paddr}
	p := paddr
	for {
		if p>>12 != paddr>>12 {
			break
		}
		word, err := h.Bus.ReadU32(p)
		if err != nil {
			return nil, trap.New(trap.AccessFault, p)
		}
		inst, err := decoder.Decode(word)
		if err != nil {
			inst = decoder.Inst{Op: decoder.OpUnknown, Raw: word, MayJump: true}
		}
		b.insts = append(b.insts, inst)
		p += 4
		if inst.MayJump {
			break
		}
	}
	return b, nil
}

// pollTimer samples the host clock, updates the CSR-visible mtime mirror,
// forwards it to a wired CLINT if any, and evaluates pending interrupts
// (spec.md 4.4 step 5, design note 9 on mtime's ticking source).
func (h *Hart) pollTimer() bool {
	ns := h.Clock()
	mtime := ns * h.TimebaseHz / 1_000_000_000
	h.CSR.SetTime(uint32(mtime), uint32(mtime>>32))
	if h.TimerSink != nil {
		h.TimerSink(mtime)
	}
	return h.evaluateInterrupts()
}

// NotifyTimerCompare lets an external CLINT model push MTIP directly,
// based on its own mtime/mtimecmp comparison, instead of duplicating that
// comparison inside the hart.
func (h *Hart) NotifyTimerCompare(pending bool) {
	h.CSR.SetMTIP(pending)
	h.evaluateInterrupts()
}

// evaluateInterrupts raises the highest-priority pending, enabled interrupt
// to TakeTrap, if any, and reports whether it raised one (the caller uses
// this to abandon a decoded block whose pc the trap may have overwritten).
// TakeTrap can still leave a raised interrupt untaken when the target
// mode's global interrupt enable masks it.
func (h *Hart) evaluateInterrupts() bool {
	if h.CSR.MTIP() && h.CSR.MTIE() {
		h.TakeTrap(trap.InterruptTimerM, 0)
		return true
	}
	if h.CSR.STIP() && h.CSR.STIE() {
		h.TakeTrap(trap.InterruptTimerS, 0)
		return true
	}
	return false
}

/*
Core rv32ima run-loop driver.

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

// Package core wires a Hart to its address space and devices and drives it
// continuously on its own goroutine (component A6), exposing the small
// control surface the CLI driver and the debug shell both need: start,
// stop, and single-step.
package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/rv32ima/emu/cpu"
)

// batchSize is how many instructions Run is asked to retire between control
// channel polls, balancing responsiveness against channel overhead.
const batchSize = 4096

// Command is a control message sent to a running Core.
type Command int

const (
	// CmdRun starts (or resumes) free-running execution.
	CmdRun Command = iota
	// CmdStop pauses execution; the hart's state remains inspectable.
	CmdStop
)

// Core drives one Hart continuously until told to stop.
type Core struct {
	Hart *cpu.Hart

	wg      sync.WaitGroup
	done    chan struct{}
	control chan Command
	running bool
}

// New builds a Core around an already-wired hart (bus, MMU and devices are
// the hart's and the bus's concern, not this package's).
func New(h *cpu.Hart) *Core {
	return &Core{
		Hart:    h,
		done:    make(chan struct{}),
		control: make(chan Command, 1),
	}
}

// Start runs the fetch loop on its own goroutine until Stop is called.
// Traps are handled internally by the hart and never stop the loop; only a
// non-trap (programming) error does, and that is logged rather than
// propagated, matching the teacher's "log and keep serving" run loop shape.
func (c *Core) Start() {
	c.wg.Add(1)
	c.running = true
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.done:
				c.Hart.Stop()
				slog.Info("core: shutdown")
				return
			case cmd := <-c.control:
				c.running = cmd == CmdRun
			default:
			}
			if !c.running {
				time.Sleep(time.Millisecond)
				continue
			}
			if err := c.Hart.Run(batchSize); err != nil {
				slog.Error("core: fatal run error", "err", err)
				c.running = false
			}
		}
	}()
}

// Stop halts the run-loop goroutine and waits (bounded) for it to exit.
func (c *Core) Stop() {
	close(c.done)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("core: timed out waiting for the hart to stop")
	}
}

// Pause suspends free-running execution without tearing down the goroutine,
// used by the debug shell to single-step.
func (c *Core) Pause() { c.control <- CmdStop }

// Resume re-enables free-running execution after Pause.
func (c *Core) Resume() { c.control <- CmdRun }

// Step retires exactly n instructions synchronously; the caller must have
// Paused first, since Step runs on the caller's own goroutine rather than
// the run-loop's.
func (c *Core) Step(n uint64) error {
	return c.Hart.Run(n)
}

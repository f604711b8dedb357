/*
rv32ima interactive debug shell.

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

// Package monitor implements the interactive debug shell (component A4):
// register/memory examine and deposit, single-stepping and disassembly on
// top of an emu/core.Core. Command dispatch follows the teacher's
// command/parser abbreviation-matching shape (each command matches on any
// unambiguous prefix of at least Min characters), generalized from
// command/command to this machine's register and memory model.
package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/rv32ima/emu/core"
	"github.com/rcornwell/rv32ima/emu/decoder"
	"github.com/rcornwell/rv32ima/emu/disassemble"
)

type cmd struct {
	Name    string
	Min     int
	Process func(args []string, c *core.Core) (quit bool, err error)
}

var cmdList = []cmd{
	{Name: "continue", Min: 1, Process: cmdContinue},
	{Name: "step", Min: 2, Process: cmdStep},
	{Name: "stop", Min: 3, Process: cmdStop},
	{Name: "registers", Min: 3, Process: cmdRegisters},
	{Name: "examine", Min: 2, Process: cmdExamine},
	{Name: "deposit", Min: 2, Process: cmdDeposit},
	{Name: "disassemble", Min: 4, Process: cmdDisassemble},
	{Name: "quit", Min: 1, Process: cmdQuit},
}

func match(word string) (*cmd, error) {
	word = strings.ToLower(word)
	var found *cmd
	for i := range cmdList {
		c := &cmdList[i]
		if len(word) < c.Min || !strings.HasPrefix(c.Name, word) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("ambiguous command %q", word)
		}
		found = c
	}
	if found == nil {
		return nil, fmt.Errorf("unknown command %q", word)
	}
	return found, nil
}

// ProcessCommand parses and runs one line of input, returning true if the
// shell should exit.
func ProcessCommand(line string, c *core.Core) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	command, err := match(fields[0])
	if err != nil {
		return false, err
	}
	return command.Process(fields[1:], c)
}

// CompleteCmd returns every command name matching the in-progress word, for
// liner's tab completion.
func CompleteCmd(line string) []string {
	word := strings.ToLower(line)
	var out []string
	for _, c := range cmdList {
		if strings.HasPrefix(c.Name, word) {
			out = append(out, c.Name)
		}
	}
	return out
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("not a hex address or value: %q", s)
	}
	return uint32(v), nil
}

func cmdContinue(_ []string, c *core.Core) (bool, error) {
	c.Resume()
	return false, nil
}

func cmdStop(_ []string, c *core.Core) (bool, error) {
	c.Pause()
	return false, nil
}

func cmdStep(args []string, c *core.Core) (bool, error) {
	n := uint64(1)
	if len(args) > 0 {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return false, fmt.Errorf("step count must be decimal: %q", args[0])
		}
		n = v
	}
	return false, c.Step(n)
}

func cmdQuit(_ []string, _ *core.Core) (bool, error) {
	return true, nil
}

func cmdRegisters(_ []string, c *core.Core) (bool, error) {
	h := c.Hart
	fmt.Printf("pc=%08x mode=%d\n", h.PC, h.Mode)
	for i := 0; i < 32; i += 4 {
		fmt.Printf("x%-2d=%08x x%-2d=%08x x%-2d=%08x x%-2d=%08x\n",
			i, h.X[i], i+1, h.X[i+1], i+2, h.X[i+2], i+3, h.X[i+3])
	}
	return false, nil
}

func cmdExamine(args []string, c *core.Core) (bool, error) {
	if len(args) < 1 {
		return false, errors.New("examine requires an address")
	}
	addr, err := parseUint32(args[0])
	if err != nil {
		return false, err
	}
	count := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return false, fmt.Errorf("count must be decimal: %q", args[1])
		}
		count = n
	}
	for i := 0; i < count; i++ {
		a := addr + uint32(i*4)
		v, err := c.Hart.Bus.ReadU32(a)
		if err != nil {
			return false, fmt.Errorf("examine %08x: %w", a, err)
		}
		fmt.Printf("%08x: %08x\n", a, v)
	}
	return false, nil
}

func cmdDeposit(args []string, c *core.Core) (bool, error) {
	if len(args) != 2 {
		return false, errors.New("deposit requires an address and a value")
	}
	addr, err := parseUint32(args[0])
	if err != nil {
		return false, err
	}
	value, err := parseUint32(args[1])
	if err != nil {
		return false, err
	}
	return false, c.Hart.Bus.WriteU32(addr, value)
}

func cmdDisassemble(args []string, c *core.Core) (bool, error) {
	addr := c.Hart.PC
	if len(args) > 0 {
		a, err := parseUint32(args[0])
		if err != nil {
			return false, err
		}
		addr = a
	}
	count := 10
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return false, fmt.Errorf("count must be decimal: %q", args[1])
		}
		count = n
	}
	for i := 0; i < count; i++ {
		a := addr + uint32(i*4)
		word, err := c.Hart.Bus.ReadU32(a)
		if err != nil {
			return false, fmt.Errorf("disassemble %08x: %w", a, err)
		}
		inst, derr := decoder.Decode(word)
		if derr != nil {
			fmt.Printf("%08x: %08x  .word %#08x\n", a, word, word)
			continue
		}
		fmt.Printf("%08x: %08x  %s\n", a, word, disassemble.Disassemble(inst, a))
	}
	return false, nil
}

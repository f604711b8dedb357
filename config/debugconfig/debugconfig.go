/*
rv32ima - Debug options configuration.

	Copyright 2024, Richard Cornwell

	Permission is hereby granted, free of charge, to any person obtaining a copy
	of this software and associated documentation files (the "Software"), to deal
	in the Software without restriction, including without limitation the rights
	to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
	copies of the Software, and to permit persons to whom the Software is
	furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in
	all copies or substantial portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
	IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
	FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
	AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
	LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
	OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
	SOFTWARE.
*/

// Package debugconfig wires the DEBUG config keyword to the per-subsystem
// Debug(name) error functions exposed by emu/cpu, emu/mmu and emu/decoder,
// the same dispatch-by-subsystem shape the teacher used for CHANNEL/CPU/TAPE.
package debugconfig

import (
	"errors"
	"fmt"
	"strings"

	config "github.com/rcornwell/rv32ima/config/configparser"
	"github.com/rcornwell/rv32ima/emu/cpu"
	"github.com/rcornwell/rv32ima/emu/decoder"
	"github.com/rcornwell/rv32ima/emu/mmu"
)

func init() {
	config.Register("DEBUG", setDebug)
}

var subsystems = map[string]func(string) error{
	"CPU":     cpu.Debug,
	"MMU":     mmu.Debug,
	"DECODER": decoder.Debug,
}

// setDebug dispatches each option's name as a flag to its subsystem: a
// config line of "DEBUG CPU=TRACE" or "DEBUG CPU=TRACE MMU=PAGEFAULT"
// enables the named flags in the cpu or mmu package; further
// comma-separated names after the flag are enabled in the same subsystem.
func setDebug(options []config.Option) error {
	if len(options) == 0 {
		return errors.New("debug requires at least one subsystem=flag option")
	}
	for _, opt := range options {
		set, ok := subsystems[strings.ToUpper(opt.Name)]
		if !ok {
			return fmt.Errorf("debug: unknown subsystem %q", opt.Name)
		}
		if opt.EqualOpt == "" {
			return fmt.Errorf("debug: %s requires =FLAG", opt.Name)
		}
		if err := set(strings.ToUpper(opt.EqualOpt)); err != nil {
			return err
		}
		for _, v := range opt.Value {
			if err := set(strings.ToUpper(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

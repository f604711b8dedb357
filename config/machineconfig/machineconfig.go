/*
rv32ima machine topology configuration.

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

// Package machineconfig registers the MEMORY, UART, CLINT, KERNEL, INITRD,
// TIMEBASE and MONITOR config keywords (component A2) and accumulates them
// into Settings, read once after config.LoadFile returns. Split from
// config/debugconfig since this describes machine topology rather than
// debug tracing, mirroring how the teacher splits DEBUG from its device
// model registrations.
package machineconfig

import (
	"fmt"
	"strconv"
	"strings"

	config "github.com/rcornwell/rv32ima/config/configparser"
)

// Settings holds every machine-topology option parsed from the config file,
// seeded with rv32ima's defaults.
var Settings = struct {
	MemSize    uint32
	UARTBase   uint32
	ClintBase  uint32
	Kernel     string
	Initrd     string
	TimebaseHz uint64
	MonitorTCP string // empty disables the remote monitor listener
}{
	MemSize:    64 << 20,
	UARTBase:   0x1000_0000,
	ClintBase:  0x0200_0000,
	TimebaseHz: 1_000_000,
}

func init() {
	config.Register("MEMORY", setMemory)
	config.Register("UART", setUART)
	config.Register("CLINT", setClint)
	config.Register("KERNEL", setKernel)
	config.Register("INITRD", setInitrd)
	config.Register("TIMEBASE", setTimebase)
	config.Register("MONITOR", setMonitor)
}

func requireEqual(opts []config.Option, keyword string) (string, error) {
	if len(opts) != 1 || opts[0].EqualOpt == "" {
		return "", fmt.Errorf("%s requires a single name=value option", keyword)
	}
	return opts[0].EqualOpt, nil
}

func setMemory(opts []config.Option) error {
	v, err := requireEqual(opts, "memory")
	if err != nil {
		return err
	}
	return parseSize(v, &Settings.MemSize)
}

func setUART(opts []config.Option) error {
	v, err := requireEqual(opts, "uart")
	if err != nil {
		return err
	}
	return parseHex32(v, &Settings.UARTBase)
}

func setClint(opts []config.Option) error {
	v, err := requireEqual(opts, "clint")
	if err != nil {
		return err
	}
	return parseHex32(v, &Settings.ClintBase)
}

func setKernel(opts []config.Option) error {
	v, err := requireEqual(opts, "kernel")
	if err != nil {
		return err
	}
	Settings.Kernel = v
	return nil
}

func setInitrd(opts []config.Option) error {
	v, err := requireEqual(opts, "initrd")
	if err != nil {
		return err
	}
	Settings.Initrd = v
	return nil
}

func setTimebase(opts []config.Option) error {
	v, err := requireEqual(opts, "timebase")
	if err != nil {
		return err
	}
	hz, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("timebase must be decimal hz: %q", v)
	}
	Settings.TimebaseHz = hz
	return nil
}

func setMonitor(opts []config.Option) error {
	v, err := requireEqual(opts, "monitor")
	if err != nil {
		return err
	}
	Settings.MonitorTCP = v
	return nil
}

// parseSize accepts a decimal byte count with an optional K/M/G suffix.
func parseSize(s string, out *uint32) error {
	mult := uint64(1)
	s = strings.ToUpper(s)
	switch {
	case strings.HasSuffix(s, "G"):
		mult = 1 << 30
		s = strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "M"):
		mult = 1 << 20
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		mult = 1 << 10
		s = strings.TrimSuffix(s, "K")
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return fmt.Errorf("not a size: %q", s)
	}
	*out = uint32(n * mult)
	return nil
}

func parseHex32(s string, out *uint32) error {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("not a hex address: %q", s)
	}
	*out = uint32(n)
	return nil
}

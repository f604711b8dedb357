/*
rv32ima - RV32IMA emulator CLI driver.

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

// Command rv32ima boots a flat RISC-V kernel image under the emulator
// (component A3/A6), wiring memory, UART and CLINT onto the bus, then either
// runs free until a signal or drops into the interactive monitor shell.
// Structured like the teacher's root main.go: getopt flags, a config file
// loaded through self-registering packages, a goroutine-driven run loop, and
// signal-driven shutdown.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	config "github.com/rcornwell/rv32ima/config/configparser"
	"github.com/rcornwell/rv32ima/config/machineconfig"
	"github.com/rcornwell/rv32ima/emu/core"
	"github.com/rcornwell/rv32ima/emu/cpu"
	"github.com/rcornwell/rv32ima/emu/device/clint"
	"github.com/rcornwell/rv32ima/emu/device/uart"
	"github.com/rcornwell/rv32ima/emu/memory"
	"github.com/rcornwell/rv32ima/monitor"
	"github.com/rcornwell/rv32ima/util/logger"

	_ "github.com/rcornwell/rv32ima/config/debugconfig"
)

const ramBase = 0x8000_0000

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optKernel := getopt.StringLong("kernel", 'k', "", "Flat kernel image (overrides config KERNEL)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optMonitor := getopt.BoolLong("monitor", 'm', "Drop into the interactive monitor instead of free-running")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			slog.Error("rv32ima: create log file", "err", err)
			os.Exit(1)
		}
		logFile = f
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	debugOn := false
	slog.SetDefault(slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: level}, &debugOn)))

	if *optConfig != "" {
		if err := config.LoadFile(*optConfig); err != nil {
			slog.Error("rv32ima: load config", "err", err)
			os.Exit(1)
		}
	}
	if *optKernel != "" {
		machineconfig.Settings.Kernel = *optKernel
	}
	if machineconfig.Settings.Kernel == "" {
		slog.Error("rv32ima: no kernel image given (-kernel or config KERNEL=)")
		os.Exit(1)
	}

	bus := memory.NewBus()
	ram := bus.MapRAM("ram", ramBase, machineconfig.Settings.MemSize)
	if err := loadImage(ram, machineconfig.Settings.Kernel); err != nil {
		slog.Error("rv32ima: load kernel", "err", err)
		os.Exit(1)
	}
	if machineconfig.Settings.Initrd != "" {
		// An initrd is staged halfway into RAM, at ramBase + MemSize/2.
		initrdBase := ramBase + machineconfig.Settings.MemSize/2
		if err := loadImage(ram[initrdBase-ramBase:], machineconfig.Settings.Initrd); err != nil {
			slog.Error("rv32ima: load initrd", "err", err)
			os.Exit(1)
		}
	}

	console := uart.New("uart0", machineconfig.Settings.UARTBase, os.Stdin, os.Stdout)
	bus.MapDevice(console)

	h := cpu.New(bus, ramBase)
	h.TimebaseHz = machineconfig.Settings.TimebaseHz

	clintDev := clint.New(machineconfig.Settings.ClintBase, h.NotifyTimerCompare)
	bus.MapDevice(clintDev)
	h.TimerSink = clintDev.SetMtime

	c := core.New(h)
	c.Start()
	defer func() {
		console.Shutdown()
		clintDev.Shutdown()
	}()

	var monServer *monitor.Server
	if machineconfig.Settings.MonitorTCP != "" {
		s, err := monitor.Listen(machineconfig.Settings.MonitorTCP, c)
		if err != nil {
			slog.Error("rv32ima: start monitor listener", "err", err)
		} else {
			monServer = s
		}
	}

	if *optMonitor {
		c.Pause()
		monitor.ConsoleReader(c)
		c.Stop()
		if monServer != nil {
			monServer.Stop()
		}
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("rv32ima: shutting down")
	c.Stop()
	if monServer != nil {
		monServer.Stop()
	}
}

// loadImage reads a flat binary image into dst starting at offset 0.
func loadImage(dst []byte, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > len(dst) {
		data = data[:len(dst)]
	}
	copy(dst, data)
	return nil
}

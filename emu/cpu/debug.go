package cpu

import "fmt"

// traceEnabled gates the hart's verbose per-instruction slog output, toggled
// by the DEBUG CPU config keyword (see config/debugconfig).
var traceEnabled bool

// Debug enables a named CPU debug facility. TRACE logs every retired
// instruction's pc and opcode at slog.Debug level.
func Debug(name string) error {
	switch name {
	case "TRACE":
		traceEnabled = true
	default:
		return fmt.Errorf("cpu: unknown debug option %q", name)
	}
	return nil
}

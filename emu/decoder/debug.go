package decoder

import "fmt"

// missTrace gates a slog.Debug line on every undecodable word, toggled by
// the DEBUG DECODER config keyword (see config/debugconfig).
var missTrace bool

// Debug enables a named decoder debug facility. MISS logs every word that
// fails to decode.
func Debug(name string) error {
	switch name {
	case "MISS":
		missTrace = true
	default:
		return fmt.Errorf("decoder: unknown debug option %q", name)
	}
	return nil
}

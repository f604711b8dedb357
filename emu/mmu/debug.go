package mmu

import (
	"fmt"
	"log/slog"
)

// pageFaultTrace gates a slog.Debug line on every page fault raised by walk,
// toggled by the DEBUG MMU config keyword (see config/debugconfig).
var pageFaultTrace bool

// Debug enables a named MMU debug facility. PAGEFAULT logs every page fault
// that walk raises for an invalid PTE, with the faulting virtual address and
// cause; permission faults are not logged.
func Debug(name string) error {
	switch name {
	case "PAGEFAULT":
		pageFaultTrace = true
	default:
		return fmt.Errorf("mmu: unknown debug option %q", name)
	}
	return nil
}

func traceFault(vaddr uint32, cause string) {
	if pageFaultTrace {
		slog.Debug("mmu: page fault", "vaddr", vaddr, "cause", cause)
	}
}

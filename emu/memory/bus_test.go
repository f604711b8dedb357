package memory

import (
	"errors"
	"testing"

	"github.com/rcornwell/rv32ima/emu/device"
)

func newTestBus() *Bus {
	b := NewBus()
	b.MapRAM("ram", 0x8000_0000, 0x1000)
	return b
}

func TestReadWriteRoundTrip(t *testing.T) {
	b := newTestBus()
	if err := b.WriteU32(0x8000_0010, 0x01020304); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
	v, err := b.ReadU32(0x8000_0010)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if v != 0x01020304 {
		t.Errorf("ReadU32 = %#x, want 0x01020304", v)
	}
}

func TestInvalidAddress(t *testing.T) {
	b := newTestBus()
	if _, err := b.ReadU32(0x1234); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestOverlappingRegionsPanic(t *testing.T) {
	b := NewBus()
	b.MapRAM("ram", 0x1000, 0x1000)
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on overlapping region")
		}
	}()
	b.MapRAM("overlap", 0x1800, 0x100)
}

type fakeDevice struct {
	base, size uint32
	reg        uint8
}

func (f *fakeDevice) Name() string         { return "fake" }
func (f *fakeDevice) Base() uint32         { return f.base }
func (f *fakeDevice) Size() uint32         { return f.size }
func (f *fakeDevice) ReadByte(a uint32) uint8 { return f.reg }
func (f *fakeDevice) WriteByte(a uint32, v uint8) { f.reg = v }
func (f *fakeDevice) Shutdown()             {}

var _ device.Device = (*fakeDevice)(nil)

func TestDeviceRegion(t *testing.T) {
	b := NewBus()
	dev := &fakeDevice{base: 0x1000_0000, size: 0x100}
	b.MapDevice(dev)
	if err := b.WriteU8(0x1000_0000, 42); err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	v, err := b.ReadU8(0x1000_0000)
	if err != nil {
		t.Fatalf("ReadU8: %v", err)
	}
	if v != 42 {
		t.Errorf("ReadU8 = %d, want 42", v)
	}
}

func TestLoadReserveStoreConditional(t *testing.T) {
	b := newTestBus()
	addr := uint32(0x8000_0100)
	if err := b.WriteU32(addr, 1); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	v, _ := b.ReadU32(addr)
	b.LoadReserve(addr, v)

	ok, err := b.StoreConditional(addr, 2)
	if err != nil || !ok {
		t.Fatalf("first SC should succeed, got ok=%v err=%v", ok, err)
	}

	// Second SC without an intervening LR must fail (invariant 7).
	ok, err = b.StoreConditional(addr, 3)
	if err != nil || ok {
		t.Fatalf("second SC should fail, got ok=%v err=%v", ok, err)
	}

	got, _ := b.ReadU32(addr)
	if got != 2 {
		t.Errorf("memory = %d, want 2 (failed SC must not store)", got)
	}
}

func TestInterveningStoreClearsReservation(t *testing.T) {
	b := newTestBus()
	addr := uint32(0x8000_0200)
	b.LoadReserve(addr, 0)
	_ = b.WriteU8(addr, 7) // intervening store to the reserved word
	ok, _ := b.StoreConditional(addr, 99)
	if ok {
		t.Errorf("SC should fail after intervening store")
	}
}

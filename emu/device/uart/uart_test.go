package uart

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestReadDataReturnsReceivedByte(t *testing.T) {
	u := New("uart0", 0x1000_0000, strings.NewReader("A"), nil)
	defer u.Shutdown()

	deadline := time.After(time.Second)
	for {
		if u.ReadByte(0x1000_0000+regLSR)&1 != 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("rx byte never arrived")
		default:
		}
	}
	if got := u.ReadByte(0x1000_0000); got != 'A' {
		t.Errorf("ReadByte(data) = %d, want 'A'", got)
	}
}

func TestLSRReflectsEmptyQueue(t *testing.T) {
	u := New("uart0", 0x1000_0000, nil, nil)
	defer u.Shutdown()
	lsr := u.ReadByte(0x1000_0000 + regLSR)
	if lsr != lsrBase {
		t.Errorf("LSR = %#x, want %#x (TEMT|THRE, no rx pending)", lsr, lsrBase)
	}
}

func TestReadDataWhenEmptyReturnsZero(t *testing.T) {
	u := New("uart0", 0x1000_0000, nil, nil)
	defer u.Shutdown()
	if got := u.ReadByte(0x1000_0000); got != 0 {
		t.Errorf("ReadByte(data) on empty rx = %d, want 0", got)
	}
}

func TestWriteDataIsTransmitted(t *testing.T) {
	var buf bytes.Buffer
	u := New("uart0", 0x1000_0000, nil, &buf)
	u.WriteByte(0x1000_0000, 'Q')

	deadline := time.After(time.Second)
	for buf.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("write never reached the host writer")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	u.Shutdown()
	if buf.String() != "Q" {
		t.Errorf("host output = %q, want \"Q\"", buf.String())
	}
}

func TestNameBaseSize(t *testing.T) {
	u := New("com1", 0x1000_0000, nil, nil)
	defer u.Shutdown()
	if u.Name() != "com1" || u.Base() != 0x1000_0000 || u.Size() != Size {
		t.Errorf("Name/Base/Size = %q/%#x/%d", u.Name(), u.Base(), u.Size())
	}
}

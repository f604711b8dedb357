package bits

import "testing"

func TestCutAndPut(t *testing.T) {
	v := uint32(0xdeadbeef)
	if got := Cut(v, 0, 7); got != 0xef {
		t.Errorf("Cut low byte = %#x, want 0xef", got)
	}
	if got := Cut(v, 28, 31); got != 0xd {
		t.Errorf("Cut top nibble = %#x, want 0xd", got)
	}
	if got := Put(0, 8, 15, 0xff); got != 0xff00 {
		t.Errorf("Put = %#x, want 0xff00", got)
	}
}

func TestSignExtend(t *testing.T) {
	cases := []struct {
		v     uint32
		width uint
		want  uint32
	}{
		{0xfff, 12, 0xffffffff},
		{0x7ff, 12, 0x7ff},
		{0x800, 12, 0xfffff800},
		{0, 1, 0},
		{1, 1, 0xffffffff},
	}
	for _, c := range cases {
		if got := SignExtend(c.v, c.width); got != c.want {
			t.Errorf("SignExtend(%#x, %d) = %#x, want %#x", c.v, c.width, got, c.want)
		}
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	Write32(buf, 0x01020304)
	if got := Read32(buf); got != 0x01020304 {
		t.Errorf("Read32 = %#x, want 0x01020304", got)
	}
	if buf[0] != 0x04 || buf[3] != 0x01 {
		t.Errorf("Write32 did not store little-endian: %v", buf)
	}

	Write64(buf, 0x1122334455667788)
	if got := Read64(buf); got != 0x1122334455667788 {
		t.Errorf("Read64 = %#x, want 0x1122334455667788", got)
	}

	Write16(buf, 0xabcd)
	if got := Read16(buf); got != 0xabcd {
		t.Errorf("Read16 = %#x, want 0xabcd", got)
	}
}

func TestGetSetBit(t *testing.T) {
	v := uint32(0)
	v = SetBit(v, 3, true)
	if GetBit(v, 3) != 1 {
		t.Errorf("bit 3 should be set")
	}
	v = SetBit(v, 3, false)
	if GetBit(v, 3) != 0 {
		t.Errorf("bit 3 should be clear")
	}
}

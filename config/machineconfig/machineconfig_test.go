package machineconfig

import (
	"testing"

	config "github.com/rcornwell/rv32ima/config/configparser"
)

func TestParseSizeAcceptsSuffixes(t *testing.T) {
	cases := map[string]uint32{
		"1024":  1024,
		"4K":    4 << 10,
		"256M":  256 << 20,
		"1G":    1 << 30,
		"256m":  256 << 20,
	}
	for in, want := range cases {
		var got uint32
		if err := parseSize(in, &got); err != nil {
			t.Fatalf("parseSize(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	var got uint32
	if err := parseSize("not-a-size", &got); err == nil {
		t.Fatal("want error for invalid size")
	}
}

func TestParseHex32(t *testing.T) {
	var got uint32
	if err := parseHex32("0x1000_0000", &got); err == nil {
		t.Fatal("want error: underscores aren't valid in this hex form")
	}
	if err := parseHex32("10000000", &got); err != nil {
		t.Fatalf("parseHex32: %v", err)
	}
	if got != 0x10000000 {
		t.Errorf("parseHex32 = %#x, want 0x10000000", got)
	}
}

func TestSetMemoryRequiresEqualsForm(t *testing.T) {
	if err := setMemory(nil); err == nil {
		t.Fatal("want error for memory with no options")
	}
	if err := setMemory([]config.Option{{Name: "size"}}); err == nil {
		t.Fatal("want error for memory option with no =value")
	}
	if err := setMemory([]config.Option{{Name: "size", EqualOpt: "128M"}}); err != nil {
		t.Fatalf("setMemory: %v", err)
	}
	if Settings.MemSize != 128<<20 {
		t.Errorf("Settings.MemSize = %d, want %d", Settings.MemSize, 128<<20)
	}
}

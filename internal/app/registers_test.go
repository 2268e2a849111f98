package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/relabs-tech/lsm303_unified/internal/lsm303"
)

func TestParseRegisterWrite(t *testing.T) {
	rw, err := ParseRegisterWrite("mag:0x01=0x40")
	if err != nil {
		t.Fatal(err)
	}
	if rw != (RegisterWrite{Addr: lsm303.MagAddr, Reg: 0x01, Value: 0x40}) {
		t.Errorf("got %+v", rw)
	}
	rw, err = ParseRegisterWrite("accel:32=87")
	if err != nil || rw.Addr != lsm303.AccelAddr || rw.Reg != 0x20 || rw.Value != 0x57 {
		t.Errorf("got %+v, %v", rw, err)
	}

	for _, bad := range []string{"mag", "gyro:0x01=0x40", "mag:0x01", "mag:0x100=1", "mag:0x01=zz"} {
		if _, err := ParseRegisterWrite(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestDumpRegisters(t *testing.T) {
	rb := newRegBus()
	rb.set(lsm303.AccelAddr, 0x20, 0x57)
	rb.set(lsm303.MagAddr, 0x0A, 0x48)
	b := lsm303.NewBus(rb, nil)

	var out bytes.Buffer
	if err := dumpRegisters(context.Background(), &out, b); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{
		"accelerometer (0x19)",
		"magnetometer (0x1E)",
		"0x20 CTRL_REG1_A   RW 0x57 01010111",
		"0x0A IRA_REG_M     R  0x48 01001000",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("dump missing %q:\n%s", want, s)
		}
	}
	// Bit fields are decoded under their register.
	for _, want := range []string{
		"[7:4] ODR         5",
		"[3  ] LPen        0",
		"[2:0] Zen Yen Xen 7",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("dump missing %q:\n%s", want, s)
		}
	}
	// Unanswered registers are reported, not fatal.
	if !strings.Contains(s, "OUT_Y_L_M") || !strings.Contains(s, "--") {
		t.Errorf("dump:\n%s", s)
	}
}

func TestFieldValue(t *testing.T) {
	for _, c := range []struct {
		v    byte
		bits string
		want byte
	}{
		{0x57, "7:4", 5},
		{0x57, "3", 0},
		{0x57, "2:0", 7},
		{0x20, "7:5", 1},
		{0xE0, "7:5", 7},
		{0xFF, "7:0", 0xFF},
		{0x10, "4:2", 4},
		{0xFF, "x", 0},
		{0xFF, "2:5", 0},
	} {
		if got := fieldValue(c.v, c.bits); got != c.want {
			t.Errorf("fieldValue(0x%02X, %q) = %d, want %d", c.v, c.bits, got, c.want)
		}
	}
}

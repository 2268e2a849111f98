package lsm303

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegisterMapsCoverDriverRegisters(t *testing.T) {
	for _, c := range []struct {
		addr uint16
		regs []byte
	}{
		{AccelAddr, []byte{regCtrl1A, regOutXLA}},
		{MagAddr, []byte{regCRAM, regCRBM, regMRM, regOutXHM}},
	} {
		for _, reg := range c.regs {
			if _, err := LookupRegister(c.addr, reg); err != nil {
				t.Errorf("0x%02X reg 0x%02X: %v", c.addr, reg, err)
			}
		}
	}
	if _, err := RegisterMap(0x42); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("unknown device: %v", err)
	}
}

func TestReadRegister(t *testing.T) {
	fb := newFakeBus()
	fb.respond(MagAddr, 0x0A, 0x48)
	b := NewBus(fb, &BusOpts{Timeout: 20 * time.Millisecond, PollInterval: time.Millisecond})

	v, err := b.ReadRegister(context.Background(), MagAddr, 0x0A)
	if err != nil || v != 0x48 {
		t.Fatalf("IRA_REG_M = 0x%02X, %v", v, err)
	}
	if _, err := b.ReadRegister(context.Background(), MagAddr, 0x30); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("unmapped register: %v", err)
	}
	if len(fb.requests) != 1 {
		t.Errorf("requests = %v", fb.requests)
	}
}

func TestWriteRegister(t *testing.T) {
	fb := newFakeBus()
	b := NewBus(fb, nil)

	if err := b.WriteRegister(AccelAddr, 0x23, 0x08); err != nil {
		t.Fatal(err)
	}
	if w := fb.writesTo(AccelAddr); len(w) != 1 || w[0].reg != 0x23 || w[0].value != 0x08 {
		t.Errorf("writes = %+v", w)
	}
	if err := b.WriteRegister(MagAddr, 0x09, 0x00); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("read-only register: %v", err)
	}
	if len(fb.writesTo(MagAddr)) != 0 {
		t.Error("read-only register was written")
	}
}

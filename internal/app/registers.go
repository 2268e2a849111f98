// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/lsm303"
)

// RegisterWrite is one parsed "device:reg=value" argument.
type RegisterWrite struct {
	Addr  uint16
	Reg   byte
	Value byte
}

var deviceAddrs = map[string]uint16{
	"accel": lsm303.AccelAddr,
	"mag":   lsm303.MagAddr,
}

// ParseRegisterWrite parses e.g. "mag:0x01=0x40".
func ParseRegisterWrite(s string) (RegisterWrite, error) {
	dev, rest, ok := strings.Cut(s, ":")
	if !ok {
		return RegisterWrite{}, fmt.Errorf("register write %q: want device:reg=value", s)
	}
	addr, ok := deviceAddrs[dev]
	if !ok {
		return RegisterWrite{}, fmt.Errorf("register write %q: unknown device %q (accel or mag)", s, dev)
	}
	regStr, valStr, ok := strings.Cut(rest, "=")
	if !ok {
		return RegisterWrite{}, fmt.Errorf("register write %q: missing value", s)
	}
	reg, err := strconv.ParseUint(regStr, 0, 8)
	if err != nil {
		return RegisterWrite{}, fmt.Errorf("register write %q: register: %w", s, err)
	}
	val, err := strconv.ParseUint(valStr, 0, 8)
	if err != nil {
		return RegisterWrite{}, fmt.Errorf("register write %q: value: %w", s, err)
	}
	return RegisterWrite{Addr: addr, Reg: byte(reg), Value: byte(val)}, nil
}

// RunRegisters applies writes and then dumps both register maps.
func RunRegisters(ctx context.Context, w io.Writer, writes []string) error {
	cfg := config.Get()

	parsed := make([]RegisterWrite, 0, len(writes))
	for _, s := range writes {
		rw, err := ParseRegisterWrite(s)
		if err != nil {
			return err
		}
		parsed = append(parsed, rw)
	}

	ch, err := OpenChannels(ctx, cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	for _, rw := range parsed {
		if err := ch.Bus.WriteRegister(rw.Addr, rw.Reg, rw.Value); err != nil {
			return err
		}
		log.Infof("registers: wrote 0x%02X to 0x%02X on 0x%02X", rw.Value, rw.Reg, rw.Addr)
	}
	return dumpRegisters(ctx, w, ch.Bus)
}

func dumpRegisters(ctx context.Context, w io.Writer, b *lsm303.Bus) error {
	for _, dev := range []struct {
		name string
		addr uint16
	}{{"accelerometer", lsm303.AccelAddr}, {"magnetometer", lsm303.MagAddr}} {
		regs, err := lsm303.RegisterMap(dev.addr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s (0x%02X)\n", dev.name, dev.addr)
		for _, r := range regs {
			v, err := b.ReadRegister(ctx, dev.addr, r.Address)
			if err != nil {
				fmt.Fprintf(w, "  0x%02X %-13s %-2s   --  %v\n", r.Address, r.Name, r.Access, err)
				continue
			}
			fmt.Fprintf(w, "  0x%02X %-13s %-2s 0x%02X %08b  %s\n", r.Address, r.Name, r.Access, v, v, r.Description)
			for _, f := range r.BitFields {
				fmt.Fprintf(w, "         [%-3s] %-11s %d  %s\n", f.Bits, f.Name, fieldValue(v, f.Bits), f.Values)
			}
		}
	}
	return nil
}

// fieldValue extracts the bits named "hi:lo" or "n" from v. Unparsable
// ranges read as 0.
func fieldValue(v byte, bits string) byte {
	hiStr, loStr, ok := strings.Cut(bits, ":")
	if !ok {
		loStr = hiStr
	}
	hi, err := strconv.Atoi(hiStr)
	if err != nil {
		return 0
	}
	lo, err := strconv.Atoi(loStr)
	if err != nil || lo > hi || hi > 7 || lo < 0 {
		return 0
	}
	return v >> lo & (1<<(hi-lo+1) - 1)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus provides register bus transports for the lsm303 channels.
package bus

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2C adapts a periph.io i2c.Bus. Each RequestRead is a single combined
// write/read Tx; the response is buffered until drained with ReadByte.
type I2C struct {
	bus    i2c.Bus
	closer i2c.BusCloser

	mu  sync.Mutex
	buf []byte
}

// NewI2C wraps an already opened bus. Close does not close it.
func NewI2C(b i2c.Bus) *I2C {
	return &I2C{bus: b}
}

// OpenI2C initializes the periph host and opens the named bus ("" selects the first one).
func OpenI2C(name string) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", name, err)
	}
	log.Infof("i2c: opened bus %s", bc)
	return &I2C{bus: bc, closer: bc}, nil
}

func (d *I2C) String() string { return d.bus.String() }

// Write sets one register.
func (d *I2C) Write(addr uint16, reg, value byte) error {
	return d.bus.Tx(addr, []byte{reg, value}, nil)
}

// RequestRead reads n bytes starting at reg into the receive buffer.
func (d *I2C) RequestRead(addr uint16, reg byte, n int) error {
	if n <= 0 {
		return errors.New("i2c: read length must be positive")
	}
	r := make([]byte, n)
	if err := d.bus.Tx(addr, []byte{reg}, r); err != nil {
		return err
	}
	d.mu.Lock()
	d.buf = append(d.buf, r...)
	d.mu.Unlock()
	return nil
}

// Available returns the number of buffered response bytes.
func (d *I2C) Available() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buf)
}

// ReadByte pops one buffered byte.
func (d *I2C) ReadByte() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.buf) == 0 {
		return 0, errors.New("i2c: receive buffer empty")
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b, nil
}

// Close releases the bus if OpenI2C opened it.
func (d *I2C) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

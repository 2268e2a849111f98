// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lsm303

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RegisterBus is the register-addressed transport both channels talk through.
//
// RequestRead starts a read of n bytes from reg; the response is drained with
// ReadByte once Available reports enough bytes.
type RegisterBus interface {
	Write(addr uint16, reg, value byte) error
	RequestRead(addr uint16, reg byte, n int) error
	Available() int
	ReadByte() (byte, error)
}

// BusOpts bounds the wait for a read response.
type BusOpts struct {
	Timeout      time.Duration // how long to wait for Available to reach the requested count
	PollInterval time.Duration // delay between Available checks
}

// DefaultBusOpts is used when NewBus receives nil options.
var DefaultBusOpts = BusOpts{
	Timeout:      100 * time.Millisecond,
	PollInterval: 250 * time.Microsecond,
}

// Bus serializes complete transactions on a RegisterBus shared by the
// accelerometer and magnetometer channels.
type Bus struct {
	mu   sync.Mutex
	rb   RegisterBus
	opts BusOpts
}

// NewBus wraps rb. A nil opts selects DefaultBusOpts.
func NewBus(rb RegisterBus, opts *BusOpts) *Bus {
	o := DefaultBusOpts
	if opts != nil {
		o = *opts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultBusOpts.Timeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultBusOpts.PollInterval
	}
	return &Bus{rb: rb, opts: o}
}

// Opts returns the effective wait options.
func (b *Bus) Opts() BusOpts { return b.opts }

func (b *Bus) writeReg(addr uint16, reg, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.rb.Write(addr, reg, value); err != nil {
		return fmt.Errorf("%w: write 0x%02X to reg 0x%02X on 0x%02X: %v", ErrBusTransaction, value, reg, addr, err)
	}
	return nil
}

// readBlock performs one request/drain transaction and returns exactly n bytes.
func (b *Bus) readBlock(ctx context.Context, addr uint16, reg byte, n int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Bytes left over from an earlier transaction that timed out would
	// otherwise be mistaken for this response.
	for b.rb.Available() > 0 {
		if _, err := b.rb.ReadByte(); err != nil {
			break
		}
	}

	if err := b.rb.RequestRead(addr, reg, n); err != nil {
		return nil, fmt.Errorf("%w: read %d bytes from reg 0x%02X on 0x%02X: %v", ErrBusTransaction, n, reg, addr, err)
	}

	if err := b.waitAvailable(ctx, n); err != nil {
		return nil, fmt.Errorf("read %d bytes from reg 0x%02X on 0x%02X: %w", n, reg, addr, err)
	}

	out := make([]byte, n)
	for i := range out {
		v, err := b.rb.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: byte %d of %d from 0x%02X: %v", ErrBusTransaction, i, n, addr, err)
		}
		out[i] = v
	}
	return out, nil
}

func (b *Bus) waitAvailable(ctx context.Context, n int) error {
	if b.rb.Available() >= n {
		return nil
	}

	deadline := time.NewTimer(b.opts.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(b.opts.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if b.rb.Available() >= n {
				return nil
			}
			return fmt.Errorf("%w: %d of %d bytes after %s", ErrDeviceUnresponsive, b.rb.Available(), n, b.opts.Timeout)
		case <-tick.C:
			if b.rb.Available() >= n {
				return nil
			}
		}
	}
}

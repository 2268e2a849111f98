// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// Bus Pirate binary-mode commands (I2C mode).
const (
	bpReset      = 0x00
	bpEnterI2C   = 0x02
	bpStart      = 0x02
	bpStop       = 0x03
	bpReadByte   = 0x04
	bpAck        = 0x06
	bpNack       = 0x07
	bpBulkWrite  = 0x10 // low nibble = byte count - 1
	bpPeripheral = 0x40 // bit3 power, bit2 pull-ups
	bpSpeed      = 0x60 // 0=5kHz 1=50kHz 2=100kHz 3=400kHz

	bpOK = 0x01
)

var (
	bpBanner    = []byte("BBIO1")
	bpI2CBanner = []byte("I2C1")
)

// BusPirateOpts configures the serial bridge.
type BusPirateOpts struct {
	Port    string
	Baud    uint
	Speed   byte          // bpSpeed selector, 0..3
	Timeout time.Duration // per synchronous command
	PullUps bool
	PowerOn bool
}

// DefaultBusPirateOpts matches a stock Bus Pirate v3 on Linux.
var DefaultBusPirateOpts = BusPirateOpts{
	Port:    "/dev/ttyUSB0",
	Baud:    115200,
	Speed:   3,
	Timeout: 200 * time.Millisecond,
	PullUps: true,
	PowerOn: true,
}

type bpStep int

const (
	stepData bpStep = iota
	stepStatus
)

// BusPirate drives an I2C bus through a Bus Pirate in binary mode. Register
// writes are synchronous; read data is collected as it arrives, so Available
// grows while the adapter clocks bytes in.
type BusPirate struct {
	port io.ReadWriteCloser
	opts BusPirateOpts
	in   chan byte

	mu     sync.Mutex
	script []bpStep
	rx     []byte
	err    error
}

// OpenBusPirate opens the serial port and switches the adapter to I2C mode.
func OpenBusPirate(opts *BusPirateOpts) (*BusPirate, error) {
	o := DefaultBusPirateOpts
	if opts != nil {
		o = *opts
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:        o.Port,
		BaudRate:        o.Baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, fmt.Errorf("buspirate: open %s: %w", o.Port, err)
	}
	bp, err := NewBusPirate(port, &o)
	if err != nil {
		port.Close()
		return nil, err
	}
	log.Infof("buspirate: I2C mode on %s at %d baud", o.Port, o.Baud)
	return bp, nil
}

// NewBusPirate takes ownership of an open port and enters I2C mode.
func NewBusPirate(port io.ReadWriteCloser, opts *BusPirateOpts) (*BusPirate, error) {
	o := DefaultBusPirateOpts
	if opts != nil {
		o = *opts
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultBusPirateOpts.Timeout
	}
	p := &BusPirate{port: port, opts: o, in: make(chan byte, 1024)}
	go p.readLoop()

	if err := p.enterI2C(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *BusPirate) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := p.port.Read(buf)
		for _, b := range buf[:n] {
			p.in <- b
		}
		if err != nil {
			close(p.in)
			return
		}
	}
}

func (p *BusPirate) recv(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	timer := time.NewTimer(p.opts.Timeout)
	defer timer.Stop()
	for len(out) < n {
		select {
		case b, ok := <-p.in:
			if !ok {
				return out, io.ErrUnexpectedEOF
			}
			out = append(out, b)
		case <-timer.C:
			return out, fmt.Errorf("buspirate: timeout after %d of %d bytes", len(out), n)
		}
	}
	return out, nil
}

func (p *BusPirate) drainInput() {
	for {
		select {
		case _, ok := <-p.in:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (p *BusPirate) enterI2C() error {
	entered := false
	for i := 0; i < 20 && !entered; i++ {
		if _, err := p.port.Write([]byte{bpReset}); err != nil {
			return fmt.Errorf("buspirate: reset: %w", err)
		}
		got, _ := p.recv(len(bpBanner))
		entered = bytes.Equal(got, bpBanner)
	}
	if !entered {
		return errors.New("buspirate: no BBIO1 banner")
	}
	p.drainInput()

	if _, err := p.port.Write([]byte{bpEnterI2C}); err != nil {
		return fmt.Errorf("buspirate: enter i2c: %w", err)
	}
	got, err := p.recv(len(bpI2CBanner))
	if err != nil || !bytes.Equal(got, bpI2CBanner) {
		return fmt.Errorf("buspirate: expected I2C1, got %q: %v", got, err)
	}

	periph := byte(bpPeripheral)
	if p.opts.PowerOn {
		periph |= 0x08
	}
	if p.opts.PullUps {
		periph |= 0x04
	}
	for _, cmd := range []byte{bpSpeed | (p.opts.Speed & 0x03), periph} {
		if err := p.command([]byte{cmd}, 1); err != nil {
			return err
		}
	}
	return nil
}

// command writes cmd and checks that every one of the want responses is bpOK.
func (p *BusPirate) command(cmd []byte, want int) error {
	if _, err := p.port.Write(cmd); err != nil {
		return fmt.Errorf("buspirate: write: %w", err)
	}
	got, err := p.recv(want)
	if err != nil {
		return err
	}
	for i, b := range got {
		if b != bpOK {
			return fmt.Errorf("buspirate: command 0x%02X response %d = 0x%02X", cmd[0], i, b)
		}
	}
	return nil
}

// bulkWrite issues start, writes data and reports whether every byte was ACKed.
// The caller sends the stop.
func (p *BusPirate) bulkWrite(data []byte) error {
	if len(data) == 0 || len(data) > 16 {
		return fmt.Errorf("buspirate: bulk write of %d bytes", len(data))
	}
	cmd := append([]byte{bpStart, bpBulkWrite | byte(len(data)-1)}, data...)
	if _, err := p.port.Write(cmd); err != nil {
		return fmt.Errorf("buspirate: write: %w", err)
	}
	// start OK, bulk OK, one ACK/NACK per byte
	got, err := p.recv(2 + len(data))
	if err != nil {
		return err
	}
	if got[0] != bpOK || got[1] != bpOK {
		return fmt.Errorf("buspirate: bulk write rejected: % X", got[:2])
	}
	for i, ack := range got[2:] {
		if ack != 0x00 {
			return fmt.Errorf("buspirate: NACK on byte %d (0x%02X)", i, data[i])
		}
	}
	return nil
}

func (p *BusPirate) stop() error {
	return p.command([]byte{bpStop}, 1)
}

// Write sets one register.
func (p *BusPirate) Write(addr uint16, reg, value byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.bulkWrite([]byte{byte(addr << 1), reg, value})
	if serr := p.stop(); err == nil {
		err = serr
	}
	return err
}

// RequestRead addresses the device synchronously, then queues n byte reads
// whose data is picked up by Available.
func (p *BusPirate) RequestRead(addr uint16, reg byte, n int) error {
	if n <= 0 {
		return errors.New("buspirate: read length must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.flushPending()

	if err := p.bulkWrite([]byte{byte(addr << 1), reg}); err != nil {
		p.stop()
		return err
	}
	if err := p.bulkWrite([]byte{byte(addr<<1) | 1}); err != nil {
		p.stop()
		return err
	}

	cmd := make([]byte, 0, 2*n+1)
	for i := 0; i < n; i++ {
		ack := byte(bpAck)
		if i == n-1 {
			ack = bpNack
		}
		cmd = append(cmd, bpReadByte, ack)
		p.script = append(p.script, stepData, stepStatus)
	}
	cmd = append(cmd, bpStop)
	p.script = append(p.script, stepStatus)

	if _, err := p.port.Write(cmd); err != nil {
		p.script = nil
		return fmt.Errorf("buspirate: write: %w", err)
	}
	return nil
}

// flushPending discards the tail of an earlier read that was abandoned.
func (p *BusPirate) flushPending() {
	if len(p.script) > 0 {
		p.recv(len(p.script))
	}
	p.drainInput()
	p.script = nil
	p.rx = nil
	p.err = nil
}

// Available consumes whatever the adapter has sent so far.
func (p *BusPirate) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.script) > 0 {
		select {
		case b, ok := <-p.in:
			if !ok {
				p.err = io.ErrUnexpectedEOF
				p.script = nil
				return len(p.rx)
			}
			step := p.script[0]
			p.script = p.script[1:]
			switch step {
			case stepData:
				p.rx = append(p.rx, b)
			case stepStatus:
				if b != bpOK && p.err == nil {
					p.err = fmt.Errorf("buspirate: read status 0x%02X", b)
				}
			}
		default:
			return len(p.rx)
		}
	}
	return len(p.rx)
}

// ReadByte pops one received data byte.
func (p *BusPirate) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return 0, p.err
	}
	if len(p.rx) == 0 {
		return 0, errors.New("buspirate: no data")
	}
	b := p.rx[0]
	p.rx = p.rx[1:]
	return b, nil
}

// Close resets the adapter to terminal mode and closes the port.
func (p *BusPirate) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 0x00 back to BBIO, 0x0F hardware reset; responses are not awaited.
	if _, err := p.port.Write([]byte{bpReset, 0x0F}); err != nil {
		log.Warnf("buspirate: reset on close: %v", err)
	}
	return p.port.Close()
}

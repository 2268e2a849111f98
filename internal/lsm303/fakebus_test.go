package lsm303

import (
	"errors"
	"sync"
)

type regWrite struct {
	addr  uint16
	reg   byte
	value byte
}

type regKey struct {
	addr uint16
	reg  byte
}

// fakeBus answers read requests from a per-register script.
type fakeBus struct {
	mu        sync.Mutex
	writes    []regWrite
	requests  []regKey
	responses map[regKey][]byte
	pending   []byte

	// delay is the number of Available calls that report 0 before the response shows up.
	delay    int
	polls    int
	silent   bool // never deliver any bytes
	writeErr error
	readErr  error
}

func newFakeBus() *fakeBus {
	return &fakeBus{responses: map[regKey][]byte{}}
}

func (f *fakeBus) respond(addr uint16, reg byte, data ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[regKey{addr, reg}] = data
}

func (f *fakeBus) Write(addr uint16, reg, value byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, regWrite{addr, reg, value})
	return nil
}

func (f *fakeBus) RequestRead(addr uint16, reg byte, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return f.readErr
	}
	f.requests = append(f.requests, regKey{addr, reg})
	f.polls = 0
	if f.silent {
		return nil
	}
	data, ok := f.responses[regKey{addr, reg}]
	if !ok {
		return errors.New("nack")
	}
	if len(data) > n {
		data = data[:n]
	}
	f.pending = append(f.pending, data...)
	return nil
}

func (f *fakeBus) Available() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.polls <= f.delay {
		return 0
	}
	return len(f.pending)
}

func (f *fakeBus) ReadByte() (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return 0, errors.New("empty")
	}
	b := f.pending[0]
	f.pending = f.pending[1:]
	return b, nil
}

func (f *fakeBus) writesTo(addr uint16) []regWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []regWrite
	for _, w := range f.writes {
		if w.addr == addr {
			out = append(out, w)
		}
	}
	return out
}

// stepClock advances by a fixed step on every call.
type stepClock struct {
	now, step int64
}

func (c *stepClock) Millis() int64 {
	v := c.now
	c.now += c.step
	return v
}

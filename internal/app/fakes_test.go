package app

import (
	"context"
	"errors"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

// regBus answers every read from a fixed per-register payload.
type regBus struct {
	mu      sync.Mutex
	regs    map[[2]uint16][]byte
	pending []byte
}

func newRegBus() *regBus {
	return &regBus{regs: map[[2]uint16][]byte{}}
}

func (b *regBus) set(addr uint16, reg byte, data ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[[2]uint16{addr, uint16(reg)}] = data
}

func (b *regBus) Write(addr uint16, reg, value byte) error { return nil }

func (b *regBus) RequestRead(addr uint16, reg byte, n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.regs[[2]uint16{addr, uint16(reg)}]
	if !ok {
		return errors.New("nack")
	}
	b.pending = append(b.pending, data[:n]...)
	return nil
}

func (b *regBus) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *regBus) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return 0, errors.New("empty")
	}
	c := b.pending[0]
	b.pending = b.pending[1:]
	return c, nil
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	if p.err == nil {
		p.msgs = append(p.msgs, published{topic, retained, payload.([]byte)})
	}
	return doneToken{p.err}
}

// stubSensor returns a fixed event or error.
type stubSensor struct {
	ev  sensor.Event
	err error
}

func (s stubSensor) ReadEvent(context.Context) (sensor.Event, error) { return s.ev, s.err }

func (s stubSensor) Describe() sensor.Descriptor {
	return sensor.Descriptor{Name: "stub", Version: 1, SensorID: s.ev.SensorID, Quantity: s.ev.Quantity}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package lsm303

import (
	"context"
	"fmt"
	"sync"

	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

// Name is reported in every descriptor.
const Name = "LSM303"

const descriptorVersion = 1

// AccelOpts holds accelerometer initialization options.
type AccelOpts struct {
	SensorID int32
	DataRate AccelDataRate
	Clock    sensor.Clock // nil selects a new SessionClock
}

// DefaultAccelOpts is used when NewAccel receives nil options.
var DefaultAccelOpts = AccelOpts{
	SensorID: 54321,
	DataRate: DefaultAccelDataRate,
}

// Accel is the accelerometer channel. Events are in m/s².
type Accel struct {
	bus   *Bus
	id    int32
	clock sensor.Clock

	mu   sync.Mutex
	rate AccelDataRate
}

// NewAccel creates the channel and writes the initial data rate.
func NewAccel(ctx context.Context, bus *Bus, opts *AccelOpts) (*Accel, error) {
	o := DefaultAccelOpts
	if opts != nil {
		o = *opts
	}
	if o.Clock == nil {
		o.Clock = sensor.NewSessionClock()
	}
	a := &Accel{bus: bus, id: o.SensorID, clock: o.Clock}
	if err := a.Configure(ctx, o.DataRate); err != nil {
		return nil, fmt.Errorf("accel init: %w", err)
	}
	return a, nil
}

// Configure writes the data rate to CTRL_REG1_A. The stored rate only changes
// when the write succeeds.
func (a *Accel) Configure(ctx context.Context, rate AccelDataRate) error {
	if !rate.Valid() {
		return fmt.Errorf("%w: accelerometer data rate code 0x%02X", ErrInvalidConfiguration, byte(rate))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.bus.writeReg(AccelAddr, regCtrl1A, byte(rate)); err != nil {
		return fmt.Errorf("accel set data rate %s: %w", rate, err)
	}
	a.rate = rate
	return nil
}

// SetDataRate is Configure under the register's name.
func (a *Accel) SetDataRate(ctx context.Context, rate AccelDataRate) error {
	return a.Configure(ctx, rate)
}

// DataRate returns the last successfully written rate.
func (a *Accel) DataRate() AccelDataRate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rate
}

// Poll reads one raw sample from OUT_X_L_A with auto-increment.
func (a *Accel) Poll(ctx context.Context) (RawTriple, error) {
	b, err := a.bus.readBlock(ctx, AccelAddr, regOutXLA|autoIncrRA, sampleBytes)
	if err != nil {
		return RawTriple{}, fmt.Errorf("accel poll: %w", err)
	}
	return decodeAccel(b), nil
}

// ReadEvent polls and converts the sample to m/s².
func (a *Accel) ReadEvent(ctx context.Context) (sensor.Event, error) {
	raw, err := a.Poll(ctx)
	if err != nil {
		return sensor.Event{}, err
	}
	return sensor.Event{
		Version:   sensor.EventVersion,
		SensorID:  a.id,
		Quantity:  sensor.Acceleration,
		Timestamp: a.clock.Millis(),
		Vector: sensor.Vector{
			X: AccelToMS2(raw.X),
			Y: AccelToMS2(raw.Y),
			Z: AccelToMS2(raw.Z),
		},
	}, nil
}

// AccelToMS2 converts a decoded accelerometer count to m/s².
func AccelToMS2(raw int16) float64 {
	return float64(raw) * AccelMGPerLSB * sensor.GravityStandard
}

// Describe returns the channel identity. Range and resolution are not populated.
func (a *Accel) Describe() sensor.Descriptor {
	return sensor.Descriptor{
		Name:     Name,
		Version:  descriptorVersion,
		SensorID: a.id,
		Quantity: sensor.Acceleration,
	}
}

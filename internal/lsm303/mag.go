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

// MagOpts holds magnetometer initialization options.
type MagOpts struct {
	SensorID int32
	Gain     MagGain
	DataRate MagDataRate
	Clock    sensor.Clock // nil selects a new SessionClock
}

// DefaultMagOpts is used when NewMag receives nil options.
var DefaultMagOpts = MagOpts{
	SensorID: 12345,
	Gain:     DefaultMagGain,
	DataRate: DefaultMagDataRate,
}

// Mag is the magnetometer channel. Events are in µT.
type Mag struct {
	bus   *Bus
	id    int32
	clock sensor.Clock

	// mu is held across ReadEvent so a conversion never mixes a sample with
	// a gain that changed while it was being read.
	mu    sync.Mutex
	gain  MagGain
	scale MagScale
	rate  MagDataRate
}

// NewMag creates the channel and runs Configure with the initial options.
func NewMag(ctx context.Context, bus *Bus, opts *MagOpts) (*Mag, error) {
	o := DefaultMagOpts
	if opts != nil {
		o = *opts
	}
	if o.Clock == nil {
		o.Clock = sensor.NewSessionClock()
	}
	m := &Mag{bus: bus, id: o.SensorID, clock: o.Clock}
	if err := m.Configure(ctx, o.Gain, o.DataRate); err != nil {
		return nil, fmt.Errorf("mag init: %w", err)
	}
	return m, nil
}

// Configure enables continuous conversion, then writes gain and data rate.
// Both values are validated before anything is written.
func (m *Mag) Configure(ctx context.Context, gain MagGain, rate MagDataRate) error {
	if !gain.Valid() {
		return fmt.Errorf("%w: magnetometer gain code 0x%02X", ErrInvalidConfiguration, byte(gain))
	}
	if !rate.Valid() {
		return fmt.Errorf("%w: magnetometer data rate code 0x%02X", ErrInvalidConfiguration, byte(rate))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.bus.writeReg(MagAddr, regMRM, magModeContinuous); err != nil {
		return fmt.Errorf("mag enable: %w", err)
	}
	if err := m.setGainLocked(gain); err != nil {
		return err
	}
	return m.setDataRateLocked(rate)
}

// SetGain writes CRB_REG_M and switches the active scale table entry.
func (m *Mag) SetGain(ctx context.Context, gain MagGain) error {
	if !gain.Valid() {
		return fmt.Errorf("%w: magnetometer gain code 0x%02X", ErrInvalidConfiguration, byte(gain))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setGainLocked(gain)
}

// SetDataRate writes CRA_REG_M.
func (m *Mag) SetDataRate(ctx context.Context, rate MagDataRate) error {
	if !rate.Valid() {
		return fmt.Errorf("%w: magnetometer data rate code 0x%02X", ErrInvalidConfiguration, byte(rate))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setDataRateLocked(rate)
}

func (m *Mag) setGainLocked(gain MagGain) error {
	scale, err := gain.Scale()
	if err != nil {
		return err
	}
	if err := m.bus.writeReg(MagAddr, regCRBM, byte(gain)); err != nil {
		return fmt.Errorf("mag set gain %s: %w", gain, err)
	}
	m.gain = gain
	m.scale = scale
	return nil
}

func (m *Mag) setDataRateLocked(rate MagDataRate) error {
	if err := m.bus.writeReg(MagAddr, regCRAM, byte(rate)); err != nil {
		return fmt.Errorf("mag set data rate %s: %w", rate, err)
	}
	m.rate = rate
	return nil
}

// Gain returns the active gain.
func (m *Mag) Gain() MagGain {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

// Scale returns the LSB/gauss pair used for conversion.
func (m *Mag) Scale() MagScale {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scale
}

// DataRate returns the last successfully written rate.
func (m *Mag) DataRate() MagDataRate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// Poll reads one raw sample starting at OUT_X_H_M.
func (m *Mag) Poll(ctx context.Context) (RawTriple, error) {
	b, err := m.bus.readBlock(ctx, MagAddr, regOutXHM, sampleBytes)
	if err != nil {
		return RawTriple{}, fmt.Errorf("mag poll: %w", err)
	}
	return decodeMag(b), nil
}

// ReadEvent polls and converts the sample to µT with the active gain.
func (m *Mag) ReadEvent(ctx context.Context) (sensor.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.Poll(ctx)
	if err != nil {
		return sensor.Event{}, err
	}
	return sensor.Event{
		Version:   sensor.EventVersion,
		SensorID:  m.id,
		Quantity:  sensor.MagneticField,
		Timestamp: m.clock.Millis(),
		Vector:    MagToMicroTesla(raw, m.scale),
	}, nil
}

// MagToMicroTesla converts a raw sample with the given sensitivities.
func MagToMicroTesla(raw RawTriple, s MagScale) sensor.Vector {
	return sensor.Vector{
		X: float64(raw.X) / s.XY * sensor.GaussToMicroTesla,
		Y: float64(raw.Y) / s.XY * sensor.GaussToMicroTesla,
		Z: float64(raw.Z) / s.Z * sensor.GaussToMicroTesla,
	}
}

// Describe returns the channel identity. Range and resolution are not populated.
func (m *Mag) Describe() sensor.Descriptor {
	return sensor.Descriptor{
		Name:     Name,
		Version:  descriptorVersion,
		SensorID: m.id,
		Quantity: sensor.MagneticField,
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/lsm303_unified/internal/bus"
	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/lsm303"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

// Channels is both LSM303 channels on one shared bus.
type Channels struct {
	Accel *lsm303.Accel
	Mag   *lsm303.Mag
	Bus   *lsm303.Bus

	transport io.Closer
}

// Sensors returns the channels through the unified interface.
func (c *Channels) Sensors() []sensor.Sensor {
	return []sensor.Sensor{c.Accel, c.Mag}
}

// Close releases the transport.
func (c *Channels) Close() error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close()
}

type registerTransport interface {
	lsm303.RegisterBus
	io.Closer
}

func openTransport(cfg *config.Config) (registerTransport, error) {
	switch cfg.Transport {
	case config.TransportBusPirate:
		opts := bus.DefaultBusPirateOpts
		opts.Port = cfg.SerialPort
		opts.Baud = cfg.SerialBaud
		return bus.OpenBusPirate(&opts)
	case config.TransportI2C:
		return bus.OpenI2C(cfg.I2CBus)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// OpenChannels opens the configured transport and initializes both channels.
func OpenChannels(ctx context.Context, cfg *config.Config) (*Channels, error) {
	tr, err := openTransport(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := NewChannels(ctx, tr, cfg)
	if err != nil {
		tr.Close()
		return nil, err
	}
	ch.transport = tr
	return ch, nil
}

// NewChannels initializes both channels on rb with a common session clock.
func NewChannels(ctx context.Context, rb lsm303.RegisterBus, cfg *config.Config) (*Channels, error) {
	b := lsm303.NewBus(rb, &lsm303.BusOpts{Timeout: cfg.ReadTimeout()})
	clock := sensor.NewSessionClock()

	ao, err := cfg.AccelOpts()
	if err != nil {
		return nil, err
	}
	ao.Clock = clock
	accel, err := lsm303.NewAccel(ctx, b, &ao)
	if err != nil {
		return nil, err
	}
	log.Infof("lsm303: accelerometer 0x%02X ready (id=%d, rate=%s)", lsm303.AccelAddr, ao.SensorID, accel.DataRate())

	mo, err := cfg.MagOpts()
	if err != nil {
		return nil, err
	}
	mo.Clock = clock
	mag, err := lsm303.NewMag(ctx, b, &mo)
	if err != nil {
		return nil, err
	}
	log.Infof("lsm303: magnetometer 0x%02X ready (id=%d, gain=%s, rate=%s)", lsm303.MagAddr, mo.SensorID, mag.Gain(), mag.DataRate())

	return &Channels{Accel: accel, Mag: mag, Bus: b}, nil
}

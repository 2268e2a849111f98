// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensor defines the unified event and descriptor contract shared by
// every channel of the driver, so consumers can poll heterogeneous sensors
// through one interface.
package sensor

import (
	"context"
	"encoding/json"
	"fmt"
)

// EventVersion is the schema version stamped on every Event.
const EventVersion = 1

// Physical constants used by the channels.
const (
	GravityStandard   = 9.80665 // m/s² per g
	GaussToMicroTesla = 100.0   // µT per gauss
)

// Quantity tags the physical quantity carried by an Event.
// Values follow the unified sensor numbering (acceleration 1, magnetic field 2).
type Quantity int

const (
	Acceleration  Quantity = 1
	MagneticField Quantity = 2
)

func (q Quantity) String() string {
	switch q {
	case Acceleration:
		return "acceleration"
	case MagneticField:
		return "magnetic_field"
	default:
		return fmt.Sprintf("quantity(%d)", int(q))
	}
}

// MarshalJSON encodes the quantity as its name.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON accepts the name produced by MarshalJSON.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// ParseQuantity maps a quantity name back to its tag.
func ParseQuantity(s string) (Quantity, error) {
	switch s {
	case "acceleration":
		return Acceleration, nil
	case "magnetic_field":
		return MagneticField, nil
	}
	return 0, fmt.Errorf("unknown quantity %q", s)
}

// Vector is a 3-axis reading in physical units (m/s² or µT).
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Event is one normalized reading. It is a value: callers own it.
type Event struct {
	Version   int      `json:"version"`
	SensorID  int32    `json:"sensor_id"`
	Quantity  Quantity `json:"quantity"`
	Timestamp int64    `json:"timestamp_ms"`
	Vector    Vector   `json:"vector"`

	// Orientation is a heading placeholder; always 0 for magnetometer events.
	Orientation float64 `json:"orientation"`
}

// Descriptor is the static identity of a channel.
// MinValue, MaxValue and Resolution are not populated by the LSM303 channels.
type Descriptor struct {
	Name       string   `json:"name"`
	Version    int      `json:"version"`
	SensorID   int32    `json:"sensor_id"`
	Quantity   Quantity `json:"quantity"`
	MinDelay   int32    `json:"min_delay_us"`
	MaxValue   float64  `json:"max_value"`
	MinValue   float64  `json:"min_value"`
	Resolution float64  `json:"resolution"`
}

// Sensor is anything that can describe itself and produce events.
type Sensor interface {
	ReadEvent(ctx context.Context) (Event, error)
	Describe() Descriptor
}

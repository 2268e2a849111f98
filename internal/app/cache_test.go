package app

import (
	"testing"

	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

func TestEventCacheKeepsNewest(t *testing.T) {
	c := NewEventCache()
	if !c.Put(sensor.Event{SensorID: 1, Quantity: sensor.Acceleration, Timestamp: 20}) {
		t.Fatal("first event rejected")
	}
	if c.Put(sensor.Event{SensorID: 1, Quantity: sensor.Acceleration, Timestamp: 10}) {
		t.Error("older event accepted")
	}
	if !c.Put(sensor.Event{SensorID: 1, Quantity: sensor.Acceleration, Timestamp: 20}) {
		t.Error("equal timestamp rejected")
	}
	if !c.Put(sensor.Event{SensorID: 7, Quantity: sensor.Acceleration, Timestamp: 1}) {
		t.Error("event from another sensor rejected")
	}
	ev, ok := c.Latest(sensor.Acceleration)
	if !ok || ev.SensorID != 7 {
		t.Errorf("Latest = %+v, %v", ev, ok)
	}
	if _, ok := c.Latest(sensor.MagneticField); ok {
		t.Error("unexpected magnetic field event")
	}
}

func TestEventCacheProducerRestart(t *testing.T) {
	c := NewEventCache()
	c.Put(sensor.Event{SensorID: 12345, Quantity: sensor.MagneticField, Timestamp: 60000, Vector: sensor.Vector{X: 1}})

	// Late delivery within the same session is still dropped.
	if c.Put(sensor.Event{SensorID: 12345, Quantity: sensor.MagneticField, Timestamp: 59990, Vector: sensor.Vector{X: 3}}) {
		t.Error("late event accepted")
	}
	// Same id, session clock started over.
	if !c.Put(sensor.Event{SensorID: 12345, Quantity: sensor.MagneticField, Timestamp: 100, Vector: sensor.Vector{X: 2}}) {
		t.Fatal("event after restart rejected")
	}
	ev, _ := c.Latest(sensor.MagneticField)
	if ev.Timestamp != 100 || ev.Vector.X != 2 {
		t.Errorf("Latest = %+v", ev)
	}
	if !c.Put(sensor.Event{SensorID: 12345, Quantity: sensor.MagneticField, Timestamp: 200}) {
		t.Error("new session stalled")
	}
}

func TestEventCacheSnapshotOrder(t *testing.T) {
	c := NewEventCache()
	c.Put(sensor.Event{Quantity: sensor.MagneticField, Timestamp: 1})
	c.Put(sensor.Event{Quantity: sensor.Acceleration, Timestamp: 2})
	c.PutDescriptor(sensor.Descriptor{Name: "LSM303", Quantity: sensor.MagneticField})

	snap := c.Snapshot()
	if len(snap) != 2 || snap[0].Quantity != sensor.Acceleration || snap[1].Quantity != sensor.MagneticField {
		t.Errorf("Snapshot = %+v", snap)
	}
	ds := c.Descriptors()
	if len(ds) != 1 || ds[0].Quantity != sensor.MagneticField {
		t.Errorf("Descriptors = %+v", ds)
	}
}

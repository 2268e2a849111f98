package app

import (
	"sync"

	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

// EventCache holds the latest event and descriptor per quantity.
type EventCache struct {
	mu          sync.RWMutex
	events      map[sensor.Quantity]sensor.Event
	descriptors map[sensor.Quantity]sensor.Descriptor
}

func NewEventCache() *EventCache {
	return &EventCache{
		events:      map[sensor.Quantity]sensor.Event{},
		descriptors: map[sensor.Quantity]sensor.Descriptor{},
	}
}

// restartGapMS is how far a timestamp may go backwards before the sample is
// taken as coming from a new producer session rather than arriving late.
const restartGapMS = 5000

// Put stores ev unless a later event from the same sensor is already held.
// A jump back of more than restartGapMS starts over from ev.
func (c *EventCache) Put(ev sensor.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.events[ev.Quantity]; ok && prev.SensorID == ev.SensorID {
		back := prev.Timestamp - ev.Timestamp
		if back > 0 && back <= restartGapMS {
			return false
		}
	}
	c.events[ev.Quantity] = ev
	return true
}

func (c *EventCache) PutDescriptor(d sensor.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors[d.Quantity] = d
}

func (c *EventCache) Latest(q sensor.Quantity) (sensor.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[q]
	return ev, ok
}

// Snapshot returns copies of all held events, acceleration first.
func (c *EventCache) Snapshot() []sensor.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []sensor.Event
	for _, q := range []sensor.Quantity{sensor.Acceleration, sensor.MagneticField} {
		if ev, ok := c.events[q]; ok {
			out = append(out, ev)
		}
	}
	return out
}

func (c *EventCache) Descriptors() []sensor.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []sensor.Descriptor
	for _, q := range []sensor.Quantity{sensor.Acceleration, sensor.MagneticField} {
		if d, ok := c.descriptors[q]; ok {
			out = append(out, d)
		}
	}
	return out
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/lsm303"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

func newTestChannels(t *testing.T) *Channels {
	t.Helper()
	rb := newRegBus()
	// 16 counts of 1 mg on X after the shift, +1 count on Z.
	rb.set(lsm303.AccelAddr, 0x28|0x80, 0x00, 0x01, 0x00, 0x00, 0x10, 0x00)
	// X=1100, Z=980, Y=-1100 at gain 1.3.
	rb.set(lsm303.MagAddr, 0x03, 0x04, 0x4C, 0x03, 0xD4, 0xFB, 0xB4)
	cfg := config.Defaults()
	ch, err := NewChannels(context.Background(), rb, &cfg)
	if err != nil {
		t.Fatalf("NewChannels: %v", err)
	}
	return ch
}

func TestPollAndPublish(t *testing.T) {
	ch := newTestChannels(t)
	cfg := config.Defaults()
	pub := &fakePublisher{}

	n, errs := pollAndPublish(context.Background(), pub, TopicsFromConfig(&cfg), ch.Sensors())
	if n != 2 || len(errs) != 0 {
		t.Fatalf("published %d, errors %v", n, errs)
	}
	if pub.msgs[0].topic != "lsm303/accel" || pub.msgs[1].topic != "lsm303/mag" {
		t.Fatalf("topics = %q, %q", pub.msgs[0].topic, pub.msgs[1].topic)
	}

	var acc sensor.Event
	if err := json.Unmarshal(pub.msgs[0].payload, &acc); err != nil {
		t.Fatal(err)
	}
	if acc.Quantity != sensor.Acceleration || acc.SensorID != 54321 || acc.Version != sensor.EventVersion {
		t.Errorf("accel event = %+v", acc)
	}
	if math.Abs(acc.Vector.X-16*0.001*sensor.GravityStandard) > 1e-9 {
		t.Errorf("accel x = %v", acc.Vector.X)
	}

	var mag sensor.Event
	if err := json.Unmarshal(pub.msgs[1].payload, &mag); err != nil {
		t.Fatal(err)
	}
	if mag.Quantity != sensor.MagneticField || mag.SensorID != 12345 {
		t.Errorf("mag event = %+v", mag)
	}
	if math.Abs(mag.Vector.X-100) > 1e-9 || math.Abs(mag.Vector.Y+100) > 1e-9 || math.Abs(mag.Vector.Z-100) > 1e-9 {
		t.Errorf("mag vector = %+v", mag.Vector)
	}
	if mag.Timestamp < acc.Timestamp {
		t.Errorf("timestamps went backwards: %d then %d", acc.Timestamp, mag.Timestamp)
	}
}

func TestPollAndPublishContinuesAfterReadError(t *testing.T) {
	good := stubSensor{ev: sensor.Event{Version: 1, SensorID: 2, Quantity: sensor.MagneticField}}
	bad := stubSensor{ev: sensor.Event{SensorID: 1, Quantity: sensor.Acceleration}, err: lsm303.ErrDeviceUnresponsive}
	pub := &fakePublisher{}

	n, errs := pollAndPublish(context.Background(), pub, Topics{Accel: "a", Mag: "m"}, []sensor.Sensor{bad, good})
	if n != 1 || len(errs) != 1 {
		t.Fatalf("published %d, errors %v", n, errs)
	}
	if !errors.Is(errs[0], lsm303.ErrDeviceUnresponsive) {
		t.Errorf("error = %v", errs[0])
	}
	if pub.msgs[0].topic != "m" {
		t.Errorf("topic = %q", pub.msgs[0].topic)
	}
}

func TestPollAndPublishReportsPublishFailure(t *testing.T) {
	s := stubSensor{ev: sensor.Event{Version: 1, Quantity: sensor.Acceleration}}
	pub := &fakePublisher{err: errors.New("not connected")}

	n, errs := pollAndPublish(context.Background(), pub, Topics{Accel: "a", Mag: "m"}, []sensor.Sensor{s})
	if n != 0 || len(errs) != 1 {
		t.Fatalf("published %d, errors %v", n, errs)
	}
}

func TestPublishDescriptorsRetained(t *testing.T) {
	ch := newTestChannels(t)
	pub := &fakePublisher{}

	if err := publishDescriptors(pub, Topics{Accel: "a", Mag: "m"}, ch.Sensors()); err != nil {
		t.Fatal(err)
	}
	if len(pub.msgs) != 2 {
		t.Fatalf("got %d messages", len(pub.msgs))
	}
	for _, m := range pub.msgs {
		if !m.retained {
			t.Errorf("%s not retained", m.topic)
		}
	}
	var d sensor.Descriptor
	if err := json.Unmarshal(pub.msgs[1].payload, &d); err != nil {
		t.Fatal(err)
	}
	if pub.msgs[1].topic != "m/descriptor" || d.Name != "LSM303" || d.Quantity != sensor.MagneticField {
		t.Errorf("descriptor on %s = %+v", pub.msgs[1].topic, d)
	}
}

func TestTopicsUnknownQuantity(t *testing.T) {
	if _, err := (Topics{Accel: "a", Mag: "m"}).For(sensor.Quantity(9)); err == nil {
		t.Error("expected error")
	}
}

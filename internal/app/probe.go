package app

import (
	"context"
	"fmt"
	"io"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

// RunProbe configures both channels, prints their descriptors and one event each.
func RunProbe(ctx context.Context, w io.Writer) error {
	cfg := config.Get()

	ch, err := OpenChannels(ctx, cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	fmt.Fprintf(w, "accelerometer: rate %s\n", ch.Accel.DataRate())
	fmt.Fprintf(w, "magnetometer:  gain %s, rate %s\n", ch.Mag.Gain(), ch.Mag.DataRate())
	return probeSensors(ctx, w, ch.Sensors())
}

func probeSensors(ctx context.Context, w io.Writer, sensors []sensor.Sensor) error {
	for _, s := range sensors {
		d := s.Describe()
		fmt.Fprintf(w, "%-14s %s v%d id=%d min_delay=%dus\n", d.Quantity, d.Name, d.Version, d.SensorID, d.MinDelay)
		ev, err := s.ReadEvent(ctx)
		if err != nil {
			return fmt.Errorf("probe %s: %w", d.Quantity, err)
		}
		printEvent(w, ev)
	}
	return nil
}

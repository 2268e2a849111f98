package app

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

// RunConsoleMQTT prints every event published by the producer until ctx ends.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	cache := NewEventCache()
	err = subscribeEvents(client, TopicsFromConfig(cfg), cache, func(ev sensor.Event) {
		printEvent(os.Stdout, ev)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}

func printEvent(w io.Writer, ev sensor.Event) {
	switch ev.Quantity {
	case sensor.Acceleration:
		fmt.Fprintf(w, "[ACC %d] t=%8d  x=%8.3f y=%8.3f z=%8.3f m/s²\n",
			ev.SensorID, ev.Timestamp, ev.Vector.X, ev.Vector.Y, ev.Vector.Z)
	case sensor.MagneticField:
		fmt.Fprintf(w, "[MAG %d] t=%8d  x=%8.2f y=%8.2f z=%8.2f µT\n",
			ev.SensorID, ev.Timestamp, ev.Vector.X, ev.Vector.Y, ev.Vector.Z)
	default:
		fmt.Fprintf(w, "[%s %d] t=%8d  %+v\n", ev.Quantity, ev.SensorID, ev.Timestamp, ev.Vector)
	}
}

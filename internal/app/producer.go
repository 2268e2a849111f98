// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

const statsEvery = time.Minute

// RunProducer polls both channels every sample interval and publishes each
// event as JSON. Read errors are logged and the loop continues.
func RunProducer(ctx context.Context) error {
	cfg := config.Get()
	log.Info("starting lsm303 MQTT producer")

	ch, err := OpenChannels(ctx, cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topics := TopicsFromConfig(cfg)
	sensors := ch.Sensors()
	if err := publishDescriptors(client, topics, sensors); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()
	lastStats := time.Now()
	var published, failed uint64

	for {
		select {
		case <-ctx.Done():
			log.Infof("producer: stopping after %s events", humanize.Comma(int64(published)))
			return nil
		case t := <-ticker.C:
			n, errs := pollAndPublish(ctx, client, topics, sensors)
			published += uint64(n)
			failed += uint64(len(errs))
			for _, err := range errs {
				log.Warnf("producer: %v", err)
			}
			if t.Sub(lastStats) >= statsEvery {
				log.Infof("producer: %s events published, %s failures",
					humanize.Comma(int64(published)), humanize.Comma(int64(failed)))
				lastStats = t
			}
		}
	}
}

func publishDescriptors(pub publisher, topics Topics, sensors []sensor.Sensor) error {
	for _, s := range sensors {
		d := s.Describe()
		topic, err := topics.DescriptorFor(d.Quantity)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("descriptor marshal: %w", err)
		}
		if token := pub.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", topic, token.Error())
		}
	}
	return nil
}

// pollAndPublish reads one event from every sensor and publishes it.
// It returns the number published and the errors met along the way.
func pollAndPublish(ctx context.Context, pub publisher, topics Topics, sensors []sensor.Sensor) (int, []error) {
	var errs []error
	n := 0
	for _, s := range sensors {
		ev, err := s.ReadEvent(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", s.Describe().Quantity, err))
			continue
		}
		topic, err := topics.For(ev.Quantity)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			errs = append(errs, fmt.Errorf("event marshal: %w", err))
			continue
		}
		if token := pub.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", topic, token.Error()))
			continue
		}
		log.Debugf("%s t=%d x=%.4f y=%.4f z=%.4f", ev.Quantity, ev.Timestamp, ev.Vector.X, ev.Vector.Y, ev.Vector.Z)
		n++
	}
	return n, errs
}

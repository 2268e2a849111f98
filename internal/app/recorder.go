// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/lsm303_unified/internal/config"
	"github.com/relabs-tech/lsm303_unified/internal/sensor"
	"github.com/relabs-tech/lsm303_unified/internal/storage"
)

const recordBatch = 64

// eventSink is satisfied by storage.SqliteStore.
type eventSink interface {
	StoreEvents(ctx context.Context, sessionID int64, events []sensor.Event) error
}

// Recorder batches events read from the sensors into a session.
type Recorder struct {
	sink      eventSink
	sessionID int64
	sensors   []sensor.Sensor
	batch     []sensor.Event
	stored    int64
}

func NewRecorder(sink eventSink, sessionID int64, sensors []sensor.Sensor) *Recorder {
	return &Recorder{
		sink:      sink,
		sessionID: sessionID,
		sensors:   sensors,
		batch:     make([]sensor.Event, 0, recordBatch),
	}
}

// Sample reads one event from every sensor. Failed reads are logged and skipped.
func (r *Recorder) Sample(ctx context.Context) error {
	for _, s := range r.sensors {
		ev, err := s.ReadEvent(ctx)
		if err != nil {
			log.Warnf("recorder: read %s: %v", s.Describe().Quantity, err)
			continue
		}
		r.batch = append(r.batch, ev)
	}
	if len(r.batch) >= recordBatch {
		return r.Flush(ctx)
	}
	return nil
}

// Flush writes the pending batch.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}
	if err := r.sink.StoreEvents(ctx, r.sessionID, r.batch); err != nil {
		return fmt.Errorf("store %d events: %w", len(r.batch), err)
	}
	r.stored += int64(len(r.batch))
	r.batch = r.batch[:0]
	return nil
}

// Stored is the number of events written so far.
func (r *Recorder) Stored() int64 { return r.stored }

// RunRecorder reads the sensors directly and stores events in SQLite until ctx ends.
func RunRecorder(ctx context.Context) error {
	cfg := config.Get()

	ch, err := OpenChannels(ctx, cfg)
	if err != nil {
		return err
	}
	defer ch.Close()

	store := storage.NewSqliteStore(cfg.StoragePath)
	defer store.Close()

	sid, err := store.CreateSession(ctx, cfg)
	if err != nil {
		return err
	}
	log.Infof("recorder: session %d in %s", sid, cfg.StoragePath)

	rec := NewRecorder(store, sid, ch.Sensors())
	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()
	lastStats := time.Now()

	for {
		select {
		case <-ctx.Done():
			// ctx is done; the final batch goes out on a fresh one.
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
			defer cancel()
			if err := rec.Flush(flushCtx); err != nil {
				return err
			}
			total, err := store.CountEvents(flushCtx, sid)
			if err != nil {
				return err
			}
			log.Infof("recorder: session %d holds %s events", sid, humanize.Comma(total))
			return nil
		case t := <-ticker.C:
			if err := rec.Sample(ctx); err != nil {
				return err
			}
			if t.Sub(lastStats) >= statsEvery {
				log.Infof("recorder: %s events stored", humanize.Comma(rec.Stored()))
				lastStats = t
			}
		}
	}
}

// eventSource is the read side of storage.SqliteStore.
type eventSource interface {
	LastSession(ctx context.Context) (int64, error)
	CountEvents(ctx context.Context, sessionID int64) (int64, error)
	LatestEvents(ctx context.Context, sessionID int64, q sensor.Quantity, limit int) ([]sensor.Event, error)
}

// RunShowRecorded prints the latest n events per quantity of a recorded
// session. A zero sessionID selects the most recent one.
func RunShowRecorded(ctx context.Context, w io.Writer, sessionID int64, n int) error {
	cfg := config.Get()
	store := storage.NewSqliteStore(cfg.StoragePath)
	defer store.Close()
	return showRecorded(ctx, w, store, sessionID, n)
}

func showRecorded(ctx context.Context, w io.Writer, src eventSource, sessionID int64, n int) error {
	if sessionID == 0 {
		id, err := src.LastSession(ctx)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("no recorded sessions")
		}
		sessionID = id
	}
	total, err := src.CountEvents(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "session %d: %s events\n", sessionID, humanize.Comma(total))
	for _, q := range []sensor.Quantity{sensor.Acceleration, sensor.MagneticField} {
		events, err := src.LatestEvents(ctx, sessionID, q, n)
		if err != nil {
			return err
		}
		for _, ev := range events {
			printEvent(w, ev)
		}
	}
	return nil
}

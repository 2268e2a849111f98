// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package storage records sensor events to SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relabs-tech/lsm303_unified/internal/sensor"
)

// SqliteStore records events grouped by recording session.
type SqliteStore struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore returns a store; the database is opened on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rErr := rb.Rollback(); rErr != nil && rErr != sql.ErrTxDone && *err == nil {
		*err = rErr
	}
}

func (s *SqliteStore) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.dbErr = fmt.Errorf("opening connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1)

		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.db = db
	})
	return s.db, s.dbErr
}

// CreateSession starts a recording session; config is stored as JSON.
func (s *SqliteStore) CreateSession(ctx context.Context, config any) (sessionID int64, err error) {
	var configData sql.NullString
	if config != nil {
		p, mErr := json.Marshal(config)
		if mErr != nil {
			return 0, fmt.Errorf("marshaling config: %w", mErr)
		}
		configData = sql.NullString{String: string(p), Valid: true}
	}

	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, insertSessionSQL, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	return res.LastInsertId()
}

// StoreEvents writes a batch of events in one transaction.
func (s *SqliteStore) StoreEvents(ctx context.Context, sessionID int64, events []sensor.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, ev := range events {
		if _, err = stmt.ExecContext(ctx, sessionID, ev.SensorID, int(ev.Quantity), ev.Timestamp,
			ev.Vector.X, ev.Vector.Y, ev.Vector.Z); err != nil {
			return fmt.Errorf("inserting event: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// LatestEvents returns up to limit events of quantity q, newest first.
func (s *SqliteStore) LatestEvents(ctx context.Context, sessionID int64, q sensor.Quantity, limit int) (events []sensor.Event, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, selectLatestEventsSQL, sessionID, int(q), limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		ev := sensor.Event{Version: sensor.EventVersion}
		var quantity int
		if err = rows.Scan(&ev.SensorID, &quantity, &ev.Timestamp, &ev.Vector.X, &ev.Vector.Y, &ev.Vector.Z); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Quantity = sensor.Quantity(quantity)
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// CountEvents returns the number of events recorded in a session.
func (s *SqliteStore) CountEvents(ctx context.Context, sessionID int64) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, countEventsSQL, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

// LastSession returns the id of the most recent session, or 0 when none exists.
func (s *SqliteStore) LastSession(ctx context.Context) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var id sql.NullInt64
	if err := db.QueryRowContext(ctx, selectLastSessionSQL).Scan(&id); err != nil {
		return 0, fmt.Errorf("querying last session: %w", err)
	}
	return id.Int64, nil
}

// Close closes the database if it was opened.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}

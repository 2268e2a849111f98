package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time  TIMESTAMP NOT NULL,
    config      TEXT
);

CREATE TABLE IF NOT EXISTS events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   INTEGER NOT NULL REFERENCES sessions (id),
    sensor_id    INTEGER NOT NULL,
    quantity     INTEGER NOT NULL,
    timestamp_ms INTEGER NOT NULL,
    x            REAL    NOT NULL,
    y            REAL    NOT NULL,
    z            REAL    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_session_quantity ON events (session_id, quantity, timestamp_ms);`

	insertSessionSQL = `
INSERT INTO sessions (start_time, config)
VALUES (CURRENT_TIMESTAMP, ?)`

	insertEventSQL = `
INSERT INTO events (session_id,
                    sensor_id,
                    quantity,
                    timestamp_ms,
                    x,
                    y,
                    z)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectLatestEventsSQL = `
SELECT sensor_id,
       quantity,
       timestamp_ms,
       x,
       y,
       z
FROM events
WHERE session_id = ?
  AND quantity = ?
ORDER BY timestamp_ms DESC, id DESC
LIMIT ?`

	countEventsSQL = `
SELECT COUNT(*)
FROM events
WHERE session_id = ?`

	selectLastSessionSQL = `
SELECT MAX(id)
FROM sessions`
)

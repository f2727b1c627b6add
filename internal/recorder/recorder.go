// Package recorder is the controller's flight recorder: state transitions
// and periodic snapshots written to SQLite for post-hoc debugging with the
// lightbar-debug CLI. The controller only ever writes here; recorded rows
// never feed back into control decisions, and a recording failure never
// fails a tick.
package recorder

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/model"
)

// timeLayout is RFC3339 with a fixed-width fraction. Timestamps are compared
// as text in SQL, and RFC3339Nano's trimmed zeros do not sort correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open recorder database: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			raw_lux REAL NOT NULL,
			filtered_lux REAL NOT NULL,
			lux_stale INTEGER NOT NULL,
			light TEXT NOT NULL,
			presence TEXT NOT NULL,
			raw_presence INTEGER NOT NULL,
			phase TEXT NOT NULL,
			level INTEGER NOT NULL,
			target INTEGER NOT NULL,
			sensor_power TEXT NOT NULL
		);`)
	if err != nil {
		return fmt.Errorf("create recorder schema: %w", err)
	}
	return nil
}

func (s *Store) RecordEvent(now time.Time, kind, from, to string) {
	_, err := s.db.Exec(`INSERT INTO events (at, kind, from_state, to_state) VALUES (?, ?, ?, ?)`,
		now.Format(timeLayout), kind, from, to)
	if err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("Failed to record event")
	}
}

func (s *Store) RecordSnapshot(snap model.Snapshot) {
	_, err := s.db.Exec(`INSERT INTO snapshots
		(at, raw_lux, filtered_lux, lux_stale, light, presence, raw_presence, phase, level, target, sensor_power)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Time.Format(timeLayout), snap.RawLux, snap.FilteredLux, snap.LuxStale,
		string(snap.Light), string(snap.Presence), snap.RawPresence,
		string(snap.Phase), snap.Level, snap.Target, string(snap.SensorPower))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to record snapshot")
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Nop discards everything. Used when the recorder is disabled.
type Nop struct{}

func (Nop) RecordEvent(time.Time, string, string, string) {}

func (Nop) RecordSnapshot(model.Snapshot) {}

// Event is one recorded state transition.
type Event struct {
	At   time.Time
	Kind string
	From string
	To   string
}

// RecentEvents returns the newest transitions first.
func RecentEvents(path string, limit int) ([]Event, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open recorder database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT at, kind, from_state, to_state FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var at string
		if err := rows.Scan(&at, &e.Kind, &e.From, &e.To); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", at, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentSnapshots returns the newest snapshots first.
func RecentSnapshots(path string, limit int) ([]model.Snapshot, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open recorder database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT at, raw_lux, filtered_lux, lux_stale, light, presence, raw_presence, phase, level, target, sensor_power
		FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var at, light, pres, phase, power string
		if err := rows.Scan(&at, &snap.RawLux, &snap.FilteredLux, &snap.LuxStale,
			&light, &pres, &snap.RawPresence, &phase, &snap.Level, &snap.Target, &power); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Time, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot time %q: %w", at, err)
		}
		snap.Light = model.LightClass(light)
		snap.Presence = model.PresenceState(pres)
		snap.Phase = model.Phase(phase)
		snap.SensorPower = model.PowerState(power)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Prune deletes events and snapshots recorded before the cutoff.
func Prune(path string, cutoff time.Time) (int64, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, fmt.Errorf("open recorder database: %w", err)
	}
	defer db.Close()

	at := cutoff.Format(timeLayout)
	var total int64
	for _, table := range []string{"events", "snapshots"} {
		res, err := db.Exec(`DELETE FROM `+table+` WHERE at < ?`, at)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/conduit/pkg/api"
)

// SQLiteEventStore stores run events in SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteEventStore struct {
	db *sql.DB
}

// Ensure SQLiteEventStore implements the interface.
var _ api.EventStore = (*SQLiteEventStore)(nil)

// NewSQLiteEventStore initializes the required schema in the given
// database and returns a new SQLiteEventStore.
func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			step INTEGER NOT NULL DEFAULT -1,
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	if ev.RunID == "" {
		return ErrEmptyRunID
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, parent_id, at, type, name, step, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		ev.ParentID,
		at.UnixNano(),
		string(ev.Type),
		ev.Name,
		ev.Step,
		ev.Detail,
	)
	return err
}

func (s *SQLiteEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, parent_id, at, type, name, step, detail
		FROM run_events
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.RunEvent
	for rows.Next() {
		var (
			id     string
			parent string
			atN    int64
			typ    string
			name   string
			step   int
			detail string
		)
		if err := rows.Scan(&id, &parent, &atN, &typ, &name, &step, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.RunEvent{
			RunID:    id,
			ParentID: parent,
			At:       time.Unix(0, atN),
			Type:     api.EventType(typ),
			Name:     name,
			Step:     step,
			Detail:   detail,
		})
	}
	return out, rows.Err()
}

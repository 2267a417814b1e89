// Package sqlite provides a persistence bridge backed by an embedded
// SQLite database, suitable for on-device crash/restart recovery.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	schederrors "github.com/mediakit/mediasched/errors"
	"github.com/mediakit/mediasched/job"
)

//go:embed migrations/*.sql
var migrations embed.FS

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

// Bridge implements persistence.Bridge on a SQLite database file.
type Bridge struct {
	path string
	db   *sql.DB
}

// NewBridge creates a bridge storing its database at path.
func NewBridge(path string) *Bridge {
	return &Bridge{path: path}
}

// Connect opens the database and runs migrations.
func (b *Bridge) Connect(ctx context.Context) error {
	registerHook()

	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return schederrors.NewPersistenceError("open", "", err)
	}

	// WAL allows concurrent reads but only one writer
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return schederrors.NewPersistenceError("migrate", "", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return schederrors.NewPersistenceError("migrate", "", err)
	}

	b.db = db
	return nil
}

// Close closes the database.
func (b *Bridge) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Health checks the database connection.
func (b *Bridge) Health() error {
	if b.db == nil {
		return schederrors.ErrNotConnected
	}
	return b.db.Ping()
}

// Type returns the bridge type.
func (b *Bridge) Type() string {
	return "sqlite"
}

// Save upserts the record for a job.
func (b *Bridge) Save(ctx context.Context, j *job.Job) error {
	if b.db == nil {
		return schederrors.ErrNotConnected
	}

	record, err := json.Marshal(j)
	if err != nil {
		return schederrors.NewPersistenceError("save", j.ID, err)
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, record) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, record = excluded.record`,
		j.ID, string(j.Status), string(record))
	if err != nil {
		return schederrors.NewPersistenceError("save", j.ID, err)
	}
	return nil
}

// Delete removes the record for a job.
func (b *Bridge) Delete(ctx context.Context, jobID string) error {
	if b.db == nil {
		return schederrors.ErrNotConnected
	}

	if _, err := b.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID); err != nil {
		return schederrors.NewPersistenceError("delete", jobID, err)
	}
	return nil
}

// LoadAll returns every stored record keyed by job id.
func (b *Bridge) LoadAll(ctx context.Context) (map[string]*job.Job, error) {
	if b.db == nil {
		return nil, schederrors.ErrNotConnected
	}

	rows, err := b.db.QueryContext(ctx, `SELECT record FROM jobs`)
	if err != nil {
		return nil, schederrors.NewPersistenceError("load", "", err)
	}
	defer rows.Close()

	jobs := make(map[string]*job.Job)
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, schederrors.NewPersistenceError("load", "", err)
		}

		var j job.Job
		if err := json.Unmarshal([]byte(record), &j); err != nil {
			// A corrupt row should not block recovery of the rest.
			continue
		}
		jobs[j.ID] = &j
	}
	if err := rows.Err(); err != nil {
		return nil, schederrors.NewPersistenceError("load", "", err)
	}

	return jobs, nil
}

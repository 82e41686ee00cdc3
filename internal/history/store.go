// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a ledger of builder runs in a SQLite database so
// slow or failing module builds can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nots-builder/pkg/types"
)

const (
	dbFile       = "history.db"
	defaultLimit = 50

	// timeLayout has a fixed width so started_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Store is the build history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates dir/history.db and its schema.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS builds (
			id TEXT PRIMARY KEY,
			module TEXT NOT NULL,
			builder TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ns INTEGER NOT NULL,
			exit_code INTEGER NOT NULL,
			status TEXT NOT NULL,
			archive TEXT,
			digest TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_builds_module ON builds(module)`,
		`CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores rec and returns it with its assigned ID. An empty
// StartedAt is set to now.
func (s *Store) Record(ctx context.Context, rec types.BuildRecord) (types.BuildRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	rec.StartedAt = rec.StartedAt.UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, module, builder, started_at, duration_ns, exit_code, status, archive, digest, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Module, rec.Builder, rec.StartedAt.Format(timeLayout),
		int64(rec.Duration), rec.ExitCode, string(rec.Status),
		rec.Archive, rec.Digest, rec.Error,
	)
	if err != nil {
		return types.BuildRecord{}, fmt.Errorf("inserting build %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Query filters List results. Zero fields match everything.
type Query struct {
	Module  string
	Builder string
	Status  types.BuildStatus

	// Limit caps the result count. Zero uses the default of 50; a negative
	// value returns every match.
	Limit int
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]types.BuildRecord, error) {
	var (
		qb    strings.Builder
		args  []any
		where []string
	)
	qb.WriteString(`SELECT id, module, builder, started_at, duration_ns, exit_code, status, archive, digest, error FROM builds`)

	if q.Module != "" {
		where = append(where, "module = ?")
		args = append(args, q.Module)
	}
	if q.Builder != "" {
		where = append(where, "builder = ?")
		args = append(args, q.Builder)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if len(where) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(where, " AND "))
	}
	qb.WriteString(" ORDER BY started_at DESC, rowid DESC")

	limit := q.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > 0 {
		qb.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()

	var records []types.BuildRecord
	for rows.Next() {
		var (
			rec                     types.BuildRecord
			startedAt, status       string
			durationNs              int64
			archive, digest, errMsg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Module, &rec.Builder, &startedAt, &durationNs,
			&rec.ExitCode, &status, &archive, &digest, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		rec.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing started_at of %s: %w", rec.ID, err)
		}
		rec.Duration = time.Duration(durationNs)
		rec.Status = types.BuildStatus(status)
		rec.Archive = archive.String
		rec.Digest = digest.String
		rec.Error = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Export writes the records matching q to w as YAML or JSON.
func (s *Store) Export(ctx context.Context, w io.Writer, q Query, format string) error {
	if q.Limit == 0 {
		q.Limit = -1
	}
	records, err := s.List(ctx, q)
	if err != nil {
		return err
	}
	if records == nil {
		records = []types.BuildRecord{}
	}

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q (want %s or %s)", format, FormatYAML, FormatJSON)
	}
}

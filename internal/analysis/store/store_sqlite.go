package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"numintel/internal/analysis/models"
	id "numintel/pkg/domain"
	"numintel/pkg/platform/sentinel"
	"numintel/pkg/platform/tx"
)

// sqliteTimeLayout is fixed width so analyzed_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS analysis (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT    NOT NULL UNIQUE,
	number          TEXT    NOT NULL,
	entropy         REAL    NOT NULL,
	digital_root    INTEGER NOT NULL,
	id_type         TEXT    NOT NULL,
	crypto_strength TEXT    NOT NULL,
	origin          TEXT    NOT NULL,
	fraud_flags     TEXT    NOT NULL,
	analyzed_at     TEXT    NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS analysis_recent_idx ON analysis (analyzed_at DESC, seq DESC)`,
	`CREATE INDEX IF NOT EXISTS analysis_id_type_idx ON analysis (id_type)`,
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// SQLiteStore persists records in a local SQLite file (numbers.db by default).
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; also keeps a ":memory:" database on a single connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	s := NewSQLite(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an already opened database.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Migrate creates the table and indexes if missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts one record.
func (s *SQLiteStore) Save(ctx context.Context, r *models.Record) error {
	return s.insert(ctx, tx.Executor(ctx, s.db), r)
}

// SaveAll inserts every record in one transaction.
func (s *SQLiteStore) SaveAll(ctx context.Context, records []*models.Record) error {
	return tx.RunInTx(ctx, s.db, 0, func(ctx context.Context) error {
		exec := tx.Executor(ctx, s.db)
		for _, r := range records {
			if err := s.insert(ctx, exec, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) insert(ctx context.Context, exec tx.DBTX, r *models.Record) error {
	w := toRow(r)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO analysis (id, number, entropy, digital_root, id_type, crypto_strength, origin, fraud_flags, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.id, w.number, w.entropy, w.digitalRoot, w.idType, w.cryptoStrength, w.origin, w.fraudFlags,
		r.AnalyzedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("save analysis %s: %w", w.id, sentinel.ErrConflict)
		}
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// FindByID returns the record or sentinel.ErrNotFound.
func (s *SQLiteStore) FindByID(ctx context.Context, analysisID id.AnalysisID) (*models.Record, error) {
	rowResult := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM analysis WHERE id = ?`, analysisID.String())
	rec, err := scanRecord(rowResult, parseSQLiteTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find analysis: %w", err)
	}
	return rec, nil
}

// Recent returns up to filter.Limit matching records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error) {
	filter = filter.Normalize()

	var (
		where string
		args  []any
	)
	if len(filter.IDTypes) > 0 {
		where = ` WHERE id_type IN (?` + strings.Repeat(", ?", len(filter.IDTypes)-1) + `)`
		for _, t := range filter.IDTypeStrings() {
			args = append(args, t)
		}
	}
	args = append(args, filter.Limit)

	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx,
		`SELECT `+selectColumns+` FROM analysis`+where+` ORDER BY analyzed_at DESC, seq DESC LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent analyses: %w", err)
	}
	out, err := collect(rows, parseSQLiteTime)
	if err != nil {
		return nil, fmt.Errorf("scan recent analyses: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("scan analyzed_at %q: %w", s, err)
	}
	return t, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

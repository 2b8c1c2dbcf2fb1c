package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"numintel/internal/analysis/models"
	id "numintel/pkg/domain"
	"numintel/pkg/platform/sentinel"
	"numintel/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

var postgresSchema = []string{`
CREATE TABLE IF NOT EXISTS analysis (
	seq             BIGSERIAL PRIMARY KEY,
	id              UUID             NOT NULL UNIQUE,
	number          TEXT             NOT NULL,
	entropy         DOUBLE PRECISION NOT NULL,
	digital_root    SMALLINT         NOT NULL,
	id_type         TEXT             NOT NULL,
	crypto_strength TEXT             NOT NULL,
	origin          TEXT             NOT NULL,
	fraud_flags     TEXT             NOT NULL,
	analyzed_at     TIMESTAMPTZ      NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS analysis_recent_idx ON analysis (analyzed_at DESC, seq DESC)`,
	`CREATE INDEX IF NOT EXISTS analysis_id_type_idx ON analysis (id_type)`,
}

// PostgresStore persists records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with lib/pq, verifies the connection and applies the
// schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgres(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an already opened database.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the table and indexes if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Save inserts one record.
func (s *PostgresStore) Save(ctx context.Context, r *models.Record) error {
	return s.insert(ctx, tx.Executor(ctx, s.db), r)
}

// SaveAll inserts every record in one transaction.
func (s *PostgresStore) SaveAll(ctx context.Context, records []*models.Record) error {
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

func (s *PostgresStore) insert(ctx context.Context, exec tx.DBTX, r *models.Record) error {
	w := toRow(r)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO analysis (id, number, entropy, digital_root, id_type, crypto_strength, origin, fraud_flags, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.id, w.number, w.entropy, w.digitalRoot, w.idType, w.cryptoStrength, w.origin, w.fraudFlags,
		r.AnalyzedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return fmt.Errorf("save analysis %s: %w", w.id, sentinel.ErrConflict)
		}
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// FindByID returns the record or sentinel.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, analysisID id.AnalysisID) (*models.Record, error) {
	rowResult := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM analysis WHERE id = $1`, analysisID.String())
	rec, err := scanRecord(rowResult, utcTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find analysis: %w", err)
	}
	return rec, nil
}

// Recent returns up to filter.Limit matching records, newest first. An empty
// id type list disables the filter.
func (s *PostgresStore) Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error) {
	filter = filter.Normalize()

	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM analysis
		WHERE cardinality($1::text[]) = 0 OR id_type = ANY($1::text[])
		ORDER BY analyzed_at DESC, seq DESC
		LIMIT $2`,
		pq.Array(filter.IDTypeStrings()), filter.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent analyses: %w", err)
	}
	out, err := collect(rows, utcTime)
	if err != nil {
		return nil, fmt.Errorf("scan recent analyses: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func utcTime(t time.Time) (time.Time, error) {
	return t.UTC(), nil
}

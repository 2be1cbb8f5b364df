package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/okian/hrdesk/internal/domain/model"
)

// Postgres pool defaults.
const (
	pgMaxOpenConns    = 25
	pgMaxIdleConns    = 5
	pgConnMaxLifetime = 5 * time.Minute
)

// postgresSchema keeps every kind in one table, keyed by (collection, id),
// with the record encoded as JSONB.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS hr_records (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// ConnectPostgres opens a pooled connection and ensures the schema exists.
func ConnectPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	db.SetConnMaxLifetime(pgConnMaxLifetime)

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create hr_records: %w", describePQ(err))
	}
	return db, nil
}

// PostgresCollection stores one kind of record in the shared hr_records table.
type PostgresCollection[T model.Record] struct {
	db   *sqlx.DB
	kind model.Kind
}

// NewPostgresCollection binds kind to db.
func NewPostgresCollection[T model.Record](db *sqlx.DB, kind model.Kind) *PostgresCollection[T] {
	return &PostgresCollection[T]{db: db, kind: kind}
}

// List implements Collection. Id filtering happens in SQL; free-text search
// and paging run over the decoded records so every driver matches alike.
func (c *PostgresCollection[T]) List(ctx context.Context, q Query) ([]T, int, error) {
	var bodies [][]byte
	var err error
	if len(q.IDs) > 0 {
		err = c.db.SelectContext(ctx, &bodies,
			`SELECT body FROM hr_records WHERE collection = $1 AND id = ANY($2) ORDER BY id COLLATE "C"`,
			string(c.kind), pq.Array(q.IDs))
	} else {
		err = c.db.SelectContext(ctx, &bodies,
			`SELECT body FROM hr_records WHERE collection = $1 ORDER BY id COLLATE "C"`,
			string(c.kind))
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", c.kind, describePQ(err))
	}

	records := make([]T, 0, len(bodies))
	for _, body := range bodies {
		var rec T
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", c.kind, err)
		}
		records = append(records, rec)
	}
	// The column collation may not be bytewise; the other drivers are.
	sortByID(records)
	page, total := applyQuery(records, q)
	return page, total, nil
}

// Get implements Collection.
func (c *PostgresCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	var body []byte
	err := c.db.GetContext(ctx, &body,
		`SELECT body FROM hr_records WHERE collection = $1 AND id = $2`,
		string(c.kind), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, ErrNotFound
		}
		return rec, fmt.Errorf("get %s %s: %w", c.kind, id, describePQ(err))
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, fmt.Errorf("decode %s %s: %w", c.kind, id, err)
	}
	return rec, nil
}

// Upsert implements Collection.
func (c *PostgresCollection[T]) Upsert(ctx context.Context, rec T) error {
	id := rec.RecordID()
	if id == "" {
		return ErrMissingID
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO hr_records (collection, id, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		string(c.kind), id, body)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", c.kind, id, describePQ(err))
	}
	return nil
}

// Delete implements Collection.
func (c *PostgresCollection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM hr_records WHERE collection = $1 AND id = $2`,
		string(c.kind), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.kind, id, describePQ(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.kind, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count implements Collection.
func (c *PostgresCollection[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM hr_records WHERE collection = $1`, string(c.kind)); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.kind, describePQ(err))
	}
	return n, nil
}

// describePQ adds the SQLSTATE code to server-side errors.
func describePQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pqErr.Code)
	}
	return err
}

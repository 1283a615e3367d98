// Package store owns the database connection and the serializable
// transaction boundary that every settlement operation runs inside.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/metrics"
	"github.com/openhours/timebank/internal/retry"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute

	// txAttempts bounds serialization-failure retries per operation.
	txAttempts  = 3
	txBaseDelay = 25 * time.Millisecond
)

// DB wraps the sql pool and provides the transaction boundary.
type DB struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	slog.Info("connected to database", "dsn", maskDSN(databaseURL))
	return &DB{db: db}, nil
}

// NewFromDB wraps an existing pool. Used by tests that manage the
// connection themselves.
func NewFromDB(db *sql.DB) *DB { return &DB{db: db} }

// Close releases the underlying pool.
func (d *DB) Close() error { return d.db.Close() }

// Ping reports connectivity for health checks.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Stats exposes pool statistics for metrics.
func (d *DB) Stats() sql.DBStats { return d.db.Stats() }

// SQL returns the raw pool for read-only queries that don't need a transaction.
func (d *DB) SQL() *sql.DB { return d.db }

// WithinTx runs fn inside a serializable transaction. Serialization failures
// and deadlocks are retried a bounded number of times; every other error rolls
// back and is classified into an application error kind.
func (d *DB) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retry.Do(ctx, txAttempts, txBaseDelay, func() error {
		err := d.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if isSerializationFailure(err) {
			metrics.TxRetriesTotal.Inc()
			return err
		}
		return retry.Permanent(err)
	})
}

func (d *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Classify(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return Classify(err)
	}

	if err := tx.Commit(); err != nil {
		return Classify(err)
	}
	return nil
}

// isSerializationFailure reports whether err is a Postgres serialization
// failure (40001) or deadlock (40P01), both safe to retry.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	if e := errors.Unwrap(err); e != nil {
		return isSerializationFailure(e)
	}
	return false
}

// Classify maps database errors onto application error kinds. Errors that
// already carry a kind pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("record not found")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization failure, deadlock
			return apperr.Transient(err)
		case "23505": // unique_violation
			return apperr.Conflict("record already exists")
		case "23503": // foreign_key_violation
			return apperr.Validation("referenced record does not exist")
		case "23514": // check_violation
			return apperr.Validation("value violates a data constraint")
		}
		if pqErr.Code.Class() == "08" { // connection exceptions
			return apperr.Transient(err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Transient(err)
	}

	return apperr.Internal(err)
}

// maskDSN hides credentials so connection strings can be logged.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		if i := strings.Index(dsn, "@"); i >= 0 {
			return "***" + dsn[i:]
		}
		return dsn
	}
	return u.Redacted()
}

package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/store"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *store.DB
}

func NewPostgresStore(db *store.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AppendTx writes one ledger entry inside tx. It locks the member row so
// concurrent appends for the same member serialize, then derives
// balance_after from the latest committed entry. Callers that settle a
// booking use this inside the same transaction as the booking and escrow
// status writes, so an entry never commits without them.
func AppendTx(ctx context.Context, tx *sql.Tx, e *Entry) (*Entry, error) {
	var memberID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM members WHERE id = $1 FOR UPDATE`, e.MemberID,
	).Scan(&memberID)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("member %s not found", e.MemberID)
	}
	if err != nil {
		return nil, fmt.Errorf("locking member row: %w", err)
	}

	// Latest balance, id DESC breaks created_at ties.
	var latest decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT balance_after FROM ledger_entries
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, e.MemberID).Scan(&latest)
	if err == sql.ErrNoRows {
		latest = decimal.Zero
	} else if err != nil {
		return nil, fmt.Errorf("reading latest balance: %w", err)
	}

	e.BalanceAfter = latest.Add(e.Amount)

	err = tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (member_id, booking_id, txn_type, amount, balance_after, note)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.MemberID, e.BookingID, e.TxnType, e.Amount, e.BalanceAfter, e.Note).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting ledger entry: %w", err)
	}
	return e, nil
}

// Append writes one entry as its own atomic unit.
func (p *PostgresStore) Append(ctx context.Context, e *Entry) (*Entry, error) {
	err := p.db.WithinTx(ctx, func(tx *sql.Tx) error {
		_, err := AppendTx(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	// Counted only after the unit commits so rollbacks and serialization
	// retries do not inflate the counter.
	EntriesTotal.WithLabelValues(e.TxnType).Inc()
	return e, nil
}

// Balance returns the balance_after of the member's latest entry.
func (p *PostgresStore) Balance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	var exists bool
	err := p.db.SQL().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, memberID,
	).Scan(&exists)
	if err != nil {
		return decimal.Zero, store.Classify(err)
	}
	if !exists {
		return decimal.Zero, apperr.NotFound("member %s not found", memberID)
	}

	var bal decimal.Decimal
	err = p.db.SQL().QueryRowContext(ctx, `
		SELECT balance_after FROM ledger_entries
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, memberID).Scan(&bal)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, store.Classify(err)
	}
	return bal, nil
}

// History returns the member's entries newest first.
func (p *PostgresStore) History(ctx context.Context, memberID string, limit int) ([]*Entry, error) {
	rows, err := p.db.SQL().QueryContext(ctx, `
		SELECT id, member_id, COALESCE(booking_id, ''), txn_type, amount, balance_after, note, created_at
		FROM ledger_entries
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, memberID, limit)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.MemberID, &e.BookingID, &e.TxnType, &e.Amount, &e.BalanceAfter, &e.Note, &e.CreatedAt); err != nil {
			return nil, store.Classify(err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

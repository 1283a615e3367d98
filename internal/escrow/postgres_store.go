package escrow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/idgen"
	"github.com/openhours/timebank/internal/store"
)

// PostgresStore reads escrow rows outside a settlement transaction.
type PostgresStore struct {
	db *store.DB
}

func NewPostgresStore(db *store.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// HoldTx inserts a HELD escrow row for the booking inside tx. The unique
// constraint on booking_id guarantees at most one hold per booking.
func HoldTx(ctx context.Context, tx *sql.Tx, bookingID string, amount decimal.Decimal) (*Escrow, error) {
	e := &Escrow{
		ID:        idgen.WithPrefix("esc_"),
		BookingID: bookingID,
		Amount:    amount,
		Status:    StatusHeld,
	}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO escrow (id, booking_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, e.ID, e.BookingID, e.Amount, e.Status).Scan(&e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting escrow hold: %w", err)
	}
	return e, nil
}

// ReleaseTx moves the booking's escrow from HELD to RELEASED inside tx.
func ReleaseTx(ctx context.Context, tx *sql.Tx, bookingID string) error {
	return settle(ctx, tx, bookingID, StatusHeld, StatusReleased)
}

// RefundTx moves the booking's escrow from RELEASED to REFUNDED inside tx.
// Refunds happen on the dispute path, where completion has already released
// the hold to the provider; the refund reverses that release.
func RefundTx(ctx context.Context, tx *sql.Tx, bookingID string) error {
	return settle(ctx, tx, bookingID, StatusReleased, StatusRefunded)
}

// settle is a single conditional write. Zero rows affected means the escrow
// is not in the expected state (conflict) or never existed (not found); a
// second release or refund can never slip through.
func settle(ctx context.Context, tx *sql.Tx, bookingID, from, to string) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE escrow SET status = $2, settled_at = NOW()
		WHERE booking_id = $1 AND status = $3
	`, bookingID, to, from)
	if err != nil {
		return fmt.Errorf("settling escrow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("settling escrow: %w", err)
	}
	if n == 0 {
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM escrow WHERE booking_id = $1`, bookingID,
		).Scan(&status)
		if err == sql.ErrNoRows {
			return apperr.NotFound("no escrow exists for booking %s", bookingID)
		}
		if err != nil {
			return fmt.Errorf("checking escrow status: %w", err)
		}
		return apperr.Conflict("escrow for booking %s is %s, not %s", bookingID, status, from)
	}
	return nil
}

// AmountTx reads the held amount and status for a booking inside tx, taking
// a row lock so concurrent settlements serialize.
func AmountTx(ctx context.Context, tx *sql.Tx, bookingID string) (decimal.Decimal, string, error) {
	var amount decimal.Decimal
	var status string
	err := tx.QueryRowContext(ctx, `
		SELECT amount, status FROM escrow WHERE booking_id = $1 FOR UPDATE
	`, bookingID).Scan(&amount, &status)
	if err == sql.ErrNoRows {
		return decimal.Zero, "", apperr.NotFound("no escrow exists for booking %s", bookingID)
	}
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("reading escrow: %w", err)
	}
	return amount, status, nil
}

// GetByBooking returns the escrow row for a booking.
func (p *PostgresStore) GetByBooking(ctx context.Context, bookingID string) (*Escrow, error) {
	e := &Escrow{}
	err := p.db.SQL().QueryRowContext(ctx, `
		SELECT id, booking_id, amount, status, created_at, settled_at
		FROM escrow WHERE booking_id = $1
	`, bookingID).Scan(&e.ID, &e.BookingID, &e.Amount, &e.Status, &e.CreatedAt, &e.SettledAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("no escrow exists for booking %s", bookingID)
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return e, nil
}

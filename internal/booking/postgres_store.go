package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/escrow"
	"github.com/openhours/timebank/internal/idgen"
	"github.com/openhours/timebank/internal/ledger"
	"github.com/openhours/timebank/internal/metrics"
	"github.com/openhours/timebank/internal/store"
)

// PostgresStore implements Store with PostgreSQL. Every transition runs in
// one serializable transaction via store.DB.WithinTx.
type PostgresStore struct {
	db *store.DB
}

func NewPostgresStore(db *store.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create matches the request, inserts the booking, and holds escrow as one
// unit. The request row is locked for the transaction so concurrent
// creators serialize; the conditional OPEN->MATCHED update is what decides
// the winner.
func (p *PostgresStore) Create(ctx context.Context, requestID, providerID string, startTime time.Time, durationMinutes int) (*Booking, *escrow.Escrow, error) {
	var b *Booking
	var esc *escrow.Escrow

	err := p.db.WithinTx(ctx, func(tx *sql.Tx) error {
		var requesterID, reqStatus, offerID, offerProviderID string
		var rate decimal.Decimal
		err := tx.QueryRowContext(ctx, `
			SELECT r.member_id, r.status, o.id, o.provider_id, o.rate_per_hour
			FROM requests r
			JOIN offers o ON o.id = r.offer_id
			WHERE r.id = $1
			FOR UPDATE OF r
		`, requestID).Scan(&requesterID, &reqStatus, &offerID, &offerProviderID, &rate)
		if err == sql.ErrNoRows {
			return apperr.NotFound("request %s not found", requestID)
		}
		if err != nil {
			return fmt.Errorf("loading request: %w", err)
		}

		if offerProviderID != providerID {
			return apperr.Unauthorized("member %s does not own the requested offer", providerID)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE requests SET status = 'MATCHED' WHERE id = $1 AND status = 'OPEN'
		`, requestID)
		if err != nil {
			return fmt.Errorf("matching request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("request %s is not open", requestID)
		}

		b = &Booking{
			ID:              idgen.WithPrefix("bkg_"),
			RequestID:       requestID,
			OfferID:         offerID,
			ProviderID:      providerID,
			RequesterID:     requesterID,
			StartTime:       startTime,
			DurationMinutes: durationMinutes,
			Status:          StatusPending,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO bookings (id, request_id, offer_id, provider_id, requester_id, start_time, duration_minutes, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`, b.ID, b.RequestID, b.OfferID, b.ProviderID, b.RequesterID, b.StartTime, b.DurationMinutes, b.Status).
			Scan(&b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting booking: %w", err)
		}

		// Held amount is frozen here; offer rate changes never reprice it.
		esc, err = escrow.HoldTx(ctx, tx, b.ID, escrow.AmountFor(rate, durationMinutes))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	// Counted only after the unit commits so rollbacks and serialization
	// retries do not inflate the counter.
	metrics.EscrowsTotal.WithLabelValues(escrow.StatusHeld).Inc()
	return b, esc, nil
}

// Complete settles the booking as one unit: conditional PENDING->COMPLETED,
// escrow release, and the debit/credit ledger pair.
func (p *PostgresStore) Complete(ctx context.Context, bookingID, providerID string) (*Booking, decimal.Decimal, error) {
	var b *Booking
	var amount decimal.Decimal

	err := p.db.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = getForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.ProviderID != providerID {
			return apperr.Unauthorized("member %s is not the booking's provider", providerID)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE bookings SET status = 'COMPLETED', updated_at = NOW()
			WHERE id = $1 AND status = 'PENDING'
		`, bookingID)
		if err != nil {
			return fmt.Errorf("completing booking: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("booking %s is not pending", bookingID)
		}
		b.Status = StatusCompleted

		amount, _, err = escrow.AmountTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if err := escrow.ReleaseTx(ctx, tx, bookingID); err != nil {
			return err
		}

		// The PENDING-only precondition above guarantees exactly one
		// debit/credit pair per booking.
		if _, err := ledger.AppendTx(ctx, tx, &ledger.Entry{
			MemberID:  b.RequesterID,
			BookingID: bookingID,
			TxnType:   ledger.TxnDebit,
			Amount:    amount.Neg(),
			Note:      "settlement for booking " + bookingID,
		}); err != nil {
			return err
		}
		_, err = ledger.AppendTx(ctx, tx, &ledger.Entry{
			MemberID:  b.ProviderID,
			BookingID: bookingID,
			TxnType:   ledger.TxnCredit,
			Amount:    amount,
			Note:      "settlement for booking " + bookingID,
		})
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	metrics.EscrowsTotal.WithLabelValues(escrow.StatusReleased).Inc()
	ledger.EntriesTotal.WithLabelValues(ledger.TxnDebit).Inc()
	ledger.EntriesTotal.WithLabelValues(ledger.TxnCredit).Inc()
	return b, amount, nil
}

// GetByID returns one booking.
func (p *PostgresStore) GetByID(ctx context.Context, id string) (*Booking, error) {
	b := &Booking{}
	err := p.db.SQL().QueryRowContext(ctx, `
		SELECT id, request_id, offer_id, provider_id, requester_id, start_time, duration_minutes, status, created_at, updated_at
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.RequestID, &b.OfferID, &b.ProviderID, &b.RequesterID, &b.StartTime, &b.DurationMinutes, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("booking %s not found", id)
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return b, nil
}

// getForUpdate loads a booking inside tx with a row lock.
func getForUpdate(ctx context.Context, tx *sql.Tx, id string) (*Booking, error) {
	b := &Booking{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, request_id, offer_id, provider_id, requester_id, start_time, duration_minutes, status, created_at, updated_at
		FROM bookings WHERE id = $1
		FOR UPDATE
	`, id).Scan(&b.ID, &b.RequestID, &b.OfferID, &b.ProviderID, &b.RequesterID, &b.StartTime, &b.DurationMinutes, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("booking %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading booking: %w", err)
	}
	return b, nil
}

// GetForUpdateTx exposes the locked booking load to sibling packages that
// settle inside the same transaction.
func GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*Booking, error) {
	return getForUpdate(ctx, tx, id)
}

// SetStatusTx flips a booking's status inside tx as a conditional write and
// reports whether a row changed.
func SetStatusTx(ctx context.Context, tx *sql.Tx, id, from, to string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE bookings SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("updating booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating booking status: %w", err)
	}
	return n > 0, nil
}

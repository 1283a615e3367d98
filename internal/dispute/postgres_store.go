package dispute

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/booking"
	"github.com/openhours/timebank/internal/escrow"
	"github.com/openhours/timebank/internal/idgen"
	"github.com/openhours/timebank/internal/ledger"
	"github.com/openhours/timebank/internal/metrics"
	"github.com/openhours/timebank/internal/store"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *store.DB
}

func NewPostgresStore(db *store.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Raise inserts the dispute and flips the booking to DISPUTED as one unit.
func (p *PostgresStore) Raise(ctx context.Context, bookingID, memberID, reason string) (*Dispute, error) {
	var d *Dispute

	err := p.db.WithinTx(ctx, func(tx *sql.Tx) error {
		b, err := booking.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if memberID != b.RequesterID && memberID != b.ProviderID {
			return apperr.Unauthorized("member %s is not a participant of booking %s", memberID, bookingID)
		}

		// At most one dispute per booking, checked before insert; the
		// unique index on booking_id backs this up under concurrency.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM disputes WHERE booking_id = $1)`, bookingID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking existing dispute: %w", err)
		}
		if exists {
			return apperr.Conflict("a dispute already exists for booking %s", bookingID)
		}

		changed, err := booking.SetStatusTx(ctx, tx, bookingID, booking.StatusCompleted, booking.StatusDisputed)
		if err != nil {
			return err
		}
		if !changed {
			return apperr.Conflict("booking %s is not completed", bookingID)
		}

		d = &Dispute{
			ID:        idgen.WithPrefix("dsp_"),
			BookingID: bookingID,
			RaisedBy:  memberID,
			Reason:    reason,
			Status:    StatusOpen,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO disputes (id, booking_id, raised_by, reason, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at
		`, d.ID, d.BookingID, d.RaisedBy, d.Reason, d.Status).Scan(&d.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting dispute: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Resolve closes the dispute and applies the refund branch as one unit.
func (p *PostgresStore) Resolve(ctx context.Context, disputeID, adminID, resolution, notes string, refund decimal.Decimal) (*Dispute, error) {
	var d *Dispute

	err := p.db.WithinTx(ctx, func(tx *sql.Tx) error {
		d = &Dispute{}
		err := tx.QueryRowContext(ctx, `
			SELECT id, booking_id, raised_by, reason, status, created_at
			FROM disputes WHERE id = $1
			FOR UPDATE
		`, disputeID).Scan(&d.ID, &d.BookingID, &d.RaisedBy, &d.Reason, &d.Status, &d.CreatedAt)
		if err == sql.ErrNoRows {
			return apperr.NotFound("dispute %s not found", disputeID)
		}
		if err != nil {
			return fmt.Errorf("loading dispute: %w", err)
		}

		b, err := booking.GetForUpdateTx(ctx, tx, d.BookingID)
		if err != nil {
			return err
		}
		heldAmount, _, err := escrow.AmountTx(ctx, tx, d.BookingID)
		if err != nil {
			return err
		}

		refunding := resolution == StatusResolved && refund.IsPositive()
		if refunding && refund.GreaterThan(heldAmount) {
			return apperr.Validation("refund amount exceeds the escrow amount %s", heldAmount)
		}

		// Closing the dispute is conditional on it still being OPEN, so
		// two concurrent resolutions decide exactly one winner.
		res, err := tx.ExecContext(ctx, `
			UPDATE disputes
			SET status = $2, resolved_by = $3, resolution_notes = $4,
			    refund_amount = NULLIF($5::NUMERIC(12,2), 0), resolved_at = NOW()
			WHERE id = $1 AND status = 'OPEN'
		`, disputeID, resolution, adminID, notes, refund)
		if err != nil {
			return fmt.Errorf("closing dispute: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("dispute %s is already closed", disputeID)
		}

		if refunding {
			if err := escrow.RefundTx(ctx, tx, d.BookingID); err != nil {
				return err
			}
			changed, err := booking.SetStatusTx(ctx, tx, d.BookingID, booking.StatusDisputed, booking.StatusCancelled)
			if err != nil {
				return err
			}
			if !changed {
				return apperr.Conflict("booking %s is not disputed", d.BookingID)
			}

			if _, err := ledger.AppendTx(ctx, tx, &ledger.Entry{
				MemberID:  b.RequesterID,
				BookingID: d.BookingID,
				TxnType:   ledger.TxnRefund,
				Amount:    refund,
				Note:      "dispute refund for booking " + d.BookingID,
			}); err != nil {
				return err
			}
			if _, err := ledger.AppendTx(ctx, tx, &ledger.Entry{
				MemberID:  b.ProviderID,
				BookingID: d.BookingID,
				TxnType:   ledger.TxnAdjustment,
				Amount:    refund.Neg(),
				Note:      "dispute clawback for booking " + d.BookingID,
			}); err != nil {
				return err
			}
		} else {
			// Rejected, or resolved without a refund: the dispute closes
			// and the prior settlement stands.
			changed, err := booking.SetStatusTx(ctx, tx, d.BookingID, booking.StatusDisputed, booking.StatusCompleted)
			if err != nil {
				return err
			}
			if !changed {
				return apperr.Conflict("booking %s is not disputed", d.BookingID)
			}
		}

		d.Status = resolution
		d.ResolvedBy = adminID
		d.ResolutionNotes = notes
		if refunding {
			d.RefundAmount = &refund
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if d.RefundAmount != nil {
		metrics.EscrowsTotal.WithLabelValues(escrow.StatusRefunded).Inc()
		ledger.EntriesTotal.WithLabelValues(ledger.TxnRefund).Inc()
		ledger.EntriesTotal.WithLabelValues(ledger.TxnAdjustment).Inc()
	}
	return d, nil
}

// GetByID returns one dispute.
func (p *PostgresStore) GetByID(ctx context.Context, id string) (*Dispute, error) {
	d := &Dispute{}
	var resolvedBy sql.NullString
	var refund decimal.NullDecimal
	err := p.db.SQL().QueryRowContext(ctx, `
		SELECT id, booking_id, raised_by, reason, status, resolved_by, resolution_notes, refund_amount, created_at, resolved_at
		FROM disputes WHERE id = $1
	`, id).Scan(&d.ID, &d.BookingID, &d.RaisedBy, &d.Reason, &d.Status, &resolvedBy, &d.ResolutionNotes, &refund, &d.CreatedAt, &d.ResolvedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("dispute %s not found", id)
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	d.ResolvedBy = resolvedBy.String
	if refund.Valid {
		d.RefundAmount = &refund.Decimal
	}
	return d, nil
}

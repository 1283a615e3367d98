// Package dispute settles disagreements over completed bookings. A
// participant raises a dispute, an admin resolves it, and a resolution with
// a refund claws the settlement back through the ledger.
package dispute

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/logging"
	"github.com/openhours/timebank/internal/traces"
	"github.com/openhours/timebank/internal/validation"
)

// Dispute statuses.
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"
	StatusRejected = "REJECTED"
)

const (
	minReasonLen = 10
	maxReasonLen = 2000
)

// Dispute is one disagreement over a booking. At most one dispute ever
// exists per booking.
type Dispute struct {
	ID              string           `json:"id"`
	BookingID       string           `json:"bookingId"`
	RaisedBy        string           `json:"raisedBy"`
	Reason          string           `json:"reason"`
	Status          string           `json:"status"`
	ResolvedBy      string           `json:"resolvedBy,omitempty"`
	ResolutionNotes string           `json:"resolutionNotes,omitempty"`
	RefundAmount    *decimal.Decimal `json:"refundAmount,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	ResolvedAt      *time.Time       `json:"resolvedAt,omitempty"`
}

// Store runs dispute transitions atomically.
type Store interface {
	// Raise inserts the OPEN dispute and moves the booking to DISPUTED as
	// one unit.
	Raise(ctx context.Context, bookingID, memberID, reason string) (*Dispute, error)
	// Resolve closes the dispute. A RESOLVED outcome with a positive
	// refund refunds escrow, cancels the booking, and writes the
	// REFUND/ADJUSTMENT ledger pair; otherwise the booking reverts to
	// COMPLETED and the original settlement stands.
	Resolve(ctx context.Context, disputeID, adminID, resolution, notes string, refund decimal.Decimal) (*Dispute, error)
	GetByID(ctx context.Context, id string) (*Dispute, error)
}

// Service validates inputs and delegates transitions to the Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Raise opens a dispute on a completed booking for one of its participants.
func (s *Service) Raise(ctx context.Context, bookingID, memberID, reason string) (*Dispute, error) {
	ctx, span := traces.Start(ctx, "dispute.Raise", traces.BookingID(bookingID), traces.MemberID(memberID))
	defer span.End()

	reason = strings.TrimSpace(reason)
	if err := validation.Length("reason", reason, minReasonLen, maxReasonLen); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	d, err := s.store.Raise(ctx, bookingID, memberID, reason)
	if err != nil {
		return nil, err
	}

	disputesRaised.Inc()
	logging.L(ctx).Info("dispute raised",
		"dispute_id", d.ID,
		"booking_id", bookingID,
		"raised_by", memberID)
	return d, nil
}

// Resolve closes an open dispute with the admin's verdict.
func (s *Service) Resolve(ctx context.Context, disputeID, adminID, resolution, notes string, refund decimal.Decimal) (*Dispute, error) {
	ctx, span := traces.Start(ctx, "dispute.Resolve", traces.DisputeID(disputeID), traces.Amount(refund.String()))
	defer span.End()

	if resolution != StatusResolved && resolution != StatusRejected {
		return nil, apperr.Validation("resolution must be RESOLVED or REJECTED")
	}
	if refund.IsNegative() {
		return nil, apperr.Validation("refund amount must not be negative")
	}
	if refund.Exponent() < -2 {
		return nil, apperr.Validation("refund amount must have at most two decimal places")
	}
	if resolution == StatusRejected && refund.IsPositive() {
		return nil, apperr.Validation("a rejected dispute cannot carry a refund")
	}

	d, err := s.store.Resolve(ctx, disputeID, adminID, resolution, strings.TrimSpace(notes), refund)
	if err != nil {
		return nil, err
	}

	disputesResolved.WithLabelValues(resolution).Inc()
	logging.L(ctx).Info("dispute resolved",
		"dispute_id", d.ID,
		"resolution", resolution,
		"resolved_by", adminID,
		"refund", refund.String())
	return d, nil
}

// Get returns one dispute.
func (s *Service) Get(ctx context.Context, id string) (*Dispute, error) {
	return s.store.GetByID(ctx, id)
}

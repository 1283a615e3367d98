// Package booking drives the settlement lifecycle: an OPEN request becomes
// a PENDING booking with escrow held, and completion releases escrow while
// writing the debit/credit pair to the ledger.
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/escrow"
	"github.com/openhours/timebank/internal/logging"
	"github.com/openhours/timebank/internal/traces"
	"github.com/openhours/timebank/internal/validation"
)

// Booking statuses. PENDING moves to COMPLETED or CANCELLED; COMPLETED
// moves to DISPUTED while a dispute is open, then back to COMPLETED or on
// to CANCELLED. IN_PROGRESS is reserved for future scheduling semantics
// and is never produced by any current transition.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusDisputed   = "DISPUTED"
)

// MinDurationMinutes is the shortest bookable session.
const MinDurationMinutes = 15

// Booking is one matched request. It owns its escrow row; both are created
// in the same transaction.
type Booking struct {
	ID              string    `json:"id"`
	RequestID       string    `json:"requestId"`
	OfferID         string    `json:"offerId"`
	ProviderID      string    `json:"providerId"`
	RequesterID     string    `json:"requesterId"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Store runs booking transitions. Implementations execute each call as one
// atomic unit with every precondition re-checked against committed state.
type Store interface {
	// Create matches an OPEN request, inserts the PENDING booking, and
	// holds escrow. Exactly one booking can ever result from a request.
	Create(ctx context.Context, requestID, providerID string, startTime time.Time, durationMinutes int) (*Booking, *escrow.Escrow, error)
	// Complete settles a PENDING booking: status COMPLETED, escrow
	// released, debit/credit pair appended.
	Complete(ctx context.Context, bookingID, providerID string) (*Booking, decimal.Decimal, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
}

// Service validates inputs and delegates transitions to the Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create books an open request on behalf of the offer's provider.
func (s *Service) Create(ctx context.Context, requestID, providerID string, startTime time.Time, durationMinutes int) (*Booking, *escrow.Escrow, error) {
	ctx, span := traces.Start(ctx, "booking.Create", traces.MemberID(providerID))
	defer span.End()

	if err := validation.DurationMinutes(durationMinutes); err != nil {
		return nil, nil, apperr.Validation("%s", err)
	}
	if durationMinutes < MinDurationMinutes {
		return nil, nil, apperr.Validation("duration must be at least %d minutes", MinDurationMinutes)
	}
	if startTime.IsZero() {
		return nil, nil, apperr.Validation("startTime is required")
	}

	b, esc, err := s.store.Create(ctx, requestID, providerID, startTime, durationMinutes)
	if err != nil {
		return nil, nil, err
	}

	bookingsCreated.Inc()
	logging.L(ctx).Info("booking created",
		"booking_id", b.ID,
		"request_id", requestID,
		"provider_id", providerID,
		"held_amount", esc.Amount.String())
	return b, esc, nil
}

// Complete settles a pending booking on behalf of its provider.
func (s *Service) Complete(ctx context.Context, bookingID, providerID string) (*Booking, decimal.Decimal, error) {
	ctx, span := traces.Start(ctx, "booking.Complete", traces.BookingID(bookingID), traces.MemberID(providerID))
	defer span.End()

	b, amount, err := s.store.Complete(ctx, bookingID, providerID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	bookingsCompleted.Inc()
	logging.L(ctx).Info("booking completed",
		"booking_id", b.ID,
		"provider_id", providerID,
		"settled_amount", amount.String())
	return b, amount, nil
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, id string) (*Booking, error) {
	return s.store.GetByID(ctx, id)
}

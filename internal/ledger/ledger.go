// Package ledger keeps the append-only time-credit journal.
//
// Every balance-affecting event is one immutable Entry carrying a running
// balance_after snapshot. A member's current balance is always the
// balance_after of their latest entry; no separately maintained balance
// column exists, so replaying the journal reproduces every balance exactly.
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/logging"
	"github.com/openhours/timebank/internal/validation"
)

// Transaction types. CREDIT/DEBIT pairs come from booking settlement,
// REFUND/ADJUSTMENT pairs from dispute refunds, and lone ADJUSTMENT
// entries from admin corrections.
const (
	TxnCredit     = "CREDIT"
	TxnDebit      = "DEBIT"
	TxnAdjustment = "ADJUSTMENT"
	TxnRefund     = "REFUND"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	minReasonLen = 5
	maxReasonLen = 255
)

// Entry is one immutable ledger record. Entries are never updated or
// deleted; per member they form a total order by (created_at, id).
type Entry struct {
	ID           int64           `json:"id"`
	MemberID     string          `json:"memberId"`
	BookingID    string          `json:"bookingId,omitempty"`
	TxnType      string          `json:"txnType"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Store persists ledger entries.
type Store interface {
	// Append writes one entry as its own atomic unit, computing
	// balance_after from the member's latest entry.
	Append(ctx context.Context, e *Entry) (*Entry, error)
	// Balance returns the balance_after of the member's latest entry,
	// or zero if the member has no entries.
	Balance(ctx context.Context, memberID string) (decimal.Decimal, error)
	History(ctx context.Context, memberID string, limit int) ([]*Entry, error)
}

// Service exposes the ledger operations reachable from outside a
// settlement transaction: admin adjustments and reads.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// AdminAdjust appends a single ADJUSTMENT entry outside any booking.
// The amount may be positive or negative but never zero; the note records
// the acting admin and the supplied reason.
func (s *Service) AdminAdjust(ctx context.Context, adminID, memberID string, amount decimal.Decimal, reason string) (*Entry, error) {
	done := observeOp("admin_adjust")
	defer done()

	if amount.IsZero() {
		return nil, apperr.Validation("adjustment amount must not be zero")
	}
	if amount.Exponent() < -2 {
		return nil, apperr.Validation("adjustment amount must have at most two decimal places")
	}
	reason = strings.TrimSpace(reason)
	if err := validation.Length("reason", reason, minReasonLen, maxReasonLen); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	entry, err := s.store.Append(ctx, &Entry{
		MemberID: memberID,
		TxnType:  TxnAdjustment,
		Amount:   amount,
		Note:     "admin adjustment by " + adminID + ": " + reason,
	})
	if err != nil {
		return nil, err
	}

	logging.L(ctx).Info("admin ledger adjustment",
		"admin_id", adminID,
		"member_id", memberID,
		"amount", amount.String(),
		"entry_id", entry.ID)
	return entry, nil
}

// Balance returns a member's current balance.
func (s *Service) Balance(ctx context.Context, memberID string) (decimal.Decimal, error) {
	done := observeOp("balance")
	defer done()
	return s.store.Balance(ctx, memberID)
}

// History returns a member's entries, newest first.
func (s *Service) History(ctx context.Context, memberID string, limit int) ([]*Entry, error) {
	done := observeOp("history")
	defer done()

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.store.History(ctx, memberID, limit)
}

// Package escrow holds time credits against a booking until completion or
// dispute resolution settles them.
package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

// Escrow statuses. Completion moves HELD to RELEASED; a dispute refund
// moves RELEASED to REFUNDED. Neither transition runs twice and nothing
// moves backward.
const (
	StatusHeld     = "HELD"
	StatusReleased = "RELEASED"
	StatusRefunded = "REFUNDED"
)

// Escrow is the hold for one booking (1:1). The amount is computed once at
// booking creation and never recomputed, so later offer rate changes cannot
// affect an existing booking.
type Escrow struct {
	ID        string          `json:"id"`
	BookingID string          `json:"bookingId"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	SettledAt *time.Time      `json:"settledAt,omitempty"`
}

var minutesPerHour = decimal.NewFromInt(60)

// AmountFor converts an hourly rate and a duration in minutes into the held
// amount, rounded to the ledger's two decimal places.
func AmountFor(ratePerHour decimal.Decimal, durationMinutes int) decimal.Decimal {
	return ratePerHour.
		Mul(decimal.NewFromInt(int64(durationMinutes))).
		Div(minutesPerHour).
		Round(2)
}

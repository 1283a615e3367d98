package escrow

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/store"
	"github.com/openhours/timebank/internal/testutil"
)

// seedBooking inserts the rows the escrow FK chain needs and returns the
// booking id to hold against.
func seedBooking(t *testing.T) (*store.DB, *sql.DB, string, func()) {
	t.Helper()
	raw, cleanup := testutil.PGTest(t)

	stmts := []string{
		`INSERT INTO members (id, name, email, is_provider) VALUES ('mem_prov', 'Priya', 'priya@example.com', TRUE)`,
		`INSERT INTO members (id, name, email) VALUES ('mem_req', 'Sam', 'sam@example.com')`,
		`INSERT INTO offers (id, provider_id, title, rate_per_hour) VALUES ('off_1', 'mem_prov', 'Garden help', 2.00)`,
		`INSERT INTO requests (id, offer_id, member_id, status) VALUES ('req_1', 'off_1', 'mem_req', 'MATCHED')`,
		`INSERT INTO bookings (id, request_id, offer_id, provider_id, requester_id, start_time, duration_minutes)
		 VALUES ('bkg_1', 'req_1', 'off_1', 'mem_prov', 'mem_req', NOW(), 60)`,
	}
	for _, s := range stmts {
		if _, err := raw.Exec(s); err != nil {
			cleanup()
			t.Fatalf("seed: %v", err)
		}
	}
	return store.NewFromDB(raw), raw, "bkg_1", cleanup
}

func escrowStatus(t *testing.T, raw *sql.DB, bookingID string) string {
	t.Helper()
	var status string
	if err := raw.QueryRow(`SELECT status FROM escrow WHERE booking_id = $1`, bookingID).Scan(&status); err != nil {
		t.Fatalf("query escrow: %v", err)
	}
	return status
}

func TestSettlementOrder(t *testing.T) {
	db, raw, bookingID, cleanup := seedBooking(t)
	defer cleanup()
	ctx := context.Background()

	err := db.WithinTx(ctx, func(tx *sql.Tx) error {
		_, err := HoldTx(ctx, tx, bookingID, decimal.RequireFromString("2.00"))
		return err
	})
	if err != nil {
		t.Fatalf("hold: %v", err)
	}

	// A refund cannot jump ahead of the release.
	err = db.WithinTx(ctx, func(tx *sql.Tx) error {
		return RefundTx(ctx, tx, bookingID)
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("refund of held escrow: expected conflict, got %v", err)
	}
	if got := escrowStatus(t, raw, bookingID); got != StatusHeld {
		t.Fatalf("escrow status = %s, want HELD", got)
	}

	if err := db.WithinTx(ctx, func(tx *sql.Tx) error {
		return ReleaseTx(ctx, tx, bookingID)
	}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := escrowStatus(t, raw, bookingID); got != StatusReleased {
		t.Fatalf("escrow status = %s, want RELEASED", got)
	}

	// A released escrow can be refunded exactly once.
	if err := db.WithinTx(ctx, func(tx *sql.Tx) error {
		return RefundTx(ctx, tx, bookingID)
	}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := escrowStatus(t, raw, bookingID); got != StatusRefunded {
		t.Fatalf("escrow status = %s, want REFUNDED", got)
	}
	err = db.WithinTx(ctx, func(tx *sql.Tx) error {
		return RefundTx(ctx, tx, bookingID)
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("second refund: expected conflict, got %v", err)
	}
}

func TestSecondReleaseConflicts(t *testing.T) {
	db, _, bookingID, cleanup := seedBooking(t)
	defer cleanup()
	ctx := context.Background()

	if err := db.WithinTx(ctx, func(tx *sql.Tx) error {
		if _, err := HoldTx(ctx, tx, bookingID, decimal.RequireFromString("2.00")); err != nil {
			return err
		}
		return ReleaseTx(ctx, tx, bookingID)
	}); err != nil {
		t.Fatalf("hold+release: %v", err)
	}

	err := db.WithinTx(ctx, func(tx *sql.Tx) error {
		return ReleaseTx(ctx, tx, bookingID)
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("second release: expected conflict, got %v", err)
	}
}

func TestSettleMissingEscrow(t *testing.T) {
	db, _, _, cleanup := seedBooking(t)
	defer cleanup()
	ctx := context.Background()

	err := db.WithinTx(ctx, func(tx *sql.Tx) error {
		return ReleaseTx(ctx, tx, "bkg_none")
	})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

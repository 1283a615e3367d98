package rating

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/booking"
	"github.com/openhours/timebank/internal/store"
	"github.com/openhours/timebank/internal/testutil"
)

func seedCompleted(t *testing.T) (*Service, *booking.Booking, *sql.DB, func()) {
	t.Helper()
	raw, cleanup := testutil.PGTest(t)
	db := store.NewFromDB(raw)

	stmts := []string{
		`INSERT INTO members (id, name, email, is_provider) VALUES ('mem_prov', 'Priya', 'priya@example.com', TRUE)`,
		`INSERT INTO members (id, name, email) VALUES ('mem_req', 'Sam', 'sam@example.com')`,
		`INSERT INTO offers (id, provider_id, title, rate_per_hour) VALUES ('off_1', 'mem_prov', 'Garden help', 2.00)`,
		`INSERT INTO requests (id, offer_id, member_id) VALUES ('req_1', 'off_1', 'mem_req')`,
	}
	for _, s := range stmts {
		if _, err := raw.Exec(s); err != nil {
			cleanup()
			t.Fatalf("seed: %v", err)
		}
	}

	ctx := context.Background()
	bookings := booking.NewPostgresStore(db)
	b, _, err := bookings.Create(ctx, "req_1", "mem_prov", time.Date(2026, 9, 5, 10, 0, 0, 0, time.UTC), 60)
	if err != nil {
		cleanup()
		t.Fatalf("create booking: %v", err)
	}
	if _, _, err := bookings.Complete(ctx, b.ID, "mem_prov"); err != nil {
		cleanup()
		t.Fatalf("complete booking: %v", err)
	}
	return NewService(db), b, raw, cleanup
}

func TestRateCompletedBooking(t *testing.T) {
	svc, b, _, cleanup := seedCompleted(t)
	defer cleanup()
	ctx := context.Background()

	r, err := svc.Rate(ctx, b.ID, "mem_req", 5, "great work")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r.RateeID != "mem_prov" {
		t.Errorf("ratee = %s, want mem_prov (the counterpart)", r.RateeID)
	}

	// Both sides may rate once each.
	if _, err := svc.Rate(ctx, b.ID, "mem_prov", 4, ""); err != nil {
		t.Fatalf("counterpart rate: %v", err)
	}
	if _, err := svc.Rate(ctx, b.ID, "mem_req", 3, ""); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("second rating by same member: expected conflict, got %v", err)
	}

	ratings, err := svc.ForBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ratings) != 2 {
		t.Errorf("got %d ratings, want 2", len(ratings))
	}
}

func TestRateGuards(t *testing.T) {
	svc, b, _, cleanup := seedCompleted(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Rate(ctx, b.ID, "mem_req", 0, ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("score 0: expected validation error, got %v", err)
	}
	if _, err := svc.Rate(ctx, b.ID, "mem_stranger", 5, ""); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("non-participant: expected unauthorized, got %v", err)
	}
	if _, err := svc.Rate(ctx, "bkg_missing", "mem_req", 5, ""); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("missing booking: expected not found, got %v", err)
	}
}

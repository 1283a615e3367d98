package dispute

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
)

// fakeStore records calls; transition semantics live in the Postgres tests.
type fakeStore struct {
	raised   *Dispute
	resolved *Dispute
}

func (f *fakeStore) Raise(ctx context.Context, bookingID, memberID, reason string) (*Dispute, error) {
	f.raised = &Dispute{ID: "dsp_1", BookingID: bookingID, RaisedBy: memberID, Reason: reason, Status: StatusOpen}
	return f.raised, nil
}

func (f *fakeStore) Resolve(ctx context.Context, disputeID, adminID, resolution, notes string, refund decimal.Decimal) (*Dispute, error) {
	f.resolved = &Dispute{ID: disputeID, Status: resolution, ResolvedBy: adminID, ResolutionNotes: notes}
	return f.resolved, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*Dispute, error) {
	return nil, apperr.NotFound("dispute %s not found", id)
}

func TestRaiseReasonBounds(t *testing.T) {
	svc := NewService(&fakeStore{})
	ctx := context.Background()

	tests := []struct {
		name    string
		reason  string
		wantErr bool
	}{
		{"too short", "too short", true}, // 9 chars
		{"minimum length", "0123456789", false},
		{"too long", strings.Repeat("x", 2001), true},
		{"maximum length", strings.Repeat("x", 2000), false},
		{"whitespace only", "             ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Raise(ctx, "bkg_1", "mem_1", tt.reason)
			if tt.wantErr && apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolveValidation(t *testing.T) {
	svc := NewService(&fakeStore{})
	ctx := context.Background()

	tests := []struct {
		name       string
		resolution string
		refund     string
	}{
		{"unknown resolution", "MAYBE", "0"},
		{"negative refund", StatusResolved, "-1.00"},
		{"refund on rejection", StatusRejected, "2.00"},
		{"sub-cent refund", StatusResolved, "0.005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Resolve(ctx, "dsp_1", "admin_1", tt.resolution, "", decimal.RequireFromString(tt.refund))
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolveAccepted(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	d, err := svc.Resolve(context.Background(), "dsp_1", "admin_1", StatusResolved, "provider no-show", decimal.RequireFromString("3.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusResolved {
		t.Errorf("status = %s, want RESOLVED", d.Status)
	}
	if store.resolved.ResolvedBy != "admin_1" {
		t.Errorf("resolved_by = %s, want admin_1", store.resolved.ResolvedBy)
	}
}

func TestResolveRejectedWithZeroRefund(t *testing.T) {
	svc := NewService(&fakeStore{})
	if _, err := svc.Resolve(context.Background(), "dsp_1", "admin_1", StatusRejected, "insufficient evidence", decimal.Zero); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

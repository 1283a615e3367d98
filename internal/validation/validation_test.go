package validation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRequired(t *testing.T) {
	if err := Required("name", "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Required("name", "   "); err == nil {
		t.Fatal("expected error for blank value")
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		value   string
		min     int
		max     int
		wantErr bool
	}{
		{"hello", 1, 10, false},
		{"hi", 3, 10, true},
		{"  hello  ", 5, 5, false}, // trimmed
		{"toolongvalue", 1, 5, true},
	}
	for _, tt := range tests {
		err := Length("field", tt.value, tt.min, tt.max)
		if (err != nil) != tt.wantErr {
			t.Errorf("Length(%q, %d, %d) error = %v, wantErr %v", tt.value, tt.min, tt.max, err, tt.wantErr)
		}
	}
}

func TestPositiveAmount(t *testing.T) {
	tests := []struct {
		amount  string
		wantErr bool
	}{
		{"3.00", false},
		{"0.01", false},
		{"0", true},
		{"-1.50", true},
		{"1.999", true}, // three decimal places
	}
	for _, tt := range tests {
		d := decimal.RequireFromString(tt.amount)
		err := PositiveAmount("amount", d)
		if (err != nil) != tt.wantErr {
			t.Errorf("PositiveAmount(%s) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
		}
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("rate", " 2.50 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("got %s, want 2.50", d)
	}
	if _, err := ParseAmount("rate", "abc"); err == nil {
		t.Fatal("expected error for non-numeric input")
	}
	if _, err := ParseAmount("rate", "-5"); err == nil {
		t.Fatal("expected error for negative input")
	}
}

func TestDurationMinutes(t *testing.T) {
	if err := DurationMinutes(90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DurationMinutes(0); err == nil {
		t.Fatal("expected error for zero duration")
	}
	if err := DurationMinutes(24*60 + 1); err == nil {
		t.Fatal("expected error for over-long duration")
	}
}

func TestRatingScore(t *testing.T) {
	for _, s := range []int{1, 3, 5} {
		if err := RatingScore(s); err != nil {
			t.Errorf("RatingScore(%d) unexpected error: %v", s, err)
		}
	}
	for _, s := range []int{0, 6, -1} {
		if err := RatingScore(s); err == nil {
			t.Errorf("RatingScore(%d) expected error", s)
		}
	}
}

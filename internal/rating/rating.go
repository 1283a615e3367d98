// Package rating lets booking participants rate each other after a
// completed session.
package rating

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/booking"
	"github.com/openhours/timebank/internal/idgen"
	"github.com/openhours/timebank/internal/store"
	"github.com/openhours/timebank/internal/validation"
)

const maxCommentsLen = 1000

// Rating is one participant's score for the other party of a booking.
type Rating struct {
	ID        string    `json:"id"`
	BookingID string    `json:"bookingId"`
	RaterID   string    `json:"raterId"`
	RateeID   string    `json:"rateeId"`
	Score     int       `json:"score"`
	Comments  string    `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service implements rating operations directly over the database; the
// only transition is a guarded insert.
type Service struct {
	db *store.DB
}

func NewService(db *store.DB) *Service {
	return &Service{db: db}
}

// Rate records a score for the booking's counterpart. Only participants of
// a COMPLETED booking may rate, once each.
func (s *Service) Rate(ctx context.Context, bookingID, raterID string, score int, comments string) (*Rating, error) {
	if err := validation.RatingScore(score); err != nil {
		return nil, apperr.Validation("%s", err)
	}
	comments = strings.TrimSpace(comments)
	if len(comments) > maxCommentsLen {
		return nil, apperr.Validation("comments must not exceed %d characters", maxCommentsLen)
	}

	var r *Rating
	err := s.db.WithinTx(ctx, func(tx *sql.Tx) error {
		b, err := booking.GetForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		var rateeID string
		switch raterID {
		case b.RequesterID:
			rateeID = b.ProviderID
		case b.ProviderID:
			rateeID = b.RequesterID
		default:
			return apperr.Unauthorized("member %s is not a participant of booking %s", raterID, bookingID)
		}
		if b.Status != booking.StatusCompleted {
			return apperr.Conflict("booking %s is not completed", bookingID)
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM ratings WHERE booking_id = $1 AND rater_id = $2)`,
			bookingID, raterID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking existing rating: %w", err)
		}
		if exists {
			return apperr.Conflict("booking %s is already rated by member %s", bookingID, raterID)
		}

		r = &Rating{
			ID:        idgen.WithPrefix("rat_"),
			BookingID: bookingID,
			RaterID:   raterID,
			RateeID:   rateeID,
			Score:     score,
			Comments:  comments,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO ratings (id, booking_id, rater_id, ratee_id, score, comments)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, r.ID, r.BookingID, r.RaterID, r.RateeID, r.Score, r.Comments).Scan(&r.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ForBooking lists the ratings recorded for a booking.
func (s *Service) ForBooking(ctx context.Context, bookingID string) ([]*Rating, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `
		SELECT id, booking_id, rater_id, ratee_id, score, comments, created_at
		FROM ratings WHERE booking_id = $1
		ORDER BY created_at ASC
	`, bookingID)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var out []*Rating
	for rows.Next() {
		r := &Rating{}
		if err := rows.Scan(&r.ID, &r.BookingID, &r.RaterID, &r.RateeID, &r.Score, &r.Comments, &r.CreatedAt); err != nil {
			return nil, store.Classify(err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

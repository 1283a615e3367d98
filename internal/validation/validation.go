// Package validation provides request validation helpers shared across handlers.
package validation

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// MaxRequestBodySize limits JSON request bodies (64KB is plenty for our API).
const MaxRequestBodySize = 64 * 1024

// RequestSizeMiddleware rejects request bodies larger than MaxRequestBodySize.
func RequestSizeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > MaxRequestBodySize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)
		c.Next()
	}
}

// Required checks that a trimmed string field is non-empty.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// Length checks that a string field is between min and max runes after trimming.
func Length(field, value string, min, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min || n > max {
		return fmt.Errorf("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}

// PositiveAmount checks that a decimal amount is strictly positive and has at
// most two decimal places.
func PositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%s must be positive", field)
	}
	if amount.Exponent() < -2 {
		return fmt.Errorf("%s must have at most two decimal places", field)
	}
	return nil
}

// ParseAmount parses a decimal string and validates it as a positive amount.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number", field)
	}
	if err := PositiveAmount(field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// DurationMinutes checks that a booking duration is a positive whole number of
// minutes no longer than a day.
func DurationMinutes(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	if minutes > 24*60 {
		return fmt.Errorf("duration_minutes must not exceed %d", 24*60)
	}
	return nil
}

// RatingScore checks that a rating score is in the 1..5 range.
func RatingScore(score int) error {
	if score < 1 || score > 5 {
		return fmt.Errorf("score must be between 1 and 5")
	}
	return nil
}

package rating

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openhours/timebank/internal/auth"
	"github.com/openhours/timebank/internal/httpapi"
)

// Handler provides HTTP endpoints for ratings.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up rating routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ratings", h.Rate)
	r.GET("/bookings/:id/ratings", h.ForBooking)
}

// RateRequest is the rating payload.
type RateRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	Score     int    `json:"score" binding:"required"`
	Comments  string `json:"comments"`
}

// Rate handles POST /ratings.
func (h *Handler) Rate(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	r, err := h.svc.Rate(c.Request.Context(), req.BookingID, auth.MemberID(c), req.Score, req.Comments)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rating": r})
}

// ForBooking handles GET /bookings/:id/ratings.
func (h *Handler) ForBooking(c *gin.Context) {
	ratings, err := h.svc.ForBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings, "count": len(ratings)})
}

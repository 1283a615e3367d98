package booking

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openhours/timebank/internal/auth"
	"github.com/openhours/timebank/internal/httpapi"
	"github.com/openhours/timebank/internal/realtime"
)

// Handler provides HTTP endpoints for bookings.
type Handler struct {
	svc *Service
	hub *realtime.Hub
}

func NewHandler(svc *Service, hub *realtime.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// RegisterRoutes sets up booking routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/bookings", h.Create)
	r.POST("/bookings/:id/complete", h.Complete)
	r.GET("/bookings/:id", h.Get)
}

// CreateRequest is the booking creation payload. The provider accepts an
// open request and schedules the session.
type CreateRequest struct {
	RequestID       string    `json:"requestId" binding:"required"`
	StartTime       time.Time `json:"startTime" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"required"`
}

// Create handles POST /bookings.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	b, esc, err := h.svc.Create(c.Request.Context(), req.RequestID, auth.MemberID(c), req.StartTime, req.DurationMinutes)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	h.hub.Publish(realtime.EventBookingCreated, gin.H{
		"bookingId":  b.ID,
		"requestId":  b.RequestID,
		"heldAmount": esc.Amount,
	})
	c.JSON(http.StatusCreated, gin.H{
		"booking":    b,
		"heldAmount": esc.Amount,
	})
}

// Complete handles POST /bookings/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	b, amount, err := h.svc.Complete(c.Request.Context(), c.Param("id"), auth.MemberID(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	h.hub.Publish(realtime.EventBookingCompleted, gin.H{
		"bookingId":     b.ID,
		"settledAmount": amount,
	})
	c.JSON(http.StatusOK, gin.H{
		"booking":       b,
		"settledAmount": amount,
	})
}

// Get handles GET /bookings/:id.
func (h *Handler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

package dispute

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/auth"
	"github.com/openhours/timebank/internal/httpapi"
	"github.com/openhours/timebank/internal/realtime"
)

// Handler provides HTTP endpoints for disputes.
type Handler struct {
	svc *Service
	hub *realtime.Hub
}

func NewHandler(svc *Service, hub *realtime.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// RegisterRoutes sets up member-facing dispute routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/disputes", h.Raise)
	r.GET("/disputes/:id", h.Get)
}

// RegisterAdminRoutes sets up admin-only dispute routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/disputes/:id/resolve", h.Resolve)
}

// RaiseRequest is the dispute creation payload.
type RaiseRequest struct {
	BookingID string `json:"bookingId" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// Raise handles POST /disputes.
func (h *Handler) Raise(c *gin.Context) {
	var req RaiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	d, err := h.svc.Raise(c.Request.Context(), req.BookingID, auth.MemberID(c), req.Reason)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	h.hub.Publish(realtime.EventDisputeRaised, gin.H{
		"disputeId": d.ID,
		"bookingId": d.BookingID,
	})
	c.JSON(http.StatusCreated, gin.H{"dispute": d})
}

// ResolveRequest is the admin resolution payload. RefundAmount is optional;
// zero or absent means no ledger effect.
type ResolveRequest struct {
	Resolution   string `json:"resolution" binding:"required"`
	Notes        string `json:"notes"`
	RefundAmount string `json:"refundAmount"`
}

// Resolve handles POST /disputes/:id/resolve.
func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	refund := decimal.Zero
	if req.RefundAmount != "" {
		var err error
		refund, err = decimal.NewFromString(req.RefundAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_error",
				"message": "refundAmount must be a decimal number",
			})
			return
		}
	}

	adminID := auth.MemberID(c)
	if adminID == "" {
		adminID = "admin"
	}

	d, err := h.svc.Resolve(c.Request.Context(), c.Param("id"), adminID, req.Resolution, req.Notes, refund)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	h.hub.Publish(realtime.EventDisputeResolved, gin.H{
		"disputeId":  d.ID,
		"bookingId":  d.BookingID,
		"resolution": d.Status,
	})
	c.JSON(http.StatusOK, gin.H{"dispute": d})
}

// Get handles GET /disputes/:id.
func (h *Handler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispute": d})
}

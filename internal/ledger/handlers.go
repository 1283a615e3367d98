package ledger

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/auth"
	"github.com/openhours/timebank/internal/httpapi"
	"github.com/openhours/timebank/internal/realtime"
)

// Handler provides HTTP endpoints for ledger operations.
type Handler struct {
	svc *Service
	hub *realtime.Hub
}

func NewHandler(svc *Service, hub *realtime.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// RegisterRoutes sets up member-facing ledger routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/balance", h.GetBalance)
	r.GET("/ledger", h.GetHistory)
}

// RegisterAdminRoutes sets up admin-only ledger routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/ledger-adjust", h.Adjust)
}

// GetBalance handles GET /balance for the acting member.
func (h *Handler) GetBalance(c *gin.Context) {
	memberID := auth.MemberID(c)

	balance, err := h.svc.Balance(c.Request.Context(), memberID)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"memberId": memberID,
		"balance":  balance,
	})
}

// GetHistory handles GET /ledger for the acting member.
func (h *Handler) GetHistory(c *gin.Context) {
	memberID := auth.MemberID(c)

	limit := 0
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	entries, err := h.svc.History(c.Request.Context(), memberID, limit)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// AdjustRequest is the admin ledger adjustment payload.
type AdjustRequest struct {
	MemberID string `json:"memberId" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// Adjust handles POST /admin/ledger-adjust.
func (h *Handler) Adjust(c *gin.Context) {
	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "amount must be a decimal number",
		})
		return
	}

	adminID := auth.MemberID(c)
	if adminID == "" {
		adminID = "admin"
	}

	entry, err := h.svc.AdminAdjust(c.Request.Context(), adminID, req.MemberID, amount, req.Reason)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	h.hub.Publish(realtime.EventLedgerAdjusted, gin.H{
		"memberId":     entry.MemberID,
		"amount":       entry.Amount,
		"balanceAfter": entry.BalanceAfter,
	})

	c.JSON(http.StatusCreated, gin.H{
		"entry": entry,
	})
}

package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openhours/timebank/internal/auth"
	"github.com/openhours/timebank/internal/httpapi"
	"github.com/openhours/timebank/internal/validation"
)

// Handler provides HTTP endpoints for catalog operations.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes sets up routes that need no principal.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/members", h.RegisterMember)
	r.GET("/offers", h.ListOffers)
	r.GET("/offers/:id", h.GetOffer)
}

// RegisterRoutes sets up member-facing catalog routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/offers", h.CreateOffer)
	r.POST("/requests", h.CreateRequest)
	r.POST("/requests/:id/cancel", h.CancelRequest)
	r.GET("/requests/:id", h.GetRequest)
}

// RegisterMemberRequest is the member signup payload.
type RegisterMemberRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	IsProvider bool   `json:"isProvider"`
}

// RegisterMember handles POST /members.
func (h *Handler) RegisterMember(c *gin.Context) {
	var req RegisterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	m, err := h.svc.RegisterMember(c.Request.Context(), req.Name, req.Email, req.IsProvider)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": m})
}

// CreateOfferRequest is the offer creation payload.
type CreateOfferRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	RatePerHour string `json:"ratePerHour" binding:"required"`
}

// CreateOffer handles POST /offers.
func (h *Handler) CreateOffer(c *gin.Context) {
	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	rate, err := validation.ParseAmount("ratePerHour", req.RatePerHour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	o, err := h.svc.CreateOffer(c.Request.Context(), auth.MemberID(c), req.Title, req.Description, rate)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"offer": o})
}

// GetOffer handles GET /offers/:id.
func (h *Handler) GetOffer(c *gin.Context) {
	o, err := h.svc.GetOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offer": o})
}

// ListOffers handles GET /offers.
func (h *Handler) ListOffers(c *gin.Context) {
	offers, err := h.svc.ListOffers(c.Request.Context(), c.Query("all") != "true")
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers, "count": len(offers)})
}

// CreateRequestRequest is the booking request payload.
type CreateRequestRequest struct {
	OfferID string `json:"offerId" binding:"required"`
	Note    string `json:"note"`
}

// CreateRequest handles POST /requests.
func (h *Handler) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	r, err := h.svc.CreateRequest(c.Request.Context(), auth.MemberID(c), req.OfferID, req.Note)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": r})
}

// CancelRequest handles POST /requests/:id/cancel.
func (h *Handler) CancelRequest(c *gin.Context) {
	if err := h.svc.CancelRequest(c.Request.Context(), auth.MemberID(c), c.Param("id")); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// GetRequest handles GET /requests/:id.
func (h *Handler) GetRequest(c *gin.Context) {
	r, err := h.svc.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

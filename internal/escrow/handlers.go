package escrow

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openhours/timebank/internal/httpapi"
)

// Handler exposes escrow reads.
type Handler struct {
	store *PostgresStore
}

func NewHandler(store *PostgresStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up escrow routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/escrow/:bookingId", h.GetByBooking)
}

// GetByBooking handles GET /escrow/:bookingId.
func (h *Handler) GetByBooking(c *gin.Context) {
	e, err := h.store.GetByBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"escrow": e})
}

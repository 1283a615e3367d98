// Package httpapi maps application errors onto HTTP responses so every
// handler reports failures with the same (error, message) shape.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/logging"
)

// Error writes the response for err based on its kind. Internal details
// never reach the client; they are logged with the request context instead.
func Error(c *gin.Context, err error) {
	e := apperr.From(err)

	switch e.Kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, body(e))
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, body(e))
	case apperr.KindUnauthorized:
		c.JSON(http.StatusForbidden, body(e))
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, body(e))
	case apperr.KindTransient:
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, body(e))
	default:
		logging.L(c.Request.Context()).Error("internal error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   apperr.KindInternal.String(),
			"message": "An internal error occurred",
		})
	}
}

func body(e *apperr.Error) gin.H {
	return gin.H{
		"error":   e.Kind.String(),
		"message": e.Message,
	}
}

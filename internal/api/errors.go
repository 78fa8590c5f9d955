package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"patient-caller-backend/internal/queue"
)

const internalErrorMessage = "internal error"

// respondError maps queue errors onto HTTP statuses. Storage failures are
// logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error, notFound gin.H) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, notFound)
	case errors.Is(err, queue.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
	}
}

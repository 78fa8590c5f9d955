package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"patient-caller-backend/internal/parse"
	"patient-caller-backend/internal/queue"
)

var errPartialRange = errors.New("inicio and fin must be given together")

// ListAttended handles GET /atendidos?inicio=YYYY-MM-DD&fin=YYYY-MM-DD.
func (h *Handler) ListAttended(c *gin.Context) {
	r, err := h.historyRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.queue.History(c.Request.Context(), r)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) historyRange(c *gin.Context) (*queue.DateRange, error) {
	inicio, fin := c.Query("inicio"), c.Query("fin")
	if inicio == "" && fin == "" {
		return nil, nil
	}
	if inicio == "" || fin == "" {
		return nil, errPartialRange
	}

	loc := h.queue.Location()
	start, err := parse.Date(inicio, loc)
	if err != nil {
		return nil, err
	}
	end, err := parse.Date(fin, loc)
	if err != nil {
		return nil, err
	}
	return &queue.DateRange{Start: start, End: end}, nil
}

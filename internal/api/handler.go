package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"patient-caller-backend/internal/queue"
	"patient-caller-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	queue   *queue.Service
	store   store.Store
	webpush *webpush.Options
	log     zerolog.Logger
}

// NewHandler creates a new API handler. webpushOptions may be nil when push
// notifications are disabled.
func NewHandler(q *queue.Service, s store.Store, webpushOptions *webpush.Options, logger zerolog.Logger) *Handler {
	return &Handler{
		queue:   q,
		store:   s,
		webpush: webpushOptions,
		log:     logger,
	}
}

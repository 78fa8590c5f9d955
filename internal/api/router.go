package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"patient-caller-backend/internal/events"
	"patient-caller-backend/internal/metrics"
	"patient-caller-backend/internal/mw"
)

// Options configures the router's middleware and optional surfaces.
type Options struct {
	RateLimit float64
	Burst     int
	// Cache backs GET responses of the queue endpoints; nil disables caching.
	Cache   *mw.ResponseCache
	Metrics *metrics.Metrics
	// Hub serves /ws when set.
	Hub    *events.Hub
	Logger zerolog.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts Options) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logger(opts.Logger), mw.Metrics(opts.Metrics), cors())

	r.GET("/healthz", h.Healthz)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.Hub != nil {
		r.GET("/ws", opts.Hub.ServeWS)
	}

	limited := r.Group("/")
	if opts.RateLimit > 0 {
		limited.Use(mw.RateLimiter(rate.Limit(opts.RateLimit), opts.Burst))
	}

	reads := []gin.HandlerFunc{}
	if opts.Cache != nil {
		reads = append(reads, opts.Cache.Middleware())
	}
	cached := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, reads...), handler)
	}

	limited.GET("/pacientes", cached(h.ListPatients)...)
	limited.POST("/pacientes", h.CreatePatient)
	limited.POST("/llamar", h.CallPatient)
	limited.POST("/atender", h.AttendPatient)
	limited.GET("/llamado", cached(h.CurrentlyCalled)...)
	limited.GET("/atendidos", cached(h.ListAttended)...)

	api := limited.Group("/api")
	{
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

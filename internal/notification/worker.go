package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"patient-caller-backend/internal/events"
	"patient-caller-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the pool needs.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool manages a pool of workers that announce called patients to
// every push subscription.
type WorkerPool struct {
	size    int
	jobs    chan events.Event
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store SubscriptionStore, webpushOptions *webpush.Options, logger zerolog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan events.Event, size*4),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logger.With().Str("component", "push").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case ev := <-wp.jobs:
			wp.notifyCalled(ctx, ev.Paciente)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch queues ev for delivery. It reports false when the queue is full
// and the event was dropped.
func (wp *WorkerPool) Dispatch(ev events.Event) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.log.Warn().Int64("patient_id", ev.Paciente.ID).Msg("push queue full; notification dropped")
		return false
	}
}

// Publish implements events.Publisher. Only called patients are announced.
func (wp *WorkerPool) Publish(_ context.Context, ev events.Event) {
	if ev.Type != events.TypeCalled {
		return
	}
	wp.Dispatch(ev)
}

// Message is the notification text for a called patient.
func Message(p model.Patient) string {
	return fmt.Sprintf("Paciente %s, favor pasar a preconsulta.", p.FullName())
}

func (wp *WorkerPool) notifyCalled(ctx context.Context, p model.Patient) {
	subscriptions, err := wp.store.ListSubscriptions(ctx)
	if err != nil {
		wp.log.Error().Err(err).Msg("failed to list subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.log.Debug().Int("subscriptions", len(subscriptions)).Int64("patient_id", p.ID).Msg("sending notifications")
	payload := []byte(Message(p))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired; deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}

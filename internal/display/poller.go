// Package display drives the public waiting-room screen: it polls the API
// for the called patient and today's history and renders both.
package display

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"patient-caller-backend/internal/model"
	"patient-caller-backend/internal/parse"
)

// DefaultInterval is how often the screen refreshes.
const DefaultInterval = 5 * time.Second

// Source is the read side of the queue API.
type Source interface {
	Called(ctx context.Context) (*model.Patient, error)
	History(ctx context.Context, from, to time.Time) ([]model.AttendedRecord, error)
}

// Snapshot is one refresh of the screen. A failed fetch leaves the
// corresponding part empty.
type Snapshot struct {
	Called    *model.Patient
	Attended  []model.AttendedRecord
	FetchedAt time.Time
}

// Poller periodically fetches a Snapshot.
type Poller struct {
	source   Source
	interval time.Duration
	loc      *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

// NewPoller creates a poller reading from src every interval. History is
// restricted to the current calendar date in loc.
func NewPoller(src Source, interval time.Duration, loc *time.Location, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if loc == nil {
		loc = time.Local
	}
	return &Poller{
		source:   src,
		interval: interval,
		loc:      loc,
		log:      logger,
		now:      time.Now,
	}
}

// PollOnce fetches the called patient and today's history. Errors are
// logged at debug level and yield an empty state.
func (p *Poller) PollOnce(ctx context.Context) Snapshot {
	now := p.now()
	snap := Snapshot{FetchedAt: now}

	called, err := p.source.Called(ctx)
	if err != nil {
		p.log.Debug().Err(err).Msg("failed to fetch called patient")
	} else {
		snap.Called = called
	}

	today := parse.StartOfDay(now, p.loc)
	attended, err := p.source.History(ctx, today, today)
	if err != nil {
		p.log.Debug().Err(err).Msg("failed to fetch attended history")
	} else {
		snap.Attended = attended
	}
	return snap
}

// Run calls render with a fresh Snapshot immediately and then every
// interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, render func(Snapshot)) {
	render(p.PollOnce(ctx))

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			render(p.PollOnce(ctx))
			timer.Reset(p.interval)
		}
	}
}

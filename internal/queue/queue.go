// Package queue implements the patient state machine
// WAITING → CALLED → ATTENDED on top of the record store.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"patient-caller-backend/internal/events"
	"patient-caller-backend/internal/metrics"
	"patient-caller-backend/internal/model"
	"patient-caller-backend/internal/parse"
	"patient-caller-backend/internal/store"
)

var (
	// ErrNotFound is returned when the referenced patient does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidRange is returned when a history range starts after it ends.
	ErrInvalidRange = errors.New("start date is after end date")
)

// Identity is what the operator enters for a new patient.
type Identity struct {
	CINro    string
	Nombre   string
	Apellido string
}

// DateRange selects history by calendar date. Both ends are inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Service is the only component that mutates the queue tables.
type Service struct {
	store     store.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       zerolog.Logger
	loc       *time.Location
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where committed transitions are announced.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records per-operation counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithLocation sets the timezone used for calendar-date history filters.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a queue service over st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		log:   zerolog.Nop(),
		loc:   time.Local,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the timezone used for history dates.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Today returns the range covering the current calendar date.
func (s *Service) Today() DateRange {
	today := parse.StartOfDay(s.now(), s.loc)
	return DateRange{Start: today, End: today}
}

// Add registers a waiting patient. Surrounding whitespace is trimmed;
// rejecting blank fields is left to the callers.
func (s *Service) Add(ctx context.Context, id Identity) (model.Patient, error) {
	p := model.Patient{
		CINro:    parse.Field(id.CINro),
		Nombre:   parse.Field(id.Nombre),
		Apellido: parse.Field(id.Apellido),
	}
	if err := s.store.CreatePatient(ctx, &p); err != nil {
		s.observe("add", err)
		return model.Patient{}, err
	}
	s.observe("add", nil)

	s.log.Info().Int64("patient_id", p.ID).Msg("patient added")
	s.publish(ctx, events.TypeAdded, p)
	return p, nil
}

// Waiting returns the waiting list, newest first.
func (s *Service) Waiting(ctx context.Context) ([]model.Patient, error) {
	patients, err := s.store.ListPatients(ctx)
	s.observe("waiting", err)
	return patients, err
}

// Call points the display at patient id, replacing any previous call. The
// patient stays on the waiting list and no history is written.
func (s *Service) Call(ctx context.Context, id int64) (model.Patient, error) {
	p, err := s.store.SetCalled(ctx, id, s.now())
	s.observe("call", err)
	if err != nil {
		return model.Patient{}, err
	}

	s.log.Info().Int64("patient_id", p.ID).Msg("patient called")
	s.publish(ctx, events.TypeCalled, p)
	return p, nil
}

// MarkAttended moves patient id into the history with status ATENDIDO and
// clears the call if it pointed at them. A prior Call is not required.
func (s *Service) MarkAttended(ctx context.Context, id int64) (model.AttendedRecord, error) {
	rec, err := s.store.MarkAttended(ctx, id, s.now())
	s.observe("attend", err)
	if err != nil {
		return model.AttendedRecord{}, err
	}

	s.log.Info().Int64("patient_id", rec.PatientID).Msg("patient attended")
	s.publish(ctx, events.TypeAttended, model.Patient{
		ID:       rec.PatientID,
		CINro:    rec.CINro,
		Nombre:   rec.Nombre,
		Apellido: rec.Apellido,
	})
	return rec, nil
}

// CurrentlyCalled returns the called patient, or nil when nobody is called
// or the called patient has since left the waiting list.
func (s *Service) CurrentlyCalled(ctx context.Context) (*model.Patient, error) {
	p, err := s.store.CurrentlyCalled(ctx)
	s.observe("called", err)
	return p, err
}

// History lists attended records newest first. When r is given only
// records whose calendar date lies within it are returned.
func (s *Service) History(ctx context.Context, r *DateRange) ([]model.AttendedRecord, error) {
	var tr store.TimeRange
	if r != nil {
		from := parse.StartOfDay(r.Start, s.loc)
		last := parse.StartOfDay(r.End, s.loc)
		if from.After(last) {
			s.observe("history", ErrInvalidRange)
			return nil, ErrInvalidRange
		}
		to := last.AddDate(0, 0, 1)
		tr = store.TimeRange{From: &from, To: &to}
	}

	records, err := s.store.ListAttended(ctx, tr)
	s.observe("history", err)
	return records, err
}

func (s *Service) publish(ctx context.Context, t events.Type, p model.Patient) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.Event{Type: t, Paciente: p, At: s.now().UTC()})
	s.metrics.ObserveEvent(string(t))
}

func (s *Service) observe(op string, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveOperation(op, metrics.ResultOK)
	case errors.Is(err, ErrNotFound):
		s.metrics.ObserveOperation(op, metrics.ResultNotFound)
	case errors.Is(err, ErrInvalidRange):
		s.metrics.ObserveOperation(op, metrics.ResultInvalid)
	default:
		s.metrics.ObserveOperation(op, metrics.ResultError)
		s.log.Error().Err(err).Str("operation", op).Msg("queue operation failed")
	}
}

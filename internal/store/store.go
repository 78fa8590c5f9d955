package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"patient-caller-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	CreatePatient(ctx context.Context, p *model.Patient) error
	ListPatients(ctx context.Context) ([]model.Patient, error)
	SetCalled(ctx context.Context, patientID int64, at time.Time) (model.Patient, error)
	CurrentlyCalled(ctx context.Context) (*model.Patient, error)
	MarkAttended(ctx context.Context, patientID int64, at time.Time) (model.AttendedRecord, error)
	ListAttended(ctx context.Context, r TimeRange) ([]model.AttendedRecord, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)

	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// CreatePatient inserts a waiting patient and fills in the generated ID.
func (s *gormStore) CreatePatient(ctx context.Context, p *model.Patient) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// ListPatients returns the waiting list, newest first.
func (s *gormStore) ListPatients(ctx context.Context) ([]model.Patient, error) {
	patients := make([]model.Patient, 0)
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// SetCalled points the called pointer at patientID, replacing whatever it
// referenced before. The pointer is left untouched when the patient does not
// exist.
func (s *gormStore) SetCalled(ctx context.Context, patientID int64, at time.Time) (model.Patient, error) {
	var patient model.Patient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findPatient(tx, patientID, &patient); err != nil {
			return err
		}

		pointer := model.CalledPointer{
			Slot:      model.CalledSlot,
			PatientID: &patient.ID,
			CalledAt:  at.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"patient_id", "called_at"}),
		}).Create(&pointer).Error; err != nil {
			return fmt.Errorf("failed to update called pointer for patient %d: %w", patientID, err)
		}
		return nil
	})
	if err != nil {
		return model.Patient{}, err
	}
	return patient, nil
}

// CurrentlyCalled joins the called pointer with the waiting list. It returns
// nil when the pointer is unset or references a patient that no longer
// exists.
func (s *gormStore) CurrentlyCalled(ctx context.Context) (*model.Patient, error) {
	var patient model.Patient
	err := s.db.WithContext(ctx).
		Joins("JOIN llamado_actual ON llamado_actual.patient_id = pacientes.id").
		Where("llamado_actual.slot = ?", model.CalledSlot).
		Take(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read called patient: %w", err)
	}
	return &patient, nil
}

// MarkAttended archives the patient into the attended history, removes it
// from the waiting list and clears the called pointer if it referenced it.
func (s *gormStore) MarkAttended(ctx context.Context, patientID int64, at time.Time) (model.AttendedRecord, error) {
	var record model.AttendedRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var patient model.Patient
		if err := findPatient(tx, patientID, &patient); err != nil {
			return err
		}

		record = model.AttendedRecord{
			PatientID: patient.ID,
			CINro:     patient.CINro,
			Nombre:    patient.Nombre,
			Apellido:  patient.Apellido,
			CalledAt:  at.UTC(),
			Status:    model.StatusAttended,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to archive patient %d: %w", patientID, err)
		}

		if err := tx.Delete(&model.Patient{}, patient.ID).Error; err != nil {
			return fmt.Errorf("failed to delete waiting patient %d: %w", patientID, err)
		}

		if err := tx.Model(&model.CalledPointer{}).
			Where("slot = ? AND patient_id = ?", model.CalledSlot, patient.ID).
			Update("patient_id", nil).Error; err != nil {
			return fmt.Errorf("failed to clear called pointer for patient %d: %w", patientID, err)
		}
		return nil
	})
	if err != nil {
		return model.AttendedRecord{}, err
	}
	return record, nil
}

// ListAttended scans the history newest first, restricted to r when bounds
// are given.
func (s *gormStore) ListAttended(ctx context.Context, r TimeRange) ([]model.AttendedRecord, error) {
	q := s.db.WithContext(ctx).Model(&model.AttendedRecord{})
	if r.From != nil {
		q = q.Where("fecha_llamado >= ?", r.From.UTC())
	}
	if r.To != nil {
		q = q.Where("fecha_llamado < ?", r.To.UTC())
	}

	records := make([]model.AttendedRecord, 0)
	if err := q.Order("fecha_llamado DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list attended records: %w", err)
	}
	return records, nil
}

// SaveSubscription creates or replaces a push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a push subscription. Deleting an unknown
// endpoint is not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// GetSubscription looks up a push subscription by endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptions returns every stored push subscription.
func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// Ping checks that the database is reachable.
func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func findPatient(tx *gorm.DB, id int64, dest *model.Patient) error {
	err := tx.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up patient %d: %w", id, err)
	}
	return nil
}

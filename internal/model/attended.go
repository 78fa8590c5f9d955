package model

import "time"

// Status tags written to the attended history.
const (
	StatusCalled   = "LLAMADO"
	StatusAttended = "ATENDIDO"
)

// AttendedRecord is an immutable history entry. Identity fields are copied
// from the patient because the waiting-list row is deleted afterwards.
type AttendedRecord struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	PatientID int64     `gorm:"index;not null" json:"paciente_id"`
	CINro     string    `gorm:"column:cinro;size:32;not null" json:"cinro"`
	Nombre    string    `gorm:"size:128;not null" json:"nombre"`
	Apellido  string    `gorm:"size:128;not null" json:"apellido"`
	CalledAt  time.Time `gorm:"column:fecha_llamado;index;not null" json:"fecha_llamado"`
	Status    string    `gorm:"column:estado;size:16;not null" json:"estado"`
}

func (AttendedRecord) TableName() string { return "atendidos" }

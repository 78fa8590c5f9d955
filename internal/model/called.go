package model

import "time"

// CalledSlot is the key of the single called-pointer row.
const CalledSlot = 1

// CalledPointer references the patient currently called to pre-consultation.
// There is only ever one row; PatientID is nil when no one is called.
type CalledPointer struct {
	Slot      int    `gorm:"primaryKey;autoIncrement:false"`
	PatientID *int64 `gorm:"index"`
	CalledAt  time.Time
}

func (CalledPointer) TableName() string { return "llamado_actual" }

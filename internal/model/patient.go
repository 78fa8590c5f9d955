package model

import "time"

// Patient is a waiting-list entry.
type Patient struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CINro     string    `gorm:"column:cinro;size:32;not null" json:"cinro"`
	Nombre    string    `gorm:"size:128;not null" json:"nombre"`
	Apellido  string    `gorm:"size:128;not null" json:"apellido"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Patient) TableName() string { return "pacientes" }

// FullName joins given and family name.
func (p Patient) FullName() string {
	return p.Nombre + " " + p.Apellido
}

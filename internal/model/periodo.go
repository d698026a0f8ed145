package model

import (
	"time"

	"github.com/google/uuid"
)

// Estados de un período contable. El cierre es irreversible.
const (
	PeriodoAbierto = "ABIERTO"
	PeriodoCerrado = "CERRADO"
)

// PeriodoContable delimits the date range journal entries may be posted into.
type PeriodoContable struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;index;not null"`

	Nombre      string    `gorm:"type:varchar(50);not null"`
	FechaInicio time.Time `gorm:"type:date;not null"`
	FechaFin    time.Time `gorm:"type:date;not null"`
	Estado      string    `gorm:"type:varchar(10);not null;default:'ABIERTO'"`
	FechaCierre *time.Time
	CreatedAt   time.Time
}

func (PeriodoContable) TableName() string { return "periodos_contables" }

// Cubre reports whether fecha falls inside the period bounds (inclusive).
func (p *PeriodoContable) Cubre(fecha time.Time) bool {
	d := fecha.Truncate(24 * time.Hour)
	return !d.Before(p.FechaInicio.Truncate(24*time.Hour)) && !d.After(p.FechaFin.Truncate(24*time.Hour))
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is an append-only trail of fiscal-relevant mutations. Writes are
// explicit calls from the services — there is no hook magic behind saves.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;index;not null"`

	Accion      string `gorm:"type:varchar(20);not null"` // CREATE | UPDATE | ANULAR | EMITIR
	Modelo      string `gorm:"type:varchar(50);not null"`
	ObjetoID    string `gorm:"type:varchar(50);not null"`
	Descripcion string
	Datos       string `gorm:"type:text"` // JSON snapshot of the change

	CreatedAt time.Time
}

func (AuditLog) TableName() string { return "audit_logs" }

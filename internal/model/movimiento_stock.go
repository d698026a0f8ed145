package model

import (
	"time"

	"github.com/google/uuid"
)

// MovimientoStock records every stock change driven by the sale lifecycle.
// The catalog itself lives in an external service; these rows are the local
// stock-tracking trail (ventas descuentan, anulaciones restauran).
type MovimientoStock struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID  uuid.UUID `gorm:"type:uuid;index;not null"`
	ProductoID uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo       string    `gorm:"not null"` // "venta" | "restauracion_anulacion" | "ajuste"
	// Cantidad: positive = entrada, negative = salida
	Cantidad     int    `gorm:"not null"`
	Motivo       string
	ReferenciaID *uuid.UUID `gorm:"type:uuid"` // venta originating the movement
	CreatedAt    time.Time
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }

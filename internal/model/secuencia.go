package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tipos de comprobante fiscal (serie B) y su código e-CF.
var TipoECFMap = map[string]string{
	"B01": "31", // Crédito Fiscal
	"B02": "32", // Consumo
	"B03": "33", // Nota de Débito
	"B04": "34", // Nota de Crédito
	"B11": "41", // Compras
	"B13": "43", // Gastos Menores
	"B14": "44", // Regímenes Especiales
	"B15": "45", // Gubernamental
}

// SecuenciaNCF is a regulator-assigned numbering range for one document type.
// NumeroActual is the next number to hand out; it only moves forward and is
// consumed under an exclusive per-key lock plus a DB row lock.
type SecuenciaNCF struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;index;not null"`

	TipoComprobante  string    `gorm:"type:varchar(10);not null;index:idx_secuencia_key,composite:negocio_id"`
	Serie            string    `gorm:"type:varchar(1);not null"`
	NumeroDesde      int64     `gorm:"not null"`
	NumeroHasta      int64     `gorm:"not null"`
	NumeroActual     int64     `gorm:"not null"`
	FechaVencimiento time.Time `gorm:"type:date;not null"`
	Activa           bool      `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (SecuenciaNCF) TableName() string { return "secuencias_ncf" }

// NCFAsignado is the result of one allocation: the formatted e-NCF plus the
// expiry of the range it came from.
type NCFAsignado struct {
	NCF              string
	TipoComprobante  string
	FechaVencimiento time.Time
}

// Vencida reports whether the sequence expired before ref.
func (s *SecuenciaNCF) Vencida(ref time.Time) bool {
	return s.FechaVencimiento.Before(ref.Truncate(24 * time.Hour))
}

// Agotada reports whether the cursor ran past the assigned range.
func (s *SecuenciaNCF) Agotada() bool {
	return s.NumeroActual > s.NumeroHasta
}

// FormatearNCF renders an e-NCF: "E" + tipo e-CF + serie + number, 8 digits.
// Example: E31A00000001.
func (s *SecuenciaNCF) FormatearNCF(numero int64) string {
	tipoECF, ok := TipoECFMap[s.TipoComprobante]
	if !ok {
		tipoECF = "32"
	}
	return fmt.Sprintf("E%s%s%08d", tipoECF, s.Serie, numero)
}

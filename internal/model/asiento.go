package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de asiento contable.
const (
	AsientoManual = "MANUAL"
	AsientoVenta  = "VENTA"
	AsientoCompra = "COMPRA"
	AsientoAjuste = "AJUSTE"
	AsientoCierre = "CIERRE"
)

// Estados de un asiento. Un asiento CONTABILIZADO nunca se modifica;
// correcciones se hacen con un asiento de reversa independiente.
const (
	AsientoBorrador      = "BORRADOR"
	AsientoContabilizado = "CONTABILIZADO"
	AsientoAnulado       = "ANULADO"
)

// ToleranciaBalance is the maximum |Σdebe − Σhaber| accepted when posting.
var ToleranciaBalance = decimal.NewFromFloat(0.01)

// AsientoContable is a double-entry journal entry.
type AsientoContable struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;index;not null"`
	PeriodoID uuid.UUID `gorm:"type:uuid;index;not null"`

	Numero      string    `gorm:"type:varchar(20);not null;index:idx_asiento_negocio_numero,unique,composite:negocio_id"`
	Fecha       time.Time `gorm:"type:date;not null"`
	Tipo        string    `gorm:"type:varchar(15);not null;default:'MANUAL'"`
	Descripcion string    `gorm:"not null"`
	Referencia  string    `gorm:"type:varchar(100)"`

	TotalDebe  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TotalHaber decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`

	Estado    string `gorm:"type:varchar(15);not null;default:'BORRADOR'"`
	CreatedAt time.Time

	Lineas []LineaAsiento `gorm:"foreignKey:AsientoID"`
}

func (AsientoContable) TableName() string { return "asientos_contables" }

// Balanceado reports whether totals match within ToleranciaBalance.
func (a *AsientoContable) Balanceado() bool {
	return a.TotalDebe.Sub(a.TotalHaber).Abs().LessThanOrEqual(ToleranciaBalance)
}

// LineaAsiento is one debit/credit posting inside an asiento.
// Exactly one of Debe/Haber may be positive.
type LineaAsiento struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AsientoID uuid.UUID `gorm:"type:uuid;index;not null"`
	CuentaID  uuid.UUID `gorm:"type:uuid;index;not null"`

	Descripcion string          `gorm:"type:varchar(200)"`
	Debe        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Haber       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`

	Cuenta *CuentaContable `gorm:"foreignKey:CuentaID"`
}

func (LineaAsiento) TableName() string { return "lineas_asiento" }

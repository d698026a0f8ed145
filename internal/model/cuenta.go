package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de cuenta contable.
const (
	CuentaActivo     = "ACTIVO"
	CuentaPasivo     = "PASIVO"
	CuentaPatrimonio = "PATRIMONIO"
	CuentaIngreso    = "INGRESO"
	CuentaCosto      = "COSTO"
	CuentaGasto      = "GASTO"
)

// Naturaleza de la cuenta: qué lado incrementa el saldo.
const (
	NaturalezaDeudora   = "DEUDORA"
	NaturalezaAcreedora = "ACREEDORA"
)

// CuentaContable is a node in the chart of accounts. The tree is stored flat:
// CuentaPadreID is a plain foreign key, traversal happens via index lookups.
// SaldoActual is mutated exclusively by ledger postings.
type CuentaContable struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;index;not null"`

	Codigo     string `gorm:"type:varchar(20);not null;index:idx_cuenta_negocio_codigo,unique,composite:negocio_id"`
	Nombre     string `gorm:"not null"`
	Tipo       string `gorm:"type:varchar(15);not null"`
	Naturaleza string `gorm:"type:varchar(10);not null"`

	CuentaPadreID *uuid.UUID `gorm:"type:uuid;index"`
	Nivel         int        `gorm:"not null;default:1"`
	EsDetalle     bool       `gorm:"not null;default:true"`

	SaldoActual decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Activa      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CuentaContable) TableName() string { return "cuentas_contables" }

// DeltaSaldo returns the balance delta a posting line produces on this
// account: debe-haber for DEUDORA accounts, haber-debe for ACREEDORA.
func (c *CuentaContable) DeltaSaldo(debe, haber decimal.Decimal) decimal.Decimal {
	if c.Naturaleza == NaturalezaDeudora {
		return debe.Sub(haber)
	}
	return haber.Sub(debe)
}

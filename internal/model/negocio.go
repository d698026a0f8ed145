package model

import (
	"time"

	"github.com/google/uuid"
)

// Ambientes DGII soportados.
const (
	AmbienteTest = "TEST"
	AmbientePROD = "PROD"
)

// Negocio holds the fiscal identity and configuration of a business.
// The certificate passphrase is NEVER stored here — only the name of the
// environment variable that supplies it (external secret store).
type Negocio struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RNC            string    `gorm:"type:varchar(15);uniqueIndex;not null"`
	RazonSocial    string    `gorm:"not null"`
	NombreComercial string
	Direccion      string
	// PaisCodigo selects the fiscal strategy (only "DOM" implemented)
	PaisCodigo string `gorm:"type:varchar(3);not null;default:'DOM'"`
	// AmbienteDGII: TEST | PROD
	AmbienteDGII string `gorm:"type:varchar(10);not null;default:'TEST'"`
	DGIIUsuario  string
	DGIIClaveEnv string // env var name holding the DGII password
	// Certificado digital para firma de e-CF
	CertificadoPath    string
	CertificadoPassEnv string // env var name holding the .p12 passphrase

	Cuentas CuentasConfig `gorm:"embedded;embeddedPrefix:cuenta_"`

	Activo    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CuentasConfig maps every automatic posting to an account code.
// Injected per business — there are no process-wide account constants.
type CuentasConfig struct {
	Caja             string `gorm:"type:varchar(20);default:'1.1.01.01'"`
	Banco            string `gorm:"type:varchar(20);default:'1.1.02.01'"`
	CuentasPorCobrar string `gorm:"type:varchar(20);default:'1.1.03.01'"`
	Inventario       string `gorm:"type:varchar(20);default:'1.1.04.01'"`
	ITBISPorCobrar   string `gorm:"type:varchar(20);default:'1.1.06.01'"`
	CuentasPorPagar  string `gorm:"type:varchar(20);default:'2.1.01.01'"`
	ITBISPorPagar    string `gorm:"type:varchar(20);default:'2.1.05.01'"`
	ITBISRetenido    string `gorm:"type:varchar(20);default:'2.1.06.01'"`
	ISRRetenido      string `gorm:"type:varchar(20);default:'2.1.07.01'"`
	Resultado        string `gorm:"type:varchar(20);default:'3.2.01.01'"`
	IngresosVentas   string `gorm:"type:varchar(20);default:'4.1.01.01'"`
	DescuentoVentas  string `gorm:"type:varchar(20);default:'4.1.02.01'"`
	Gasto            string `gorm:"type:varchar(20);default:'6.1.01.01'"`
}

// CuentaPago resolves the counterpart account for a payment method.
// CASH goes to caja, card/transfer/cheque to banco, credit to CxC.
func (c CuentasConfig) CuentaPago(tipoPago string) string {
	switch tipoPago {
	case TipoPagoEfectivo, TipoPagoMixto:
		return c.Caja
	case TipoPagoTarjeta, TipoPagoTransferencia, TipoPagoCheque:
		return c.Banco
	case TipoPagoCredito:
		return c.CuentasPorCobrar
	default:
		return c.Caja
	}
}

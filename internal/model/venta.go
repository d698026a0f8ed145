package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de pago.
const (
	TipoPagoEfectivo      = "EFECTIVO"
	TipoPagoTarjeta       = "TARJETA"
	TipoPagoTransferencia = "TRANSFERENCIA"
	TipoPagoCheque        = "CHEQUE"
	TipoPagoCredito       = "CREDITO"
	TipoPagoMixto         = "MIXTO"
)

// Estados operativos de la venta.
const (
	VentaBorrador   = "BORRADOR"
	VentaCompletada = "COMPLETADA"
	VentaAnulada    = "ANULADA"
)

// Estados fiscales del comprobante electrónico.
// APROBADO y RECHAZADO son terminales. CONTINGENCIA permite reenvío diferido.
const (
	FiscalNoFiscal     = "NO_FISCAL"
	FiscalPendiente    = "PENDIENTE"
	FiscalEnviado      = "ENVIADO"
	FiscalAprobado     = "APROBADO"
	FiscalRechazado    = "RECHAZADO"
	FiscalContingencia = "CONTINGENCIA"
)

// Eventos que mueven la máquina de estados fiscal.
const (
	EventoEmitir     = "EMITIR"
	EventoEnviar     = "ENVIAR"
	EventoAprobar    = "APROBAR"
	EventoRechazar   = "RECHAZAR"
	EventoFallaRed   = "FALLA_RED"
	EventoReintentar = "REINTENTAR"
)

// ErrTransicionInvalida is returned for any state/event pair outside the
// fiscal state machine.
var ErrTransicionInvalida = errors.New("transición de estado fiscal inválida")

var transicionesFiscales = map[string]map[string]string{
	FiscalNoFiscal: {
		EventoEmitir: FiscalPendiente,
	},
	FiscalPendiente: {
		EventoEnviar: FiscalEnviado,
	},
	FiscalEnviado: {
		EventoAprobar:  FiscalAprobado,
		EventoRechazar: FiscalRechazado,
		EventoFallaRed: FiscalContingencia,
	},
	FiscalContingencia: {
		EventoReintentar: FiscalEnviado,
	},
}

// TransicionFiscal resolves the next fiscal state for an event. Side effects
// belong to the caller — the state machine itself only validates moves.
func TransicionFiscal(desde, evento string) (string, error) {
	if destinos, ok := transicionesFiscales[desde]; ok {
		if hasta, ok := destinos[evento]; ok {
			return hasta, nil
		}
	}
	return "", fmt.Errorf("%w: %s + %s", ErrTransicionInvalida, desde, evento)
}

// Venta is a completed-sale snapshot plus its fiscal invoice data.
// Once COMPLETADA the monetary fields are immutable; voiding creates an
// independent credit-note Venta referencing this one.
type Venta struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;index;not null"`

	Numero          string `gorm:"type:varchar(20);not null"`
	TipoComprobante string `gorm:"type:varchar(10)"` // B01, B02, B04...
	NCF             string `gorm:"type:varchar(19);index"`

	// Snapshot del comprador — "cash customer" cuando no hay cliente
	ClienteNombre    string `gorm:"type:varchar(200)"`
	ClienteDocumento string `gorm:"type:varchar(15)"`
	ClienteTipoDoc   string `gorm:"type:varchar(10)"` // RNC | CEDULA
	ClienteTipo      string `gorm:"type:varchar(15)"` // CONTADO | CREDITO
	ClienteEmail     string

	Fecha            time.Time `gorm:"not null"`
	FechaVencimiento *time.Time `gorm:"type:date"` // vencimiento de la secuencia NCF

	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Descuento      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TotalImpuestos decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`

	TipoPago    string          `gorm:"type:varchar(15);not null;default:'EFECTIVO'"`
	MontoPagado decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`

	Estado          string `gorm:"type:varchar(15);not null;default:'BORRADOR'"`
	EstadoFiscal    string `gorm:"type:varchar(15);not null;default:'NO_FISCAL'"`
	CodigoSeguridad string `gorm:"type:varchar(10)"`

	AsientoID *uuid.UUID `gorm:"type:uuid"`
	// VentaReferenciaID links a credit/debit note to the original sale
	VentaReferenciaID *uuid.UUID `gorm:"type:uuid;index"`

	Notas     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Detalles        []DetalleVenta `gorm:"foreignKey:VentaID"`
	VentaReferencia *Venta         `gorm:"foreignKey:VentaReferenciaID"`
}

func (Venta) TableName() string { return "ventas" }

// EsNotaCredito reports whether this sale document is a credit note.
func (v *Venta) EsNotaCredito() bool { return v.TipoComprobante == "B04" }

// DetalleVenta carries the product snapshot of one sold line. Tax
// classification travels with the line so invoices stay reproducible even
// after catalog changes.
type DetalleVenta struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID uuid.UUID `gorm:"type:uuid;index;not null"`

	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	ProductoNombre string          `gorm:"type:varchar(200);not null"`
	EsServicio     bool            `gorm:"not null;default:false"`
	AplicaImpuesto bool            `gorm:"not null;default:true"`
	TasaImpuesto   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:18"`

	Cantidad       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	PrecioCosto    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Descuento      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Impuesto       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}

func (DetalleVenta) TableName() string { return "detalles_venta" }

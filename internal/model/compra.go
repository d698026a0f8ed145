package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados de una compra.
const (
	CompraBorrador = "BORRADOR"
	CompraRecibida = "RECIBIDA"
	CompraAnulada  = "ANULADA"
)

// Compra is a received supplier purchase. RECIBIDA purchases feed the
// purchase journal entry and the 606 report.
type Compra struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NegocioID uuid.UUID `gorm:"type:uuid;index;not null"`

	Numero       string `gorm:"type:varchar(20);not null"`
	NCFProveedor string `gorm:"type:varchar(19)"`

	ProveedorNombre string `gorm:"type:varchar(200);not null"`
	ProveedorRNC    string `gorm:"type:varchar(15);not null"`

	Fecha     time.Time  `gorm:"type:date;not null"`
	FechaPago *time.Time `gorm:"type:date"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TotalImpuestos decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`

	// Retenciones aplicadas al proveedor
	ITBISRetenido  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	RetencionRenta decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	TipoRetencion  string          `gorm:"type:varchar(10)"`

	FormaPago           string `gorm:"type:varchar(15);not null;default:'CREDITO'"`
	TipoBienesServicios string `gorm:"type:varchar(2);default:'02'"` // clasificación 606

	Estado    string     `gorm:"type:varchar(15);not null;default:'BORRADOR'"`
	AsientoID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Detalles []DetalleCompra `gorm:"foreignKey:CompraID"`
}

func (Compra) TableName() string { return "compras" }

// DetalleCompra is one purchased line with its goods/service split.
type DetalleCompra struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompraID uuid.UUID `gorm:"type:uuid;index;not null"`

	ProductoNombre string          `gorm:"type:varchar(200);not null"`
	EsServicio     bool            `gorm:"not null;default:false"`
	Cantidad       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Impuesto       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
}

func (DetalleCompra) TableName() string { return "detalles_compra" }

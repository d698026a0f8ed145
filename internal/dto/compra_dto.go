package dto

import "github.com/shopspring/decimal"

// DetalleCompraRequest is one purchased line.
type DetalleCompraRequest struct {
	ProductoNombre string          `json:"producto_nombre" binding:"required"`
	EsServicio     bool            `json:"es_servicio"`
	Cantidad       decimal.Decimal `json:"cantidad" binding:"required"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" binding:"required"`
	Impuesto       decimal.Decimal `json:"impuesto"`
}

// RegistrarCompraRequest records a received purchase (POST /v1/compras).
type RegistrarCompraRequest struct {
	NCFProveedor    string `json:"ncf_proveedor"`
	ProveedorNombre string `json:"proveedor_nombre" binding:"required"`
	ProveedorRNC    string `json:"proveedor_rnc" binding:"required"`
	Fecha           string `json:"fecha" binding:"required"` // YYYY-MM-DD
	FechaPago       string `json:"fecha_pago"`

	FormaPago           string `json:"forma_pago" binding:"omitempty,oneof=EFECTIVO TARJETA TRANSFERENCIA CHEQUE CREDITO"`
	TipoBienesServicios string `json:"tipo_bienes_servicios"` // catálogo 606

	ITBISRetenido  decimal.Decimal `json:"itbis_retenido"`
	RetencionRenta decimal.Decimal `json:"retencion_renta"`
	TipoRetencion  string          `json:"tipo_retencion"`

	Detalles []DetalleCompraRequest `json:"detalles" binding:"required,min=1,dive"`
}

// CompraResponse is the purchase representation.
type CompraResponse struct {
	ID              string          `json:"id"`
	Numero          string          `json:"numero"`
	NCFProveedor    string          `json:"ncf_proveedor,omitempty"`
	ProveedorNombre string          `json:"proveedor_nombre"`
	ProveedorRNC    string          `json:"proveedor_rnc"`
	Fecha           string          `json:"fecha"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TotalImpuestos  decimal.Decimal `json:"total_impuestos"`
	Total           decimal.Decimal `json:"total"`
	Estado          string          `json:"estado"`
	AsientoID       *string         `json:"asiento_id,omitempty"`
}

package dto

import "github.com/shopspring/decimal"

// DetalleVentaRequest is one sold line. The product snapshot (name, tax
// classification) travels in the request so invoicing never re-reads a
// catalog that may have changed.
type DetalleVentaRequest struct {
	ProductoID     string          `json:"producto_id" binding:"required,uuid"`
	ProductoNombre string          `json:"producto_nombre" binding:"required"`
	EsServicio     bool            `json:"es_servicio"`
	AplicaImpuesto *bool           `json:"aplica_impuesto"` // default true
	TasaImpuesto   decimal.Decimal `json:"tasa_impuesto"`   // default 18
	Cantidad       decimal.Decimal `json:"cantidad" binding:"required"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario" binding:"required"`
	PrecioCosto    decimal.Decimal `json:"precio_costo"`
	Descuento      decimal.Decimal `json:"descuento"`
}

// CompletarVentaRequest registers a completed sale (POST /v1/ventas).
type CompletarVentaRequest struct {
	TipoComprobante string `json:"tipo_comprobante" binding:"required,oneof=B01 B02 B14 B15"`

	ClienteNombre    string `json:"cliente_nombre"`
	ClienteDocumento string `json:"cliente_documento"`
	ClienteTipoDoc   string `json:"cliente_tipo_doc" binding:"omitempty,oneof=RNC CEDULA"`
	ClienteTipo      string `json:"cliente_tipo" binding:"omitempty,oneof=CONTADO CREDITO"`
	ClienteEmail     string `json:"cliente_email" binding:"omitempty,email"`

	TipoPago    string          `json:"tipo_pago" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA CHEQUE CREDITO MIXTO"`
	MontoPagado decimal.Decimal `json:"monto_pagado"`
	Descuento   decimal.Decimal `json:"descuento"`
	Notas       string          `json:"notas"`

	Detalles []DetalleVentaRequest `json:"detalles" binding:"required,min=1,dive"`
}

// AnularVentaRequest voids a completed sale via credit note.
type AnularVentaRequest struct {
	Motivo string `json:"motivo" binding:"required"`
}

// VentaFilter narrows the sale listing.
type VentaFilter struct {
	Page         int    `form:"page"`
	Limit        int    `form:"limit"`
	Estado       string `form:"estado"`
	EstadoFiscal string `form:"estado_fiscal"`
	Fecha        string `form:"fecha"` // YYYY-MM-DD
}

// DetalleVentaResponse mirrors one persisted line.
type DetalleVentaResponse struct {
	ProductoNombre string          `json:"producto_nombre"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Impuesto       decimal.Decimal `json:"impuesto"`
	Total          decimal.Decimal `json:"total"`
}

// VentaResponse is the full sale representation.
type VentaResponse struct {
	ID              string          `json:"id"`
	Numero          string          `json:"numero"`
	TipoComprobante string          `json:"tipo_comprobante"`
	NCF             string          `json:"ncf,omitempty"`
	ClienteNombre   string          `json:"cliente_nombre,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Descuento       decimal.Decimal `json:"descuento"`
	TotalImpuestos  decimal.Decimal `json:"total_impuestos"`
	Total           decimal.Decimal `json:"total"`
	TipoPago        string          `json:"tipo_pago"`
	Estado          string          `json:"estado"`
	EstadoFiscal    string          `json:"estado_fiscal"`
	AsientoID       *string         `json:"asiento_id,omitempty"`
	NotaCreditoID   *string         `json:"nota_credito_id,omitempty"`

	Detalles  []DetalleVentaResponse `json:"detalles"`
	CreatedAt string                 `json:"created_at"`
}

// VentaListResponse is the paginated listing envelope.
type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

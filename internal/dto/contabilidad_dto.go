package dto

import "github.com/shopspring/decimal"

// LineaAsientoRequest is one debit/credit line of a manual entry.
// Exactly one of debe/haber must be positive.
type LineaAsientoRequest struct {
	CuentaCodigo string          `json:"cuenta_codigo" binding:"required"`
	Descripcion  string          `json:"descripcion"`
	Debe         decimal.Decimal `json:"debe"`
	Haber        decimal.Decimal `json:"haber"`
}

// CrearAsientoRequest posts a manual journal entry
// (POST /v1/contabilidad/asientos).
type CrearAsientoRequest struct {
	Fecha       string                `json:"fecha" binding:"required"` // YYYY-MM-DD
	Descripcion string                `json:"descripcion" binding:"required"`
	Referencia  string                `json:"referencia"`
	Lineas      []LineaAsientoRequest `json:"lineas" binding:"required,min=2,dive"`
}

// LineaAsientoResponse mirrors one posted line.
type LineaAsientoResponse struct {
	CuentaCodigo string          `json:"cuenta_codigo"`
	Descripcion  string          `json:"descripcion,omitempty"`
	Debe         decimal.Decimal `json:"debe"`
	Haber        decimal.Decimal `json:"haber"`
}

// AsientoResponse is the posted journal entry representation.
type AsientoResponse struct {
	ID          string                 `json:"id"`
	Numero      string                 `json:"numero"`
	Fecha       string                 `json:"fecha"`
	Tipo        string                 `json:"tipo"`
	Descripcion string                 `json:"descripcion"`
	Referencia  string                 `json:"referencia,omitempty"`
	TotalDebe   decimal.Decimal        `json:"total_debe"`
	TotalHaber  decimal.Decimal        `json:"total_haber"`
	Estado      string                 `json:"estado"`
	Lineas      []LineaAsientoResponse `json:"lineas"`
}

// CuentaSaldoResponse is one row of the account-balance listing.
type CuentaSaldoResponse struct {
	Codigo      string          `json:"codigo"`
	Nombre      string          `json:"nombre"`
	Tipo        string          `json:"tipo"`
	Naturaleza  string          `json:"naturaleza"`
	SaldoActual decimal.Decimal `json:"saldo_actual"`
}

// CerrarPeriodoResponse reports the period-close outcome.
type CerrarPeriodoResponse struct {
	PeriodoID        string          `json:"periodo_id"`
	Estado           string          `json:"estado"`
	ResultadoNeto    decimal.Decimal `json:"resultado_neto"`
	AsientoCierreID  *string         `json:"asiento_cierre_id,omitempty"`
	AsientoCierreNum string          `json:"asiento_cierre_numero,omitempty"`
}

package dto

// CrearSecuenciaRequest registers a regulator-assigned NCF range
// (POST /v1/fiscal/secuencias).
type CrearSecuenciaRequest struct {
	TipoComprobante  string `json:"tipo_comprobante" binding:"required,oneof=B01 B02 B03 B04 B11 B13 B14 B15"`
	Serie            string `json:"serie" binding:"required,len=1"`
	NumeroDesde      int64  `json:"numero_desde" binding:"required,min=1"`
	NumeroHasta      int64  `json:"numero_hasta" binding:"required,min=1"`
	FechaVencimiento string `json:"fecha_vencimiento" binding:"required"` // YYYY-MM-DD
}

// SecuenciaResponse is one NCF range with its consumption cursor.
type SecuenciaResponse struct {
	ID               string `json:"id"`
	TipoComprobante  string `json:"tipo_comprobante"`
	Serie            string `json:"serie"`
	NumeroDesde      int64  `json:"numero_desde"`
	NumeroHasta      int64  `json:"numero_hasta"`
	NumeroActual     int64  `json:"numero_actual"`
	Disponibles      int64  `json:"disponibles"`
	FechaVencimiento string `json:"fecha_vencimiento"`
	Activa           bool   `json:"activa"`
}

package dto

// FacturacionResponse is the electronic invoice record for a sale
// (GET /v1/facturacion/:venta_id).
type FacturacionResponse struct {
	ID          string  `json:"id"`
	VentaID     string  `json:"venta_id"`
	ECFTipo     string  `json:"ecf_tipo"`
	NCF         string  `json:"ncf,omitempty"`
	TrackID     string  `json:"track_id,omitempty"`
	EstadoDGII  string  `json:"estado_dgii"`
	MensajeDGII string  `json:"mensaje_dgii,omitempty"`
	QRData      string  `json:"qr_data,omitempty"`
	RetryCount  int     `json:"retry_count"`
	NextRetryAt *string `json:"next_retry_at,omitempty"`
	FechaFirma  *string `json:"fecha_firma,omitempty"`
	PDFUrl      *string `json:"pdf_url,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

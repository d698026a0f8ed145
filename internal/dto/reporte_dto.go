package dto

// ReportePreviewResponse is the JSON preview of a fiscal report
// (GET /v1/fiscal/reportes/preview).
type ReportePreviewResponse struct {
	Tipo     string   `json:"tipo"`
	Periodo  string   `json:"periodo"`
	Filename string   `json:"filename"`
	RowCount int      `json:"row_count"`
	Rows     []string `json:"rows"`
}

// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Machine-readable codes for fiscal failures. Clients branch on these instead
// of parsing the detail message.
const (
	CodeSecuenciaAgotada   = "SECUENCIA_AGOTADA"
	CodeSecuenciaVencida   = "SECUENCIA_VENCIDA"
	CodePeriodoCerrado     = "PERIODO_CERRADO"
	CodeAsientoDesbalance  = "ASIENTO_DESBALANCEADO"
	CodeFirmaRechazada     = "FIRMA_RECHAZADA"
	CodeDGIIRechazado      = "DGII_RECHAZADO"
	CodeTransicionInvalida = "TRANSICION_INVALIDA"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewCoded attaches a machine-readable code to the envelope.
func NewCoded(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

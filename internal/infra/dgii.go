package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Estados devueltos por la DGII para un e-CF.
const (
	DGIIAceptado  = "ACEPTADO"
	DGIIRechazado = "RECHAZADO"
	DGIIEnProceso = "EN_PROCESO"
	DGIIError     = "ERROR"
)

// Base URLs por ambiente.
const (
	dgiiBaseTest = "https://ecf.dgii.gov.do/TesteCF/"
	dgiiBaseProd = "https://ecf.dgii.gov.do/CerteCF/"
)

// ErrDGIIRechazo marks a validation rejection by the tax authority. It is a
// business outcome, never retried.
var ErrDGIIRechazo = errors.New("dgii: comprobante rechazado")

// ErrDGIITransporte marks a network/availability failure. Safe to retry.
var ErrDGIITransporte = errors.New("dgii: error de transporte")

// ErrDGIIAutenticacion marks a credential rejection (HTTP 401). Retrying with
// the same credentials cannot succeed; an operator has to intervene.
var ErrDGIIAutenticacion = errors.New("dgii: autenticación rechazada")

// DGIIResponse is the normalized reception/consultation result.
type DGIIResponse struct {
	TrackID  string `json:"trackId"`
	Estado   string `json:"estado"`
	Mensajes []struct {
		Codigo string `json:"codigo"`
		Valor  string `json:"valor"`
	} `json:"mensajes"`
}

// Mensaje flattens regulator messages into one string for persistence.
func (r *DGIIResponse) Mensaje() string {
	var out string
	for i, m := range r.Mensajes {
		if i > 0 {
			out += "; "
		}
		out += m.Codigo + ": " + m.Valor
	}
	return out
}

// DGIIClient talks to the DGII e-CF reception services. Submission sends the
// signed XML as a multipart file; consultation and timbre are plain GETs.
// Only transport failures are retried here — rejections are final answers.
type DGIIClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewDGIIClient selects the base URL from the ambiente (TEST | PROD).
func NewDGIIClient(ambiente string, timeout time.Duration, maxRetries int) *DGIIClient {
	base := dgiiBaseTest
	if ambiente == "PROD" {
		base = dgiiBaseProd
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &DGIIClient{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// Enviar submits a signed e-CF XML. Retries transport errors with exponential
// backoff; an HTTP 4xx answer is surfaced immediately as a rejection.
func (c *DGIIClient) Enviar(ctx context.Context, nombreArchivo string, xmlFirmado []byte) (*DGIIResponse, error) {
	var resp *DGIIResponse
	var err error
	for intento := 0; intento < c.maxRetries; intento++ {
		if intento > 0 {
			backoff := time.Duration(1<<(intento-1)) * time.Second
			log.Warn().Int("intento", intento).Dur("backoff", backoff).Msg("reintentando envío a DGII")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		resp, err = c.enviarOnce(ctx, nombreArchivo, xmlFirmado)
		if err == nil || !errors.Is(err, ErrDGIITransporte) {
			return resp, err
		}
	}
	return nil, err
}

func (c *DGIIClient) enviarOnce(ctx context.Context, nombreArchivo string, xmlFirmado []byte) (*DGIIResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("xml", nombreArchivo)
	if err != nil {
		return nil, fmt.Errorf("dgii: multipart: %w", err)
	}
	if _, err := part.Write(xmlFirmado); err != nil {
		return nil, fmt.Errorf("dgii: multipart write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("dgii: multipart close: %w", err)
	}

	url := c.baseURL + "eCFRecepcion/api/FacturasElectronicas"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("dgii: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDGIITransporte, err)
	}
	defer resp.Body.Close()

	return c.decodificar(resp)
}

// ConsultarEstado queries the processing status of a submitted document.
func (c *DGIIClient) ConsultarEstado(ctx context.Context, trackID string) (*DGIIResponse, error) {
	url := c.baseURL + "eCFConsulta/api/Consultas/Estado?TrackId=" + trackID
	return c.get(ctx, url)
}

// ConsultarTimbre fetches the QR/timbre payload for an accepted document.
func (c *DGIIClient) ConsultarTimbre(ctx context.Context, trackID string) (*DGIIResponse, error) {
	url := c.baseURL + "eCFTimbre/api/Timbre?TrackId=" + trackID
	return c.get(ctx, url)
}

func (c *DGIIClient) get(ctx context.Context, url string) (*DGIIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dgii: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDGIITransporte, err)
	}
	defer resp.Body.Close()

	return c.decodificar(resp)
}

func (c *DGIIClient) decodificar(resp *http.Response) (*DGIIResponse, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: leyendo respuesta: %v", ErrDGIITransporte, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrDGIITransporte, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w (401)", ErrDGIIAutenticacion)
	case resp.StatusCode >= 400:
		var r DGIIResponse
		_ = json.Unmarshal(raw, &r)
		if r.Estado == "" {
			r.Estado = DGIIRechazado
		}
		return &r, fmt.Errorf("%w: status %d: %s", ErrDGIIRechazo, resp.StatusCode, r.Mensaje())
	}

	var r DGIIResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: respuesta inválida: %v", ErrDGIITransporte, err)
	}
	return &r, nil
}

// RawURL exposes the base URL for QR link construction.
func (c *DGIIClient) RawURL() string { return c.baseURL }

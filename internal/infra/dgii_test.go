package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clienteDePrueba(baseURL string) *DGIIClient {
	return &DGIIClient{
		baseURL:    baseURL + "/",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		maxRetries: 3,
	}
}

func TestEnviar_ReintentaTransporte(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Primer intento: caída del servicio; segundo: aceptado
		if atomic.AddInt32(&llamadas, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"trackId":"TRK-001","estado":"EN_PROCESO"}`))
	}))
	defer srv.Close()

	resp, err := clienteDePrueba(srv.URL).Enviar(context.Background(), "E32A00000001.xml", []byte("<ECF/>"))
	require.NoError(t, err)
	assert.Equal(t, "TRK-001", resp.TrackID)
	assert.Equal(t, DGIIEnProceso, resp.Estado)
	assert.Equal(t, int32(2), atomic.LoadInt32(&llamadas))
}

func TestEnviar_RechazoNoSeReintenta(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&llamadas, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"estado":"RECHAZADO","mensajes":[{"codigo":"105","valor":"NCF duplicado"}]}`))
	}))
	defer srv.Close()

	resp, err := clienteDePrueba(srv.URL).Enviar(context.Background(), "E32A00000001.xml", []byte("<ECF/>"))
	assert.ErrorIs(t, err, ErrDGIIRechazo)
	assert.Equal(t, int32(1), atomic.LoadInt32(&llamadas), "un rechazo es una respuesta final")
	require.NotNil(t, resp)
	assert.Equal(t, DGIIRechazado, resp.Estado)
	assert.Contains(t, resp.Mensaje(), "NCF duplicado")
}

func TestEnviar_AutenticacionNoSeReintenta(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&llamadas, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := clienteDePrueba(srv.URL).Enviar(context.Background(), "f.xml", []byte("<ECF/>"))
	require.ErrorIs(t, err, ErrDGIIAutenticacion)
	assert.NotErrorIs(t, err, ErrDGIITransporte)
	assert.NotErrorIs(t, err, ErrDGIIRechazo)
	assert.Equal(t, int32(1), atomic.LoadInt32(&llamadas))
}

func TestEnviar_TransporteAgotado(t *testing.T) {
	var llamadas int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&llamadas, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := clienteDePrueba(srv.URL).Enviar(context.Background(), "f.xml", []byte("<ECF/>"))
	assert.ErrorIs(t, err, ErrDGIITransporte)
	assert.Equal(t, int32(3), atomic.LoadInt32(&llamadas), "agota los reintentos configurados")
}

func TestConsultarEstado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TRK-007", r.URL.Query().Get("TrackId"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"trackId":"TRK-007","estado":"ACEPTADO"}`))
	}))
	defer srv.Close()

	resp, err := clienteDePrueba(srv.URL).ConsultarEstado(context.Background(), "TRK-007")
	require.NoError(t, err)
	assert.Equal(t, DGIIAceptado, resp.Estado)
}

func TestEnviar_RespuestaIlegible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>mantenimiento</html>"))
	}))
	defer srv.Close()

	_, err := clienteDePrueba(srv.URL).Enviar(context.Background(), "f.xml", []byte("<ECF/>"))
	assert.ErrorIs(t, err, ErrDGIITransporte)
}

func TestNewDGIIClient_Ambientes(t *testing.T) {
	test := NewDGIIClient("TEST", 0, 0)
	assert.Contains(t, test.RawURL(), "TesteCF")

	prod := NewDGIIClient("PROD", 0, 0)
	assert.Contains(t, prod.RawURL(), "CerteCF")
}

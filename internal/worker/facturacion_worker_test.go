package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/fiscal/firma"
	"fiscalpos/internal/infra"
	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubVentaRepo struct {
	mu     sync.Mutex
	ventas map[uuid.UUID]*model.Venta
}

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

func newStubVentaRepo(ventas ...*model.Venta) *stubVentaRepo {
	r := &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
	for _, v := range ventas {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		r.ventas[v.ID] = v
	}
	return r
}

func (r *stubVentaRepo) CreateTx(_ context.Context, _ *gorm.DB, v *model.Venta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.ventas[v.ID] = v
	return nil
}

func (r *stubVentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return v, nil
}

func (r *stubVentaRepo) FindByNCF(_ context.Context, negocioID uuid.UUID, ncf string) (*model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.ventas {
		if v.NegocioID == negocioID && v.NCF == ncf {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubVentaRepo) UpdateEstadoTx(_ context.Context, _ *gorm.DB, id uuid.UUID, estado string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.ventas[id]; ok {
		v.Estado = estado
	}
	return nil
}

func (r *stubVentaRepo) UpdateEstadoFiscal(_ context.Context, id uuid.UUID, estadoFiscal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.ventas[id]; ok {
		v.EstadoFiscal = estadoFiscal
	}
	return nil
}

func (r *stubVentaRepo) AsignarNCF(_ context.Context, id uuid.UUID, ncf string, fechaVencimiento time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.ventas[id]; ok {
		v.NCF = ncf
		v.FechaVencimiento = &fechaVencimiento
	}
	return nil
}

func (r *stubVentaRepo) NextNumeroTx(_ context.Context, _ *gorm.DB) (string, error) {
	return "V-00000001", nil
}

func (r *stubVentaRepo) List(_ context.Context, _ uuid.UUID, _ dto.VentaFilter) ([]model.Venta, int64, error) {
	return nil, 0, nil
}

func (r *stubVentaRepo) ListPorPeriodo(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]model.Venta, error) {
	return nil, nil
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

type stubNegocioRepo struct {
	negocios map[uuid.UUID]*model.Negocio
}

var _ repository.NegocioRepository = (*stubNegocioRepo)(nil)

func newStubNegocioRepo(negocios ...*model.Negocio) *stubNegocioRepo {
	r := &stubNegocioRepo{negocios: make(map[uuid.UUID]*model.Negocio)}
	for _, n := range negocios {
		r.negocios[n.ID] = n
	}
	return r
}

func (r *stubNegocioRepo) Create(_ context.Context, n *model.Negocio) error {
	r.negocios[n.ID] = n
	return nil
}

func (r *stubNegocioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Negocio, error) {
	n, ok := r.negocios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return n, nil
}

func (r *stubNegocioRepo) FindByRNC(_ context.Context, rnc string) (*model.Negocio, error) {
	for _, n := range r.negocios {
		if n.RNC == rnc {
			return n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubNegocioRepo) Update(_ context.Context, n *model.Negocio) error {
	r.negocios[n.ID] = n
	return nil
}

type stubFacturaRepo struct {
	mu       sync.Mutex
	facturas map[uuid.UUID]*model.FacturaElectronica // por VentaID
}

var _ repository.FacturaRepository = (*stubFacturaRepo)(nil)

func newStubFacturaRepo() *stubFacturaRepo {
	return &stubFacturaRepo{facturas: make(map[uuid.UUID]*model.FacturaElectronica)}
}

func (r *stubFacturaRepo) Create(_ context.Context, f *model.FacturaElectronica) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	r.facturas[f.VentaID] = f
	return nil
}

func (r *stubFacturaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.FacturaElectronica, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.facturas {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubFacturaRepo) FindByVentaID(_ context.Context, ventaID uuid.UUID) (*model.FacturaElectronica, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.facturas[ventaID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *stubFacturaRepo) Update(_ context.Context, f *model.FacturaElectronica) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facturas[f.VentaID] = f
	return nil
}

func (r *stubFacturaRepo) ListParaReintento(_ context.Context, _ time.Time, _ int) ([]model.FacturaElectronica, error) {
	return nil, nil
}

type stubAllocator struct {
	ncf      string
	venc     time.Time
	err      error
	llamadas int
}

var _ NCFAllocator = (*stubAllocator)(nil)

func (a *stubAllocator) SiguienteNCF(_ context.Context, _ uuid.UUID, tipo string) (*model.NCFAsignado, error) {
	a.llamadas++
	if a.err != nil {
		return nil, a.err
	}
	return &model.NCFAsignado{NCF: a.ncf, TipoComprobante: tipo, FechaVencimiento: a.venc}, nil
}

// fakeGateway answers with a scripted response per operation.
type fakeGateway struct {
	enviarResp   *infra.DGIIResponse
	enviarErr    error
	consultaResp *infra.DGIIResponse
	consultaErr  error
	envios       int
	consultas    int
}

var _ DGIIGateway = (*fakeGateway)(nil)

func (g *fakeGateway) Enviar(_ context.Context, _ string, _ []byte) (*infra.DGIIResponse, error) {
	g.envios++
	return g.enviarResp, g.enviarErr
}

func (g *fakeGateway) ConsultarEstado(_ context.Context, _ string) (*infra.DGIIResponse, error) {
	g.consultas++
	return g.consultaResp, g.consultaErr
}

func (g *fakeGateway) ConsultarTimbre(_ context.Context, _ string) (*infra.DGIIResponse, error) {
	return &infra.DGIIResponse{Estado: infra.DGIIAceptado}, nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type entornoEmision struct {
	ventas   *stubVentaRepo
	facturas *stubFacturaRepo
	negocios *stubNegocioRepo
	gateway  *fakeGateway
	worker   *FacturacionWorker
	venta    *model.Venta
}

func nuevoEntornoEmision(t *testing.T) *entornoEmision {
	t.Helper()

	negocio := &model.Negocio{
		ID:           uuid.New(),
		RNC:          "131880681",
		RazonSocial:  "Comercial Demo SRL",
		AmbienteDGII: "TEST",
	}
	venta := &model.Venta{
		ID:              uuid.New(),
		NegocioID:       negocio.ID,
		Numero:          "V-00000001",
		TipoComprobante: "B02",
		Estado:          model.VentaCompletada,
		EstadoFiscal:    model.FiscalPendiente,
		Fecha:           time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		TipoPago:        model.TipoPagoEfectivo,
		Subtotal:        decimal.RequireFromString("1000.00"),
		TotalImpuestos:  decimal.RequireFromString("180.00"),
		Total:           decimal.RequireFromString("1180.00"),
		Detalles: []model.DetalleVenta{
			{
				ProductoNombre: "Arroz premium 5lb",
				AplicaImpuesto: true,
				TasaImpuesto:   decimal.RequireFromString("18"),
				Cantidad:       decimal.RequireFromString("2"),
				PrecioUnitario: decimal.RequireFromString("500.00"),
				Subtotal:       decimal.RequireFromString("1000.00"),
				Impuesto:       decimal.RequireFromString("180.00"),
				Total:          decimal.RequireFromString("1180.00"),
			},
		},
	}

	e := &entornoEmision{
		ventas:   newStubVentaRepo(venta),
		facturas: newStubFacturaRepo(),
		negocios: newStubNegocioRepo(negocio),
		gateway:  &fakeGateway{},
		venta:    venta,
	}
	e.worker = NewFacturacionWorker(
		e.ventas,
		e.negocios,
		e.facturas,
		&stubAllocator{ncf: "E32A00000001", venc: time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)},
		firma.NewFirmador(true),
		func(string) DGIIGateway { return e.gateway },
		nil,
		t.TempDir(),
	)
	return e
}

func (e *entornoEmision) procesar(t *testing.T) {
	t.Helper()
	raw, err := json.Marshal(FacturacionJobPayload{VentaID: e.venta.ID.String()})
	require.NoError(t, err)
	e.worker.Process(context.Background(), raw)
}

func (e *entornoEmision) factura(t *testing.T) *model.FacturaElectronica {
	t.Helper()
	f, err := e.facturas.FindByVentaID(context.Background(), e.venta.ID)
	require.NoError(t, err)
	return f
}

// ── Pipeline de emisión ──────────────────────────────────────────────────────

func TestProcess_Aceptado(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.gateway.enviarResp = &infra.DGIIResponse{TrackID: "TRK-100", Estado: infra.DGIIAceptado}

	e.procesar(t)

	assert.Equal(t, "E32A00000001", e.venta.NCF, "el NCF se asigna durante la emisión")
	assert.Equal(t, model.FiscalAprobado, e.venta.EstadoFiscal)

	f := e.factura(t)
	assert.Equal(t, infra.DGIIAceptado, f.EstadoDGII)
	assert.Equal(t, "TRK-100", f.TrackID)
	assert.Nil(t, f.NextRetryAt)
	assert.NotEmpty(t, f.XMLFirmado)
	assert.Equal(t, 1, e.gateway.envios)
}

func TestProcess_RechazoEsTerminal(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.gateway.enviarResp = &infra.DGIIResponse{
		Estado: infra.DGIIRechazado,
		Mensajes: []struct {
			Codigo string `json:"codigo"`
			Valor  string `json:"valor"`
		}{{Codigo: "105", Valor: "NCF duplicado"}},
	}
	e.gateway.enviarErr = fmt.Errorf("%w: status 400", infra.ErrDGIIRechazo)

	e.procesar(t)

	assert.Equal(t, model.FiscalRechazado, e.venta.EstadoFiscal)
	f := e.factura(t)
	assert.Equal(t, infra.DGIIRechazado, f.EstadoDGII)
	assert.Contains(t, f.MensajeDGII, "NCF duplicado")
	assert.Nil(t, f.NextRetryAt, "un rechazo nunca se reintenta")
}

func TestProcess_TransporteVaAContingencia(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.gateway.enviarErr = fmt.Errorf("%w: status 503", infra.ErrDGIITransporte)

	e.procesar(t)

	assert.Equal(t, model.FiscalContingencia, e.venta.EstadoFiscal)
	f := e.factura(t)
	assert.Equal(t, model.FiscalContingencia, f.EstadoDGII)
	assert.Equal(t, 1, f.RetryCount)
	require.NotNil(t, f.NextRetryAt)
	assert.True(t, f.NextRetryAt.After(time.Now()))
}

func TestProcess_AutenticacionNoProgramaReintento(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.gateway.enviarErr = fmt.Errorf("%w (401)", infra.ErrDGIIAutenticacion)

	e.procesar(t)

	// Credenciales malas: queda en ERROR para intervención manual, nunca en
	// el calendario del cron
	f := e.factura(t)
	assert.Equal(t, infra.DGIIError, f.EstadoDGII)
	assert.Nil(t, f.NextRetryAt)
	require.NotNil(t, f.LastError)
	assert.Contains(t, *f.LastError, "autenticación")
	assert.NotEqual(t, model.FiscalContingencia, e.venta.EstadoFiscal)
	assert.Equal(t, 1, e.gateway.envios)
}

func TestProcess_EnProcesoProgramaConsulta(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.gateway.enviarResp = &infra.DGIIResponse{TrackID: "TRK-200", Estado: infra.DGIIEnProceso}

	e.procesar(t)

	f := e.factura(t)
	assert.Equal(t, infra.DGIIEnProceso, f.EstadoDGII)
	assert.Equal(t, "TRK-200", f.TrackID)
	require.NotNil(t, f.NextRetryAt)
}

func TestProcess_EstadoTerminalNoReemite(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.venta.EstadoFiscal = model.FiscalAprobado

	e.procesar(t)

	assert.Equal(t, 0, e.gateway.envios)
}

// ── Consulta de estado desde el cron ─────────────────────────────────────────

func cronConfigDe(e *entornoEmision) RetryCronConfig {
	return RetryCronConfig{
		FacturaRepo: e.facturas,
		VentaRepo:   e.ventas,
		NegocioRepo: e.negocios,
		Worker:      e.worker,
		CB:          infra.NewCircuitBreaker(infra.DefaultCBConfig()),
	}
}

func TestConsultar_RechazoTerminaElDocumento(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.venta.EstadoFiscal = model.FiscalEnviado
	factura := &model.FacturaElectronica{
		VentaID:    e.venta.ID,
		ECFTipo:    "32",
		TrackID:    "TRK-300",
		EstadoDGII: infra.DGIIEnProceso,
		XMLFirmado: "<ECF/>",
	}
	require.NoError(t, e.facturas.Create(context.Background(), factura))

	e.gateway.consultaResp = &infra.DGIIResponse{
		TrackID: "TRK-300",
		Estado:  infra.DGIIRechazado,
		Mensajes: []struct {
			Codigo string `json:"codigo"`
			Valor  string `json:"valor"`
		}{{Codigo: "310", Valor: "Estructura inválida"}},
	}
	e.gateway.consultaErr = fmt.Errorf("%w: status 400", infra.ErrDGIIRechazo)

	consultar(context.Background(), cronConfigDe(e), e.gateway, e.venta, factura)

	// La respuesta de rechazo en la consulta cierra el documento, no lo
	// deja ciclando hasta la DLQ
	assert.Equal(t, model.FiscalRechazado, e.venta.EstadoFiscal)
	assert.Equal(t, infra.DGIIRechazado, factura.EstadoDGII)
	assert.Contains(t, factura.MensajeDGII, "Estructura inválida")
	assert.Nil(t, factura.NextRetryAt)
	assert.Equal(t, 0, factura.RetryCount)
}

func TestConsultar_TransporteEmpujaLaConsulta(t *testing.T) {
	e := nuevoEntornoEmision(t)
	e.venta.EstadoFiscal = model.FiscalEnviado
	factura := &model.FacturaElectronica{
		VentaID:    e.venta.ID,
		ECFTipo:    "32",
		TrackID:    "TRK-301",
		EstadoDGII: infra.DGIIEnProceso,
	}
	require.NoError(t, e.facturas.Create(context.Background(), factura))
	e.gateway.consultaErr = fmt.Errorf("%w: status 503", infra.ErrDGIITransporte)

	consultar(context.Background(), cronConfigDe(e), e.gateway, e.venta, factura)

	assert.Equal(t, infra.DGIIEnProceso, factura.EstadoDGII)
	assert.Equal(t, 1, factura.RetryCount)
	require.NotNil(t, factura.NextRetryAt)
}

// ── Backoff ──────────────────────────────────────────────────────────────────

func TestComputeRetryBackoff(t *testing.T) {
	casos := []struct {
		retryCount int
		esperado   time.Duration
	}{
		{0, time.Minute}, // primer reintento nunca baja de 1m
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{5, 16 * time.Minute},
		{6, 30 * time.Minute}, // tope
		{20, 30 * time.Minute},
	}
	for _, c := range casos {
		assert.Equal(t, c.esperado, computeRetryBackoff(c.retryCount), "retry_count=%d", c.retryCount)
	}
}

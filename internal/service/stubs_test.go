package service

// stubs_test.go
// In-memory repository stubs shared by the service tests. DB() returns nil so
// runTx executes the closure directly, without a real transaction.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Secuencias ───────────────────────────────────────────────────────────────

type stubSecuenciaRepo struct {
	mu         sync.Mutex
	secuencias map[string]*model.SecuenciaNCF // negocioID:tipo → fila activa
}

var _ repository.SecuenciaRepository = (*stubSecuenciaRepo)(nil)

func newStubSecuenciaRepo() *stubSecuenciaRepo {
	return &stubSecuenciaRepo{secuencias: make(map[string]*model.SecuenciaNCF)}
}

func claveSecuencia(negocioID uuid.UUID, tipo string) string {
	return negocioID.String() + ":" + tipo
}

func (r *stubSecuenciaRepo) DB() *gorm.DB { return nil }

func (r *stubSecuenciaRepo) Create(_ context.Context, s *model.SecuenciaNCF) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.secuencias[claveSecuencia(s.NegocioID, s.TipoComprobante)] = s
	return nil
}

func (r *stubSecuenciaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.SecuenciaNCF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.secuencias {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSecuenciaRepo) FindActivaForUpdate(_ context.Context, _ *gorm.DB, negocioID uuid.UUID, tipo string) (*model.SecuenciaNCF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.secuencias[claveSecuencia(negocioID, tipo)]
	if !ok || !s.Activa {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSecuenciaRepo) SaveTx(_ context.Context, _ *gorm.DB, s *model.SecuenciaNCF) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secuencias[claveSecuencia(s.NegocioID, s.TipoComprobante)] = s
	return nil
}

func (r *stubSecuenciaRepo) ListByNegocio(_ context.Context, negocioID uuid.UUID) ([]model.SecuenciaNCF, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SecuenciaNCF
	for _, s := range r.secuencias {
		if s.NegocioID == negocioID {
			out = append(out, *s)
		}
	}
	return out, nil
}

// ── Cuentas ──────────────────────────────────────────────────────────────────

type stubCuentaRepo struct {
	mu      sync.Mutex
	cuentas map[uuid.UUID]*model.CuentaContable
	netos   []repository.CuentaNeto // respuesta fija para NetosPorPeriodo
}

var _ repository.CuentaRepository = (*stubCuentaRepo)(nil)

func newStubCuentaRepo() *stubCuentaRepo {
	return &stubCuentaRepo{cuentas: make(map[uuid.UUID]*model.CuentaContable)}
}

// agregar registers an account and returns it for test assertions.
func (r *stubCuentaRepo) agregar(negocioID uuid.UUID, codigo, tipo, naturaleza string) *model.CuentaContable {
	c := &model.CuentaContable{
		ID:         uuid.New(),
		NegocioID:  negocioID,
		Codigo:     codigo,
		Nombre:     codigo,
		Tipo:       tipo,
		Naturaleza: naturaleza,
		Activa:     true,
	}
	r.cuentas[c.ID] = c
	return c
}

func (r *stubCuentaRepo) Create(_ context.Context, c *model.CuentaContable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.cuentas[c.ID] = c
	return nil
}

func (r *stubCuentaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CuentaContable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cuentas[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCuentaRepo) FindByCodigo(_ context.Context, negocioID uuid.UUID, codigo string) (*model.CuentaContable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cuentas {
		if c.NegocioID == negocioID && c.Codigo == codigo && c.Activa {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCuentaRepo) ListByNegocio(_ context.Context, negocioID uuid.UUID) ([]model.CuentaContable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CuentaContable
	for _, c := range r.cuentas {
		if c.NegocioID == negocioID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *stubCuentaRepo) AplicarDeltaTx(_ *gorm.DB, cuentaID uuid.UUID, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cuentas[cuentaID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.SaldoActual = c.SaldoActual.Add(delta)
	return nil
}

func (r *stubCuentaRepo) NetosPorPeriodo(_ context.Context, _ uuid.UUID, _ []string) ([]repository.CuentaNeto, error) {
	return r.netos, nil
}

// ── Períodos ─────────────────────────────────────────────────────────────────

type stubPeriodoRepo struct {
	periodos   map[uuid.UUID]*model.PeriodoContable
	borradores int64
}

var _ repository.PeriodoRepository = (*stubPeriodoRepo)(nil)

func newStubPeriodoRepo() *stubPeriodoRepo {
	return &stubPeriodoRepo{periodos: make(map[uuid.UUID]*model.PeriodoContable)}
}

func (r *stubPeriodoRepo) abierto(negocioID uuid.UUID, desde, hasta time.Time) *model.PeriodoContable {
	p := &model.PeriodoContable{
		ID:          uuid.New(),
		NegocioID:   negocioID,
		Nombre:      desde.Format("2006-01"),
		FechaInicio: desde,
		FechaFin:    hasta,
		Estado:      model.PeriodoAbierto,
	}
	r.periodos[p.ID] = p
	return p
}

func (r *stubPeriodoRepo) Create(_ context.Context, p *model.PeriodoContable) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.periodos[p.ID] = p
	return nil
}

func (r *stubPeriodoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PeriodoContable, error) {
	if p, ok := r.periodos[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPeriodoRepo) FindAbiertoPorFecha(_ context.Context, negocioID uuid.UUID, fecha time.Time) (*model.PeriodoContable, error) {
	for _, p := range r.periodos {
		if p.NegocioID == negocioID && p.Estado == model.PeriodoAbierto && p.Cubre(fecha) {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPeriodoRepo) ListByNegocio(_ context.Context, negocioID uuid.UUID) ([]model.PeriodoContable, error) {
	var out []model.PeriodoContable
	for _, p := range r.periodos {
		if p.NegocioID == negocioID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubPeriodoRepo) CountBorradores(_ context.Context, _ uuid.UUID) (int64, error) {
	return r.borradores, nil
}

func (r *stubPeriodoRepo) CerrarTx(_ *gorm.DB, periodoID uuid.UUID) error {
	p, ok := r.periodos[periodoID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	ahora := time.Now()
	p.Estado = model.PeriodoCerrado
	p.FechaCierre = &ahora
	return nil
}

// ── Asientos ─────────────────────────────────────────────────────────────────

type stubAsientoRepo struct {
	mu          sync.Mutex
	asientos    map[uuid.UUID]*model.AsientoContable
	contador    int
	fallarWrite bool // fuerza un fallo de persistencia dentro de la transacción
}

var _ repository.AsientoRepository = (*stubAsientoRepo)(nil)

func newStubAsientoRepo() *stubAsientoRepo {
	return &stubAsientoRepo{asientos: make(map[uuid.UUID]*model.AsientoContable)}
}

func (r *stubAsientoRepo) DB() *gorm.DB { return nil }

func (r *stubAsientoRepo) CreateTx(_ context.Context, _ *gorm.DB, a *model.AsientoContable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallarWrite {
		return errors.New("escritura rechazada")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.asientos[a.ID] = a
	return nil
}

func (r *stubAsientoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.AsientoContable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.asientos[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAsientoRepo) ListByPeriodo(_ context.Context, periodoID uuid.UUID) ([]model.AsientoContable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AsientoContable
	for _, a := range r.asientos {
		if a.PeriodoID == periodoID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *stubAsientoRepo) NextNumeroTx(_ context.Context, _ *gorm.DB, _ uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contador++
	return fmt.Sprintf("AST-%06d", r.contador), nil
}

// ── Negocios ─────────────────────────────────────────────────────────────────

type stubNegocioRepo struct {
	negocios map[uuid.UUID]*model.Negocio
}

var _ repository.NegocioRepository = (*stubNegocioRepo)(nil)

func newStubNegocioRepo(negocios ...*model.Negocio) *stubNegocioRepo {
	r := &stubNegocioRepo{negocios: make(map[uuid.UUID]*model.Negocio)}
	for _, n := range negocios {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		r.negocios[n.ID] = n
	}
	return r
}

func (r *stubNegocioRepo) Create(_ context.Context, n *model.Negocio) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.negocios[n.ID] = n
	return nil
}

func (r *stubNegocioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Negocio, error) {
	if n, ok := r.negocios[id]; ok {
		return n, nil
	}
	return nil, gorm.ErrRecordNotFound
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

// ── Ventas ───────────────────────────────────────────────────────────────────

type stubVentaRepo struct {
	mu       sync.Mutex
	ventas   map[uuid.UUID]*model.Venta
	contador int
}

var _ repository.VentaRepository = (*stubVentaRepo)(nil)

func newStubVentaRepo() *stubVentaRepo {
	return &stubVentaRepo{ventas: make(map[uuid.UUID]*model.Venta)}
}

func (r *stubVentaRepo) DB() *gorm.DB { return nil }

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
	if v, ok := r.ventas[id]; ok {
		return v, nil
	}
	return nil, gorm.ErrRecordNotFound
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
	v, ok := r.ventas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.Estado = estado
	return nil
}

func (r *stubVentaRepo) UpdateEstadoFiscal(_ context.Context, id uuid.UUID, estadoFiscal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.EstadoFiscal = estadoFiscal
	return nil
}

func (r *stubVentaRepo) AsignarNCF(_ context.Context, id uuid.UUID, ncf string, fechaVencimiento time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ventas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.NCF = ncf
	v.FechaVencimiento = &fechaVencimiento
	return nil
}

func (r *stubVentaRepo) NextNumeroTx(_ context.Context, _ *gorm.DB) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contador++
	return fmt.Sprintf("V-%08d", r.contador), nil
}

func (r *stubVentaRepo) List(_ context.Context, negocioID uuid.UUID, _ dto.VentaFilter) ([]model.Venta, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if v.NegocioID == negocioID {
			out = append(out, *v)
		}
	}
	return out, int64(len(out)), nil
}

func (r *stubVentaRepo) ListPorPeriodo(_ context.Context, negocioID uuid.UUID, desde, hasta time.Time) ([]model.Venta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Venta
	for _, v := range r.ventas {
		if v.NegocioID == negocioID && !v.Fecha.Before(desde) && v.Fecha.Before(hasta) {
			out = append(out, *v)
		}
	}
	return out, nil
}

// ── Stock y auditoría ────────────────────────────────────────────────────────

type stubStockRepo struct {
	mu          sync.Mutex
	movimientos []*model.MovimientoStock
}

var _ repository.MovimientoStockRepository = (*stubStockRepo)(nil)

func (r *stubStockRepo) CreateTx(_ context.Context, _ *gorm.DB, m *model.MovimientoStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movimientos = append(r.movimientos, m)
	return nil
}

func (r *stubStockRepo) ListByReferencia(_ context.Context, referenciaID uuid.UUID) ([]model.MovimientoStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MovimientoStock
	for _, m := range r.movimientos {
		if m.ReferenciaID != nil && *m.ReferenciaID == referenciaID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type stubAuditRepo struct {
	entries []*model.AuditLog
}

var _ repository.AuditRepository = (*stubAuditRepo)(nil)

func (r *stubAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

// ── Facturas ─────────────────────────────────────────────────────────────────

type stubFacturaRepo struct {
	mu       sync.Mutex
	facturas map[uuid.UUID]*model.FacturaElectronica // keyed por VentaID
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
	if f, ok := r.facturas[ventaID]; ok {
		return f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubFacturaRepo) Update(_ context.Context, f *model.FacturaElectronica) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facturas[f.VentaID] = f
	return nil
}

func (r *stubFacturaRepo) ListParaReintento(_ context.Context, ahora time.Time, limit int) ([]model.FacturaElectronica, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.FacturaElectronica
	for _, f := range r.facturas {
		if f.NextRetryAt != nil && !f.NextRetryAt.After(ahora) && len(out) < limit {
			out = append(out, *f)
		}
	}
	return out, nil
}

// ── Compras ──────────────────────────────────────────────────────────────────

type stubCompraRepo struct {
	mu      sync.Mutex
	compras map[uuid.UUID]*model.Compra
}

var _ repository.CompraRepository = (*stubCompraRepo)(nil)

func newStubCompraRepo() *stubCompraRepo {
	return &stubCompraRepo{compras: make(map[uuid.UUID]*model.Compra)}
}

func (r *stubCompraRepo) DB() *gorm.DB { return nil }

func (r *stubCompraRepo) CreateTx(_ context.Context, _ *gorm.DB, c *model.Compra) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.compras[c.ID] = c
	return nil
}

func (r *stubCompraRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Compra, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.compras[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCompraRepo) UpdateEstadoTx(_ context.Context, _ *gorm.DB, id uuid.UUID, estado string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.compras[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Estado = estado
	return nil
}

func (r *stubCompraRepo) ListPorPeriodo(_ context.Context, negocioID uuid.UUID, desde, hasta time.Time) ([]model.Compra, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Compra
	for _, c := range r.compras {
		if c.NegocioID == negocioID && !c.Fecha.Before(desde) && c.Fecha.Before(hasta) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// ── Contabilidad (para los tests de ventas) ──────────────────────────────────

type stubContabilidad struct {
	ventasContabilizadas int
	reversas             []uuid.UUID
	fallar               bool
}

var _ ContabilidadService = (*stubContabilidad)(nil)

func (s *stubContabilidad) CrearAsientoManual(_ context.Context, _ uuid.UUID, _ dto.CrearAsientoRequest) (*dto.AsientoResponse, error) {
	return nil, fmt.Errorf("no implementado")
}

func (s *stubContabilidad) ContabilizarAsiento(_ context.Context, a *model.AsientoContable) error {
	if s.fallar {
		return fmt.Errorf("contabilidad caída")
	}
	a.ID = uuid.New()
	a.Estado = model.AsientoContabilizado
	return nil
}

func (s *stubContabilidad) CrearAsientoVenta(_ context.Context, _ *model.Venta, _ *model.Negocio) (*model.AsientoContable, error) {
	if s.fallar {
		return nil, fmt.Errorf("contabilidad caída")
	}
	s.ventasContabilizadas++
	return &model.AsientoContable{ID: uuid.New(), Tipo: model.AsientoVenta}, nil
}

func (s *stubContabilidad) CrearAsientoCompra(_ context.Context, _ *model.Compra, _ *model.Negocio) (*model.AsientoContable, error) {
	return &model.AsientoContable{ID: uuid.New(), Tipo: model.AsientoCompra}, nil
}

func (s *stubContabilidad) CrearAsientoReversa(_ context.Context, asientoID uuid.UUID, _ time.Time, _ string) (*model.AsientoContable, error) {
	if s.fallar {
		return nil, fmt.Errorf("contabilidad caída")
	}
	s.reversas = append(s.reversas, asientoID)
	return &model.AsientoContable{ID: uuid.New(), Tipo: model.AsientoAjuste}, nil
}

func (s *stubContabilidad) CerrarPeriodo(_ context.Context, _, _ uuid.UUID) (*ResultadoCierre, error) {
	return nil, fmt.Errorf("no implementado")
}

func (s *stubContabilidad) ListCuentas(_ context.Context, _ uuid.UUID) ([]model.CuentaContable, error) {
	return nil, nil
}

func (s *stubContabilidad) ObtenerAsiento(_ context.Context, _ uuid.UUID) (*dto.AsientoResponse, error) {
	return nil, gorm.ErrRecordNotFound
}

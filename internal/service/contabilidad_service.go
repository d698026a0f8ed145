package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrAsientoDesbalanceado: |Σdebe − Σhaber| exceeds the tolerance.
	ErrAsientoDesbalanceado = errors.New("el asiento no está balanceado")
	// ErrAsientoSinLineas: an entry needs at least two postings.
	ErrAsientoSinLineas = errors.New("el asiento requiere al menos dos líneas")
	// ErrLineaInvalida: a line must carry exactly one positive side.
	ErrLineaInvalida = errors.New("cada línea debe tener debe o haber positivo, no ambos")
	// ErrPeriodoCerrado: no open period covers the entry date.
	ErrPeriodoCerrado = errors.New("no hay período contable abierto para la fecha")
	// ErrPeriodoConBorradores: a close is refused while drafts remain.
	ErrPeriodoConBorradores = errors.New("el período tiene asientos en borrador")
	// ErrCuentaNoEncontrada: an account code does not exist for the business.
	ErrCuentaNoEncontrada = errors.New("cuenta contable no encontrada")
)

// ResultadoCierre reports the outcome of a period close.
type ResultadoCierre struct {
	ResultadoNeto decimal.Decimal
	AsientoCierre *model.AsientoContable // nil when the result was zero
}

type ContabilidadService interface {
	// CrearAsientoManual posts a manual journal entry from the API request.
	CrearAsientoManual(ctx context.Context, negocioID uuid.UUID, req dto.CrearAsientoRequest) (*dto.AsientoResponse, error)
	// ContabilizarAsiento validates and posts a candidate entry atomically:
	// entry + lines persisted as CONTABILIZADO and account balances updated
	// in the same transaction. The candidate is never partially persisted.
	ContabilizarAsiento(ctx context.Context, asiento *model.AsientoContable) error
	// CrearAsientoVenta builds and posts the automatic sale entry.
	CrearAsientoVenta(ctx context.Context, venta *model.Venta, negocio *model.Negocio) (*model.AsientoContable, error)
	// CrearAsientoCompra builds and posts the automatic purchase entry.
	CrearAsientoCompra(ctx context.Context, compra *model.Compra, negocio *model.Negocio) (*model.AsientoContable, error)
	// CrearAsientoReversa posts the mirror entry of a posted asiento.
	CrearAsientoReversa(ctx context.Context, asientoID uuid.UUID, fecha time.Time, referencia string) (*model.AsientoContable, error)
	// CerrarPeriodo irreversibly closes a period, posting the closing entry
	// that transfers the net result to equity when it is nonzero.
	CerrarPeriodo(ctx context.Context, negocioID, periodoID uuid.UUID) (*ResultadoCierre, error)
	ListCuentas(ctx context.Context, negocioID uuid.UUID) ([]model.CuentaContable, error)
	ObtenerAsiento(ctx context.Context, id uuid.UUID) (*dto.AsientoResponse, error)
}

type contabilidadService struct {
	cuentaRepo  repository.CuentaRepository
	periodoRepo repository.PeriodoRepository
	asientoRepo repository.AsientoRepository
	negocioRepo repository.NegocioRepository
}

func NewContabilidadService(
	cuentaRepo repository.CuentaRepository,
	periodoRepo repository.PeriodoRepository,
	asientoRepo repository.AsientoRepository,
	negocioRepo repository.NegocioRepository,
) ContabilidadService {
	return &contabilidadService{
		cuentaRepo:  cuentaRepo,
		periodoRepo: periodoRepo,
		asientoRepo: asientoRepo,
		negocioRepo: negocioRepo,
	}
}

// ── CrearAsientoManual ────────────────────────────────────────────────────────

func (s *contabilidadService) CrearAsientoManual(ctx context.Context, negocioID uuid.UUID, req dto.CrearAsientoRequest) (*dto.AsientoResponse, error) {
	fecha, err := time.Parse("2006-01-02", req.Fecha)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida: %s", req.Fecha)
	}

	lineas := make([]model.LineaAsiento, 0, len(req.Lineas))
	for _, l := range req.Lineas {
		cuenta, err := s.cuentaPorCodigo(ctx, negocioID, l.CuentaCodigo)
		if err != nil {
			return nil, err
		}
		lineas = append(lineas, model.LineaAsiento{
			CuentaID:    cuenta.ID,
			Descripcion: l.Descripcion,
			Debe:        l.Debe,
			Haber:       l.Haber,
			Cuenta:      cuenta,
		})
	}

	asiento := &model.AsientoContable{
		NegocioID:   negocioID,
		Fecha:       fecha,
		Tipo:        model.AsientoManual,
		Descripcion: req.Descripcion,
		Referencia:  req.Referencia,
		Lineas:      lineas,
	}
	if err := s.ContabilizarAsiento(ctx, asiento); err != nil {
		return nil, err
	}
	return asientoToResponse(asiento), nil
}

// ── ContabilizarAsiento ───────────────────────────────────────────────────────

func (s *contabilidadService) ContabilizarAsiento(ctx context.Context, asiento *model.AsientoContable) error {
	cuentas, err := s.validarAsiento(ctx, asiento)
	if err != nil {
		return err
	}
	return runTx(ctx, s.asientoRepo.DB(), func(tx *gorm.DB) error {
		return s.contabilizarTx(ctx, tx, asiento, cuentas)
	})
}

// validarAsiento runs every posting validation and resolves the accounts the
// balance deltas need. Nothing is persisted here.
func (s *contabilidadService) validarAsiento(ctx context.Context, asiento *model.AsientoContable) (map[uuid.UUID]*model.CuentaContable, error) {
	if len(asiento.Lineas) < 2 {
		return nil, ErrAsientoSinLineas
	}

	totalDebe, totalHaber := decimal.Zero, decimal.Zero
	for i := range asiento.Lineas {
		l := &asiento.Lineas[i]
		if l.Debe.IsNegative() || l.Haber.IsNegative() {
			return nil, fmt.Errorf("%w: montos negativos", ErrLineaInvalida)
		}
		debePos, haberPos := l.Debe.IsPositive(), l.Haber.IsPositive()
		if debePos == haberPos {
			return nil, ErrLineaInvalida
		}
		totalDebe = totalDebe.Add(l.Debe)
		totalHaber = totalHaber.Add(l.Haber)
	}
	asiento.TotalDebe, asiento.TotalHaber = totalDebe, totalHaber
	if !asiento.Balanceado() {
		return nil, fmt.Errorf("%w: debe=%s haber=%s", ErrAsientoDesbalanceado,
			totalDebe.StringFixed(2), totalHaber.StringFixed(2))
	}

	// Resolve the open period covering the entry date
	periodo, err := s.periodoRepo.FindAbiertoPorFecha(ctx, asiento.NegocioID, asiento.Fecha)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPeriodoCerrado, asiento.Fecha.Format("2006-01-02"))
	}
	asiento.PeriodoID = periodo.ID

	// Load accounts up front so balance deltas know each naturaleza
	cuentas := make(map[uuid.UUID]*model.CuentaContable, len(asiento.Lineas))
	for i := range asiento.Lineas {
		cid := asiento.Lineas[i].CuentaID
		if _, ok := cuentas[cid]; ok {
			continue
		}
		cuenta, err := s.cuentaRepo.FindByID(ctx, cid)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCuentaNoEncontrada, cid)
		}
		cuentas[cid] = cuenta
	}
	return cuentas, nil
}

// contabilizarTx persists a validated entry and applies the balance deltas
// inside the caller's transaction.
func (s *contabilidadService) contabilizarTx(ctx context.Context, tx *gorm.DB, asiento *model.AsientoContable, cuentas map[uuid.UUID]*model.CuentaContable) error {
	asiento.Estado = model.AsientoContabilizado

	numero, err := s.asientoRepo.NextNumeroTx(ctx, tx, asiento.NegocioID)
	if err != nil {
		return err
	}
	asiento.Numero = numero

	if err := s.asientoRepo.CreateTx(ctx, tx, asiento); err != nil {
		return err
	}

	for i := range asiento.Lineas {
		l := &asiento.Lineas[i]
		delta := cuentas[l.CuentaID].DeltaSaldo(l.Debe, l.Haber)
		if err := s.cuentaRepo.AplicarDeltaTx(tx, l.CuentaID, delta); err != nil {
			return err
		}
	}
	return nil
}

// ── Asientos automáticos ──────────────────────────────────────────────────────

// CrearAsientoVenta: debit caja/banco/CxC by the total, credit ingresos by the
// net subtotal and ITBIS por pagar by the collected tax.
func (s *contabilidadService) CrearAsientoVenta(ctx context.Context, venta *model.Venta, negocio *model.Negocio) (*model.AsientoContable, error) {
	lineas, err := s.lineasVenta(ctx, venta, negocio)
	if err != nil {
		return nil, err
	}

	asiento := &model.AsientoContable{
		NegocioID:   venta.NegocioID,
		Fecha:       venta.Fecha,
		Tipo:        model.AsientoVenta,
		Descripcion: fmt.Sprintf("Venta %s", venta.Numero),
		Referencia:  venta.Numero,
		Lineas:      lineas,
	}
	if err := s.ContabilizarAsiento(ctx, asiento); err != nil {
		return nil, err
	}
	log.Info().Str("asiento", asiento.Numero).Str("venta", venta.Numero).Msg("asiento de venta contabilizado")
	return asiento, nil
}

// lineasVenta builds the sale posting lines. Voids never pass through here:
// the credit-note entry is the mirror posted by CrearAsientoReversa.
func (s *contabilidadService) lineasVenta(ctx context.Context, venta *model.Venta, negocio *model.Negocio) ([]model.LineaAsiento, error) {
	cuentaPago, err := s.cuentaPorCodigo(ctx, venta.NegocioID, negocio.Cuentas.CuentaPago(venta.TipoPago))
	if err != nil {
		return nil, err
	}
	cuentaIngresos, err := s.cuentaPorCodigo(ctx, venta.NegocioID, negocio.Cuentas.IngresosVentas)
	if err != nil {
		return nil, err
	}

	neto := venta.Subtotal.Sub(venta.Descuento)
	lineas := []model.LineaAsiento{
		{CuentaID: cuentaPago.ID, Descripcion: "Cobro " + venta.TipoPago, Debe: venta.Total, Haber: decimal.Zero},
		{CuentaID: cuentaIngresos.ID, Descripcion: "Ingresos por ventas", Debe: decimal.Zero, Haber: neto},
	}
	if venta.TotalImpuestos.IsPositive() {
		cuentaITBIS, err := s.cuentaPorCodigo(ctx, venta.NegocioID, negocio.Cuentas.ITBISPorPagar)
		if err != nil {
			return nil, err
		}
		lineas = append(lineas, model.LineaAsiento{CuentaID: cuentaITBIS.ID, Descripcion: "ITBIS cobrado", Debe: decimal.Zero, Haber: venta.TotalImpuestos})
	}
	return lineas, nil
}

// CrearAsientoCompra: debit inventario/gasto and ITBIS por cobrar, credit the
// payment counterpart net of retentions, credit retention liabilities.
func (s *contabilidadService) CrearAsientoCompra(ctx context.Context, compra *model.Compra, negocio *model.Negocio) (*model.AsientoContable, error) {
	codigoDestino := negocio.Cuentas.Inventario
	if soloServicios(compra) {
		codigoDestino = negocio.Cuentas.Gasto
	}
	cuentaDestino, err := s.cuentaPorCodigo(ctx, compra.NegocioID, codigoDestino)
	if err != nil {
		return nil, err
	}
	cuentaPago, err := s.cuentaPorCodigo(ctx, compra.NegocioID, negocio.Cuentas.CuentaPago(compra.FormaPago))
	if err != nil {
		return nil, err
	}
	if compra.FormaPago == model.TipoPagoCredito {
		cuentaPago, err = s.cuentaPorCodigo(ctx, compra.NegocioID, negocio.Cuentas.CuentasPorPagar)
		if err != nil {
			return nil, err
		}
	}

	retenciones := compra.ITBISRetenido.Add(compra.RetencionRenta)
	aPagar := compra.Total.Sub(retenciones)

	lineas := []model.LineaAsiento{
		{CuentaID: cuentaDestino.ID, Descripcion: "Compra " + compra.Numero, Debe: compra.Subtotal, Haber: decimal.Zero},
	}
	if compra.TotalImpuestos.IsPositive() {
		cuentaITBIS, err := s.cuentaPorCodigo(ctx, compra.NegocioID, negocio.Cuentas.ITBISPorCobrar)
		if err != nil {
			return nil, err
		}
		lineas = append(lineas, model.LineaAsiento{CuentaID: cuentaITBIS.ID, Descripcion: "ITBIS pagado", Debe: compra.TotalImpuestos, Haber: decimal.Zero})
	}
	lineas = append(lineas, model.LineaAsiento{CuentaID: cuentaPago.ID, Descripcion: "Pago a proveedor", Debe: decimal.Zero, Haber: aPagar})
	if compra.ITBISRetenido.IsPositive() {
		cuenta, err := s.cuentaPorCodigo(ctx, compra.NegocioID, negocio.Cuentas.ITBISRetenido)
		if err != nil {
			return nil, err
		}
		lineas = append(lineas, model.LineaAsiento{CuentaID: cuenta.ID, Descripcion: "ITBIS retenido a proveedor", Debe: decimal.Zero, Haber: compra.ITBISRetenido})
	}
	if compra.RetencionRenta.IsPositive() {
		cuenta, err := s.cuentaPorCodigo(ctx, compra.NegocioID, negocio.Cuentas.ISRRetenido)
		if err != nil {
			return nil, err
		}
		lineas = append(lineas, model.LineaAsiento{CuentaID: cuenta.ID, Descripcion: "Retención de renta", Debe: decimal.Zero, Haber: compra.RetencionRenta})
	}

	asiento := &model.AsientoContable{
		NegocioID:   compra.NegocioID,
		Fecha:       compra.Fecha,
		Tipo:        model.AsientoCompra,
		Descripcion: fmt.Sprintf("Compra %s — %s", compra.Numero, compra.ProveedorNombre),
		Referencia:  compra.Numero,
		Lineas:      lineas,
	}
	if err := s.ContabilizarAsiento(ctx, asiento); err != nil {
		return nil, err
	}
	return asiento, nil
}

// CrearAsientoReversa posts the mirror of a posted entry (debe↔haber).
func (s *contabilidadService) CrearAsientoReversa(ctx context.Context, asientoID uuid.UUID, fecha time.Time, referencia string) (*model.AsientoContable, error) {
	original, err := s.asientoRepo.FindByID(ctx, asientoID)
	if err != nil {
		return nil, fmt.Errorf("asiento original no encontrado: %w", err)
	}

	lineas := make([]model.LineaAsiento, 0, len(original.Lineas))
	for _, l := range original.Lineas {
		lineas = append(lineas, model.LineaAsiento{
			CuentaID:    l.CuentaID,
			Descripcion: "Reversa: " + l.Descripcion,
			Debe:        l.Haber,
			Haber:       l.Debe,
		})
	}

	reversa := &model.AsientoContable{
		NegocioID:   original.NegocioID,
		Fecha:       fecha,
		Tipo:        model.AsientoAjuste,
		Descripcion: "Reversa de " + original.Numero,
		Referencia:  referencia,
		Lineas:      lineas,
	}
	if err := s.ContabilizarAsiento(ctx, reversa); err != nil {
		return nil, err
	}
	return reversa, nil
}

// ── CerrarPeriodo ─────────────────────────────────────────────────────────────

func (s *contabilidadService) CerrarPeriodo(ctx context.Context, negocioID, periodoID uuid.UUID) (*ResultadoCierre, error) {
	periodo, err := s.periodoRepo.FindByID(ctx, periodoID)
	if err != nil {
		return nil, fmt.Errorf("período no encontrado: %w", err)
	}
	if periodo.Estado == model.PeriodoCerrado {
		return nil, fmt.Errorf("%w: el período %s ya está cerrado", ErrPeriodoCerrado, periodo.Nombre)
	}

	borradores, err := s.periodoRepo.CountBorradores(ctx, periodoID)
	if err != nil {
		return nil, err
	}
	if borradores > 0 {
		return nil, fmt.Errorf("%w: %d pendientes", ErrPeriodoConBorradores, borradores)
	}

	netos, err := s.cuentaRepo.NetosPorPeriodo(ctx, periodoID,
		[]string{model.CuentaIngreso, model.CuentaCosto, model.CuentaGasto})
	if err != nil {
		return nil, err
	}

	// Net result: income (haber−debe) minus costs and expenses (debe−haber)
	resultado := decimal.Zero
	var lineas []model.LineaAsiento
	for _, n := range netos {
		switch n.Tipo {
		case model.CuentaIngreso:
			neto := n.Haber.Sub(n.Debe)
			if neto.IsZero() {
				continue
			}
			resultado = resultado.Add(neto)
			// Zero the income account by debiting its net balance
			lineas = append(lineas, lineaCierre(n.CuentaID, "Cierre "+n.Codigo, neto))
		case model.CuentaCosto, model.CuentaGasto:
			neto := n.Debe.Sub(n.Haber)
			if neto.IsZero() {
				continue
			}
			resultado = resultado.Sub(neto)
			lineas = append(lineas, lineaCierre(n.CuentaID, "Cierre "+n.Codigo, neto.Neg()))
		}
	}

	out := &ResultadoCierre{ResultadoNeto: resultado}

	var cierre *model.AsientoContable
	var cuentas map[uuid.UUID]*model.CuentaContable
	if len(lineas) > 0 {
		cuentaResultado, err := s.cuentaResultado(ctx, negocioID)
		if err != nil {
			return nil, err
		}
		// Counterpart: credit equity on profit, debit on loss
		lineas = append(lineas, lineaCierre(cuentaResultado.ID, "Resultado del ejercicio", resultado.Neg()))

		cierre = &model.AsientoContable{
			NegocioID:   negocioID,
			Fecha:       periodo.FechaFin,
			Tipo:        model.AsientoCierre,
			Descripcion: "Cierre del período " + periodo.Nombre,
			Referencia:  periodo.Nombre,
			Lineas:      lineas,
		}
		if cuentas, err = s.validarAsiento(ctx, cierre); err != nil {
			return nil, err
		}
	}

	// One transaction for the closing entry and the period lock: a period is
	// never left open with its cierre already posted
	if err := runTx(ctx, s.asientoRepo.DB(), func(tx *gorm.DB) error {
		if cierre != nil {
			if err := s.contabilizarTx(ctx, tx, cierre, cuentas); err != nil {
				return err
			}
		}
		return s.periodoRepo.CerrarTx(tx, periodoID)
	}); err != nil {
		return nil, err
	}
	out.AsientoCierre = cierre

	log.Info().Str("periodo", periodo.Nombre).Str("resultado", resultado.StringFixed(2)).Msg("período cerrado")
	return out, nil
}

func (s *contabilidadService) ListCuentas(ctx context.Context, negocioID uuid.UUID) ([]model.CuentaContable, error) {
	return s.cuentaRepo.ListByNegocio(ctx, negocioID)
}

func (s *contabilidadService) ObtenerAsiento(ctx context.Context, id uuid.UUID) (*dto.AsientoResponse, error) {
	asiento, err := s.asientoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return asientoToResponse(asiento), nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (s *contabilidadService) cuentaPorCodigo(ctx context.Context, negocioID uuid.UUID, codigo string) (*model.CuentaContable, error) {
	cuenta, err := s.cuentaRepo.FindByCodigo(ctx, negocioID, codigo)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCuentaNoEncontrada, codigo)
	}
	return cuenta, nil
}

// cuentaResultado resolves the resultado-del-ejercicio equity account from
// the business account mapping.
func (s *contabilidadService) cuentaResultado(ctx context.Context, negocioID uuid.UUID) (*model.CuentaContable, error) {
	negocio, err := s.negocioRepo.FindByID(ctx, negocioID)
	if err != nil {
		return nil, fmt.Errorf("negocio no encontrado: %w", err)
	}
	return s.cuentaPorCodigo(ctx, negocioID, negocio.Cuentas.Resultado)
}

// lineaCierre: positive monto debits, negative credits.
func lineaCierre(cuentaID uuid.UUID, descripcion string, monto decimal.Decimal) model.LineaAsiento {
	if monto.IsNegative() {
		return model.LineaAsiento{CuentaID: cuentaID, Descripcion: descripcion, Haber: monto.Neg()}
	}
	return model.LineaAsiento{CuentaID: cuentaID, Descripcion: descripcion, Debe: monto}
}

func asientoToResponse(a *model.AsientoContable) *dto.AsientoResponse {
	lineas := make([]dto.LineaAsientoResponse, 0, len(a.Lineas))
	for _, l := range a.Lineas {
		codigo := ""
		if l.Cuenta != nil {
			codigo = l.Cuenta.Codigo
		}
		lineas = append(lineas, dto.LineaAsientoResponse{
			CuentaCodigo: codigo,
			Descripcion:  l.Descripcion,
			Debe:         l.Debe,
			Haber:        l.Haber,
		})
	}
	return &dto.AsientoResponse{
		ID:          a.ID.String(),
		Numero:      a.Numero,
		Fecha:       a.Fecha.Format("2006-01-02"),
		Tipo:        a.Tipo,
		Descripcion: a.Descripcion,
		Referencia:  a.Referencia,
		TotalDebe:   a.TotalDebe,
		TotalHaber:  a.TotalHaber,
		Estado:      a.Estado,
		Lineas:      lineas,
	}
}

func soloServicios(compra *model.Compra) bool {
	if len(compra.Detalles) == 0 {
		return compra.TipoBienesServicios == "02"
	}
	for _, d := range compra.Detalles {
		if !d.EsServicio {
			return false
		}
	}
	return true
}

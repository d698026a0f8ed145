package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"
	"fiscalpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrVentaNoEncontrada: unknown sale id.
	ErrVentaNoEncontrada = errors.New("venta no encontrada")
	// ErrVentaYaAnulada: a sale can only be voided once.
	ErrVentaYaAnulada = errors.New("la venta ya está anulada")
	// ErrVentaNoCompletada: only completed sales can be voided.
	ErrVentaNoCompletada = errors.New("solo se pueden anular ventas completadas")
)

type VentaService interface {
	CompletarVenta(ctx context.Context, negocioID uuid.UUID, req dto.CompletarVentaRequest) (*dto.VentaResponse, error)
	// AnularVenta voids a completed sale by issuing an independent B04
	// credit note that references it. The original sale's fiscal document
	// is never mutated.
	AnularVenta(ctx context.Context, negocioID, ventaID uuid.UUID, motivo string) (*dto.VentaResponse, error)
	FindVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListVentas(ctx context.Context, negocioID uuid.UUID, filter dto.VentaFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	negocioRepo  repository.NegocioRepository
	stockRepo    repository.MovimientoStockRepository
	auditRepo    repository.AuditRepository
	contabilidad ContabilidadService
	dispatcher   *worker.Dispatcher
}

func NewVentaService(
	repo repository.VentaRepository,
	negocioRepo repository.NegocioRepository,
	stockRepo repository.MovimientoStockRepository,
	auditRepo repository.AuditRepository,
	contabilidad ContabilidadService,
	dispatcher *worker.Dispatcher,
) VentaService {
	return &ventaService{
		repo:         repo,
		negocioRepo:  negocioRepo,
		stockRepo:    stockRepo,
		auditRepo:    auditRepo,
		contabilidad: contabilidad,
		dispatcher:   dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── CompletarVenta ────────────────────────────────────────────────────────────
// Synchronous orchestration:
//  1. Resolve line amounts from the request snapshot (no catalog reads)
//  2. TX: nextval numero, persist venta COMPLETADA + detalles + stock movements
//  3. Post the sale journal entry
//  4. Enqueue the e-CF emission job (and email when buyer address present)

func (s *ventaService) CompletarVenta(ctx context.Context, negocioID uuid.UUID, req dto.CompletarVentaRequest) (*dto.VentaResponse, error) {
	if _, err := s.negocioRepo.FindByID(ctx, negocioID); err != nil {
		return nil, fmt.Errorf("negocio no encontrado: %w", err)
	}

	detalles, subtotal, totalImpuestos, err := resolverDetalles(req.Detalles)
	if err != nil {
		return nil, err
	}
	total := subtotal.Sub(req.Descuento).Add(totalImpuestos)

	estadoFiscal, err := model.TransicionFiscal(model.FiscalNoFiscal, model.EventoEmitir)
	if err != nil {
		return nil, err
	}

	clienteTipo := req.ClienteTipo
	if clienteTipo == "" {
		clienteTipo = "CONTADO"
	}

	venta := model.Venta{
		NegocioID:        negocioID,
		TipoComprobante:  req.TipoComprobante,
		ClienteNombre:    req.ClienteNombre,
		ClienteDocumento: req.ClienteDocumento,
		ClienteTipoDoc:   req.ClienteTipoDoc,
		ClienteTipo:      clienteTipo,
		ClienteEmail:     req.ClienteEmail,
		Fecha:            time.Now(),
		Subtotal:         subtotal,
		Descuento:        req.Descuento,
		TotalImpuestos:   totalImpuestos,
		Total:            total,
		TipoPago:         req.TipoPago,
		MontoPagado:      req.MontoPagado,
		Estado:           model.VentaCompletada,
		EstadoFiscal:     estadoFiscal,
		CodigoSeguridad:  codigoSeguridad(),
		Notas:            req.Notas,
		Detalles:         detalles,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero, err := s.repo.NextNumeroTx(ctx, tx)
		if err != nil {
			return err
		}
		venta.Numero = numero

		if err := s.repo.CreateTx(ctx, tx, &venta); err != nil {
			return err
		}

		for _, d := range venta.Detalles {
			ventaRef := venta.ID
			mov := &model.MovimientoStock{
				NegocioID:    negocioID,
				ProductoID:   d.ProductoID,
				Tipo:         "venta",
				Cantidad:     -int(d.Cantidad.IntPart()),
				Motivo:       fmt.Sprintf("Venta %s", venta.Numero),
				ReferenciaID: &ventaRef,
			}
			if err := s.stockRepo.CreateTx(ctx, tx, mov); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Post the sale entry. The sale stands even if posting fails; the entry
	// can be re-posted manually, so this only logs.
	s.contabilizarVenta(ctx, &venta)

	s.auditar(ctx, negocioID, "CREATE", "Venta", venta.ID.String(),
		fmt.Sprintf("Venta %s completada por %s", venta.Numero, venta.Total.StringFixed(2)), &venta)

	s.encolarEmision(ctx, &venta)

	return ventaToResponse(&venta), nil
}

// ── AnularVenta ───────────────────────────────────────────────────────────────

func (s *ventaService) AnularVenta(ctx context.Context, negocioID, ventaID uuid.UUID, motivo string) (*dto.VentaResponse, error) {
	venta, err := s.repo.FindByID(ctx, ventaID)
	if err != nil {
		return nil, ErrVentaNoEncontrada
	}
	if venta.Estado == model.VentaAnulada {
		return nil, ErrVentaYaAnulada
	}
	if venta.Estado != model.VentaCompletada {
		return nil, ErrVentaNoCompletada
	}

	estadoFiscal, err := model.TransicionFiscal(model.FiscalNoFiscal, model.EventoEmitir)
	if err != nil {
		return nil, err
	}

	// The credit note is an independent sale document with its own fiscal
	// life; amounts mirror the original snapshot.
	ventaRef := venta.ID
	nota := model.Venta{
		NegocioID:         negocioID,
		TipoComprobante:   "B04",
		ClienteNombre:     venta.ClienteNombre,
		ClienteDocumento:  venta.ClienteDocumento,
		ClienteTipoDoc:    venta.ClienteTipoDoc,
		ClienteTipo:       venta.ClienteTipo,
		ClienteEmail:      venta.ClienteEmail,
		Fecha:             time.Now(),
		Subtotal:          venta.Subtotal,
		Descuento:         venta.Descuento,
		TotalImpuestos:    venta.TotalImpuestos,
		Total:             venta.Total,
		TipoPago:          venta.TipoPago,
		Estado:            model.VentaCompletada,
		EstadoFiscal:      estadoFiscal,
		CodigoSeguridad:   codigoSeguridad(),
		VentaReferenciaID: &ventaRef,
		Notas:             "Anulación: " + motivo,
	}
	for _, d := range venta.Detalles {
		nota.Detalles = append(nota.Detalles, model.DetalleVenta{
			ProductoID:     d.ProductoID,
			ProductoNombre: d.ProductoNombre,
			EsServicio:     d.EsServicio,
			AplicaImpuesto: d.AplicaImpuesto,
			TasaImpuesto:   d.TasaImpuesto,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			PrecioCosto:    d.PrecioCosto,
			Descuento:      d.Descuento,
			Subtotal:       d.Subtotal,
			Impuesto:       d.Impuesto,
			Total:          d.Total,
		})
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero, err := s.repo.NextNumeroTx(ctx, tx)
		if err != nil {
			return err
		}
		nota.Numero = numero

		if err := s.repo.CreateTx(ctx, tx, &nota); err != nil {
			return err
		}

		// Restore the stock consumed by the original sale
		for _, d := range venta.Detalles {
			mov := &model.MovimientoStock{
				NegocioID:    negocioID,
				ProductoID:   d.ProductoID,
				Tipo:         "restauracion_anulacion",
				Cantidad:     int(d.Cantidad.IntPart()),
				Motivo:       fmt.Sprintf("Anulación venta %s — %s", venta.Numero, motivo),
				ReferenciaID: &ventaRef,
			}
			if err := s.stockRepo.CreateTx(ctx, tx, mov); err != nil {
				return err
			}
		}

		return s.repo.UpdateEstadoTx(ctx, tx, venta.ID, model.VentaAnulada)
	})
	if txErr != nil {
		return nil, txErr
	}

	// Reversing entry mirrors the original posting
	if venta.AsientoID != nil {
		reversa, err := s.contabilidad.CrearAsientoReversa(ctx, *venta.AsientoID, nota.Fecha, nota.Numero)
		if err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).Msg("no se pudo contabilizar la reversa de anulación")
		} else {
			nota.AsientoID = &reversa.ID
			_ = s.actualizarAsiento(ctx, nota.ID, reversa.ID)
		}
	}

	s.auditar(ctx, negocioID, "ANULAR", "Venta", venta.ID.String(),
		fmt.Sprintf("Venta %s anulada con nota de crédito %s: %s", venta.Numero, nota.Numero, motivo), &nota)

	// The credit note starts its own fiscal state machine
	nota.VentaReferencia = venta
	s.encolarEmision(ctx, &nota)

	return ventaToResponse(&nota), nil
}

func (s *ventaService) FindVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	venta, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrVentaNoEncontrada
	}
	return ventaToResponse(venta), nil
}

// ListVentas returns a paginated list of sales, filtered by date and estado.
func (s *ventaService) ListVentas(ctx context.Context, negocioID uuid.UUID, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	ventas, total, err := s.repo.List(ctx, negocioID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		items = append(items, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func resolverDetalles(reqs []dto.DetalleVentaRequest) ([]model.DetalleVenta, decimal.Decimal, decimal.Decimal, error) {
	var detalles []model.DetalleVenta
	subtotal, impuestos := decimal.Zero, decimal.Zero

	for _, r := range reqs {
		pid, err := uuid.Parse(r.ProductoID)
		if err != nil {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("producto_id inválido: %w", err)
		}
		if !r.Cantidad.IsPositive() || !r.PrecioUnitario.IsPositive() {
			return nil, decimal.Zero, decimal.Zero, fmt.Errorf("cantidad y precio deben ser positivos en %s", r.ProductoNombre)
		}

		aplica := r.AplicaImpuesto == nil || *r.AplicaImpuesto
		tasa := r.TasaImpuesto
		if tasa.IsZero() {
			tasa = decimal.NewFromInt(18)
		}

		lineaSubtotal := r.Cantidad.Mul(r.PrecioUnitario).Round(2)
		base := lineaSubtotal.Sub(r.Descuento)
		impuesto := decimal.Zero
		if aplica {
			impuesto = base.Mul(tasa).Div(decimal.NewFromInt(100)).Round(2)
		}

		detalles = append(detalles, model.DetalleVenta{
			ProductoID:     pid,
			ProductoNombre: r.ProductoNombre,
			EsServicio:     r.EsServicio,
			AplicaImpuesto: aplica,
			TasaImpuesto:   tasa,
			Cantidad:       r.Cantidad,
			PrecioUnitario: r.PrecioUnitario,
			PrecioCosto:    r.PrecioCosto,
			Descuento:      r.Descuento,
			Subtotal:       lineaSubtotal,
			Impuesto:       impuesto,
			Total:          base.Add(impuesto),
		})
		subtotal = subtotal.Add(lineaSubtotal)
		impuestos = impuestos.Add(impuesto)
	}
	return detalles, subtotal, impuestos, nil
}

func (s *ventaService) contabilizarVenta(ctx context.Context, venta *model.Venta) {
	negocio, err := s.negocioRepo.FindByID(ctx, venta.NegocioID)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("no se pudo cargar el negocio para contabilizar")
		return
	}
	asiento, err := s.contabilidad.CrearAsientoVenta(ctx, venta, negocio)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("no se pudo contabilizar la venta")
		return
	}
	venta.AsientoID = &asiento.ID
	_ = s.actualizarAsiento(ctx, venta.ID, asiento.ID)
}

func (s *ventaService) actualizarAsiento(ctx context.Context, ventaID, asientoID uuid.UUID) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if tx == nil {
			return nil
		}
		return tx.WithContext(ctx).Model(&model.Venta{}).
			Where("id = ?", ventaID).
			Update("asiento_id", asientoID).Error
	})
}

func (s *ventaService) encolarEmision(ctx context.Context, venta *model.Venta) {
	if s.dispatcher == nil {
		return
	}
	payload := worker.FacturacionJobPayload{VentaID: venta.ID.String()}
	if venta.ClienteEmail != "" {
		payload.ClienteEmail = &venta.ClienteEmail
	}
	if err := s.dispatcher.EnqueueFacturacion(ctx, payload); err != nil {
		log.Warn().Err(err).Str("venta", venta.Numero).Msg("no se pudo encolar la emisión del e-CF")
	}
}

func (s *ventaService) auditar(ctx context.Context, negocioID uuid.UUID, accion, modelo, objetoID, descripcion string, datos interface{}) {
	if s.auditRepo == nil {
		return
	}
	snapshot, _ := json.Marshal(datos)
	entry := &model.AuditLog{
		NegocioID:   negocioID,
		Accion:      accion,
		Modelo:      modelo,
		ObjetoID:    objetoID,
		Descripcion: descripcion,
		Datos:       string(snapshot),
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Str("modelo", modelo).Msg("no se pudo registrar la auditoría")
	}
}

// codigoSeguridad: short random token printed on the invoice.
func codigoSeguridad() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	detalles := make([]dto.DetalleVentaResponse, 0, len(v.Detalles))
	for _, d := range v.Detalles {
		detalles = append(detalles, dto.DetalleVentaResponse{
			ProductoNombre: d.ProductoNombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       d.Subtotal,
			Impuesto:       d.Impuesto,
			Total:          d.Total,
		})
	}
	resp := &dto.VentaResponse{
		ID:              v.ID.String(),
		Numero:          v.Numero,
		TipoComprobante: v.TipoComprobante,
		NCF:             v.NCF,
		ClienteNombre:   v.ClienteNombre,
		Subtotal:        v.Subtotal,
		Descuento:       v.Descuento,
		TotalImpuestos:  v.TotalImpuestos,
		Total:           v.Total,
		TipoPago:        v.TipoPago,
		Estado:          v.Estado,
		EstadoFiscal:    v.EstadoFiscal,
		Detalles:        detalles,
		CreatedAt:       v.CreatedAt.Format(time.RFC3339),
	}
	if v.AsientoID != nil {
		id := v.AsientoID.String()
		resp.AsientoID = &id
	}
	return resp
}

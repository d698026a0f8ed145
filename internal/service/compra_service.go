package service

import (
	"context"
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

type CompraService interface {
	// RegistrarCompra persists a RECIBIDA purchase and posts its journal
	// entry. Received purchases feed the 606 report.
	RegistrarCompra(ctx context.Context, negocioID uuid.UUID, req dto.RegistrarCompraRequest) (*dto.CompraResponse, error)
	FindCompra(ctx context.Context, id uuid.UUID) (*dto.CompraResponse, error)
}

type compraService struct {
	repo         repository.CompraRepository
	negocioRepo  repository.NegocioRepository
	auditRepo    repository.AuditRepository
	contabilidad ContabilidadService
}

func NewCompraService(
	repo repository.CompraRepository,
	negocioRepo repository.NegocioRepository,
	auditRepo repository.AuditRepository,
	contabilidad ContabilidadService,
) CompraService {
	return &compraService{
		repo:         repo,
		negocioRepo:  negocioRepo,
		auditRepo:    auditRepo,
		contabilidad: contabilidad,
	}
}

func (s *compraService) RegistrarCompra(ctx context.Context, negocioID uuid.UUID, req dto.RegistrarCompraRequest) (*dto.CompraResponse, error) {
	negocio, err := s.negocioRepo.FindByID(ctx, negocioID)
	if err != nil {
		return nil, fmt.Errorf("negocio no encontrado: %w", err)
	}

	fecha, err := time.Parse("2006-01-02", req.Fecha)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida: %w", err)
	}
	var fechaPago *time.Time
	if req.FechaPago != "" {
		fp, err := time.Parse("2006-01-02", req.FechaPago)
		if err != nil {
			return nil, fmt.Errorf("fecha_pago inválida: %w", err)
		}
		fechaPago = &fp
	}

	formaPago := req.FormaPago
	if formaPago == "" {
		formaPago = model.TipoPagoCredito
	}
	tipoBienes := req.TipoBienesServicios
	if tipoBienes == "" {
		tipoBienes = "02"
	}

	subtotal, impuestos := decimal.Zero, decimal.Zero
	var detalles []model.DetalleCompra
	for _, d := range req.Detalles {
		if !d.Cantidad.IsPositive() || !d.PrecioUnitario.IsPositive() {
			return nil, fmt.Errorf("cantidad y precio deben ser positivos en %s", d.ProductoNombre)
		}
		lineaSubtotal := d.Cantidad.Mul(d.PrecioUnitario).Round(2)
		detalles = append(detalles, model.DetalleCompra{
			ProductoNombre: d.ProductoNombre,
			EsServicio:     d.EsServicio,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       lineaSubtotal,
			Impuesto:       d.Impuesto,
		})
		subtotal = subtotal.Add(lineaSubtotal)
		impuestos = impuestos.Add(d.Impuesto)
	}

	compra := model.Compra{
		NegocioID:           negocioID,
		NCFProveedor:        req.NCFProveedor,
		ProveedorNombre:     req.ProveedorNombre,
		ProveedorRNC:        req.ProveedorRNC,
		Fecha:               fecha,
		FechaPago:           fechaPago,
		Subtotal:            subtotal,
		TotalImpuestos:      impuestos,
		Total:               subtotal.Add(impuestos),
		ITBISRetenido:       req.ITBISRetenido,
		RetencionRenta:      req.RetencionRenta,
		TipoRetencion:       req.TipoRetencion,
		FormaPago:           formaPago,
		TipoBienesServicios: tipoBienes,
		Estado:              model.CompraRecibida,
		Detalles:            detalles,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var num int
		if tx != nil {
			if err := tx.WithContext(ctx).Raw("SELECT nextval('compras_numero_seq')").Scan(&num).Error; err != nil {
				return err
			}
		}
		compra.Numero = fmt.Sprintf("C-%08d", num)
		return s.repo.CreateTx(ctx, tx, &compra)
	})
	if txErr != nil {
		return nil, txErr
	}

	asiento, err := s.contabilidad.CrearAsientoCompra(ctx, &compra, negocio)
	if err != nil {
		log.Error().Err(err).Str("compra", compra.Numero).Msg("no se pudo contabilizar la compra")
	} else {
		compra.AsientoID = &asiento.ID
		_ = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			if tx == nil {
				return nil
			}
			return tx.WithContext(ctx).Model(&model.Compra{}).
				Where("id = ?", compra.ID).
				Update("asiento_id", asiento.ID).Error
		})
	}

	if s.auditRepo != nil {
		entry := &model.AuditLog{
			NegocioID:   negocioID,
			Accion:      "CREATE",
			Modelo:      "Compra",
			ObjetoID:    compra.ID.String(),
			Descripcion: fmt.Sprintf("Compra %s registrada: %s", compra.Numero, compra.Total.StringFixed(2)),
		}
		_ = s.auditRepo.Create(ctx, entry)
	}

	return compraToResponse(&compra), nil
}

func (s *compraService) FindCompra(ctx context.Context, id uuid.UUID) (*dto.CompraResponse, error) {
	compra, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("compra no encontrada")
	}
	return compraToResponse(compra), nil
}

func compraToResponse(c *model.Compra) *dto.CompraResponse {
	resp := &dto.CompraResponse{
		ID:              c.ID.String(),
		Numero:          c.Numero,
		NCFProveedor:    c.NCFProveedor,
		ProveedorNombre: c.ProveedorNombre,
		ProveedorRNC:    c.ProveedorRNC,
		Fecha:           c.Fecha.Format("2006-01-02"),
		Subtotal:        c.Subtotal,
		TotalImpuestos:  c.TotalImpuestos,
		Total:           c.Total,
		Estado:          c.Estado,
	}
	if c.AsientoID != nil {
		id := c.AsientoID.String()
		resp.AsientoID = &id
	}
	return resp
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"
	"fiscalpos/internal/worker"

	"github.com/google/uuid"
)

// ErrFacturaNoEncontrada: no electronic invoice record for the sale.
var ErrFacturaNoEncontrada = errors.New("factura electrónica no encontrada")

// ErrReintentoNoPermitido: only CONTINGENCIA documents can be re-submitted.
var ErrReintentoNoPermitido = errors.New("solo documentos en contingencia pueden reintentarse")

type FacturacionService interface {
	// EmitirECF triggers the async emission pipeline for a sale.
	EmitirECF(ctx context.Context, ventaID uuid.UUID) error
	ObtenerFactura(ctx context.Context, ventaID uuid.UUID) (*dto.FacturacionResponse, error)
	// ReintentarContingencia re-enqueues a CONTINGENCIA document immediately,
	// without waiting for the retry cron.
	ReintentarContingencia(ctx context.Context, ventaID uuid.UUID) error
	ObtenerPDFPath(ctx context.Context, ventaID uuid.UUID) (string, error)
}

type facturacionService struct {
	repo       repository.FacturaRepository
	ventaRepo  repository.VentaRepository
	dispatcher *worker.Dispatcher
}

func NewFacturacionService(
	repo repository.FacturaRepository,
	ventaRepo repository.VentaRepository,
	dispatcher *worker.Dispatcher,
) FacturacionService {
	return &facturacionService{repo: repo, ventaRepo: ventaRepo, dispatcher: dispatcher}
}

func (s *facturacionService) EmitirECF(ctx context.Context, ventaID uuid.UUID) error {
	venta, err := s.ventaRepo.FindByID(ctx, ventaID)
	if err != nil {
		return ErrVentaNoEncontrada
	}
	switch venta.EstadoFiscal {
	case model.FiscalAprobado:
		return fmt.Errorf("la venta %s ya tiene un e-CF aprobado", venta.Numero)
	case model.FiscalRechazado:
		return fmt.Errorf("la venta %s fue rechazada por DGII; no se reemite automáticamente", venta.Numero)
	}
	payload := worker.FacturacionJobPayload{VentaID: ventaID.String()}
	if venta.ClienteEmail != "" {
		payload.ClienteEmail = &venta.ClienteEmail
	}
	return s.dispatcher.EnqueueFacturacion(ctx, payload)
}

// ObtenerFactura returns the invoice record for a sale (GET /v1/facturacion/:venta_id).
func (s *facturacionService) ObtenerFactura(ctx context.Context, ventaID uuid.UUID) (*dto.FacturacionResponse, error) {
	factura, err := s.repo.FindByVentaID(ctx, ventaID)
	if err != nil {
		return nil, ErrFacturaNoEncontrada
	}
	venta, err := s.ventaRepo.FindByID(ctx, ventaID)
	if err != nil {
		return nil, ErrVentaNoEncontrada
	}
	return facturaToResponse(factura, venta), nil
}

func (s *facturacionService) ReintentarContingencia(ctx context.Context, ventaID uuid.UUID) error {
	factura, err := s.repo.FindByVentaID(ctx, ventaID)
	if err != nil {
		return ErrFacturaNoEncontrada
	}
	if factura.EstadoDGII != model.FiscalContingencia {
		return fmt.Errorf("%w: estado actual %s", ErrReintentoNoPermitido, factura.EstadoDGII)
	}
	// Make the document immediately eligible; the retry cron picks it up
	ahora := time.Now()
	factura.NextRetryAt = &ahora
	return s.repo.Update(ctx, factura)
}

// ObtenerPDFPath returns the filesystem path of the generated invoice PDF.
func (s *facturacionService) ObtenerPDFPath(ctx context.Context, ventaID uuid.UUID) (string, error) {
	factura, err := s.repo.FindByVentaID(ctx, ventaID)
	if err != nil {
		return "", ErrFacturaNoEncontrada
	}
	if factura.PDFPath == nil || *factura.PDFPath == "" {
		return "", fmt.Errorf("PDF no disponible — el documento está en estado '%s'", factura.EstadoDGII)
	}
	return *factura.PDFPath, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func facturaToResponse(f *model.FacturaElectronica, v *model.Venta) *dto.FacturacionResponse {
	resp := &dto.FacturacionResponse{
		ID:          f.ID.String(),
		VentaID:     f.VentaID.String(),
		ECFTipo:     f.ECFTipo,
		NCF:         v.NCF,
		TrackID:     f.TrackID,
		EstadoDGII:  f.EstadoDGII,
		MensajeDGII: f.MensajeDGII,
		QRData:      f.QRData,
		RetryCount:  f.RetryCount,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
	}
	if f.NextRetryAt != nil {
		t := f.NextRetryAt.Format(time.RFC3339)
		resp.NextRetryAt = &t
	}
	if f.FechaFirma != nil {
		t := f.FechaFirma.Format(time.RFC3339)
		resp.FechaFirma = &t
	}
	if f.PDFPath != nil && *f.PDFPath != "" {
		u := "/v1/facturacion/" + f.VentaID.String() + "/pdf"
		resp.PDFUrl = &u
	}
	return resp
}

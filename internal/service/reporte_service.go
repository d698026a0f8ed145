package service

import (
	"context"
	"fmt"
	"strings"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/fiscal"
	"fiscalpos/internal/repository"

	"github.com/google/uuid"
)

type ReporteService interface {
	// Exportar renders the regulator report file for download.
	Exportar(ctx context.Context, negocioID uuid.UUID, tipo string, year, month int) (contenido []byte, filename string, err error)
	// Preview returns the report rows as JSON without producing a file.
	Preview(ctx context.Context, negocioID uuid.UUID, tipo string, year, month int) (*dto.ReportePreviewResponse, error)
}

type reporteService struct {
	negocioRepo repository.NegocioRepository
	ventaRepo   repository.VentaRepository
	compraRepo  repository.CompraRepository
}

func NewReporteService(
	negocioRepo repository.NegocioRepository,
	ventaRepo repository.VentaRepository,
	compraRepo repository.CompraRepository,
) ReporteService {
	return &reporteService{
		negocioRepo: negocioRepo,
		ventaRepo:   ventaRepo,
		compraRepo:  compraRepo,
	}
}

// strategyFor resolves the country strategy from the business profile.
func (s *reporteService) strategyFor(ctx context.Context, negocioID uuid.UUID) (fiscal.Strategy, error) {
	negocio, err := s.negocioRepo.FindByID(ctx, negocioID)
	if err != nil {
		return nil, fmt.Errorf("negocio no encontrado: %w", err)
	}
	return fiscal.NewStrategy(negocio.PaisCodigo, fiscal.DGIIStrategyDeps{
		NegocioID: negocioID,
		Negocios:  s.negocioRepo,
		Ventas:    s.ventaRepo,
		Compras:   s.compraRepo,
	})
}

func (s *reporteService) Exportar(ctx context.Context, negocioID uuid.UUID, tipo string, year, month int) ([]byte, string, error) {
	if err := validarPeriodo(year, month); err != nil {
		return nil, "", err
	}
	strategy, err := s.strategyFor(ctx, negocioID)
	if err != nil {
		return nil, "", err
	}
	return strategy.Exportar(ctx, tipo, year, month)
}

func (s *reporteService) Preview(ctx context.Context, negocioID uuid.UUID, tipo string, year, month int) (*dto.ReportePreviewResponse, error) {
	contenido, filename, err := s.Exportar(ctx, negocioID, tipo, year, month)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(contenido), "\n"), "\n")
	rows := lines[1:] // first line is the header
	if len(lines) == 1 {
		rows = []string{}
	}
	return &dto.ReportePreviewResponse{
		Tipo:     tipo,
		Periodo:  fmt.Sprintf("%04d%02d", year, month),
		Filename: filename,
		RowCount: len(rows),
		Rows:     rows,
	}, nil
}

func validarPeriodo(year, month int) error {
	if year < 2000 || year > 2100 {
		return fmt.Errorf("año inválido: %d", year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("mes inválido: %d", month)
	}
	return nil
}

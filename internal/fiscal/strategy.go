// Package fiscal holds the per-country fiscal reporting strategies.
// Each strategy knows how to render the regulator's fixed-layout report
// files from the sale/purchase journals.
package fiscal

import (
	"context"
	"fmt"
)

// Tipos de reporte soportados.
const (
	Reporte606 = "606" // compras
	Reporte607 = "607" // ventas
	Reporte608 = "608" // anulaciones
)

// Strategy renders regulator report files for one country's tax authority.
type Strategy interface {
	// ReporteVentas returns the formatted sales report rows (no header).
	ReporteVentas(ctx context.Context, year int, month int) ([]string, error)
	// ReporteCompras returns the formatted purchases report rows.
	ReporteCompras(ctx context.Context, year int, month int) ([]string, error)
	// ReporteAnulaciones returns the voided-document report rows.
	ReporteAnulaciones(ctx context.Context, year int, month int) ([]string, error)
	// Exportar renders the complete file (header + rows) and its filename.
	Exportar(ctx context.Context, tipo string, year int, month int) (contenido []byte, filename string, err error)
}

// NewStrategy resolves the strategy for a country code.
// Only the Dominican Republic (DOM) is implemented.
func NewStrategy(paisCodigo string, deps DGIIStrategyDeps) (Strategy, error) {
	switch paisCodigo {
	case "DOM", "":
		return NewDGIIStrategy(deps), nil
	default:
		return nil, fmt.Errorf("fiscal: país no soportado: %s", paisCodigo)
	}
}

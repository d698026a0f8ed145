package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tasa de retención de ITBIS aplicada a clientes con RNC que compran a crédito
// (Norma 02-05).
var tasaRetencionITBIS = decimal.NewFromFloat(0.30)

// Tipo de anulación reportado en el 608 para ventas anuladas por nota de crédito.
const tipoAnulacionNotaCredito = "02"

// DGIIStrategyDeps are the data sources the Dominican strategy reads from.
type DGIIStrategyDeps struct {
	NegocioID uuid.UUID
	Negocios  repository.NegocioRepository
	Ventas    repository.VentaRepository
	Compras   repository.CompraRepository
}

// DGIIStrategy renders the 606/607/608 pipe-delimited files.
// Layout: header `tipo|rnc|periodo|rowCount`, dates YYYYMMDD, amounts with
// two decimals, filename DGII_F_<tipo>_<rnc>_<periodo>.txt.
type DGIIStrategy struct {
	deps DGIIStrategyDeps
}

func NewDGIIStrategy(deps DGIIStrategyDeps) *DGIIStrategy {
	return &DGIIStrategy{deps: deps}
}

func (s *DGIIStrategy) Exportar(ctx context.Context, tipo string, year, month int) ([]byte, string, error) {
	var rows []string
	var err error
	switch tipo {
	case Reporte606:
		rows, err = s.ReporteCompras(ctx, year, month)
	case Reporte607:
		rows, err = s.ReporteVentas(ctx, year, month)
	case Reporte608:
		rows, err = s.ReporteAnulaciones(ctx, year, month)
	default:
		return nil, "", fmt.Errorf("fiscal: tipo de reporte no soportado: %s", tipo)
	}
	if err != nil {
		return nil, "", err
	}

	negocio, err := s.deps.Negocios.FindByID(ctx, s.deps.NegocioID)
	if err != nil {
		return nil, "", fmt.Errorf("fiscal: cargando negocio: %w", err)
	}

	periodo := fmt.Sprintf("%04d%02d", year, month)
	header := fmt.Sprintf("%s|%s|%s|%d", tipo, negocio.RNC, periodo, len(rows))
	contenido := header + "\n" + strings.Join(rows, "\n")
	if len(rows) > 0 {
		contenido += "\n"
	}
	filename := fmt.Sprintf("DGII_F_%s_%s_%s.txt", tipo, negocio.RNC, periodo)
	return []byte(contenido), filename, nil
}

// ReporteVentas renders the 607 rows: one per COMPLETADA/ANULADA sale with an
// NCF, with the invoice amount broken down by payment form.
func (s *DGIIStrategy) ReporteVentas(ctx context.Context, year, month int) ([]string, error) {
	desde, hasta := rangoMes(year, month)
	ventas, err := s.deps.Ventas.ListPorPeriodo(ctx, s.deps.NegocioID, desde, hasta)
	if err != nil {
		return nil, fmt.Errorf("fiscal: cargando ventas: %w", err)
	}

	rows := make([]string, 0, len(ventas))
	for _, v := range ventas {
		if v.NCF == "" || v.EsNotaCredito() {
			continue
		}

		ncfModificado := ""
		// ITBIS retenido por terceros: clientes con RNC que compran a crédito
		itbisRetenido := decimal.Zero
		if v.ClienteTipo == "CREDITO" && v.ClienteTipoDoc == "RNC" {
			itbisRetenido = v.TotalImpuestos.Mul(tasaRetencionITBIS).Round(2)
		}

		pagos := desglosePagos(&v)

		cols := []string{
			v.ClienteDocumento,
			codigoTipoDocumento(v.ClienteTipoDoc),
			v.NCF,
			ncfModificado,
			"01", // tipo de ingreso: operaciones ordinarias
			v.Fecha.Format("20060102"),
			"", // fecha retención
			fixed(v.Subtotal.Sub(v.Descuento)),
			fixed(v.TotalImpuestos),
			fixed(itbisRetenido),
			fixed(decimal.Zero), // ITBIS percibido
			fixed(decimal.Zero), // retención renta por terceros
			fixed(decimal.Zero), // ISR percibido
			fixed(decimal.Zero), // impuesto selectivo al consumo
			fixed(decimal.Zero), // otros impuestos
			fixed(decimal.Zero), // propina legal
			fixed(pagos.efectivo),
			fixed(pagos.chequeTransferencia),
			fixed(pagos.tarjeta),
			fixed(pagos.credito),
			fixed(decimal.Zero), // bonos o certificados
			fixed(decimal.Zero), // permuta
			fixed(decimal.Zero), // otras formas de venta
		}
		rows = append(rows, strings.Join(cols, "|"))
	}
	return rows, nil
}

// ReporteCompras renders the 606 rows from RECIBIDA purchases, splitting
// amounts into bienes vs servicios and carrying the retention columns.
func (s *DGIIStrategy) ReporteCompras(ctx context.Context, year, month int) ([]string, error) {
	desde, hasta := rangoMes(year, month)
	compras, err := s.deps.Compras.ListPorPeriodo(ctx, s.deps.NegocioID, desde, hasta)
	if err != nil {
		return nil, fmt.Errorf("fiscal: cargando compras: %w", err)
	}

	rows := make([]string, 0, len(compras))
	for _, c := range compras {
		servicios, bienes := montoServiciosBienes(&c)

		fechaPago := ""
		if c.FechaPago != nil {
			fechaPago = c.FechaPago.Format("20060102")
		}

		cols := []string{
			c.ProveedorRNC,
			codigoTipoDocumentoPorLargo(c.ProveedorRNC),
			c.TipoBienesServicios,
			c.NCFProveedor,
			"", // NCF modificado
			c.Fecha.Format("20060102"),
			fechaPago,
			fixed(servicios),
			fixed(bienes),
			fixed(c.Subtotal),
			fixed(c.TotalImpuestos),
			fixed(c.ITBISRetenido),
			fixed(decimal.Zero), // ITBIS sujeto a proporcionalidad
			fixed(decimal.Zero), // ITBIS llevado al costo
			fixed(decimal.Zero), // ITBIS por adelantar
			fixed(decimal.Zero), // ITBIS percibido en compras
			c.TipoRetencion,
			fixed(c.RetencionRenta),
			fixed(decimal.Zero), // ISR percibido en compras
			fixed(decimal.Zero), // impuesto selectivo al consumo
			fixed(decimal.Zero), // otros impuestos
			fixed(decimal.Zero), // propina legal
			codigoFormaPago(c.FormaPago),
		}
		rows = append(rows, strings.Join(cols, "|"))
	}
	return rows, nil
}

// ReporteAnulaciones renders the 608 rows: every NCF voided in the month.
func (s *DGIIStrategy) ReporteAnulaciones(ctx context.Context, year, month int) ([]string, error) {
	desde, hasta := rangoMes(year, month)
	ventas, err := s.deps.Ventas.ListPorPeriodo(ctx, s.deps.NegocioID, desde, hasta)
	if err != nil {
		return nil, fmt.Errorf("fiscal: cargando ventas: %w", err)
	}

	var rows []string
	for _, v := range ventas {
		if v.Estado != model.VentaAnulada || v.NCF == "" {
			continue
		}
		cols := []string{
			v.NCF,
			v.Fecha.Format("20060102"),
			tipoAnulacionNotaCredito,
		}
		rows = append(rows, strings.Join(cols, "|"))
	}
	return rows, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type desglose struct {
	efectivo            decimal.Decimal
	chequeTransferencia decimal.Decimal
	tarjeta             decimal.Decimal
	credito             decimal.Decimal
}

func desglosePagos(v *model.Venta) desglose {
	var d desglose
	switch v.TipoPago {
	case model.TipoPagoEfectivo, model.TipoPagoMixto:
		d.efectivo = v.Total
	case model.TipoPagoCheque, model.TipoPagoTransferencia:
		d.chequeTransferencia = v.Total
	case model.TipoPagoTarjeta:
		d.tarjeta = v.Total
	case model.TipoPagoCredito:
		d.credito = v.Total
	default:
		d.efectivo = v.Total
	}
	return d
}

func montoServiciosBienes(c *model.Compra) (servicios, bienes decimal.Decimal) {
	if len(c.Detalles) == 0 {
		// Without line detail, classify by the purchase's 606 type
		if c.TipoBienesServicios == "02" {
			return c.Subtotal, decimal.Zero
		}
		return decimal.Zero, c.Subtotal
	}
	for _, d := range c.Detalles {
		if d.EsServicio {
			servicios = servicios.Add(d.Subtotal)
		} else {
			bienes = bienes.Add(d.Subtotal)
		}
	}
	return servicios, bienes
}

// codigoTipoDocumento: 1 = RNC, 2 = cédula, 3 = pasaporte.
func codigoTipoDocumento(tipoDoc string) string {
	switch tipoDoc {
	case "RNC":
		return "1"
	case "CEDULA":
		return "2"
	case "":
		return ""
	default:
		return "3"
	}
}

// codigoTipoDocumentoPorLargo infers RNC (9 digits) vs cédula (11 digits).
func codigoTipoDocumentoPorLargo(doc string) string {
	if len(doc) == 11 {
		return "2"
	}
	return "1"
}

// codigoFormaPago maps payment forms to the 606 catalog.
func codigoFormaPago(formaPago string) string {
	switch formaPago {
	case model.TipoPagoEfectivo:
		return "01"
	case model.TipoPagoCheque, model.TipoPagoTransferencia:
		return "02"
	case model.TipoPagoTarjeta:
		return "03"
	case model.TipoPagoCredito:
		return "04"
	default:
		return "07" // mixto
	}
}

func rangoMes(year, month int) (time.Time, time.Time) {
	desde := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return desde, desde.AddDate(0, 1, 0)
}

func fixed(d decimal.Decimal) string { return d.StringFixed(2) }

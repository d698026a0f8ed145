// Package ecf builds the canonical e-CF XML document (formato DGII).
// Generation is a pure function of the sale and business snapshot: the same
// input always produces the same bytes, so signing can be audited and retried.
package ecf

import (
	"fmt"

	"fiscalpos/internal/model"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// Código de modificación para notas de crédito (anulación total).
const CodigoModificacionAnulacion = "03"

// Fallbacks del comprador cuando la venta es a consumidor final sin datos.
const (
	CompradorGenericoRNC    = "000000000"
	CompradorGenericoNombre = "CLIENTE AL CONTADO"
)

var (
	tasa18 = decimal.NewFromInt(18)
	tasa16 = decimal.NewFromInt(16)
	cien   = decimal.NewFromInt(100)
)

// Totales is the tax-bracket aggregation embedded in the document.
type Totales struct {
	MontoGravado18 decimal.Decimal
	MontoGravado16 decimal.Decimal
	MontoExento    decimal.Decimal
	ITBIS18        decimal.Decimal
	ITBIS16        decimal.Decimal
	TotalITBIS     decimal.Decimal
	MontoTotal     decimal.Decimal
}

// Generator renders e-CF XML documents.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// Generar builds the complete e-CF for a sale. For credit/debit notes
// (tipos 33/34) the referenced sale must be preloaded on the Venta.
func (g *Generator) Generar(venta *model.Venta, negocio *model.Negocio) ([]byte, error) {
	tipoECF, ok := model.TipoECFMap[venta.TipoComprobante]
	if !ok {
		return nil, fmt.Errorf("ecf: tipo de comprobante no soportado: %s", venta.TipoComprobante)
	}
	if venta.NCF == "" {
		return nil, fmt.Errorf("ecf: venta %s sin NCF asignado", venta.Numero)
	}

	totales := CalcularTotales(venta)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("ECF")

	g.encabezado(root, venta, negocio, tipoECF, totales)
	g.detalles(root, venta)
	if tipoECF == "33" || tipoECF == "34" {
		if err := g.referencia(root, venta); err != nil {
			return nil, err
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func (g *Generator) encabezado(root *etree.Element, venta *model.Venta, negocio *model.Negocio, tipoECF string, t Totales) {
	enc := root.CreateElement("Encabezado")
	enc.CreateElement("Version").SetText("1.0")

	idDoc := enc.CreateElement("IdDoc")
	idDoc.CreateElement("TipoeCF").SetText(tipoECF)
	idDoc.CreateElement("eNCF").SetText(venta.NCF)
	if venta.FechaVencimiento != nil {
		idDoc.CreateElement("FechaVencimientoSecuencia").SetText(venta.FechaVencimiento.Format("02-01-2006"))
	}
	idDoc.CreateElement("TipoPago").SetText(codigoTipoPago(venta.TipoPago))

	emisor := enc.CreateElement("Emisor")
	emisor.CreateElement("RNCEmisor").SetText(negocio.RNC)
	emisor.CreateElement("RazonSocialEmisor").SetText(negocio.RazonSocial)
	if negocio.Direccion != "" {
		emisor.CreateElement("DireccionEmisor").SetText(negocio.Direccion)
	}
	emisor.CreateElement("FechaEmision").SetText(venta.Fecha.Format("02-01-2006"))

	comprador := enc.CreateElement("Comprador")
	rnc, nombre := venta.ClienteDocumento, venta.ClienteNombre
	if rnc == "" {
		rnc = CompradorGenericoRNC
	}
	if nombre == "" {
		nombre = CompradorGenericoNombre
	}
	comprador.CreateElement("RNCComprador").SetText(rnc)
	comprador.CreateElement("RazonSocialComprador").SetText(nombre)

	tot := enc.CreateElement("Totales")
	gravadoTotal := t.MontoGravado18.Add(t.MontoGravado16)
	tot.CreateElement("MontoGravadoTotal").SetText(fixed(gravadoTotal))
	tot.CreateElement("MontoGravadoI1").SetText(fixed(t.MontoGravado18))
	tot.CreateElement("MontoGravadoI2").SetText(fixed(t.MontoGravado16))
	tot.CreateElement("MontoExento").SetText(fixed(t.MontoExento))
	tot.CreateElement("ITBIS1").SetText("18")
	tot.CreateElement("ITBIS2").SetText("16")
	tot.CreateElement("TotalITBIS").SetText(fixed(t.TotalITBIS))
	tot.CreateElement("TotalITBIS1").SetText(fixed(t.ITBIS18))
	tot.CreateElement("TotalITBIS2").SetText(fixed(t.ITBIS16))
	tot.CreateElement("MontoTotal").SetText(fixed(t.MontoTotal))
}

func (g *Generator) detalles(root *etree.Element, venta *model.Venta) {
	items := root.CreateElement("DetallesItems")
	for i, d := range venta.Detalles {
		item := items.CreateElement("Item")
		item.CreateElement("NumeroLinea").SetText(fmt.Sprintf("%d", i+1))
		item.CreateElement("IndicadorFacturacion").SetText(indicadorFacturacion(d))
		item.CreateElement("NombreItem").SetText(d.ProductoNombre)
		item.CreateElement("IndicadorBienoServicio").SetText(indicadorBienServicio(d.EsServicio))
		item.CreateElement("CantidadItem").SetText(d.Cantidad.String())
		item.CreateElement("PrecioUnitarioItem").SetText(fixed(d.PrecioUnitario))
		if !d.Descuento.IsZero() {
			item.CreateElement("DescuentoMonto").SetText(fixed(d.Descuento))
		}
		item.CreateElement("MontoItem").SetText(fixed(d.Subtotal))
	}
}

func (g *Generator) referencia(root *etree.Element, venta *model.Venta) error {
	if venta.VentaReferencia == nil {
		return fmt.Errorf("ecf: nota %s sin venta de referencia", venta.Numero)
	}
	ref := root.CreateElement("InformacionReferencia")
	ref.CreateElement("NCFModificado").SetText(venta.VentaReferencia.NCF)
	ref.CreateElement("FechaNCFModificado").SetText(venta.VentaReferencia.Fecha.Format("02-01-2006"))
	ref.CreateElement("CodigoModificacion").SetText(CodigoModificacionAnulacion)
	return nil
}

// CalcularTotales aggregates line amounts into DGII tax brackets (18%, 16%,
// exento). Exported so the reports reuse the same bracket arithmetic.
func CalcularTotales(venta *model.Venta) Totales {
	var t Totales
	for _, d := range venta.Detalles {
		base := d.Subtotal.Sub(d.Descuento)
		switch {
		case !d.AplicaImpuesto:
			t.MontoExento = t.MontoExento.Add(base)
		case d.TasaImpuesto.Equal(tasa16):
			t.MontoGravado16 = t.MontoGravado16.Add(base)
			t.ITBIS16 = t.ITBIS16.Add(d.Impuesto)
		default:
			t.MontoGravado18 = t.MontoGravado18.Add(base)
			t.ITBIS18 = t.ITBIS18.Add(d.Impuesto)
		}
	}
	t.TotalITBIS = t.ITBIS18.Add(t.ITBIS16)
	t.MontoTotal = t.MontoGravado18.Add(t.MontoGravado16).Add(t.MontoExento).Add(t.TotalITBIS)
	return t
}

func fixed(d decimal.Decimal) string { return d.StringFixed(2) }

// indicadorFacturacion: 1 = gravado 18%, 2 = gravado 16%, 4 = exento.
func indicadorFacturacion(d model.DetalleVenta) string {
	switch {
	case !d.AplicaImpuesto:
		return "4"
	case d.TasaImpuesto.Equal(tasa16):
		return "2"
	default:
		return "1"
	}
}

func indicadorBienServicio(esServicio bool) string {
	if esServicio {
		return "2"
	}
	return "1"
}

// codigoTipoPago maps payment methods to the DGII payment-type code.
func codigoTipoPago(tipoPago string) string {
	switch tipoPago {
	case model.TipoPagoCredito:
		return "2" // crédito
	default:
		return "1" // contado
	}
}

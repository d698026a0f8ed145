package infra

// pdf.go — Fiscal invoice PDF generation using go-pdf/fpdf.
// Generates A7-size thermal receipt-style invoices with:
//   - Business name, RNC header
//   - NCF, sale number and date
//   - Item table (product name, quantity, total)
//   - ITBIS breakdown and bold total
//   - Security code + DGII QR verification URL
//
// The output file is saved to storagePath/factura_{numero}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"fiscalpos/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateFacturaPDF renders the printable invoice for a completed Venta.
// qrURL is the DGII verification link embedded as text (empty until APROBADO).
// Returns the absolute path to the generated file.
func GenerateFacturaPDF(venta *model.Venta, negocio *model.Negocio, qrURL, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("factura_%s.pdf", venta.Numero)
	filePath := filepath.Join(storagePath, fileName)

	// A7 ≈ 74mm × 105mm — close to thermal receipt paper (custom size, "A7" is not in fpdf's named list)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 135},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8 // total margins = 8mm

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, negocio.RazonSocial, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 4, "RNC: "+negocio.RNC, "", 1, "C", false, 0, "")
	titulo := "Factura de Consumo"
	switch venta.TipoComprobante {
	case "B01":
		titulo = "Factura de Crédito Fiscal"
	case "B04":
		titulo = "Nota de Crédito"
	}
	pdf.CellFormat(contentW, 5, titulo, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	// ── Fiscal info ───────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	if venta.NCF != "" {
		pdf.CellFormat(contentW, 5, "e-NCF: "+venta.NCF, "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "No. "+venta.Numero, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, venta.Fecha.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if venta.ClienteNombre != "" {
		pdf.CellFormat(contentW, 4, "Cliente: "+venta.ClienteNombre, "", 1, "L", false, 0, "")
	}
	if venta.ClienteDocumento != "" {
		pdf.CellFormat(contentW, 4, venta.ClienteTipoDoc+": "+venta.ClienteDocumento, "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	// ── Separator ────────────────────────────────────────────────────────────
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Items header ──────────────────────────────────────────────────────────
	col1 := contentW * 0.52 // product name
	col2 := contentW * 0.16 // qty
	col3 := contentW * 0.32 // total

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Total", "B", 1, "R", false, 0, "")

	// ── Item rows ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	for _, d := range venta.Detalles {
		nombre := d.ProductoNombre
		// Truncate long names
		if len(nombre) > 22 {
			nombre = nombre[:21] + "…"
		}
		pdf.CellFormat(col1, 5, nombre, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "x"+d.Cantidad.StringFixed(0), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "$"+d.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(col1+col2, 5, "Subtotal:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "$"+venta.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	if !venta.Descuento.IsZero() {
		pdf.CellFormat(col1+col2, 5, "Descuento:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, "-$"+venta.Descuento.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.CellFormat(col1+col2, 5, "ITBIS:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "$"+venta.TotalImpuestos.StringFixed(2), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "$"+venta.Total.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Fiscal footer ─────────────────────────────────────────────────────────
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 6)
	if venta.CodigoSeguridad != "" {
		pdf.CellFormat(contentW, 4, "Código de seguridad: "+venta.CodigoSeguridad, "", 1, "L", false, 0, "")
	}
	if qrURL != "" {
		pdf.MultiCell(contentW, 3.5, "Verifique en: "+qrURL, "", "L", false)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "¡Gracias por su compra!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}

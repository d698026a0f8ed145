package service

import (
	"context"
	"testing"
	"time"

	"fiscalpos/internal/fiscal"
	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportePreview(t *testing.T) {
	negocio := &model.Negocio{ID: uuid.New(), RNC: "131880681", RazonSocial: "Comercial Demo SRL", PaisCodigo: "DOM"}
	ventas := newStubVentaRepo()
	require.NoError(t, ventas.CreateTx(context.Background(), nil, &model.Venta{
		NegocioID:        negocio.ID,
		Numero:           "V-00000001",
		TipoComprobante:  "B02",
		NCF:              "E32A00000001",
		ClienteDocumento: "00112345678",
		ClienteTipoDoc:   "CEDULA",
		Fecha:            time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		Subtotal:         d("1000.00"),
		TotalImpuestos:   d("180.00"),
		Total:            d("1180.00"),
		TipoPago:         model.TipoPagoEfectivo,
		Estado:           model.VentaCompletada,
	}))

	svc := NewReporteService(newStubNegocioRepo(negocio), ventas, newStubCompraRepo())

	preview, err := svc.Preview(context.Background(), negocio.ID, fiscal.Reporte607, 2026, 8)
	require.NoError(t, err)
	assert.Equal(t, fiscal.Reporte607, preview.Tipo)
	assert.Equal(t, "202608", preview.Periodo)
	assert.Equal(t, 1, preview.RowCount)
	require.Len(t, preview.Rows, 1)
	assert.Contains(t, preview.Rows[0], "E32A00000001")

	// Mes sin movimientos: preview vacío pero válido
	preview, err = svc.Preview(context.Background(), negocio.ID, fiscal.Reporte608, 2026, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, preview.RowCount)
}

func TestReporteExportar_PeriodoInvalido(t *testing.T) {
	negocio := &model.Negocio{ID: uuid.New(), RNC: "131880681"}
	svc := NewReporteService(newStubNegocioRepo(negocio), newStubVentaRepo(), newStubCompraRepo())

	_, _, err := svc.Exportar(context.Background(), negocio.ID, fiscal.Reporte607, 1999, 8)
	assert.Error(t, err)
	_, _, err = svc.Exportar(context.Background(), negocio.ID, fiscal.Reporte607, 2026, 13)
	assert.Error(t, err)
	_, _, err = svc.Exportar(context.Background(), negocio.ID, "609", 2026, 8)
	assert.Error(t, err)
}

package service

import (
	"context"
	"testing"
	"time"

	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReintentarContingencia(t *testing.T) {
	facturas := newStubFacturaRepo()
	ventas := newStubVentaRepo()
	svc := NewFacturacionService(facturas, ventas, nil)
	ventaID := uuid.New()

	// Sin factura registrada
	err := svc.ReintentarContingencia(context.Background(), ventaID)
	assert.ErrorIs(t, err, ErrFacturaNoEncontrada)

	// Estado distinto de CONTINGENCIA: el reintento manual se rechaza
	manana := time.Now().Add(24 * time.Hour)
	require.NoError(t, facturas.Create(context.Background(), &model.FacturaElectronica{
		VentaID:     ventaID,
		EstadoDGII:  "EN_PROCESO",
		NextRetryAt: &manana,
	}))
	err = svc.ReintentarContingencia(context.Background(), ventaID)
	assert.ErrorIs(t, err, ErrReintentoNoPermitido)

	// En CONTINGENCIA: queda elegible de inmediato para el barrido
	factura, _ := facturas.FindByVentaID(context.Background(), ventaID)
	factura.EstadoDGII = model.FiscalContingencia
	factura.NextRetryAt = &manana
	require.NoError(t, facturas.Update(context.Background(), factura))

	require.NoError(t, svc.ReintentarContingencia(context.Background(), ventaID))
	factura, _ = facturas.FindByVentaID(context.Background(), ventaID)
	require.NotNil(t, factura.NextRetryAt)
	assert.True(t, factura.NextRetryAt.Before(time.Now().Add(time.Second)))
}

func TestObtenerPDFPath(t *testing.T) {
	facturas := newStubFacturaRepo()
	svc := NewFacturacionService(facturas, newStubVentaRepo(), nil)
	ventaID := uuid.New()

	_, err := svc.ObtenerPDFPath(context.Background(), ventaID)
	assert.ErrorIs(t, err, ErrFacturaNoEncontrada)

	// Documento aún sin PDF (no aprobado)
	require.NoError(t, facturas.Create(context.Background(), &model.FacturaElectronica{
		VentaID:    ventaID,
		EstadoDGII: model.FiscalContingencia,
	}))
	_, err = svc.ObtenerPDFPath(context.Background(), ventaID)
	assert.Error(t, err)

	factura, _ := facturas.FindByVentaID(context.Background(), ventaID)
	ruta := "/var/pdfs/E32A00000001.pdf"
	factura.PDFPath = &ruta
	require.NoError(t, facturas.Update(context.Background(), factura))

	path, err := svc.ObtenerPDFPath(context.Background(), ventaID)
	require.NoError(t, err)
	assert.Equal(t, ruta, path)
}

func TestEmitirECF_EstadosTerminales(t *testing.T) {
	ventas := newStubVentaRepo()
	svc := NewFacturacionService(newStubFacturaRepo(), ventas, nil)

	aprobada := &model.Venta{Numero: "V-00000001", EstadoFiscal: model.FiscalAprobado}
	require.NoError(t, ventas.CreateTx(context.Background(), nil, aprobada))
	assert.Error(t, svc.EmitirECF(context.Background(), aprobada.ID))

	rechazada := &model.Venta{Numero: "V-00000002", EstadoFiscal: model.FiscalRechazado}
	require.NoError(t, ventas.CreateTx(context.Background(), nil, rechazada))
	assert.Error(t, svc.EmitirECF(context.Background(), rechazada.ID))
}

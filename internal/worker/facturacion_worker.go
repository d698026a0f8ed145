package worker

// facturacion_worker.go
// Processes e-CF emission jobs from QueueFacturacion.
// Pipeline per job: assign NCF if missing → generate canonical XML → sign →
// submit to DGII → map the gateway outcome onto the fiscal state machine.
// Submission always runs here, outside any DB lock or transaction.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"fiscalpos/internal/fiscal/ecf"
	"fiscalpos/internal/fiscal/firma"
	"fiscalpos/internal/infra"
	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxFacturaRetries before a contingency document lands in the DLQ.
const MaxFacturaRetries = 5

// FacturacionJobPayload is the job envelope sent to QueueFacturacion.
type FacturacionJobPayload struct {
	VentaID      string  `json:"venta_id"`
	ClienteEmail *string `json:"cliente_email,omitempty"`
}

// DGIIGateway is the submission surface the worker needs; *infra.DGIIClient
// implements it.
type DGIIGateway interface {
	Enviar(ctx context.Context, nombreArchivo string, xmlFirmado []byte) (*infra.DGIIResponse, error)
	ConsultarEstado(ctx context.Context, trackID string) (*infra.DGIIResponse, error)
	ConsultarTimbre(ctx context.Context, trackID string) (*infra.DGIIResponse, error)
}

// NCFAllocator is the slice of the sequence service the worker consumes;
// service.SecuenciaService implements it.
type NCFAllocator interface {
	SiguienteNCF(ctx context.Context, negocioID uuid.UUID, tipoComprobante string) (*model.NCFAsignado, error)
}

// FacturacionWorker drives the e-CF emission pipeline.
type FacturacionWorker struct {
	ventaRepo      repository.VentaRepository
	negocioRepo    repository.NegocioRepository
	facturaRepo    repository.FacturaRepository
	secuencias     NCFAllocator
	generator      *ecf.Generator
	firmador       *firma.Firmador
	dgiiFor        func(ambiente string) DGIIGateway
	dispatcher     *Dispatcher
	pdfStoragePath string
}

// NewFacturacionWorker wires all dependencies for the emission worker.
// dgiiFor resolves a gateway client per business ambiente (TEST/PROD).
func NewFacturacionWorker(
	ventaRepo repository.VentaRepository,
	negocioRepo repository.NegocioRepository,
	facturaRepo repository.FacturaRepository,
	secuencias NCFAllocator,
	firmador *firma.Firmador,
	dgiiFor func(ambiente string) DGIIGateway,
	dispatcher *Dispatcher,
	pdfStoragePath string,
) *FacturacionWorker {
	return &FacturacionWorker{
		ventaRepo:      ventaRepo,
		negocioRepo:    negocioRepo,
		facturaRepo:    facturaRepo,
		secuencias:     secuencias,
		generator:      ecf.NewGenerator(),
		firmador:       firmador,
		dgiiFor:        dgiiFor,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process handles a single emission job end to end.
func (w *FacturacionWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload FacturacionJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("facturacion_worker: invalid payload")
		return
	}
	ventaID, err := uuid.Parse(payload.VentaID)
	if err != nil {
		log.Error().Str("venta_id", payload.VentaID).Msg("facturacion_worker: invalid venta_id")
		return
	}

	venta, err := w.ventaRepo.FindByID(ctx, ventaID)
	if err != nil {
		log.Error().Err(err).Str("venta_id", payload.VentaID).Msg("facturacion_worker: venta not found")
		return
	}
	// Terminal states are never re-emitted
	if venta.EstadoFiscal == model.FiscalAprobado || venta.EstadoFiscal == model.FiscalRechazado {
		log.Warn().Str("venta", venta.Numero).Str("estado", venta.EstadoFiscal).
			Msg("facturacion_worker: estado fiscal terminal, nada que emitir")
		return
	}

	negocio, err := w.negocioRepo.FindByID(ctx, venta.NegocioID)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: negocio not found")
		return
	}

	// 1. NCF: allocated inside its own short transaction; nothing slow holds it
	if venta.NCF == "" {
		asignado, err := w.secuencias.SiguienteNCF(ctx, venta.NegocioID, venta.TipoComprobante)
		if err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: no se pudo asignar NCF")
			return
		}
		if err := w.ventaRepo.AsignarNCF(ctx, venta.ID, asignado.NCF, asignado.FechaVencimiento); err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: no se pudo guardar el NCF")
			return
		}
		venta.NCF = asignado.NCF
		venta.FechaVencimiento = &asignado.FechaVencimiento
	}

	factura, err := w.facturaRepo.FindByVentaID(ctx, venta.ID)
	if err != nil {
		factura = &model.FacturaElectronica{
			VentaID: venta.ID,
			ECFTipo: model.TipoECFMap[venta.TipoComprobante],
		}
		if err := w.facturaRepo.Create(ctx, factura); err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: no se pudo crear la factura")
			return
		}
	}

	// 2. Canonical XML — deterministic function of the persisted sale
	xmlCanonico, err := w.generator.Generar(venta, negocio)
	if err != nil {
		w.marcarError(ctx, factura, fmt.Sprintf("generación XML: %v", err))
		return
	}
	factura.XMLCanonico = string(xmlCanonico)

	// 3. Sign — fail closed on any certificate problem, no retry schedule:
	// an invalid certificate needs an operator, not a cron
	xmlFirmado, err := w.firmar(xmlCanonico, negocio)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: firma rechazada")
		w.marcarError(ctx, factura, err.Error())
		return
	}
	ahora := time.Now()
	factura.XMLFirmado = string(xmlFirmado)
	factura.FechaFirma = &ahora
	if err := w.facturaRepo.Update(ctx, factura); err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: no se pudo guardar el XML firmado")
		return
	}

	// 4. Transition PENDIENTE → ENVIADO before the network call
	if venta.EstadoFiscal == model.FiscalPendiente || venta.EstadoFiscal == model.FiscalContingencia {
		evento := model.EventoEnviar
		if venta.EstadoFiscal == model.FiscalContingencia {
			evento = model.EventoReintentar
		}
		siguiente, err := model.TransicionFiscal(venta.EstadoFiscal, evento)
		if err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: transición inválida")
			return
		}
		if err := w.ventaRepo.UpdateEstadoFiscal(ctx, venta.ID, siguiente); err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: no se pudo actualizar el estado fiscal")
			return
		}
		venta.EstadoFiscal = siguiente
	}

	// 5. Submit (client retries transport errors with backoff internally)
	w.enviar(ctx, venta, negocio, factura, payload.ClienteEmail)
}

func (w *FacturacionWorker) firmar(xmlCanonico []byte, negocio *model.Negocio) ([]byte, error) {
	var cert *firma.Certificado
	if negocio.CertificadoPath != "" {
		passphrase := os.Getenv(negocio.CertificadoPassEnv)
		var err error
		cert, err = firma.CargarCertificado(negocio.CertificadoPath, passphrase)
		if err != nil {
			return nil, err
		}
	}
	return w.firmador.Firmar(xmlCanonico, cert)
}

// enviar submits the signed document and maps the outcome onto the state
// machine. Exported pieces of this mapping are shared with the retry cron.
func (w *FacturacionWorker) enviar(ctx context.Context, venta *model.Venta, negocio *model.Negocio, factura *model.FacturaElectronica, clienteEmail *string) {
	gateway := w.dgiiFor(negocio.AmbienteDGII)
	nombre := venta.NCF + ".xml"

	resp, err := gateway.Enviar(ctx, nombre, []byte(factura.XMLFirmado))
	switch {
	case err != nil && errors.Is(err, infra.ErrDGIIRechazo):
		w.rechazar(ctx, venta, factura, resp)
	case err != nil && errors.Is(err, infra.ErrDGIIAutenticacion):
		// Bad credentials need an operator, not a retry schedule
		log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: autenticación DGII rechazada")
		w.marcarError(ctx, factura, err.Error())
	case err != nil:
		w.contingencia(ctx, venta, factura, err)
	default:
		factura.TrackID = resp.TrackID
		factura.RespuestaCruda = crudo(resp)
		w.resolverEstado(ctx, gateway, venta, factura, resp, clienteEmail)
	}
}

// resolverEstado applies the reception status: ACEPTADO approves, RECHAZADO
// terminates, EN_PROCESO schedules a status poll.
func (w *FacturacionWorker) resolverEstado(ctx context.Context, gateway DGIIGateway, venta *model.Venta, factura *model.FacturaElectronica, resp *infra.DGIIResponse, clienteEmail *string) {
	switch resp.Estado {
	case infra.DGIIAceptado:
		w.aprobar(ctx, gateway, venta, factura, clienteEmail)
	case infra.DGIIRechazado:
		w.rechazar(ctx, venta, factura, resp)
	default: // EN_PROCESO
		factura.EstadoDGII = infra.DGIIEnProceso
		siguiente := time.Now().Add(computeRetryBackoff(factura.RetryCount))
		factura.NextRetryAt = &siguiente
		_ = w.facturaRepo.Update(ctx, factura)
		log.Info().Str("venta", venta.Numero).Str("track_id", factura.TrackID).
			Msg("facturacion_worker: e-CF en proceso, se consultará luego")
	}
}

func (w *FacturacionWorker) aprobar(ctx context.Context, gateway DGIIGateway, venta *model.Venta, factura *model.FacturaElectronica, clienteEmail *string) {
	siguiente, err := model.TransicionFiscal(venta.EstadoFiscal, model.EventoAprobar)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: transición a APROBADO inválida")
		return
	}

	factura.EstadoDGII = infra.DGIIAceptado
	factura.NextRetryAt = nil
	factura.LastError = nil
	if timbre, err := gateway.ConsultarTimbre(ctx, factura.TrackID); err == nil {
		factura.QRData = timbre.Mensaje()
	}
	_ = w.facturaRepo.Update(ctx, factura)
	_ = w.ventaRepo.UpdateEstadoFiscal(ctx, venta.ID, siguiente)

	log.Info().Str("venta", venta.Numero).Str("ncf", venta.NCF).Str("track_id", factura.TrackID).
		Msg("facturacion_worker: e-CF aprobado")

	// PDF + email are conveniences; their failure never touches fiscal state
	negocio, err := w.negocioRepo.FindByID(ctx, venta.NegocioID)
	if err != nil {
		return
	}
	pdfPath, err := infra.GenerateFacturaPDF(venta, negocio, factura.QRData, w.pdfStoragePath)
	if err != nil {
		log.Warn().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: PDF generation failed")
		return
	}
	factura.PDFPath = &pdfPath
	_ = w.facturaRepo.Update(ctx, factura)

	if clienteEmail != nil && *clienteEmail != "" && w.dispatcher != nil {
		emailJob := EmailJobPayload{
			ToEmail: *clienteEmail,
			Subject: fmt.Sprintf("Factura electrónica %s", venta.NCF),
			Body:    fmt.Sprintf("Adjunto encontrará su factura electrónica.\nTotal: $%s", venta.Total.StringFixed(2)),
			PDFPath: pdfPath,
		}
		if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			log.Warn().Err(err).Str("email", *clienteEmail).Msg("facturacion_worker: failed to enqueue email")
		}
	}
}

// rechazar is terminal: the regulator said no, re-submission is pointless.
func (w *FacturacionWorker) rechazar(ctx context.Context, venta *model.Venta, factura *model.FacturaElectronica, resp *infra.DGIIResponse) {
	siguiente, err := model.TransicionFiscal(venta.EstadoFiscal, model.EventoRechazar)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: transición a RECHAZADO inválida")
		return
	}
	factura.EstadoDGII = infra.DGIIRechazado
	factura.NextRetryAt = nil
	if resp != nil {
		factura.MensajeDGII = resp.Mensaje()
		factura.RespuestaCruda = crudo(resp)
	}
	_ = w.facturaRepo.Update(ctx, factura)
	_ = w.ventaRepo.UpdateEstadoFiscal(ctx, venta.ID, siguiente)
	log.Warn().Str("venta", venta.Numero).Str("mensaje", factura.MensajeDGII).
		Msg("facturacion_worker: e-CF rechazado por DGII")
}

// contingencia schedules a deferred re-submission after a transport failure.
func (w *FacturacionWorker) contingencia(ctx context.Context, venta *model.Venta, factura *model.FacturaElectronica, cause error) {
	siguiente, err := model.TransicionFiscal(venta.EstadoFiscal, model.EventoFallaRed)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("facturacion_worker: transición a CONTINGENCIA inválida")
		return
	}

	factura.EstadoDGII = model.FiscalContingencia
	factura.RetryCount++
	msg := cause.Error()
	factura.LastError = &msg
	proximo := time.Now().Add(computeRetryBackoff(factura.RetryCount))
	factura.NextRetryAt = &proximo
	_ = w.facturaRepo.Update(ctx, factura)
	_ = w.ventaRepo.UpdateEstadoFiscal(ctx, venta.ID, siguiente)

	log.Warn().Err(cause).Str("venta", venta.Numero).Int("retry_count", factura.RetryCount).
		Time("next_retry_at", proximo).Msg("facturacion_worker: DGII inalcanzable, pasa a contingencia")
}

func (w *FacturacionWorker) marcarError(ctx context.Context, factura *model.FacturaElectronica, msg string) {
	factura.EstadoDGII = infra.DGIIError
	factura.LastError = &msg
	factura.NextRetryAt = nil
	_ = w.facturaRepo.Update(ctx, factura)
}

// computeRetryBackoff: 1m, 2m, 4m … capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	backoff := time.Duration(1<<uint(retryCount-1)) * time.Minute
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}

func crudo(resp *infra.DGIIResponse) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return ""
	}
	return string(data)
}

package worker

// retry_cron.go
// Background goroutine that periodically sweeps facturas_electronicas for
// documents whose next action is due: CONTINGENCIA documents get re-submitted
// and EN_PROCESO documents get their status polled. The circuit breaker gates
// every DGII call so a downed gateway is not hammered.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fiscalpos/internal/infra"
	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const retryBatchSize = 10

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	FacturaRepo repository.FacturaRepository
	VentaRepo   repository.VentaRepository
	NegocioRepo repository.NegocioRepository
	Worker      *FacturacionWorker
	CB          *infra.CircuitBreaker
	RDB         *redis.Client
	Interval    time.Duration
}

// StartRetryCron launches a background goroutine that ticks on the configured
// interval and sweeps due documents. It respects the context for graceful
// shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed gateway
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	facturas, err := cfg.FacturaRepo.ListParaReintento(ctx, time.Now(), retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}
	if len(facturas) == 0 {
		return
	}

	log.Info().Int("count", len(facturas)).Msg("retry_cron: processing pending documents")

	for i := range facturas {
		factura := &facturas[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		if factura.RetryCount >= MaxFacturaRetries {
			moverADLQ(ctx, cfg, factura)
			continue
		}

		venta, err := cfg.VentaRepo.FindByID(ctx, factura.VentaID)
		if err != nil {
			log.Error().Err(err).Str("factura_id", factura.ID.String()).
				Msg("retry_cron: venta not found")
			continue
		}
		negocio, err := cfg.NegocioRepo.FindByID(ctx, venta.NegocioID)
		if err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).
				Msg("retry_cron: negocio not found")
			continue
		}
		gateway := cfg.Worker.dgiiFor(negocio.AmbienteDGII)

		switch factura.EstadoDGII {
		case model.FiscalContingencia:
			reenviar(ctx, cfg, gateway, venta, factura)
		case infra.DGIIEnProceso:
			consultar(ctx, cfg, gateway, venta, factura)
		}
	}
}

// reenviar re-submits the already-signed XML of a contingency document.
// The XML is never regenerated: the NCF was consumed at first emission and the
// document must reach DGII exactly as signed.
func reenviar(ctx context.Context, cfg RetryCronConfig, gateway DGIIGateway, venta *model.Venta, factura *model.FacturaElectronica) {
	if factura.XMLFirmado == "" {
		// Never signed — the full pipeline has to run again
		payload := FacturacionJobPayload{VentaID: venta.ID.String(), ClienteEmail: clienteEmailDe(venta)}
		if err := cfg.Worker.dispatcher.EnqueueFacturacion(ctx, payload); err != nil {
			log.Error().Err(err).Str("venta", venta.Numero).Msg("retry_cron: re-enqueue failed")
		}
		return
	}

	siguiente, err := model.TransicionFiscal(venta.EstadoFiscal, model.EventoReintentar)
	if err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("retry_cron: transición inválida")
		return
	}
	if err := cfg.VentaRepo.UpdateEstadoFiscal(ctx, venta.ID, siguiente); err != nil {
		log.Error().Err(err).Str("venta", venta.Numero).Msg("retry_cron: no se pudo actualizar el estado fiscal")
		return
	}
	venta.EstadoFiscal = siguiente

	var resp *infra.DGIIResponse
	var respErr error
	cbErr := cfg.CB.Execute(func() error {
		r, err := gateway.Enviar(ctx, venta.NCF+".xml", []byte(factura.XMLFirmado))
		if err != nil && errors.Is(err, infra.ErrDGIITransporte) {
			// Only transport failures count against the breaker
			return err
		}
		resp = r
		respErr = err
		return nil
	})

	switch {
	case cbErr != nil:
		cfg.Worker.contingencia(ctx, venta, factura, cbErr)
	case respErr != nil && errors.Is(respErr, infra.ErrDGIIRechazo):
		cfg.Worker.rechazar(ctx, venta, factura, resp)
	case respErr != nil && errors.Is(respErr, infra.ErrDGIIAutenticacion):
		log.Error().Err(respErr).Str("venta", venta.Numero).Msg("retry_cron: autenticación DGII rechazada")
		cfg.Worker.marcarError(ctx, factura, respErr.Error())
	case respErr != nil:
		cfg.Worker.contingencia(ctx, venta, factura, respErr)
	default:
		factura.TrackID = resp.TrackID
		factura.RespuestaCruda = crudo(resp)
		cfg.Worker.resolverEstado(ctx, gateway, venta, factura, resp, clienteEmailDe(venta))
		log.Info().Str("venta", venta.Numero).Str("estado", resp.Estado).
			Int("total_retries", factura.RetryCount).
			Msg("retry_cron: re-submission answered")
	}
}

// consultar polls the processing status of a submitted document. A rejection
// answer on the poll terminates the document; only transport failures push
// the poll forward.
func consultar(ctx context.Context, cfg RetryCronConfig, gateway DGIIGateway, venta *model.Venta, factura *model.FacturaElectronica) {
	var resp *infra.DGIIResponse
	var respErr error
	cbErr := cfg.CB.Execute(func() error {
		r, err := gateway.ConsultarEstado(ctx, factura.TrackID)
		if err != nil && errors.Is(err, infra.ErrDGIITransporte) {
			return err
		}
		resp = r
		respErr = err
		return nil
	})
	if respErr != nil && errors.Is(respErr, infra.ErrDGIIAutenticacion) {
		log.Error().Err(respErr).Str("venta", venta.Numero).Msg("retry_cron: autenticación DGII rechazada")
		cfg.Worker.marcarError(ctx, factura, respErr.Error())
		return
	}
	if cbErr != nil || resp == nil {
		// Still unreachable or unanswered: push the poll forward
		factura.RetryCount++
		siguiente := time.Now().Add(computeRetryBackoff(factura.RetryCount))
		factura.NextRetryAt = &siguiente
		_ = cfg.FacturaRepo.Update(ctx, factura)
		return
	}

	factura.RespuestaCruda = crudo(resp)
	cfg.Worker.resolverEstado(ctx, gateway, venta, factura, resp, clienteEmailDe(venta))
}

func moverADLQ(ctx context.Context, cfg RetryCronConfig, factura *model.FacturaElectronica) {
	factura.EstadoDGII = infra.DGIIError
	factura.NextRetryAt = nil
	_ = cfg.FacturaRepo.Update(ctx, factura)

	reason := fmt.Sprintf("max retries (%d) exceeded", MaxFacturaRetries)
	if factura.LastError != nil {
		reason += ": " + *factura.LastError
	}
	payload := fmt.Sprintf(`{"venta_id":"%s","factura_id":"%s"}`, factura.VentaID, factura.ID)
	SendToDLQ(ctx, cfg.RDB, QueueFacturacion, "facturacion", []byte(payload), reason, factura.RetryCount)

	log.Error().
		Str("factura_id", factura.ID.String()).
		Str("venta_id", factura.VentaID.String()).
		Int("retries", factura.RetryCount).
		Msg("retry_cron: max retries exceeded, moved to DLQ")
}

func clienteEmailDe(venta *model.Venta) *string {
	if venta.ClienteEmail == "" {
		return nil
	}
	email := venta.ClienteEmail
	return &email
}

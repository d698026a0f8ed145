package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fiscalpos/internal/config"
	"fiscalpos/internal/fiscal/firma"
	"fiscalpos/internal/infra"
	"fiscalpos/internal/repository"
	"fiscalpos/internal/router"
	"fiscalpos/internal/service"
	"fiscalpos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Circuit breaker shared by the emission retry cron and /health
	dgiiCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	// Start goroutine worker pool for async tasks (e-CF emission, email).
	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := infra.NewMailer(cfg)
	dispatcher := worker.NewDispatcher(rdb)

	ventaRepo := repository.NewVentaRepository(db)
	negocioRepo := repository.NewNegocioRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	secuenciaRepo := repository.NewSecuenciaRepository(db)
	secuenciaSvc := service.NewSecuenciaService(secuenciaRepo)
	firmador := firma.NewFirmador(cfg.FirmaSimulada)

	// One gateway client per DGII ambiente; a business selects its own
	dgiiTimeout := time.Duration(cfg.DGIITimeoutSeconds) * time.Second
	clientes := map[string]worker.DGIIGateway{
		"TEST": infra.NewDGIIClient("TEST", dgiiTimeout, cfg.DGIIMaxRetries),
		"PROD": infra.NewDGIIClient("PROD", dgiiTimeout, cfg.DGIIMaxRetries),
	}
	dgiiFor := func(ambiente string) worker.DGIIGateway {
		if c, ok := clientes[ambiente]; ok {
			return c
		}
		return clientes["TEST"]
	}

	facturacionWorker := worker.NewFacturacionWorker(
		ventaRepo, negocioRepo, facturaRepo, secuenciaSvc,
		firmador, dgiiFor, dispatcher, cfg.PDFStoragePath,
	)
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, worker.Handlers{
		Facturacion: facturacionWorker,
		Email:       worker.NewEmailWorker(mailer),
	})

	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		FacturaRepo: facturaRepo,
		VentaRepo:   ventaRepo,
		NegocioRepo: negocioRepo,
		Worker:      facturacionWorker,
		CB:          dgiiCB,
		RDB:         rdb,
		Interval:    time.Duration(cfg.RetryCronSeconds) * time.Second,
	})

	r := router.New(cfg, db, rdb, dgiiCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("fiscalpos backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

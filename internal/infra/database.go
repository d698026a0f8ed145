package infra

import (
	"fmt"

	"fiscalpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies idempotent SQL patches that GORM
// cannot express (sequences, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations applies the schema. Also used by integration tests against a
// throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Negocio{},
		&model.CuentaContable{},
		&model.PeriodoContable{},
		&model.AsientoContable{},
		&model.LineaAsiento{},
		&model.SecuenciaNCF{},
		&model.Venta{},
		&model.DetalleVenta{},
		&model.Compra{},
		&model.DetalleCompra{},
		&model.FacturaElectronica{},
		&model.MovimientoStock{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Document numbering sequences (atomic nextval under concurrency)
		`CREATE SEQUENCE IF NOT EXISTS asientos_numero_seq START 1`,
		`CREATE SEQUENCE IF NOT EXISTS ventas_numero_seq START 1`,
		`CREATE SEQUENCE IF NOT EXISTS compras_numero_seq START 1`,

		// Partial index for the contingency retry cron sweep
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_facturas_pending_retry') THEN
		    CREATE INDEX idx_facturas_pending_retry
		        ON facturas_electronicas (next_retry_at)
		        WHERE estado_dgii IN ('CONTINGENCIA', 'EN_PROCESO') AND next_retry_at IS NOT NULL;
		  END IF;
		END $$`,

		// One active sequence per (negocio, tipo) — the allocator depends on it
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_secuencia_activa_unica') THEN
		    CREATE UNIQUE INDEX idx_secuencia_activa_unica
		        ON secuencias_ncf (negocio_id, tipo_comprobante)
		        WHERE activa = true;
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}

package repository

import (
	"context"

	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CuentaNeto aggregates posted debit/credit per account over one period.
type CuentaNeto struct {
	CuentaID   uuid.UUID
	Codigo     string
	Tipo       string
	Naturaleza string
	Debe       decimal.Decimal
	Haber      decimal.Decimal
}

type CuentaRepository interface {
	Create(ctx context.Context, c *model.CuentaContable) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CuentaContable, error)
	FindByCodigo(ctx context.Context, negocioID uuid.UUID, codigo string) (*model.CuentaContable, error)
	ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]model.CuentaContable, error)
	// AplicarDeltaTx adjusts saldo_actual atomically inside the posting transaction.
	AplicarDeltaTx(tx *gorm.DB, cuentaID uuid.UUID, delta decimal.Decimal) error
	// NetosPorPeriodo returns per-account posted debit/credit sums for a period,
	// restricted to the given account types. Used by the period close.
	NetosPorPeriodo(ctx context.Context, periodoID uuid.UUID, tipos []string) ([]CuentaNeto, error)
}

type cuentaRepo struct{ db *gorm.DB }

func NewCuentaRepository(db *gorm.DB) CuentaRepository { return &cuentaRepo{db: db} }

func (r *cuentaRepo) Create(ctx context.Context, c *model.CuentaContable) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cuentaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CuentaContable, error) {
	var c model.CuentaContable
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cuentaRepo) FindByCodigo(ctx context.Context, negocioID uuid.UUID, codigo string) (*model.CuentaContable, error) {
	var c model.CuentaContable
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND codigo = ? AND activa = true", negocioID, codigo).
		First(&c).Error
	return &c, err
}

func (r *cuentaRepo) ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]model.CuentaContable, error) {
	var cuentas []model.CuentaContable
	err := r.db.WithContext(ctx).
		Where("negocio_id = ?", negocioID).
		Order("codigo").
		Find(&cuentas).Error
	return cuentas, err
}

func (r *cuentaRepo) AplicarDeltaTx(tx *gorm.DB, cuentaID uuid.UUID, delta decimal.Decimal) error {
	return tx.Model(&model.CuentaContable{}).
		Where("id = ?", cuentaID).
		Update("saldo_actual", gorm.Expr("saldo_actual + ?", delta)).Error
}

func (r *cuentaRepo) NetosPorPeriodo(ctx context.Context, periodoID uuid.UUID, tipos []string) ([]CuentaNeto, error) {
	var netos []CuentaNeto
	err := r.db.WithContext(ctx).
		Table("lineas_asiento").
		Select(`cuentas_contables.id AS cuenta_id,
			cuentas_contables.codigo,
			cuentas_contables.tipo,
			cuentas_contables.naturaleza,
			COALESCE(SUM(lineas_asiento.debe), 0) AS debe,
			COALESCE(SUM(lineas_asiento.haber), 0) AS haber`).
		Joins("JOIN asientos_contables ON asientos_contables.id = lineas_asiento.asiento_id").
		Joins("JOIN cuentas_contables ON cuentas_contables.id = lineas_asiento.cuenta_id").
		Where("asientos_contables.periodo_id = ?", periodoID).
		Where("asientos_contables.estado = ?", model.AsientoContabilizado).
		Where("cuentas_contables.tipo IN ?", tipos).
		Group("cuentas_contables.id, cuentas_contables.codigo, cuentas_contables.tipo, cuentas_contables.naturaleza").
		Scan(&netos).Error
	return netos, err
}

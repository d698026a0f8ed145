package repository

import (
	"context"
	"time"

	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FacturaRepository interface {
	Create(ctx context.Context, f *model.FacturaElectronica) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.FacturaElectronica, error)
	FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.FacturaElectronica, error)
	Update(ctx context.Context, f *model.FacturaElectronica) error
	// ListParaReintento returns documents whose next action is due, oldest
	// first: CONTINGENCIA (resubmit) and EN_PROCESO (poll status).
	ListParaReintento(ctx context.Context, ahora time.Time, limit int) ([]model.FacturaElectronica, error)
}

type facturaRepo struct{ db *gorm.DB }

func NewFacturaRepository(db *gorm.DB) FacturaRepository { return &facturaRepo{db: db} }

func (r *facturaRepo) Create(ctx context.Context, f *model.FacturaElectronica) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *facturaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.FacturaElectronica, error) {
	var f model.FacturaElectronica
	err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error
	return &f, err
}

func (r *facturaRepo) FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.FacturaElectronica, error) {
	var f model.FacturaElectronica
	err := r.db.WithContext(ctx).Where("venta_id = ?", ventaID).First(&f).Error
	return &f, err
}

func (r *facturaRepo) Update(ctx context.Context, f *model.FacturaElectronica) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *facturaRepo) ListParaReintento(ctx context.Context, ahora time.Time, limit int) ([]model.FacturaElectronica, error) {
	var facturas []model.FacturaElectronica
	err := r.db.WithContext(ctx).
		Where("estado_dgii IN ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			[]string{model.FiscalContingencia, "EN_PROCESO"}, ahora).
		Order("next_retry_at").
		Limit(limit).
		Find(&facturas).Error
	return facturas, err
}

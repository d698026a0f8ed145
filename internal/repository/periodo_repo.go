package repository

import (
	"context"
	"time"

	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PeriodoRepository interface {
	Create(ctx context.Context, p *model.PeriodoContable) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PeriodoContable, error)
	// FindAbiertoPorFecha resolves the open period covering fecha, if any.
	FindAbiertoPorFecha(ctx context.Context, negocioID uuid.UUID, fecha time.Time) (*model.PeriodoContable, error)
	ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]model.PeriodoContable, error)
	// CountBorradores counts draft entries still attached to the period.
	// A close is refused while this is non-zero.
	CountBorradores(ctx context.Context, periodoID uuid.UUID) (int64, error)
	CerrarTx(tx *gorm.DB, periodoID uuid.UUID) error
}

type periodoRepo struct{ db *gorm.DB }

func NewPeriodoRepository(db *gorm.DB) PeriodoRepository { return &periodoRepo{db: db} }

func (r *periodoRepo) Create(ctx context.Context, p *model.PeriodoContable) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *periodoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PeriodoContable, error) {
	var p model.PeriodoContable
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *periodoRepo) FindAbiertoPorFecha(ctx context.Context, negocioID uuid.UUID, fecha time.Time) (*model.PeriodoContable, error) {
	var p model.PeriodoContable
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND estado = ? AND fecha_inicio <= ? AND fecha_fin >= ?",
			negocioID, model.PeriodoAbierto, fecha, fecha).
		First(&p).Error
	return &p, err
}

func (r *periodoRepo) ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]model.PeriodoContable, error) {
	var periodos []model.PeriodoContable
	err := r.db.WithContext(ctx).
		Where("negocio_id = ?", negocioID).
		Order("fecha_inicio DESC").
		Find(&periodos).Error
	return periodos, err
}

func (r *periodoRepo) CountBorradores(ctx context.Context, periodoID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.AsientoContable{}).
		Where("periodo_id = ? AND estado = ?", periodoID, model.AsientoBorrador).
		Count(&n).Error
	return n, err
}

func (r *periodoRepo) CerrarTx(tx *gorm.DB, periodoID uuid.UUID) error {
	return tx.Model(&model.PeriodoContable{}).
		Where("id = ? AND estado = ?", periodoID, model.PeriodoAbierto).
		Updates(map[string]interface{}{
			"estado":       model.PeriodoCerrado,
			"fecha_cierre": time.Now(),
		}).Error
}

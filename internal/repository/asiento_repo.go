package repository

import (
	"context"
	"fmt"

	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AsientoRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, a *model.AsientoContable) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AsientoContable, error)
	ListByPeriodo(ctx context.Context, periodoID uuid.UUID) ([]model.AsientoContable, error)
	NextNumeroTx(ctx context.Context, tx *gorm.DB, negocioID uuid.UUID) (string, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type asientoRepo struct{ db *gorm.DB }

func NewAsientoRepository(db *gorm.DB) AsientoRepository { return &asientoRepo{db: db} }

func (r *asientoRepo) DB() *gorm.DB { return r.db }

func (r *asientoRepo) CreateTx(ctx context.Context, tx *gorm.DB, a *model.AsientoContable) error {
	// Cuenta on each line is a read-only association, never written from here
	return tx.WithContext(ctx).Omit("Lineas.Cuenta").Create(a).Error
}

func (r *asientoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.AsientoContable, error) {
	var a model.AsientoContable
	err := r.db.WithContext(ctx).Preload("Lineas.Cuenta").First(&a, "id = ?", id).Error
	return &a, err
}

func (r *asientoRepo) ListByPeriodo(ctx context.Context, periodoID uuid.UUID) ([]model.AsientoContable, error) {
	var asientos []model.AsientoContable
	err := r.db.WithContext(ctx).
		Where("periodo_id = ?", periodoID).
		Preload("Lineas").
		Order("fecha, numero").
		Find(&asientos).Error
	return asientos, err
}

func (r *asientoRepo) NextNumeroTx(ctx context.Context, tx *gorm.DB, negocioID uuid.UUID) (string, error) {
	// Uses a PostgreSQL sequence for atomic entry number generation
	var num int
	err := tx.WithContext(ctx).Raw("SELECT nextval('asientos_numero_seq')").Scan(&num).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("AST-%06d", num), nil
}

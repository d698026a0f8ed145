package repository

import (
	"context"

	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NegocioRepository interface {
	Create(ctx context.Context, n *model.Negocio) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Negocio, error)
	FindByRNC(ctx context.Context, rnc string) (*model.Negocio, error)
	Update(ctx context.Context, n *model.Negocio) error
}

type negocioRepo struct{ db *gorm.DB }

func NewNegocioRepository(db *gorm.DB) NegocioRepository { return &negocioRepo{db: db} }

func (r *negocioRepo) Create(ctx context.Context, n *model.Negocio) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *negocioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Negocio, error) {
	var n model.Negocio
	err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error
	return &n, err
}

func (r *negocioRepo) FindByRNC(ctx context.Context, rnc string) (*model.Negocio, error) {
	var n model.Negocio
	err := r.db.WithContext(ctx).Where("rnc = ?", rnc).First(&n).Error
	return &n, err
}

func (r *negocioRepo) Update(ctx context.Context, n *model.Negocio) error {
	return r.db.WithContext(ctx).Save(n).Error
}

package repository

import (
	"context"

	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SecuenciaRepository interface {
	Create(ctx context.Context, s *model.SecuenciaNCF) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SecuenciaNCF, error)
	// FindActivaForUpdate loads the active sequence row with a FOR UPDATE lock.
	// Must run inside a transaction; the lock serializes concurrent allocations.
	FindActivaForUpdate(ctx context.Context, tx *gorm.DB, negocioID uuid.UUID, tipoComprobante string) (*model.SecuenciaNCF, error)
	SaveTx(ctx context.Context, tx *gorm.DB, s *model.SecuenciaNCF) error
	ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]model.SecuenciaNCF, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type secuenciaRepo struct{ db *gorm.DB }

func NewSecuenciaRepository(db *gorm.DB) SecuenciaRepository { return &secuenciaRepo{db: db} }

func (r *secuenciaRepo) DB() *gorm.DB { return r.db }

func (r *secuenciaRepo) Create(ctx context.Context, s *model.SecuenciaNCF) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *secuenciaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SecuenciaNCF, error) {
	var s model.SecuenciaNCF
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *secuenciaRepo) FindActivaForUpdate(ctx context.Context, tx *gorm.DB, negocioID uuid.UUID, tipoComprobante string) (*model.SecuenciaNCF, error) {
	var s model.SecuenciaNCF
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("negocio_id = ? AND tipo_comprobante = ? AND activa = true", negocioID, tipoComprobante).
		First(&s).Error
	return &s, err
}

func (r *secuenciaRepo) SaveTx(ctx context.Context, tx *gorm.DB, s *model.SecuenciaNCF) error {
	return tx.WithContext(ctx).Save(s).Error
}

func (r *secuenciaRepo) ListByNegocio(ctx context.Context, negocioID uuid.UUID) ([]model.SecuenciaNCF, error) {
	var secuencias []model.SecuenciaNCF
	err := r.db.WithContext(ctx).
		Where("negocio_id = ?", negocioID).
		Order("tipo_comprobante").
		Find(&secuencias).Error
	return secuencias, err
}

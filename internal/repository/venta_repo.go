package repository

import (
	"context"
	"fmt"
	"time"

	"fiscalpos/internal/dto"
	"fiscalpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VentaRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	FindByNCF(ctx context.Context, negocioID uuid.UUID, ncf string) (*model.Venta, error)
	UpdateEstadoTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado string) error
	UpdateEstadoFiscal(ctx context.Context, id uuid.UUID, estadoFiscal string) error
	// AsignarNCF stamps the allocated e-NCF and its sequence expiry on the sale.
	AsignarNCF(ctx context.Context, id uuid.UUID, ncf string, fechaVencimiento time.Time) error
	NextNumeroTx(ctx context.Context, tx *gorm.DB) (string, error)
	List(ctx context.Context, negocioID uuid.UUID, filter dto.VentaFilter) ([]model.Venta, int64, error)
	// ListPorPeriodo returns COMPLETADA and ANULADA sales inside [desde, hasta)
	// for the fiscal reports. Voided sales stay in the report with estado ANULADA.
	ListPorPeriodo(ctx context.Context, negocioID uuid.UUID, desde, hasta time.Time) ([]model.Venta, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) CreateTx(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return tx.WithContext(ctx).Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Detalles").Preload("VentaReferencia").First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) FindByNCF(ctx context.Context, negocioID uuid.UUID, ncf string) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND ncf = ?", negocioID, ncf).
		Preload("Detalles").
		First(&v).Error
	return &v, err
}

func (r *ventaRepo) UpdateEstadoTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado string) error {
	return tx.WithContext(ctx).Model(&model.Venta{}).Where("id = ?", id).Update("estado", estado).Error
}

func (r *ventaRepo) UpdateEstadoFiscal(ctx context.Context, id uuid.UUID, estadoFiscal string) error {
	return r.db.WithContext(ctx).Model(&model.Venta{}).Where("id = ?", id).Update("estado_fiscal", estadoFiscal).Error
}

func (r *ventaRepo) AsignarNCF(ctx context.Context, id uuid.UUID, ncf string, fechaVencimiento time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ncf":               ncf,
			"fecha_vencimiento": fechaVencimiento,
		}).Error
}

func (r *ventaRepo) NextNumeroTx(ctx context.Context, tx *gorm.DB) (string, error) {
	// Uses a PostgreSQL sequence for atomic sale number generation
	var num int
	err := tx.WithContext(ctx).Raw("SELECT nextval('ventas_numero_seq')").Scan(&num).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("V-%08d", num), nil
}

func (r *ventaRepo) List(ctx context.Context, negocioID uuid.UUID, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{}).Where("negocio_id = ?", negocioID)

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.EstadoFiscal != "" {
		q = q.Where("estado_fiscal = ?", filter.EstadoFiscal)
	}
	if filter.Fecha != "" {
		q = q.Where("DATE(fecha) = ?", filter.Fecha)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Detalles").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}

func (r *ventaRepo) ListPorPeriodo(ctx context.Context, negocioID uuid.UUID, desde, hasta time.Time) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.db.WithContext(ctx).
		Where("negocio_id = ? AND fecha >= ? AND fecha < ?", negocioID, desde, hasta).
		Where("estado IN ?", []string{model.VentaCompletada, model.VentaAnulada}).
		Preload("Detalles").
		Order("fecha, numero").
		Find(&ventas).Error
	return ventas, err
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fiscalpos/internal/model"
	"fiscalpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	// ErrSecuenciaNoDisponible: no active sequence for the document type.
	ErrSecuenciaNoDisponible = errors.New("no hay secuencia NCF activa para el tipo de comprobante")
	// ErrSecuenciaVencida: the assigned range expired; no number is consumed.
	ErrSecuenciaVencida = errors.New("la secuencia NCF está vencida")
	// ErrSecuenciaAgotada: the range ran out; the row is deactivated.
	ErrSecuenciaAgotada = errors.New("la secuencia NCF está agotada")
)

type SecuenciaService interface {
	// SiguienteNCF allocates the next e-NCF for the document type.
	// Gap-free under concurrency: a number is only consumed when the
	// transaction commits.
	SiguienteNCF(ctx context.Context, negocioID uuid.UUID, tipoComprobante string) (*model.NCFAsignado, error)
	CrearSecuencia(ctx context.Context, s *model.SecuenciaNCF) error
	ListSecuencias(ctx context.Context, negocioID uuid.UUID) ([]model.SecuenciaNCF, error)
}

type secuenciaService struct {
	repo repository.SecuenciaRepository

	// Per-(negocio, tipo) mutexes serialize allocations in-process before
	// the DB row lock does it across processes. Nothing slow ever runs
	// while one is held.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	ahora func() time.Time
}

func NewSecuenciaService(repo repository.SecuenciaRepository) SecuenciaService {
	return &secuenciaService{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
		ahora: time.Now,
	}
}

func (s *secuenciaService) lockFor(negocioID uuid.UUID, tipo string) *sync.Mutex {
	key := negocioID.String() + ":" + tipo
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

func (s *secuenciaService) SiguienteNCF(ctx context.Context, negocioID uuid.UUID, tipoComprobante string) (*model.NCFAsignado, error) {
	if _, ok := model.TipoECFMap[tipoComprobante]; !ok {
		return nil, fmt.Errorf("tipo de comprobante no soportado: %s", tipoComprobante)
	}

	l := s.lockFor(negocioID, tipoComprobante)
	l.Lock()
	defer l.Unlock()

	var asignado *model.NCFAsignado
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sec, err := s.repo.FindActivaForUpdate(ctx, tx, negocioID, tipoComprobante)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || tx == nil {
				return ErrSecuenciaNoDisponible
			}
			return err
		}

		if sec.Vencida(s.ahora()) {
			return fmt.Errorf("%w: venció el %s", ErrSecuenciaVencida,
				sec.FechaVencimiento.Format("2006-01-02"))
		}
		if sec.Agotada() {
			sec.Activa = false
			if err := s.repo.SaveTx(ctx, tx, sec); err != nil {
				return err
			}
			return fmt.Errorf("%w: rango %d-%d consumido", ErrSecuenciaAgotada,
				sec.NumeroDesde, sec.NumeroHasta)
		}

		numero := sec.NumeroActual
		sec.NumeroActual++
		if err := s.repo.SaveTx(ctx, tx, sec); err != nil {
			return err
		}

		asignado = &model.NCFAsignado{
			NCF:              sec.FormatearNCF(numero),
			TipoComprobante:  tipoComprobante,
			FechaVencimiento: sec.FechaVencimiento,
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Debug().Str("ncf", asignado.NCF).Str("tipo", tipoComprobante).Msg("NCF asignado")
	return asignado, nil
}

func (s *secuenciaService) CrearSecuencia(ctx context.Context, sec *model.SecuenciaNCF) error {
	if sec.NumeroHasta < sec.NumeroDesde {
		return fmt.Errorf("rango inválido: hasta (%d) < desde (%d)", sec.NumeroHasta, sec.NumeroDesde)
	}
	if sec.NumeroActual == 0 {
		sec.NumeroActual = sec.NumeroDesde
	}
	return s.repo.Create(ctx, sec)
}

func (s *secuenciaService) ListSecuencias(ctx context.Context, negocioID uuid.UUID) ([]model.SecuenciaNCF, error) {
	return s.repo.ListByNegocio(ctx, negocioID)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// PhaseRepository persiste as fases; a máquina de estados usa ListByEvent com lock para serializar avanços.
type PhaseRepository struct {
	db *gorm.DB
}

func NewPhaseRepository(db *gorm.DB) *PhaseRepository {
	return &PhaseRepository{db: db}
}

func (r *PhaseRepository) Create(ctx context.Context, p domain.Phase) error {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		if duplicated(err) {
			return domain.Invalid("ja existe fase com ordem %d neste evento", p.Order)
		}
		return fmt.Errorf("gorm fase: inserir: %w", err)
	}
	return nil
}

func (r *PhaseRepository) FindByID(ctx context.Context, id domain.PhaseID, lock bool) (domain.Phase, error) {
	q := r.db.WithContext(ctx)
	if lock {
		// FOR SHARE conflita com o FOR UPDATE de ListByEvent: a nota espera o avanço terminar.
		q = q.Clauses(clause.Locking{Strength: "SHARE"})
	}

	var p domain.Phase
	if err := q.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Phase{}, domain.ErrNotFound
		}
		return domain.Phase{}, fmt.Errorf("gorm fase: buscar id: %w", err)
	}
	return p, nil
}

func (r *PhaseRepository) ListByEvent(ctx context.Context, eventID domain.EventID, lock bool) ([]domain.Phase, error) {
	q := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order(orderAsc)
	if lock {
		// SELECT ... FOR UPDATE; o driver SQLite descarta a cláusula.
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var phases []domain.Phase
	if err := q.Find(&phases).Error; err != nil {
		return nil, fmt.Errorf("gorm fase: listar por evento: %w", err)
	}
	return phases, nil
}

func (r *PhaseRepository) UpdateStatus(ctx context.Context, id domain.PhaseID, status domain.PhaseStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if duplicated(res.Error) {
			// idx_phases_single_active recusou uma segunda fase ativa.
			return domain.Inconsistent("banco recusou segunda fase ativa ao atualizar fase %s", id)
		}
		return fmt.Errorf("gorm fase: atualizar status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PhaseRepository) Delete(ctx context.Context, id domain.PhaseID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Phase{})
	if res.Error != nil {
		return fmt.Errorf("gorm fase: remover: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.PhaseRepository = (*PhaseRepository)(nil)

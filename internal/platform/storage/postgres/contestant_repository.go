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

// ContestantRepository persiste candidatas de um evento.
type ContestantRepository struct {
	db *gorm.DB
}

func NewContestantRepository(db *gorm.DB) *ContestantRepository {
	return &ContestantRepository{db: db}
}

func (r *ContestantRepository) Create(ctx context.Context, c domain.Contestant) error {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		if duplicated(err) {
			return domain.Invalid("numero %d ja usado neste evento", c.ContestantNumber)
		}
		return fmt.Errorf("gorm candidata: inserir: %w", err)
	}
	return nil
}

func (r *ContestantRepository) FindByID(ctx context.Context, id domain.ContestantID) (domain.Contestant, error) {
	var c domain.Contestant
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contestant{}, domain.ErrNotFound
		}
		return domain.Contestant{}, fmt.Errorf("gorm candidata: buscar id: %w", err)
	}
	return c, nil
}

func (r *ContestantRepository) ListByEvent(ctx context.Context, eventID domain.EventID) ([]domain.Contestant, error) {
	var contestants []domain.Contestant
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("contestant_number ASC").
		Find(&contestants).Error; err != nil {
		return nil, fmt.Errorf("gorm candidata: listar por evento: %w", err)
	}
	return contestants, nil
}

func (r *ContestantRepository) ListByIDs(ctx context.Context, ids []domain.ContestantID) ([]domain.Contestant, error) {
	if len(ids) == 0 {
		return []domain.Contestant{}, nil
	}
	var contestants []domain.Contestant
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("contestant_number ASC").
		Find(&contestants).Error; err != nil {
		return nil, fmt.Errorf("gorm candidata: listar por ids: %w", err)
	}
	return contestants, nil
}

func (r *ContestantRepository) UpdateStatus(ctx context.Context, ids []domain.ContestantID, status domain.ContestantStatus) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&domain.Contestant{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return fmt.Errorf("gorm candidata: atualizar status: %w", err)
	}
	return nil
}

// ParticipationRepository persiste a elegibilidade (ContestantPhase) de cada candidata por fase.
type ParticipationRepository struct {
	db *gorm.DB
}

func NewParticipationRepository(db *gorm.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

func (r *ParticipationRepository) Upsert(ctx context.Context, cps []domain.ContestantPhase) error {
	if len(cps) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range cps {
		if cps[i].CreatedAt.IsZero() {
			cps[i].CreatedAt = now
		}
		cps[i].UpdatedAt = now
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contestant_id"}, {Name: "phase_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "rank", "advanced_from_phase", "updated_at"}),
		}).
		Create(&cps).Error; err != nil {
		return fmt.Errorf("gorm participacao: upsert: %w", err)
	}
	return nil
}

func (r *ParticipationRepository) Find(ctx context.Context, contestantID domain.ContestantID, phaseID domain.PhaseID) (domain.ContestantPhase, error) {
	var cp domain.ContestantPhase
	if err := r.db.WithContext(ctx).
		First(&cp, "contestant_id = ? AND phase_id = ?", contestantID, phaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ContestantPhase{}, domain.ErrNotFound
		}
		return domain.ContestantPhase{}, fmt.Errorf("gorm participacao: buscar: %w", err)
	}
	return cp, nil
}

// ListByPhase filtra pelo status informado; status vazio devolve todas as linhas da fase.
func (r *ParticipationRepository) ListByPhase(ctx context.Context, phaseID domain.PhaseID, status domain.ParticipationStatus) ([]domain.ContestantPhase, error) {
	q := r.db.WithContext(ctx).Where("phase_id = ?", phaseID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var cps []domain.ContestantPhase
	if err := q.Order("contestant_id ASC").Find(&cps).Error; err != nil {
		return nil, fmt.Errorf("gorm participacao: listar por fase: %w", err)
	}
	return cps, nil
}

func (r *ParticipationRepository) UpdateStatus(ctx context.Context, phaseID domain.PhaseID, contestantIDs []domain.ContestantID, status domain.ParticipationStatus) error {
	if len(contestantIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&domain.ContestantPhase{}).
		Where("phase_id = ? AND contestant_id IN ?", phaseID, contestantIDs).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return fmt.Errorf("gorm participacao: atualizar status: %w", err)
	}
	return nil
}

func (r *ParticipationRepository) DeleteByPhase(ctx context.Context, phaseID domain.PhaseID) error {
	if err := r.db.WithContext(ctx).Where("phase_id = ?", phaseID).Delete(&domain.ContestantPhase{}).Error; err != nil {
		return fmt.Errorf("gorm participacao: remover por fase: %w", err)
	}
	return nil
}

var (
	_ domain.ContestantRepository    = (*ContestantRepository)(nil)
	_ domain.ParticipationRepository = (*ParticipationRepository)(nil)
)

package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// ScoreRepository guarda as notas dos jurados; a tupla (candidata, jurado, critério, fase) é única.
type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func (r *ScoreRepository) Upsert(ctx context.Context, s domain.Score) (domain.Score, error) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}

	db := r.db.WithContext(ctx)
	// Reenvio da mesma tupla atualiza a linha existente: última escrita vence.
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "contestant_id"},
			{Name: "judge_id"},
			{Name: "criteria_id"},
			{Name: "phase_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"score", "show_id", "event_id", "updated_at"}),
	}).Create(&s).Error; err != nil {
		return domain.Score{}, fmt.Errorf("gorm nota: upsert: %w", err)
	}

	var saved domain.Score
	if err := db.First(&saved,
		"contestant_id = ? AND judge_id = ? AND criteria_id = ? AND phase_id = ?",
		s.ContestantID, s.JudgeID, s.CriteriaID, s.PhaseID,
	).Error; err != nil {
		return domain.Score{}, fmt.Errorf("gorm nota: reler apos upsert: %w", err)
	}
	return saved, nil
}

func (r *ScoreRepository) ListByPhase(ctx context.Context, phaseID domain.PhaseID) ([]domain.Score, error) {
	var scores []domain.Score
	if err := r.db.WithContext(ctx).
		Where("phase_id = ?", phaseID).
		Order("id ASC").
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("gorm nota: listar por fase: %w", err)
	}
	return scores, nil
}

func (r *ScoreRepository) ListByJudge(ctx context.Context, phaseID domain.PhaseID, judgeID domain.JudgeID) ([]domain.Score, error) {
	var scores []domain.Score
	if err := r.db.WithContext(ctx).
		Where("phase_id = ? AND judge_id = ?", phaseID, judgeID).
		Order("id ASC").
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("gorm nota: listar por jurado: %w", err)
	}
	return scores, nil
}

func (r *ScoreRepository) DeleteByPhase(ctx context.Context, eventID domain.EventID, phaseID domain.PhaseID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND phase_id = ?", eventID, phaseID).
		Delete(&domain.Score{})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm nota: remover por fase: %w", res.Error)
	}
	return res.RowsAffected, nil
}

var _ domain.ScoreRepository = (*ScoreRepository)(nil)

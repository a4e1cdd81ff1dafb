package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// EventRepository persiste eventos e remove em cascata tudo que depende deles.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e domain.Event) error {
	if err := r.db.WithContext(ctx).Omit("Shows", "Phases", "Contestants", "Judges").Create(&e).Error; err != nil {
		return fmt.Errorf("gorm evento: inserir: %w", err)
	}
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id domain.EventID) (domain.Event, error) {
	var e domain.Event
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("gorm evento: buscar id: %w", err)
	}
	return e, nil
}

func (r *EventRepository) UpdateState(ctx context.Context, id domain.EventID, status domain.EventStatus, currentPhaseLabel string) error {
	res := r.db.WithContext(ctx).Model(&domain.Event{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              status,
			"current_phase_label": currentPhaseLabel,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("gorm evento: atualizar estado: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete apaga o evento e seus dependentes; deve rodar dentro de uma transação.
func (r *EventRepository) Delete(ctx context.Context, id domain.EventID) error {
	db := r.db.WithContext(ctx)
	phaseIDs := db.Model(&domain.Phase{}).Select("id").Where("event_id = ?", id)
	showIDs := db.Model(&domain.Show{}).Select("id").Where("event_id = ?", id)

	steps := []struct {
		name string
		run  func() error
	}{
		{"notas", func() error { return db.Where("event_id = ?", id).Delete(&domain.Score{}).Error }},
		{"participacoes", func() error { return db.Where("phase_id IN (?)", phaseIDs).Delete(&domain.ContestantPhase{}).Error }},
		{"criterios", func() error { return db.Where("show_id IN (?)", showIDs).Delete(&domain.Criteria{}).Error }},
		{"fases", func() error { return db.Where("event_id = ?", id).Delete(&domain.Phase{}).Error }},
		{"shows", func() error { return db.Where("event_id = ?", id).Delete(&domain.Show{}).Error }},
		{"candidatas", func() error { return db.Where("event_id = ?", id).Delete(&domain.Contestant{}).Error }},
		{"jurados", func() error { return db.Where("event_id = ?", id).Delete(&domain.Judge{}).Error }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("gorm evento: remover %s: %w", step.name, err)
		}
	}

	res := db.Where("id = ?", id).Delete(&domain.Event{})
	if res.Error != nil {
		return fmt.Errorf("gorm evento: remover: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.EventRepository = (*EventRepository)(nil)

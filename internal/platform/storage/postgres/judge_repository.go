package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

type JudgeRepository struct {
	db *gorm.DB
}

func NewJudgeRepository(db *gorm.DB) *JudgeRepository {
	return &JudgeRepository{db: db}
}

func (r *JudgeRepository) Create(ctx context.Context, j domain.Judge) error {
	if err := r.db.WithContext(ctx).Create(&j).Error; err != nil {
		if duplicated(err) {
			return domain.Invalid("usuario %s ja e jurado deste evento", j.UserID)
		}
		return fmt.Errorf("gorm jurado: inserir: %w", err)
	}
	return nil
}

func (r *JudgeRepository) FindByID(ctx context.Context, id domain.JudgeID) (domain.Judge, error) {
	var j domain.Judge
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Judge{}, domain.ErrNotFound
		}
		return domain.Judge{}, fmt.Errorf("gorm jurado: buscar id: %w", err)
	}
	return j, nil
}

var _ domain.JudgeRepository = (*JudgeRepository)(nil)

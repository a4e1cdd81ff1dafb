package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

var orderAsc = clause.OrderByColumn{Column: clause.Column{Name: "order"}}

// ShowRepository persiste as categorias julgadas de um evento.
type ShowRepository struct {
	db *gorm.DB
}

func NewShowRepository(db *gorm.DB) *ShowRepository {
	return &ShowRepository{db: db}
}

func (r *ShowRepository) Create(ctx context.Context, s domain.Show) error {
	if err := r.db.WithContext(ctx).Omit("Criteria").Create(&s).Error; err != nil {
		return fmt.Errorf("gorm show: inserir: %w", err)
	}
	return nil
}

func (r *ShowRepository) FindByID(ctx context.Context, id domain.ShowID) (domain.Show, error) {
	var s domain.Show
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Show{}, domain.ErrNotFound
		}
		return domain.Show{}, fmt.Errorf("gorm show: buscar id: %w", err)
	}
	return s, nil
}

func (r *ShowRepository) ListByIDs(ctx context.Context, ids []domain.ShowID) ([]domain.Show, error) {
	if len(ids) == 0 {
		return []domain.Show{}, nil
	}
	var shows []domain.Show
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order(orderAsc).
		Find(&shows).Error; err != nil {
		return nil, fmt.Errorf("gorm show: listar: %w", err)
	}
	return shows, nil
}

// CriteriaRepository persiste os critérios de cada show.
type CriteriaRepository struct {
	db *gorm.DB
}

func NewCriteriaRepository(db *gorm.DB) *CriteriaRepository {
	return &CriteriaRepository{db: db}
}

func (r *CriteriaRepository) Create(ctx context.Context, c domain.Criteria) error {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return fmt.Errorf("gorm criterio: inserir: %w", err)
	}
	return nil
}

func (r *CriteriaRepository) FindByID(ctx context.Context, id domain.CriteriaID) (domain.Criteria, error) {
	var c domain.Criteria
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Criteria{}, domain.ErrNotFound
		}
		return domain.Criteria{}, fmt.Errorf("gorm criterio: buscar id: %w", err)
	}
	return c, nil
}

func (r *CriteriaRepository) ListByShows(ctx context.Context, showIDs []domain.ShowID) ([]domain.Criteria, error) {
	if len(showIDs) == 0 {
		return []domain.Criteria{}, nil
	}
	var criteria []domain.Criteria
	if err := r.db.WithContext(ctx).
		// ULID cresce com o tempo, então ordenar por id preserva a ordem de cadastro.
		Where("show_id IN ?", showIDs).
		Order("id ASC").
		Find(&criteria).Error; err != nil {
		return nil, fmt.Errorf("gorm criterio: listar: %w", err)
	}
	return criteria, nil
}

var (
	_ domain.ShowRepository     = (*ShowRepository)(nil)
	_ domain.CriteriaRepository = (*CriteriaRepository)(nil)
)

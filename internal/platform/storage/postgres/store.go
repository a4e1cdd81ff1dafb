package postgres

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// Store abre unidades de trabalho GORM e entrega os repositórios presos à mesma transação.
type Store struct {
	db           *gorm.DB
	snapshotOpts *sql.TxOptions
}

type StoreOption func(*Store)

// WithSnapshotIsolation faz as leituras de ranking rodarem em REPEATABLE READ somente leitura.
// SQLite não aceita níveis de isolamento, por isso a opção fica desligada por padrão.
func WithSnapshotIsolation() StoreOption {
	return func(s *Store) {
		s.snapshotOpts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
}

func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Transaction(ctx context.Context, fn func(tx domain.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}

func (s *Store) Snapshot(ctx context.Context, fn func(tx domain.Tx) error) error {
	run := func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	}
	if s.snapshotOpts == nil {
		return s.db.WithContext(ctx).Transaction(run)
	}
	return s.db.WithContext(ctx).Transaction(run, s.snapshotOpts)
}

// DB expõe a conexão para health check e migrations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

type repositories struct {
	events         *EventRepository
	shows          *ShowRepository
	criteria       *CriteriaRepository
	phases         *PhaseRepository
	contestants    *ContestantRepository
	participations *ParticipationRepository
	judges         *JudgeRepository
	scores         *ScoreRepository
}

func newRepositories(db *gorm.DB) *repositories {
	return &repositories{
		events:         NewEventRepository(db),
		shows:          NewShowRepository(db),
		criteria:       NewCriteriaRepository(db),
		phases:         NewPhaseRepository(db),
		contestants:    NewContestantRepository(db),
		participations: NewParticipationRepository(db),
		judges:         NewJudgeRepository(db),
		scores:         NewScoreRepository(db),
	}
}

func (r *repositories) Events() domain.EventRepository                 { return r.events }
func (r *repositories) Shows() domain.ShowRepository                   { return r.shows }
func (r *repositories) Criteria() domain.CriteriaRepository            { return r.criteria }
func (r *repositories) Phases() domain.PhaseRepository                 { return r.phases }
func (r *repositories) Contestants() domain.ContestantRepository       { return r.contestants }
func (r *repositories) Participations() domain.ParticipationRepository { return r.participations }
func (r *repositories) Judges() domain.JudgeRepository                 { return r.judges }
func (r *repositories) Scores() domain.ScoreRepository                 { return r.scores }

var (
	_ domain.Store = (*Store)(nil)
	_ domain.Tx    = (*repositories)(nil)
)

// Pacote storetest monta um Store sobre SQLite em memória com o schema real, para testes de serviço e repositório.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/ids"
	"github.com/marcelojr/pageant-scoring/internal/platform/migrations"
	"github.com/marcelojr/pageant-scoring/internal/platform/storage/postgres"
)

// New abre um banco isolado por teste. Uma única conexão mantém o ":memory:" visível dentro e fora das transações.
func New(t *testing.T) (*postgres.Store, *gorm.DB) {
	t.Helper()

	db, err := postgres.OpenDialector(context.Background(), sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migrations.Run(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return postgres.NewStore(db), db
}

// Fixture cria rapidamente o cenário mínimo de um concurso.
type Fixture struct {
	t   *testing.T
	db  *gorm.DB
	gen *ids.Generator
}

func NewFixture(t *testing.T, db *gorm.DB) *Fixture {
	return &Fixture{t: t, db: db, gen: ids.NewGenerator()}
}

func (f *Fixture) create(v any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(v).Error)
}

func (f *Fixture) Event(name string) domain.Event {
	e := domain.Event{ID: ids.Next[domain.EventID](f.gen), Name: name, Status: domain.EventUpcoming}
	f.create(&e)
	return e
}

// ShowWithPhase cria o show e a fase 1:1 correspondente, como o catálogo faz.
func (f *Fixture) ShowWithPhase(eventID domain.EventID, name string, weight float64, order int, status domain.PhaseStatus, reset bool) (domain.Show, domain.Phase) {
	s := domain.Show{ID: ids.Next[domain.ShowID](f.gen), EventID: eventID, Name: name, Weight: weight, Order: order}
	f.create(&s)
	p := domain.Phase{
		ID:          ids.Next[domain.PhaseID](f.gen),
		EventID:     eventID,
		ShowID:      s.ID,
		Name:        name,
		Order:       order,
		Status:      status,
		ResetScores: reset,
	}
	f.create(&p)
	return s, p
}

func (f *Fixture) Criteria(showID domain.ShowID, name string, weight, maxScore float64) domain.Criteria {
	c := domain.Criteria{ID: ids.Next[domain.CriteriaID](f.gen), ShowID: showID, Name: name, Weight: weight, MaxScore: maxScore}
	f.create(&c)
	return c
}

func (f *Fixture) Contestant(eventID domain.EventID, number int) domain.Contestant {
	c := domain.Contestant{
		ID:               ids.Next[domain.ContestantID](f.gen),
		EventID:          eventID,
		ContestantNumber: number,
		Status:           domain.ContestantRegistered,
	}
	f.create(&c)
	return c
}

// Enroll torna as candidatas elegíveis (status active) na fase.
func (f *Fixture) Enroll(phaseID domain.PhaseID, contestants ...domain.Contestant) {
	for _, c := range contestants {
		f.create(&domain.ContestantPhase{ContestantID: c.ID, PhaseID: phaseID, Status: domain.ParticipationActive})
	}
}

func (f *Fixture) Judge(eventID domain.EventID, userID string) domain.Judge {
	j := domain.Judge{ID: ids.Next[domain.JudgeID](f.gen), EventID: eventID, UserID: userID}
	f.create(&j)
	return j
}

// Score grava uma nota direto no banco, sem passar pelas validações do serviço.
func (f *Fixture) Score(eventID domain.EventID, phaseID domain.PhaseID, c domain.Criteria, contestantID domain.ContestantID, judgeID domain.JudgeID, value float64) domain.Score {
	s := domain.Score{
		ID:           ids.Next[domain.ScoreID](f.gen),
		EventID:      eventID,
		ContestantID: contestantID,
		JudgeID:      judgeID,
		ShowID:       c.ShowID,
		CriteriaID:   c.ID,
		PhaseID:      phaseID,
		Value:        value,
	}
	f.create(&s)
	return s
}

func (f *Fixture) Reload(v any, id string) {
	f.t.Helper()
	require.NoError(f.t, f.db.First(v, "id = ?", id).Error)
}

func (f *Fixture) Participation(contestantID domain.ContestantID, phaseID domain.PhaseID) (domain.ContestantPhase, bool) {
	var cp domain.ContestantPhase
	err := f.db.Where("contestant_id = ? AND phase_id = ?", contestantID, phaseID).First(&cp).Error
	if err != nil {
		return domain.ContestantPhase{}, false
	}
	return cp, true
}

func (f *Fixture) CountScores(phaseID domain.PhaseID) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&domain.Score{}).Where("phase_id = ?", phaseID).Count(&n).Error)
	return n
}

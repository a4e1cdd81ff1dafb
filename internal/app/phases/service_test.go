package phases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/storage/storetest"
)

type cenario struct {
	db      *gorm.DB
	fx      *storetest.Fixture
	service *Service
	event   domain.Event
}

func novoCenario(t *testing.T) *cenario {
	t.Helper()
	store, db := storetest.New(t)
	fx := storetest.NewFixture(t, db)
	return &cenario{
		db:      db,
		fx:      fx,
		service: NewService(store, nil),
		event:   fx.Event("Miss Brasil"),
	}
}

func (sc *cenario) status(t *testing.T, p domain.Phase) domain.PhaseStatus {
	t.Helper()
	var got domain.Phase
	sc.fx.Reload(&got, string(p.ID))
	return got.Status
}

func (sc *cenario) evento(t *testing.T) domain.Event {
	t.Helper()
	var got domain.Event
	sc.fx.Reload(&got, string(sc.event.ID))
	return got
}

func (sc *cenario) ativas(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, sc.db.Model(&domain.Phase{}).
		Where("event_id = ? AND status = ?", sc.event.ID, domain.PhaseActive).
		Count(&n).Error)
	return n
}

func TestService_AdvancePhase_CenarioC(t *testing.T) {
	sc := novoCenario(t)
	_, p1 := sc.fx.ShowWithPhase(sc.event.ID, "Entrevista", 50, 1, domain.PhaseActive, false)
	show2, p2 := sc.fx.ShowWithPhase(sc.event.ID, "Desfile", 50, 2, domain.PhasePending, true)
	criteria := sc.fx.Criteria(show2.ID, "Postura", 100, 10)
	judge := sc.fx.Judge(sc.event.ID, "jurado-1")
	for i := 1; i <= 3; i++ {
		c := sc.fx.Contestant(sc.event.ID, i)
		sc.fx.Score(sc.event.ID, p2.ID, criteria, c.ID, judge.ID, 5)
	}
	require.Equal(t, int64(3), sc.fx.CountScores(p2.ID))

	tr, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, sc.status(t, p1))
	assert.Equal(t, domain.PhaseActive, sc.status(t, p2))
	assert.Zero(t, sc.fx.CountScores(p2.ID))
	assert.Equal(t, "Desfile", sc.evento(t).CurrentPhaseLabel)
	assert.Equal(t, int64(3), tr.ScoresCleared)
	require.NotNil(t, tr.PreviousPhase)
	require.NotNil(t, tr.NewPhase)
	assert.Equal(t, p1.ID, tr.PreviousPhase.ID)
	assert.Equal(t, p2.ID, tr.NewPhase.ID)
	assert.False(t, tr.Finished)
	assert.Equal(t, int64(1), sc.ativas(t))
}

func TestService_AdvancePhase_QuandoResetDesligado_DeveManterNotas(t *testing.T) {
	sc := novoCenario(t)
	sc.fx.ShowWithPhase(sc.event.ID, "Entrevista", 50, 1, domain.PhaseActive, false)
	show2, p2 := sc.fx.ShowWithPhase(sc.event.ID, "Desfile", 50, 2, domain.PhasePending, false)
	criteria := sc.fx.Criteria(show2.ID, "Postura", 100, 10)
	judge := sc.fx.Judge(sc.event.ID, "jurado-1")
	c := sc.fx.Contestant(sc.event.ID, 1)
	sc.fx.Score(sc.event.ID, p2.ID, criteria, c.ID, judge.ID, 5)

	tr, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)

	require.NoError(t, err)
	assert.Zero(t, tr.ScoresCleared)
	assert.Equal(t, int64(1), sc.fx.CountScores(p2.ID))
}

func TestService_AdvancePhase_QuandoNenhumaAtiva_DeveIniciarPelaMenorOrdem(t *testing.T) {
	sc := novoCenario(t)
	_, p2 := sc.fx.ShowWithPhase(sc.event.ID, "Desfile", 50, 2, domain.PhasePending, false)
	_, p1 := sc.fx.ShowWithPhase(sc.event.ID, "Entrevista", 50, 1, domain.PhasePending, false)

	tr, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)

	require.NoError(t, err)
	assert.Nil(t, tr.PreviousPhase)
	require.NotNil(t, tr.NewPhase)
	assert.Equal(t, p1.ID, tr.NewPhase.ID)
	assert.Equal(t, domain.PhaseActive, sc.status(t, p1))
	assert.Equal(t, domain.PhasePending, sc.status(t, p2))

	event := sc.evento(t)
	assert.Equal(t, domain.EventActive, event.Status)
	assert.Equal(t, "Entrevista", event.CurrentPhaseLabel)
}

func TestService_AdvancePhase_QuandoBootstrapComReset_DeveApagarNotasDaFase(t *testing.T) {
	sc := novoCenario(t)
	show, p1 := sc.fx.ShowWithPhase(sc.event.ID, "Entrevista", 100, 1, domain.PhasePending, true)
	criteria := sc.fx.Criteria(show.ID, "Comunicacao", 100, 10)
	c := sc.fx.Contestant(sc.event.ID, 1)
	judge := sc.fx.Judge(sc.event.ID, "jurado-1")
	sc.fx.Score(sc.event.ID, p1.ID, criteria, c.ID, judge.ID, 4)

	tr, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)

	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.ScoresCleared)
	assert.Zero(t, sc.fx.CountScores(p1.ID))
}

func TestService_AdvancePhase_QuandoUltimaFase_DeveEncerrarEvento(t *testing.T) {
	sc := novoCenario(t)
	_, p1 := sc.fx.ShowWithPhase(sc.event.ID, "Final", 100, 1, domain.PhaseActive, false)

	tr, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)

	require.NoError(t, err)
	assert.True(t, tr.Finished)
	assert.Nil(t, tr.NewPhase)
	assert.Equal(t, domain.PhaseCompleted, sc.status(t, p1))
	assert.Equal(t, domain.EventCompleted, sc.evento(t).Status)
	assert.Zero(t, sc.ativas(t))

	_, err = sc.service.AdvancePhase(context.Background(), sc.event.ID)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestService_AdvancePhase_QuandoSemFases_DeveRetornarPreconditionError(t *testing.T) {
	sc := novoCenario(t)

	_, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)

	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestService_AdvancePhase_QuandoEventoInexistente_DeveRetornarNotFound(t *testing.T) {
	sc := novoCenario(t)

	_, err := sc.service.AdvancePhase(context.Background(), "evento-inexistente")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_AdvancePhase_QuandoDuasAtivas_DeveRetornarConsistencyErrorSemAlterar(t *testing.T) {
	sc := novoCenario(t)
	// Simula dados corrompidos removendo a proteção do banco.
	require.NoError(t, sc.db.Exec("DROP INDEX idx_phases_single_active").Error)
	_, p1 := sc.fx.ShowWithPhase(sc.event.ID, "Entrevista", 50, 1, domain.PhaseActive, false)
	_, p2 := sc.fx.ShowWithPhase(sc.event.ID, "Desfile", 50, 2, domain.PhaseActive, false)
	_, p3 := sc.fx.ShowWithPhase(sc.event.ID, "Final", 50, 3, domain.PhasePending, false)

	_, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)

	assert.ErrorIs(t, err, domain.ErrConsistency)
	assert.Equal(t, domain.PhaseActive, sc.status(t, p1))
	assert.Equal(t, domain.PhaseActive, sc.status(t, p2))
	assert.Equal(t, domain.PhasePending, sc.status(t, p3))
}

func TestService_AdvancePhase_DeveManterNoMaximoUmaFaseAtiva(t *testing.T) {
	sc := novoCenario(t)
	for i := 1; i <= 4; i++ {
		sc.fx.ShowWithPhase(sc.event.ID, "Fase", 25, i, domain.PhasePending, i%2 == 0)
	}

	for i := 0; i < 5; i++ {
		_, err := sc.service.AdvancePhase(context.Background(), sc.event.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, sc.ativas(t), int64(1))
	}

	assert.Zero(t, sc.ativas(t))
	assert.Equal(t, domain.EventCompleted, sc.evento(t).Status)
}

func TestService_ListPhases_DeveOrdenarPorOrdem(t *testing.T) {
	sc := novoCenario(t)
	sc.fx.ShowWithPhase(sc.event.ID, "Final", 40, 3, domain.PhasePending, false)
	sc.fx.ShowWithPhase(sc.event.ID, "Entrevista", 30, 1, domain.PhaseActive, false)
	sc.fx.ShowWithPhase(sc.event.ID, "Desfile", 30, 2, domain.PhasePending, false)

	phases, err := sc.service.ListPhases(context.Background(), sc.event.ID)

	require.NoError(t, err)
	require.Len(t, phases, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{phases[0].Order, phases[1].Order, phases[2].Order})

	_, err = sc.service.ListPhases(context.Background(), "evento-inexistente")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_CurrentPhase(t *testing.T) {
	sc := novoCenario(t)
	_, p1 := sc.fx.ShowWithPhase(sc.event.ID, "Entrevista", 50, 1, domain.PhasePending, false)

	_, err := sc.service.CurrentPhase(context.Background(), sc.event.ID)
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	_, err = sc.service.AdvancePhase(context.Background(), sc.event.ID)
	require.NoError(t, err)

	current, err := sc.service.CurrentPhase(context.Background(), sc.event.ID)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, current.ID)
}

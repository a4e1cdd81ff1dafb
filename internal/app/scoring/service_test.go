package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marcelojr/pageant-scoring/internal/app/changes"
	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/clock"
	"github.com/marcelojr/pageant-scoring/internal/platform/ratelimit"
	redisstorage "github.com/marcelojr/pageant-scoring/internal/platform/storage/redis"
	"github.com/marcelojr/pageant-scoring/internal/platform/storage/storetest"
)

var agora = time.Date(2024, 10, 15, 20, 0, 0, 0, time.UTC)

// cenario monta o Cenário A: fase 1 ativa, um show de peso 100 e um critério de peso 100 (máx. 10).
type cenario struct {
	db       *gorm.DB
	fx       *storetest.Fixture
	service  *Service
	event    domain.Event
	show     domain.Show
	phase    domain.Phase
	criteria domain.Criteria
	c1, c2   domain.Contestant
	judge    domain.Judge
}

func novoCenario(t *testing.T) *cenario {
	t.Helper()
	store, db := storetest.New(t)
	fx := storetest.NewFixture(t, db)

	sc := &cenario{db: db, fx: fx}
	sc.event = fx.Event("Miss Brasil")
	sc.show, sc.phase = fx.ShowWithPhase(sc.event.ID, "Entrevista", 100, 1, domain.PhaseActive, false)
	sc.criteria = fx.Criteria(sc.show.ID, "Comunicacao", 100, 10)
	sc.c1 = fx.Contestant(sc.event.ID, 1)
	sc.c2 = fx.Contestant(sc.event.ID, 2)
	fx.Enroll(sc.phase.ID, sc.c1, sc.c2)
	sc.judge = fx.Judge(sc.event.ID, "jurado-1")
	sc.service = NewService(store, nil, nil, nil, clock.Fixed{At: agora}, nil)
	return sc
}

func (sc *cenario) input(contestant domain.Contestant, value float64) domain.SubmitScoreInput {
	return domain.SubmitScoreInput{
		ContestantID: contestant.ID,
		JudgeID:      sc.judge.ID,
		CriteriaID:   sc.criteria.ID,
		PhaseID:      sc.phase.ID,
		Score:        value,
	}
}

type guardMock struct {
	mock.Mock
}

func (m *guardMock) Allow(ctx context.Context, judgeID domain.JudgeID) error {
	return m.Called(ctx, judgeID).Error(0)
}

type cacheFake struct {
	data        map[domain.PhaseID][]domain.Result
	generations map[domain.PhaseID]int64
	invalidated []domain.PhaseID
}

func newCacheFake() *cacheFake {
	return &cacheFake{data: map[domain.PhaseID][]domain.Result{}, generations: map[domain.PhaseID]int64{}}
}

func (c *cacheFake) Get(_ context.Context, phaseID domain.PhaseID) ([]domain.Result, bool, error) {
	r, ok := c.data[phaseID]
	return r, ok, nil
}

func (c *cacheFake) Generation(_ context.Context, phaseID domain.PhaseID) (int64, error) {
	return c.generations[phaseID], nil
}

func (c *cacheFake) Set(_ context.Context, phaseID domain.PhaseID, generation int64, results []domain.Result) (bool, error) {
	if c.generations[phaseID] != generation {
		return false, nil
	}
	c.data[phaseID] = results
	return true, nil
}

func (c *cacheFake) Invalidate(_ context.Context, phaseIDs ...domain.PhaseID) error {
	for _, id := range phaseIDs {
		c.generations[id]++
		delete(c.data, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

// storeComGancho chama depois após o n-ésimo Snapshot terminar, simulando uma escrita concorrente.
type storeComGancho struct {
	domain.Store
	n         int
	snapshots int
	depois    func()
}

func (s *storeComGancho) Snapshot(ctx context.Context, fn func(tx domain.Tx) error) error {
	err := s.Store.Snapshot(ctx, fn)
	s.snapshots++
	if s.snapshots == s.n && s.depois != nil {
		s.depois()
	}
	return err
}

type notifierFake struct {
	published []domain.Notification
}

func (n *notifierFake) Publish(_ context.Context, notification domain.Notification) error {
	n.published = append(n.published, notification)
	return nil
}

func (n *notifierFake) Consume(context.Context, func(context.Context, domain.Notification) error) error {
	return nil
}

func TestService_SubmitScore_QuandoValido_DeveGravarComShowDoCriterio(t *testing.T) {
	sc := novoCenario(t)

	score, err := sc.service.SubmitScore(context.Background(), sc.input(sc.c1, 9))

	require.NoError(t, err)
	assert.NotEmpty(t, score.ID)
	assert.Equal(t, sc.show.ID, score.ShowID)
	assert.Equal(t, sc.event.ID, score.EventID)
	assert.Equal(t, 9.0, score.Value)
	assert.Equal(t, int64(1), sc.fx.CountScores(sc.phase.ID))
}

func TestService_SubmitScore_QuandoMesmaTupla_DeveAtualizarSemDuplicar(t *testing.T) {
	sc := novoCenario(t)
	ctx := context.Background()

	primeira, err := sc.service.SubmitScore(ctx, sc.input(sc.c1, 6))
	require.NoError(t, err)
	segunda, err := sc.service.SubmitScore(ctx, sc.input(sc.c1, 8))
	require.NoError(t, err)

	assert.Equal(t, int64(1), sc.fx.CountScores(sc.phase.ID))
	assert.Equal(t, primeira.ID, segunda.ID)
	assert.Equal(t, 8.0, segunda.Value)
}

func TestService_SubmitScore_Limites(t *testing.T) {
	casos := []struct {
		nome   string
		valor  float64
		aceita bool
	}{
		{"zero", 0, false},
		{"um", 1, true},
		{"maximo", 10, true},
		{"acima do maximo", 11, false},
		{"negativo", -3, false},
	}

	for _, tc := range casos {
		t.Run(tc.nome, func(t *testing.T) {
			sc := novoCenario(t)

			_, err := sc.service.SubmitScore(context.Background(), sc.input(sc.c1, tc.valor))

			if tc.aceita {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, sc.fx.CountScores(sc.phase.ID))
		})
	}
}

func TestService_SubmitScore_QuandoCampoObrigatorioAusente_DeveRetornarValidationError(t *testing.T) {
	sc := novoCenario(t)
	in := sc.input(sc.c1, 5)
	in.JudgeID = ""

	_, err := sc.service.SubmitScore(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_SubmitScore_QuandoFaseNaoAtiva_DeveRetornarPreconditionError(t *testing.T) {
	sc := novoCenario(t)
	show, pendente := sc.fx.ShowWithPhase(sc.event.ID, "Desfile", 100, 2, domain.PhasePending, false)
	criteria := sc.fx.Criteria(show.ID, "Postura", 100, 10)
	sc.fx.Enroll(pendente.ID, sc.c1)

	_, err := sc.service.SubmitScore(context.Background(), domain.SubmitScoreInput{
		ContestantID: sc.c1.ID,
		JudgeID:      sc.judge.ID,
		CriteriaID:   criteria.ID,
		PhaseID:      pendente.ID,
		Score:        7,
	})

	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestService_SubmitScore_QuandoCandidataNaoElegivel_DeveRetornarPreconditionError(t *testing.T) {
	sc := novoCenario(t)
	c3 := sc.fx.Contestant(sc.event.ID, 3)

	_, err := sc.service.SubmitScore(context.Background(), sc.input(c3, 7))

	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestService_SubmitScore_QuandoCandidataEliminada_DeveRetornarPreconditionError(t *testing.T) {
	sc := novoCenario(t)
	require.NoError(t, sc.db.Model(&domain.ContestantPhase{}).
		Where("contestant_id = ? AND phase_id = ?", sc.c2.ID, sc.phase.ID).
		Update("status", domain.ParticipationEliminated).Error)

	_, err := sc.service.SubmitScore(context.Background(), sc.input(sc.c2, 7))

	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestService_SubmitScore_QuandoEntidadesInexistentes_DeveRetornarNotFound(t *testing.T) {
	sc := novoCenario(t)

	in := sc.input(sc.c1, 7)
	in.CriteriaID = "criterio-inexistente"
	_, err := sc.service.SubmitScore(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in = sc.input(sc.c1, 7)
	in.PhaseID = "fase-inexistente"
	_, err = sc.service.SubmitScore(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in = sc.input(sc.c1, 7)
	in.JudgeID = "jurado-inexistente"
	_, err = sc.service.SubmitScore(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_SubmitScore_QuandoCriterioDeOutroShow_DeveRetornarValidationError(t *testing.T) {
	sc := novoCenario(t)
	outro, _ := sc.fx.ShowWithPhase(sc.event.ID, "Talento", 100, 2, domain.PhasePending, false)
	criteria := sc.fx.Criteria(outro.ID, "Execucao", 100, 10)

	in := sc.input(sc.c1, 7)
	in.CriteriaID = criteria.ID
	_, err := sc.service.SubmitScore(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_SubmitScore_QuandoJuradoDeOutroEvento_DeveRetornarValidationError(t *testing.T) {
	sc := novoCenario(t)
	outroEvento := sc.fx.Event("Miss Mundo")
	estranho := sc.fx.Judge(outroEvento.ID, "jurado-2")

	in := sc.input(sc.c1, 7)
	in.JudgeID = estranho.ID
	_, err := sc.service.SubmitScore(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_SubmitScore_QuandoLimiteExcedido_NaoDeveGravar(t *testing.T) {
	sc := novoCenario(t)
	guard := new(guardMock)
	guard.On("Allow", mock.Anything, sc.judge.ID).Return(ratelimit.ErrRateLimitExceeded)
	sc.service.guard = guard

	_, err := sc.service.SubmitScore(context.Background(), sc.input(sc.c1, 7))

	assert.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	assert.Zero(t, sc.fx.CountScores(sc.phase.ID))
	guard.AssertExpectations(t)
}

func TestService_SubmitScore_DeveInvalidarCacheEPublicarNotificacao(t *testing.T) {
	sc := novoCenario(t)
	cache := newCacheFake()
	notifier := &notifierFake{}
	sc.service.changes = changes.NewPropagator(cache, notifier, clock.Fixed{At: agora}, nil)

	_, err := sc.service.SubmitScore(context.Background(), sc.input(sc.c1, 7))
	require.NoError(t, err)

	assert.Equal(t, []domain.PhaseID{sc.phase.ID}, cache.invalidated)
	require.Len(t, notifier.published, 1)
	assert.Equal(t, domain.NotificationScoreSubmitted, notifier.published[0].Kind)
	assert.Equal(t, sc.event.ID, notifier.published[0].EventID)
	assert.Equal(t, agora, notifier.published[0].OccurredAt)
}

func TestService_ComputeResults_CenarioA(t *testing.T) {
	sc := novoCenario(t)
	ctx := context.Background()
	_, err := sc.service.SubmitScore(ctx, sc.input(sc.c1, 9))
	require.NoError(t, err)
	_, err = sc.service.SubmitScore(ctx, sc.input(sc.c2, 7))
	require.NoError(t, err)

	results, err := sc.service.ComputeResults(ctx, sc.event.ID, sc.phase.ID)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, sc.c1.ID, results[0].ContestantID)
	assert.InDelta(t, 9.0, results[0].TotalScore, 1e-9)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, sc.c2.ID, results[1].ContestantID)
	assert.InDelta(t, 7.0, results[1].TotalScore, 1e-9)
	assert.Equal(t, 2, results[1].Rank)
}

func TestService_ComputeResults_CenarioB(t *testing.T) {
	store, db := storetest.New(t)
	fx := storetest.NewFixture(t, db)
	event := fx.Event("Miss Brasil")
	show, phase := fx.ShowWithPhase(event.ID, "Entrevista", 100, 1, domain.PhaseActive, false)
	k60 := fx.Criteria(show.ID, "Conteudo", 60, 10)
	k40 := fx.Criteria(show.ID, "Dicao", 40, 10)
	c1 := fx.Contestant(event.ID, 1)
	fx.Enroll(phase.ID, c1)
	judge := fx.Judge(event.ID, "jurado-1")
	fx.Score(event.ID, phase.ID, k60, c1.ID, judge.ID, 8)
	fx.Score(event.ID, phase.ID, k40, c1.ID, judge.ID, 5)
	service := NewService(store, nil, nil, nil, clock.Fixed{At: agora}, nil)

	results, err := service.ComputeResults(context.Background(), event.ID, phase.ID)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 6.8, results[0].TotalScore, 1e-9)
	require.Len(t, results[0].Shows, 1)
	assert.InDelta(t, 6.8, results[0].Shows[0].Score, 1e-9)
}

func TestService_ComputeResults_QuandoSemNotas_DeveDevolverZerosPorNumero(t *testing.T) {
	sc := novoCenario(t)

	results, err := sc.service.ComputeResults(context.Background(), sc.event.ID, sc.phase.ID)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].ContestantNumber)
	assert.Equal(t, 2, results[1].ContestantNumber)
	assert.Zero(t, results[0].TotalScore)
	assert.Zero(t, results[1].TotalScore)
}

func TestService_ComputeResults_QuandoChamadoDuasVezes_DeveSerIdempotente(t *testing.T) {
	sc := novoCenario(t)
	ctx := context.Background()
	_, err := sc.service.SubmitScore(ctx, sc.input(sc.c1, 6))
	require.NoError(t, err)
	_, err = sc.service.SubmitScore(ctx, sc.input(sc.c2, 8))
	require.NoError(t, err)

	primeira, err := sc.service.ComputeResults(ctx, sc.event.ID, sc.phase.ID)
	require.NoError(t, err)
	segunda, err := sc.service.ComputeResults(ctx, sc.event.ID, sc.phase.ID)
	require.NoError(t, err)

	assert.Equal(t, primeira, segunda)
}

func TestService_ComputeResults_DeveIgnorarCandidatasEliminadas(t *testing.T) {
	sc := novoCenario(t)
	sc.fx.Score(sc.event.ID, sc.phase.ID, sc.criteria, sc.c2.ID, sc.judge.ID, 10)
	require.NoError(t, sc.db.Model(&domain.ContestantPhase{}).
		Where("contestant_id = ? AND phase_id = ?", sc.c2.ID, sc.phase.ID).
		Update("status", domain.ParticipationEliminated).Error)

	results, err := sc.service.ComputeResults(context.Background(), sc.event.ID, sc.phase.ID)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sc.c1.ID, results[0].ContestantID)
}

func TestService_ComputeResults_QuandoFaseDeOutroEvento_DeveRetornarNotFound(t *testing.T) {
	sc := novoCenario(t)
	outro := sc.fx.Event("Miss Mundo")

	_, err := sc.service.ComputeResults(context.Background(), outro.ID, sc.phase.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ComputeResults_QuandoShowDaNotaInconsistente_DeveRetornarConsistencyError(t *testing.T) {
	sc := novoCenario(t)
	outroShow, _ := sc.fx.ShowWithPhase(sc.event.ID, "Talento", 100, 2, domain.PhasePending, false)
	score := sc.fx.Score(sc.event.ID, sc.phase.ID, sc.criteria, sc.c1.ID, sc.judge.ID, 8)
	require.NoError(t, sc.db.Model(&domain.Score{}).Where("id = ?", score.ID).Update("show_id", outroShow.ID).Error)

	_, err := sc.service.ComputeResults(context.Background(), sc.event.ID, sc.phase.ID)

	assert.ErrorIs(t, err, domain.ErrConsistency)
}

func TestService_ComputeResults_DeveUsarEGravarCache(t *testing.T) {
	sc := novoCenario(t)
	cache := newCacheFake()
	sc.service.cache = cache
	ctx := context.Background()

	results, err := sc.service.ComputeResults(ctx, sc.event.ID, sc.phase.ID)
	require.NoError(t, err)
	assert.Equal(t, results, cache.data[sc.phase.ID])

	cache.data[sc.phase.ID] = []domain.Result{{ContestantID: "do-cache", Rank: 1}}
	doCache, err := sc.service.ComputeResults(ctx, sc.event.ID, sc.phase.ID)
	require.NoError(t, err)
	require.Len(t, doCache, 1)
	assert.Equal(t, domain.ContestantID("do-cache"), doCache[0].ContestantID)
}

func TestService_WarmResults_DeveIgnorarCacheAntigo(t *testing.T) {
	sc := novoCenario(t)
	cache := newCacheFake()
	cache.data[sc.phase.ID] = []domain.Result{{ContestantID: "antigo"}}
	sc.service.cache = cache
	sc.fx.Score(sc.event.ID, sc.phase.ID, sc.criteria, sc.c2.ID, sc.judge.ID, 9)

	results, err := sc.service.WarmResults(context.Background(), sc.phase.ID)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, sc.c2.ID, results[0].ContestantID)
	assert.Equal(t, results, cache.data[sc.phase.ID])
}

func TestService_ComputeResults_QuandoNotaChegaDuranteCalculo_NaoDeveCachearRankingVelho(t *testing.T) {
	sc := novoCenario(t)
	ctx := context.Background()
	inner := sc.service.store

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	cache := redisstorage.NewResultsCache(client, "resultados", time.Minute)
	propagator := changes.NewPropagator(cache, nil, clock.Fixed{At: agora}, nil)

	direto := NewService(inner, cache, nil, propagator, clock.Fixed{At: agora}, nil)
	_, err = direto.SubmitScore(ctx, sc.input(sc.c1, 8))
	require.NoError(t, err)
	_, err = direto.SubmitScore(ctx, sc.input(sc.c2, 7))
	require.NoError(t, err)

	// o segundo Snapshot de ComputeResults é o do ranking; a nota entra logo depois dele
	store := &storeComGancho{Store: inner, n: 2}
	store.depois = func() {
		_, err := direto.SubmitScore(ctx, sc.input(sc.c2, 9))
		require.NoError(t, err)
	}
	leitor := NewService(store, cache, nil, propagator, clock.Fixed{At: agora}, nil)

	velho, err := leitor.ComputeResults(ctx, sc.event.ID, sc.phase.ID)
	require.NoError(t, err)
	require.Len(t, velho, 2)
	assert.Equal(t, sc.c1.ID, velho[0].ContestantID)

	atual, err := leitor.ComputeResults(ctx, sc.event.ID, sc.phase.ID)

	require.NoError(t, err)
	require.Len(t, atual, 2)
	assert.Equal(t, sc.c2.ID, atual[0].ContestantID)
	assert.InDelta(t, 9.0, atual[0].TotalScore, 1e-9)
	assert.Equal(t, 1, atual[0].Rank)
}

func TestService_WarmResults_QuandoCacheInvalidadoNoMeio_NaoDeveGravar(t *testing.T) {
	sc := novoCenario(t)
	cache := newCacheFake()
	store := &storeComGancho{Store: sc.service.store, n: 1}
	store.depois = func() {
		require.NoError(t, cache.Invalidate(context.Background(), sc.phase.ID))
	}
	service := NewService(store, cache, nil, nil, clock.Fixed{At: agora}, nil)

	results, err := service.WarmResults(context.Background(), sc.phase.ID)

	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.NotContains(t, cache.data, sc.phase.ID)
}

func TestService_JudgeProgress_DeveContarNotasDaFaseAtiva(t *testing.T) {
	sc := novoCenario(t)
	_, err := sc.service.SubmitScore(context.Background(), sc.input(sc.c1, 7))
	require.NoError(t, err)

	progress, err := sc.service.JudgeProgress(context.Background(), sc.event.ID, sc.judge.ID)

	require.NoError(t, err)
	assert.Equal(t, sc.phase.ID, progress.PhaseID)
	assert.Equal(t, 2, progress.TotalRequired)
	assert.Equal(t, 1, progress.Completed)
	assert.InDelta(t, 50.0, progress.Percent, 1e-9)
}

func TestService_JudgeProgress_QuandoSemFaseAtiva_DeveZerar(t *testing.T) {
	sc := novoCenario(t)
	require.NoError(t, sc.db.Model(&domain.Phase{}).Where("id = ?", sc.phase.ID).Update("status", domain.PhaseCompleted).Error)

	progress, err := sc.service.JudgeProgress(context.Background(), sc.event.ID, sc.judge.ID)

	require.NoError(t, err)
	assert.Empty(t, progress.PhaseID)
	assert.Zero(t, progress.TotalRequired)
	assert.Zero(t, progress.Percent)
}

func TestService_JudgeProgress_QuandoJuradoDeOutroEvento_DeveRetornarValidationError(t *testing.T) {
	sc := novoCenario(t)
	outro := sc.fx.Event("Miss Mundo")

	_, err := sc.service.JudgeProgress(context.Background(), outro.ID, sc.judge.ID)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_EligibleContestants_DeveListarSomenteAtivas(t *testing.T) {
	sc := novoCenario(t)
	require.NoError(t, sc.db.Model(&domain.ContestantPhase{}).
		Where("contestant_id = ?", sc.c1.ID).
		Update("status", domain.ParticipationEliminated).Error)

	contestants, err := sc.service.EligibleContestants(context.Background(), sc.phase.ID)

	require.NoError(t, err)
	require.Len(t, contestants, 1)
	assert.Equal(t, sc.c2.ID, contestants[0].ID)

	_, err = sc.service.EligibleContestants(context.Background(), "fase-inexistente")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ListJudgeScores_DeveDevolverNotasDoJurado(t *testing.T) {
	sc := novoCenario(t)
	outro := sc.fx.Judge(sc.event.ID, "jurado-2")
	sc.fx.Score(sc.event.ID, sc.phase.ID, sc.criteria, sc.c1.ID, sc.judge.ID, 7)
	sc.fx.Score(sc.event.ID, sc.phase.ID, sc.criteria, sc.c2.ID, outro.ID, 8)

	scores, err := sc.service.ListJudgeScores(context.Background(), sc.phase.ID, sc.judge.ID)

	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, sc.c1.ID, scores[0].ContestantID)
}

// Pacote scoring registra as notas dos jurados e calcula o ranking ponderado de cada fase.
package scoring

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/marcelojr/pageant-scoring/internal/app/changes"
	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/ids"
	"github.com/marcelojr/pageant-scoring/internal/platform/logger"
	"github.com/marcelojr/pageant-scoring/internal/platform/metrics"
	"github.com/marcelojr/pageant-scoring/internal/platform/validation"
)

// Service concentra as regras de nota; cache, guard e propagator são opcionais.
type Service struct {
	store   domain.Store
	cache   domain.ResultsCache
	guard   domain.SubmissionGuard
	changes *changes.Propagator
	clock   domain.Clock
	ids     *ids.Generator
	logger  *slog.Logger
}

func NewService(
	store domain.Store,
	cache domain.ResultsCache,
	guard domain.SubmissionGuard,
	propagator *changes.Propagator,
	clock domain.Clock,
	idsGen *ids.Generator,
) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		store:   store,
		cache:   cache,
		guard:   guard,
		changes: propagator,
		clock:   clock,
		ids:     idsGen,
		logger:  logger.With("componente", "scoring"),
	}
}

// SubmitScore valida e grava a nota do jurado; reenviar a mesma tupla atualiza a nota anterior.
func (s *Service) SubmitScore(ctx context.Context, in domain.SubmitScoreInput) (domain.Score, error) {
	if err := validation.Struct(in); err != nil {
		metrics.ObserveScoreSubmission("invalid")
		return domain.Score{}, err
	}
	if math.IsNaN(in.Score) || math.IsInf(in.Score, 0) {
		metrics.ObserveScoreSubmission("invalid")
		return domain.Score{}, domain.Invalid("nota precisa ser um numero finito")
	}

	if s.guard != nil {
		if err := s.guard.Allow(ctx, in.JudgeID); err != nil {
			metrics.ObserveScoreSubmission("rate_limited")
			return domain.Score{}, err
		}
	}

	var saved domain.Score
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		phase, err := tx.Phases().FindByID(ctx, in.PhaseID, true)
		if err != nil {
			return domain.AsNotFound(err, "fase", in.PhaseID)
		}
		if phase.Status != domain.PhaseActive {
			return domain.Precondition("fase %s nao esta ativa (status %s)", phase.ID, phase.Status)
		}

		criteria, err := tx.Criteria().FindByID(ctx, in.CriteriaID)
		if err != nil {
			return domain.AsNotFound(err, "criterio", in.CriteriaID)
		}
		// showId vem sempre do critério, nunca de quem chama.
		if !slices.Contains(phase.Shows(), criteria.ShowID) {
			return domain.Invalid("criterio %s nao pertence a fase %s", criteria.ID, phase.ID)
		}

		judge, err := tx.Judges().FindByID(ctx, in.JudgeID)
		if err != nil {
			return domain.AsNotFound(err, "jurado", in.JudgeID)
		}
		if judge.EventID != phase.EventID {
			return domain.Invalid("jurado %s nao pertence ao evento %s", judge.ID, phase.EventID)
		}

		if in.Score < 1 || in.Score > criteria.MaxScore {
			return domain.Invalid("nota %g fora da faixa permitida [1, %g]", in.Score, criteria.MaxScore)
		}

		if _, err := tx.Contestants().FindByID(ctx, in.ContestantID); err != nil {
			return domain.AsNotFound(err, "candidata", in.ContestantID)
		}
		cp, err := tx.Participations().Find(ctx, in.ContestantID, phase.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err != nil || cp.Status != domain.ParticipationActive {
			return domain.Precondition("candidata %s nao esta elegivel na fase %s", in.ContestantID, phase.ID)
		}

		now := s.now()
		saved, err = tx.Scores().Upsert(ctx, domain.Score{
			ID:           ids.Next[domain.ScoreID](s.ids),
			EventID:      phase.EventID,
			ContestantID: in.ContestantID,
			JudgeID:      judge.ID,
			ShowID:       criteria.ShowID,
			CriteriaID:   criteria.ID,
			PhaseID:      phase.ID,
			Value:        in.Score,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if err != nil {
		metrics.ObserveScoreSubmission(outcome(err))
		return domain.Score{}, err
	}

	metrics.ObserveScoreSubmission("accepted")
	s.changes.Changed(ctx, domain.NotificationScoreSubmitted, saved.EventID, saved.PhaseID)
	return saved, nil
}

// ComputeResults devolve o ranking da fase, do cache quando houver. As leituras do ranking
// acontecem todas no mesmo snapshot; o Redis nunca é consultado com a transação aberta.
func (s *Service) ComputeResults(ctx context.Context, eventID domain.EventID, phaseID domain.PhaseID) ([]domain.Result, error) {
	started := time.Now()

	err := s.store.Snapshot(ctx, func(tx domain.Tx) error {
		phase, err := tx.Phases().FindByID(ctx, phaseID, false)
		if err != nil {
			return domain.AsNotFound(err, "fase", phaseID)
		}
		if phase.EventID != eventID {
			return domain.NotFound("fase", phaseID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if results, ok := s.fromCache(ctx, phaseID); ok {
		metrics.ObserveResults("cache", time.Since(started).Seconds())
		return results, nil
	}

	results, err := s.recompute(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	metrics.ObserveResults("database", time.Since(started).Seconds())
	return results, nil
}

// WarmResults recalcula o ranking ignorando o cache e grava o novo valor. Usado pelo worker.
func (s *Service) WarmResults(ctx context.Context, phaseID domain.PhaseID) ([]domain.Result, error) {
	started := time.Now()

	results, err := s.recompute(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	metrics.ObserveResults("warm", time.Since(started).Seconds())
	return results, nil
}

// recompute lê a geração do cache antes de abrir o snapshot. Se uma nota for confirmada
// durante o cálculo, a invalidação avança a geração e o Set descarta o ranking velho.
func (s *Service) recompute(ctx context.Context, phaseID domain.PhaseID) ([]domain.Result, error) {
	generation, cacheable := s.cacheGeneration(ctx, phaseID)

	var results []domain.Result
	err := s.store.Snapshot(ctx, func(tx domain.Tx) error {
		phase, err := tx.Phases().FindByID(ctx, phaseID, false)
		if err != nil {
			return domain.AsNotFound(err, "fase", phaseID)
		}
		results, err = s.rank(ctx, tx, phase)
		return err
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.storeCache(ctx, phaseID, generation, results)
	}
	return results, nil
}

// JudgeProgress mede quanto do trabalho da fase ativa o jurado já concluiu.
func (s *Service) JudgeProgress(ctx context.Context, eventID domain.EventID, judgeID domain.JudgeID) (domain.Progress, error) {
	progress := domain.Progress{EventID: eventID, JudgeID: judgeID}

	err := s.store.Snapshot(ctx, func(tx domain.Tx) error {
		if _, err := tx.Events().FindByID(ctx, eventID); err != nil {
			return domain.AsNotFound(err, "evento", eventID)
		}
		judge, err := tx.Judges().FindByID(ctx, judgeID)
		if err != nil {
			return domain.AsNotFound(err, "jurado", judgeID)
		}
		if judge.EventID != eventID {
			return domain.Invalid("jurado %s nao pertence ao evento %s", judgeID, eventID)
		}

		phases, err := tx.Phases().ListByEvent(ctx, eventID, false)
		if err != nil {
			return err
		}
		phase, ok, err := domain.ActivePhase(phases)
		if err != nil {
			s.consistencyFailure("judge_progress", err, "evento", eventID)
			return err
		}
		if !ok {
			return nil
		}
		progress.PhaseID = phase.ID

		cps, err := tx.Participations().ListByPhase(ctx, phase.ID, domain.ParticipationActive)
		if err != nil {
			return err
		}
		criteria, err := tx.Criteria().ListByShows(ctx, phase.Shows())
		if err != nil {
			return err
		}
		progress.TotalRequired = len(cps) * len(criteria)

		eligible := make(map[domain.ContestantID]bool, len(cps))
		for _, cp := range cps {
			eligible[cp.ContestantID] = true
		}
		known := make(map[domain.CriteriaID]bool, len(criteria))
		for _, c := range criteria {
			known[c.ID] = true
		}

		scores, err := tx.Scores().ListByJudge(ctx, phase.ID, judgeID)
		if err != nil {
			return err
		}
		for _, sc := range scores {
			if eligible[sc.ContestantID] && known[sc.CriteriaID] {
				progress.Completed++
			}
		}
		return nil
	})
	if err != nil {
		return domain.Progress{}, err
	}

	if progress.TotalRequired > 0 {
		progress.Percent = math.Round(float64(progress.Completed)/float64(progress.TotalRequired)*10000) / 100
	}
	return progress, nil
}

// EligibleContestants lista quem pode receber nota na fase, por número da candidata.
func (s *Service) EligibleContestants(ctx context.Context, phaseID domain.PhaseID) ([]domain.Contestant, error) {
	var contestants []domain.Contestant
	err := s.store.Snapshot(ctx, func(tx domain.Tx) error {
		if _, err := tx.Phases().FindByID(ctx, phaseID, false); err != nil {
			return domain.AsNotFound(err, "fase", phaseID)
		}
		var err error
		contestants, err = eligibleIn(ctx, tx, phaseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return contestants, nil
}

func (s *Service) ListJudgeScores(ctx context.Context, phaseID domain.PhaseID, judgeID domain.JudgeID) ([]domain.Score, error) {
	var scores []domain.Score
	err := s.store.Snapshot(ctx, func(tx domain.Tx) error {
		if _, err := tx.Phases().FindByID(ctx, phaseID, false); err != nil {
			return domain.AsNotFound(err, "fase", phaseID)
		}
		var err error
		scores, err = tx.Scores().ListByJudge(ctx, phaseID, judgeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func (s *Service) rank(ctx context.Context, tx domain.Tx, phase domain.Phase) ([]domain.Result, error) {
	contestants, err := eligibleIn(ctx, tx, phase.ID)
	if err != nil {
		return nil, err
	}
	shows, err := tx.Shows().ListByIDs(ctx, phase.Shows())
	if err != nil {
		return nil, err
	}
	criteria, err := tx.Criteria().ListByShows(ctx, phase.Shows())
	if err != nil {
		return nil, err
	}
	scores, err := tx.Scores().ListByPhase(ctx, phase.ID)
	if err != nil {
		return nil, err
	}

	results, err := Rank(RankingInput{
		Contestants: contestants,
		Shows:       shows,
		Criteria:    criteria,
		Scores:      scores,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConsistency) {
			s.consistencyFailure("compute_results", err, "fase", phase.ID)
		}
		return nil, err
	}
	return results, nil
}

func eligibleIn(ctx context.Context, tx domain.Tx, phaseID domain.PhaseID) ([]domain.Contestant, error) {
	cps, err := tx.Participations().ListByPhase(ctx, phaseID, domain.ParticipationActive)
	if err != nil {
		return nil, err
	}
	contestantIDs := make([]domain.ContestantID, len(cps))
	for i, cp := range cps {
		contestantIDs[i] = cp.ContestantID
	}
	return tx.Contestants().ListByIDs(ctx, contestantIDs)
}

func (s *Service) fromCache(ctx context.Context, phaseID domain.PhaseID) ([]domain.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	results, ok, err := s.cache.Get(ctx, phaseID)
	if err != nil {
		s.logger.Warn("falha ao ler cache de resultados", "err", err, "fase", phaseID)
		return nil, false
	}
	return results, ok
}

func (s *Service) cacheGeneration(ctx context.Context, phaseID domain.PhaseID) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, phaseID)
	if err != nil {
		s.logger.Warn("falha ao ler geracao do cache de resultados", "err", err, "fase", phaseID)
		return 0, false
	}
	return gen, true
}

func (s *Service) storeCache(ctx context.Context, phaseID domain.PhaseID, generation int64, results []domain.Result) {
	stored, err := s.cache.Set(ctx, phaseID, generation, results)
	if err != nil {
		s.logger.Warn("falha ao gravar cache de resultados", "err", err, "fase", phaseID)
		return
	}
	if !stored {
		s.logger.Debug("ranking descartado: fase invalidada durante o calculo", "fase", phaseID)
	}
}

func (s *Service) consistencyFailure(operation string, err error, args ...any) {
	metrics.IncConsistencyFailure(operation)
	logger.Consistency(s.logger, "falha de consistencia detectada", append([]any{"operacao", operation, "err", err}, args...)...)
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrPrecondition):
		return "rejected"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

var _ domain.ScoringService = (*Service)(nil)

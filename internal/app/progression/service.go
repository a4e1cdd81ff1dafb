// Pacote progression leva as candidatas escolhidas da fase ativa para a seguinte e elimina as demais.
package progression

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marcelojr/pageant-scoring/internal/app/changes"
	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/logger"
	"github.com/marcelojr/pageant-scoring/internal/platform/metrics"
)

type Service struct {
	store   domain.Store
	changes *changes.Propagator
	logger  *slog.Logger
}

func NewService(store domain.Store, propagator *changes.Propagator) *Service {
	return &Service{
		store:   store,
		changes: propagator,
		logger:  logger.With("componente", "progression"),
	}
}

// AdvanceContestants classifica selected para a próxima fase, com rank pela posição na lista.
// Não ativa fase nenhuma: isso continua sendo papel do AdvancePhase.
func (s *Service) AdvanceContestants(ctx context.Context, eventID domain.EventID, selected []domain.ContestantID) (domain.AdvanceResult, error) {
	if len(selected) == 0 {
		return domain.AdvanceResult{}, domain.Precondition("nenhuma candidata selecionada para avancar")
	}
	seen := make(map[domain.ContestantID]bool, len(selected))
	for _, id := range selected {
		if id == "" {
			return domain.AdvanceResult{}, domain.Invalid("id de candidata vazio na selecao")
		}
		if seen[id] {
			return domain.AdvanceResult{}, domain.Invalid("candidata %s repetida na selecao", id)
		}
		seen[id] = true
	}

	var result domain.AdvanceResult
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		if _, err := tx.Events().FindByID(ctx, eventID); err != nil {
			return domain.AsNotFound(err, "evento", eventID)
		}

		phases, err := tx.Phases().ListByEvent(ctx, eventID, true)
		if err != nil {
			return err
		}
		current, ok, err := domain.ActivePhase(phases)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Precondition("evento %s nao possui fase ativa", eventID)
		}
		next, ok := domain.NextPhase(phases, current)
		if !ok {
			return domain.Precondition("fase %s e a ultima do evento; nao ha para onde avancar", current.Name)
		}

		rows, err := tx.Participations().ListByPhase(ctx, current.ID, domain.ParticipationActive)
		if err != nil {
			return err
		}
		active := make(map[domain.ContestantID]bool, len(rows))
		for _, cp := range rows {
			active[cp.ContestantID] = true
		}
		for _, id := range selected {
			if !active[id] {
				return domain.Precondition("candidata %s nao esta ativa na fase %s", id, current.Name)
			}
		}

		from := current.ID
		advanced := make([]domain.ContestantPhase, len(selected))
		for i, id := range selected {
			rank := i + 1
			advanced[i] = domain.ContestantPhase{
				ContestantID:      id,
				PhaseID:           next.ID,
				Status:            domain.ParticipationActive,
				Rank:              &rank,
				AdvancedFromPhase: &from,
			}
		}
		if err := tx.Participations().Upsert(ctx, advanced); err != nil {
			return err
		}

		var eliminated []domain.ContestantID
		for _, cp := range rows {
			if !seen[cp.ContestantID] {
				eliminated = append(eliminated, cp.ContestantID)
			}
		}
		if err := tx.Participations().UpdateStatus(ctx, current.ID, eliminated, domain.ParticipationEliminated); err != nil {
			return err
		}

		// Uma nova seleção substitui a anterior: quem saiu dela deixa de estar ativa na próxima fase.
		nextRows, err := tx.Participations().ListByPhase(ctx, next.ID, domain.ParticipationActive)
		if err != nil {
			return err
		}
		var dropped []domain.ContestantID
		for _, cp := range nextRows {
			if !seen[cp.ContestantID] && cp.AdvancedFromPhase != nil && *cp.AdvancedFromPhase == current.ID {
				dropped = append(dropped, cp.ContestantID)
			}
		}
		if err := tx.Participations().UpdateStatus(ctx, next.ID, dropped, domain.ParticipationEliminated); err != nil {
			return err
		}

		if err := tx.Contestants().UpdateStatus(ctx, selected, domain.ContestantActive); err != nil {
			return err
		}
		if err := tx.Contestants().UpdateStatus(ctx, eliminated, domain.ContestantEliminated); err != nil {
			return err
		}

		result = domain.AdvanceResult{
			AdvancedCount:   len(selected),
			EliminatedCount: len(eliminated),
			FromPhaseID:     current.ID,
			ToPhaseID:       next.ID,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConsistency) {
			metrics.IncConsistencyFailure("advance_contestants")
			logger.Consistency(s.logger, "progressao recusada", "evento", eventID, "err", err)
		}
		return domain.AdvanceResult{}, err
	}

	metrics.ObserveProgression(result.AdvancedCount, result.EliminatedCount)
	s.logger.Info("candidatas avancadas",
		"evento", eventID,
		"de", result.FromPhaseID,
		"para", result.ToPhaseID,
		"classificadas", result.AdvancedCount,
		"eliminadas", result.EliminatedCount,
	)
	s.changes.Changed(ctx, domain.NotificationContestantsAdvanced, eventID, result.FromPhaseID, result.ToPhaseID)
	return result, nil
}

var _ domain.ProgressionService = (*Service)(nil)

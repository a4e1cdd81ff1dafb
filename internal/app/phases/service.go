// Pacote phases é a máquina de estados das fases de um evento: pending → active → completed.
package phases

import (
	"context"
	"errors"
	"fmt"
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
		logger:  logger.With("componente", "phases"),
	}
}

// AdvancePhase conclui a fase ativa e ativa a seguinte numa única transação.
// Sem fase ativa, inicia o evento pela primeira fase pendente. Sem fase seguinte, encerra o evento.
func (s *Service) AdvancePhase(ctx context.Context, eventID domain.EventID) (domain.Transition, error) {
	var tr domain.Transition

	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		tr = domain.Transition{}

		event, err := tx.Events().FindByID(ctx, eventID)
		if err != nil {
			return domain.AsNotFound(err, "evento", eventID)
		}

		// O lock serializa avanços concorrentes do mesmo evento.
		phases, err := tx.Phases().ListByEvent(ctx, eventID, true)
		if err != nil {
			return err
		}
		if len(phases) == 0 {
			return domain.Precondition("evento %s nao possui fases", eventID)
		}

		current, ok, err := domain.ActivePhase(phases)
		if err != nil {
			return err
		}

		if !ok {
			first, found := domain.FirstPending(phases)
			if !found {
				return domain.Precondition("evento %s nao possui fase pendente para iniciar", eventID)
			}
			if err := s.activate(ctx, tx, event, &first, &tr); err != nil {
				return err
			}
			tr.Message = fmt.Sprintf("fase %s iniciada", first.Name)
			return nil
		}

		if err := tx.Phases().UpdateStatus(ctx, current.ID, domain.PhaseCompleted); err != nil {
			return err
		}
		current.Status = domain.PhaseCompleted
		tr.PreviousPhase = &current

		next, found := domain.NextPhase(phases, current)
		if !found {
			if err := tx.Events().UpdateState(ctx, event.ID, domain.EventCompleted, event.CurrentPhaseLabel); err != nil {
				return err
			}
			tr.Finished = true
			tr.Message = "competicao encerrada"
			return nil
		}
		if next.Status != domain.PhasePending {
			return domain.Precondition("fase %s nao pode ser ativada (status %s)", next.ID, next.Status)
		}

		if err := s.activate(ctx, tx, event, &next, &tr); err != nil {
			return err
		}
		tr.Message = fmt.Sprintf("fase %s ativada", next.Name)
		return nil
	})
	if err != nil {
		s.fail(eventID, err)
		return domain.Transition{}, err
	}

	s.committed(ctx, eventID, tr)
	return tr, nil
}

// activate liga a fase, atualiza o rótulo do evento e aplica a política de reset de notas.
func (s *Service) activate(ctx context.Context, tx domain.Tx, event domain.Event, phase *domain.Phase, tr *domain.Transition) error {
	if err := tx.Phases().UpdateStatus(ctx, phase.ID, domain.PhaseActive); err != nil {
		return err
	}
	phase.Status = domain.PhaseActive

	if err := tx.Events().UpdateState(ctx, event.ID, domain.EventActive, phase.Name); err != nil {
		return err
	}

	if phase.ResetScores {
		cleared, err := tx.Scores().DeleteByPhase(ctx, event.ID, phase.ID)
		if err != nil {
			return err
		}
		tr.ScoresCleared = cleared
	}

	tr.NewPhase = phase
	return nil
}

func (s *Service) committed(ctx context.Context, eventID domain.EventID, tr domain.Transition) {
	touched := make([]domain.PhaseID, 0, 2)
	if tr.PreviousPhase != nil {
		touched = append(touched, tr.PreviousPhase.ID)
	}
	if tr.NewPhase != nil {
		touched = append(touched, tr.NewPhase.ID)
	}

	result, kind := "advanced", domain.NotificationPhaseAdvanced
	switch {
	case tr.Finished:
		result, kind = "finished", domain.NotificationEventCompleted
	case tr.PreviousPhase == nil:
		result = "started"
	}

	metrics.ObservePhaseTransition(result)
	metrics.AddScoresCleared(tr.ScoresCleared)
	s.logger.Info("fase avancada", "evento", eventID, "resultado", result, "notas_apagadas", tr.ScoresCleared)
	s.changes.Changed(ctx, kind, eventID, touched...)
}

func (s *Service) fail(eventID domain.EventID, err error) {
	switch {
	case errors.Is(err, domain.ErrConsistency):
		metrics.ObservePhaseTransition("consistency_failure")
		metrics.IncConsistencyFailure("advance_phase")
		logger.Consistency(s.logger, "avanco de fase recusado", "evento", eventID, "err", err)
	case errors.Is(err, domain.ErrPrecondition), errors.Is(err, domain.ErrNotFound):
		metrics.ObservePhaseTransition("rejected")
	default:
		metrics.ObservePhaseTransition("error")
		s.logger.Error("falha ao avancar fase", "evento", eventID, "err", err)
	}
}

// ListPhases devolve as fases do evento por ordem crescente.
func (s *Service) ListPhases(ctx context.Context, eventID domain.EventID) ([]domain.Phase, error) {
	var phases []domain.Phase
	err := s.store.Snapshot(ctx, func(tx domain.Tx) error {
		if _, err := tx.Events().FindByID(ctx, eventID); err != nil {
			return domain.AsNotFound(err, "evento", eventID)
		}
		var err error
		phases, err = tx.Phases().ListByEvent(ctx, eventID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return phases, nil
}

func (s *Service) CurrentPhase(ctx context.Context, eventID domain.EventID) (domain.Phase, error) {
	phases, err := s.ListPhases(ctx, eventID)
	if err != nil {
		return domain.Phase{}, err
	}
	current, ok, err := domain.ActivePhase(phases)
	if err != nil {
		metrics.IncConsistencyFailure("current_phase")
		logger.Consistency(s.logger, "leitura da fase ativa", "evento", eventID, "err", err)
		return domain.Phase{}, err
	}
	if !ok {
		return domain.Phase{}, domain.Precondition("evento %s nao possui fase ativa", eventID)
	}
	return current, nil
}

var _ domain.PhaseService = (*Service)(nil)

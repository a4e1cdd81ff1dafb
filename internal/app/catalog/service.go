// Pacote catalog cadastra eventos, shows, critérios, candidatas e jurados.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcelojr/pageant-scoring/internal/app/changes"
	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/ids"
	"github.com/marcelojr/pageant-scoring/internal/platform/logger"
	"github.com/marcelojr/pageant-scoring/internal/platform/validation"
)

type Service struct {
	store   domain.Store
	changes *changes.Propagator
	clock   domain.Clock
	ids     *ids.Generator
	logger  *slog.Logger
}

func NewService(store domain.Store, propagator *changes.Propagator, clock domain.Clock, idsGen *ids.Generator) *Service {
	if idsGen == nil {
		idsGen = ids.DefaultGenerator()
	}
	return &Service{
		store:   store,
		changes: propagator,
		clock:   clock,
		ids:     idsGen,
		logger:  logger.With("componente", "catalog"),
	}
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func (s *Service) CreateEvent(ctx context.Context, in domain.CreateEventInput) (domain.Event, error) {
	if err := validation.Struct(in); err != nil {
		return domain.Event{}, err
	}
	e := domain.Event{
		ID:     ids.Next[domain.EventID](s.ids),
		Name:   in.Name,
		Status: domain.EventUpcoming,
	}
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		return tx.Events().Create(ctx, e)
	})
	if err != nil {
		return domain.Event{}, err
	}
	s.logger.Info("evento criado", "evento", e.ID)
	return e, nil
}

// DeleteEvent remove o evento com shows, fases, candidatas, jurados e notas.
func (s *Service) DeleteEvent(ctx context.Context, id domain.EventID) error {
	var phaseIDs []domain.PhaseID
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		phases, err := tx.Phases().ListByEvent(ctx, id, true)
		if err != nil {
			return err
		}
		for _, p := range phases {
			phaseIDs = append(phaseIDs, p.ID)
		}
		return domain.AsNotFound(tx.Events().Delete(ctx, id), "evento", id)
	})
	if err != nil {
		return err
	}
	s.changes.Invalidate(ctx, phaseIDs...)
	s.logger.Info("evento removido", "evento", id, "fases", len(phaseIDs))
	return nil
}

// CreateShow cria o show e a sua fase na mesma ordem: cada show vira exatamente uma fase.
func (s *Service) CreateShow(ctx context.Context, in domain.CreateShowInput) (domain.Show, domain.Phase, error) {
	if err := validation.Struct(in); err != nil {
		return domain.Show{}, domain.Phase{}, err
	}

	now := s.now()
	show := domain.Show{
		ID:        ids.Next[domain.ShowID](s.ids),
		EventID:   in.EventID,
		Name:      in.Name,
		Weight:    in.Weight,
		Order:     in.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	phase := domain.Phase{
		ID:          ids.Next[domain.PhaseID](s.ids),
		EventID:     in.EventID,
		ShowID:      show.ID,
		Name:        in.Name,
		Order:       in.Order,
		Status:      domain.PhasePending,
		ResetScores: in.ResetScores,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		event, err := tx.Events().FindByID(ctx, in.EventID)
		if err != nil {
			return domain.AsNotFound(err, "evento", in.EventID)
		}
		if event.Status == domain.EventCompleted {
			return domain.Precondition("evento %s ja foi encerrado", event.ID)
		}
		if err := tx.Shows().Create(ctx, show); err != nil {
			return err
		}
		return tx.Phases().Create(ctx, phase)
	})
	if err != nil {
		return domain.Show{}, domain.Phase{}, err
	}
	return show, phase, nil
}

func (s *Service) CreateCriteria(ctx context.Context, in domain.CreateCriteriaInput) (domain.Criteria, error) {
	if err := validation.Struct(in); err != nil {
		return domain.Criteria{}, err
	}
	c := domain.Criteria{
		ID:       ids.Next[domain.CriteriaID](s.ids),
		ShowID:   in.ShowID,
		Name:     in.Name,
		Weight:   in.Weight,
		MaxScore: in.MaxScore,
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	if c.MaxScore == 0 {
		c.MaxScore = domain.DefaultMaxScore
	}

	var phaseIDs []domain.PhaseID
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		show, err := tx.Shows().FindByID(ctx, in.ShowID)
		if err != nil {
			return domain.AsNotFound(err, "show", in.ShowID)
		}
		phases, err := tx.Phases().ListByEvent(ctx, show.EventID, false)
		if err != nil {
			return err
		}
		for _, p := range phases {
			if p.ShowID == show.ID {
				phaseIDs = append(phaseIDs, p.ID)
			}
		}
		return tx.Criteria().Create(ctx, c)
	})
	if err != nil {
		return domain.Criteria{}, err
	}
	// Critério novo muda o ranking da fase do show.
	s.changes.Invalidate(ctx, phaseIDs...)
	return c, nil
}

// RegisterContestant cadastra a candidata e, havendo fases, a inscreve na primeira.
// Com a primeira fase concluída o cadastro é recusado.
func (s *Service) RegisterContestant(ctx context.Context, in domain.RegisterContestantInput) (domain.Contestant, error) {
	if err := validation.Struct(in); err != nil {
		return domain.Contestant{}, err
	}
	c := domain.Contestant{
		ID:               ids.Next[domain.ContestantID](s.ids),
		EventID:          in.EventID,
		ContestantNumber: in.ContestantNumber,
		Name:             in.Name,
		Status:           domain.ContestantRegistered,
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt

	var enrolled domain.PhaseID
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		if _, err := tx.Events().FindByID(ctx, in.EventID); err != nil {
			return domain.AsNotFound(err, "evento", in.EventID)
		}
		phases, err := tx.Phases().ListByEvent(ctx, in.EventID, true)
		if err != nil {
			return err
		}
		if len(phases) > 0 {
			if err := enrollmentOpen(phases[0]); err != nil {
				return err
			}
		}
		if err := tx.Contestants().Create(ctx, c); err != nil {
			return err
		}
		if len(phases) == 0 {
			return nil
		}
		first := phases[0]
		enrolled = first.ID
		return tx.Participations().Upsert(ctx, []domain.ContestantPhase{{
			ContestantID: c.ID,
			PhaseID:      first.ID,
			Status:       domain.ParticipationActive,
		}})
	})
	if err != nil {
		return domain.Contestant{}, err
	}
	if enrolled != "" {
		s.changes.Invalidate(ctx, enrolled)
	}
	return c, nil
}

// SeedFirstPhase inscreve na primeira fase quem ainda não tem linha nela. Rodar de novo não muda nada.
func (s *Service) SeedFirstPhase(ctx context.Context, eventID domain.EventID) (int, error) {
	var (
		seeded  int
		firstID domain.PhaseID
	)
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		if _, err := tx.Events().FindByID(ctx, eventID); err != nil {
			return domain.AsNotFound(err, "evento", eventID)
		}
		phases, err := tx.Phases().ListByEvent(ctx, eventID, true)
		if err != nil {
			return err
		}
		if len(phases) == 0 {
			return domain.Precondition("evento %s nao possui fases", eventID)
		}
		first := phases[0]
		if err := enrollmentOpen(first); err != nil {
			return err
		}
		firstID = first.ID

		existing, err := tx.Participations().ListByPhase(ctx, first.ID, "")
		if err != nil {
			return err
		}
		has := make(map[domain.ContestantID]bool, len(existing))
		for _, cp := range existing {
			has[cp.ContestantID] = true
		}

		contestants, err := tx.Contestants().ListByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		var rows []domain.ContestantPhase
		for _, c := range contestants {
			if has[c.ID] || c.Status == domain.ContestantEliminated {
				continue
			}
			rows = append(rows, domain.ContestantPhase{
				ContestantID: c.ID,
				PhaseID:      first.ID,
				Status:       domain.ParticipationActive,
			})
		}
		seeded = len(rows)
		return tx.Participations().Upsert(ctx, rows)
	})
	if err != nil {
		return 0, err
	}
	if seeded > 0 {
		s.changes.Invalidate(ctx, firstID)
	}
	s.logger.Info("primeira fase semeada", "evento", eventID, "fase", firstID, "inscritas", seeded)
	return seeded, nil
}

// enrollmentOpen barra inscrições depois que a primeira fase foi encerrada.
func enrollmentOpen(first domain.Phase) error {
	if first.Status == domain.PhaseCompleted {
		return domain.Precondition("inscricoes encerradas: fase %s ja foi concluida", first.ID)
	}
	return nil
}

func (s *Service) RegisterJudge(ctx context.Context, in domain.RegisterJudgeInput) (domain.Judge, error) {
	if err := validation.Struct(in); err != nil {
		return domain.Judge{}, err
	}
	j := domain.Judge{
		ID:             ids.Next[domain.JudgeID](s.ids),
		EventID:        in.EventID,
		UserID:         in.UserID,
		Specialization: in.Specialization,
		CreatedAt:      s.now(),
	}
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		if _, err := tx.Events().FindByID(ctx, in.EventID); err != nil {
			return domain.AsNotFound(err, "evento", in.EventID)
		}
		return tx.Judges().Create(ctx, j)
	})
	if err != nil {
		return domain.Judge{}, err
	}
	return j, nil
}

// DeletePhase remove a fase com suas notas e participações. A fase ativa não pode ser removida.
func (s *Service) DeletePhase(ctx context.Context, id domain.PhaseID) error {
	err := s.store.Transaction(ctx, func(tx domain.Tx) error {
		phase, err := tx.Phases().FindByID(ctx, id, false)
		if err != nil {
			return domain.AsNotFound(err, "fase", id)
		}
		if phase.Status == domain.PhaseActive {
			return domain.Precondition("fase %s esta ativa e nao pode ser removida", phase.Name)
		}
		if _, err := tx.Scores().DeleteByPhase(ctx, phase.EventID, phase.ID); err != nil {
			return err
		}
		if err := tx.Participations().DeleteByPhase(ctx, phase.ID); err != nil {
			return err
		}
		return domain.AsNotFound(tx.Phases().Delete(ctx, phase.ID), "fase", id)
	})
	if err != nil {
		return err
	}
	s.changes.Invalidate(ctx, id)
	return nil
}

var _ domain.CatalogService = (*Service)(nil)

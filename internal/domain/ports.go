package domain

import (
	"context"
	"time"
)

type EventRepository interface {
	Create(ctx context.Context, e Event) error
	FindByID(ctx context.Context, id EventID) (Event, error)
	UpdateState(ctx context.Context, id EventID, status EventStatus, currentPhaseLabel string) error
	Delete(ctx context.Context, id EventID) error
}

type ShowRepository interface {
	Create(ctx context.Context, s Show) error
	FindByID(ctx context.Context, id ShowID) (Show, error)
	ListByIDs(ctx context.Context, ids []ShowID) ([]Show, error)
}

type CriteriaRepository interface {
	Create(ctx context.Context, c Criteria) error
	FindByID(ctx context.Context, id CriteriaID) (Criteria, error)
	ListByShows(ctx context.Context, showIDs []ShowID) ([]Criteria, error)
}

type PhaseRepository interface {
	Create(ctx context.Context, p Phase) error
	// FindByID com lock faz SELECT ... FOR SHARE: espera um avanço de fase em curso e lê o status já confirmado.
	FindByID(ctx context.Context, id PhaseID, lock bool) (Phase, error)
	// ListByEvent devolve as fases por ordem crescente; lock trava as linhas até o fim da transação.
	ListByEvent(ctx context.Context, eventID EventID, lock bool) ([]Phase, error)
	UpdateStatus(ctx context.Context, id PhaseID, status PhaseStatus) error
	Delete(ctx context.Context, id PhaseID) error
}

type ContestantRepository interface {
	Create(ctx context.Context, c Contestant) error
	FindByID(ctx context.Context, id ContestantID) (Contestant, error)
	ListByEvent(ctx context.Context, eventID EventID) ([]Contestant, error)
	ListByIDs(ctx context.Context, ids []ContestantID) ([]Contestant, error)
	UpdateStatus(ctx context.Context, ids []ContestantID, status ContestantStatus) error
}

// ParticipationRepository guarda a relação ContestantPhase.
type ParticipationRepository interface {
	Upsert(ctx context.Context, cps []ContestantPhase) error
	Find(ctx context.Context, contestantID ContestantID, phaseID PhaseID) (ContestantPhase, error)
	ListByPhase(ctx context.Context, phaseID PhaseID, status ParticipationStatus) ([]ContestantPhase, error)
	UpdateStatus(ctx context.Context, phaseID PhaseID, contestantIDs []ContestantID, status ParticipationStatus) error
	DeleteByPhase(ctx context.Context, phaseID PhaseID) error
}

type JudgeRepository interface {
	Create(ctx context.Context, j Judge) error
	FindByID(ctx context.Context, id JudgeID) (Judge, error)
}

type ScoreRepository interface {
	// Upsert grava a nota pela tupla (candidata, jurado, critério, fase) e devolve a linha final.
	Upsert(ctx context.Context, s Score) (Score, error)
	ListByPhase(ctx context.Context, phaseID PhaseID) ([]Score, error)
	ListByJudge(ctx context.Context, phaseID PhaseID, judgeID JudgeID) ([]Score, error)
	DeleteByPhase(ctx context.Context, eventID EventID, phaseID PhaseID) (int64, error)
}

// Tx expõe todos os repositórios ligados à mesma transação.
type Tx interface {
	Events() EventRepository
	Shows() ShowRepository
	Criteria() CriteriaRepository
	Phases() PhaseRepository
	Contestants() ContestantRepository
	Participations() ParticipationRepository
	Judges() JudgeRepository
	Scores() ScoreRepository
}

type Store interface {
	// Transaction executa fn como unidade atômica; qualquer erro desfaz tudo.
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	// Snapshot executa leituras sobre uma visão consistente do banco.
	Snapshot(ctx context.Context, fn func(tx Tx) error) error
}

// ResultsCache guarda rankings calculados por fase.
// Cada Invalidate avança a geração da fase; Set só grava se a geração lida antes do cálculo
// ainda for a atual, então um ranking calculado antes de uma escrita nunca sobrescreve a invalidação.
type ResultsCache interface {
	Get(ctx context.Context, phaseID PhaseID) ([]Result, bool, error)
	Generation(ctx context.Context, phaseID PhaseID) (int64, error)
	Set(ctx context.Context, phaseID PhaseID, generation int64, results []Result) (bool, error)
	Invalidate(ctx context.Context, phaseIDs ...PhaseID) error
}

type NotificationKind string

const (
	NotificationScoreSubmitted      NotificationKind = "score.submitted"
	NotificationPhaseAdvanced       NotificationKind = "phase.advanced"
	NotificationEventCompleted      NotificationKind = "event.completed"
	NotificationContestantsAdvanced NotificationKind = "contestants.advanced"
)

type Notification struct {
	Kind       NotificationKind `json:"kind"`
	EventID    EventID          `json:"eventId"`
	PhaseIDs   []PhaseID        `json:"phaseIds"`
	OccurredAt time.Time        `json:"occurredAt"`
}

type Notifier interface {
	Publish(ctx context.Context, n Notification) error
	Consume(ctx context.Context, handler func(context.Context, Notification) error) error
}

// SubmissionGuard barra rajadas de notas de um mesmo jurado.
type SubmissionGuard interface {
	Allow(ctx context.Context, judgeID JudgeID) error
}

type Clock interface {
	Now() time.Time
}

type ScoringService interface {
	SubmitScore(ctx context.Context, in SubmitScoreInput) (Score, error)
	ComputeResults(ctx context.Context, eventID EventID, phaseID PhaseID) ([]Result, error)
	JudgeProgress(ctx context.Context, eventID EventID, judgeID JudgeID) (Progress, error)
	EligibleContestants(ctx context.Context, phaseID PhaseID) ([]Contestant, error)
	ListJudgeScores(ctx context.Context, phaseID PhaseID, judgeID JudgeID) ([]Score, error)
}

type PhaseService interface {
	AdvancePhase(ctx context.Context, eventID EventID) (Transition, error)
	ListPhases(ctx context.Context, eventID EventID) ([]Phase, error)
	CurrentPhase(ctx context.Context, eventID EventID) (Phase, error)
}

type ProgressionService interface {
	AdvanceContestants(ctx context.Context, eventID EventID, selected []ContestantID) (AdvanceResult, error)
}

type CatalogService interface {
	CreateEvent(ctx context.Context, in CreateEventInput) (Event, error)
	DeleteEvent(ctx context.Context, id EventID) error
	CreateShow(ctx context.Context, in CreateShowInput) (Show, Phase, error)
	CreateCriteria(ctx context.Context, in CreateCriteriaInput) (Criteria, error)
	RegisterContestant(ctx context.Context, in RegisterContestantInput) (Contestant, error)
	SeedFirstPhase(ctx context.Context, eventID EventID) (int, error)
	RegisterJudge(ctx context.Context, in RegisterJudgeInput) (Judge, error)
	DeletePhase(ctx context.Context, id PhaseID) error
}

type SubmitScoreInput struct {
	ContestantID ContestantID `json:"contestantId" validate:"required"`
	JudgeID      JudgeID      `json:"judgeId" validate:"required"`
	CriteriaID   CriteriaID   `json:"criteriaId" validate:"required"`
	PhaseID      PhaseID      `json:"phaseId" validate:"required"`
	Score        float64      `json:"score"`
}

type CreateEventInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

type CreateShowInput struct {
	EventID     EventID `json:"eventId" validate:"required"`
	Name        string  `json:"name" validate:"required,max=200"`
	Weight      float64 `json:"weight" validate:"gte=0,lte=100"`
	Order       int     `json:"order" validate:"gte=1"`
	ResetScores bool    `json:"resetScores"`
}

type CreateCriteriaInput struct {
	ShowID   ShowID  `json:"showId" validate:"required"`
	Name     string  `json:"name" validate:"required,max=200"`
	Weight   float64 `json:"weight" validate:"gte=0,lte=100"`
	MaxScore float64 `json:"maxScore" validate:"omitempty,gte=1"`
}

type RegisterContestantInput struct {
	EventID          EventID `json:"eventId" validate:"required"`
	ContestantNumber int     `json:"contestantNumber" validate:"gte=1"`
	Name             string  `json:"name" validate:"max=200"`
}

type RegisterJudgeInput struct {
	EventID        EventID `json:"eventId" validate:"required"`
	UserID         string  `json:"userId" validate:"required"`
	Specialization string  `json:"specialization" validate:"max=200"`
}

package domain

import (
	"time"
)

type (
	EventID      string
	ShowID       string
	CriteriaID   string
	PhaseID      string
	ContestantID string
	JudgeID      string
	ScoreID      string
)

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
)

type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
)

type ContestantStatus string

const (
	ContestantRegistered ContestantStatus = "registered"
	ContestantActive     ContestantStatus = "active"
	ContestantEliminated ContestantStatus = "eliminated"
)

type ParticipationStatus string

const (
	ParticipationActive     ParticipationStatus = "active"
	ParticipationEliminated ParticipationStatus = "eliminated"
)

// DefaultMaxScore é usado quando o critério é criado sem nota máxima.
const DefaultMaxScore = 10

type Event struct {
	ID                EventID      `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	Name              string       `gorm:"column:name;type:text;not null" json:"name"`
	Status            EventStatus  `gorm:"column:status;type:varchar(16);not null;default:upcoming" json:"status"`
	CurrentPhaseLabel string       `gorm:"column:current_phase_label;type:text" json:"currentPhaseLabel"`
	Shows             []Show       `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	Phases            []Phase      `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	Contestants       []Contestant `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	Judges            []Judge      `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt         time.Time    `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time    `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

type Show struct {
	ID        ShowID     `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	EventID   EventID    `gorm:"column:event_id;type:char(26);not null;index" json:"eventId"`
	Name      string     `gorm:"column:name;type:text;not null" json:"name"`
	Weight    float64    `gorm:"column:weight;not null;default:0" json:"weight"`
	Order     int        `gorm:"column:order;not null" json:"order"`
	Criteria  []Criteria `gorm:"foreignKey:ShowID;constraint:OnDelete:CASCADE" json:"criteria,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

type Criteria struct {
	ID        CriteriaID `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	ShowID    ShowID     `gorm:"column:show_id;type:char(26);not null;index" json:"showId"`
	Name      string     `gorm:"column:name;type:text;not null" json:"name"`
	Weight    float64    `gorm:"column:weight;not null;default:0" json:"weight"`
	MaxScore  float64    `gorm:"column:max_score;not null;default:10" json:"maxScore"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

type Phase struct {
	ID          PhaseID     `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	EventID     EventID     `gorm:"column:event_id;type:char(26);not null;uniqueIndex:idx_phases_event_order,priority:1" json:"eventId"`
	ShowID      ShowID      `gorm:"column:show_id;type:char(26);not null;index" json:"showId"`
	Name        string      `gorm:"column:name;type:text;not null" json:"name"`
	Order       int         `gorm:"column:order;not null;uniqueIndex:idx_phases_event_order,priority:2" json:"order"`
	Status      PhaseStatus `gorm:"column:status;type:varchar(16);not null;default:pending" json:"status"`
	ResetScores bool        `gorm:"column:reset_scores;not null;default:false" json:"resetScores"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

type Contestant struct {
	ID               ContestantID     `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	EventID          EventID          `gorm:"column:event_id;type:char(26);not null;uniqueIndex:idx_contestants_event_number,priority:1" json:"eventId"`
	ContestantNumber int              `gorm:"column:contestant_number;not null;uniqueIndex:idx_contestants_event_number,priority:2" json:"contestantNumber"`
	Name             string           `gorm:"column:name;type:text" json:"name"`
	Status           ContestantStatus `gorm:"column:status;type:varchar(16);not null;default:registered" json:"status"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// ContestantPhase é a fonte de verdade da elegibilidade de uma candidata numa fase.
type ContestantPhase struct {
	ContestantID      ContestantID        `gorm:"column:contestant_id;type:char(26);primaryKey" json:"contestantId"`
	PhaseID           PhaseID             `gorm:"column:phase_id;type:char(26);primaryKey;index" json:"phaseId"`
	Status            ParticipationStatus `gorm:"column:status;type:varchar(16);not null;default:active" json:"status"`
	Rank              *int                `gorm:"column:rank" json:"rank,omitempty"`
	AdvancedFromPhase *PhaseID            `gorm:"column:advanced_from_phase;type:char(26)" json:"advancedFromPhase,omitempty"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

type Judge struct {
	ID             JudgeID   `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	EventID        EventID   `gorm:"column:event_id;type:char(26);not null;uniqueIndex:idx_judges_user_event,priority:2" json:"eventId"`
	UserID         string    `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_judges_user_event,priority:1" json:"userId"`
	Specialization string    `gorm:"column:specialization;type:text" json:"specialization"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

type Score struct {
	ID           ScoreID      `gorm:"column:id;type:char(26);primaryKey" json:"id"`
	EventID      EventID      `gorm:"column:event_id;type:char(26);not null;index:idx_scores_event_phase,priority:1" json:"eventId"`
	ContestantID ContestantID `gorm:"column:contestant_id;type:char(26);not null;uniqueIndex:idx_scores_tuple,priority:1" json:"contestantId"`
	JudgeID      JudgeID      `gorm:"column:judge_id;type:char(26);not null;uniqueIndex:idx_scores_tuple,priority:2" json:"judgeId"`
	ShowID       ShowID       `gorm:"column:show_id;type:char(26);not null;index" json:"showId"`
	CriteriaID   CriteriaID   `gorm:"column:criteria_id;type:char(26);not null;uniqueIndex:idx_scores_tuple,priority:3" json:"criteriaId"`
	PhaseID      PhaseID      `gorm:"column:phase_id;type:char(26);not null;uniqueIndex:idx_scores_tuple,priority:4;index:idx_scores_event_phase,priority:2" json:"phaseId"`
	Value        float64      `gorm:"column:score;not null" json:"score"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

// CriterionBreakdown detalha a contribuição de um critério para o total da fase.
type CriterionBreakdown struct {
	CriteriaID   CriteriaID `json:"criteriaId"`
	ShowID       ShowID     `json:"showId"`
	Name         string     `json:"name"`
	MeanScore    float64    `json:"meanScore"`
	JudgeCount   int        `json:"judgeCount"`
	Contribution float64    `json:"contribution"`
}

type ShowTotal struct {
	ShowID ShowID  `json:"showId"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

type Result struct {
	ContestantID     ContestantID         `json:"contestantId"`
	ContestantNumber int                  `json:"contestantNumber"`
	Name             string               `json:"name"`
	TotalScore       float64              `json:"totalScore"`
	Rank             int                  `json:"rank"`
	Shows            []ShowTotal          `json:"shows"`
	Breakdown        []CriterionBreakdown `json:"perCriterionBreakdown"`
}

type Progress struct {
	EventID       EventID `json:"eventId"`
	JudgeID       JudgeID `json:"judgeId"`
	PhaseID       PhaseID `json:"phaseId,omitempty"`
	TotalRequired int     `json:"totalRequired"`
	Completed     int     `json:"completed"`
	Percent       float64 `json:"progress"`
}

// Transition descreve o resultado de um avanço de fase.
type Transition struct {
	Message       string `json:"message"`
	PreviousPhase *Phase `json:"previousPhase,omitempty"`
	NewPhase      *Phase `json:"newPhase,omitempty"`
	Finished      bool   `json:"finished"`
	ScoresCleared int64  `json:"scoresCleared"`
}

type AdvanceResult struct {
	AdvancedCount   int     `json:"advancedCount"`
	EliminatedCount int     `json:"eliminatedCount"`
	FromPhaseID     PhaseID `json:"fromPhaseId"`
	ToPhaseID       PhaseID `json:"toPhaseId"`
}

func (Event) TableName() string { return "events" }

func (Show) TableName() string { return "shows" }

func (Criteria) TableName() string { return "criteria" }

func (Phase) TableName() string { return "phases" }

func (Contestant) TableName() string { return "contestants" }

func (ContestantPhase) TableName() string { return "contestant_phases" }

func (Judge) TableName() string { return "judges" }

func (Score) TableName() string { return "scores" }

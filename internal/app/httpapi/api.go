// Pacote httpapi expõe os handlers REST e traduz requisições HTTP para os serviços do concurso.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/ids"
	"github.com/marcelojr/pageant-scoring/internal/platform/ratelimit"
)

const maxBodyBytes = 1 << 20

// Services agrupa os serviços que a API atende; cada handler usa só o que precisa.
type Services struct {
	Scoring     domain.ScoringService
	Phases      domain.PhaseService
	Progression domain.ProgressionService
	Catalog     domain.CatalogService
}

// API empacota handlers HTTP ligados aos serviços e ao logger.
type API struct {
	services    Services
	judgeHeader string
	logger      *slog.Logger
}

// New monta a API; judgeHeader é o cabeçalho com o jurado autenticado pelo gateway.
func New(services Services, judgeHeader string, logger *slog.Logger) *API {
	if judgeHeader == "" {
		judgeHeader = "X-Judge-ID"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{services: services, judgeHeader: judgeHeader, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", a.handleHealthz)

	mux.HandleFunc("GET /events/{eventID}/phases", comIDs(a.listarFases))
	mux.HandleFunc("GET /events/{eventID}/phases/current", comIDs(a.obterFaseAtual))
	mux.HandleFunc("GET /events/{eventID}/phases/{phaseID}/results", comIDs(a.obterResultados))
	mux.HandleFunc("POST /events/{eventID}/advance-phase", comIDs(a.avancarFase))
	mux.HandleFunc("POST /events/{eventID}/advance-contestants", comIDs(a.avancarCandidatas))
	mux.HandleFunc("GET /events/{eventID}/progress", comIDs(a.obterProgresso))

	mux.HandleFunc("GET /phases/{phaseID}/contestants", comIDs(a.listarElegiveis))
	mux.HandleFunc("GET /phases/{phaseID}/scores", comIDs(a.listarNotasDoJurado))
	mux.HandleFunc("POST /scores", a.submeterNota)

	mux.HandleFunc("POST /events", a.criarEvento)
	mux.HandleFunc("DELETE /events/{eventID}", comIDs(a.removerEvento))
	mux.HandleFunc("POST /events/{eventID}/shows", comIDs(a.criarShow))
	mux.HandleFunc("POST /shows/{showID}/criteria", comIDs(a.criarCriterio))
	mux.HandleFunc("POST /events/{eventID}/contestants", comIDs(a.cadastrarCandidata))
	mux.HandleFunc("POST /events/{eventID}/judges", comIDs(a.cadastrarJurado))
	mux.HandleFunc("POST /events/{eventID}/seed", comIDs(a.semearPrimeiraFase))
	mux.HandleFunc("DELETE /phases/{phaseID}", comIDs(a.removerFase))
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// === Pontuação ===

type notaRequest struct {
	ContestantID domain.ContestantID `json:"contestantId"`
	CriteriaID   domain.CriteriaID   `json:"criteriaId"`
	PhaseID      domain.PhaseID      `json:"phaseId"`
	Score        float64             `json:"score"`
}

func (a *API) submeterNota(w http.ResponseWriter, r *http.Request) {
	judgeID, ok := a.jurado(w, r)
	if !ok {
		return
	}

	var req notaRequest
	if !a.decodificar(w, r, &req) {
		return
	}

	score, err := a.services.Scoring.SubmitScore(r.Context(), domain.SubmitScoreInput{
		ContestantID: req.ContestantID,
		JudgeID:      judgeID,
		CriteriaID:   req.CriteriaID,
		PhaseID:      req.PhaseID,
		Score:        req.Score,
	})
	if err != nil {
		a.responderErro(w, err, "falha ao registrar nota", "jurado", judgeID, "fase", req.PhaseID)
		return
	}

	responderJSON(w, http.StatusOK, score)
}

func (a *API) obterResultados(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(r.PathValue("eventID"))
	phaseID := domain.PhaseID(r.PathValue("phaseID"))

	results, err := a.services.Scoring.ComputeResults(r.Context(), eventID, phaseID)
	if err != nil {
		a.responderErro(w, err, "erro ao calcular resultados", "evento", eventID, "fase", phaseID)
		return
	}

	responderJSON(w, http.StatusOK, orEmpty(results))
}

func (a *API) obterProgresso(w http.ResponseWriter, r *http.Request) {
	judgeID, ok := a.jurado(w, r)
	if !ok {
		return
	}
	eventID := domain.EventID(r.PathValue("eventID"))

	progress, err := a.services.Scoring.JudgeProgress(r.Context(), eventID, judgeID)
	if err != nil {
		a.responderErro(w, err, "erro ao obter progresso", "evento", eventID, "jurado", judgeID)
		return
	}

	responderJSON(w, http.StatusOK, progress)
}

func (a *API) listarElegiveis(w http.ResponseWriter, r *http.Request) {
	phaseID := domain.PhaseID(r.PathValue("phaseID"))

	contestants, err := a.services.Scoring.EligibleContestants(r.Context(), phaseID)
	if err != nil {
		a.responderErro(w, err, "erro ao listar candidatas", "fase", phaseID)
		return
	}

	responderJSON(w, http.StatusOK, orEmpty(contestants))
}

func (a *API) listarNotasDoJurado(w http.ResponseWriter, r *http.Request) {
	judgeID, ok := a.jurado(w, r)
	if !ok {
		return
	}
	phaseID := domain.PhaseID(r.PathValue("phaseID"))

	scores, err := a.services.Scoring.ListJudgeScores(r.Context(), phaseID, judgeID)
	if err != nil {
		a.responderErro(w, err, "erro ao listar notas", "fase", phaseID, "jurado", judgeID)
		return
	}

	responderJSON(w, http.StatusOK, orEmpty(scores))
}

// === Fases e progressão ===

func (a *API) listarFases(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(r.PathValue("eventID"))

	phases, err := a.services.Phases.ListPhases(r.Context(), eventID)
	if err != nil {
		a.responderErro(w, err, "erro ao listar fases", "evento", eventID)
		return
	}

	responderJSON(w, http.StatusOK, orEmpty(phases))
}

func (a *API) obterFaseAtual(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(r.PathValue("eventID"))

	phase, err := a.services.Phases.CurrentPhase(r.Context(), eventID)
	if err != nil {
		a.responderErro(w, err, "erro ao obter fase atual", "evento", eventID)
		return
	}

	responderJSON(w, http.StatusOK, phase)
}

func (a *API) avancarFase(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(r.PathValue("eventID"))

	transition, err := a.services.Phases.AdvancePhase(r.Context(), eventID)
	if err != nil {
		a.responderErro(w, err, "falha ao avancar fase", "evento", eventID)
		return
	}

	responderJSON(w, http.StatusOK, transition)
}

type avancoRequest struct {
	ContestantIDs []domain.ContestantID `json:"contestantIds"`
}

func (a *API) avancarCandidatas(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(r.PathValue("eventID"))

	var req avancoRequest
	if !a.decodificar(w, r, &req) {
		return
	}

	result, err := a.services.Progression.AdvanceContestants(r.Context(), eventID, req.ContestantIDs)
	if err != nil {
		a.responderErro(w, err, "falha ao avancar candidatas", "evento", eventID, "selecionadas", len(req.ContestantIDs))
		return
	}

	responderJSON(w, http.StatusOK, result)
}

// === Cadastro ===

func (a *API) criarEvento(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateEventInput
	if !a.decodificar(w, r, &in) {
		return
	}

	event, err := a.services.Catalog.CreateEvent(r.Context(), in)
	if err != nil {
		a.responderErro(w, err, "falha ao criar evento")
		return
	}

	responderJSON(w, http.StatusCreated, event)
}

func (a *API) removerEvento(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(r.PathValue("eventID"))

	if err := a.services.Catalog.DeleteEvent(r.Context(), eventID); err != nil {
		a.responderErro(w, err, "falha ao remover evento", "evento", eventID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type showResponse struct {
	Show  domain.Show  `json:"show"`
	Phase domain.Phase `json:"phase"`
}

func (a *API) criarShow(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateShowInput
	if !a.decodificar(w, r, &in) {
		return
	}
	in.EventID = domain.EventID(r.PathValue("eventID"))

	show, phase, err := a.services.Catalog.CreateShow(r.Context(), in)
	if err != nil {
		a.responderErro(w, err, "falha ao criar show", "evento", in.EventID)
		return
	}

	responderJSON(w, http.StatusCreated, showResponse{Show: show, Phase: phase})
}

func (a *API) criarCriterio(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateCriteriaInput
	if !a.decodificar(w, r, &in) {
		return
	}
	in.ShowID = domain.ShowID(r.PathValue("showID"))

	criteria, err := a.services.Catalog.CreateCriteria(r.Context(), in)
	if err != nil {
		a.responderErro(w, err, "falha ao criar criterio", "show", in.ShowID)
		return
	}

	responderJSON(w, http.StatusCreated, criteria)
}

func (a *API) cadastrarCandidata(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterContestantInput
	if !a.decodificar(w, r, &in) {
		return
	}
	in.EventID = domain.EventID(r.PathValue("eventID"))

	contestant, err := a.services.Catalog.RegisterContestant(r.Context(), in)
	if err != nil {
		a.responderErro(w, err, "falha ao cadastrar candidata", "evento", in.EventID)
		return
	}

	responderJSON(w, http.StatusCreated, contestant)
}

func (a *API) cadastrarJurado(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterJudgeInput
	if !a.decodificar(w, r, &in) {
		return
	}
	in.EventID = domain.EventID(r.PathValue("eventID"))

	judge, err := a.services.Catalog.RegisterJudge(r.Context(), in)
	if err != nil {
		a.responderErro(w, err, "falha ao cadastrar jurado", "evento", in.EventID)
		return
	}

	responderJSON(w, http.StatusCreated, judge)
}

func (a *API) semearPrimeiraFase(w http.ResponseWriter, r *http.Request) {
	eventID := domain.EventID(r.PathValue("eventID"))

	seeded, err := a.services.Catalog.SeedFirstPhase(r.Context(), eventID)
	if err != nil {
		a.responderErro(w, err, "falha ao semear primeira fase", "evento", eventID)
		return
	}

	responderJSON(w, http.StatusOK, map[string]int{"seeded": seeded})
}

func (a *API) removerFase(w http.ResponseWriter, r *http.Request) {
	phaseID := domain.PhaseID(r.PathValue("phaseID"))

	if err := a.services.Catalog.DeletePhase(r.Context(), phaseID); err != nil {
		a.responderErro(w, err, "falha ao remover fase", "fase", phaseID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// === Auxiliares ===

var pathIDs = []string{"eventID", "phaseID", "showID"}

// comIDs recusa com 400 IDs de rota fora do formato ULID antes de chegar ao serviço.
func comIDs(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, name := range pathIDs {
			if v := r.PathValue(name); v != "" && !ids.Valid(v) {
				responderJSON(w, http.StatusBadRequest, map[string]string{"erro": name + " invalido"})
				return
			}
		}
		next(w, r)
	}
}

func (a *API) jurado(w http.ResponseWriter, r *http.Request) (domain.JudgeID, bool) {
	id := r.Header.Get(a.judgeHeader)
	if id == "" {
		responderJSON(w, http.StatusUnauthorized, map[string]string{"erro": "jurado nao identificado"})
		return "", false
	}
	return domain.JudgeID(id), true
}

func (a *API) decodificar(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.logger.Warn("payload invalido", "err", err, "rota", r.URL.Path)
		http.Error(w, "payload invalido", http.StatusBadRequest)
		return false
	}
	return true
}

func responderJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// responderErro devolve a mensagem do domínio; falhas internas saem com texto genérico.
func (a *API) responderErro(w http.ResponseWriter, err error, msg string, attrs ...any) {
	status := statusFromError(err)
	attrs = append(attrs, "err", err, "status", status)

	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(exceeded.RetryAfter.Seconds()))))
	}

	if status == http.StatusInternalServerError {
		a.logger.Error(msg, attrs...)
		responderJSON(w, status, map[string]string{"erro": "algo deu errado"})
		return
	}

	a.logger.Warn(msg, attrs...)
	responderJSON(w, status, map[string]string{"erro": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

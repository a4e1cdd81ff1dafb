package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoreSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageant_score_submissions_total",
		Help: "Total de notas submetidas por jurados, por status",
	}, []string{"status"})

	phaseTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageant_phase_transitions_total",
		Help: "Total de avancos de fase, por resultado",
	}, []string{"result"})

	scoresClearedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pageant_scores_cleared_total",
		Help: "Notas apagadas pela politica de reset ao ativar uma fase",
	})

	contestantsAdvancedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageant_contestants_progression_total",
		Help: "Candidatas classificadas ou eliminadas na progressao",
	}, []string{"outcome"})

	resultsDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pageant_results_compute_duration_seconds",
		Help:    "Tempo para calcular o ranking de uma fase",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	consistencyFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageant_consistency_failures_total",
		Help: "Falhas de consistencia detectadas (ex.: mais de uma fase ativa)",
	}, []string{"operation"})

	notificationsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pageant_notifications_processed_total",
		Help: "Notificacoes consumidas pelo worker",
	}, []string{"kind", "status"})
)

func ObserveScoreSubmission(status string) {
	scoreSubmissionsTotal.WithLabelValues(status).Inc()
}

func ObservePhaseTransition(result string) {
	phaseTransitionsTotal.WithLabelValues(result).Inc()
}

func AddScoresCleared(n int64) {
	if n > 0 {
		scoresClearedTotal.Add(float64(n))
	}
}

func ObserveProgression(advanced, eliminated int) {
	contestantsAdvancedTotal.WithLabelValues("advanced").Add(float64(advanced))
	contestantsAdvancedTotal.WithLabelValues("eliminated").Add(float64(eliminated))
}

// ObserveResults registra a duração do ranking; source distingue cache de cálculo.
func ObserveResults(source string, seconds float64) {
	resultsDuration.WithLabelValues(source).Observe(seconds)
}

func IncConsistencyFailure(operation string) {
	consistencyFailuresTotal.WithLabelValues(operation).Inc()
}

func IncNotificationProcessed(kind, status string) {
	notificationsProcessedTotal.WithLabelValues(kind, status).Inc()
}

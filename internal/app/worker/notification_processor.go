// Pacote worker contém o processamento assíncrono das notificações que chegam pela fila Redis.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/metrics"
)

// ResultsWarmer recalcula e grava no cache o ranking de uma fase.
type ResultsWarmer interface {
	WarmResults(ctx context.Context, phaseID domain.PhaseID) ([]domain.Result, error)
}

// NotificationProcessor reaquece o cache de rankings das fases citadas em cada notificação.
type NotificationProcessor struct {
	warmer ResultsWarmer
	logger *slog.Logger
}

func NewNotificationProcessor(warmer ResultsWarmer, logger *slog.Logger) *NotificationProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationProcessor{warmer: warmer, logger: logger}
}

func (p *NotificationProcessor) Process(ctx context.Context, n domain.Notification) error {
	start := time.Now()
	kind := string(n.Kind)

	var errs []error
	warmed := 0
	for _, phaseID := range n.PhaseIDs {
		results, err := p.warmer.WarmResults(ctx, phaseID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Fase removida depois da notificação: nada a aquecer.
			p.logger.Info("fase da notificacao nao existe mais", "fase", phaseID, "tipo", kind)
		case err != nil:
			errs = append(errs, fmt.Errorf("worker: aquecer ranking da fase %s: %w", phaseID, err))
		default:
			warmed++
			p.logger.Debug("ranking aquecido", "fase", phaseID, "candidatas", len(results))
		}
	}

	if err := errors.Join(errs...); err != nil {
		metrics.IncNotificationProcessed(kind, "error")
		return err
	}

	metrics.IncNotificationProcessed(kind, "ok")
	p.logger.Info("notificacao processada",
		"tipo", kind,
		"evento", n.EventID,
		"fases", warmed,
		"duracao_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

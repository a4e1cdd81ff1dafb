// Pacote changes propaga, depois do commit, o efeito de uma escrita: invalida o cache de rankings e avisa o worker.
package changes

import (
	"context"
	"log/slog"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// Propagator é tolerante a falhas: a escrita já foi confirmada, então erros aqui só viram log.
type Propagator struct {
	cache    domain.ResultsCache
	notifier domain.Notifier
	clock    domain.Clock
	logger   *slog.Logger
}

func NewPropagator(cache domain.ResultsCache, notifier domain.Notifier, clock domain.Clock, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{cache: cache, notifier: notifier, clock: clock, logger: logger}
}

// Changed invalida os rankings das fases e publica a notificação para o worker.
func (p *Propagator) Changed(ctx context.Context, kind domain.NotificationKind, eventID domain.EventID, phaseIDs ...domain.PhaseID) {
	if p == nil {
		return
	}
	p.Invalidate(ctx, phaseIDs...)
	if p.notifier != nil {
		n := domain.Notification{Kind: kind, EventID: eventID, PhaseIDs: phaseIDs}
		if p.clock != nil {
			n.OccurredAt = p.clock.Now()
		}
		if err := p.notifier.Publish(ctx, n); err != nil {
			p.logger.Warn("falha ao publicar notificacao", "err", err, "tipo", kind, "evento", eventID)
		}
	}
}

// Invalidate só derruba o cache; usado quando as fases deixam de existir.
func (p *Propagator) Invalidate(ctx context.Context, phaseIDs ...domain.PhaseID) {
	if p == nil || p.cache == nil || len(phaseIDs) == 0 {
		return
	}
	if err := p.cache.Invalidate(ctx, phaseIDs...); err != nil {
		p.logger.Warn("falha ao invalidar cache de resultados", "err", err, "fases", phaseIDs)
	}
}

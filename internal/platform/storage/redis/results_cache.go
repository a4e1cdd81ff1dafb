package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// ResultsCache guarda o ranking serializado de cada fase e um contador de geração por fase.
// Invalidate incrementa a geração antes de apagar o ranking; Set observa a geração com WATCH
// e desiste se ela mudou desde a leitura feita pelo chamador.
type ResultsCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewResultsCache(client *redis.Client, prefix string, ttl time.Duration) *ResultsCache {
	return &ResultsCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *ResultsCache) Get(ctx context.Context, phaseID domain.PhaseID) ([]domain.Result, bool, error) {
	raw, err := c.client.Get(ctx, c.key(phaseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis resultados: ler %s: %w", phaseID, err)
	}

	var results []domain.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, fmt.Errorf("redis resultados: payload invalido para %s: %w", phaseID, err)
	}
	return results, true, nil
}

// Generation devolve zero para fases nunca invalidadas.
func (c *ResultsCache) Generation(ctx context.Context, phaseID domain.PhaseID) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(phaseID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis resultados: ler geracao de %s: %w", phaseID, err)
	}
	return gen, nil
}

func (c *ResultsCache) Set(ctx context.Context, phaseID domain.PhaseID, generation int64, results []domain.Result) (bool, error) {
	payload, err := json.Marshal(results)
	if err != nil {
		return false, fmt.Errorf("redis resultados: serializar %s: %w", phaseID, err)
	}

	genKey := c.genKey(phaseID)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}

		// TTL zero mantém a chave até a próxima invalidação.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(phaseID), payload, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)

	if errors.Is(err, redis.TxFailedErr) {
		// Invalidate concorrente entre o GET e o EXEC.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis resultados: gravar %s: %w", phaseID, err)
	}
	return stored, nil
}

func (c *ResultsCache) Invalidate(ctx context.Context, phaseIDs ...domain.PhaseID) error {
	if len(phaseIDs) == 0 {
		return nil
	}
	keys := make([]string, len(phaseIDs))
	for i, id := range phaseIDs {
		keys[i] = c.key(id)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range phaseIDs {
			pipe.Incr(ctx, c.genKey(id))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis resultados: invalidar: %w", err)
	}
	return nil
}

func (c *ResultsCache) key(phaseID domain.PhaseID) string {
	if c.prefix == "" {
		return fmt.Sprintf("fase:%s", phaseID)
	}
	return fmt.Sprintf("%s:fase:%s", c.prefix, phaseID)
}

func (c *ResultsCache) genKey(phaseID domain.PhaseID) string {
	if c.prefix == "" {
		return fmt.Sprintf("gen:fase:%s", phaseID)
	}
	return fmt.Sprintf("%s:gen:fase:%s", c.prefix, phaseID)
}

var _ domain.ResultsCache = (*ResultsCache)(nil)

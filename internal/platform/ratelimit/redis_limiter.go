// Pacote ratelimit limita rajadas de notas por jurado em janelas fixas alinhadas ao relógio.
package ratelimit

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

var ErrRateLimitExceeded = errors.New("limite de notas por minuto atingido")

// ExceededError diz quanto falta para a janela atual do jurado virar.
type ExceededError struct {
	JudgeID    domain.JudgeID
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string { return ErrRateLimitExceeded.Error() }

func (e *ExceededError) Unwrap() error { return ErrRateLimitExceeded }

// RedisRateLimiter conta submissões por jurado. Cada janela tem chave própria, então a
// virada não depende de a expiração ter sido gravada.
type RedisRateLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
	clock     domain.Clock
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string, clock domain.Clock) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: prefix,
		clock:     clock,
	}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, judgeID domain.JudgeID) error {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		// Configurações inválidas caem automaticamente no modo permissivo.
		return nil
	}

	now := r.now()
	start := now.Truncate(r.window)
	remaining := start.Add(r.window).Sub(now)
	key := r.buildKey(judgeID, start)

	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, remaining)
		return nil
	})
	if err != nil {
		return fmt.Errorf("ratelimit: falha ao contar nota: %w", err)
	}

	if int(count.Val()) > r.limit {
		return &ExceededError{JudgeID: judgeID, RetryAfter: remaining}
	}
	return nil
}

func (r *RedisRateLimiter) buildKey(judgeID domain.JudgeID, windowStart time.Time) string {
	hash := sha1.Sum([]byte("notas|" + string(judgeID)))
	return fmt.Sprintf("%s:%s:%d", r.keyPrefix, hex.EncodeToString(hash[:]), windowStart.Unix())
}

func (r *RedisRateLimiter) now() time.Time {
	if r.clock == nil {
		return time.Now().UTC()
	}
	return r.clock.Now()
}

var _ domain.SubmissionGuard = (*RedisRateLimiter)(nil)

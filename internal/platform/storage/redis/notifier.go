package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// Notifier usa listas Redis como fila de notificações para o worker.
//
// Cada mensagem consumida passa por <key>:processando até o handler confirmar; se o
// worker cair no meio, o próximo Consume devolve essas mensagens para a fila.
// Payloads que não decodificam vão para <key>:invalidas e o consumo segue.
type Notifier struct {
	client  *redis.Client
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

func NewNotifier(client *redis.Client, key string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		client:  client,
		key:     key,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

func (n *Notifier) Publish(ctx context.Context, notification domain.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("redis fila: falha serializando notificacao: %w", err)
	}
	if err := n.client.LPush(ctx, n.key, payload).Err(); err != nil {
		return fmt.Errorf("redis fila: falha ao enfileirar notificacao: %w", err)
	}
	return nil
}

// Consume entrega as notificações em ordem de publicação. Erro do handler encerra o
// consumo e deixa a mensagem pendente para a próxima execução.
func (n *Notifier) Consume(ctx context.Context, handler func(context.Context, domain.Notification) error) error {
	if err := n.requeuePending(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// BLMOVE bloqueia com timeout curto para respeitar o contexto.
		raw, err := n.client.BLMove(ctx, n.key, n.processingKey(), "RIGHT", "LEFT", n.timeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("redis fila: falha ao consumir notificacao: %w", err)
		}

		var notification domain.Notification
		if err := json.Unmarshal([]byte(raw), &notification); err != nil {
			n.logger.Warn("notificacao descartada: payload invalido", "fila", n.key, "err", err)
			if err := n.deadLetter(ctx, raw); err != nil {
				return err
			}
			continue
		}

		if err := handler(ctx, notification); err != nil {
			return err
		}
		if err := n.client.LRem(ctx, n.processingKey(), 1, raw).Err(); err != nil {
			return fmt.Errorf("redis fila: falha ao confirmar notificacao: %w", err)
		}
	}
}

// requeuePending devolve para a ponta de consumo as mensagens que ficaram sem confirmação.
func (n *Notifier) requeuePending(ctx context.Context) error {
	for {
		err := n.client.LMove(ctx, n.processingKey(), n.key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("redis fila: falha ao recuperar pendentes: %w", err)
		}
	}
}

func (n *Notifier) deadLetter(ctx context.Context, raw string) error {
	_, err := n.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, n.processingKey(), 1, raw)
		pipe.LPush(ctx, n.deadLetterKey(), raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis fila: falha ao mover payload invalido: %w", err)
	}
	return nil
}

func (n *Notifier) processingKey() string { return n.key + ":processando" }

func (n *Notifier) deadLetterKey() string { return n.key + ":invalidas" }

var _ domain.Notifier = (*Notifier)(nil)

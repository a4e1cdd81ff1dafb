// Pacote redis implementa cache de rankings e fila de notificações sobre Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPoolSize = 20

type ClientOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	// Name aparece em CLIENT LIST para separar API e worker.
	Name string
}

// NewClient abre o cliente e só devolve depois de um PING bem sucedido dentro de ctx.
func NewClient(ctx context.Context, opts ClientOptions) (*redis.Client, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		ClientName:  opts.Name,
		PoolSize:    poolSize,
		PoolTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping em %s falhou: %w", opts.Addr, err)
	}

	return client, nil
}

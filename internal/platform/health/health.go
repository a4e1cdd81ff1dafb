package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Check é uma dependência verificada pelo readiness; Ping nil significa dependência desligada.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

func Database(db *sql.DB) Check {
	c := Check{Name: "database"}
	if db != nil {
		c.Ping = db.PingContext
	}
	return c
}

func Redis(client *redis.Client) Check {
	c := Check{Name: "redis"}
	if client != nil {
		c.Ping = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return c
}

type Checker struct {
	checks  []Check
	timeout time.Duration
}

func NewChecker(checks ...Check) *Checker {
	enabled := make([]Check, 0, len(checks))
	for _, c := range checks {
		if c.Ping != nil {
			enabled = append(enabled, c)
		}
	}
	return &Checker{checks: enabled, timeout: 2 * time.Second}
}

// Ready roda as checagens na ordem de registro e para na primeira falha.
func (c *Checker) Ready(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for _, check := range c.checks {
		if err := check.Ping(ctx); err != nil {
			return check.Name, fmt.Errorf("%s indisponivel: %w", check.Name, err)
		}
	}
	return "", nil
}

func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if name, err := c.Ready(r.Context()); err != nil {
			http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// LiveHandler só diz que o processo responde; não toca dependências.
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

package health

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelojr/pageant-scoring/internal/platform/storage/storetest"
)

// setupDB devolve o sql.DB de um SQLite em memória já migrado.
func setupDB(t *testing.T) *sql.DB {
	_, gormDB := storetest.New(t)
	db, err := gormDB.DB()
	require.NoError(t, err)
	return db
}

func setupMockRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client
}

func serve(checker *Checker, ctx context.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	checker.ReadyHandler().ServeHTTP(w, req)
	return w
}

func TestReadyHandler_QuandoTodosServicosDisponiveis_DeveRetornar200OK(t *testing.T) {
	checker := NewChecker(Database(setupDB(t)), Redis(setupMockRedis(t)))

	w := serve(checker, context.Background())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReadyHandler_QuandoDependenciasNulas_DevePularChecagem(t *testing.T) {
	checker := NewChecker(Database(nil), Redis(nil))

	w := serve(checker, context.Background())

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyHandler_QuandoDBIndisponivel_DeveRetornar503(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())
	checker := NewChecker(Database(db), Redis(setupMockRedis(t)))

	w := serve(checker, context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database unavailable\n", w.Body.String())
}

func TestReadyHandler_QuandoRedisIndisponivel_DeveRetornar503(t *testing.T) {
	redisClient := setupMockRedis(t)
	redisClient.Close()
	checker := NewChecker(Database(setupDB(t)), Redis(redisClient))

	w := serve(checker, context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "redis unavailable\n", w.Body.String())
}

func TestReady_DeveRespeitarOrdemDasChecagens(t *testing.T) {
	falha := errors.New("fora do ar")
	checker := NewChecker(
		Check{Name: "primeiro", Ping: func(context.Context) error { return falha }},
		Check{Name: "segundo", Ping: func(context.Context) error { return falha }},
	)

	name, err := checker.Ready(context.Background())

	assert.Equal(t, "primeiro", name)
	assert.ErrorIs(t, err, falha)
}

func TestReadyHandler_QuandoContextoCancelado_DeveRetornar503(t *testing.T) {
	checker := NewChecker(Check{Name: "database", Ping: func(ctx context.Context) error { return ctx.Err() }})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := serve(checker, ctx)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database unavailable\n", w.Body.String())
}

func TestLiveHandler_DeveRetornar200(t *testing.T) {
	w := httptest.NewRecorder()

	LiveHandler().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produz ULIDs monotônicos; seguro para uso concorrente.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewGenerator() *Generator {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Generator{
		entropy: ulid.Monotonic(src, 0),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}

// Next gera um ID já no tipo nomeado da entidade.
func Next[T ~string](g *Generator) T {
	if g == nil {
		g = DefaultGenerator()
	}
	return T(g.New())
}

// Valid confere se o texto recebido de fora tem formato de ULID.
func Valid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
)

func DefaultGenerator() *Generator {
	defaultOnce.Do(func() {
		defaultGen = NewGenerator()
	})
	return defaultGen
}

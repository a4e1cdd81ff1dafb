package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type exemploID string

func TestGenerator_New_DeveGerarIDsOrdenadosEUnicos(t *testing.T) {
	gen := NewGenerator()

	anterior := gen.New()
	for i := 0; i < 100; i++ {
		atual := gen.New()
		assert.Len(t, atual, 26)
		assert.Greater(t, atual, anterior)
		anterior = atual
	}
}

func TestNext_DeveRetornarTipoNomeado(t *testing.T) {
	id := Next[exemploID](nil)

	assert.True(t, Valid(string(id)))
}

func TestValid_QuandoTextoQualquer_DeveRecusar(t *testing.T) {
	assert.False(t, Valid("nao-e-ulid"))
	assert.False(t, Valid(""))
}

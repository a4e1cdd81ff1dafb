// Pacote validation traduz as regras de struct tags do validator em erros de domínio.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Struct valida v e devolve *domain.ValidationError descrevendo cada campo inválido.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.Invalid("payload invalido: %v", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return domain.Invalid("%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s obrigatorio", field)
	case "gte", "min":
		return fmt.Sprintf("%s deve ser >= %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s deve ser <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s invalido (%s)", field, fe.Tag())
	}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("registro nao encontrado")
	ErrValidation   = errors.New("dados invalidos")
	ErrPrecondition = errors.New("operacao nao permitida no estado atual")
	ErrConsistency  = errors.New("falha de consistencia")
)

// ValidationError indica entrada malformada ou fora da faixa; nunca é refeita automaticamente.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PreconditionError indica que o estado atual impede a operação.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s nao encontrado", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConsistencyError sinaliza dados que nunca deveriam existir, como duas fases ativas no mesmo evento.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string { return e.Reason }

func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }

func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func Precondition(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

func NotFound[T ~string](entity string, id T) error {
	return &NotFoundError{Entity: entity, ID: string(id)}
}

func Inconsistent(format string, args ...any) error {
	return &ConsistencyError{Reason: fmt.Sprintf(format, args...)}
}

// AsNotFound troca o ErrNotFound genérico do repositório por um erro que nomeia a entidade.
func AsNotFound[T ~string](err error, entity string, id T) error {
	if errors.Is(err, ErrNotFound) {
		return NotFound(entity, id)
	}
	return err
}

package store

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifica falhas do backend de registros.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindUnavailable Kind = "unavailable"
	KindSchemaCache Kind = "schema_cache"
	KindConstraint  Kind = "constraint"
	KindNotFound    Kind = "not_found"
)

// Error é a falha tipada devolvida por qualquer backend.
type Error struct {
	Kind  Kind
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %s (%s): %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op, table string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if kind == "" || kind == KindUnknown {
		kind = SniffKind(err.Error())
	}
	return &Error{Kind: kind, Op: op, Table: table, Err: err}
}

// KindOf devolve a classificação de err, ou KindUnknown se não for um *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// SniffKind tenta classificar uma falha pelo texto da mensagem.
// Só é usado quando o backend não fornece código; é uma heurística.
func SniffKind(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "schema cache"), strings.Contains(msg, "cache"):
		return KindSchemaCache
	case strings.Contains(msg, "not-null constraint"), strings.Contains(msg, "violates"), strings.Contains(msg, "duplicate key"):
		return KindConstraint
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "failed to fetch"), strings.Contains(msg, "timeout"), strings.Contains(msg, "no such host"):
		return KindUnavailable
	default:
		return KindUnknown
	}
}

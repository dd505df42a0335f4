package repo

import "errors"

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrMalformed indica registro do store com coluna em formato inesperado.
	ErrMalformed = errors.New("registro em formato inesperado")
)

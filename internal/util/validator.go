package util

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Códigos de validação expostos ao cliente.
const (
	CodeRequired      = "obrigatorio"
	CodeInvalidEmail  = "email_invalido"
	CodeWeakPassword  = "senha_fraca"
	CodeMismatch      = "senha_divergente"
	CodeTooShort      = "muito_curto"
	CodeInvalidValue  = "valor_invalido"
	MinPasswordLength = 8
)

// ValidationError descreve falha de validação local (o store não é tocado).
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid monta um ValidationError.
func Invalid(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return Invalid(field, CodeRequired, field+" obrigatório")
	}
	return nil
}

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return Invalid("email", CodeRequired, "email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Invalid("email", CodeInvalidEmail, "email inválido")
	}
	return nil
}

// ValidatePassword exige ao menos 8 caracteres, com letra e número, sem símbolos.
func ValidatePassword(password string) error {
	weak := Invalid("senha", CodeWeakPassword, "A senha deve ter no mínimo 8 caracteres e conter letras e números.")
	if len(password) < MinPasswordLength {
		return weak
	}

	var letter, digit bool
	for i := 0; i < len(password); i++ {
		c := password[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			letter = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			return weak
		}
	}
	if !letter || !digit {
		return weak
	}
	return nil
}

// ValidateMinLen verifica o tamanho mínimo em caracteres, ignorando espaços nas pontas.
func ValidateMinLen(value, field string, min int) error {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < min {
		return Invalid(field, CodeTooShort, fmt.Sprintf("%s deve ter pelo menos %d caracteres", field, min))
	}
	return nil
}

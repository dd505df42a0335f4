package service

import (
	"errors"

	"github.com/ouvidoria/portal-aprendiz/internal/session"
)

var (
	// ErrForbidden indica ação não permitida para o papel da sessão.
	ErrForbidden = errors.New("ação não permitida para este perfil")
)

// RequireRole devolve ErrForbidden se a sessão não tiver um dos papéis.
// Sessão nil (anônimo) só passa quando nenhum papel é exigido.
func RequireRole(sess *session.Session, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}
	role := sess.Role()
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return ErrForbidden
}

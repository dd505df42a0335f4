package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/session"
)

type contextKey string

const (
	ContextKeySession contextKey = "sessao"
	contextKeyHolder  contextKey = "registro_sessao"
)

// sessionHolder leva o papel autenticado de volta ao log da requisição.
type sessionHolder struct {
	role string
}

func withHolder(ctx context.Context, h *sessionHolder) context.Context {
	return context.WithValue(ctx, contextKeyHolder, h)
}

// Authenticator resolve o token bearer na sessão ativa.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*session.Session, error)
}

// Auth valida o token de acesso e injeta a sessão no contexto.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			sess, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("token recusado")
				writeError(w, http.StatusUnauthorized, "AUTH", "sessão inválida ou expirada")
				return
			}

			if h, ok := r.Context().Value(contextKeyHolder).(*sessionHolder); ok {
				h.role = sess.Role()
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// BearerToken extrai o token do cabeçalho Authorization.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// WithSession injeta a sessão no contexto.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, ContextKeySession, sess)
}

// GetSession recupera a sessão do contexto; nil quando anônimo.
func GetSession(ctx context.Context) *session.Session {
	val, _ := ctx.Value(ContextKeySession).(*session.Session)
	return val
}

// GetSubject devolve o id da sessão autenticada.
func GetSubject(ctx context.Context) string {
	if sess := GetSession(ctx); sess != nil {
		return sess.ID
	}
	return ""
}

// RequireRoles garante que a sessão tenha um dos papéis informados.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetSession(r.Context()).Role()
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito ao perfil "+strings.Join(roles, ", "))
		})
	}
}

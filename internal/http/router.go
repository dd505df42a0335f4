// Package http expõe a API JSON do portal da ouvidoria.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/ouvidoria/portal-aprendiz/internal/company"
	"github.com/ouvidoria/portal-aprendiz/internal/config"
	httpmiddleware "github.com/ouvidoria/portal-aprendiz/internal/http/middleware"
	"github.com/ouvidoria/portal-aprendiz/internal/protocol"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Deps reúne o que o roteador precisa.
type Deps struct {
	Config    *config.Config
	Store     pinger
	Redis     redisPinger
	Auth      *service.AuthService
	Protocols *protocol.Service
	Companies *company.Service
}

// Handler agrega dependências para handlers HTTP.
type Handler struct {
	cfg           *config.Config
	store         pinger
	redis         redisPinger
	authService   *service.AuthService
	protocols     *protocol.Service
	companies     *company.Service
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter monta o roteador com middlewares e rotas públicas e privadas.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		cfg:           d.Config,
		store:         d.Store,
		redis:         d.Redis,
		authService:   d.Auth,
		protocols:     d.Protocols,
		companies:     d.Companies,
		publicLimiter: httpmiddleware.NewRateLimiter(d.Config.RateLimitPublic.RequestsPerSecond, d.Config.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(d.Config.RateLimitAuth.RequestsPerSecond, d.Config.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(d.Config.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)
		public.Get("/perfis", h.ListProfiles)
		public.Get("/tela", h.Screen)
		public.Get("/vocabulario", h.Vocabulary)
		public.Get("/empresas", h.ListCompanies)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/{role}/register", h.Register)
			auth.Post("/{role}/login", h.Login)
			auth.Post("/logout", h.Logout)
		})

		public.Post("/protocolos/anonimo", h.SubmitAnonymous)
		public.Post("/protocolos/refinar", h.RefineDescription)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.authService))
		private.Use(httpmiddleware.SessionRateLimit(h.authLimiter))

		private.Get("/me", h.Me)
		private.Get("/protocolos", h.Dashboard)

		private.With(httpmiddleware.RequireRoles(repo.RoleAprendiz)).Post("/protocolos", h.Submit)
		private.With(httpmiddleware.RequireRoles(repo.RoleMinisterio)).Patch("/protocolos/{id}/status", h.UpdateStatus)
		private.With(httpmiddleware.RequireRoles(repo.RoleEmpresa)).Post("/empresas", h.AddCompanyUnit)
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com o store de registros e o Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeErr := h.store.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if storeErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "dependências indisponíveis", map[string]any{
			"store": errorString(storeErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ready": true, "store": h.cfg.StoreBackend})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

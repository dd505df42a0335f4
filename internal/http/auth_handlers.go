package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/ouvidoria/portal-aprendiz/internal/http/middleware"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/view"
)

// ListProfiles devolve os cartões de seleção de perfil.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, view.Perfis())
}

// Register cadastra aprendiz ou empresa e já abre a sessão.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	payload.Role = chi.URLParam(r, "role")

	result, err := h.authService.Register(r.Context(), payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONNotice(w, http.StatusCreated, result, NewNotice(SeveritySuccess, "Cadastro realizado com sucesso!"))
}

// Login autentica por papel, identificação e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Identificacao string `json:"identificacao"`
		Senha         string `json:"senha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}
	if strings.TrimSpace(payload.Identificacao) == "" || payload.Senha == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identificação e senha são obrigatórias", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), chi.URLParam(r, "role"), payload.Identificacao, payload.Senha)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// Logout encerra a sessão do token, se houver; sempre responde sucesso.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := httpmiddleware.BearerToken(r); ok {
		if sess, err := h.authService.Authenticate(r.Context(), token); err == nil {
			if err := h.authService.Logout(r.Context(), sess.ID); err != nil {
				writeServiceError(w, r, err)
				return
			}
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"tela": view.Resolve(view.State{}),
	})
}

// Me devolve o perfil da sessão.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authService.Me(r.Context(), httpmiddleware.GetSession(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// Screen resolve a tela a partir do estado informado na query.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := view.State{
		Role:        q.Get("role"),
		LoggedIn:    queryBool(q.Get("logado")),
		Registering: queryBool(q.Get("cadastro")),
		HasResult:   queryBool(q.Get("resultado")),
	}

	resp := map[string]any{"tela": view.Resolve(state)}
	if perfil, ok := view.ForRole(state.Role); ok {
		resp["perfil"] = perfil
	}
	WriteJSON(w, http.StatusOK, resp)
}

func queryBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "sim":
		return true
	}
	return false
}

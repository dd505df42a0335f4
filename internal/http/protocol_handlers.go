package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/ouvidoria/portal-aprendiz/internal/http/middleware"
	"github.com/ouvidoria/portal-aprendiz/internal/protocol"
	"github.com/ouvidoria/portal-aprendiz/internal/session"
	"github.com/ouvidoria/portal-aprendiz/internal/view"
)

const msgSubmitted = "Sua manifestação foi enviada com sucesso."

// Vocabulary devolve os tipos de manifestação e seus motivos.
func (h *Handler) Vocabulary(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.protocols.Vocabulary())
}

// Submit registra a manifestação de um aprendiz logado.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, httpmiddleware.GetSession(r.Context()))
}

// SubmitAnonymous registra uma manifestação sem sessão.
func (h *Handler) SubmitAnonymous(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, nil)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var payload protocol.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.protocols.Submit(r.Context(), sess, payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	WriteJSONNotice(w, http.StatusCreated, map[string]any{
		"protocolo": created,
		"tela":      view.Resolve(view.State{HasResult: true}),
	}, NewNotice(SeveritySuccess, msgSubmitted))
}

// RefineDescription reescreve o relato; nunca falha por causa do serviço externo.
func (h *Handler) RefineDescription(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Descricao string `json:"descricao"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	res := h.protocols.Refine(r.Context(), payload.Descricao)
	if res.Fallback {
		WriteJSONNotice(w, http.StatusOK, res, NewNotice(SeverityWarning, "Não foi possível analisar o texto agora. Seu relato foi mantido."))
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Dashboard devolve a lista, o resumo e, para empresas, o tamanho da equipe.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.protocols.Dashboard(r.Context(), httpmiddleware.GetSession(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// UpdateStatus avança o status de um protocolo.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	updated, err := h.protocols.UpdateStatus(r.Context(), httpmiddleware.GetSession(r.Context()), chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSONNotice(w, http.StatusOK, updated, NewNotice(SeveritySuccess, "Status atualizado para "+updated.Status+"."))
}

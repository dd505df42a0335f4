package http

import (
	"encoding/json"
	"net/http"

	"github.com/ouvidoria/portal-aprendiz/internal/company"
	httpmiddleware "github.com/ouvidoria/portal-aprendiz/internal/http/middleware"
)

// ListCompanies devolve as unidades e os rótulos usados no cadastro do aprendiz.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	list, err := h.companies.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	opts, err := h.companies.AffiliationOptions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"empresas": list,
		"opcoes":   opts,
	})
}

// AddCompanyUnit cadastra uma unidade da empresa logada.
func (h *Handler) AddCompanyUnit(w http.ResponseWriter, r *http.Request) {
	var payload company.UnitInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	created, err := h.companies.AddUnit(r.Context(), httpmiddleware.GetSession(r.Context()), payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSONNotice(w, http.StatusCreated, created, NewNotice(SeveritySuccess, "Unidade "+created.Rotulo()+" cadastrada."))
}

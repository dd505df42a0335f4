package http

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/protocol"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
)

const (
	msgSchemaCache = "Banco de dados atualizando. Recarregue em instantes."
	msgUnavailable = "Serviço de dados indisponível. Tente novamente em instantes."
	msgStoreFailed = "Erro ao salvar os dados"
)

// writeServiceError converte erros de domínio em um único aviso ao usuário.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *util.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", verr.Message, map[string]string{
			"field": verr.Field,
			"code":  verr.Code,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrAccessDenied):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrSessionInvalid):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrDuplicateIdentification):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, service.ErrRegistrationClosed), errors.Is(err, service.ErrForbidden):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, service.ErrUnknownRole):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "protocolo não encontrado", nil)
	case errors.Is(err, protocol.ErrInvalidStatus):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, protocol.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, protocol.ErrIDExhausted):
		log.Error().Err(err).Msg("códigos de protocolo esgotados")
		WriteBanner(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Não foi possível registrar agora. Tente novamente")
	default:
		writeStoreError(w, r, err)
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	kind := store.KindOf(err)
	log.Error().Err(err).Str("kind", string(kind)).Str("path", r.URL.Path).Msg("falha ao atender requisição")

	switch kind {
	case store.KindSchemaCache:
		WriteError(w, http.StatusServiceUnavailable, "SCHEMA_CACHE", msgSchemaCache, nil)
	case store.KindUnavailable:
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", msgUnavailable, nil)
	default:
		WriteBanner(w, http.StatusInternalServerError, "INTERNAL", msgStoreFailed)
	}
}

package http

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Severidades aceitas em avisos e erros.
const (
	SeverityError   = "error"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
)

// NoticeDismissAfter é o tempo, em ms, que o cliente mantém o aviso na tela.
const NoticeDismissAfter = 3000

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data   any     `json:"data"`
	Error  any     `json:"error"`
	Notice *Notice `json:"notice,omitempty"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data   any        `json:"data"`
	Error  *ErrorBody `json:"error"`
	Notice *Notice    `json:"notice"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Severity string      `json:"severity"`
	Details  interface{} `json:"details,omitempty"`
}

// Notice é o aviso temporário exibido pelo cliente.
type Notice struct {
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	DismissAfterMS int    `json:"dismiss_after_ms"`
}

// NewNotice monta um aviso com o tempo padrão de exibição.
func NewNotice(severity, message string) *Notice {
	return &Notice{Severity: severity, Message: message, DismissAfterMS: NoticeDismissAfter}
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, SuccessEnvelope{Data: data})
}

// WriteJSONNotice escreve envelope de sucesso com aviso.
func WriteJSONNotice(w http.ResponseWriter, status int, data any, notice *Notice) {
	writeEnvelope(w, status, SuccessEnvelope{Data: data, Notice: notice})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	severity := SeverityError
	if status == http.StatusBadRequest || status == http.StatusConflict {
		severity = SeverityWarning
	}
	writeEnvelope(w, status, ErrorEnvelope{
		Error:  &ErrorBody{Code: code, Message: message, Severity: severity, Details: details},
		Notice: NewNotice(severity, message),
	})
}

// WriteBanner escreve falha sem classificação como aviso em caixa alta.
func WriteBanner(w http.ResponseWriter, status int, code, message string) {
	message = strings.ToUpper(message)
	writeEnvelope(w, status, ErrorEnvelope{
		Error:  &ErrorBody{Code: code, Message: message, Severity: SeverityError},
		Notice: NewNotice(SeverityError, message),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

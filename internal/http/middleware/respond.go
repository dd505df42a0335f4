package middleware

import (
	"encoding/json"
	"net/http"
)

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":     code,
			"message":  message,
			"severity": "error",
		},
		"notice": map[string]any{
			"severity":         "error",
			"message":          message,
			"dismiss_after_ms": 3000,
		},
	})
}

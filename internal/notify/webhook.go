// Package notify avisa a ouvidoria sobre protocolos que pedem atenção imediata.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ouvidoria/portal-aprendiz/internal/repo"
)

// Webhook publica um resumo do protocolo em um webhook de chat (formato {"text": ...}).
// O conteúdo do relato não é enviado, só o código, o tipo e o motivo.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook devolve nil quando a URL está vazia; nil é um notificador desligado.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

// ProtocolCreated envia o aviso de um novo protocolo.
func (w *Webhook) ProtocolCreated(ctx context.Context, p repo.Protocolo) error {
	if w == nil {
		return nil
	}

	body, err := json.Marshal(map[string]string{"text": formatMessage(p)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook respondeu %d", resp.StatusCode)
	}
	return nil
}

func formatMessage(p repo.Protocolo) string {
	return fmt.Sprintf(":rotating_light: *Nova %s* #%s\nMotivo: %s\nEmpresa: %s",
		p.Tipo, p.ID, p.Motivo, p.Empresa)
}

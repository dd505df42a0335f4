package refine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// DefaultModel é usado quando GEMINI_MODEL não está definido.
const DefaultModel = "gemini-2.5-flash"

// GeminiGenerator chama a API Gemini pelo SDK oficial.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// GeminiConfig configura o gerador. BaseURL vazio usa o endpoint público.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGeminiGenerator cria o cliente; chave vazia é erro (o chamador decide o fallback).
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY ausente")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("cliente genai: %w", err)
	}
	return &GeminiGenerator{client: client, model: model, temperature: 0.7}, nil
}

// Generate envia o prompt e devolve o texto bruto da resposta.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt, systemInstruction string, format Format) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	if len(format.Fields) > 0 {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = objectSchema(format.Fields)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("resposta vazia do modelo")
	}
	return text, nil
}

func objectSchema(fields []string) *genai.Schema {
	props := make(map[string]*genai.Schema, len(fields))
	for _, f := range fields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         fields,
		PropertyOrdering: fields,
	}
}

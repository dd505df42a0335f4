// Package refine reescreve relatos com um modelo generativo e nunca falha para o chamador.
package refine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Format pede resposta estruturada com os campos informados; vazio = texto livre.
type Format struct {
	Fields []string
}

// Generator é o colaborador de geração de texto.
type Generator interface {
	Generate(ctx context.Context, prompt, systemInstruction string, format Format) (string, error)
}

// Result é o relato refinado e a orientação jurídica opcional.
// Fallback indica que o modelo não foi usado ou respondeu fora do formato.
type Result struct {
	RefinedText   string `json:"refinedText"`
	LegalAnalysis string `json:"legalAnalysis"`
	Fallback      bool   `json:"fallback"`
}

const systemInstruction = `Você é um consultor jurídico sênior especializado na Lei do Aprendiz (Lei 10.097/2000).
Responda apenas com um objeto JSON com duas chaves:
"refinedText": o relato reescrito de forma profissional e objetiva, pronto para uma manifestação formal;
"legalAnalysis": resumo de no máximo três parágrafos indicando quais direitos podem ter sido violados e o próximo passo recomendado.
Não envolva o JSON em bloco de código.`

var analysisFormat = Format{Fields: []string{"refinedText", "legalAnalysis"}}

type cacheCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Refiner aplica as regras de fallback em volta do Generator.
type Refiner struct {
	gen      Generator
	minLen   int
	timeout  time.Duration
	cache    cacheCommander
	cacheTTL time.Duration
}

// Option ajusta o Refiner.
type Option func(*Refiner)

// WithCache guarda resultados bem-sucedidos no Redis.
func WithCache(c cacheCommander, ttl time.Duration) Option {
	return func(r *Refiner) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithTimeout limita a duração de cada chamada ao modelo.
func WithTimeout(d time.Duration) Option {
	return func(r *Refiner) { r.timeout = d }
}

// New cria o Refiner. gen nil significa credenciais ausentes: tudo volta sem alteração.
func New(gen Generator, minLen int, opts ...Option) *Refiner {
	r := &Refiner{gen: gen, minLen: minLen, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled informa se há gerador configurado.
func (r *Refiner) Enabled() bool {
	return r.gen != nil
}

// Refine nunca devolve erro; em qualquer falha o texto original volta com orientação vazia.
func (r *Refiner) Refine(ctx context.Context, text string) Result {
	unchanged := Result{RefinedText: text, Fallback: true}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < r.minLen {
		return unchanged
	}
	if r.gen == nil {
		log.Warn().Msg("refino: GEMINI_API_KEY não configurada, relato mantido")
		return unchanged
	}

	key := cacheKey(text)
	if cached, ok := r.fromCache(ctx, key); ok {
		return cached
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Analise este relato de um jovem aprendiz: %q", text)
	raw, err := r.gen.Generate(callCtx, prompt, systemInstruction, analysisFormat)
	if err != nil {
		log.Warn().Err(err).Msg("refino: falha no modelo, relato mantido")
		return unchanged
	}

	res, err := parse(raw)
	if err != nil {
		log.Warn().Err(err).Msg("refino: resposta fora do formato, usando texto bruto")
		return Result{RefinedText: strings.TrimSpace(raw), Fallback: true}
	}
	if res.RefinedText == "" {
		res.RefinedText = text
	}

	r.toCache(ctx, key, res)
	return res
}

func parse(raw string) (Result, error) {
	body := stripFence(raw)
	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return Result{}, err
	}
	res.RefinedText = strings.TrimSpace(res.RefinedText)
	res.LegalAnalysis = strings.TrimSpace(res.LegalAnalysis)
	res.Fallback = false
	if res.RefinedText == "" && res.LegalAnalysis == "" {
		return Result{}, errors.New("json sem refinedText e legalAnalysis")
	}
	return res, nil
}

// stripFence remove um bloco ```json ... ``` em volta da resposta.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "refino:" + hex.EncodeToString(sum[:])
}

func (r *Refiner) fromCache(ctx context.Context, key string) (Result, bool) {
	if r.cache == nil {
		return Result{}, false
	}
	raw, err := r.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("refino: cache indisponível")
		}
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Result{}, false
	}
	return res, true
}

func (r *Refiner) toCache(ctx context.Context, key string, res Result) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, payload, r.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("refino: falha ao gravar cache")
	}
}

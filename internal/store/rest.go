package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RESTConfig descreve o backend de tabelas hospedado (dialeto PostgREST).
type RESTConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// REST implementa Store falando com /rest/v1 do backend hospedado.
type REST struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewREST cria o cliente do backend hospedado.
func NewREST(cfg RESTConfig) (*REST, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("store: url do backend obrigatória")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("store: chave do backend obrigatória")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &REST{baseURL: base, apiKey: cfg.APIKey, httpClient: client}, nil
}

type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Insert grava o registro e devolve a representação criada.
func (r *REST) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	if err := validateColumns(table, recordColumns(table, rec)...); err != nil {
		return nil, err
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	var created []Record
	if _, err := r.do(ctx, "insert", table, http.MethodPost, r.tableURL(table, nil, nil), body, "return=representation", &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return rec, nil
	}
	return created[0], nil
}

// Select busca registros por igualdade, com ordenação opcional.
func (r *REST) Select(ctx context.Context, table string, filters []Filter, order *Order) ([]Record, error) {
	if err := validateColumns(table, filterColumns(filters)...); err != nil {
		return nil, err
	}
	if order != nil {
		if err := validateColumns(table, order.Column); err != nil {
			return nil, err
		}
	}

	var rows []Record
	if _, err := r.do(ctx, "select", table, http.MethodGet, r.tableURL(table, filters, order), nil, "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Count usa Prefer: count=exact e lê o total de Content-Range.
func (r *REST) Count(ctx context.Context, table string, filters []Filter) (int, error) {
	if err := validateColumns(table, filterColumns(filters)...); err != nil {
		return 0, err
	}

	resp, err := r.do(ctx, "count", table, http.MethodHead, r.tableURL(table, filters, nil), nil, "count=exact", nil)
	if err != nil {
		return 0, err
	}
	n, err := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, wrap("count", table, KindUnknown, err)
	}
	return n, nil
}

// Update aplica PATCH nos registros filtrados.
func (r *REST) Update(ctx context.Context, table string, filters []Filter, values Record) (int, error) {
	cols := recordColumns(table, values)
	if len(cols) == 0 {
		return 0, errors.New("store: nada para atualizar")
	}
	if err := validateColumns(table, append(cols, filterColumns(filters)...)...); err != nil {
		return 0, err
	}

	body, err := json.Marshal(values)
	if err != nil {
		return 0, err
	}

	var updated []Record
	if _, err := r.do(ctx, "update", table, http.MethodPatch, r.tableURL(table, filters, nil), body, "return=representation", &updated); err != nil {
		return 0, err
	}
	return len(updated), nil
}

// Ping verifica se a API do backend responde (bloqueios de rede aparecem aqui).
func (r *REST) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return wrap("ping", "", KindUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &Error{Kind: KindUnavailable, Op: "ping", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

func (r *REST) tableURL(table string, filters []Filter, order *Order) string {
	q := url.Values{}
	if filters != nil || order != nil {
		q.Set("select", strings.Join(Schema[table], ","))
	}
	for _, f := range filters {
		q.Add(f.Column, "eq."+formatValue(f.Value))
	}
	if order != nil {
		dir := "asc"
		if order.Desc {
			dir = "desc"
		}
		q.Set("order", order.Column+"."+dir)
	}

	u := r.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (r *REST) do(ctx context.Context, op, table, method, target string, body []byte, prefer string, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, wrap(op, table, KindUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, restFailure(op, table, resp.StatusCode, raw)
	}

	if out != nil && method != http.MethodHead {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return nil, wrap(op, table, KindUnknown, fmt.Errorf("resposta inválida: %w", err))
		}
	}
	return resp, nil
}

func restFailure(op, table string, status int, raw []byte) error {
	var body restError
	_ = json.Unmarshal(raw, &body)

	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	err := fmt.Errorf("status %d: %s", status, msg)

	kind := KindUnknown
	switch {
	case body.Code == "PGRST002", body.Code == "PGRST205", body.Code == "42P01", body.Code == "42703":
		kind = KindSchemaCache
	case strings.HasPrefix(body.Code, "23"):
		kind = KindConstraint
	case body.Code == "PGRST116", status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		kind = KindUnavailable
	}
	return wrap(op, table, kind, err)
}

func parseContentRangeTotal(header string) (int, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return 0, fmt.Errorf("content-range inválido: %q", header)
	}
	total := header[idx+1:]
	if total == "*" {
		return 0, fmt.Errorf("content-range sem total: %q", header)
	}
	return strconv.Atoi(total)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case nil:
		return "null"
	default:
		return fmt.Sprint(val)
	}
}

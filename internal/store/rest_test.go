package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *REST {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := NewREST(RESTConfig{BaseURL: srv.URL, APIKey: "chave-anon", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return r
}

func TestRESTSelectBuildsEqualityQuery(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/rest/v1/protocols", req.URL.Path)
		assert.Equal(t, "chave-anon", req.Header.Get("apikey"))
		assert.Equal(t, "eq.TechCo", req.URL.Query().Get("empresa"))
		assert.Equal(t, "dataCriacao.desc", req.URL.Query().Get("order"))
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "APR-111111", "empresa": "TechCo"}})
	})

	rows, err := r.Select(context.Background(), TableProtocols, []Filter{Eq("empresa", "TechCo")}, &Order{Column: "dataCriacao", Desc: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "APR-111111", rows[0]["id"])
}

func TestRESTInsertReturnsRepresentation(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "return=representation", req.Header.Get("Prefer"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]map[string]any{body})
	})

	rec, err := r.Insert(context.Background(), TableUsers, Record{"nome": "Ana", "identificacao": "MAT123"})
	require.NoError(t, err)
	assert.Equal(t, "MAT123", rec["identificacao"])
}

func TestRESTCountReadsContentRange(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodHead, req.Method)
		assert.Equal(t, "count=exact", req.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-4/5")
		w.WriteHeader(http.StatusOK)
	})

	n, err := r.Count(context.Background(), TableUsers, []Filter{Eq("role", "aprendiz"), Eq("empresa", "TechCo")})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestRESTClassifiesBackendErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"schema cache", http.StatusServiceUnavailable, `{"code":"PGRST002","message":"Could not query the database for the schema cache. Retrying."}`, KindSchemaCache},
		{"not null", http.StatusBadRequest, `{"code":"23502","message":"null value in column \"senha\" violates not-null constraint"}`, KindConstraint},
		{"gateway", http.StatusBadGateway, `upstream indisponível`, KindUnavailable},
		{"sniffed", http.StatusBadRequest, `{"message":"relation cache is stale"}`, KindSchemaCache},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := r.Select(context.Background(), TableUsers, nil, nil)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestParseContentRangeTotal(t *testing.T) {
	n, err := parseContentRangeTotal("*/42")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = parseContentRangeTotal("0-9/*")
	assert.Error(t, err)
}

func TestClassifyPg(t *testing.T) {
	assert.Equal(t, KindConstraint, classifyPg(&pgconn.PgError{Code: "23505"}))
	assert.Equal(t, KindSchemaCache, classifyPg(&pgconn.PgError{Code: "42P01"}))
	assert.Equal(t, KindUnavailable, classifyPg(&pgconn.PgError{Code: "08006"}))
	assert.Equal(t, KindUnknown, classifyPg(errors.New("boom")))
}

func TestSniffKindIsFallbackOnly(t *testing.T) {
	err := wrap("insert", TableUsers, KindConstraint, errors.New("schema cache"))
	assert.Equal(t, KindConstraint, KindOf(err))

	err = wrap("insert", TableUsers, KindUnknown, errors.New("could not find table in the schema cache"))
	assert.Equal(t, KindSchemaCache, KindOf(err))
}

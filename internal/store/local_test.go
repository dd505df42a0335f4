package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSnapshotRewrittenAndReloaded(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	l, err := NewLocal(dir)
	require.NoError(t, err)

	_, err = l.Insert(ctx, TableUsers, Record{"nome": "Ana", "identificacao": "MAT123", "role": "aprendiz"})
	require.NoError(t, err)
	_, err = l.Insert(ctx, TableCompanies, Record{"id": "1", "nomeFantasia": "Tech Soluções LTDA", "unidade": "Matriz"})
	require.NoError(t, err)

	for _, name := range []string{"pja_users.json", "pja_companies.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	reloaded, err := NewLocal(dir)
	require.NoError(t, err)
	n, err := reloaded.Count(ctx, TableUsers, []Filter{Eq("identificacao", "MAT123"), Eq("role", "aprendiz")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLocalSelectFiltersAndOrdersByTime(t *testing.T) {
	l, err := NewLocal("")
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"APR-100001", "APR-100002", "APR-100003"} {
		_, err := l.Insert(ctx, TableProtocols, Record{
			"id":            id,
			"empresa":       "TechCo",
			"usuario_email": "ana@exemplo.com",
			"dataCriacao":   base.Add(time.Duration(i) * time.Second),
			"status":        "Recebido",
		})
		require.NoError(t, err)
	}
	_, err = l.Insert(ctx, TableProtocols, Record{"id": "APR-100004", "empresa": "Outra", "dataCriacao": base})
	require.NoError(t, err)

	rows, err := l.Select(ctx, TableProtocols, []Filter{Eq("empresa", "TechCo")}, &Order{Column: "dataCriacao", Desc: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "APR-100003", rows[0]["id"])
	assert.Equal(t, "APR-100001", rows[2]["id"])
}

func TestLocalUpdate(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Insert(ctx, TableProtocols, Record{"id": "APR-123456", "status": "Recebido"})
	require.NoError(t, err)

	n, err := l.Update(ctx, TableProtocols, []Filter{Eq("id", "APR-123456")}, Record{"status": "Em Análise"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := l.Select(ctx, TableProtocols, []Filter{Eq("id", "APR-123456")}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Em Análise", rows[0]["status"])

	n, err = l.Update(ctx, TableProtocols, []Filter{Eq("id", "nada")}, Record{"status": "Concluído"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLocalRejectsUnknownColumns(t *testing.T) {
	l, err := NewLocal("")
	require.NoError(t, err)

	_, err = l.Insert(context.Background(), TableUsers, Record{"hack": true})
	assert.Error(t, err)

	_, err = l.Select(context.Background(), "segredos", nil, nil)
	assert.Error(t, err)
}

func TestSelectReturnsCopies(t *testing.T) {
	l, err := NewLocal("")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Insert(ctx, TableUsers, Record{"nome": "Ana"})
	require.NoError(t, err)

	rows, err := l.Select(ctx, TableUsers, nil, nil)
	require.NoError(t, err)
	rows[0]["nome"] = "Outra"

	again, err := l.Select(ctx, TableUsers, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ana", again[0]["nome"])
}

func TestLocalInsertRejectsDuplicateKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Insert(ctx, TableUsers, Record{"identificacao": "MAT9", "role": "aprendiz"})
	require.NoError(t, err)
	_, err = l.Insert(ctx, TableUsers, Record{"identificacao": "MAT9", "role": "aprendiz", "nome": "Outra"})
	assert.Equal(t, KindConstraint, KindOf(err))
	// mesma identificação em outro papel é permitida
	_, err = l.Insert(ctx, TableUsers, Record{"identificacao": "MAT9", "role": "empresa"})
	require.NoError(t, err)

	for _, table := range []string{TableProtocols, TableCompanies} {
		_, err = l.Insert(ctx, table, Record{"id": "X-1"})
		require.NoError(t, err, table)
		_, err = l.Insert(ctx, table, Record{"id": "X-1"})
		assert.Equal(t, KindConstraint, KindOf(err), table)
	}

	n, err := l.Count(ctx, TableUsers, []Filter{Eq("identificacao", "MAT9"), Eq("role", "aprendiz")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLocalConcurrentInsertsKeepKeyUnique(t *testing.T) {
	l, err := NewLocal("")
	require.NoError(t, err)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Insert(ctx, TableUsers, Record{"identificacao": "MAT9", "role": "aprendiz"})
			if err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, oks)
}

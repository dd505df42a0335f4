package company

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/session"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewLocal("")
	require.NoError(t, err)
	return NewService(repo.NewCompanies(st))
}

func sessionFor(role string) *session.Session {
	return &session.Session{ID: "s1", Usuario: repo.Usuario{Identificacao: "X", Role: role}}
}

func TestSeedOnlyOnEmptyTable(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	seeded, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	opts, err := svc.AffiliationOptions(ctx)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Tech Soluções LTDA (Matriz)", opts[0].Rotulo)
}

func TestAddUnitRequiresCompanySession(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	in := UnitInput{NomeFantasia: "TechCo", CNPJ: "11.111.111/0001-11", Unidade: "Filial Campinas"}

	for _, role := range []string{repo.RoleAprendiz, repo.RoleMinisterio} {
		_, err := svc.AddUnit(ctx, sessionFor(role), in)
		assert.ErrorIs(t, err, service.ErrForbidden, role)
	}
	_, err := svc.AddUnit(ctx, nil, in)
	assert.ErrorIs(t, err, service.ErrForbidden)

	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	created, err := svc.AddUnit(ctx, sessionFor(repo.RoleEmpresa), in)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", created.ID)
	assert.Equal(t, "TechCo (Filial Campinas)", created.Rotulo())
}

func TestAddInSameMillisecondGetsNextID(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	seeded, err := svc.Seed(ctx)
	require.NoError(t, err)
	require.True(t, seeded)

	created, err := svc.Add(ctx, UnitInput{NomeFantasia: "TechCo", CNPJ: "1", Unidade: "Filial"})
	require.NoError(t, err)
	assert.Equal(t, "1700000000001", created.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAddValidatesRequiredFields(t *testing.T) {
	svc := newService(t)

	cases := map[string]UnitInput{
		"nomeFantasia": {CNPJ: "1", Unidade: "Matriz"},
		"cnpj":         {NomeFantasia: "TechCo", Unidade: "Matriz"},
		"unidade":      {NomeFantasia: "TechCo", CNPJ: "1", Unidade: "  "},
	}
	for field, in := range cases {
		_, err := svc.Add(context.Background(), in)
		var verr *util.ValidationError
		require.ErrorAs(t, err, &verr, field)
		assert.Equal(t, field, verr.Field)
	}

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

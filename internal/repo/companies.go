package repo

import (
	"context"

	"github.com/ouvidoria/portal-aprendiz/internal/store"
)

// Companies acessa a tabela companies.
type Companies struct {
	store store.Store
}

// NewCompanies cria o repositório de unidades.
func NewCompanies(s store.Store) *Companies {
	return &Companies{store: s}
}

// Insert grava a unidade.
func (r *Companies) Insert(ctx context.Context, e Empresa) (Empresa, error) {
	rec, err := r.store.Insert(ctx, store.TableCompanies, store.Record{
		"id":           e.ID,
		"nomeFantasia": e.NomeFantasia,
		"cnpj":         e.CNPJ,
		"unidade":      e.Unidade,
		"endereco":     e.Endereco,
		"cidade":       e.Cidade,
	})
	if err != nil {
		return Empresa{}, err
	}
	return companyFromRecord(rec), nil
}

// List devolve as unidades em ordem de criação.
func (r *Companies) List(ctx context.Context) ([]Empresa, error) {
	rows, err := r.store.Select(ctx, store.TableCompanies, nil, &store.Order{Column: "id"})
	if err != nil {
		return nil, err
	}
	out := make([]Empresa, 0, len(rows))
	for _, rec := range rows {
		out = append(out, companyFromRecord(rec))
	}
	return out, nil
}

// Count conta as unidades cadastradas.
func (r *Companies) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx, store.TableCompanies, nil)
}

func companyFromRecord(rec store.Record) Empresa {
	return Empresa{
		ID:           str(rec, "id"),
		NomeFantasia: str(rec, "nomeFantasia"),
		CNPJ:         str(rec, "cnpj"),
		Unidade:      str(rec, "unidade"),
		Endereco:     str(rec, "endereco"),
		Cidade:       str(rec, "cidade"),
	}
}

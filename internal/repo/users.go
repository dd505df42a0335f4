package repo

import (
	"context"

	"github.com/ouvidoria/portal-aprendiz/internal/store"
)

// Users acessa a tabela users.
type Users struct {
	store store.Store
}

// NewUsers cria o repositório de usuários.
func NewUsers(s store.Store) *Users {
	return &Users{store: s}
}

// Insert grava o usuário; SenhaHash já deve estar calculado.
func (r *Users) Insert(ctx context.Context, u Usuario) (Usuario, error) {
	rec, err := r.store.Insert(ctx, store.TableUsers, userRecord(u))
	if err != nil {
		return Usuario{}, err
	}
	return userFromRecord(rec), nil
}

// FindByIdentification busca pelo par (identificacao, role).
func (r *Users) FindByIdentification(ctx context.Context, identificacao, role string) (Usuario, error) {
	rows, err := r.store.Select(ctx, store.TableUsers, []store.Filter{
		store.Eq("identificacao", identificacao),
		store.Eq("role", role),
	}, nil)
	if err != nil {
		return Usuario{}, err
	}
	if len(rows) == 0 {
		return Usuario{}, ErrNotFound
	}
	return userFromRecord(rows[0]), nil
}

// CountByIdentification conta usuários com a identificação dentro do papel.
func (r *Users) CountByIdentification(ctx context.Context, identificacao, role string) (int, error) {
	return r.store.Count(ctx, store.TableUsers, []store.Filter{
		store.Eq("identificacao", identificacao),
		store.Eq("role", role),
	})
}

// CountTeam conta aprendizes vinculados à empresa.
func (r *Users) CountTeam(ctx context.Context, empresa string) (int, error) {
	return r.store.Count(ctx, store.TableUsers, []store.Filter{
		store.Eq("role", RoleAprendiz),
		store.Eq("empresa", empresa),
	})
}

func userRecord(u Usuario) store.Record {
	return store.Record{
		"nome":          u.Nome,
		"email":         u.Email,
		"identificacao": u.Identificacao,
		"senha":         u.SenhaHash,
		"role":          u.Role,
		"empresa":       u.Empresa,
		"cnpj":          u.CNPJ,
		"logo":          u.Logo,
	}
}

func userFromRecord(rec store.Record) Usuario {
	return Usuario{
		Nome:          str(rec, "nome"),
		Email:         str(rec, "email"),
		Identificacao: str(rec, "identificacao"),
		SenhaHash:     str(rec, "senha"),
		Role:          str(rec, "role"),
		Empresa:       str(rec, "empresa"),
		CNPJ:          str(rec, "cnpj"),
		Logo:          str(rec, "logo"),
	}
}

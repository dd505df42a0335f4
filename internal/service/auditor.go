package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/auth"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
)

// AuditorInput traz os dados de um auditor criado pelo canal do operador.
type AuditorInput struct {
	Nome          string
	Email         string
	Identificacao string
	Senha         string
}

// ProvisionAuditor cria um usuário ministerio. É o único caminho de cadastro
// desse papel; a API pública recusa com ErrRegistrationClosed.
func (s *AuthService) ProvisionAuditor(ctx context.Context, in AuditorInput) (repo.Usuario, error) {
	if err := util.RequireString(in.Nome, "nome"); err != nil {
		return repo.Usuario{}, err
	}
	if err := util.RequireString(in.Identificacao, "identificacao"); err != nil {
		return repo.Usuario{}, err
	}
	if repo.Reservado(in.Identificacao) {
		return repo.Usuario{}, util.Invalid("identificacao", util.CodeInvalidValue, "Esta identificação não pode ser usada.")
	}
	if strings.TrimSpace(in.Email) != "" {
		if err := util.ValidateEmail(in.Email); err != nil {
			return repo.Usuario{}, err
		}
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return repo.Usuario{}, err
	}

	n, err := s.users.CountByIdentification(ctx, in.Identificacao, repo.RoleMinisterio)
	if err != nil {
		return repo.Usuario{}, err
	}
	if n > 0 {
		return repo.Usuario{}, ErrDuplicateIdentification
	}

	hash, err := auth.Hash(in.Senha)
	if err != nil {
		return repo.Usuario{}, err
	}

	created, err := s.users.Insert(ctx, repo.Usuario{
		Nome:          strings.TrimSpace(in.Nome),
		Email:         strings.TrimSpace(in.Email),
		Identificacao: in.Identificacao,
		SenhaHash:     hash,
		Role:          repo.RoleMinisterio,
	})
	if err != nil {
		if store.KindOf(err) == store.KindConstraint {
			return repo.Usuario{}, ErrDuplicateIdentification
		}
		return repo.Usuario{}, err
	}

	log.Info().Str("identificacao", in.Identificacao).Msg("auditor provisionado")
	created.SenhaHash = ""
	return created, nil
}

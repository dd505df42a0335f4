// Package company mantém as unidades de empresa usadas como vínculo dos aprendizes.
package company

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/session"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
)

// Unidade inicial gravada em bases vazias.
var seedUnit = UnitInput{
	NomeFantasia: "Tech Soluções LTDA",
	CNPJ:         "12.345.678/0001-90",
	Unidade:      "Matriz",
	Endereco:     "Av. Paulista, 1000",
	Cidade:       "São Paulo",
}

const maxIDAttempts = 5

// ErrIDExhausted indica que todos os ids tentados já estavam em uso.
var ErrIDExhausted = errors.New("não foi possível gerar um id de unidade único")

type companyRepository interface {
	Insert(ctx context.Context, e repo.Empresa) (repo.Empresa, error)
	List(ctx context.Context) ([]repo.Empresa, error)
	Count(ctx context.Context) (int, error)
}

// UnitInput traz os campos do formulário de nova unidade.
type UnitInput struct {
	NomeFantasia string `json:"nomeFantasia"`
	CNPJ         string `json:"cnpj"`
	Unidade      string `json:"unidade"`
	Endereco     string `json:"endereco"`
	Cidade       string `json:"cidade"`
}

// Option é um vínculo oferecido no cadastro do aprendiz.
type Option struct {
	ID     string `json:"id"`
	Rotulo string `json:"rotulo"`
}

// Service cadastra e lista unidades.
type Service struct {
	companies companyRepository
	now       func() time.Time
}

// NewService cria o serviço de unidades.
func NewService(companies companyRepository) *Service {
	return &Service{companies: companies, now: time.Now}
}

// AddUnit cadastra uma unidade pela sessão de uma empresa.
func (s *Service) AddUnit(ctx context.Context, sess *session.Session, in UnitInput) (*repo.Empresa, error) {
	if err := service.RequireRole(sess, repo.RoleEmpresa); err != nil {
		return nil, err
	}
	return s.Add(ctx, in)
}

// Add cadastra sem checar sessão; usado pelo operador.
func (s *Service) Add(ctx context.Context, in UnitInput) (*repo.Empresa, error) {
	if err := util.RequireString(in.NomeFantasia, "nomeFantasia"); err != nil {
		return nil, err
	}
	if err := util.RequireString(in.CNPJ, "cnpj"); err != nil {
		return nil, err
	}
	if err := util.RequireString(in.Unidade, "unidade"); err != nil {
		return nil, err
	}

	unit := repo.Empresa{
		NomeFantasia: strings.TrimSpace(in.NomeFantasia),
		CNPJ:         strings.TrimSpace(in.CNPJ),
		Unidade:      strings.TrimSpace(in.Unidade),
		Endereco:     strings.TrimSpace(in.Endereco),
		Cidade:       strings.TrimSpace(in.Cidade),
	}
	created, err := s.insert(ctx, unit)
	if err != nil {
		return nil, err
	}

	log.Info().Str("id", created.ID).Str("rotulo", created.Rotulo()).Msg("unidade cadastrada")
	return &created, nil
}

// insert usa o instante em milissegundos como id; se outro cadastro já levou
// esse valor, avança um milissegundo e tenta de novo.
func (s *Service) insert(ctx context.Context, unit repo.Empresa) (repo.Empresa, error) {
	id := s.now().UnixMilli()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		unit.ID = strconv.FormatInt(id+int64(attempt), 10)
		created, err := s.companies.Insert(ctx, unit)
		if err == nil {
			return created, nil
		}
		if store.KindOf(err) != store.KindConstraint {
			return repo.Empresa{}, err
		}
	}
	return repo.Empresa{}, ErrIDExhausted
}

// List devolve as unidades em ordem de cadastro.
func (s *Service) List(ctx context.Context) ([]repo.Empresa, error) {
	return s.companies.List(ctx)
}

// AffiliationOptions devolve os rótulos "Nome (Unidade)" para o cadastro.
func (s *Service) AffiliationOptions(ctx context.Context) ([]Option, error) {
	list, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(list))
	for _, e := range list {
		out = append(out, Option{ID: e.ID, Rotulo: e.Rotulo()})
	}
	return out, nil
}

// Seed grava a unidade inicial quando a tabela está vazia.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	n, err := s.companies.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Add(ctx, seedUnit); err != nil {
		return false, err
	}
	return true, nil
}

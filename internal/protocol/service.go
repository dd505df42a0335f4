// Package protocol cria, lista e resume os protocolos da ouvidoria.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/refine"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/session"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
)

// Valores gravados quando o envio não traz empresa ou identidade.
const (
	EmpresaGeral   = repo.EmpresaGeral
	UsuarioAnonimo = repo.UsuarioAnonimo
	denunciaTipo   = "Denúncia"
)

var (
	// ErrIDExhausted indica colisão de código em todas as tentativas.
	ErrIDExhausted = errors.New("não foi possível gerar um código de protocolo único")
	// ErrInvalidStatus indica status fora do vocabulário.
	ErrInvalidStatus = errors.New("status desconhecido")
	// ErrInvalidTransition indica tentativa de voltar ou repetir um status.
	ErrInvalidTransition = errors.New("o status só pode avançar")
)

var statusRank = map[string]int{
	repo.StatusRecebido:  0,
	repo.StatusAnalise:   1,
	repo.StatusConcluido: 2,
	repo.StatusArquivado: 3,
}

type protocolRepository interface {
	Insert(ctx context.Context, p repo.Protocolo) (repo.Protocolo, error)
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (repo.Protocolo, error)
	ListBySubmitter(ctx context.Context, identidade string) ([]repo.Protocolo, error)
	ListByCompany(ctx context.Context, empresa string) ([]repo.Protocolo, error)
	ListAll(ctx context.Context) ([]repo.Protocolo, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type teamCounter interface {
	CountTeam(ctx context.Context, empresa string) (int, error)
}

type refiner interface {
	Refine(ctx context.Context, text string) refine.Result
}

type notifier interface {
	ProtocolCreated(ctx context.Context, p repo.Protocolo) error
}

// Service implementa o fluxo de protocolos.
type Service struct {
	protocols protocolRepository
	users     teamCounter
	refiner   refiner
	notifier  notifier
	vocab     *Vocabulary
	minLen    int
	now       func() time.Time
	suffix    func() int
}

// NewService cria o serviço. notifier pode ser nil.
func NewService(protocols protocolRepository, users teamCounter, r refiner, n notifier, vocab *Vocabulary, minLen int) *Service {
	return &Service{
		protocols: protocols,
		users:     users,
		refiner:   r,
		notifier:  n,
		vocab:     vocab,
		minLen:    minLen,
		now:       time.Now,
		suffix:    randomSuffix,
	}
}

// Vocabulary expõe a tabela de tipos e motivos.
func (s *Service) Vocabulary() *Vocabulary {
	return s.vocab
}

// SubmitInput traz os campos do formulário de manifestação.
type SubmitInput struct {
	Tipo      string `json:"tipo"`
	Motivo    string `json:"motivo"`
	Descricao string `json:"descricao"`
	Empresa   string `json:"empresa"`
	Local     string `json:"local"`
	Horario   string `json:"horario"`
}

// Submit registra um protocolo com status Recebido. sess nil é envio anônimo;
// só aprendizes enviam com sessão.
func (s *Service) Submit(ctx context.Context, sess *session.Session, in SubmitInput) (*repo.Protocolo, error) {
	if sess != nil {
		if err := service.RequireRole(sess, repo.RoleAprendiz); err != nil {
			return nil, err
		}
	}
	if err := util.ValidateMinLen(in.Descricao, "descricao", s.minLen); err != nil {
		return nil, err
	}

	tipo, motivo := s.vocab.Resolve(in.Tipo, in.Motivo)

	prefix := PrefixAnonimo
	if sess != nil {
		prefix = PrefixAprendiz
	}
	p := repo.Protocolo{
		Tipo:         tipo,
		Motivo:       motivo,
		Descricao:    strings.TrimSpace(in.Descricao),
		Empresa:      submitterCompany(sess, in.Empresa),
		Local:        strings.TrimSpace(in.Local),
		Horario:      strings.TrimSpace(in.Horario),
		UsuarioEmail: submitterIdentity(sess),
		DataCriacao:  s.now().UTC(),
		Status:       repo.StatusRecebido,
	}

	created, err := s.insertWithNewID(ctx, prefix, p)
	if err != nil {
		return nil, err
	}

	if created.Tipo == denunciaTipo && s.notifier != nil {
		if err := s.notifier.ProtocolCreated(ctx, created); err != nil {
			log.Warn().Err(err).Str("id", created.ID).Msg("falha ao notificar nova denúncia")
		}
	}

	log.Info().Str("id", created.ID).Str("tipo", created.Tipo).Msg("protocolo registrado")
	return &created, nil
}

// insertWithNewID grava o protocolo sorteando outro código quando o store
// recusa o sorteado por já existir (dois envios simultâneos).
func (s *Service) insertWithNewID(ctx context.Context, prefix string, p repo.Protocolo) (repo.Protocolo, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.newID(ctx, prefix)
		if err != nil {
			return repo.Protocolo{}, err
		}
		p.ID = id
		created, err := s.protocols.Insert(ctx, p)
		if err == nil {
			return created, nil
		}
		if store.KindOf(err) != store.KindConstraint {
			return repo.Protocolo{}, err
		}
		log.Warn().Str("id", id).Int("tentativa", attempt+1).Msg("código de protocolo gravado por outro envio")
	}
	return repo.Protocolo{}, ErrIDExhausted
}

// newID sorteia o código e confere no store que ainda não foi usado.
func (s *Service) newID(ctx context.Context, prefix string) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := formatID(prefix, s.suffix())
		exists, err := s.protocols.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		log.Warn().Str("id", id).Int("tentativa", attempt+1).Msg("código de protocolo repetido")
	}
	return "", ErrIDExhausted
}

func submitterCompany(sess *session.Session, informed string) string {
	if sess != nil {
		if a := sess.Usuario.Afiliacao(); strings.TrimSpace(a) != "" {
			return a
		}
	}
	if informed = strings.TrimSpace(informed); informed != "" {
		return informed
	}
	return EmpresaGeral
}

func submitterIdentity(sess *session.Session) string {
	if sess == nil {
		return UsuarioAnonimo
	}
	return sess.Usuario.Identidade()
}

// List devolve os protocolos visíveis para a sessão, mais recentes primeiro:
// o aprendiz vê os próprios, a empresa os que citam seu nome e o auditor todos.
func (s *Service) List(ctx context.Context, sess *session.Session) ([]repo.Protocolo, error) {
	if sess == nil {
		return nil, service.ErrForbidden
	}
	switch sess.Role() {
	case repo.RoleAprendiz:
		return s.protocols.ListBySubmitter(ctx, sess.Usuario.Identidade())
	case repo.RoleEmpresa:
		return s.protocols.ListByCompany(ctx, sess.Usuario.Afiliacao())
	case repo.RoleMinisterio:
		return s.protocols.ListAll(ctx)
	default:
		return nil, service.ErrForbidden
	}
}

// Stats resume uma lista de protocolos.
type Stats struct {
	Total       int `json:"total"`
	Pending     int `json:"pendentes"`
	Completed   int `json:"concluidos"`
	PraiseCount int `json:"elogios"`
}

// Stats é pura: a mesma lista sempre produz o mesmo resumo.
func (s *Service) Stats(protocols []repo.Protocolo) Stats {
	st := Stats{Total: len(protocols)}
	for _, p := range protocols {
		switch p.Status {
		case repo.StatusRecebido, repo.StatusAnalise:
			st.Pending++
		case repo.StatusConcluido:
			st.Completed++
		}
		if s.vocab.IsPraise(p.Tipo) {
			st.PraiseCount++
		}
	}
	return st
}

// Visible aplica o filtro de exibição do papel: a empresa só vê elogios no painel.
func (s *Service) Visible(protocols []repo.Protocolo, role string) []repo.Protocolo {
	if role != repo.RoleEmpresa {
		return protocols
	}
	out := make([]repo.Protocolo, 0, len(protocols))
	for _, p := range protocols {
		if s.vocab.IsPraise(p.Tipo) {
			out = append(out, p)
		}
	}
	return out
}

// Dashboard é o conteúdo do painel do papel logado.
type Dashboard struct {
	Protocolos []repo.Protocolo `json:"protocolos"`
	Stats      Stats            `json:"stats"`
	Equipe     *int             `json:"equipe,omitempty"`
}

// Dashboard lista, resume sobre o conjunto completo e filtra para exibição.
// Para empresas, Equipe vem de uma contagem separada de aprendizes vinculados.
func (s *Service) Dashboard(ctx context.Context, sess *session.Session) (*Dashboard, error) {
	list, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Protocolos: s.Visible(list, sess.Role()),
		Stats:      s.Stats(list),
	}
	if sess.Role() == repo.RoleEmpresa {
		n, err := s.users.CountTeam(ctx, sess.Usuario.Afiliacao())
		if err != nil {
			return nil, err
		}
		d.Equipe = &n
	}
	return d, nil
}

// Refine delega ao refinador; nunca falha.
func (s *Service) Refine(ctx context.Context, descricao string) refine.Result {
	return s.refiner.Refine(ctx, descricao)
}

// UpdateStatus avança o status de um protocolo; restrito a auditores.
func (s *Service) UpdateStatus(ctx context.Context, sess *session.Session, id, status string) (*repo.Protocolo, error) {
	if err := service.RequireRole(sess, repo.RoleMinisterio); err != nil {
		return nil, err
	}
	next, ok := statusRank[status]
	if !ok {
		return nil, ErrInvalidStatus
	}

	current, err := s.protocols.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if next <= statusRank[current.Status] {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current.Status, status)
	}

	if err := s.protocols.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	log.Info().Str("id", id).Str("de", current.Status).Str("para", status).Msg("status do protocolo alterado")

	current.Status = status
	return &current, nil
}

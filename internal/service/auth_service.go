package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/auth"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/session"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
	"github.com/ouvidoria/portal-aprendiz/internal/util"
	"github.com/ouvidoria/portal-aprendiz/internal/view"
)

var (
	// ErrAccessDenied não revela se a identificação, a senha ou o papel estava errado.
	ErrAccessDenied = errors.New("Acesso negado! Verifique seus dados.")
	// ErrDuplicateIdentification indica identificação já usada no mesmo papel.
	ErrDuplicateIdentification = errors.New("Esta identificação já está cadastrada!")
	// ErrRegistrationClosed indica papel sem cadastro aberto (auditores).
	ErrRegistrationClosed = errors.New("o cadastro de auditores é feito pelo canal oficial do Ministério; solicite seu acesso ao administrador do portal")
	// ErrUnknownRole indica papel fora de aprendiz, empresa e ministerio.
	ErrUnknownRole = errors.New("perfil desconhecido")
	// ErrSessionInvalid indica token ou sessão inválidos ou expirados.
	ErrSessionInvalid = errors.New("sessão inválida ou expirada")
)

const maxLogoBytes = 512 * 1024

type userRepository interface {
	Insert(ctx context.Context, u repo.Usuario) (repo.Usuario, error)
	FindByIdentification(ctx context.Context, identificacao, role string) (repo.Usuario, error)
	CountByIdentification(ctx context.Context, identificacao, role string) (int, error)
}

// AuthService concentra cadastro, login e sessões.
type AuthService struct {
	users    userRepository
	sessions *session.Store
	jwt      *auth.JWTManager
}

// NewAuthService cria novo serviço.
func NewAuthService(users userRepository, sessions *session.Store, jwtMgr *auth.JWTManager) *AuthService {
	return &AuthService{users: users, sessions: sessions, jwt: jwtMgr}
}

// RegisterInput traz os campos do formulário de cadastro.
// Empresa é a empresa vinculada (aprendiz) ou o nome da empresa (empresa).
type RegisterInput struct {
	Role           string `json:"-"`
	Nome           string `json:"nome"`
	Email          string `json:"email"`
	Identificacao  string `json:"identificacao"`
	Senha          string `json:"senha"`
	ConfirmarSenha string `json:"confirmarSenha"`
	Empresa        string `json:"empresa"`
	CNPJ           string `json:"cnpj"`
	Logo           string `json:"logo"`
}

// LoginResult é devolvido por cadastro e login.
type LoginResult struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Session     *session.Session `json:"sessao"`
	Tela        view.Screen      `json:"tela"`
}

// Profile descreve o usuário logado e a tela correspondente.
type Profile struct {
	Usuario repo.Usuario `json:"usuario"`
	Perfil  view.Perfil  `json:"perfil"`
	Tela    view.Screen  `json:"tela"`
}

// Register valida o formulário, grava o usuário e abre a sessão.
// Nenhuma falha de validação toca o store.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	perfil, ok := view.ForRole(in.Role)
	if !ok {
		return nil, ErrUnknownRole
	}
	if !perfil.Cadastro {
		return nil, ErrRegistrationClosed
	}

	if err := util.RequireString(in.Identificacao, "identificacao"); err != nil {
		return nil, err
	}
	if repo.Reservado(in.Identificacao) {
		return nil, util.Invalid("identificacao", util.CodeInvalidValue, "Esta identificação não pode ser usada.")
	}
	if err := util.RequireString(in.Senha, "senha"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Email) != "" {
		if err := util.ValidateEmail(in.Email); err != nil {
			return nil, err
		}
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return nil, err
	}
	if in.Senha != in.ConfirmarSenha {
		return nil, util.Invalid("confirmarSenha", util.CodeMismatch, "As senhas não coincidem!")
	}
	if strings.TrimSpace(in.Empresa) == "" {
		msg := "Selecione sua empresa de trabalho."
		if in.Role == repo.RoleEmpresa {
			msg = "Informe o nome da sua empresa."
		}
		return nil, util.Invalid("empresa", util.CodeRequired, msg)
	}
	if repo.Reservado(in.Empresa) {
		return nil, util.Invalid("empresa", util.CodeInvalidValue, "Este nome de empresa não pode ser usado.")
	}
	logo, err := normalizeLogo(in.Logo)
	if err != nil {
		return nil, err
	}

	n, err := s.users.CountByIdentification(ctx, in.Identificacao, in.Role)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrDuplicateIdentification
	}

	hash, err := auth.Hash(in.Senha)
	if err != nil {
		return nil, fmt.Errorf("hash de senha: %w", err)
	}

	u := repo.Usuario{
		Nome:          strings.TrimSpace(in.Nome),
		Email:         strings.TrimSpace(in.Email),
		Identificacao: in.Identificacao,
		SenhaHash:     hash,
		Role:          in.Role,
		Empresa:       in.Empresa,
		CNPJ:          strings.TrimSpace(in.CNPJ),
		Logo:          logo,
	}
	if u.Nome == "" {
		if in.Role == repo.RoleEmpresa {
			u.Nome = in.Empresa
		} else {
			u.Nome = in.Identificacao
		}
	}
	if in.Role == repo.RoleEmpresa && u.CNPJ == "" {
		u.CNPJ = in.Identificacao
	}

	created, err := s.users.Insert(ctx, u)
	if err != nil {
		// índice único (identificacao, role) pega cadastros simultâneos
		if store.KindOf(err) == store.KindConstraint {
			return nil, ErrDuplicateIdentification
		}
		return nil, err
	}
	if created.Identificacao == "" {
		created = u
	}

	log.Info().Str("role", in.Role).Msg("cadastro concluído")
	return s.openSession(ctx, created)
}

// Login é uma busca pura por (papel, identificação, senha); sem bloqueio por tentativas.
func (s *AuthService) Login(ctx context.Context, role, identificacao, senha string) (*LoginResult, error) {
	if !view.KnownRole(role) || strings.TrimSpace(identificacao) == "" || senha == "" {
		return nil, ErrAccessDenied
	}

	u, err := s.users.FindByIdentification(ctx, identificacao, role)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Str("role", role).Msg("login: identificação não encontrada")
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	if !auth.Verify(senha, u.SenhaHash) {
		log.Warn().Str("role", role).Msg("login: senha inválida")
		return nil, ErrAccessDenied
	}

	return s.openSession(ctx, u)
}

// Logout encerra a sessão; não consulta o store de registros.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Me devolve o perfil da sessão e a tela do painel.
func (s *AuthService) Me(ctx context.Context, sess *session.Session) (*Profile, error) {
	if sess == nil {
		return nil, ErrSessionInvalid
	}
	perfil, _ := view.ForRole(sess.Usuario.Role)
	return &Profile{
		Usuario: sess.Usuario,
		Perfil:  perfil,
		Tela:    view.Resolve(view.State{Role: sess.Usuario.Role, LoggedIn: true}),
	}, nil
}

// Authenticate valida o token e carrega a sessão ativa do Redis.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	claims, err := s.jwt.ParseAndValidate(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if sess.Usuario.Identificacao != claims.Subject || sess.Usuario.Role != claims.Role {
		log.Warn().Str("sid", claims.SessionID).Msg("token não corresponde à sessão")
		return nil, ErrSessionInvalid
	}
	return sess, nil
}

func (s *AuthService) openSession(ctx context.Context, u repo.Usuario) (*LoginResult, error) {
	u.SenhaHash = ""
	sess, err := s.sessions.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	token, expires, err := s.jwt.Issue(u.Identificacao, u.Role, sess.ID)
	if err != nil {
		_ = s.sessions.Delete(ctx, sess.ID)
		return nil, err
	}

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expires,
		Session:     sess,
		Tela:        view.Resolve(view.State{Role: u.Role, LoggedIn: true}),
	}, nil
}

// normalizeLogo aceita base64 puro ou data URL e limita o tamanho decodificado.
func normalizeLogo(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	payload := raw
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ";base64,")
		if idx < 0 {
			return "", util.Invalid("logo", util.CodeInvalidValue, "logo deve estar em base64")
		}
		payload = payload[idx+len(";base64,"):]
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", util.Invalid("logo", util.CodeInvalidValue, "logo deve estar em base64")
	}
	if len(decoded) > maxLogoBytes {
		return "", util.Invalid("logo", util.CodeInvalidValue, "logo excede 512 KiB")
	}
	return raw, nil
}

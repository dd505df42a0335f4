package repo

import (
	"strings"
	"time"
)

// Papéis aceitos pelo portal.
const (
	RoleAprendiz   = "aprendiz"
	RoleEmpresa    = "empresa"
	RoleMinisterio = "ministerio"
)

// Status possíveis de um protocolo, na ordem do fluxo.
const (
	StatusRecebido  = "Recebido"
	StatusAnalise   = "Em Análise"
	StatusConcluido = "Concluído"
	StatusArquivado = "Arquivado"
)

// Valores gravados nos protocolos sem sessão ou sem empresa. Não podem ser
// usados como identificação ou empresa de um cadastro.
const (
	EmpresaGeral   = "Geral"
	UsuarioAnonimo = "anonimo"
)

// Reservado informa se o valor colide com um dos marcadores acima.
func Reservado(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, EmpresaGeral) || strings.EqualFold(v, UsuarioAnonimo)
}

// Usuario representa aprendiz, empresa ou auditor cadastrado.
// Identificacao é matrícula, CNPJ ou ID do auditor conforme o papel.
type Usuario struct {
	Nome          string `json:"nome"`
	Email         string `json:"email,omitempty"`
	Identificacao string `json:"identificacao"`
	SenhaHash     string `json:"-"`
	Role          string `json:"role"`
	Empresa       string `json:"empresa,omitempty"`
	CNPJ          string `json:"cnpj,omitempty"`
	Logo          string `json:"logo,omitempty"`
}

// Identidade é o valor gravado em usuario_email nos protocolos do usuário.
// É a identificação, única dentro do papel; o e-mail não tem essa garantia.
func (u Usuario) Identidade() string {
	return u.Identificacao
}

// Afiliacao devolve a empresa que escopa os protocolos do usuário: o nome
// informado no cadastro para empresas, a empresa vinculada para aprendizes.
func (u Usuario) Afiliacao() string {
	if u.Role == RoleEmpresa && u.Empresa == "" {
		return u.Nome
	}
	return u.Empresa
}

// Protocolo é um relato (denúncia, reclamação, sugestão ou elogio).
type Protocolo struct {
	ID           string    `json:"id"`
	Tipo         string    `json:"tipo"`
	Motivo       string    `json:"motivo"`
	Descricao    string    `json:"descricao"`
	Empresa      string    `json:"empresa"`
	Local        string    `json:"local,omitempty"`
	Horario      string    `json:"horario,omitempty"`
	UsuarioEmail string    `json:"usuario_email"`
	DataCriacao  time.Time `json:"dataCriacao"`
	Status       string    `json:"status"`
}

// Empresa é uma unidade cadastrada por uma empresa (revisão local).
type Empresa struct {
	ID           string `json:"id"`
	NomeFantasia string `json:"nomeFantasia"`
	CNPJ         string `json:"cnpj"`
	Unidade      string `json:"unidade"`
	Endereco     string `json:"endereco,omitempty"`
	Cidade       string `json:"cidade,omitempty"`
}

// Rotulo é o texto usado no seletor de afiliação do cadastro de aprendiz.
func (e Empresa) Rotulo() string {
	if e.Unidade == "" {
		return e.NomeFantasia
	}
	return e.NomeFantasia + " (" + e.Unidade + ")"
}

// Package view decide qual tela o cliente deve exibir a partir do estado da sessão.
package view

import "github.com/ouvidoria/portal-aprendiz/internal/repo"

// Screen identifica uma tela do portal.
type Screen string

const (
	SelecaoPerfil       Screen = "selecao_perfil"
	Autenticacao        Screen = "autenticacao"
	PainelEmpresa       Screen = "painel_empresa"
	PainelAprendiz      Screen = "painel_aprendiz"
	PainelMinisterio    Screen = "painel_ministerio"
	ProtocoloRegistrado Screen = "protocolo_registrado"
)

// State é o estado mínimo que determina a tela.
type State struct {
	Role        string `json:"role"`
	LoggedIn    bool   `json:"logado"`
	Registering bool   `json:"cadastrando"`
	HasResult   bool   `json:"com_resultado"`
}

// Resolve é pura: mesmo estado, mesma tela.
// Um protocolo recém-registrado tem precedência sobre qualquer outra tela.
func Resolve(s State) Screen {
	if s.HasResult {
		return ProtocoloRegistrado
	}
	if _, ok := perfis[s.Role]; !ok {
		return SelecaoPerfil
	}
	if !s.LoggedIn {
		return Autenticacao
	}
	switch s.Role {
	case repo.RoleEmpresa:
		return PainelEmpresa
	case repo.RoleAprendiz:
		return PainelAprendiz
	default:
		return PainelMinisterio
	}
}

// Perfil reúne os rótulos que variam por papel no formulário de acesso.
type Perfil struct {
	Role                string `json:"role"`
	Titulo              string `json:"titulo"`
	Descricao           string `json:"descricao"`
	Portal              string `json:"portal"`
	RotuloIdentificacao string `json:"rotulo_identificacao"`
	Placeholder         string `json:"placeholder"`
	RotuloAfiliacao     string `json:"rotulo_afiliacao,omitempty"`
	Cargo               string `json:"cargo"`
	Cadastro            bool   `json:"cadastro_aberto"`
}

var perfis = map[string]Perfil{
	repo.RoleAprendiz: {
		Role:                repo.RoleAprendiz,
		Titulo:              "Jovem Aprendiz",
		Descricao:           "Relate irregularidades no contrato ou ambiente de trabalho.",
		Portal:              "Portal do Aprendiz",
		RotuloIdentificacao: "Matrícula",
		Placeholder:         "Número da Matrícula",
		RotuloAfiliacao:     "Sua Empresa Vinculada",
		Cargo:               "Aprendiz Ativo",
		Cadastro:            true,
	},
	repo.RoleEmpresa: {
		Role:                repo.RoleEmpresa,
		Titulo:              "Empresa (RH)",
		Descricao:           "Gestão de unidades e conformidade com a Lei.",
		Portal:              "Portal do RH",
		RotuloIdentificacao: "CNPJ",
		Placeholder:         "00.000.000/0000-00",
		RotuloAfiliacao:     "Nome da Empresa",
		Cargo:               "Recursos Humanos",
		Cadastro:            true,
	},
	repo.RoleMinisterio: {
		Role:                repo.RoleMinisterio,
		Titulo:              "Auditores",
		Descricao:           "Fiscalização de protocolos e auditoria.",
		Portal:              "Portal do Ministério",
		RotuloIdentificacao: "ID do Auditor",
		Placeholder:         "ID funcional",
		Cargo:               "Auditoria Fiscal",
	},
}

// Ordem de exibição na tela de seleção.
var ordem = []string{repo.RoleAprendiz, repo.RoleEmpresa, repo.RoleMinisterio}

// ForRole devolve os rótulos do papel; ok=false para papel desconhecido.
func ForRole(role string) (Perfil, bool) {
	p, ok := perfis[role]
	return p, ok
}

// Perfis lista todos os papéis na ordem da tela de seleção.
func Perfis() []Perfil {
	out := make([]Perfil, 0, len(ordem))
	for _, r := range ordem {
		out = append(out, perfis[r])
	}
	return out
}

// KnownRole informa se o papel existe.
func KnownRole(role string) bool {
	_, ok := perfis[role]
	return ok
}

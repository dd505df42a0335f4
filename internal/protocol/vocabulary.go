package protocol

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var vocabularyYAML []byte

// Tipo é uma natureza de manifestação e seus motivos.
type Tipo struct {
	Nome    string   `yaml:"nome" json:"nome"`
	Elogio  bool     `yaml:"elogio" json:"elogio"`
	Motivos []string `yaml:"motivos" json:"motivos"`
}

// Vocabulary é a tabela tipo → motivos usada no formulário e na validação.
type Vocabulary struct {
	Padrao []string `yaml:"padrao" json:"padrao"`
	Tipos  []Tipo   `yaml:"tipos" json:"tipos"`

	index map[string]int
}

// LoadVocabulary lê a tabela embutida.
func LoadVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(vocabularyYAML)
}

// ParseVocabulary interpreta e valida uma tabela em YAML.
func ParseVocabulary(raw []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("vocabulário: %w", err)
	}
	if len(v.Tipos) == 0 {
		return nil, errors.New("vocabulário sem tipos")
	}
	if len(v.Padrao) == 0 {
		return nil, errors.New("vocabulário sem motivos padrão")
	}

	v.index = make(map[string]int, len(v.Tipos))
	for i, t := range v.Tipos {
		if t.Nome == "" || len(t.Motivos) == 0 {
			return nil, fmt.Errorf("vocabulário: tipo %d incompleto", i)
		}
		if _, dup := v.index[t.Nome]; dup {
			return nil, fmt.Errorf("vocabulário: tipo %q repetido", t.Nome)
		}
		v.index[t.Nome] = i
	}
	return &v, nil
}

// Motivos devolve as opções do tipo; tipos livres usam a lista padrão.
func (v *Vocabulary) Motivos(tipo string) []string {
	if i, ok := v.index[tipo]; ok {
		return v.Tipos[i].Motivos
	}
	return v.Padrao
}

// IsPraise informa se o tipo é de elogio.
func (v *Vocabulary) IsPraise(tipo string) bool {
	i, ok := v.index[tipo]
	return ok && v.Tipos[i].Elogio
}

// Resolve normaliza tipo e motivo: tipo vazio vira o primeiro da tabela e um
// motivo que não pertence ao tipo volta para a primeira opção dele.
func (v *Vocabulary) Resolve(tipo, motivo string) (string, string) {
	tipo = strings.TrimSpace(tipo)
	if tipo == "" {
		tipo = v.Tipos[0].Nome
	}
	motivo = strings.TrimSpace(motivo)

	options := v.Motivos(tipo)
	for _, m := range options {
		if m == motivo {
			return tipo, motivo
		}
	}
	return tipo, options[0]
}

package store

import (
	"context"
	"fmt"
)

// Tabelas conhecidas pelo portal.
const (
	TableUsers     = "users"
	TableProtocols = "protocols"
	TableCompanies = "companies"
)

// Record é uma linha de tabela indexada pelo nome da coluna.
type Record map[string]any

// Filter representa uma condição de igualdade coluna = valor.
type Filter struct {
	Column string
	Value  any
}

// Eq é atalho para montar filtros de igualdade.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Order define ordenação por uma coluna.
type Order struct {
	Column string
	Desc   bool
}

// Store é a fachada sobre o backend de tabelas remoto.
type Store interface {
	Insert(ctx context.Context, table string, rec Record) (Record, error)
	Select(ctx context.Context, table string, filters []Filter, order *Order) ([]Record, error)
	Count(ctx context.Context, table string, filters []Filter) (int, error)
	Update(ctx context.Context, table string, filters []Filter, values Record) (int, error)
	Ping(ctx context.Context) error
}

// Schema lista as colunas aceitas por tabela, na ordem de criação.
var Schema = map[string][]string{
	TableUsers:     {"nome", "email", "identificacao", "senha", "role", "empresa", "cnpj", "logo"},
	TableProtocols: {"id", "tipo", "motivo", "descricao", "empresa", "local", "horario", "usuario_email", "dataCriacao", "status"},
	TableCompanies: {"id", "nomeFantasia", "cnpj", "unidade", "endereco", "cidade"},
}

// UniqueKeys lista, por tabela, as colunas cuja combinação não se repete.
// O schema do Postgres cria os mesmos índices; no backend REST a tabela remota
// precisa tê-los.
var UniqueKeys = map[string][]string{
	TableUsers:     {"identificacao", "role"},
	TableProtocols: {"id"},
	TableCompanies: {"id"},
}

func validateColumns(table string, columns ...string) error {
	cols, ok := Schema[table]
	if !ok {
		return fmt.Errorf("store: tabela desconhecida %q", table)
	}
	for _, c := range columns {
		found := false
		for _, known := range cols {
			if known == c {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("store: coluna desconhecida %s.%s", table, c)
		}
	}
	return nil
}

func filterColumns(filters []Filter) []string {
	cols := make([]string, 0, len(filters))
	for _, f := range filters {
		cols = append(cols, f.Column)
	}
	return cols
}

func recordColumns(table string, rec Record) []string {
	cols := make([]string, 0, len(rec))
	for _, c := range Schema[table] {
		if _, ok := rec[c]; ok {
			cols = append(cols, c)
		}
	}
	// colunas fora do schema entram no fim para serem rejeitadas pela validação
	for c := range rec {
		if !contains(cols, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

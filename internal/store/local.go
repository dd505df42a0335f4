package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Local guarda cada tabela como uma lista JSON (pja_<tabela>.json), reescrita
// por inteiro a cada mutação. Sem diretório, funciona só em memória.
type Local struct {
	dir    string
	mu     sync.Mutex
	tables map[string][]Record
}

// NewLocal carrega o snapshot do diretório informado (vazio = memória).
func NewLocal(dir string) (*Local, error) {
	l := &Local{dir: dir, tables: make(map[string][]Record)}
	if dir == "" {
		return l, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: criar diretório local: %w", err)
	}
	for table := range Schema {
		raw, err := os.ReadFile(l.path(table))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: ler %s: %w", table, err)
		}
		var rows []Record
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("store: snapshot %s corrompido: %w", table, err)
		}
		l.tables[table] = rows
	}
	return l, nil
}

// SnapshotName devolve o nome da lista persistida para a tabela.
func SnapshotName(table string) string {
	return "pja_" + table
}

func (l *Local) path(table string) string {
	return filepath.Join(l.dir, SnapshotName(table)+".json")
}

// Insert acrescenta o registro e regrava o snapshot da tabela.
func (l *Local) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	if err := validateColumns(table, recordColumns(table, rec)...); err != nil {
		return nil, err
	}
	normalized, err := normalize(rec)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if key, dup := l.duplicate(table, normalized); dup {
		return nil, &Error{Kind: KindConstraint, Op: "insert", Table: table, Err: fmt.Errorf("chave única repetida: %s", key)}
	}

	rows := append(append([]Record(nil), l.tables[table]...), normalized)
	if err := l.persist(table, rows); err != nil {
		return nil, err
	}
	l.tables[table] = rows
	return clone(normalized), nil
}

// Select filtra por igualdade e ordena de forma estável.
func (l *Local) Select(ctx context.Context, table string, filters []Filter, order *Order) ([]Record, error) {
	if err := validateColumns(table, filterColumns(filters)...); err != nil {
		return nil, err
	}
	if order != nil {
		if err := validateColumns(table, order.Column); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Record
	for _, row := range l.tables[table] {
		if matches(row, filters) {
			out = append(out, clone(row))
		}
	}
	if order != nil {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i][order.Column], out[j][order.Column]
			if order.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	return out, nil
}

// Count conta registros que satisfazem os filtros.
func (l *Local) Count(ctx context.Context, table string, filters []Filter) (int, error) {
	if err := validateColumns(table, filterColumns(filters)...); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, row := range l.tables[table] {
		if matches(row, filters) {
			n++
		}
	}
	return n, nil
}

// Update altera os registros filtrados e regrava o snapshot.
func (l *Local) Update(ctx context.Context, table string, filters []Filter, values Record) (int, error) {
	cols := recordColumns(table, values)
	if len(cols) == 0 {
		return 0, errors.New("store: nada para atualizar")
	}
	if err := validateColumns(table, append(cols, filterColumns(filters)...)...); err != nil {
		return 0, err
	}
	normalized, err := normalize(values)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]Record, len(l.tables[table]))
	n := 0
	for i, row := range l.tables[table] {
		row = clone(row)
		if matches(row, filters) {
			for k, v := range normalized {
				row[k] = v
			}
			n++
		}
		rows[i] = row
	}
	if n == 0 {
		return 0, nil
	}
	if err := l.persist(table, rows); err != nil {
		return 0, err
	}
	l.tables[table] = rows
	return n, nil
}

// duplicate procura uma linha com a mesma chave única; chamar com l.mu travado.
func (l *Local) duplicate(table string, rec Record) (string, bool) {
	cols := UniqueKeys[table]
	if len(cols) == 0 {
		return "", false
	}
	filters := make([]Filter, 0, len(cols))
	for _, c := range cols {
		// como no SQL, chave com valor nulo não conflita
		if rec[c] == nil {
			return "", false
		}
		filters = append(filters, Eq(c, rec[c]))
	}
	for _, row := range l.tables[table] {
		if matches(row, filters) {
			return strings.Join(cols, ","), true
		}
	}
	return "", false
}

// Ping sempre responde; o snapshot é local.
func (l *Local) Ping(ctx context.Context) error {
	return nil
}

func (l *Local) persist(table string, rows []Record) error {
	if l.dir == "" {
		return nil
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	tmp := l.path(table) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return wrap("persist", table, KindUnavailable, err)
	}
	if err := os.Rename(tmp, l.path(table)); err != nil {
		return wrap("persist", table, KindUnavailable, err)
	}
	return nil
}

// normalize passa o registro por JSON para que memória e disco tenham a mesma forma.
func normalize(rec Record) (Record, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func clone(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func matches(row Record, filters []Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || formatValue(v) != formatValue(f.Value) {
			return false
		}
	}
	return true
}

func less(a, b any) bool {
	as, bs := formatValue(a), formatValue(b)
	if at, err := time.Parse(time.RFC3339Nano, as); err == nil {
		if bt, err := time.Parse(time.RFC3339Nano, bs); err == nil {
			return at.Before(bt)
		}
	}
	if af, err := strconv.ParseFloat(as, 64); err == nil {
		if bf, err := strconv.ParseFloat(bs, 64); err == nil {
			return af < bf
		}
	}
	return as < bs
}

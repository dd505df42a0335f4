package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Postgres implementa Store sobre um pool pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres cria o backend Postgres.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Insert grava o registro e devolve a linha persistida.
func (p *Postgres) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	cols := recordColumns(table, rec)
	if err := validateColumns(table, cols...); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = ident(c)
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		ident(table), strings.Join(names, ", "), strings.Join(marks, ", "), selectList(table))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("insert", table, classifyPg(err), err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, wrap("insert", table, classifyPg(err), err)
	}
	return Record(row), nil
}

// Select busca registros por igualdade, com ordenação opcional.
func (p *Postgres) Select(ctx context.Context, table string, filters []Filter, order *Order) ([]Record, error) {
	if err := validateColumns(table, filterColumns(filters)...); err != nil {
		return nil, err
	}
	if order != nil {
		if err := validateColumns(table, order.Column); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	where, args := whereClause(filters, 1)
	query := fmt.Sprintf("SELECT %s FROM %s%s", selectList(table), ident(table), where)
	if order != nil {
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", ident(order.Column), dir)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("select", table, classifyPg(err), err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, wrap("select", table, classifyPg(err), err)
	}

	out := make([]Record, 0, len(maps))
	for _, m := range maps {
		out = append(out, Record(m))
	}
	return out, nil
}

// Count conta registros que satisfazem os filtros.
func (p *Postgres) Count(ctx context.Context, table string, filters []Filter) (int, error) {
	if err := validateColumns(table, filterColumns(filters)...); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	where, args := whereClause(filters, 1)
	var n int
	if err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s%s", ident(table), where), args...).Scan(&n); err != nil {
		return 0, wrap("count", table, classifyPg(err), err)
	}
	return n, nil
}

// Update altera colunas dos registros filtrados e devolve quantos foram afetados.
func (p *Postgres) Update(ctx context.Context, table string, filters []Filter, values Record) (int, error) {
	cols := recordColumns(table, values)
	if len(cols) == 0 {
		return 0, errors.New("store: nada para atualizar")
	}
	if err := validateColumns(table, append(cols, filterColumns(filters)...)...); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filters))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(c), i+1)
		args = append(args, values[c])
	}
	where, whereArgs := whereClause(filters, len(cols)+1)
	args = append(args, whereArgs...)

	tag, err := p.pool.Exec(ctx, fmt.Sprintf("UPDATE %s SET %s%s", ident(table), strings.Join(sets, ", "), where), args...)
	if err != nil {
		return 0, wrap("update", table, classifyPg(err), err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping verifica a conexão com o banco.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return wrap("ping", "", KindUnavailable, err)
	}
	return nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func selectList(table string) string {
	cols := Schema[table]
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	return strings.Join(quoted, ", ")
}

func whereClause(filters []Filter, start int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		clauses[i] = fmt.Sprintf("%s = $%d", ident(f.Column), start+i)
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func classifyPg(err error) Kind {
	if errors.Is(err, pgx.ErrNoRows) {
		return KindNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return KindConstraint
		case pgErr.Code == "42P01", pgErr.Code == "42703":
			return KindSchemaCache
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "57P03":
			return KindUnavailable
		}
		return KindUnknown
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return KindUnavailable
	}
	return KindUnknown
}

package repo

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/store"
)

var newestFirst = &store.Order{Column: "dataCriacao", Desc: true}

// Protocols acessa a tabela protocols.
type Protocols struct {
	store store.Store
}

// NewProtocols cria o repositório de protocolos.
func NewProtocols(s store.Store) *Protocols {
	return &Protocols{store: s}
}

// Insert grava o protocolo.
func (r *Protocols) Insert(ctx context.Context, p Protocolo) (Protocolo, error) {
	rec, err := r.store.Insert(ctx, store.TableProtocols, protocolRecord(p))
	if err != nil {
		return Protocolo{}, err
	}
	created, err := protocolFromRecord(rec)
	if err != nil {
		// o registro foi gravado; devolve o que foi enviado
		log.Warn().Err(err).Str("id", p.ID).Msg("protocolo gravado com retorno ilegível")
		return p, nil
	}
	return created, nil
}

// Exists informa se o id já foi usado.
func (r *Protocols) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.store.Count(ctx, store.TableProtocols, []store.Filter{store.Eq("id", id)})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get busca um protocolo pelo id.
func (r *Protocols) Get(ctx context.Context, id string) (Protocolo, error) {
	list, err := r.list(ctx, []store.Filter{store.Eq("id", id)})
	if err != nil {
		return Protocolo{}, err
	}
	if len(list) == 0 {
		return Protocolo{}, ErrNotFound
	}
	return list[0], nil
}

// ListBySubmitter lista protocolos enviados pela identidade, mais recentes primeiro.
func (r *Protocols) ListBySubmitter(ctx context.Context, identidade string) ([]Protocolo, error) {
	return r.list(ctx, []store.Filter{store.Eq("usuario_email", identidade)})
}

// ListByCompany lista protocolos da empresa, mais recentes primeiro.
func (r *Protocols) ListByCompany(ctx context.Context, empresa string) ([]Protocolo, error) {
	return r.list(ctx, []store.Filter{store.Eq("empresa", empresa)})
}

// ListAll lista todos os protocolos, mais recentes primeiro.
func (r *Protocols) ListAll(ctx context.Context) ([]Protocolo, error) {
	return r.list(ctx, nil)
}

// UpdateStatus altera o status; ErrNotFound se o id não existir.
func (r *Protocols) UpdateStatus(ctx context.Context, id, status string) error {
	n, err := r.store.Update(ctx, store.TableProtocols, []store.Filter{store.Eq("id", id)}, store.Record{"status": status})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Protocols) list(ctx context.Context, filters []store.Filter) ([]Protocolo, error) {
	rows, err := r.store.Select(ctx, store.TableProtocols, filters, newestFirst)
	if err != nil {
		return nil, err
	}
	out := make([]Protocolo, 0, len(rows))
	for _, rec := range rows {
		p, err := protocolFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func protocolRecord(p Protocolo) store.Record {
	return store.Record{
		"id":            p.ID,
		"tipo":          p.Tipo,
		"motivo":        p.Motivo,
		"descricao":     p.Descricao,
		"empresa":       p.Empresa,
		"local":         p.Local,
		"horario":       p.Horario,
		"usuario_email": p.UsuarioEmail,
		"dataCriacao":   p.DataCriacao,
		"status":        p.Status,
	}
}

func protocolFromRecord(rec store.Record) (Protocolo, error) {
	created, err := timestamp(rec, "dataCriacao")
	if err != nil {
		return Protocolo{}, err
	}
	status := str(rec, "status")
	if status == "" {
		status = StatusRecebido
	}
	return Protocolo{
		ID:           str(rec, "id"),
		Tipo:         str(rec, "tipo"),
		Motivo:       str(rec, "motivo"),
		Descricao:    str(rec, "descricao"),
		Empresa:      str(rec, "empresa"),
		Local:        str(rec, "local"),
		Horario:      str(rec, "horario"),
		UsuarioEmail: str(rec, "usuario_email"),
		DataCriacao:  created,
		Status:       status,
	}, nil
}

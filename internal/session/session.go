package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ouvidoria/portal-aprendiz/internal/repo"
)

// ErrNotFound indica sessão inexistente, expirada ou encerrada.
var ErrNotFound = errors.New("sessão não encontrada")

const keyPrefix = "sessao:"

// Session é o usuário logado; criada no login ou cadastro, destruída no logout.
type Session struct {
	ID       string       `json:"id"`
	Usuario  repo.Usuario `json:"usuario"`
	CriadaEm time.Time    `json:"criada_em"`
}

// Role é atalho para o papel do usuário da sessão (vazio se nil).
func (s *Session) Role() string {
	if s == nil {
		return ""
	}
	return s.Usuario.Role
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store guarda sessões no Redis com expiração.
type Store struct {
	redis redisCommander
	ttl   time.Duration
	now   func() time.Time
}

// NewStore cria o store de sessões.
func NewStore(client redisCommander, ttl time.Duration) *Store {
	return &Store{redis: client, ttl: ttl, now: time.Now}
}

// Key monta a chave Redis da sessão.
func Key(id string) string {
	return keyPrefix + id
}

// Create abre uma sessão para o usuário.
func (s *Store) Create(ctx context.Context, u repo.Usuario) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), Usuario: u, CriadaEm: s.now().UTC()}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, Key(sess.ID), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("gravar sessão: %w", err)
	}
	return sess, nil
}

// Get carrega a sessão pelo id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := s.redis.Get(ctx, Key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ler sessão: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("sessão corrompida: %w", err)
	}
	return &sess, nil
}

// Delete encerra a sessão; id desconhecido não é erro.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.redis.Del(ctx, Key(id)).Err()
}

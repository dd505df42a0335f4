package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/config"
	"github.com/ouvidoria/portal-aprendiz/internal/store"
)

// OpenStore abre o backend de registros escolhido em STORE_BACKEND. No
// postgres o schema é aplicado antes de devolver o store. close nunca é nil.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return nil, func() {}, fmt.Errorf("db: %w", err)
		}
		if err := Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, func() {}, fmt.Errorf("migração: %w", err)
		}
		return store.NewPostgres(pool), pool.Close, nil

	case config.StoreREST:
		rest, err := store.NewREST(store.RESTConfig{BaseURL: cfg.RESTURL, APIKey: cfg.RESTAPIKey})
		if err != nil {
			return nil, func() {}, err
		}
		return rest, func() {}, nil

	case config.StoreLocal:
		local, err := store.NewLocal(cfg.LocalDataDir)
		if err != nil {
			return nil, func() {}, err
		}
		log.Warn().Str("dir", cfg.LocalDataDir).Msg("usando snapshot local; dados não são compartilhados entre instâncias")
		return local, func() {}, nil
	}
	return nil, func() {}, fmt.Errorf("backend de registros desconhecido: %q", cfg.StoreBackend)
}

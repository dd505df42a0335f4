package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ouvidoria/portal-aprendiz/internal/auth"
	"github.com/ouvidoria/portal-aprendiz/internal/company"
	"github.com/ouvidoria/portal-aprendiz/internal/config"
	"github.com/ouvidoria/portal-aprendiz/internal/db"
	internalhttp "github.com/ouvidoria/portal-aprendiz/internal/http"
	"github.com/ouvidoria/portal-aprendiz/internal/notify"
	"github.com/ouvidoria/portal-aprendiz/internal/protocol"
	"github.com/ouvidoria/portal-aprendiz/internal/refine"
	"github.com/ouvidoria/portal-aprendiz/internal/repo"
	"github.com/ouvidoria/portal-aprendiz/internal/service"
	"github.com/ouvidoria/portal-aprendiz/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	st, closeStore, err := db.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	vocab, err := protocol.LoadVocabulary()
	if err != nil {
		return err
	}

	users := repo.NewUsers(st)
	companies := company.NewService(repo.NewCompanies(st))
	if cfg.StoreBackend == config.StoreLocal {
		if seeded, err := companies.Seed(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		} else if seeded {
			log.Info().Msg("unidade inicial cadastrada")
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	authService := service.NewAuthService(users, session.NewStore(redisClient, cfg.SessionTTL), jwtManager)

	refiner := refine.New(newGenerator(ctx, cfg), cfg.Refine.MinLen, refine.WithCache(redisClient, cfg.Refine.CacheTTL))
	protocols := protocol.NewService(repo.NewProtocols(st), users, refiner, notify.NewWebhook(cfg.NotifyWebhook), vocab, cfg.Protocol.DescriptionMinLen)

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:    cfg,
		Store:     st,
		Redis:     redisClient,
		Auth:      authService,
		Protocols: protocols,
		Companies: companies,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("store", cfg.StoreBackend).Bool("refino", refiner.Enabled()).Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newGenerator devolve nil sem chave configurada; o refinador então mantém o texto.
func newGenerator(ctx context.Context, cfg *config.Config) refine.Generator {
	if cfg.Refine.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY ausente; refino de texto desativado")
		return nil
	}
	gen, err := refine.NewGeminiGenerator(ctx, refine.GeminiConfig{APIKey: cfg.Refine.APIKey, Model: cfg.Refine.Model})
	if err != nil {
		log.Warn().Err(err).Msg("refino de texto desativado")
		return nil
	}
	return gen
}

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backends aceitos para o armazenamento de registros.
const (
	StorePostgres = "postgres"
	StoreREST     = "rest"
	StoreLocal    = "local"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	StoreBackend    string
	DBDSN           string
	RESTURL         string
	RESTAPIKey      string
	LocalDataDir    string
	RedisURL        string
	JWTSecret       string
	SessionTTL      time.Duration
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Refine          RefineConfig
	Protocol        ProtocolConfig
	NotifyWebhook   string
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RefineConfig agrupa parâmetros do serviço de refinamento de texto.
type RefineConfig struct {
	APIKey   string
	Model    string
	MinLen   int
	CacheTTL time.Duration
}

// ProtocolConfig define políticas de envio de protocolos.
type ProtocolConfig struct {
	DescriptionMinLen int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := parseIntEnv("PORT", 8080)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	if err := loadStore(cfg); err != nil {
		return nil, err
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	sessionTTL, err := parseDurationEnv("SESSION_TTL", 8*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.SessionTTL = sessionTTL

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	if cfg.RateLimitPublic, err = parseRateLimit("RATE_LIMIT_PUBLIC", RateLimitConfig{RequestsPerSecond: 10, Burst: 20}); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimit("RATE_LIMIT_AUTH", RateLimitConfig{RequestsPerSecond: 10, Burst: 40}); err != nil {
		return nil, err
	}

	cfg.Refine.APIKey = strings.TrimSpace(getEnv("GEMINI_API_KEY", ""))
	cfg.Refine.Model = strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.5-flash"))
	if cfg.Refine.MinLen, err = parseIntEnv("REFINE_MIN_LEN", 10); err != nil {
		return nil, err
	}
	if cfg.Refine.CacheTTL, err = parseDurationEnv("REFINE_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Protocol.DescriptionMinLen, err = parseIntEnv("DESCRIPTION_MIN_LEN", 20); err != nil {
		return nil, err
	}
	if cfg.Protocol.DescriptionMinLen < cfg.Refine.MinLen {
		return nil, errors.New("DESCRIPTION_MIN_LEN não pode ser menor que REFINE_MIN_LEN")
	}

	cfg.NotifyWebhook = strings.TrimSpace(getEnv("NOTIFY_WEBHOOK_URL", ""))

	return cfg, nil
}

// LoadStore carrega só a escolha do backend de registros; usado pelo portalctl,
// que não precisa de Redis nem de segredo de sessão.
func LoadStore() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := loadStore(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadStore(cfg *Config) error {
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", StorePostgres)))
	switch cfg.StoreBackend {
	case StorePostgres:
		cfg.DBDSN = getEnv("DB_DSN", "")
		if cfg.DBDSN == "" {
			return errors.New("DB_DSN obrigatório")
		}
	case StoreREST:
		cfg.RESTURL = strings.TrimRight(strings.TrimSpace(getEnv("REST_URL", "")), "/")
		cfg.RESTAPIKey = strings.TrimSpace(getEnv("REST_API_KEY", ""))
		if cfg.RESTURL == "" || cfg.RESTAPIKey == "" {
			return errors.New("REST_URL e REST_API_KEY obrigatórios")
		}
	case StoreLocal:
		cfg.LocalDataDir = strings.TrimSpace(getEnv("LOCAL_DATA_DIR", "./data"))
	default:
		return errors.New("STORE_BACKEND inválido")
	}

	return nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

// parseRateLimit lê <prefix>_RPS e <prefix>_BURST.
func parseRateLimit(prefix string, def RateLimitConfig) (RateLimitConfig, error) {
	out := def
	if val := strings.TrimSpace(getEnv(prefix+"_RPS", "")); val != "" {
		rps, err := strconv.ParseFloat(val, 64)
		if err != nil || rps < 0 {
			return RateLimitConfig{}, errors.New(prefix + "_RPS inválido")
		}
		out.RequestsPerSecond = rps
	}
	burst, err := parseIntEnv(prefix+"_BURST", def.Burst)
	if err != nil || burst < 0 {
		return RateLimitConfig{}, errors.New(prefix + "_BURST inválido")
	}
	out.Burst = burst
	return out, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

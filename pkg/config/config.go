package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Availability source kinds accepted by AVAILABILITY_SOURCE.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Availability AvailabilityConfig
	Matching     MatchingConfig
	Oracle       OracleConfig
	RateLimit    RateLimitConfig
	Admin        AdminConfig
	Extraction   ExtractionConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AvailabilityConfig selects and tunes the availability data source.
type AvailabilityConfig struct {
	Source           string
	CSVPath          string
	PostgresTable    string
	FallbackTimezone string
	RefreshInterval  time.Duration
}

// MatchingConfig bounds the matching engine's search.
type MatchingConfig struct {
	HorizonDays int
	MaxResults  int
}

// OracleConfig configures the preference-extraction LLM collaborator.
type OracleConfig struct {
	Endpoint       string
	APIKey         string
	Model          string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// RateLimitConfig tunes the fixed-window limiter guarding public endpoints.
type RateLimitConfig struct {
	Enabled   bool
	Backend   string
	Window    time.Duration
	MaxPerKey int
}

// AdminConfig holds the single operational principal.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// ExtractionConfig tunes caching of extracted preferences.
type ExtractionConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Availability = AvailabilityConfig{
		Source:           strings.ToLower(v.GetString("AVAILABILITY_SOURCE")),
		CSVPath:          v.GetString("AVAILABILITY_CSV_PATH"),
		PostgresTable:    v.GetString("AVAILABILITY_PG_TABLE"),
		FallbackTimezone: v.GetString("AVAILABILITY_FALLBACK_TZ"),
		RefreshInterval:  parseDuration(v.GetString("AVAILABILITY_REFRESH_INTERVAL"), 5*time.Minute),
	}

	cfg.Matching = MatchingConfig{
		HorizonDays: v.GetInt("MATCH_HORIZON_DAYS"),
		MaxResults:  v.GetInt("MATCH_MAX_RESULTS"),
	}

	cfg.Oracle = OracleConfig{
		Endpoint:       v.GetString("ORACLE_ENDPOINT"),
		APIKey:         v.GetString("ORACLE_API_KEY"),
		Model:          v.GetString("ORACLE_MODEL"),
		RequestTimeout: parseDuration(v.GetString("ORACLE_REQUEST_TIMEOUT"), 20*time.Second),
		MaxRetries:     v.GetInt("ORACLE_MAX_RETRIES"),
		RetryBaseDelay: parseDuration(v.GetString("ORACLE_RETRY_BASE_DELAY"), 500*time.Millisecond),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:   v.GetBool("RATE_LIMIT_ENABLED"),
		Backend:   strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
		Window:    parseDuration(v.GetString("RATE_LIMIT_WINDOW"), time.Minute),
		MaxPerKey: v.GetInt("RATE_LIMIT_MAX_PER_KEY"),
	}

	cfg.Admin = AdminConfig{
		Email:        v.GetString("ADMIN_EMAIL"),
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}

	cfg.Extraction = ExtractionConfig{
		CacheEnabled: v.GetBool("EXTRACTION_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("EXTRACTION_CACHE_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "intake")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "intake-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AVAILABILITY_SOURCE", SourceCSV)
	v.SetDefault("AVAILABILITY_CSV_PATH", "data/availabilities.csv")
	v.SetDefault("AVAILABILITY_PG_TABLE", "availabilities")
	v.SetDefault("AVAILABILITY_FALLBACK_TZ", "America/Los_Angeles")
	v.SetDefault("AVAILABILITY_REFRESH_INTERVAL", "5m")

	v.SetDefault("MATCH_HORIZON_DAYS", 28)
	v.SetDefault("MATCH_MAX_RESULTS", 50)

	v.SetDefault("ORACLE_ENDPOINT", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("ORACLE_API_KEY", "")
	v.SetDefault("ORACLE_MODEL", "gpt-4o-mini")
	v.SetDefault("ORACLE_REQUEST_TIMEOUT", "20s")
	v.SetDefault("ORACLE_MAX_RETRIES", 2)
	v.SetDefault("ORACLE_RETRY_BASE_DELAY", "500ms")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("RATE_LIMIT_MAX_PER_KEY", 10)

	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")

	v.SetDefault("EXTRACTION_CACHE_ENABLED", true)
	v.SetDefault("EXTRACTION_CACHE_TTL", "1h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

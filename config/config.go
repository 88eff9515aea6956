package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"facility-finder/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	MongoURI        string `yaml:"mongo_uri"`
	MongoDB         string `yaml:"mongo_db"`
	MongoCollection string `yaml:"mongo_collection"`

	// ResultCacheBackend is one of redis, postgres, memory.
	ResultCacheBackend string        `yaml:"result_cache_backend"`
	ResultCacheTTL     time.Duration `yaml:"result_cache_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	GoogleAPIKey   string        `yaml:"google_api_key"`
	GoogleBaseURL  string        `yaml:"google_base_url"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// SummaryProvider is openai or gemini.
	SummaryProvider string `yaml:"summary_provider"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`

	CompletionTimeout time.Duration `yaml:"completion_timeout"`

	EnrichmentTTL    time.Duration `yaml:"enrichment_ttl"`
	MaxConcurrency   int           `yaml:"max_concurrency"`
	WritebackWorkers int           `yaml:"writeback_workers"`
	WritebackBuffer  int           `yaml:"writeback_buffer"`
	GeocodeCacheSize int           `yaml:"geocode_cache_size"`

	RefreshSchedule  string `yaml:"refresh_schedule"`
	RefreshBatchSize int    `yaml:"refresh_batch_size"`
	RateLimitMs      int    `yaml:"rate_limit_ms"`
}

// Load reads the optional YAML file named by CONFIG_FILE, then the .env file,
// and returns a populated Config. Environment variables win over the file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Printf("[config] Ignoring config file %s: %v", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = getEnv("MONGO_DB", cfg.MongoDB)
	cfg.MongoCollection = getEnv("MONGO_COLLECTION", cfg.MongoCollection)

	cfg.ResultCacheBackend = getEnv("RESULT_CACHE_BACKEND", cfg.ResultCacheBackend)
	cfg.ResultCacheTTL = getEnvDuration("RESULT_CACHE_TTL", cfg.ResultCacheTTL)

	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)

	cfg.PostgresHost = getEnv("POSTGRES_HOST", cfg.PostgresHost)
	cfg.PostgresPort = getEnv("POSTGRES_PORT", cfg.PostgresPort)
	cfg.PostgresUser = getEnv("POSTGRES_USER", cfg.PostgresUser)
	cfg.PostgresPassword = getEnv("POSTGRES_PASSWORD", cfg.PostgresPassword)
	cfg.PostgresDB = getEnv("POSTGRES_DB", cfg.PostgresDB)
	cfg.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", cfg.PostgresSSLMode)

	cfg.GoogleAPIKey = getEnv("GOOGLE_API_KEY", cfg.GoogleAPIKey)
	cfg.GoogleBaseURL = getEnv("GOOGLE_BASE_URL", cfg.GoogleBaseURL)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.MaxRetries = getEnvInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryBaseDelay = getEnvDuration("RETRY_BASE_DELAY", cfg.RetryBaseDelay)

	cfg.SummaryProvider = getEnv("SUMMARY_PROVIDER", cfg.SummaryProvider)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.CompletionTimeout = getEnvDuration("COMPLETION_TIMEOUT", cfg.CompletionTimeout)

	cfg.EnrichmentTTL = getEnvDuration("ENRICHMENT_TTL", cfg.EnrichmentTTL)
	cfg.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", cfg.MaxConcurrency)
	cfg.WritebackWorkers = getEnvInt("WRITEBACK_WORKERS", cfg.WritebackWorkers)
	cfg.WritebackBuffer = getEnvInt("WRITEBACK_BUFFER", cfg.WritebackBuffer)
	cfg.GeocodeCacheSize = getEnvInt("GEOCODE_CACHE_SIZE", cfg.GeocodeCacheSize)

	cfg.RefreshSchedule = getEnv("REFRESH_SCHEDULE", cfg.RefreshSchedule)
	cfg.RefreshBatchSize = getEnvInt("REFRESH_BATCH_SIZE", cfg.RefreshBatchSize)
	cfg.RateLimitMs = getEnvInt("RATE_LIMIT_MS", cfg.RateLimitMs)

	return cfg
}

func defaults() *Config {
	return &Config{
		Port:     "5000",
		LogLevel: "info",

		MongoURI:        "mongodb://127.0.0.1:27017",
		MongoDB:         "nursinghome",
		MongoCollection: "nursingfacilities",

		ResultCacheBackend: "redis",
		ResultCacheTTL:     30 * 24 * time.Hour,

		RedisAddr: "localhost:6379",

		PostgresHost:    "localhost",
		PostgresPort:    "5432",
		PostgresUser:    "facility",
		PostgresDB:      "facility_cache",
		PostgresSSLMode: "disable",

		GoogleBaseURL:  "https://maps.googleapis.com/maps/api",
		HTTPTimeout:    10 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,

		SummaryProvider: "openai",
		OpenAIModel:     "gpt-4o-mini",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		GeminiModel:     "gemini-1.5-flash",

		CompletionTimeout: 30 * time.Second,

		EnrichmentTTL:    30 * 24 * time.Hour,
		MaxConcurrency:   10,
		WritebackWorkers: 2,
		WritebackBuffer:  256,
		GeocodeCacheSize: 512,

		RefreshBatchSize: 50,
		RateLimitMs:      200,
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

// Validate reports missing required settings as ConfigErrors.
func (c *Config) Validate() error {
	var errs []error
	if c.MongoURI == "" {
		errs = append(errs, models.MissingConfig("MONGO_URI"))
	}
	switch c.ResultCacheBackend {
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, models.MissingConfig("REDIS_ADDR"))
		}
	case "postgres", "memory":
	default:
		errs = append(errs, &models.ConfigError{Key: "RESULT_CACHE_BACKEND", Reason: "must be redis, postgres or memory"})
	}
	switch c.SummaryProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, models.MissingConfig("OPENAI_API_KEY"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, models.MissingConfig("GEMINI_API_KEY"))
		}
	default:
		errs = append(errs, &models.ConfigError{Key: "SUMMARY_PROVIDER", Reason: "must be openai or gemini"})
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

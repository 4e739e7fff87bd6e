package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bmore/mtgateway/internal/quality"
	"github.com/bmore/mtgateway/internal/segment"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
	CacheMemory = "memory"
	CacheNone   = "none"
)

type Config struct {
	Port     int    `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Provider     string `yaml:"provider"`
	LibreURL     string `yaml:"libre_url"`
	DeepLAuthKey string `yaml:"deepl_auth_key"`
	ModelDir     string `yaml:"model_dir"`
	Device       string `yaml:"device"`
	Threads      int    `yaml:"threads"`
	InferenceURL string `yaml:"inference_url"`

	CacheBackend    string        `yaml:"cache_backend"`
	RedisURL        string        `yaml:"redis_url"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`

	DataPath string `yaml:"data_path"`
	DBPath   string `yaml:"db_path"`

	RequestTimeout time.Duration      `yaml:"request_timeout"`
	MaxBatch       int                `yaml:"max_batch"`
	MaxTextLength  int                `yaml:"max_text_length"` // runes per text or segment
	QualityChecks  bool               `yaml:"quality_checks"`
	Quality        quality.Thresholds `yaml:"quality"`
	Segment        segment.Options    `yaml:"segment"`

	CORSOrigins  []string `yaml:"cors_origins"`
	JWTSecret    string   `yaml:"jwt_secret"`
	RateLimit    int      `yaml:"rate_limit"` // requests per minute per IP, 0 disables
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:           7001,
		Env:            "production",
		LogLevel:       "info",
		Provider:       "LIBRE",
		LibreURL:       "http://libre:5000",
		ModelDir:       "/models",
		Device:         "cpu",
		Threads:        4,
		InferenceURL:   "http://inference:8001",
		CacheBackend:   CacheRedis,
		RedisURL:       "redis://redis:6379/0",
		CacheTTL:       time.Hour,
		DataPath:       "/data",
		RequestTimeout: 30 * time.Second,
		MaxBatch:       500,
		MaxTextLength:  5000,
		Quality:        quality.DefaultThresholds(),
		Segment:        segment.DefaultOptions(),
		CORSOrigins:    []string{"*"},
		MaxBodyBytes:   10 << 20,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any) and the environment, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	var err error
	cfg.Port, err = getEnvInt("PORT", cfg.Port)
	if err != nil {
		return nil, err
	}
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Provider = strings.ToUpper(getEnv("MT_PROVIDER", cfg.Provider))
	cfg.LibreURL = getEnv("LIBRE_URL", cfg.LibreURL)
	cfg.DeepLAuthKey = getEnv("DEEPL_AUTH_KEY", cfg.DeepLAuthKey)
	cfg.ModelDir = getEnv("MODEL_DIR", cfg.ModelDir)
	cfg.Device = getEnv("CTRANSLATE_DEVICE", cfg.Device)
	if cfg.Threads, err = getEnvInt("CTRANSLATE_THREADS", cfg.Threads); err != nil {
		return nil, err
	}
	cfg.InferenceURL = getEnv("INFERENCE_URL", cfg.InferenceURL)

	cfg.CacheBackend = strings.ToLower(getEnv("CACHE_BACKEND", cfg.CacheBackend))
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.CacheMaxEntries, err = getEnvInt("CACHE_MAX_ENTRIES", cfg.CacheMaxEntries); err != nil {
		return nil, err
	}

	cfg.DataPath = getEnv("DATA_PATH", cfg.DataPath)
	if cfg.DBPath == "" {
		cfg.DBPath = cfg.DataPath + "/mtgateway.db"
	}
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)

	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxBatch, err = getEnvInt("MAX_BATCH", cfg.MaxBatch); err != nil {
		return nil, err
	}
	if cfg.MaxTextLength, err = getEnvInt("MAX_TEXT_LENGTH", cfg.MaxTextLength); err != nil {
		return nil, err
	}
	if cfg.QualityChecks, err = getEnvBool("QUALITY_CHECKS", cfg.QualityChecks); err != nil {
		return nil, err
	}

	// CORS origins: comma-separated list or "*" (default)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		cfg.CORSOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	if cfg.RateLimit, err = getEnvInt("RATE_LIMIT", cfg.RateLimit); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "LIBRE", "MARIAN", "NLLB", "DEEPL":
	default:
		return fmt.Errorf("MT_PROVIDER: unknown provider %q", c.Provider)
	}
	switch c.CacheBackend {
	case CacheRedis, CacheSQLite, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("CACHE_BACKEND: unknown backend %q", c.CacheBackend)
	}
	if c.MaxBatch <= 0 {
		return fmt.Errorf("MAX_BATCH must be positive, got %d", c.MaxBatch)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("MAX_TEXT_LENGTH must be positive, got %d", c.MaxTextLength)
	}
	if err := c.Segment.Validate(); err != nil {
		return fmt.Errorf("segment: %w", err)
	}
	return nil
}

// Development reports whether ENV selects development mode.
func (c *Config) Development() bool {
	return c.Env == "development" || c.Env == "dev"
}

// AuthEnabled reports whether API requests need a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

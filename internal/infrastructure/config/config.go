package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	LogLevel  string          `mapstructure:"log_level"`
	LogDir    string          `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"` // 重複寫入請求的判定區間，0 表示停用
}

// CatalogConfig 標準食材目錄來源；Path 與 URL 皆空時使用內建目錄
type CatalogConfig struct {
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig 共用分數快取
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Engine 取得比對引擎設定
func (c *Config) Engine() EngineConfig {
	return EngineConfig{
		Matching: c.Matching,
		Scoring:  c.Scoring,
		Cache:    c.Cache,
	}
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 為選用
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用環境變量
	_ = v.BindEnv("catalog.path", "CATALOG_PATH")
	_ = v.BindEnv("catalog.url", "CATALOG_URL")
	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.port", "PORT")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Scoring.CategoryWeights = normalizeWeights(cfg.Scoring.CategoryWeights)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "pantry-matcher")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.max_body_bytes", 2<<20)
	v.SetDefault("server.dedup_window", "1s")

	// 食材目錄
	v.SetDefault("catalog.timeout", "10s")

	// 引擎設定
	def := DefaultEngineConfig()
	v.SetDefault("matching.min_confidence", def.Matching.MinConfidence)
	v.SetDefault("matching.alias_penalty", def.Matching.AliasPenalty)
	v.SetDefault("matching.category_bonus", def.Matching.CategoryBonus)
	v.SetDefault("matching.fuzzy_threshold", def.Matching.FuzzyThreshold)
	v.SetDefault("matching.shopping_confidence", def.Matching.ShoppingConfidence)
	v.SetDefault("matching.list_merge_confidence", def.Matching.ListMergeConfidence)
	v.SetDefault("matching.memo_size", def.Matching.MemoSize)
	v.SetDefault("matching.strict_canonical", def.Matching.StrictCanonical)
	v.SetDefault("scoring.expiring_weight", def.Scoring.ExpiringWeight)
	v.SetDefault("scoring.expiring_window_days", def.Scoring.ExpiringWindowDays)
	v.SetDefault("scoring.workers", def.Scoring.Workers)
	v.SetDefault("scoring.category_weights", def.Scoring.CategoryWeights)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.max_entries", def.Cache.MaxEntries)
	v.SetDefault("cache.ttl", def.Cache.TTL.String())
	v.SetDefault("cache.cleanup_interval", def.Cache.CleanupInterval.String())

	// Redis 設定
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "pantry:score:")
	v.SetDefault("redis.timeout", "200ms")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(cfg *Config) error {
	if cfg.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid server max body bytes")
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.Requests <= 0 || cfg.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}
	return cfg.Engine().Validate()
}

func normalizeWeights(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, w := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = w
	}
	return out
}

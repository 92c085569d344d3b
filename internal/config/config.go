package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	VWorld  VWorldConfig  `yaml:"vworld" mapstructure:"vworld"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// VWorldConfig holds VWorld API credentials and endpoints.
type VWorldConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	TileKey     string  `yaml:"tile_key" mapstructure:"tile_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TileURL     string  `yaml:"tile_url" mapstructure:"tile_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// MapKey returns the key used in tile URLs, falling back to the geocoding key.
func (c VWorldConfig) MapKey() string {
	if c.TileKey != "" {
		return c.TileKey
	}
	return c.Key
}

// Timeout returns the per-request timeout.
func (c VWorldConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// GeocodeConfig configures the lookup cache.
type GeocodeConfig struct {
	Cache        string `yaml:"cache" mapstructure:"cache"` // none, memory, sqlite, postgres
	CacheDSN     string `yaml:"cache_dsn" mapstructure:"cache_dsn"`
	CacheTTLDays int    `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// CacheTTL returns the cache TTL. Zero means entries never expire.
func (c GeocodeConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLDays) * 24 * time.Hour
}

// BatchConfig configures spreadsheet processing.
type BatchConfig struct {
	PauseEvery  int `yaml:"pause_every" mapstructure:"pause_every"`
	PauseMillis int `yaml:"pause_ms" mapstructure:"pause_ms"`
	MaxUploadMB int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// Pause returns the pause between row groups.
func (c BatchConfig) Pause() time.Duration {
	return time.Duration(c.PauseMillis) * time.Millisecond
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c BatchConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADDRMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by existing deployments.
	if err := v.BindEnv("vworld.key", "ADDRMAP_VWORLD_KEY", "VWORLD_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}
	if err := v.BindEnv("vworld.tile_key", "ADDRMAP_VWORLD_TILE_KEY", "NEXT_PUBLIC_VWORLD_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind env")
	}

	// Defaults
	v.SetDefault("vworld.base_url", "https://api.vworld.kr/req/address")
	v.SetDefault("vworld.tile_url", "https://api.vworld.kr/req/wmts/1.0.0")
	v.SetDefault("vworld.timeout_secs", 5)
	v.SetDefault("vworld.rate_limit", 10)
	v.SetDefault("geocode.cache", "memory")
	v.SetDefault("geocode.cache_dsn", "addrmap-cache.db")
	v.SetDefault("geocode.cache_ttl_days", 30)
	v.SetDefault("batch.pause_every", 5)
	v.SetDefault("batch.pause_ms", 50)
	v.SetDefault("batch.max_upload_mb", 10)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late. A missing VWorld
// key is not an error here; lookups report it as a missing credential.
func (c *Config) Validate() error {
	var problems []string

	switch c.Geocode.Cache {
	case "none", "memory", "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("geocode.cache must be one of none, memory, sqlite, postgres (got %q)", c.Geocode.Cache))
	}
	if (c.Geocode.Cache == "postgres" || c.Geocode.Cache == "sqlite") && c.Geocode.CacheDSN == "" {
		problems = append(problems, "geocode.cache_dsn is required for the "+c.Geocode.Cache+" cache")
	}
	if c.Geocode.CacheTTLDays < 0 {
		problems = append(problems, "geocode.cache_ttl_days must be >= 0")
	}
	if c.VWorld.TimeoutSecs <= 0 {
		problems = append(problems, "vworld.timeout_secs must be > 0")
	}
	if c.VWorld.RateLimit < 0 {
		problems = append(problems, "vworld.rate_limit must be >= 0")
	}
	if c.Batch.PauseEvery < 0 || c.Batch.PauseMillis < 0 {
		problems = append(problems, "batch.pause_every and batch.pause_ms must be >= 0")
	}
	if c.Batch.MaxUploadMB <= 0 {
		problems = append(problems, "batch.max_upload_mb must be > 0")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be > 0 and <= 65535")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

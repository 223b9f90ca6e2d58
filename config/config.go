/*
Package config loads fee-engine server configuration.

SOURCES (later wins):
  1. Defaults below
  2. Config file (--config, YAML/TOML/JSON by extension)
  3. Environment: FEE_ENGINE_<SECTION>_<KEY>, e.g. FEE_ENGINE_DB_PATH

KEYS:
  server.port, server.read_timeout, server.write_timeout
  db.path
  cache.backend (memory|redis), cache.ttl
  redis.addr, redis.password, redis.db
  log.level, log.development
  cors.allowed_origins
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "FEE_ENGINE"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	DB     DBConfig     `mapstructure:"db"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Log    LogConfig    `mapstructure:"log"`
	CORS   CORSConfig   `mapstructure:"cors"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

type DBConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory redis none"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`

	// Enabled mirrors cache.backend == redis.
	Enabled bool `mapstructure:"-"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("db.path", "fee-engine.db")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads configuration from defaults, the optional file at path, and
// the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Redis.Enabled = cfg.Cache.Backend == "redis"

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds the process logger.
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

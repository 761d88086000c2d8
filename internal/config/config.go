package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "WORKFLOW"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Distribution DistributionConfig `mapstructure:"distribution"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Repair       RepairConfig       `mapstructure:"repair"`
	AI           AIConfig           `mapstructure:"ai"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=postgres mysql"`
}

// DatabaseConfig.MaxConnections must leave room for the event listeners plus
// one spare connection per advisory-lock holder.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MySQLDSN        string        `mapstructure:"mysql_dsn"`
	MaxConnections  int           `mapstructure:"max_connections" validate:"min=5"`
	MaxIdle         int           `mapstructure:"max_idle_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret" validate:"required,min=16"`
	Issuer string        `mapstructure:"issuer" validate:"required"`
	TTL    time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

// DistributionConfig holds the default eligibility policy. Requests may
// override either flag.
type DistributionConfig struct {
	UnassignedOnly   bool `mapstructure:"unassigned_only"`
	IncludeCompleted bool `mapstructure:"include_completed"`
}

type CacheConfig struct {
	StatsTTL      time.Duration `mapstructure:"stats_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RepairConfig schedules the invalid-assignment sweep. An empty schedule
// disables it.
type RepairConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key" validate:"required_if=Enabled true"`
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
	Referer string        `mapstructure:"referer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output" validate:"required"`
}

// Load reads configuration from an optional YAML file and from WORKFLOW_*
// environment variables, which win. A .env file in the working directory is
// loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("invalid config: database.url is required for the postgres driver")
		}
	case "mysql":
		if c.Database.MySQLDSN == "" {
			return errors.New("invalid config: database.mysql_dsn is required for the mysql driver")
		}
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("storage.driver", "postgres")

	v.SetDefault("database.url", "")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_idle_connections", 10)
	v.SetDefault("database.connection_max_lifetime", "1h")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "workflow")
	v.SetDefault("auth.ttl", "24h")

	v.SetDefault("distribution.unassigned_only", false)
	v.SetDefault("distribution.include_completed", false)

	v.SetDefault("cache.stats_ttl", "5m")
	v.SetDefault("cache.sweep_interval", "1m")

	v.SetDefault("repair.schedule", "@every 15m")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "deepseek/deepseek-chat")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.referer", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
}

package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log        LogConfig       `mapstructure:"log"`
	HTTP       HTTPConfig      `mapstructure:"http"`
	Store      StoreConfig     `mapstructure:"store"`
	Rest       RestConfig      `mapstructure:"rest"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	History    HistoryConfig   `mapstructure:"history"`
	Auth       AuthConfig      `mapstructure:"auth"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

type HTTPConfig struct {
	Addr      string `mapstructure:"addr"       validate:"required"`
	BodyLimit string `mapstructure:"body_limit"`
}

// StoreConfig selects the row store backing the supplier table.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=rest mysql memory"`
	Table  string `mapstructure:"table"  validate:"required"`
	Outbox bool   `mapstructure:"outbox"`
}

// RestConfig points at the hosted database service (PostgREST-style API).
type RestConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ServiceRoleKey string        `mapstructure:"service_role_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type HistoryConfig struct {
	BatchSize int           `mapstructure:"batch_size" validate:"gte=0"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

type AuthConfig struct {
	APIKeys []APIKeyConfig `mapstructure:"api_keys" validate:"dive"`
}

type APIKeyConfig struct {
	Name         string `mapstructure:"name"           validate:"required"`
	Key          string `mapstructure:"key"            validate:"required,min=16"`
	RateLimitRPS int    `mapstructure:"rate_limit_rps" validate:"gte=0"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps" validate:"gte=0"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (SRISK_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (SRISK_*), nested keys use "_" e.g. SRISK_MYSQL_DSN
	v.SetEnvPrefix("SRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

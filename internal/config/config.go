package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER
const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	App    AppConfig
	Store  StoreConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Admin  AdminConfig
	Branch BranchConfig
	Queue  QueueConfig
	OTel   OTelConfig
}

type AppConfig struct {
	Name string
	Env  string
	Host string
	Port int
}

// Addr is the listen address for the HTTP server
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type StoreConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// AdminConfig - single branch administrator, password stored as a bcrypt hash
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// BranchConfig - opening hours as HH:MM or HH:MM:SS. Both empty means always open.
type BranchConfig struct {
	Open     string
	Close    string
	Timezone string
}

type QueueConfig struct {
	UniqueNumbers bool
	NumberRetries int
}

type OTelConfig struct {
	Enabled       bool
	CollectorAddr string
}

/*
|--------------------------------------------------------------------------
| Loading
|--------------------------------------------------------------------------
*/

// Load reads configuration from the environment. Call LoadEnv first to pick up .env.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("APP_NAME"),
			Env:  v.GetString("APP_ENV"),
			Host: v.GetString("APP_HOST"),
			Port: v.GetInt("APP_PORT"),
		},
		Store: StoreConfig{
			Driver:          strings.ToLower(v.GetString("STORE_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		Admin: AdminConfig{
			Email:        v.GetString("ADMIN_EMAIL"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		},
		Branch: BranchConfig{
			Open:     v.GetString("BRANCH_OPEN"),
			Close:    v.GetString("BRANCH_CLOSE"),
			Timezone: v.GetString("BRANCH_TIMEZONE"),
		},
		Queue: QueueConfig{
			UniqueNumbers: v.GetBool("QUEUE_UNIQUE_NUMBERS"),
			NumberRetries: v.GetInt("QUEUE_NUMBER_RETRIES"),
		},
		OTel: OTelConfig{
			Enabled:       v.GetBool("OTEL_ENABLED"),
			CollectorAddr: v.GetString("OTEL_COLLECTOR_ADDR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "antrian-bank")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_HOST", "0.0.0.0")
	v.SetDefault("APP_PORT", 8080)

	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_TTL", "24h")

	v.SetDefault("BRANCH_TIMEZONE", "Africa/Lagos")

	v.SetDefault("QUEUE_UNIQUE_NUMBERS", false)
	v.SetDefault("QUEUE_NUMBER_RETRIES", 5)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
}

// Validate checks the settings that would otherwise fail at first request.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT %d out of range", c.App.Port)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	case DriverMySQL, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the %s store", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if (c.Branch.Open == "") != (c.Branch.Close == "") {
		return errors.New("BRANCH_OPEN and BRANCH_CLOSE must be set together")
	}
	return nil
}

// UsesRedis reports whether a Redis client is needed, as the store or for join counters.
func (c *Config) UsesRedis() bool {
	return c.Redis.Enabled || c.Store.Driver == DriverRedis
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "TOGOBUS_"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Payment  PaymentConfig  `yaml:"payment"`
	Auth     AuthConfig     `yaml:"auth"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Database DatabaseConfig `yaml:"database"`
	Seats    SeatsConfig    `yaml:"seats"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type PaymentConfig struct {
	Driver  string        `yaml:"driver"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type StoreConfig struct {
	Driver  string        `yaml:"driver"`
	FlowTTL time.Duration `yaml:"flow_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EventsConfig struct {
	Driver        string `yaml:"driver"`
	ConsumerGroup string `yaml:"consumer_group"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type SeatsConfig struct {
	RequireAuthoritative bool `yaml:"require_authoritative"`
}

type AdminConfig struct {
	DeleteMaxAttempts int           `yaml:"delete_max_attempts"`
	DeleteBaseDelay   time.Duration `yaml:"delete_base_delay"`
	NotificationLimit int           `yaml:"notification_limit"`
}

type LogConfig struct {
	App   string `yaml:"app"`
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080", ShutdownTimeout: 5 * time.Second},
		Upstream: UpstreamConfig{BaseURL: "http://localhost:8000/api/", Timeout: 10 * time.Second},
		Payment:  PaymentConfig{Driver: "simulated", Timeout: 15 * time.Second},
		Auth:     AuthConfig{SessionTTL: 24 * time.Hour},
		Store:    StoreConfig{Driver: "memory", FlowTTL: 2 * time.Hour},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Events:   EventsConfig{Driver: "memory", ConsumerGroup: "togobus-bff"},
		Kafka:    KafkaConfig{Brokers: []string{"localhost:9092"}},
		Admin: AdminConfig{
			DeleteMaxAttempts: 3,
			DeleteBaseDelay:   500 * time.Millisecond,
			NotificationLimit: 50,
		},
		Log: LogConfig{App: "togobus-bff", Level: "info"},
	}
}

// Load reads path over the defaults, then applies TOGOBUS_* environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(target *string) func(string) error {
		return func(v string) error { *target = v; return nil }
	}
	dur := func(target *time.Duration) func(string) error {
		return func(v string) error {
			d, err := time.ParseDuration(v)
			if err == nil {
				*target = d
			}
			return err
		}
	}
	num := func(target *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err == nil {
				*target = n
			}
			return err
		}
	}

	overrides := []struct {
		key string
		set func(string) error
	}{
		{"SERVER_ADDR", str(&c.Server.Addr)},
		{"SERVER_SHUTDOWN_TIMEOUT", dur(&c.Server.ShutdownTimeout)},
		{"UPSTREAM_BASE_URL", str(&c.Upstream.BaseURL)},
		{"UPSTREAM_TIMEOUT", dur(&c.Upstream.Timeout)},
		{"PAYMENT_DRIVER", str(&c.Payment.Driver)},
		{"PAYMENT_BASE_URL", str(&c.Payment.BaseURL)},
		{"PAYMENT_TIMEOUT", dur(&c.Payment.Timeout)},
		{"AUTH_JWT_SECRET", str(&c.Auth.JWTSecret)},
		{"AUTH_SESSION_TTL", dur(&c.Auth.SessionTTL)},
		{"STORE_DRIVER", str(&c.Store.Driver)},
		{"STORE_FLOW_TTL", dur(&c.Store.FlowTTL)},
		{"REDIS_ADDR", str(&c.Redis.Addr)},
		{"REDIS_PASSWORD", str(&c.Redis.Password)},
		{"REDIS_DB", num(&c.Redis.DB)},
		{"EVENTS_DRIVER", str(&c.Events.Driver)},
		{"EVENTS_CONSUMER_GROUP", str(&c.Events.ConsumerGroup)},
		{"KAFKA_BROKERS", func(v string) error {
			c.Kafka.Brokers = splitList(v)
			return nil
		}},
		{"DATABASE_DSN", str(&c.Database.DSN)},
		{"SEATS_REQUIRE_AUTHORITATIVE", func(v string) error {
			b, err := strconv.ParseBool(v)
			if err == nil {
				c.Seats.RequireAuthoritative = b
			}
			return err
		}},
		{"ADMIN_DELETE_MAX_ATTEMPTS", num(&c.Admin.DeleteMaxAttempts)},
		{"ADMIN_DELETE_BASE_DELAY", dur(&c.Admin.DeleteBaseDelay)},
		{"ADMIN_NOTIFICATION_LIMIT", num(&c.Admin.NotificationLimit)},
		{"LOG_APP", str(&c.Log.App)},
		{"LOG_LEVEL", str(&c.Log.Level)},
	}

	for _, o := range overrides {
		v, ok := lookup(envPrefix + o.key)
		if !ok {
			continue
		}
		if err := o.set(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, o.key, err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 bytes"))
	}
	if !oneOf(c.Payment.Driver, "simulated", "http") {
		errs = append(errs, fmt.Errorf("payment.driver %q must be simulated or http", c.Payment.Driver))
	}
	if c.Payment.Driver == "http" && c.Payment.BaseURL == "" {
		errs = append(errs, errors.New("payment.base_url is required for the http driver"))
	}
	if !oneOf(c.Store.Driver, "memory", "redis") {
		errs = append(errs, fmt.Errorf("store.driver %q must be memory or redis", c.Store.Driver))
	}
	if !oneOf(c.Events.Driver, "memory", "gochannel", "redis", "kafka") {
		errs = append(errs, fmt.Errorf("events.driver %q must be memory, gochannel, redis or kafka", c.Events.Driver))
	}
	if c.Events.Driver == "kafka" && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required for the kafka driver"))
	}
	if c.Admin.DeleteMaxAttempts < 1 {
		errs = append(errs, errors.New("admin.delete_max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

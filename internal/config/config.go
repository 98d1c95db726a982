// Package config собирает настройки сервиса из значений по умолчанию,
// необязательного YAML-файла и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix — префикс переменных окружения: FASTFOOD_HTTP_ADDR и т.п.
const EnvPrefix = "FASTFOOD"

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Ops         OpsConfig      `mapstructure:"ops"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	Outbox      OutboxConfig   `mapstructure:"outbox"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ    RabbitMQConfig `mapstructure:"rabbitmq"`
	Payment     PaymentConfig  `mapstructure:"payment"`
	Log         LogConfig      `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr            string          `mapstructure:"addr"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig — token bucket на клиентский IP.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`
}

// OpsConfig — служебные адреса: /metrics и health probes по HTTP, gRPC health.
type OpsConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
	GRPCAddr    string `mapstructure:"grpc_addr"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// PostgresConfig принимает либо готовый DSN, либо части подключения.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type OutboxConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	// MaxPending задаёт порог backlog, после которого readiness сообщает degraded.
	MaxPending int `mapstructure:"max_pending"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	DLQTopic string   `mapstructure:"dlq_topic"`
	ClientID string   `mapstructure:"client_id"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type PaymentConfig struct {
	// Gateway: mercadopago или mock.
	Gateway         string `mapstructure:"gateway"`
	NotificationURL string `mapstructure:"notification_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File включает запись в файл с ротацией; при пустом значении пишем только в stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Default возвращает конфигурацию для локального запуска без внешних зависимостей.
func Default() Config {
	return Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       RateLimitConfig{Enabled: true, Rate: 50, Burst: 100},
		},
		Ops: OpsConfig{
			MetricsAddr: ":9090",
			GRPCAddr:    ":50051",
		},
		Storage: StorageConfig{Driver: StorageDriverMemory},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "fastfood",
			User:            "fastfood",
			SSLMode:         "disable",
			AutoMigrate:     true,
			MaxOpenConns:    20,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Outbox: OutboxConfig{
			Enabled:      true,
			PollInterval: time.Second,
			BatchSize:    100,
			MaxAttempts:  3,
			RetryDelay:   50 * time.Millisecond,
			MaxPending:   1000,
		},
		Kafka: KafkaConfig{
			Topic:    "fastfood.order.events",
			DLQTopic: "fastfood.dlq",
			ClientID: "fastfood",
		},
		RabbitMQ: RabbitMQConfig{Exchange: "fastfood.events"},
		Payment:  PaymentConfig{Gateway: "mercadopago"},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// legacyEnv — переменные окружения, под которыми сервис запускался раньше.
var legacyEnv = map[string]string{
	"environment":       "ENVIRONMENT",
	"postgres.host":     "DB_HOST",
	"postgres.port":     "DB_PORT",
	"postgres.name":     "DB_NAME",
	"postgres.user":     "DB_USER",
	"postgres.password": "DB_PASSWORD",
}

// Load читает конфигурацию. path может быть пустым: тогда ищется config.yaml
// в текущем каталоге и ./config, а его отсутствие не считается ошибкой.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		// Префиксная переменная имеет приоритет над старым именем.
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("environment", d.Environment)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("http.rate_limit.enabled", d.HTTP.RateLimit.Enabled)
	v.SetDefault("http.rate_limit.rate", d.HTTP.RateLimit.Rate)
	v.SetDefault("http.rate_limit.burst", d.HTTP.RateLimit.Burst)

	v.SetDefault("ops.metrics_addr", d.Ops.MetricsAddr)
	v.SetDefault("ops.grpc_addr", d.Ops.GRPCAddr)

	v.SetDefault("storage.driver", d.Storage.Driver)

	v.SetDefault("postgres.dsn", d.Postgres.DSN)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.name", d.Postgres.Name)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.auto_migrate", d.Postgres.AutoMigrate)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime", d.Postgres.ConnMaxLifetime)

	v.SetDefault("outbox.enabled", d.Outbox.Enabled)
	v.SetDefault("outbox.poll_interval", d.Outbox.PollInterval)
	v.SetDefault("outbox.batch_size", d.Outbox.BatchSize)
	v.SetDefault("outbox.max_attempts", d.Outbox.MaxAttempts)
	v.SetDefault("outbox.retry_delay", d.Outbox.RetryDelay)
	v.SetDefault("outbox.max_pending", d.Outbox.MaxPending)

	v.SetDefault("kafka.brokers", append([]string{}, d.Kafka.Brokers...))
	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.dlq_topic", d.Kafka.DLQTopic)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)

	v.SetDefault("rabbitmq.url", d.RabbitMQ.URL)
	v.SetDefault("rabbitmq.exchange", d.RabbitMQ.Exchange)

	v.SetDefault("payment.gateway", d.Payment.Gateway)
	v.SetDefault("payment.notification_url", d.Payment.NotificationURL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
}

// splitList разбирает "a,b" из переменной окружения в отдельные элементы.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate проверяет значения, которые нельзя исправить молча.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverMemory, StorageDriverPostgres:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Payment.Gateway {
	case "mercadopago", "mock":
	default:
		return fmt.Errorf("unsupported payment gateway %q", c.Payment.Gateway)
	}
	if c.HTTP.Addr == "" {
		return errors.New("http address is required")
	}
	if c.HTTP.RateLimit.Enabled && (c.HTTP.RateLimit.Rate <= 0 || c.HTTP.RateLimit.Burst <= 0) {
		return errors.New("rate limit requires positive rate and burst")
	}
	return nil
}

// IsProduction сообщает, запущен ли сервис в production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// PostgresDSN возвращает явный DSN или собирает его из частей.
func (c Config) PostgresDSN() string {
	p := c.Postgres
	if p.DSN != "" {
		return p.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, fmt.Sprint(p.Port)),
		Path:   "/" + p.Name,
	}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else if p.User != "" {
		u.User = url.User(p.User)
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
	}
	return u.String()
}

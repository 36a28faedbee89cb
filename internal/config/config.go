package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Values come from defaults, then the
// YAML file named by ENERGY_CONFIG, then environment variables.
type Config struct {
	DatabaseURL string          `yaml:"database_url"`
	HTTPAddr    string          `yaml:"http_addr"`
	Redis       RedisConfig     `yaml:"redis"`
	Metering    MeteringConfig  `yaml:"metering"`
	Ingestion   IngestionConfig `yaml:"ingestion"`
	Ledger      LedgerConfig    `yaml:"ledger"`
	Auth        AuthConfig      `yaml:"auth"`
	InfluxDB    InfluxDBConfig  `yaml:"influxdb"`
	Kafka       KafkaConfig     `yaml:"kafka"`
}

// RedisConfig locates the readings cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MeteringConfig holds the metering API credentials.
type MeteringConfig struct {
	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// IngestionConfig tunes the ingestion task.
type IngestionConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Interval        time.Duration `yaml:"interval"`
	Lookback        time.Duration `yaml:"lookback"`
	InitialLookback time.Duration `yaml:"initial_lookback"`
	Resolution      string        `yaml:"resolution"`
}

// LedgerConfig schedules the daily ledger run.
type LedgerConfig struct {
	DailyAt string `yaml:"daily_at"`
}

// AuthConfig configures JWT verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// InfluxDBConfig enables the optional readings mirror.
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether the mirror is configured.
func (c InfluxDBConfig) Enabled() bool { return c.URL != "" && c.Bucket != "" }

// KafkaConfig enables the optional ledger row feed.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	LedgerTopic string   `yaml:"ledger_topic"`
}

// Enabled reports whether the feed is configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 && c.LedgerTopic != "" }

func defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Ingestion: IngestionConfig{
			Enabled:         true,
			Interval:        time.Minute,
			Lookback:        2 * time.Hour,
			InitialLookback: 30 * 24 * time.Hour,
			Resolution:      "fifteen_minutes",
		},
		Ledger: LedgerConfig{DailyAt: "01:30"},
		Kafka:  KafkaConfig{LedgerTopic: "per-capita-consumption"},
	}
}

// Load builds the configuration.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("ENERGY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)

	cfg.Redis.Addr = getenvDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getenvDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getenvIntDefault("REDIS_DB", cfg.Redis.DB)

	cfg.Metering.BaseURL = getenvDefault("METERING_BASE_URL", cfg.Metering.BaseURL)
	cfg.Metering.Email = getenvDefault("METERING_EMAIL", cfg.Metering.Email)
	cfg.Metering.Password = getenvDefault("METERING_PASSWORD", cfg.Metering.Password)

	cfg.Ingestion.Enabled = getenvBoolDefault("INGEST_ENABLED", cfg.Ingestion.Enabled)
	cfg.Ingestion.Interval = getenvDuration("INGEST_INTERVAL", cfg.Ingestion.Interval)
	cfg.Ingestion.Lookback = getenvDuration("INGEST_LOOKBACK", cfg.Ingestion.Lookback)
	cfg.Ingestion.InitialLookback = getenvDuration("INGEST_INITIAL_LOOKBACK", cfg.Ingestion.InitialLookback)
	cfg.Ingestion.Resolution = getenvDefault("INGEST_RESOLUTION", cfg.Ingestion.Resolution)

	cfg.Ledger.DailyAt = getenvDefault("LEDGER_DAILY_AT", cfg.Ledger.DailyAt)
	cfg.Auth.JWTSecret = getenvDefault("AUTH_JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.InfluxDB.URL = getenvDefault("INFLUXDB_URL", cfg.InfluxDB.URL)
	cfg.InfluxDB.Token = getenvDefault("INFLUXDB_TOKEN", cfg.InfluxDB.Token)
	cfg.InfluxDB.Org = getenvDefault("INFLUXDB_ORG", cfg.InfluxDB.Org)
	cfg.InfluxDB.Bucket = getenvDefault("INFLUXDB_BUCKET", cfg.InfluxDB.Bucket)

	if brokers := splitCSV(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	cfg.Kafka.LedgerTopic = getenvDefault("KAFKA_LEDGER_TOPIC", cfg.Kafka.LedgerTopic)

	return cfg, nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("config: DATABASE_URL or PG_DSN required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("config: AUTH_JWT_SECRET required"))
	}
	if c.Ingestion.Enabled && c.Metering.BaseURL == "" {
		errs = append(errs, errors.New("config: METERING_BASE_URL required when ingestion is enabled"))
	}
	if _, err := time.Parse("15:04", c.Ledger.DailyAt); err != nil {
		errs = append(errs, errors.New("config: ledger daily_at must be HH:MM"))
	}
	return errors.Join(errs...)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

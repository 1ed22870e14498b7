package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/viper"

	"github.com/samirrijal/civicmap/internal/pkg/logging"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BreakerConfig tunes the circuit breaker in front of the report store.
type BreakerConfig struct {
	FailureThreshold   uint32 `mapstructure:"failure_threshold"`
	OpenTimeoutSeconds int    `mapstructure:"open_timeout_seconds"`
}

func (b BreakerConfig) OpenTimeout() time.Duration {
	return time.Duration(b.OpenTimeoutSeconds) * time.Second
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// SweepConfig drives the scheduled hotspot sweep.
type SweepConfig struct {
	Cron          string  `mapstructure:"cron"`
	MinReports    int     `mapstructure:"min_reports"`
	RadiusKm      float64 `mapstructure:"radius_km"`
	LookbackHours int     `mapstructure:"lookback_hours"`
}

func (s SweepConfig) Lookback() time.Duration {
	return time.Duration(s.LookbackHours) * time.Hour
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CIVICMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("CIVICMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("log.level", "CIVICMAP_LOG_LEVEL", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.request_timeout", 15)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "civic")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "civicmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.open_timeout_seconds", 30)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "civicmap-sweeps")
	v.SetDefault("sweep.cron", "*/15 * * * *")
	v.SetDefault("sweep.min_reports", 5)
	v.SetDefault("sweep.radius_km", 1.0)
	v.SetDefault("sweep.lookback_hours", 24)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, "log.level: "+err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.Breaker.FailureThreshold == 0 {
		errs = append(errs, "breaker.failure_threshold must be positive")
	}
	if c.Breaker.OpenTimeoutSeconds <= 0 {
		errs = append(errs, "breaker.open_timeout_seconds must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if _, err := cron.ParseStandard(c.Sweep.Cron); err != nil {
		errs = append(errs, fmt.Sprintf("sweep.cron is invalid: %v", err))
	}
	if c.Sweep.MinReports < 0 {
		errs = append(errs, "sweep.min_reports must not be negative")
	}
	if c.Sweep.RadiusKm <= 0 {
		errs = append(errs, "sweep.radius_km must be positive")
	}
	if c.Sweep.LookbackHours <= 0 {
		errs = append(errs, "sweep.lookback_hours must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

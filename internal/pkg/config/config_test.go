package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10, RequestTimeout: 15},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "civic", DBName: "civicmap", SSLMode: "disable", MaxConns: 10},
		NATS:     NATSConfig{URL: "nats://localhost:4222"},
		Valkey:   ValkeyConfig{Addr: "localhost:6379"},
		Log:      LogConfig{Level: "info", Format: "json"},
		Breaker:  BreakerConfig{FailureThreshold: 5, OpenTimeoutSeconds: 30},
		Temporal: TemporalConfig{HostPort: "localhost:7233", Namespace: "default", TaskQueue: "civicmap-sweeps"},
		Sweep:    SweepConfig{Cron: "*/15 * * * *", MinReports: 5, RadiusKm: 1, LookbackHours: 24},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Host = ""
	cfg.Log.Format = "xml"
	cfg.Log.Level = "loud"
	cfg.Sweep.Cron = "every now and then"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"server.port", "database.host", "log.level", "log.format", "sweep.cron"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error, got:\n%s", want, msg)
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CIVICMAP_SERVER_PORT", "9090")
	t.Setenv("CIVICMAP_SWEEP_MIN_REPORTS", "7")
	t.Setenv("CIVICMAP_DATABASE_HOST", "db.internal")

	cfg, err := Load("civicmap-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Sweep.MinReports != 7 {
		t.Errorf("sweep.min_reports = %d, want 7", cfg.Sweep.MinReports)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database.host = %q", cfg.Database.Host)
	}
	if cfg.Telemetry.ServiceName != "civicmap-test" {
		t.Errorf("telemetry.service_name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Server.RequestTimeout != 15 {
		t.Errorf("server.request_timeout default = %d, want 15", cfg.Server.RequestTimeout)
	}
}

func TestLoad_LogLevelFallback(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("civicmap-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, DBName: "db", SSLMode: "disable"}
	if got := d.DSN(); got != "postgres://u:p@h:5432/db?sslmode=disable" {
		t.Errorf("DSN() = %q", got)
	}
}

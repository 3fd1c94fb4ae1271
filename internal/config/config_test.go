package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Scanner.BurstThreshold != 50*time.Millisecond {
		t.Errorf("burst threshold = %v, want 50ms", cfg.Scanner.BurstThreshold)
	}
	if cfg.Scanner.IdleReset != 200*time.Millisecond {
		t.Errorf("idle reset = %v, want 200ms", cfg.Scanner.IdleReset)
	}
	if cfg.Scanner.MinCodeLength != 4 {
		t.Errorf("min code length = %d, want 4", cfg.Scanner.MinCodeLength)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SCANNER_BURST_MS", "30")
	t.Setenv("DB_HOST", "db.internal")

	cfg := Load()
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Server.Port)
	}
	if cfg.Scanner.BurstThreshold != 30*time.Millisecond {
		t.Errorf("burst threshold = %v, want 30ms", cfg.Scanner.BurstThreshold)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("db host = %s, want db.internal", cfg.Database.Host)
	}
}

func TestDSNFormat(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", Port: 5432, User: "sigpat", Password: "pw", DBName: "sigpat", SSLMode: "disable"}
	want := "host=localhost port=5432 user=sigpat password=pw dbname=sigpat sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

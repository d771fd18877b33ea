package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"bad store", func(c *Config) { c.Session.Store = "disk" }, "session.store"},
		{"redis without url", func(c *Config) { c.Session.Store = "redis" }, "redis_url"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad duration", func(c *Config) { c.Auth.LockoutDuration = "fifteen" }, "auth.lockout_duration"},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }, "16 characters"},
		{"zero attempts", func(c *Config) { c.Auth.MaxLoginAttempts = 0 }, "max_login_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

func TestWriteDefaultAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resortd.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Error("expected error when file exists without force")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("WriteDefault force: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Auth.MaxLoginAttempts != 5 || cfg.Session.IdleTimeout != "30m" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("TEST_RESORT_DSN", "file:/tmp/resort.db")
	path := filepath.Join(t.TempDir(), "resortd.yaml")
	content := "database:\n  driver: sqlite\n  dsn: ${TEST_RESORT_DSN}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Database.DSN != "file:/tmp/resort.db" || cfg.Database.Driver != "sqlite" {
		t.Errorf("database = %+v", cfg.Database)
	}
	// Untouched sections keep their defaults.
	if cfg.Auth.LockoutDuration != "15m" {
		t.Errorf("lockout = %q", cfg.Auth.LockoutDuration)
	}
}

func TestLoadViperEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resortd.yaml")
	content := "server:\n  port: 9090\nauth:\n  max_login_attempts: 3\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RESORT_AUTH_LOCKOUT_DURATION", "5m")
	t.Setenv("RESORT_DATABASE_DRIVER", "postgres")

	v := viper.New()
	ConfigureViper(v, path)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Auth.MaxLoginAttempts != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Auth.LockoutDuration != "5m" || cfg.Database.Driver != "postgres" {
		t.Errorf("env overrides not applied: auth=%+v db=%+v", cfg.Auth, cfg.Database)
	}
	if cfg.Session.CookieName != "resortd_session" {
		t.Errorf("default not applied: %q", cfg.Session.CookieName)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HOME", dir)

	v := viper.New()
	ConfigureViper(v, "")
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	os.WriteFile(local, []byte("RESORT_TEST_A=local\n"), 0644)
	os.WriteFile(shared, []byte("RESORT_TEST_A=shared\nRESORT_TEST_B=shared\n"), 0644)

	t.Setenv("RESORT_TEST_A", "")
	t.Setenv("RESORT_TEST_B", "")
	os.Unsetenv("RESORT_TEST_A")
	os.Unsetenv("RESORT_TEST_B")

	if err := LoadEnvFiles(local, shared, filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if got := os.Getenv("RESORT_TEST_A"); got != "local" {
		t.Errorf("RESORT_TEST_A = %q, want local", got)
	}
	if got := os.Getenv("RESORT_TEST_B"); got != "shared" {
		t.Errorf("RESORT_TEST_B = %q, want shared", got)
	}
}

func TestMarshalMasksSecrets(t *testing.T) {
	c := Default()
	c.Session.Secret = "0123456789abcdef0123"
	c.Database.DSN = "resort:topsecret@tcp(db:3306)/resort"

	out, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(out)
	if strings.Contains(s, "0123456789abcdef0123") || strings.Contains(s, "topsecret") {
		t.Errorf("secrets leaked:\n%s", s)
	}
	if got := maskDSN(c.Database.DSN); got != "resort:********@tcp(db:3306)/resort" {
		t.Errorf("maskDSN = %q", got)
	}
	if got := maskDSN("postgres://app:pw@db/resort"); got != "postgres://app:********@db/resort" {
		t.Errorf("maskDSN url = %q", got)
	}
	if c.Session.Secret != "0123456789abcdef0123" {
		t.Error("Marshal must not modify its argument")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("Duration(90s) = %v", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("Duration(\"\") = %v", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Errorf("Duration(bogus) = %v", got)
	}
}

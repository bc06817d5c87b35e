package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STAGEGATE_DATABASE_URL", "")
	t.Setenv("STAGEGATE_REDIS_URL", "")
	t.Setenv("STAGEGATE_PROJECT_ROOT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost:5432/stagegate?sslmode=disable" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.ProjectRoot == "" {
		t.Error("ProjectRoot should default to the working directory")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STAGEGATE_DATABASE_URL", "postgres://db:5432/prod")
	t.Setenv("STAGEGATE_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("STAGEGATE_PROJECT_ROOT", "/srv/stagegate")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db:5432/prod" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.ProjectRoot != "/srv/stagegate" {
		t.Errorf("ProjectRoot = %q", cfg.ProjectRoot)
	}
}

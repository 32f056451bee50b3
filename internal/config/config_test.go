package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// ============================================================
// Env
// ============================================================

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv()
	if err != nil {
		t.Fatal(err)
	}
	if env.HTTPPort != "3000" || env.Type != "local" || env.S3Prefix != "taskboard/" {
		t.Fatalf("unexpected defaults %+v", env)
	}
	if !env.IsLocal() {
		t.Fatal("default env should be local")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TASKBOARD_ENV", "production")
	t.Setenv("TASKBOARD_LOG_LEVEL", "warn")
	t.Setenv("TASKBOARD_HTTP_PORT", "8080")
	t.Setenv("TASKBOARD_CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://stats.example.com")
	t.Setenv("TASKBOARD_STORAGE_TYPE", "s3")
	t.Setenv("TASKBOARD_S3_BUCKET", "reports")

	env, err := LoadEnv()
	if err != nil {
		t.Fatal(err)
	}
	if env.IsLocal() {
		t.Fatal("production should not be local")
	}
	if env.SlogLevel() != slog.LevelWarn {
		t.Fatalf("expected warn, got %v", env.SlogLevel())
	}
	if env.Addr() != ":8080" {
		t.Fatalf("addr %q", env.Addr())
	}
	want := []string{"http://localhost:5173", "https://stats.example.com"}
	if got := env.AllowedOrigins(); !reflect.DeepEqual(got, want) {
		t.Fatalf("origins %v", got)
	}
	opts := env.StorageOptions("/tmp/exports")
	if opts.Type != "s3" || opts.Bucket != "reports" || opts.BaseDir != "/tmp/exports" {
		t.Fatalf("storage options %+v", opts)
	}
}

func TestSlogLevelFallback(t *testing.T) {
	e := &BaseEnv{LogLevel: "chatty"}
	if e.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", e.SlogLevel())
	}
	var nilEnv *BaseEnv
	if nilEnv.SlogLevel() != slog.LevelInfo {
		t.Fatal("nil env should default to info")
	}
}

// ============================================================
// Preferences
// ============================================================

func TestLoadPreferencesNoFile(t *testing.T) {
	p, err := LoadPreferences(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p, DefaultPreferences()) {
		t.Fatalf("expected defaults, got %+v", p)
	}
}

func TestLoadPreferencesPartialFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "view:\n  page_size: 50\nexport:\n  prefix: sprint-report\n"
	if err := os.WriteFile(filepath.Join(dir, "taskboard.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPreferences(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p.PageSize != 50 || p.ExportPrefix != "sprint-report" {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.GeneratorYear != 2024 || len(p.PageSizeOptions) != 4 {
		t.Fatalf("defaults not kept: %+v", p)
	}
}

func TestLoadPreferencesInvalid(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "taskboard.yaml"), []byte("view:\n  page_size: 0\n"), 0o644)
	if _, err := LoadPreferences(dir); err == nil {
		t.Fatal("expected validation error")
	}

	bad := t.TempDir()
	os.WriteFile(filepath.Join(bad, "taskboard.yaml"), []byte("view: [unclosed\n"), 0o644)
	if _, err := LoadPreferences(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

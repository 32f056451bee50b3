// Package config loads process settings from the environment and user
// preferences from an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/sadopc/taskboard/internal/storage"
)

const namespace = "TASKBOARD"

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	DBPath   string `envconfig:"DB_PATH"`
}

type HTTPEnv struct {
	HTTPHost           string `envconfig:"HTTP_HOST" default:""`
	HTTPPort           string `envconfig:"HTTP_PORT" default:"3000"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	// APIURL points the dashboard at a running server instead of the local
	// database.
	APIURL string `envconfig:"API_URL"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR"`
	// used when Type == "s3"
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskboard/"`
	S3Region string `envconfig:"S3_REGION"`
}

type Env struct {
	BaseEnv
	HTTPEnv
	StorageEnv
}

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return &env, nil
}

// SlogLevel parses LogLevel, falling back to info.
func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IsLocal reports whether logs should be human-readable text.
func (e *BaseEnv) IsLocal() bool {
	return e != nil && (e.Env == "" || e.Env == "local")
}

// Addr is the listen address for the HTTP server.
func (e *HTTPEnv) Addr() string {
	return e.HTTPHost + ":" + e.HTTPPort
}

// AllowedOrigins splits the comma-separated CORS origin list.
func (e *HTTPEnv) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(e.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// StorageOptions converts the env into sink options. baseDir is used when
// STORAGE_BASE_DIR is unset.
func (e *StorageEnv) StorageOptions(baseDir string) storage.Options {
	dir := e.BaseDir
	if dir == "" {
		dir = baseDir
	}
	return storage.Options{
		Type:    e.Type,
		BaseDir: dir,
		Bucket:  e.S3Bucket,
		Prefix:  e.S3Prefix,
		Region:  e.S3Region,
	}
}

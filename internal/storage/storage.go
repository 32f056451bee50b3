// Package storage is the sink exported reports and datasets are written to.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// Storage is a flat key-value file store.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// Options selects and configures a backend.
type Options struct {
	Type    string
	BaseDir string
	Bucket  string
	Prefix  string
	Region  string
}

// Open builds the backend named by opts.Type.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Type {
	case "", TypeLocal:
		return NewLocal(opts.BaseDir)
	case TypeS3:
		if opts.Bucket == "" {
			return nil, fmt.Errorf("s3 storage: bucket is required")
		}
		return NewS3(ctx, opts.Bucket, opts.Prefix, opts.Region)
	default:
		return nil, fmt.Errorf("unknown storage type %q", opts.Type)
	}
}

// Describe returns a human-readable location for path, for status lines.
func Describe(s Storage, path string) string {
	switch st := s.(type) {
	case *Local:
		return st.resolve(path)
	case *S3:
		return fmt.Sprintf("s3://%s/%s", st.bucket, st.key(path))
	default:
		return path
	}
}

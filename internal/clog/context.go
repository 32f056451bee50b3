// Package clog wires log/slog for the CLI and the HTTP server: a coloured
// text handler for local use, request-scoped attributes carried on the
// context, and a chi middleware that logs one line per request.
package clog

import (
	"context"
	"maps"
	"sync"
)

const ErrorAttributeKey = "error.message"

type bag struct {
	mu    sync.RWMutex
	attrs map[string]any
}

type bagKey struct{}

// ContextWithAttributes returns a context that collects attributes for the
// log lines written with it.
func ContextWithAttributes(ctx context.Context) context.Context {
	return context.WithValue(ctx, bagKey{}, &bag{attrs: make(map[string]any)})
}

// AddAttributes merges attrs into the context's bag. It is a no-op for a
// context without one.
func AddAttributes(ctx context.Context, attrs map[string]any) {
	b, ok := ctx.Value(bagKey{}).(*bag)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	maps.Copy(b.attrs, attrs)
}

func AddAttribute(ctx context.Context, key string, value any) {
	AddAttributes(ctx, map[string]any{key: value})
}

// AddError records err for the request's log line.
func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func Attributes(ctx context.Context) map[string]any {
	b, ok := ctx.Value(bagKey{}).(*bag)
	if !ok {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.attrs)
}

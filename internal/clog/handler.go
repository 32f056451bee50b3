package clog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fatih/color"
)

// AttributesHandler adds the context's collected attributes to every record.
type AttributesHandler struct {
	next slog.Handler
}

func NewAttributesHandler(next slog.Handler) *AttributesHandler {
	return &AttributesHandler{next: next}
}

func (h *AttributesHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *AttributesHandler) Handle(ctx context.Context, r slog.Record) error {
	for k, v := range Attributes(ctx) {
		r.AddAttrs(slog.Any(k, v))
	}
	return h.next.Handle(ctx, r)
}

func (h *AttributesHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AttributesHandler{next: h.next.WithAttrs(attrs)}
}

func (h *AttributesHandler) WithGroup(name string) slog.Handler {
	return &AttributesHandler{next: h.next.WithGroup(name)}
}

type TextOption func(*TextHandler)

func WithColor(on bool) TextOption {
	return func(h *TextHandler) { h.color = on }
}

func WithLevel(l slog.Leveler) TextOption {
	return func(h *TextHandler) { h.level = l }
}

// TextHandler writes one coloured line per record: time, level, the
// request columns when present, the message and any error, followed by the
// remaining attributes sorted by key.
type TextHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	color bool
	level slog.Leveler
	attrs []slog.Attr
}

func NewTextHandler(w io.Writer, opts ...TextOption) *TextHandler {
	h := &TextHandler{mu: &sync.Mutex{}, w: w, color: true, level: slog.LevelInfo}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *TextHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(slices.Clone(h.attrs), attrs...)
	return &nh
}

// WithGroup is accepted but groups are flattened into the attribute list.
func (h *TextHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *TextHandler) paint(attr color.Attribute) *color.Color {
	c := color.New(attr)
	if h.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s ", r.Time.Format(time.RFC3339))
	h.paint(levelColor(r.Level)).Fprintf(&buf, "%-5s ", r.Level)

	kv := map[string]slog.Value{}
	for _, a := range h.attrs {
		kv[a.Key] = a.Value
	}
	r.Attrs(func(a slog.Attr) bool {
		kv[a.Key] = a.Value
		return true
	})
	for _, key := range []string{"method", "path", "status"} {
		if v, ok := kv[key]; ok {
			fmt.Fprintf(&buf, "%s ", v)
			delete(kv, key)
		}
	}

	h.paint(color.FgGreen).Fprint(&buf, r.Message)
	if e, ok := kv[ErrorAttributeKey]; ok {
		delete(kv, ErrorAttributeKey)
		h.paint(color.FgRed).Fprintf(&buf, " %s", e)
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%s", k, kv[k])
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func levelColor(l slog.Level) color.Attribute {
	switch {
	case l >= slog.LevelError:
		return color.FgRed
	case l >= slog.LevelWarn:
		return color.FgYellow
	case l >= slog.LevelInfo:
		return color.FgBlue
	default:
		return color.FgCyan
	}
}

// NewLogger builds the process logger: coloured text for local use, JSON
// otherwise, both enriched with request attributes.
func NewLogger(w io.Writer, local bool, level slog.Level) *slog.Logger {
	var h slog.Handler
	if local {
		h = NewTextHandler(w, WithLevel(level))
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(NewAttributesHandler(h))
}

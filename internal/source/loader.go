// Package source loads the task collection the dashboards work on: from the
// local database, from a remote API, or generated demo data when neither
// can be read.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sadopc/taskboard/internal/task"
)

const (
	OriginStore  = "store"
	OriginRemote = "remote"
	OriginDemo   = "demo"
)

// Dataset is one load result. When Demo is set the tasks are generated and
// Err holds the reason the real source could not be used.
type Dataset struct {
	Tasks  []task.Task
	Origin string
	Demo   bool
	Err    error
}

type Loader struct {
	repo     task.Repository
	origin   string
	generate func() ([]task.Task, error)
	logger   *slog.Logger
}

// NewLoader reads from repo and falls back to generate. origin names repo
// in the returned Dataset.
func NewLoader(repo task.Repository, origin string, generate func() ([]task.Task, error), logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{repo: repo, origin: origin, generate: generate, logger: logger}
}

// Repository returns the repository writes should go to. It is nil for a
// demo-only loader.
func (l *Loader) Repository() task.Repository {
	return l.repo
}

// Load never hands back a failed dataset while a generator is configured:
// a read failure is logged and replaced by demo data. The error is only
// returned when both the repository and the generator fail.
func (l *Loader) Load(ctx context.Context) (Dataset, error) {
	var cause error
	if l.repo != nil {
		tasks, err := l.repo.LoadAll(ctx)
		if err == nil {
			return Dataset{Tasks: tasks, Origin: l.origin}, nil
		}
		if ctx.Err() != nil {
			return Dataset{}, ctx.Err()
		}
		cause = fmt.Errorf("load tasks from %s: %w", l.origin, err)
		l.logger.WarnContext(ctx, "falling back to demo data", "origin", l.origin, "error", err)
	}

	if l.generate == nil {
		return Dataset{}, cause
	}
	tasks, err := l.generate()
	if err != nil {
		if cause != nil {
			return Dataset{}, fmt.Errorf("%w; generate demo data: %w", cause, err)
		}
		return Dataset{}, fmt.Errorf("generate demo data: %w", err)
	}
	return Dataset{Tasks: tasks, Origin: OriginDemo, Demo: true, Err: cause}, nil
}

package task

import (
	"context"
	"errors"
)

// ErrNotFound is returned by DeleteByID when no task has the given ID.
var ErrNotFound = errors.New("task not found")

// Repository is the persistence contract the rest of the system depends on.
// FindByID returns (nil, nil) when no task has the given ID.
type Repository interface {
	LoadAll(ctx context.Context) ([]Task, error)
	Save(ctx context.Context, t Task) (*Task, error)
	DeleteByID(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Task, error)
}

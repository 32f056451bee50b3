package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sadopc/taskboard/internal/task"
)

var _ task.Repository = (*Store)(nil)

const taskColumns = `id, key, title, status, priority, type, assignee, reporter,
	created_date, resolved_date, story_points, time_spent, time_estimated,
	month, sprint, labels, components`

// LoadAll returns every task, newest first.
func (s *Store) LoadAll(ctx context.Context) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_date DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// FindByID returns the task, or nil if there is none.
func (s *Store) FindByID(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// Save inserts or updates t. A missing ID is assigned a ULID, a missing key
// the next TASK-MM-NNNN for its creation month, and the month label is
// always derived from the creation date.
func (s *Store) Save(ctx context.Context, t task.Task) (*task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := s.saveTx(ctx, tx, &t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.FindByID(ctx, t.ID)
}

// SaveAll stores tasks in a single transaction. A key already held by
// another task is replaced with the next free TASK-MM-NNNN, so generated
// datasets with clashing random suffixes import cleanly.
func (s *Store) SaveAll(ctx context.Context, tasks []task.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i := range tasks {
		t := tasks[i]
		if t.Key != "" {
			taken, err := keyTaken(ctx, tx, t.Key, t.ID)
			if err != nil {
				return err
			}
			if taken {
				t.Key = ""
			}
		}
		if err := s.saveTx(ctx, tx, &t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) saveTx(ctx context.Context, tx *sql.Tx, t *task.Task) error {
	if t.CreatedDate.IsZero() {
		t.CreatedDate = time.Now().UTC()
	}
	t.CreatedDate = t.CreatedDate.UTC().Truncate(time.Second)
	if t.ResolvedDate != nil {
		r := t.ResolvedDate.UTC().Truncate(time.Second)
		t.ResolvedDate = &r
	}
	t.Month = task.MonthLabel(t.CreatedDate)
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if t.Components == nil {
		t.Components = []string{}
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	if t.Key == "" {
		key, err := nextKey(ctx, tx, t.CreatedDate)
		if err != nil {
			return err
		}
		t.Key = key
	}

	labels, err := json.Marshal(t.Labels)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	components, err := json.Marshal(t.Components)
	if err != nil {
		return fmt.Errorf("encode components: %w", err)
	}

	var resolved sql.NullString
	if t.ResolvedDate != nil {
		resolved = sql.NullString{String: t.ResolvedDate.Format(time.RFC3339), Valid: true}
	}
	var points sql.NullInt64
	if t.StoryPoints != nil {
		points = sql.NullInt64{Int64: int64(*t.StoryPoints), Valid: true}
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			key = excluded.key, title = excluded.title, status = excluded.status,
			priority = excluded.priority, type = excluded.type, assignee = excluded.assignee,
			reporter = excluded.reporter, resolved_date = excluded.resolved_date,
			story_points = excluded.story_points, time_spent = excluded.time_spent,
			time_estimated = excluded.time_estimated, sprint = excluded.sprint,
			labels = excluded.labels, components = excluded.components,
			updated_at = excluded.updated_at`,
		t.ID, t.Key, t.Title, string(t.Status), string(t.Priority), string(t.Type), t.Assignee, t.Reporter,
		t.CreatedDate.Format(time.RFC3339), resolved, points, t.TimeSpent, t.TimeEstimated,
		t.Month, t.Sprint, string(labels), string(components), now,
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.Key, err)
	}
	return nil
}

// DeleteByID removes a task. It returns task.ErrNotFound if none matched.
func (s *Store) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %s: %w", id, task.ErrNotFound)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// nextKey numbers new tasks from the table size plus one, skipping keys
// that are already taken.
func nextKey(ctx context.Context, tx *sql.Tx, created time.Time) (string, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return "", fmt.Errorf("count tasks: %w", err)
	}
	for seq := n + 1; ; seq++ {
		key := fmt.Sprintf("TASK-%02d-%04d", int(created.Month()), seq)
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE key = ?`, key).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return key, nil
		}
		if err != nil {
			return "", fmt.Errorf("check key %s: %w", key, err)
		}
	}
}

func keyTaken(ctx context.Context, tx *sql.Tx, key, id string) (bool, error) {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT id FROM tasks WHERE key = ?`, key).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check key %s: %w", key, err)
	}
	return owner != id, nil
}

// SeedIfEmpty fills an empty table with the tasks returned by gen and
// records when it happened. It returns the number of tasks inserted, 0 if
// the table already had data.
func (s *Store) SeedIfEmpty(ctx context.Context, source string, gen func() ([]task.Task, error)) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	tasks, err := gen()
	if err != nil {
		return 0, fmt.Errorf("generate seed data: %w", err)
	}
	if err := s.SaveAll(ctx, tasks); err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	for k, v := range map[string]string{
		SettingSeededAt:   time.Now().UTC().Format(time.RFC3339),
		SettingSeedCount:  strconv.Itoa(len(tasks)),
		SettingSeedSource: source,
	} {
		if err := s.SetSetting(ctx, k, v); err != nil {
			return 0, err
		}
	}
	return len(tasks), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*task.Task, error) {
	var (
		t                  task.Task
		status, prio, typ  string
		created            string
		resolved           sql.NullString
		points             sql.NullInt64
		labels, components string
	)
	err := sc.Scan(&t.ID, &t.Key, &t.Title, &status, &prio, &typ, &t.Assignee, &t.Reporter,
		&created, &resolved, &points, &t.TimeSpent, &t.TimeEstimated,
		&t.Month, &t.Sprint, &labels, &components)
	if err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.Priority = task.Priority(prio)
	t.Type = task.Type(typ)
	if t.CreatedDate, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("decode created_date of %s: %w", t.Key, err)
	}
	if resolved.Valid {
		r, err := time.Parse(time.RFC3339, resolved.String)
		if err != nil {
			return nil, fmt.Errorf("decode resolved_date of %s: %w", t.Key, err)
		}
		t.ResolvedDate = &r
	}
	if points.Valid {
		p := int(points.Int64)
		t.StoryPoints = &p
	}
	if err := json.Unmarshal([]byte(labels), &t.Labels); err != nil {
		return nil, fmt.Errorf("decode labels of %s: %w", t.Key, err)
	}
	if err := json.Unmarshal([]byte(components), &t.Components); err != nil {
		return nil, fmt.Errorf("decode components of %s: %w", t.Key, err)
	}
	return &t, nil
}

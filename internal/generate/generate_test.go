package generate

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/sadopc/taskboard/internal/random"
	"github.com/sadopc/taskboard/internal/task"
)

func seeded(t interface{ Helper() }, seed uint64, opts ...Option) *Generator {
	t.Helper()
	return New(append([]Option{WithRand(random.NewSeeded(seed))}, opts...)...)
}

// ============================================================
// GenerateTask
// ============================================================

func TestGenerateTaskInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := seeded(t, rapid.Uint64().Draw(t, "seed"))
		month := rapid.IntRange(0, 11).Draw(t, "month")

		tk, err := g.GenerateTask(month)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if err := tk.Validate(); err != nil {
			t.Fatalf("generated task invalid: %v", err)
		}

		if (tk.Status == task.StatusDone) != (tk.ResolvedDate != nil) {
			t.Fatalf("status %q with resolved %v", tk.Status, tk.ResolvedDate)
		}
		if tk.ResolvedDate != nil && tk.ResolvedDate.Before(tk.CreatedDate) {
			t.Fatal("resolved before created")
		}
		if tk.ResolvedDate != nil && tk.ResolvedDate.Day() > 28 {
			t.Fatalf("resolved on day %d", tk.ResolvedDate.Day())
		}

		switch tk.Status {
		case task.StatusDone:
			if tk.TimeSpent > tk.TimeEstimated*1.3 {
				t.Fatalf("done spent %v > 1.3 * %v", tk.TimeSpent, tk.TimeEstimated)
			}
		case task.StatusInProgress:
			if tk.TimeSpent > tk.TimeEstimated*0.7 {
				t.Fatalf("in-progress spent %v > 0.7 * %v", tk.TimeSpent, tk.TimeEstimated)
			}
		default:
			if tk.TimeSpent != 0 {
				t.Fatalf("status %q spent %v", tk.Status, tk.TimeSpent)
			}
		}

		if tk.CreatedDate.Year() != DefaultYear || int(tk.CreatedDate.Month()) != month+1 {
			t.Fatalf("created %v not in month %d", tk.CreatedDate, month+1)
		}
		if d := tk.CreatedDate.Day(); d < 1 || d > 15 {
			t.Fatalf("created on day %d", d)
		}
		if tk.Month != task.MonthLabel(tk.CreatedDate) {
			t.Fatalf("month label %q", tk.Month)
		}
		if tk.TimeEstimated < 4 || tk.TimeEstimated > 40 {
			t.Fatalf("estimate %v", tk.TimeEstimated)
		}
		if n := len(tk.Labels); n < 1 || n > 4 {
			t.Fatalf("labels %v", tk.Labels)
		}
		if n := len(tk.Components); n < 1 || n > 3 {
			t.Fatalf("components %v", tk.Components)
		}
		if !strings.HasPrefix(tk.Key, "TASK-") || len(tk.Key) != len("TASK-01-001") {
			t.Fatalf("key %q", tk.Key)
		}
		if tk.ID == "" {
			t.Fatal("missing id")
		}
	})
}

func TestGenerateTaskRejectsMonth(t *testing.T) {
	g := seeded(t, 1)
	for _, m := range []int{-1, 12} {
		_, err := g.GenerateTask(m)
		var e *random.InvalidRangeError
		if !errors.As(err, &e) {
			t.Fatalf("month %d: expected InvalidRangeError, got %v", m, err)
		}
	}
}

func TestGenerateTaskEmptyVocabularyFails(t *testing.T) {
	v := DefaultVocabulary()
	v.Titles = nil
	g := seeded(t, 1, WithVocabulary(v))
	_, err := g.GenerateTask(0)
	var e *random.EmptyInputError
	if !errors.As(err, &e) {
		t.Fatalf("expected EmptyInputError, got %v", err)
	}
}

func TestDeterministicWithSeed(t *testing.T) {
	a, err := seeded(t, 99).GenerateTask(4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := seeded(t, 99).GenerateTask(4)
	if err != nil {
		t.Fatal(err)
	}
	if a.Key != b.Key || a.Title != b.Title || !a.CreatedDate.Equal(b.CreatedDate) || a.ID != b.ID {
		t.Fatalf("same seed produced different tasks: %+v vs %+v", a, b)
	}
}

// ============================================================
// GenerateDataset
// ============================================================

func TestGenerateDatasetSortedAndSized(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := seeded(t, rapid.Uint64().Draw(t, "seed"))
		ds, err := g.GenerateDataset()
		if err != nil {
			t.Fatalf("dataset: %v", err)
		}
		if n := len(ds); n < 15*12 || n > 45*12 {
			t.Fatalf("dataset size %d", n)
		}
		for i := 1; i < len(ds); i++ {
			if ds[i].CreatedDate.Before(ds[i-1].CreatedDate) {
				t.Fatalf("unsorted at %d", i)
			}
		}
	})
}

func TestGenerateDatasetEveryMonth(t *testing.T) {
	ds, err := seeded(t, 5).GenerateDataset()
	if err != nil {
		t.Fatal(err)
	}
	perMonth := map[string]int{}
	for _, tk := range ds {
		perMonth[tk.Month]++
	}
	if len(perMonth) != 12 {
		t.Fatalf("expected 12 months, got %d", len(perMonth))
	}
	for m, n := range perMonth {
		if n < MinTasksPerMonth || n > MaxTasksPerMonth {
			t.Fatalf("%s has %d tasks", m, n)
		}
	}
}

func TestSequentialKeysUnique(t *testing.T) {
	ds, err := seeded(t, 8, WithSequentialKeys()).GenerateDataset()
	if err != nil {
		t.Fatal(err)
	}
	keys := map[string]bool{}
	ids := map[string]bool{}
	for _, tk := range ds {
		if keys[tk.Key] {
			t.Fatalf("duplicate key %s", tk.Key)
		}
		if ids[tk.ID] {
			t.Fatalf("duplicate id %s", tk.ID)
		}
		keys[tk.Key] = true
		ids[tk.ID] = true
	}
}

func TestWithYear(t *testing.T) {
	tk, err := seeded(t, 2, WithYear(2031)).GenerateTask(0)
	if err != nil {
		t.Fatal(err)
	}
	if tk.CreatedDate.Year() != 2031 || tk.Month != "January 2031" {
		t.Fatalf("unexpected created %v month %q", tk.CreatedDate, tk.Month)
	}
}

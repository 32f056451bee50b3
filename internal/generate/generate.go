// Package generate produces synthetic but internally consistent task
// datasets for demos, seeding and tests.
package generate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sadopc/taskboard/internal/random"
	"github.com/sadopc/taskboard/internal/task"
)

const (
	DefaultYear = 2024

	MinTasksPerMonth = 15
	MaxTasksPerMonth = 45

	storyPointsChance = 0.7
	minEstimate       = 4
	maxEstimate       = 40
	maxLabels         = 4
	maxComponents     = 3
	createdLastDay    = 15
	resolvedLastDay   = 28
	maxKeySuffix      = 999
)

var statusWeights = []random.Weighted[task.Status]{
	{Key: task.StatusDone, Weight: 3},
	{Key: task.StatusInProgress, Weight: 1},
	{Key: task.StatusToDo, Weight: 1},
	{Key: task.StatusBlocked, Weight: 1},
	{Key: task.StatusReview, Weight: 1},
}

type Generator struct {
	r              *rand.Rand
	year           int
	sequentialKeys bool
	vocab          Vocabulary
	entropy        *ulid.MonotonicEntropy
	seq            map[int]int
}

type Option func(*Generator)

// WithRand injects the random source. Without it the generator is seeded
// from the runtime's global source.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.r = r }
}

func WithYear(year int) Option {
	return func(g *Generator) { g.year = year }
}

// WithSequentialKeys replaces the random key suffix with a per-month
// running counter, making keys unique across one generator's output.
func WithSequentialKeys() Option {
	return func(g *Generator) { g.sequentialKeys = true }
}

func WithVocabulary(v Vocabulary) Option {
	return func(g *Generator) { g.vocab = v }
}

func New(opts ...Option) *Generator {
	g := &Generator{
		year:  DefaultYear,
		vocab: DefaultVocabulary(),
		seq:   make(map[int]int),
	}
	for _, o := range opts {
		o(g)
	}
	if g.r == nil {
		g.r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g.entropy = ulid.Monotonic(readerFunc(func(p []byte) (int, error) {
		for i := range p {
			p[i] = byte(g.r.UintN(256))
		}
		return len(p), nil
	}), 0)
	return g
}

// Year returns the reference year tasks are generated in.
func (g *Generator) Year() int { return g.year }

// GenerateTask builds one task created in month monthIndex (0 = January)
// of the reference year.
func (g *Generator) GenerateTask(monthIndex int) (task.Task, error) {
	if monthIndex < 0 || monthIndex > 11 {
		return task.Task{}, &random.InvalidRangeError{Op: "generate task month", Min: 0, Max: 11}
	}
	month := time.Month(monthIndex + 1)
	monthStart := time.Date(g.year, month, 1, 0, 0, 0, 0, time.UTC)
	createdEnd := time.Date(g.year, month, createdLastDay, 23, 59, 59, 0, time.UTC)

	created, err := random.DateBetween(g.r, monthStart, createdEnd)
	if err != nil {
		return task.Task{}, fmt.Errorf("created date: %w", err)
	}

	status, err := random.WeightedPick(g.r, statusWeights)
	if err != nil {
		return task.Task{}, fmt.Errorf("status: %w", err)
	}

	var resolved *time.Time
	if status == task.StatusDone {
		resolvedEnd := time.Date(g.year, month, resolvedLastDay, 23, 59, 59, 0, time.UTC)
		d, err := random.DateBetween(g.r, created, resolvedEnd)
		if err != nil {
			return task.Task{}, fmt.Errorf("resolved date: %w", err)
		}
		resolved = &d
	}

	var points *int
	if random.Chance(g.r, storyPointsChance) {
		sp, err := random.IntBetween(g.r, task.MinStoryPoints, task.MaxStoryPoints)
		if err != nil {
			return task.Task{}, fmt.Errorf("story points: %w", err)
		}
		points = &sp
	}

	estimate, err := random.IntBetween(g.r, minEstimate, maxEstimate)
	if err != nil {
		return task.Task{}, fmt.Errorf("estimate: %w", err)
	}
	spent, err := g.timeSpent(status, float64(estimate))
	if err != nil {
		return task.Task{}, err
	}

	key, err := g.key(monthIndex)
	if err != nil {
		return task.Task{}, err
	}

	t := task.Task{
		Key:           key,
		Status:        status,
		CreatedDate:   created,
		ResolvedDate:  resolved,
		StoryPoints:   points,
		TimeSpent:     spent,
		TimeEstimated: float64(estimate),
		Month:         task.MonthLabel(created),
	}
	if err := g.pickVocabulary(&t); err != nil {
		return task.Task{}, err
	}

	id, err := ulid.New(ulid.Timestamp(created), g.entropy)
	if err != nil {
		return task.Task{}, fmt.Errorf("task id: %w", err)
	}
	t.ID = id.String()
	return t, nil
}

// GenerateDataset builds a full year: 12 months of 15 to 45 tasks each,
// sorted ascending by creation date.
func (g *Generator) GenerateDataset() ([]task.Task, error) {
	var all []task.Task
	for m := range 12 {
		n, err := random.IntBetween(g.r, MinTasksPerMonth, MaxTasksPerMonth)
		if err != nil {
			return nil, err
		}
		for range n {
			t, err := g.GenerateTask(m)
			if err != nil {
				return nil, fmt.Errorf("month %d: %w", m+1, err)
			}
			all = append(all, t)
		}
	}
	slices.SortStableFunc(all, func(a, b task.Task) int {
		return a.CreatedDate.Compare(b.CreatedDate)
	})
	return all, nil
}

func (g *Generator) timeSpent(status task.Status, estimate float64) (float64, error) {
	var lo, hi float64
	switch status {
	case task.StatusDone:
		lo, hi = 0.7, 1.3
	case task.StatusInProgress:
		lo, hi = 0.2, 0.7
	default:
		return 0, nil
	}
	f, err := random.FloatBetween(g.r, lo, hi)
	if err != nil {
		return 0, fmt.Errorf("time spent: %w", err)
	}
	return math.Floor(estimate * f), nil
}

func (g *Generator) key(monthIndex int) (string, error) {
	var n int
	if g.sequentialKeys {
		g.seq[monthIndex]++
		n = g.seq[monthIndex]
	} else {
		var err error
		n, err = random.IntBetween(g.r, 1, maxKeySuffix)
		if err != nil {
			return "", fmt.Errorf("key: %w", err)
		}
	}
	return fmt.Sprintf("TASK-%02d-%03d", monthIndex+1, n), nil
}

func (g *Generator) pickVocabulary(t *task.Task) error {
	var err error
	if t.Title, err = random.PickOne(g.r, g.vocab.Titles); err != nil {
		return fmt.Errorf("title: %w", err)
	}
	if t.Assignee, err = random.PickOne(g.r, g.vocab.Assignees); err != nil {
		return fmt.Errorf("assignee: %w", err)
	}
	if t.Reporter, err = random.PickOne(g.r, g.vocab.Reporters); err != nil {
		return fmt.Errorf("reporter: %w", err)
	}
	if t.Priority, err = random.PickOne(g.r, g.vocab.Priorities); err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	if t.Type, err = random.PickOne(g.r, g.vocab.Types); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	if t.Sprint, err = random.PickOne(g.r, g.vocab.Sprints); err != nil {
		return fmt.Errorf("sprint: %w", err)
	}
	if t.Labels, err = g.sample(g.vocab.Labels, maxLabels); err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	if t.Components, err = g.sample(g.vocab.Components, maxComponents); err != nil {
		return fmt.Errorf("components: %w", err)
	}
	return nil
}

func (g *Generator) sample(items []string, most int) ([]string, error) {
	if len(items) == 0 {
		return nil, &random.EmptyInputError{Op: "sample"}
	}
	n, err := random.IntBetween(g.r, 1, most)
	if err != nil {
		return nil, err
	}
	return random.PickMany(g.r, items, n), nil
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/taskboard/internal/config"
	"github.com/sadopc/taskboard/internal/generate"
	"github.com/sadopc/taskboard/internal/random"
	"github.com/sadopc/taskboard/internal/server"
	"github.com/sadopc/taskboard/internal/store"
	"github.com/sadopc/taskboard/internal/task"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newAPI(t *testing.T) *Client {
	t.Helper()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := server.New(&config.HTTPEnv{CORSAllowedOrigins: "*"}, discard, st)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL, ts.Client())
	require.NoError(t, err)
	return c
}

func demoGenerator() func() ([]task.Task, error) {
	g := generate.New(generate.WithRand(random.NewSeeded(7)), generate.WithSequentialKeys())
	return g.GenerateDataset
}

// ============================================================
// Client
// ============================================================

func TestNewClientURL(t *testing.T) {
	c, err := NewClient("http://localhost:3000/", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api", c.base)

	c, err = NewClient("https://stats.example.com/api", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://stats.example.com/api", c.base)

	_, err = NewClient("localhost:3000", nil)
	assert.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	c := newAPI(t)
	ctx := context.Background()

	tasks, err := c.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	created, err := c.Save(ctx, task.Task{
		Title:         "Fix login redirect",
		Status:        task.StatusToDo,
		Priority:      task.PriorityHigh,
		Type:          task.TypeBug,
		Assignee:      "Emily Davis",
		TimeEstimated: 4,
		Labels:        []string{"frontend"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Key)

	created.Status = task.StatusDone
	created.TimeSpent = 5
	updated, err := c.Save(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, updated.Status)
	assert.NotNil(t, updated.ResolvedDate)

	found, err := c.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 5.0, found.TimeSpent)

	require.NoError(t, c.DeleteByID(ctx, created.ID))
	found, err = c.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	err = c.DeleteByID(ctx, created.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestClientSurfacesAPIError(t *testing.T) {
	c := newAPI(t)
	_, err := c.Save(context.Background(), task.Task{Title: "no estimate", Status: task.StatusToDo})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_argument", apiErr.Code)
}

// ============================================================
// Loader
// ============================================================

type failingRepo struct {
	task.Repository
	err error
}

func (f failingRepo) LoadAll(context.Context) ([]task.Task, error) { return nil, f.err }

func TestLoaderUsesRepository(t *testing.T) {
	st, err := store.NewMemory()
	require.NoError(t, err)
	defer st.Close()
	_, err = st.SeedIfEmpty(context.Background(), "test", demoGenerator())
	require.NoError(t, err)

	ds, err := NewLoader(st, OriginStore, demoGenerator(), discard).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ds.Demo)
	assert.Equal(t, OriginStore, ds.Origin)
	assert.NoError(t, ds.Err)
	assert.NotEmpty(t, ds.Tasks)
}

func TestLoaderFallsBackToDemo(t *testing.T) {
	boom := errors.New("connection refused")
	ds, err := NewLoader(failingRepo{err: boom}, OriginRemote, demoGenerator(), discard).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ds.Demo)
	assert.Equal(t, OriginDemo, ds.Origin)
	assert.ErrorIs(t, ds.Err, boom)
	assert.GreaterOrEqual(t, len(ds.Tasks), 12*generate.MinTasksPerMonth)
}

func TestLoaderDemoOnly(t *testing.T) {
	ds, err := NewLoader(nil, "", demoGenerator(), discard).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ds.Demo)
	assert.NoError(t, ds.Err)
}

func TestLoaderBothFail(t *testing.T) {
	gen := func() ([]task.Task, error) { return nil, errors.New("empty vocabulary") }
	_, err := NewLoader(failingRepo{err: errors.New("down")}, OriginRemote, gen, discard).Load(context.Background())
	assert.Error(t, err)
}

func TestLoaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(failingRepo{err: context.Canceled}, OriginRemote, demoGenerator(), discard).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sadopc/taskboard/internal/task"
)

// APIError is a non-2xx answer from the task API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// Client is a task.Repository backed by a running taskboard API.
type Client struct {
	base string
	http *http.Client
}

// NewClient accepts the server root ("http://localhost:3000") or its API
// prefix ("http://localhost:3000/api").
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/api") {
		u.Path += "/api"
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: u.String(), http: hc}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var doc struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&doc) == nil {
			apiErr.Code, apiErr.Message = doc.Code, doc.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func isStatus(err error, status int) bool {
	var e *APIError
	return errors.As(err, &e) && e.Status == status
}

func (c *Client) LoadAll(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) FindByID(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &t)
	if isStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type writeBody struct {
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	Type          string     `json:"type"`
	Assignee      string     `json:"assignee"`
	Reporter      string     `json:"reporter"`
	StoryPoints   *int       `json:"storyPoints"`
	TimeSpent     float64    `json:"timeSpent"`
	TimeEstimated float64    `json:"timeEstimated"`
	ResolvedDate  *time.Time `json:"resolvedDate,omitempty"`
	Sprint        string     `json:"sprint"`
	Labels        []string   `json:"labels"`
	Components    []string   `json:"components"`
}

// Save creates t when it has no ID and replaces every editable field
// otherwise. The server assigns the key and creation date of new tasks.
func (c *Client) Save(ctx context.Context, t task.Task) (*task.Task, error) {
	body := writeBody{
		Title:         t.Title,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		Type:          string(t.Type),
		Assignee:      t.Assignee,
		Reporter:      t.Reporter,
		StoryPoints:   t.StoryPoints,
		TimeSpent:     t.TimeSpent,
		TimeEstimated: t.TimeEstimated,
		Sprint:        t.Sprint,
		Labels:        t.Labels,
		Components:    t.Components,
	}

	var saved task.Task
	if t.ID == "" {
		if err := c.do(ctx, http.MethodPost, "/tasks", body, &saved); err != nil {
			return nil, err
		}
		return &saved, nil
	}
	body.ResolvedDate = t.ResolvedDate
	err := c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(t.ID), body, &saved)
	if isStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("update task %s: %w", t.ID, task.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) DeleteByID(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
	if isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("delete task %s: %w", id, task.ErrNotFound)
	}
	return err
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sadopc/taskboard/internal/clog"
	"github.com/sadopc/taskboard/internal/export"
	"github.com/sadopc/taskboard/internal/stats"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

type createTaskRequest struct {
	Title         string   `json:"title"`
	Status        string   `json:"status"`
	Priority      string   `json:"priority"`
	Type          string   `json:"type"`
	Assignee      string   `json:"assignee"`
	Reporter      string   `json:"reporter"`
	StoryPoints   *int     `json:"storyPoints"`
	TimeSpent     float64  `json:"timeSpent"`
	TimeEstimated float64  `json:"timeEstimated"`
	Sprint        string   `json:"sprint"`
	Labels        []string `json:"labels"`
	Components    []string `json:"components"`
}

// nullable tells an explicit JSON null apart from an absent field.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

type updateTaskRequest struct {
	Title         *string             `json:"title"`
	Status        *string             `json:"status"`
	Priority      *string             `json:"priority"`
	Type          *string             `json:"type"`
	Assignee      *string             `json:"assignee"`
	Reporter      *string             `json:"reporter"`
	StoryPoints   nullable[int]       `json:"storyPoints"`
	TimeSpent     *float64            `json:"timeSpent"`
	TimeEstimated *float64            `json:"timeEstimated"`
	ResolvedDate  nullable[time.Time] `json:"resolvedDate"`
	Sprint        *string             `json:"sprint"`
	Labels        *[]string           `json:"labels"`
	Components    *[]string           `json:"components"`
}

type groupResponse struct {
	Label       string   `json:"label"`
	Values      []string `json:"values"`
	Count       int      `json:"count"`
	StoryPoints int      `json:"storyPoints"`
	TimeSpent   float64  `json:"timeSpent"`
}

type viewResponse struct {
	Tasks     []task.Task     `json:"tasks"`
	Groups    []groupResponse `json:"groups,omitempty"`
	Total     int             `json:"total"`
	PageIndex int             `json:"pageIndex"`
	PageCount int             `json:"pageCount"`
	PageSize  int             `json:"pageSize"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return NewError(CodeInvalidArgument, "invalid request body", err)
	}
	return nil
}

func (s *Server) loadAll(r *http.Request) ([]task.Task, error) {
	tasks, err := s.repo.LoadAll(r.Context())
	if err != nil {
		return nil, NewError(CodeInternal, "failed to load tasks", err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

func (s *Server) listTasks(r *http.Request) (int, any, error) {
	tasks, err := s.loadAll(r)
	if err != nil {
		return 0, nil, err
	}
	st, ok, err := parseViewState(r.URL.Query(), s.columns)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return http.StatusOK, tasks, nil
	}

	res, err := view.Apply(tasks, s.columns, st)
	if err != nil {
		return 0, nil, err
	}
	resp := viewResponse{
		Tasks:     res.Page,
		Total:     res.Total,
		PageIndex: res.PageIndex,
		PageCount: res.PageCount,
		PageSize:  st.PageSize,
	}
	if resp.Tasks == nil {
		resp.Tasks = []task.Task{}
	}
	for _, g := range res.PageGroups {
		resp.Groups = append(resp.Groups, groupResponse{
			Label:       g.Label(),
			Values:      g.Values,
			Count:       g.Count(),
			StoryPoints: g.StoryPoints,
			TimeSpent:   g.TimeSpent,
		})
	}
	return http.StatusOK, resp, nil
}

func (s *Server) findTask(r *http.Request) (*task.Task, error) {
	id := chi.URLParam(r, "id")
	clog.AddAttribute(r.Context(), "task_id", id)
	t, err := s.repo.FindByID(r.Context(), id)
	if err != nil {
		return nil, NewError(CodeInternal, "failed to load task", err)
	}
	if t == nil {
		return nil, NewError(CodeNotFound, "task not found", nil)
	}
	return t, nil
}

func (s *Server) getTask(r *http.Request) (int, any, error) {
	t, err := s.findTask(r)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, t, nil
}

func (s *Server) createTask(r *http.Request) (int, any, error) {
	var req createTaskRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}

	t := task.Task{
		Title:         strings.TrimSpace(req.Title),
		Status:        task.DefaultStatus,
		Priority:      task.DefaultPriority,
		Type:          task.DefaultType,
		Assignee:      req.Assignee,
		Reporter:      req.Reporter,
		CreatedDate:   s.now().UTC(),
		StoryPoints:   req.StoryPoints,
		TimeSpent:     req.TimeSpent,
		TimeEstimated: req.TimeEstimated,
		Sprint:        req.Sprint,
		Labels:        req.Labels,
		Components:    req.Components,
	}
	if err := applyEnums(&t, req.Status, req.Priority, req.Type); err != nil {
		return 0, nil, err
	}
	if t.IsDone() {
		resolved := t.CreatedDate
		t.ResolvedDate = &resolved
	}
	if err := t.Validate(); err != nil {
		return 0, nil, err
	}

	saved, err := s.repo.Save(r.Context(), t)
	if err != nil {
		return 0, nil, err
	}
	clog.AddAttribute(r.Context(), "task_key", saved.Key)
	return http.StatusCreated, saved, nil
}

func applyEnums(t *task.Task, status, priority, typ string) error {
	if status != "" {
		v, err := task.ParseStatus(status)
		if err != nil {
			return NewError(CodeInvalidArgument, err.Error(), err)
		}
		t.Status = v
	}
	if priority != "" {
		v, err := task.ParsePriority(priority)
		if err != nil {
			return NewError(CodeInvalidArgument, err.Error(), err)
		}
		t.Priority = v
	}
	if typ != "" {
		v, err := task.ParseType(typ)
		if err != nil {
			return NewError(CodeInvalidArgument, err.Error(), err)
		}
		t.Type = v
	}
	return nil
}

func (s *Server) updateTask(r *http.Request) (int, any, error) {
	var req updateTaskRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	current, err := s.findTask(r)
	if err != nil {
		return 0, nil, err
	}

	t := current.Clone()
	wasDone := t.IsDone()
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	var status, priority, typ string
	if req.Status != nil {
		status = *req.Status
	}
	if req.Priority != nil {
		priority = *req.Priority
	}
	if req.Type != nil {
		typ = *req.Type
	}
	if err := applyEnums(&t, status, priority, typ); err != nil {
		return 0, nil, err
	}
	if req.Assignee != nil {
		t.Assignee = *req.Assignee
	}
	if req.Reporter != nil {
		t.Reporter = *req.Reporter
	}
	if req.StoryPoints.Set {
		t.StoryPoints = req.StoryPoints.Value
	}
	if req.TimeSpent != nil {
		t.TimeSpent = *req.TimeSpent
	}
	if req.TimeEstimated != nil {
		t.TimeEstimated = *req.TimeEstimated
	}
	if req.Sprint != nil {
		t.Sprint = *req.Sprint
	}
	if req.Labels != nil {
		t.Labels = *req.Labels
	}
	if req.Components != nil {
		t.Components = *req.Components
	}
	if req.ResolvedDate.Set {
		t.ResolvedDate = req.ResolvedDate.Value
	}

	// ResolvedDate follows the status unless the client set it explicitly.
	switch {
	case !t.IsDone():
		t.ResolvedDate = nil
	case !wasDone && !req.ResolvedDate.Set:
		now := s.now().UTC()
		if now.Before(t.CreatedDate) {
			now = t.CreatedDate
		}
		t.ResolvedDate = &now
	}
	if err := t.Validate(); err != nil {
		return 0, nil, err
	}

	saved, err := s.repo.Save(r.Context(), t)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, saved, nil
}

func (s *Server) deleteTask(r *http.Request) (int, any, error) {
	id := chi.URLParam(r, "id")
	clog.AddAttribute(r.Context(), "task_id", id)
	if err := s.repo.DeleteByID(r.Context(), id); err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, nil
}

func (s *Server) getStats(r *http.Request) (int, any, error) {
	tasks, err := s.loadAll(r)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, stats.Summarize(tasks), nil
}

// exportCSV writes every row of the requested view, not just one page, as
// an attachment.
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.loadAll(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	st, _, err := parseViewState(r.URL.Query(), s.columns)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	res, err := view.Apply(tasks, s.columns, st)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	body := export.DelimitedText(res.Rows, export.ColumnsFor(st.Visible(s.columns)))
	name := export.Filename(s.exportPrefix, "csv", s.now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

var viewParams = []string{"search", "sort", "group", "page", "pageSize", "hide"}

// parseViewState reads a view.State from query parameters. Filterable
// columns are filtered by their column ID (status=Done,Blocked), sort takes
// column IDs with an optional "-" for descending, group and hide take
// column IDs. ok is false when the query names no view parameter at all.
func parseViewState(q url.Values, columns []view.Column) (st view.State, ok bool, err error) {
	st = view.DefaultState()
	for _, p := range viewParams {
		if q.Has(p) {
			ok = true
		}
	}

	st = st.WithSearch(q.Get("search"))

	for _, c := range columns {
		if !c.Filterable || !q.Has(string(c.ID)) {
			continue
		}
		ok = true
		var vals []string
		for _, v := range splitList(q[string(c.ID)]) {
			nv, err := normalizeFilterValue(c.ID, v)
			if err != nil {
				return st, ok, err
			}
			vals = append(vals, nv)
		}
		st = st.WithFilter(c.ID, vals...)
	}

	var keys []view.SortKey
	for _, raw := range splitList(q["sort"]) {
		desc := strings.HasPrefix(raw, "-")
		c, found := view.Lookup(columns, view.ColumnID(strings.TrimPrefix(raw, "-")))
		if !found || !c.Sortable {
			return st, ok, NewError(CodeInvalidArgument, fmt.Sprintf("cannot sort by %q", raw), nil)
		}
		keys = append(keys, view.SortKey{Column: c.ID, Desc: desc})
	}
	st = st.WithSort(keys...)

	var group []view.ColumnID
	for _, raw := range splitList(q["group"]) {
		c, found := view.Lookup(columns, view.ColumnID(raw))
		if !found || !c.Groupable {
			return st, ok, NewError(CodeInvalidArgument, fmt.Sprintf("cannot group by %q", raw), nil)
		}
		group = append(group, c.ID)
	}
	st = st.WithGroup(group...)

	for _, raw := range splitList(q["hide"]) {
		if _, found := view.Lookup(columns, view.ColumnID(raw)); !found {
			return st, ok, NewError(CodeInvalidArgument, fmt.Sprintf("unknown column %q", raw), nil)
		}
		st = st.ToggleColumn(view.ColumnID(raw))
	}

	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return st, ok, NewError(CodeInvalidArgument, "pageSize must be an integer", err)
		}
		st.PageSize = n
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return st, ok, NewError(CodeInvalidArgument, "page must be a non-negative integer", err)
		}
		st = st.WithPage(n)
	}
	return st, ok, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// normalizeFilterValue maps lenient enum spellings ("in-progress") onto
// the stored values so filters match.
func normalizeFilterValue(col view.ColumnID, v string) (string, error) {
	var (
		out string
		err error
	)
	switch col {
	case view.ColStatus:
		var s task.Status
		s, err = task.ParseStatus(v)
		out = string(s)
	case view.ColPriority:
		var p task.Priority
		p, err = task.ParsePriority(v)
		out = string(p)
	case view.ColType:
		var t task.Type
		t, err = task.ParseType(v)
		out = string(t)
	default:
		return v, nil
	}
	if err != nil {
		return "", NewError(CodeInvalidArgument, err.Error(), err)
	}
	return out, nil
}

// Package view derives the filtered, sorted, grouped and paginated table
// from a task collection and a view State. Every stage is a pure function:
// inputs are never modified and the same inputs give the same output.
package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sadopc/taskboard/internal/task"
)

// InvalidPageSizeError is returned when the page size is not positive.
type InvalidPageSizeError struct {
	Size int
}

func (e *InvalidPageSizeError) Error() string {
	return fmt.Sprintf("invalid page size %d: must be positive", e.Size)
}

// Group is one bucket of rows sharing the same grouping values.
type Group struct {
	Values      []string
	Rows        []task.Task
	StoryPoints int
	TimeSpent   float64
}

func (g Group) Count() int { return len(g.Rows) }

// Label joins the bucket's grouping values for display.
func (g Group) Label() string {
	parts := make([]string, len(g.Values))
	for i, v := range g.Values {
		if v == "" {
			v = "(none)"
		}
		parts[i] = v
	}
	return strings.Join(parts, " / ")
}

type Result struct {
	// Rows is the full filtered and sorted collection.
	Rows []task.Task
	// Groups holds every bucket when grouping is active.
	Groups []Group
	// Page holds the rows on the current page. With grouping active it is
	// the rows of PageGroups in order.
	Page       []task.Task
	PageGroups []Group
	PageIndex  int
	PageCount  int
	Total      int
}

// Apply runs search, column filters, sort, grouping and pagination in that
// order.
func Apply(tasks []task.Task, columns []Column, s State) (Result, error) {
	if s.PageSize <= 0 {
		return Result{}, &InvalidPageSizeError{Size: s.PageSize}
	}

	rows := SearchFilter(tasks, s.Visible(columns), s.Search)
	rows = ColumnFilter(rows, columns, s.Filters)
	rows = Sort(rows, columns, s.Sort)

	res := Result{Rows: rows, Total: len(rows)}
	if len(s.Group) > 0 {
		res.Groups = GroupRows(rows, columns, s.Group)
		page, idx, count, err := Paginate(res.Groups, s.PageIndex, s.PageSize)
		if err != nil {
			return Result{}, err
		}
		res.PageGroups, res.PageIndex, res.PageCount = page, idx, count
		for _, g := range page {
			res.Page = append(res.Page, g.Rows...)
		}
		return res, nil
	}

	page, idx, count, err := Paginate(rows, s.PageIndex, s.PageSize)
	if err != nil {
		return Result{}, err
	}
	res.Page, res.PageIndex, res.PageCount = page, idx, count
	return res, nil
}

// SearchFilter keeps tasks where any of the given columns' string form
// contains q, ignoring case. Dates match as yyyy-mm-dd or as displayed
// (dd.mm.yyyy). An empty q keeps everything.
func SearchFilter(tasks []task.Task, columns []Column, q string) []task.Task {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return slices.Clone(tasks)
	}
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		for _, c := range columns {
			if strings.Contains(searchText(c.Value(t)), q) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func searchText(v any) string {
	if d, ok := v.(time.Time); ok {
		return d.Format(time.DateOnly) + " " + d.Format("02.01.2006")
	}
	return strings.ToLower(Stringify(v))
}

// ColumnFilter keeps tasks whose value for every filtered column is in that
// column's allowed set. List-valued columns match when any element is in
// the set. Empty sets and non-filterable columns are ignored.
func ColumnFilter(tasks []task.Task, columns []Column, filters map[ColumnID][]string) []task.Task {
	type active struct {
		col     Column
		allowed map[string]bool
	}
	var fs []active
	for _, c := range columns {
		vals := filters[c.ID]
		if !c.Filterable || len(vals) == 0 {
			continue
		}
		allowed := make(map[string]bool, len(vals))
		for _, v := range vals {
			allowed[v] = true
		}
		fs = append(fs, active{c, allowed})
	}
	if len(fs) == 0 {
		return slices.Clone(tasks)
	}

	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		keep := true
		for _, f := range fs {
			if !matches(f.col.Value(t), f.allowed) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}

func matches(v any, allowed map[string]bool) bool {
	if list, ok := v.([]string); ok {
		for _, s := range list {
			if allowed[s] {
				return true
			}
		}
		return false
	}
	return allowed[Stringify(v)]
}

// Sort orders tasks by the sort keys, stably. Absent values come last in
// either direction. Unknown or unsortable columns are skipped.
func Sort(tasks []task.Task, columns []Column, keys []SortKey) []task.Task {
	out := slices.Clone(tasks)
	type resolved struct {
		col  Column
		desc bool
	}
	var rs []resolved
	for _, k := range keys {
		if c, ok := Lookup(columns, k.Column); ok && c.Sortable {
			rs = append(rs, resolved{c, k.Desc})
		}
	}
	if len(rs) == 0 {
		return out
	}
	slices.SortStableFunc(out, func(a, b task.Task) int {
		for _, r := range rs {
			va, vb := r.col.Value(a), r.col.Value(b)
			aAbsent, bAbsent := isAbsent(va), isAbsent(vb)
			switch {
			case aAbsent && bAbsent:
				continue
			case aAbsent:
				return 1
			case bAbsent:
				return -1
			}
			c := compareValues(va, vb)
			if r.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

func compareValues(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(strings.ToLower(x), strings.ToLower(y))
		}
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return cmp.Compare(strings.ToLower(Stringify(a)), strings.ToLower(Stringify(b)))
}

// GroupRows partitions rows into buckets of equal grouping values. Buckets
// appear in order of their first row; rows keep their order inside a bucket.
func GroupRows(rows []task.Task, columns []Column, by []ColumnID) []Group {
	var cols []Column
	for _, id := range by {
		if c, ok := Lookup(columns, id); ok {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		if len(rows) == 0 {
			return nil
		}
		return []Group{newGroup(nil, rows)}
	}

	index := map[string]int{}
	var groups []Group
	for _, t := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = Stringify(c.Value(t))
		}
		k := strings.Join(vals, "\x00")
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Values: vals})
		}
		g := &groups[i]
		g.Rows = append(g.Rows, t)
		g.StoryPoints += t.Points()
		g.TimeSpent += t.TimeSpent
	}
	return groups
}

func newGroup(vals []string, rows []task.Task) Group {
	g := Group{Values: vals, Rows: slices.Clone(rows)}
	for _, t := range rows {
		g.StoryPoints += t.Points()
		g.TimeSpent += t.TimeSpent
	}
	return g
}

// Paginate returns the window of size items at page index, with the index
// clamped to the valid pages. An empty input yields one empty page.
func Paginate[T any](items []T, index, size int) (page []T, clamped, pageCount int, err error) {
	if size <= 0 {
		return nil, 0, 0, &InvalidPageSizeError{Size: size}
	}
	pageCount = max(1, (len(items)+size-1)/size)
	clamped = max(0, min(index, pageCount-1))
	start := clamped * size
	end := min(start+size, len(items))
	if start >= len(items) {
		return []T{}, clamped, pageCount, nil
	}
	return slices.Clone(items[start:end]), clamped, pageCount, nil
}

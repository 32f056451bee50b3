package view

import (
	"maps"
	"slices"
)

const DefaultPageSize = 20

// PageSizeOptions are the page sizes offered by the dashboards. Apply
// accepts any positive size.
var PageSizeOptions = []int{10, 20, 50, 100}

type SortKey struct {
	Column ColumnID `json:"column"`
	Desc   bool     `json:"desc"`
}

// State is the user-chosen view over a task collection. It is a value:
// every builder returns a modified copy and never touches the receiver.
type State struct {
	Search    string                `json:"search,omitempty"`
	Filters   map[ColumnID][]string `json:"filters,omitempty"`
	Sort      []SortKey             `json:"sort,omitempty"`
	Group     []ColumnID            `json:"group,omitempty"`
	Hidden    map[ColumnID]bool     `json:"hidden,omitempty"`
	PageIndex int                   `json:"pageIndex"`
	PageSize  int                   `json:"pageSize"`
}

func DefaultState() State {
	return State{PageSize: DefaultPageSize}
}

func (s State) clone() State {
	c := s
	if s.Filters != nil {
		c.Filters = make(map[ColumnID][]string, len(s.Filters))
		for k, v := range s.Filters {
			c.Filters[k] = slices.Clone(v)
		}
	}
	c.Sort = slices.Clone(s.Sort)
	c.Group = slices.Clone(s.Group)
	c.Hidden = maps.Clone(s.Hidden)
	return c
}

// WithSearch sets the global search text and returns to the first page.
func (s State) WithSearch(q string) State {
	c := s.clone()
	c.Search = q
	c.PageIndex = 0
	return c
}

// ToggleFilter adds value to the column's filter set, or removes it if
// already present. A filter whose set becomes empty is dropped.
func (s State) ToggleFilter(col ColumnID, value string) State {
	c := s.clone()
	if c.Filters == nil {
		c.Filters = make(map[ColumnID][]string)
	}
	set := c.Filters[col]
	if i := slices.Index(set, value); i >= 0 {
		set = slices.Delete(set, i, i+1)
	} else {
		set = append(set, value)
	}
	if len(set) == 0 {
		delete(c.Filters, col)
	} else {
		c.Filters[col] = set
	}
	if len(c.Filters) == 0 {
		c.Filters = nil
	}
	c.PageIndex = 0
	return c
}

// WithFilter replaces the column's filter set. An empty set clears it.
func (s State) WithFilter(col ColumnID, values ...string) State {
	c := s.clone()
	if len(values) == 0 {
		delete(c.Filters, col)
		if len(c.Filters) == 0 {
			c.Filters = nil
		}
	} else {
		if c.Filters == nil {
			c.Filters = make(map[ColumnID][]string)
		}
		c.Filters[col] = slices.Clone(values)
	}
	c.PageIndex = 0
	return c
}

func (s State) ClearFilters() State {
	c := s.clone()
	c.Filters = nil
	c.PageIndex = 0
	return c
}

// WithSort replaces the sort keys.
func (s State) WithSort(keys ...SortKey) State {
	c := s.clone()
	c.Sort = slices.Clone(keys)
	return c
}

// ToggleSort cycles a column through ascending, descending and unsorted,
// making it the only sort key.
func (s State) ToggleSort(col ColumnID) State {
	c := s.clone()
	switch {
	case len(s.Sort) > 0 && s.Sort[0].Column == col && !s.Sort[0].Desc:
		c.Sort = []SortKey{{Column: col, Desc: true}}
	case len(s.Sort) > 0 && s.Sort[0].Column == col:
		c.Sort = nil
	default:
		c.Sort = []SortKey{{Column: col}}
	}
	return c
}

// WithGroup replaces the grouping columns.
func (s State) WithGroup(cols ...ColumnID) State {
	c := s.clone()
	c.Group = slices.Clone(cols)
	c.PageIndex = 0
	return c
}

// ToggleColumn flips a column's visibility.
func (s State) ToggleColumn(col ColumnID) State {
	c := s.clone()
	if c.Hidden[col] {
		delete(c.Hidden, col)
		if len(c.Hidden) == 0 {
			c.Hidden = nil
		}
		return c
	}
	if c.Hidden == nil {
		c.Hidden = make(map[ColumnID]bool)
	}
	c.Hidden[col] = true
	return c
}

func (s State) WithPage(i int) State {
	c := s.clone()
	c.PageIndex = i
	return c
}

// WithPageSize changes the page size and moves to the page containing the
// first row of the current page.
func (s State) WithPageSize(n int) State {
	c := s.clone()
	if n > 0 {
		c.PageIndex = s.PageIndex * s.PageSize / n
	}
	c.PageSize = n
	return c
}

// Visible returns the columns not hidden by the state, in table order.
func (s State) Visible(columns []Column) []Column {
	out := make([]Column, 0, len(columns))
	for _, c := range columns {
		if !s.Hidden[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// SortDirection reports whether col is sorted and in which direction.
func (s State) SortDirection(col ColumnID) (sorted, desc bool) {
	for _, k := range s.Sort {
		if k.Column == col {
			return true, k.Desc
		}
	}
	return false, false
}

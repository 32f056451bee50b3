package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

const (
	DefaultPrefix  = "jira-statistics"
	ArraySeparator = "; "
	Quote          = `"`

	exportDateLayout  = "2006-01-02"
	displayDateLayout = "02.01.2006"
	placeholder       = "—"
)

// Column pairs a header label with the value it exports.
type Column struct {
	Label string
	Value func(task.Task) any
}

// ColumnsFor converts table columns into export columns, keeping order.
func ColumnsFor(cols []view.Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{Label: c.Label, Value: c.Value}
	}
	return out
}

// DelimitedText renders rows as comma-delimited text: a header line of
// labels, then one line per row. String cells are wrapped in double quotes
// but embedded commas and quotes are not escaped.
func DelimitedText(rows []task.Task, cols []Column) string {
	lines := make([]string, 0, len(rows)+1)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	lines = append(lines, strings.Join(header, ","))

	cells := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			cells[i] = FormatCell(c.Value(r))
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

// FormatCell applies the export rules to one value.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(x, ArraySeparator)
	case time.Time:
		return x.Format(exportDateLayout)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(exportDateLayout)
	case *int:
		if x == nil {
			return ""
		}
		return strconv.Itoa(*x)
	case string:
		return Quote + x + Quote
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// FormatDisplayDate renders a date as dd.MM.yyyy, or a dash when absent.
func FormatDisplayDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return placeholder
	}
	return t.Format(displayDateLayout)
}

// Filename suggests <prefix>-<YYYY-MM-DD>.<ext> for an export made at now.
func Filename(prefix, ext string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s-%s.%s", prefix, now.Format(exportDateLayout), strings.TrimPrefix(ext, "."))
}

// Package export serializes task views and statistics for download or
// archival, and hands the result to a storage sink.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/taskboard/internal/stats"
	"github.com/sadopc/taskboard/internal/storage"
	"github.com/sadopc/taskboard/internal/task"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPDF  Format = "pdf"
)

var Formats = []Format{FormatCSV, FormatJSON, FormatYAML, FormatPDF}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatJSON, FormatYAML, FormatPDF:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Request is everything needed to render one export. Rows are the view's
// current filtered and sorted rows; the PDF report summarizes All.
type Request struct {
	Format  Format
	Rows    []task.Task
	Columns []Column
	All     []task.Task
	Demo    bool
	Now     time.Time
}

// Render produces the export bytes for req.
func Render(req Request) ([]byte, error) {
	switch req.Format {
	case FormatCSV:
		return []byte(DelimitedText(req.Rows, req.Columns)), nil
	case FormatJSON:
		return JSON(req.Rows, req.Now)
	case FormatYAML:
		return YAML(req.Rows)
	case FormatPDF:
		all := req.All
		if all == nil {
			all = req.Rows
		}
		return PDF(Report{GeneratedAt: req.Now, Demo: req.Demo, Summary: stats.Summarize(all)})
	default:
		return nil, fmt.Errorf("unknown export format %q", req.Format)
	}
}

// Write stores data under name in the sink.
func Write(ctx context.Context, sink storage.Storage, name string, data []byte) error {
	if err := sink.Write(ctx, name, data); err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	return nil
}

// Save renders req and writes it under the suggested filename, returning
// that filename.
func Save(ctx context.Context, sink storage.Storage, prefix string, req Request) (string, error) {
	data, err := Render(req)
	if err != nil {
		return "", err
	}
	name := Filename(prefix, string(req.Format), req.Now)
	if err := Write(ctx, sink, name, data); err != nil {
		return "", err
	}
	return name, nil
}

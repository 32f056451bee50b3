package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/taskboard/internal/storage"
	"github.com/sadopc/taskboard/internal/task"
	"github.com/sadopc/taskboard/internal/view"
)

func sampleTasks() []task.Task {
	created := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	resolved := time.Date(2024, 3, 12, 17, 0, 0, 0, time.UTC)
	sp := 5
	return []task.Task{
		{
			ID:            "01HRQ0000000000000000000A1",
			Key:           "TASK-03-001",
			Title:         "Add form validation",
			Status:        task.StatusDone,
			Priority:      task.PriorityHigh,
			Type:          task.TypeStory,
			Assignee:      "Anna Davis",
			Reporter:      "Tech Lead",
			CreatedDate:   created,
			ResolvedDate:  &resolved,
			StoryPoints:   &sp,
			TimeSpent:     9,
			TimeEstimated: 8,
			Month:         "March 2024",
			Sprint:        "Sprint 2",
			Labels:        []string{"frontend", "api"},
			Components:    []string{"Dashboard"},
		},
		{
			ID:            "01HRQ0000000000000000000A2",
			Key:           "TASK-03-002",
			Title:         "Fix caching bug",
			Status:        task.StatusToDo,
			Priority:      task.PriorityLow,
			Type:          task.TypeBug,
			Assignee:      "Ivan Moore",
			Reporter:      "Scrum Master",
			CreatedDate:   created.Add(24 * time.Hour),
			TimeEstimated: 12,
			Month:         "March 2024",
			Sprint:        "Sprint 3",
			Labels:        []string{"backend"},
			Components:    []string{"API Gateway", "Reports"},
		},
	}
}

// ============================================================
// Delimited text
// ============================================================

func TestDelimitedTextLabelsCell(t *testing.T) {
	cols := []Column{
		{Label: "Key", Value: func(t task.Task) any { return t.Key }},
		{Label: "Labels", Value: func(t task.Task) any { return t.Labels }},
	}
	out := DelimitedText(sampleTasks(), cols)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), out)
	}
	if lines[0] != "Key,Labels" {
		t.Fatalf("header: %q", lines[0])
	}
	if lines[1] != `"TASK-03-001",frontend; api` {
		t.Fatalf("row 1: %q", lines[1])
	}
	if !strings.Contains(out, "frontend; api") {
		t.Fatal("expected joined labels cell")
	}
}

func TestDelimitedTextDefaultColumns(t *testing.T) {
	out := DelimitedText(sampleTasks(), ColumnsFor(view.DefaultColumns()))
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[0], "Key,Title,Status,Priority,Type,Assignee,Story Points") {
		t.Fatalf("header: %q", lines[0])
	}
	row := lines[2]
	// absent story points and resolved date render empty
	if !strings.Contains(row, `"Ivan Moore",,0,2024-03-06,,"March 2024"`) {
		t.Fatalf("row 2: %q", row)
	}
	if !strings.Contains(lines[1], "2024-03-05,2024-03-12") {
		t.Fatalf("dates not in yyyy-MM-dd: %q", lines[1])
	}
	// time progress is exported as a rounded percentage of the estimate
	if !strings.Contains(lines[0], "Story Points,Time Progress (%),Created") {
		t.Fatalf("header: %q", lines[0])
	}
	if !strings.Contains(lines[1], `"Anna Davis",5,113,2024-03-05`) {
		t.Fatalf("row 1: %q", lines[1])
	}
}

func TestDelimitedTextDoesNotEscape(t *testing.T) {
	tk := sampleTasks()[0]
	tk.Title = `Say "hi", then leave`
	cols := []Column{{Label: "Title", Value: func(t task.Task) any { return t.Title }}}
	out := DelimitedText([]task.Task{tk}, cols)
	if out != "Title\n\"Say \"hi\", then leave\"" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDelimitedTextEmpty(t *testing.T) {
	cols := []Column{{Label: "Key", Value: func(t task.Task) any { return t.Key }}}
	if out := DelimitedText(nil, cols); out != "Key" {
		t.Fatalf("expected header only, got %q", out)
	}
}

func TestFormatCell(t *testing.T) {
	n := 3
	ts := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{(*int)(nil), ""},
		{&n, "3"},
		{7, "7"},
		{12.5, "12.5"},
		{"x", `"x"`},
		{[]string{}, ""},
		{[]string{"a"}, "a"},
		{ts, "2024-11-02"},
		{&ts, "2024-11-02"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := FormatCell(c.in); got != c.want {
			t.Fatalf("FormatCell(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

// ============================================================
// Dates and filenames
// ============================================================

func TestFormatDisplayDate(t *testing.T) {
	d := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	if got := FormatDisplayDate(&d); got != "09.01.2024" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDisplayDate(nil); got != "—" {
		t.Fatalf("absent date: %q", got)
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 7, 4, 15, 0, 0, 0, time.UTC)
	if got := Filename("", "csv", now); got != "jira-statistics-2024-07-04.csv" {
		t.Fatalf("got %q", got)
	}
	if got := Filename("tasks", ".pdf", now); got != "tasks-2024-07-04.pdf" {
		t.Fatalf("got %q", got)
	}
}

// ============================================================
// JSON / YAML / PDF
// ============================================================

func TestJSONEnvelope(t *testing.T) {
	now := time.Date(2024, 7, 4, 15, 0, 0, 0, time.UTC)
	data, err := JSON(sampleTasks(), now)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		ExportedAt string           `json:"exportedAt"`
		Count      int              `json:"count"`
		Tasks      []map[string]any `json:"tasks"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ExportedAt != "2024-07-04T15:00:00Z" || got.Count != 2 || len(got.Tasks) != 2 {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if got.Tasks[1]["storyPoints"] != nil || got.Tasks[0]["storyPoints"].(float64) != 5 {
		t.Fatalf("story points: %v / %v", got.Tasks[0]["storyPoints"], got.Tasks[1]["storyPoints"])
	}

	empty, err := JSON(nil, now)
	if err != nil || !strings.Contains(string(empty), `"tasks": []`) {
		t.Fatalf("empty export: %s, %v", empty, err)
	}
}

func TestYAMLLoadsBack(t *testing.T) {
	in := sampleTasks()
	data, err := YAML(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(out) != 2 || out[0].Key != in[0].Key || out[1].StoryPoints != nil {
		t.Fatalf("unexpected tasks %+v", out)
	}
	if out[0].ResolvedDate == nil || !out[0].ResolvedDate.Equal(*in[0].ResolvedDate) {
		t.Fatalf("resolved date lost: %v", out[0].ResolvedDate)
	}
}

func TestParseYAMLValidates(t *testing.T) {
	bad := []byte("tasks:\n  - key: TASK-01-001\n    title: \"\"\n")
	if _, err := ParseYAML(bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPDFRenders(t *testing.T) {
	data, err := Render(Request{Format: FormatPDF, Rows: sampleTasks(), Now: time.Now(), Demo: true})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", data[:min(8, len(data))])
	}
}

// ============================================================
// Sink
// ============================================================

func TestSaveWritesToSink(t *testing.T) {
	ctx := context.Background()
	sink, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	name, err := Save(ctx, sink, "", Request{
		Format:  FormatCSV,
		Rows:    sampleTasks(),
		Columns: ColumnsFor(view.DefaultColumns()),
		Now:     now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if name != "jira-statistics-2024-07-04.csv" {
		t.Fatalf("name %q", name)
	}
	data, err := sink.Read(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Key,Title") {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"CSV": FormatCSV, "yml": FormatYAML, " pdf ": FormatPDF} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Fatal("expected error")
	}
}

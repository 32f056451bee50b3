package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/sadopc/taskboard/internal/stats"
)

// Report is the statistics summary rendered by PDF.
type Report struct {
	Title       string
	GeneratedAt time.Time
	Demo        bool
	Summary     stats.Summary
}

// PDF renders the report: status distribution, assignee productivity and
// the monthly rollup.
func PDF(r Report) ([]byte, error) {
	title := r.Title
	if title == "" {
		title = "Task Statistics"
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	sub := fmt.Sprintf("Generated %s, %d tasks", r.GeneratedAt.Format(displayDateLayout), r.Summary.Total)
	if r.Demo {
		sub += " (demo data)"
	}
	pdf.Cell(0, 6, sub)
	pdf.Ln(10)

	section(pdf, "Status distribution")
	tableHeader(pdf, []string{"Status", "Tasks", "Share"}, []float64{60, 30, 30})
	total := max(1, r.Summary.Distribution.Total())
	for _, c := range r.Summary.Distribution {
		tableRow(pdf, []string{
			string(c.Status),
			fmt.Sprintf("%d", c.Count),
			fmt.Sprintf("%.1f%%", float64(c.Count)/float64(total)*100),
		}, []float64{60, 30, 30})
	}
	pdf.Ln(6)

	section(pdf, "Assignee productivity")
	widths := []float64{60, 35, 35, 30, 30}
	tableHeader(pdf, []string{"Assignee", "Done tasks", "Done points", "Tasks %", "Points %"}, widths)
	for _, p := range r.Summary.Productivity {
		tableRow(pdf, []string{
			p.Assignee,
			fmt.Sprintf("%d", p.CompletedTasks),
			fmt.Sprintf("%d", p.CompletedStoryPoints),
			fmt.Sprintf("%.0f", p.TasksPercent),
			fmt.Sprintf("%.0f", p.PointsPercent),
		}, widths)
	}
	pdf.Ln(6)

	section(pdf, "Monthly")
	widths = []float64{34, 16, 16, 22, 18, 18, 22, 20, 24}
	tableHeader(pdf, []string{"Month", "Total", "Done", "In Progress", "Blocked", "Points", "Done pts", "Hours", "Avg days"}, widths)
	for _, m := range r.Summary.Monthly {
		tableRow(pdf, []string{
			m.Month,
			fmt.Sprintf("%d", m.TotalTasks),
			fmt.Sprintf("%d", m.CompletedTasks),
			fmt.Sprintf("%d", m.InProgressTasks),
			fmt.Sprintf("%d", m.BlockedTasks),
			fmt.Sprintf("%d", m.TotalStoryPoints),
			fmt.Sprintf("%d", m.CompletedStoryPoints),
			fmt.Sprintf("%.0f", m.TotalTimeSpent),
			fmt.Sprintf("%.1f", m.AverageResolutionDays),
		}, widths)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, name string) {
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(0, 8, name)
	pdf.Ln(9)
}

func tableHeader(pdf *fpdf.Fpdf, cols []string, widths []float64) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 240)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, c, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

func tableRow(pdf *fpdf.Fpdf, cells []string, widths []float64) {
	pdf.SetFont("Arial", "", 9)
	for i, c := range cells {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

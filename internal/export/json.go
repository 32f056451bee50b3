package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/taskboard/internal/task"
)

type jsonExport struct {
	ExportedAt string      `json:"exportedAt"`
	Count      int         `json:"count"`
	Tasks      []task.Task `json:"tasks"`
}

// JSON renders tasks in an envelope stamped with the export time.
func JSON(tasks []task.Task, now time.Time) ([]byte, error) {
	if tasks == nil {
		tasks = []task.Task{}
	}
	data, err := json.MarshalIndent(jsonExport{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Count:      len(tasks),
		Tasks:      tasks,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

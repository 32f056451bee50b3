package export

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/taskboard/internal/task"
)

type yamlDataset struct {
	Count int         `yaml:"count"`
	Tasks []task.Task `yaml:"tasks"`
}

// YAML renders a dataset that ParseYAML can load back.
func YAML(tasks []task.Task) ([]byte, error) {
	data, err := yaml.Marshal(yamlDataset{Count: len(tasks), Tasks: tasks})
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return data, nil
}

// ParseYAML loads a dataset written by YAML and validates every task.
func ParseYAML(data []byte) ([]task.Task, error) {
	var ds yamlDataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	for i, t := range ds.Tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %d (%s): %w", i, t.Key, err)
		}
	}
	return ds.Tasks, nil
}

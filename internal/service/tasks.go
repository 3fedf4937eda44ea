package service

import (
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"

	"github.com/taskkit/bundletask/internal/config"
)

// Tasks maps task names to their configurations.
type Tasks map[string]config.Config

type tasksFile struct {
	Tasks map[string]map[string]any `json:"tasks"`
}

// LoadTasks reads one or more tasks files or directories of them:
//
//	tasks:
//	  app:
//	    entry: ./src/app.js
//	    output:
//	      path: ./dist
//	  admin:
//	    config: admin.yaml
//
// The files are merged in order; two files giving different values for the
// same option of the same task is an error. Every task configuration is
// validated against the configuration schema.
func LoadTasks(filenames ...string) (Tasks, error) {
	bs, err := config.MergeFiles(filenames, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return ParseTasks(bs)
}

func ParseTasks(bs []byte) (Tasks, error) {
	var f tasksFile
	if err := yaml.Unmarshal(bs, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks defined")
	}

	tasks := make(Tasks, len(f.Tasks))
	for name, m := range f.Tasks {
		cfg := config.Config(m)
		if cfg == nil {
			cfg = config.Config{}
		}
		if err := config.ValidateConfig(cfg); err != nil {
			return nil, fmt.Errorf("task %q: %w", name, err)
		}
		tasks[name] = cfg
	}
	return tasks, nil
}

// Names returns the task names in sorted order.
func (t Tasks) Names() []string {
	return slices.Sorted(maps.Keys(t))
}

// Select returns the named subset of t. No names selects all tasks.
func (t Tasks) Select(names ...string) (Tasks, error) {
	if len(names) == 0 {
		return t, nil
	}

	out := make(Tasks, len(names))
	for _, name := range names {
		cfg, ok := t[name]
		if !ok {
			return nil, fmt.Errorf("unknown task %q (available: %v)", name, t.Names())
		}
		out[name] = cfg
	}
	return out, nil
}

package task

import "fmt"

// Logger is the part of a task runner's logger the task reports through.
type Logger interface {
	Infof(format string, args ...any)
}

// Errors constructs the error values a task runner understands.
type Errors interface {
	NewTaskError(message string) error
}

// Context is what a task runner provides to a task.
type Context struct {
	Log    Logger
	Errors Errors
}

// NewContext returns a Context logging to log and constructing TaskError
// values.
func NewContext(log Logger) *Context {
	return &Context{Log: log, Errors: taskErrors{}}
}

// TaskError is a failure attributed to a task rather than to the runner.
type TaskError struct {
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task failed: %s", e.Message)
}

type taskErrors struct{}

func (taskErrors) NewTaskError(message string) error {
	return &TaskError{Message: message}
}

// ConfigError reports that the external configuration named by the config
// option could not be loaded.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

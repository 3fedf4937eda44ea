package service

import (
	"cmp"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/taskkit/bundletask/internal/builder"
	"github.com/taskkit/bundletask/internal/config"
	"github.com/taskkit/bundletask/internal/logging"
	"github.com/taskkit/bundletask/internal/progress"
	"github.com/taskkit/bundletask/pkg/bundler"
	"github.com/taskkit/bundletask/pkg/task"
)

var (
	defaultInterval = 30 * time.Second
	errorInterval   = 30 * time.Second
)

// TaskWorker runs one named bundle task. It is scheduled on a pool: Execute
// performs a run and returns when the next one is due, or the zero time once
// the worker is done.
type TaskWorker struct {
	name       string
	cfg        config.Config
	task       *task.Task
	log        *logging.Logger
	bar        *progress.Bar
	singleShot bool
	watch      bool
	interval   time.Duration
	done       chan struct{}

	mu     sync.Mutex
	status Status
}

func NewTaskWorker(name string, cfg config.Config, logger *logging.Logger, bar *progress.Bar) *TaskWorker {
	w := &TaskWorker{
		name:     name,
		cfg:      cfg,
		log:      logger,
		bar:      bar,
		done:     make(chan struct{}),
		interval: defaultInterval,
	}
	w.task = task.New(func(cfg task.Config) bundler.Compiler {
		return builder.New(cfg).WithName(name).WithLogger(logger)
	})
	return w
}

// WithTask replaces the esbuild-backed task.
func (w *TaskWorker) WithTask(t *task.Task) *TaskWorker {
	w.task = t
	return w
}

func (w *TaskWorker) WithSingleShot(singleShot bool) *TaskWorker {
	w.singleShot = singleShot
	return w
}

// WithWatch forces the task into watch mode, whatever its configuration says.
func (w *TaskWorker) WithWatch(watch bool) *TaskWorker {
	w.watch = watch
	return w
}

func (w *TaskWorker) WithInterval(d time.Duration) *TaskWorker {
	w.interval = cmp.Or(d, defaultInterval)
	return w
}

func (w *TaskWorker) Name() string {
	return w.name
}

func (w *TaskWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Done returns a channel that is closed once the worker has left the pool.
func (w *TaskWorker) Done() <-chan struct{} {
	return w.done
}

// Execute runs the task once. A watching task is started once and then
// leaves the pool; esbuild drives its rebuilds until ctx is cancelled. Watch
// mode is decided by the effective configuration, so a watch flag from the
// external configuration file counts too.
func (w *TaskWorker) Execute(ctx context.Context) time.Time {
	defer w.bar.Add(1)

	cfg := w.cfg
	if w.watch {
		cfg = cfg.Clone()
		if cfg == nil {
			cfg = config.Config{}
		}
		cfg[config.KeyWatch] = true
	}

	state := BuildStatePending
	var buildErr error

	mode, err := w.task.Start(ctx, task.NewContext(w.log), cfg, func(err error, _ task.Stats) {
		buildErr = err
		switch {
		case errors.Is(err, task.ErrCompilationFailed):
			state = BuildStateCompileFailed
		case err != nil:
			state = BuildStateBuildFailed
		default:
			state = BuildStateSuccess
		}
	})

	var cerr *task.ConfigError
	switch {
	case errors.As(err, &cerr):
		w.log.Warnf("failed to load configuration %q for task %q: %v", cerr.Path, w.name, err)
		return w.report(BuildStateConfigFailed, err)
	case err != nil:
		w.log.Warnf("failed to start task %q: %v", w.name, err)
		return w.report(BuildStateBuildFailed, err)
	case mode == task.ModeWatch:
		w.log.Infof("Task %q is watching for changes.", w.name)
		w.setStatus(BuildStateWatching, nil)
		return w.die()
	}

	if buildErr != nil {
		w.log.Warnf("task %q failed: %v", w.name, buildErr)
	} else {
		w.log.Debugf("Task %q finished.", w.name)
	}
	return w.report(state, buildErr)
}

func (w *TaskWorker) report(state BuildState, err error) time.Time {
	w.setStatus(state, err)

	if w.singleShot {
		return w.die()
	}

	interval := w.interval
	if err != nil {
		interval = min(interval, errorInterval)
	}
	return time.Now().Add(interval)
}

func (w *TaskWorker) setStatus(state BuildState, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.status = Status{State: state}
	if err != nil {
		w.status.Message = err.Error()
	}
}

func (w *TaskWorker) die() time.Time {
	close(w.done)

	var zero time.Time
	return zero
}

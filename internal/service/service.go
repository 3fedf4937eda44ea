package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/taskkit/bundletask/internal/logging"
	"github.com/taskkit/bundletask/internal/pool"
	"github.com/taskkit/bundletask/internal/progress"
	"github.com/taskkit/bundletask/pkg/task"
)

// Service runs a set of bundle tasks on a worker pool.
//
// By default every task runs once and Run returns when all of them are done,
// unless a task's own configuration asks for watch mode; then Run keeps
// the watch alive until its context is cancelled.
// In watch mode each task is started in watch mode and Run blocks until its
// context is cancelled. With an interval, tasks are rebuilt periodically
// until the context is cancelled.
type Service struct {
	tasks       Tasks
	parallelism int
	watch       bool
	interval    time.Duration
	log         *logging.Logger
	out         io.Writer
	showBar     bool
	newTask     func(name string) *task.Task

	mu      sync.Mutex
	pool    *pool.Pool
	workers []*TaskWorker
}

func New() *Service {
	return &Service{parallelism: 4, log: logging.NewNopLogger(), out: io.Discard}
}

func (s *Service) WithTasks(tasks Tasks) *Service {
	s.tasks = tasks
	return s
}

func (s *Service) WithParallelism(n int) *Service {
	s.parallelism = max(n, 1)
	return s
}

func (s *Service) WithWatch(watch bool) *Service {
	s.watch = watch
	return s
}

// WithInterval makes tasks rebuild every d. Zero runs every task once.
func (s *Service) WithInterval(d time.Duration) *Service {
	s.interval = d
	return s
}

func (s *Service) WithLogger(log *logging.Logger) *Service {
	s.log = log
	return s
}

// WithProgress draws a progress bar to w while one-shot tasks run.
func (s *Service) WithProgress(w io.Writer, visible bool) *Service {
	s.out, s.showBar = w, visible
	return s
}

// WithTaskFactory overrides the task run for each name. It is meant for
// tests; by default tasks build with esbuild.
func (s *Service) WithTaskFactory(fn func(name string) *task.Task) *Service {
	s.newTask = fn
	return s
}

// Run starts all tasks. It returns an error listing the failed tasks if any
// one-shot run failed.
func (s *Service) Run(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return fmt.Errorf("no tasks to run")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	singleShot := !s.watch && s.interval == 0

	var bar *progress.Bar
	if singleShot {
		bar = progress.New(s.out, len(s.tasks), "Building bundles", s.showBar)
		defer bar.Finish()
	}

	var workers []*TaskWorker
	for _, name := range s.tasks.Names() {
		w := NewTaskWorker(name, s.tasks[name], s.log.With("task", name), bar).
			WithSingleShot(singleShot).
			WithWatch(s.watch).
			WithInterval(s.interval)
		if s.newTask != nil {
			w = w.WithTask(s.newTask(name))
		}
		workers = append(workers, w)
	}

	p := pool.New(ctx, s.parallelism)
	s.mu.Lock()
	s.pool, s.workers = p, workers
	s.mu.Unlock()

	for _, w := range workers {
		if err := p.Add(w.Name(), w.Execute); err != nil {
			return err
		}
	}

	if !singleShot {
		<-ctx.Done()
		return nil
	}

	for _, w := range workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := failures(workers)
	if !watching(workers) {
		return err
	}

	// Tasks configured to watch keep running until the caller stops the
	// service.
	bar.Finish()
	if err != nil {
		s.log.Warnf("%v", err)
	}
	s.log.Infof("Watching for changes, press Ctrl+C to stop.")
	<-ctx.Done()
	return err
}

func watching(workers []*TaskWorker) bool {
	for _, w := range workers {
		if w.Status().State == BuildStateWatching {
			return true
		}
	}
	return false
}

// Trigger rebuilds all periodically running tasks now.
func (s *Service) Trigger() error {
	s.mu.Lock()
	p, workers := s.pool, s.workers
	s.mu.Unlock()

	if p == nil {
		return fmt.Errorf("service not running")
	}
	for _, w := range workers {
		if err := p.Trigger(w.Name()); err != nil {
			s.log.Debugf("not triggering task %q: %v", w.Name(), err)
		}
	}
	return nil
}

// Statuses returns the latest status of every task.
func (s *Service) Statuses() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Status, len(s.workers))
	for _, w := range s.workers {
		out[w.Name()] = w.Status()
	}
	return out
}

func failures(workers []*TaskWorker) error {
	var failed []string
	for _, w := range workers {
		if st := w.Status(); st.State.Failed() {
			failed = append(failed, fmt.Sprintf("%s (%s)", w.Name(), strings.ToLower(st.State.String())))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d task(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

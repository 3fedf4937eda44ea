package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/taskkit/bundletask/internal/builder"
	"github.com/taskkit/bundletask/internal/config"
	"github.com/taskkit/bundletask/pkg/bundler"
)

// Description identifies the task in a runner's task registry.
const Description = "Compile JavaScript bundles using esbuild"

// ErrCompilationFailed is reported when the bundler ran to completion but its
// stats contain errors.
var ErrCompilationFailed = errors.New("bundle compilation failed")

// Defaults documents the task's options and their default values. Only watch
// and config have a value; everything else is left to the bundler.
var Defaults = config.Defaults

type (
	// Config is a task configuration: option name to value.
	Config = config.Config

	Stats         = bundler.Stats
	RenderOptions = bundler.RenderOptions
)

// Callback receives the final outcome of a one-shot build.
type Callback func(err error, stats Stats)

// Factory creates the bundler for an effective configuration.
type Factory func(cfg Config) bundler.Compiler

// Task executes bundle builds with the bundler returned by its factory.
type Task struct {
	factory Factory
}

var defaultTask = New(nil)

// New returns a task using factory to create bundlers. A nil factory selects
// the esbuild compiler.
func New(factory Factory) *Task {
	if factory == nil {
		factory = func(cfg Config) bundler.Compiler { return builder.New(cfg) }
	}
	return &Task{factory: factory}
}

// Mode is how a task ran its bundler.
type Mode int

const (
	// ModeRun is a single compilation, reported through the callback.
	ModeRun Mode = iota
	// ModeWatch is a watch that lasts until the context is cancelled.
	ModeWatch
)

func (m Mode) String() string {
	if m == ModeWatch {
		return "watch"
	}
	return "run"
}

// Execute runs a bundle build with the default task.
func Execute(ctx context.Context, tc *Context, cfg Config, callback Callback) error {
	return defaultTask.Execute(ctx, tc, cfg, callback)
}

// Start runs a bundle build with the default task and reports its mode.
func Start(ctx context.Context, tc *Context, cfg Config, callback Callback) (Mode, error) {
	return defaultTask.Start(ctx, tc, cfg, callback)
}

// Execute resolves the effective configuration and runs the bundler with it.
//
// In one-shot mode callback is called exactly once, and Execute returns nil
// once it has. In watch mode callback is never called; results are only
// logged, and Execute returns after watching has started. The returned error
// reports failures that happen before the bundler produced any outcome:
// loading the external configuration, or starting a watch.
func (t *Task) Execute(ctx context.Context, tc *Context, cfg Config, callback Callback) error {
	_, err := t.Start(ctx, tc, cfg, callback)
	return err
}

// Start is Execute, and also returns the mode the effective configuration
// selected. The watch option may come from the external configuration file,
// so hosts that need to keep a watch alive must look at the returned mode
// rather than at cfg.
func (t *Task) Start(ctx context.Context, tc *Context, cfg Config, callback Callback) (Mode, error) {
	effective, err := config.Effective(cfg)
	if err != nil {
		return ModeRun, &ConfigError{Path: configPath(cfg), Err: err}
	}

	compiler := t.factory(effective)

	if effective.Watch() {
		return ModeWatch, compiler.Watch(ctx, func(_ error, stats bundler.Stats) {
			tc.report(stats)
		})
	}

	compiler.Run(ctx, func(err error, stats bundler.Stats) {
		tc.report(stats)

		if err == nil && stats != nil && stats.HasErrors() {
			err = ErrCompilationFailed
		}
		if callback != nil {
			callback(err, stats)
		}
	})
	return ModeRun, nil
}

func configPath(cfg Config) string {
	if v, ok := cfg[config.KeyConfig]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func (tc *Context) report(stats bundler.Stats) {
	if stats == nil || tc == nil || tc.Log == nil {
		return
	}
	tc.Log.Infof("Bundle compilation results:\n\n%s\n", stats.Render(bundler.RenderOptions{Colors: !color.NoColor}))
}

package builder

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/taskkit/bundletask/internal/config"
	"github.com/taskkit/bundletask/internal/logging"
	"github.com/taskkit/bundletask/internal/metrics"
	"github.com/taskkit/bundletask/pkg/bundler"
)

// Compiler builds bundles with esbuild from a task configuration. The
// configuration is translated when a compilation starts, so invalid options
// surface as the error of Run or Watch.
type Compiler struct {
	cfg  config.Config
	name string
	log  *logging.Logger
}

var _ bundler.Compiler = (*Compiler)(nil)

func New(cfg config.Config) *Compiler {
	return &Compiler{cfg: cfg, name: "default"}
}

// WithName sets the task name used to label metrics and log lines.
func (c *Compiler) WithName(name string) *Compiler {
	c.name = name
	return c
}

func (c *Compiler) WithLogger(log *logging.Logger) *Compiler {
	c.log = log
	return c
}

// Run performs one compilation. Cancelling ctx aborts the compilation and
// reports ctx.Err().
func (c *Compiler) Run(ctx context.Context, fn bundler.Handler) {
	startTime := time.Now()
	metrics.BundleBuildStarted(c.name, startTime)

	opts, err := c.buildOptions()
	if err != nil {
		metrics.BundleBuildFailed(c.name, metrics.OutcomeOptions, startTime)
		fn(err, nil)
		return
	}

	bctx, cerr := api.Context(opts.build)
	if cerr != nil {
		metrics.BundleBuildFailed(c.name, metrics.OutcomeOptions, startTime)
		fn(contextError(cerr), nil)
		return
	}
	defer bctx.Dispose()

	stop := context.AfterFunc(ctx, bctx.Cancel)
	defer stop()

	result := bctx.Rebuild()
	if err := ctx.Err(); err != nil {
		metrics.BundleBuildFailed(c.name, metrics.OutcomeCanceled, startTime)
		fn(err, nil)
		return
	}

	fn(nil, c.record(result, startTime, opts.analyze))
}

// Watch starts esbuild in watch mode. fn receives the result of the initial
// build and of every rebuild; esbuild never runs two builds of the same
// context at once, so fn is not called concurrently.
func (c *Compiler) Watch(ctx context.Context, fn bundler.Handler) error {
	opts, err := c.buildOptions()
	if err != nil {
		metrics.BundleBuildFailed(c.name, metrics.OutcomeOptions, time.Time{})
		return err
	}

	var started atomic.Int64
	opts.build.Plugins = append(opts.build.Plugins, api.Plugin{
		Name: "bundletask-report",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				now := time.Now()
				started.Store(now.UnixNano())
				metrics.BundleBuildStarted(c.name, now)
				return api.OnStartResult{}, nil
			})
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				fn(nil, c.record(*result, time.Unix(0, started.Load()), opts.analyze))
				return api.OnEndResult{}, nil
			})
		},
	})

	bctx, cerr := api.Context(opts.build)
	if cerr != nil {
		metrics.BundleBuildFailed(c.name, metrics.OutcomeOptions, time.Time{})
		return contextError(cerr)
	}

	if err := bctx.Watch(api.WatchOptions{}); err != nil {
		bctx.Dispose()
		return err
	}
	metrics.BundleWatchStarted(c.name)
	c.log.Debugf("Watching bundle %q for changes.", c.name)

	context.AfterFunc(ctx, func() {
		bctx.Dispose()
		metrics.BundleWatchStopped(c.name)
		c.log.Debugf("Stopped watching bundle %q.", c.name)
	})
	return nil
}

func (c *Compiler) record(result api.BuildResult, startTime time.Time, analyze bool) *Stats {
	stats := newStats(result, time.Since(startTime), analyze)
	if stats.HasErrors() {
		metrics.BundleBuildFailed(c.name, metrics.OutcomeCompile, startTime)
		c.log.Debugf("Bundle %q failed to compile with %d error(s).", c.name, len(result.Errors))
	} else {
		metrics.BundleBuildSucceeded(c.name, startTime, stats.OutputBytes())
		c.log.Debugf("Bundle %q built.", c.name)
	}
	return stats
}

func contextError(cerr *api.ContextError) error {
	msgs := api.FormatMessages(cerr.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	for i := range msgs {
		msgs[i] = strings.TrimSpace(msgs[i])
	}
	return errors.New("invalid bundle options: " + strings.Join(msgs, "; "))
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskkit/bundletask/internal/logging"
	"github.com/taskkit/bundletask/internal/service"
)

type runParams struct {
	tasksFiles  []string
	parallelism int
	watch       bool
	interval    time.Duration
	noProgress  bool
}

func newRunCommand(global *globalParams) *cobra.Command {
	params := runParams{tasksFiles: []string{"tasks.yaml"}, parallelism: 4}

	run := &cobra.Command{
		Use:   "run [task...]",
		Short: "Run bundle tasks from a tasks file",
		Long: `Run the bundle tasks defined in a tasks file. Without task names all
tasks run.

By default every task is built once and the command fails if any of them
failed. With --watch every task keeps watching its inputs. With --interval
tasks are rebuilt periodically, and SIGHUP rebuilds all of them at once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := global.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			tasks, err := service.LoadTasks(params.tasksFiles...)
			if err != nil {
				return err
			}
			tasks, err = tasks.Select(args...)
			if err != nil {
				return err
			}

			svc := service.New().
				WithTasks(tasks).
				WithParallelism(params.parallelism).
				WithWatch(params.watch).
				WithInterval(params.interval).
				WithLogger(log).
				WithProgress(cmd.ErrOrStderr(), !params.noProgress && !color.NoColor)

			if params.interval > 0 {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, syscall.SIGHUP)
				defer signal.Stop(hup)

				go triggerOnSignal(cmd.Context(), hup, svc, log)
			}

			return svc.Run(cmd.Context())
		},
	}

	run.Flags().StringArrayVarP(&params.tasksFiles, "file", "f", params.tasksFiles, "tasks file or directory (repeatable, merged in order)")
	run.Flags().IntVarP(&params.parallelism, "parallelism", "p", params.parallelism, "number of tasks to build concurrently")
	run.Flags().BoolVarP(&params.watch, "watch", "w", false, "keep watching all tasks for changes")
	run.Flags().DurationVar(&params.interval, "interval", 0, "rebuild all tasks periodically")
	run.Flags().BoolVar(&params.noProgress, "no-progress", false, "do not draw a progress bar")
	run.MarkFlagsMutuallyExclusive("watch", "interval")

	return run
}

type trigger interface {
	Trigger() error
}

// triggerOnSignal rebuilds all tasks whenever a signal arrives on sig. It
// returns when ctx is done.
func triggerOnSignal(ctx context.Context, sig <-chan os.Signal, t trigger, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
		}
		log.Infof("Rebuilding all tasks.")
		if err := t.Trigger(); err != nil {
			log.Warnf("failed to trigger rebuild: %v", err)
		}
	}
}

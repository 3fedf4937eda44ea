// Package cmd implements the bundlectl command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/taskkit/bundletask/internal/logging"
	"github.com/taskkit/bundletask/internal/metrics"
)

var logLevels = map[logging.Level][]string{
	logging.Debug: {"debug"},
	logging.Info:  {"info"},
	logging.Warn:  {"warn", "warning"},
	logging.Error: {"error"},
}

const logLevelEnv = "BUNDLECTL_LOG_LEVEL"

type globalParams struct {
	logLevel    logging.Level
	logFormat   string
	metricsFile string
}

func (p *globalParams) addFlags(fs *pflag.FlagSet) {
	fs.Var(enumflag.New(&p.logLevel, "level", logLevels, enumflag.EnumCaseInsensitive),
		"log-level", "log level (debug, info, warn, error)")
	fs.StringVar(&p.logFormat, "log-format", p.logFormat, "log format (text, json)")
	fs.StringVar(&p.metricsFile, "metrics-file", "", "write build metrics in Prometheus text format to this file after a successful command")
}

// levelFromEnv applies BUNDLECTL_LOG_LEVEL unless --log-level was given.
func (p *globalParams) levelFromEnv(fs *pflag.FlagSet) error {
	env := os.Getenv(logLevelEnv)
	if env == "" || fs.Changed("log-level") {
		return nil
	}
	level, err := logging.ParseLevel(env)
	if err != nil {
		return fmt.Errorf("%s: %w", logLevelEnv, err)
	}
	p.logLevel = level
	return nil
}

func (p *globalParams) logger(w io.Writer) (*logging.Logger, error) {
	format := logging.Format(p.logFormat)
	switch format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return nil, fmt.Errorf("unknown log format %q (use text or json)", p.logFormat)
	}
	return logging.NewLogger(logging.Config{Level: p.logLevel, Format: format, Output: w}), nil
}

// NewRootCommand returns the bundlectl command tree.
func NewRootCommand() *cobra.Command {
	params := &globalParams{logLevel: logging.Info, logFormat: string(logging.FormatText)}

	root := &cobra.Command{
		Use:           "bundlectl",
		Short:         "Build JavaScript bundles with esbuild",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return params.levelFromEnv(cmd.Flags())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if params.metricsFile == "" {
				return nil
			}
			return writeMetrics(params.metricsFile, metrics.Registry)
		},
	}

	params.addFlags(root.PersistentFlags())

	root.AddCommand(
		newBuildCommand(params),
		newRunCommand(params),
		newDefaultsCommand(),
		newTasksCommand(),
		newSchemaCommand(),
	)

	return root
}

func writeMetrics(filename string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(filename, g); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

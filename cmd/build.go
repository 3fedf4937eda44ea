package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/taskkit/bundletask/internal/config"
	"github.com/taskkit/bundletask/pkg/task"
)

type buildParams struct {
	configFile     string
	watch          bool
	entries        []string
	outputPath     string
	outputFilename string
	set            []string
}

func newBuildCommand(global *globalParams) *cobra.Command {
	var params buildParams

	build := &cobra.Command{
		Use:   "build",
		Short: "Build a single bundle",
		Long: `Build a single bundle from command line options.

Options given with --set use dotted paths and YAML values, for example:

  bundlectl build --entry ./src/index.js --output-path dist \
    --set output.libraryTarget=commonjs2 --set 'resolve.extensions=["", ".js", ".jsx"]'

With --config, the named YAML or JSON file is the base configuration and the
command line options are merged on top of it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := global.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			cfg, err := params.taskConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var buildErr error
			mode, err := task.Start(ctx, task.NewContext(log), cfg, func(err error, _ task.Stats) {
				buildErr = err
			})
			if err != nil {
				return err
			}

			if mode == task.ModeWatch {
				log.Infof("Watching for changes, press Ctrl+C to stop.")
				<-ctx.Done()
				return nil
			}
			return buildErr
		},
	}

	build.Flags().StringVarP(&params.configFile, "config", "c", "", "base configuration file (YAML or JSON)")
	build.Flags().BoolVarP(&params.watch, "watch", "w", false, "rebuild whenever an input changes")
	build.Flags().StringSliceVarP(&params.entries, "entry", "e", nil, "entry point path or glob (repeatable)")
	build.Flags().StringVarP(&params.outputPath, "output-path", "o", "", "output directory")
	build.Flags().StringVar(&params.outputFilename, "output-filename", "", "output file name or template such as [name].js")
	build.Flags().StringArrayVar(&params.set, "set", nil, "set an option: path.to.option=value (repeatable)")

	return build
}

func (p *buildParams) taskConfig() (config.Config, error) {
	cfg := config.Config{}

	for _, kv := range p.set {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected path=value", kv)
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", kv, err)
		}
		if err := setPath(cfg, strings.Split(key, "."), v); err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", kv, err)
		}
	}

	if p.configFile != "" {
		cfg[config.KeyConfig] = p.configFile
	}
	if p.watch {
		cfg[config.KeyWatch] = true
	}
	switch len(p.entries) {
	case 0:
	case 1:
		cfg["entry"] = p.entries[0]
	default:
		entries := make([]any, len(p.entries))
		for i := range p.entries {
			entries[i] = p.entries[i]
		}
		cfg["entry"] = entries
	}

	output := map[string]any{}
	if p.outputPath != "" {
		output["path"] = p.outputPath
	}
	if p.outputFilename != "" {
		output["filename"] = p.outputFilename
	}
	if len(output) > 0 {
		cfg = config.Config(config.Merge(cfg, map[string]any{"output": output}))
	}

	return cfg, nil
}

func setPath(m map[string]any, path []string, value any) error {
	for i, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			if _, exists := m[key]; exists {
				return fmt.Errorf("%s is not a mapping", strings.Join(path[:i+1], "."))
			}
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
	return nil
}

// Package task runs a bundle build as a step of a larger task runner.
//
// A task receives a configuration mapping, optionally layers it on top of an
// external configuration file, hands the result to a bundler and reports the
// outcome through the runner's logger and a completion callback.
//
// # Basic Usage
//
//	import "github.com/taskkit/bundletask/pkg/task"
//
//	tc := task.NewContext(log) // anything with Infof
//
//	err := task.Execute(ctx, tc, task.Config{
//	    "entry":  "./src/index.js",
//	    "output": map[string]any{"path": "./dist", "filename": "main.js"},
//	}, func(err error, stats task.Stats) {
//	    if err != nil {
//	        // transport error, or task.ErrCompilationFailed
//	    }
//	})
//
// The callback is called exactly once, after the compilation finished and the
// rendered stats have been logged.
//
// # External Configuration
//
// The "config" option names a YAML or JSON file. Relative paths are resolved
// against the working directory. The file is the base layer and the task
// configuration, without its "config" key, is merged on top:
//
//	# webpack.yaml
//	output:
//	  path: ./dist
//	  filename: bundle.js
//	resolve:
//	  extensions: ["", ".js", ".jsx"]
//
//	task.Execute(ctx, tc, task.Config{
//	    "config": "webpack.yaml",
//	    "entry":  "./src/index.js",
//	    "output": map[string]any{"filename": "app.js"},
//	}, callback)
//
//	// The bundler sees:
//	//   entry: ./src/index.js
//	//   output: {path: ./dist, filename: app.js}
//	//   resolve: {extensions: ["", ".js", ".jsx"]}
//
// Nested mappings are merged key by key; lists and scalars from the task
// configuration replace those of the file. A nil value leaves the file's value
// in place. The "config" key itself never reaches the bundler.
//
// # Watch Mode
//
// With a truthy "watch" option the bundler keeps running and recompiles
// whenever an input changes. Every compilation is logged, but the completion
// callback is never called: a watch has no final result. Execute returns as
// soon as watching has started, and the watch stops when ctx is cancelled.
//
// # Errors
//
// Three kinds of failure are distinguished:
//
//   - Loading the external configuration fails: Execute returns the error and
//     neither the bundler nor the callback is invoked.
//   - The bundler cannot run, for example because of invalid options: the
//     callback receives the error and nil stats.
//   - The bundler ran but reported diagnostics: the callback receives
//     ErrCompilationFailed together with the stats. The diagnostics themselves
//     are only available from the stats.
//
// # Custom Bundlers
//
// The default bundler is esbuild. Use New with a Factory to substitute
// another implementation of bundler.Compiler, for instance in tests:
//
//	t := task.New(func(cfg task.Config) bundler.Compiler {
//	    return myCompiler{cfg: cfg}
//	})
package task

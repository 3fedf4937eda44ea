package builder

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/taskkit/bundletask/internal/config"
	taskfs "github.com/taskkit/bundletask/internal/fs"
)

type buildOptions struct {
	build   api.BuildOptions
	analyze bool // render the metafile analysis with the stats
}

func (c *Compiler) buildOptions() (*buildOptions, error) {
	opts, unused, err := config.Decode(c.cfg)
	if err != nil {
		return nil, err
	}
	for _, key := range unused {
		c.log.Debugf("Bundle %q: ignoring unknown option %q.", c.name, key)
	}

	result, ignored, err := translate(opts)
	if err != nil {
		return nil, err
	}
	for _, key := range ignored {
		c.log.Debugf("Bundle %q: option %q has no esbuild equivalent and is ignored.", c.name, key)
	}
	return result, nil
}

// translate maps task options onto esbuild build options. It returns the
// names of options that are set but have no esbuild equivalent.
func translate(opts *config.Options) (*buildOptions, []string, error) {
	var ignored []string
	ignore := func(name string, set bool) {
		if set {
			ignored = append(ignored, name)
		}
	}

	wd, err := workingDir(opts.Context)
	if err != nil {
		return nil, nil, err
	}

	bo := api.BuildOptions{
		AbsWorkingDir: wd,
		Bundle:        true,
		Write:         true,
		Metafile:      true, // the asset table in Stats is built from it
		LogLevel:      api.LogLevelSilent,
	}
	if deref(opts.Debug) {
		bo.LogLevel = api.LogLevelDebug
	}

	bo.EntryPoints, bo.EntryPointsAdvanced, err = entryPoints(wd, opts.Entry)
	if err != nil {
		return nil, nil, err
	}

	if err := applyOutput(&bo, &opts.Output, ignore); err != nil {
		return nil, nil, err
	}

	if bo.Sourcemap, err = sourceMap(opts.Devtool); err != nil {
		return nil, nil, err
	}

	if bo.Platform, err = platform(deref(opts.Target)); err != nil {
		return nil, nil, err
	}

	if bo.External, err = stringsOf("externals", opts.Externals, true); err != nil {
		return nil, nil, err
	}

	if err := applyResolve(&bo, wd, &opts.Resolve, ignore); err != nil {
		return nil, nil, err
	}

	if bo.Loader, err = loaders(opts.Module.Loaders); err != nil {
		return nil, nil, err
	}
	ignore("module.preLoaders", len(opts.Module.PreLoaders) > 0)
	ignore("module.postLoaders", len(opts.Module.PostLoaders) > 0)
	ignore("module.noParse", opts.Module.NoParse != nil)

	for _, p := range opts.Plugins {
		if err := applyPlugin(&bo, p); err != nil {
			return nil, nil, err
		}
	}

	ignore("resolveLoader", opts.ResolveLoader.Alias != nil || opts.ResolveLoader.Root != nil ||
		opts.ResolveLoader.ModulesDirectories != nil || opts.ResolveLoader.Fallback != nil ||
		opts.ResolveLoader.Extensions != nil || opts.ResolveLoader.PackageMains != nil ||
		opts.ResolveLoader.PackageAlias != nil || opts.ResolveLoader.UnsafeCache != nil ||
		opts.ResolveLoader.ModuleTemplates != nil)
	ignore("bail", opts.Bail != nil)
	ignore("cache", opts.Cache != nil)
	ignore("devServer", opts.DevServer != nil)
	ignore("node", opts.Node != nil)
	ignore("amd", opts.AMD != nil)
	ignore("loader", opts.Loader != nil)
	ignore("recordsPath", opts.RecordsPath != nil)
	ignore("recordsInputPath", opts.RecordsInputPath != nil)
	ignore("recordsOutputPath", opts.RecordsOutputPath != nil)

	return &buildOptions{build: bo, analyze: deref(opts.Profile)}, ignored, nil
}

func workingDir(context *string) (string, error) {
	dir := deref(context)
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

func entryPoints(wd string, entry any) ([]string, []api.EntryPoint, error) {
	switch e := entry.(type) {
	case nil:
		return nil, nil, fmt.Errorf("no entry configured")
	case map[string]any:
		var advanced []api.EntryPoint
		for _, name := range slices.Sorted(maps.Keys(e)) {
			p, ok := e[name].(string)
			if !ok {
				return nil, nil, fmt.Errorf("entry %q: expected a path, got %T", name, e[name])
			}
			advanced = append(advanced, api.EntryPoint{InputPath: p, OutputPath: name})
		}
		return nil, advanced, nil
	case map[string]string:
		var advanced []api.EntryPoint
		for _, name := range slices.Sorted(maps.Keys(e)) {
			advanced = append(advanced, api.EntryPoint{InputPath: e[name], OutputPath: name})
		}
		return nil, advanced, nil
	}

	patterns, err := stringsOf("entry", entry, false)
	if err != nil {
		return nil, nil, err
	}

	var paths []string
	for _, pattern := range patterns {
		matches, err := taskfs.Expand(wd, pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("entry: %w", err)
		}
		paths = append(paths, matches...)
	}
	return paths, nil, nil
}

func applyOutput(bo *api.BuildOptions, out *config.Output, ignore func(string, bool)) error {
	dir, filename := deref(out.Path), deref(out.Filename)

	switch {
	case dir != "":
		bo.Outdir = dir
		if filename != "" {
			bo.EntryNames = outputTemplate(filename)
		}
	case filename != "":
		bo.Outfile = filename
	default:
		// Nowhere to write to: build in memory so that stats are still
		// reported.
		bo.Write = false
	}

	if chunk := deref(out.ChunkFilename); chunk != "" {
		bo.ChunkNames = outputTemplate(chunk)
	}
	bo.PublicPath = deref(out.PublicPath)

	switch lib := out.Library.(type) {
	case nil:
	case string:
		bo.GlobalName = lib
	default:
		parts, err := stringsOf("output.library", lib, false)
		if err != nil {
			return err
		}
		bo.GlobalName = strings.Join(parts, ".")
	}

	switch target := deref(out.LibraryTarget); target {
	case "":
	case "var", "assign", "this", "window", "global", "iife":
		bo.Format = api.FormatIIFE
	case "commonjs", "commonjs2", "cjs":
		bo.Format = api.FormatCommonJS
	case "module", "esm":
		bo.Format = api.FormatESModule
	default:
		return fmt.Errorf("output.libraryTarget %q is not supported (use var, commonjs2 or module)", target)
	}

	ignore("output.sourceMapFilename", out.SourceMapFilename != nil)
	ignore("output.devtoolModuleFilenameTemplate", out.DevtoolModuleFilenameTemplate != nil)
	ignore("output.devtoolFallbackModuleFilenameTemplate", out.DevtoolFallbackModuleFilenameTemplate != nil)
	ignore("output.devtoolLineToLine", out.DevtoolLineToLine != nil)
	ignore("output.hotUpdateChunkFilename", out.HotUpdateChunkFilename != nil)
	ignore("output.hotUpdateMainFilename", out.HotUpdateMainFilename != nil)
	ignore("output.jsonpFunction", out.JSONPFunction != nil)
	ignore("output.hotUpdateFunction", out.HotUpdateFunction != nil)
	ignore("output.pathinfo", out.Pathinfo != nil)
	ignore("output.umdNamedDefine", out.UMDNamedDefine != nil)
	ignore("output.sourcePrefix", out.SourcePrefix != nil)
	ignore("output.crossOriginLoading", out.CrossOriginLoading != nil)
	return nil
}

var templateReplacer = strings.NewReplacer("[id]", "[name]", "[chunkhash]", "[hash]")

// outputTemplate converts a filename template such as "[name].[chunkhash].js"
// into an esbuild path template. esbuild appends the extension itself.
func outputTemplate(filename string) string {
	t := templateReplacer.Replace(filename)
	switch ext := filepath.Ext(t); ext {
	case ".js", ".mjs", ".cjs":
		t = strings.TrimSuffix(t, ext)
	}
	return filepath.ToSlash(t)
}

func sourceMap(devtool any) (api.SourceMap, error) {
	switch d := devtool.(type) {
	case nil:
		return api.SourceMapNone, nil
	case bool:
		if d {
			return api.SourceMapLinked, nil
		}
		return api.SourceMapNone, nil
	case string:
		switch {
		case d == "" || d == "false":
			return api.SourceMapNone, nil
		case strings.Contains(d, "eval") || strings.Contains(d, "inline"):
			return api.SourceMapInline, nil
		case strings.Contains(d, "hidden"):
			return api.SourceMapExternal, nil
		}
		return api.SourceMapLinked, nil
	}
	return api.SourceMapNone, fmt.Errorf("devtool: expected a string or boolean, got %T", devtool)
}

func platform(target string) (api.Platform, error) {
	switch target {
	case "":
		return api.PlatformDefault, nil
	case "web", "webworker", "browser":
		return api.PlatformBrowser, nil
	case "node", "async-node", "node-webkit", "electron", "electron-main", "electron-renderer":
		return api.PlatformNode, nil
	case "neutral":
		return api.PlatformNeutral, nil
	}
	return api.PlatformDefault, fmt.Errorf("target %q is not supported (use web, node or neutral)", target)
}

func applyResolve(bo *api.BuildOptions, wd string, r *config.Resolve, ignore func(string, bool)) error {
	if len(r.Alias) > 0 {
		bo.Alias = maps.Clone(r.Alias)
	}

	for _, ext := range r.Extensions {
		if ext != "" { // webpack's "" entry means "as written", which esbuild always tries
			bo.ResolveExtensions = append(bo.ResolveExtensions, ext)
		}
	}

	bo.MainFields = slices.Clone(r.PackageMains)

	for _, v := range []struct {
		name  string
		value any
	}{{"resolve.root", r.Root}, {"resolve.fallback", r.Fallback}} {
		dirs, err := stringsOf(v.name, v.value, true)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			if !filepath.IsAbs(d) {
				d = filepath.Join(wd, d)
			}
			bo.NodePaths = append(bo.NodePaths, d)
		}
	}

	ignore("resolve.modulesDirectories", r.ModulesDirectories != nil)
	ignore("resolve.packageAlias", r.PackageAlias != nil)
	ignore("resolve.unsafeCache", r.UnsafeCache != nil)
	return nil
}

var loaderNames = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"babel":   api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"css":     api.LoaderCSS,
	"text":    api.LoaderText,
	"raw":     api.LoaderText,
	"base64":  api.LoaderBase64,
	"dataurl": api.LoaderDataURL,
	"url":     api.LoaderDataURL,
	"file":    api.LoaderFile,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"empty":   api.LoaderEmpty,
	"null":    api.LoaderEmpty,
}

func loaders(rules []config.LoaderRule) (map[string]api.Loader, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	result := make(map[string]api.Loader)
	for i, rule := range rules {
		name := strings.TrimSuffix(strings.ToLower(rule.Loader), "-loader")
		loader, ok := loaderNames[name]
		if !ok {
			return nil, fmt.Errorf("module.loaders[%d]: unknown loader %q", i, rule.Loader)
		}

		tests, err := stringsOf(fmt.Sprintf("module.loaders[%d].test", i), rule.Test, false)
		if err != nil {
			return nil, err
		}
		for _, test := range tests {
			ext, err := extensionOf(test)
			if err != nil {
				return nil, fmt.Errorf("module.loaders[%d]: %w", i, err)
			}
			result[ext] = loader
		}
	}
	return result, nil
}

// extensionOf accepts a file suffix (".jsx") or the common regular
// expression spelling of one (`\.jsx$`).
func extensionOf(test string) (string, error) {
	ext := strings.TrimSuffix(strings.TrimPrefix(test, `\`), "$")
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.ContainsAny(ext[1:], `.\|()[]*+?^$`) {
		return "", fmt.Errorf("test %q must be a file extension such as \".jsx\"", test)
	}
	return ext, nil
}

func applyPlugin(bo *api.BuildOptions, p config.Plugin) error {
	switch p.Name {
	case "define":
		if bo.Define == nil {
			bo.Define = make(map[string]string, len(p.Options))
		}
		for k, v := range p.Options {
			if s, ok := v.(string); ok {
				bo.Define[k] = s
				continue
			}
			bs, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("plugin define: %s: %w", k, err)
			}
			bo.Define[k] = string(bs)
		}
	case "minify":
		bo.MinifyWhitespace = optionBool(p.Options, "whitespace", true)
		bo.MinifyIdentifiers = optionBool(p.Options, "identifiers", true)
		bo.MinifySyntax = optionBool(p.Options, "syntax", true)
	case "banner", "footer":
		text, _ := p.Options["text"].(string)
		if text == "" {
			return fmt.Errorf("plugin %s: options.text is required", p.Name)
		}
		if p.Name == "banner" {
			bo.Banner = map[string]string{"js": text}
		} else {
			bo.Footer = map[string]string{"js": text}
		}
	case "splitting":
		bo.Splitting = true
		if bo.Format == api.FormatDefault {
			bo.Format = api.FormatESModule
		}
	default:
		return fmt.Errorf("unknown plugin %q (supported: define, minify, banner, footer, splitting)", p.Name)
	}
	return nil
}

func optionBool(options map[string]any, key string, def bool) bool {
	if v, ok := options[key]; ok && v != nil {
		return config.Truthy(v)
	}
	return def
}

// stringsOf accepts a string, a list of strings or, if keys is set, a
// mapping whose sorted keys are used.
func stringsOf(name string, v any, keys bool) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected a string, got %T", name, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case map[string]any:
		if keys {
			return slices.Sorted(maps.Keys(x)), nil
		}
	}
	return nil, fmt.Errorf("%s: unsupported value of type %T", name, v)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

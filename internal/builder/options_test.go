package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/go-cmp/cmp"

	"github.com/taskkit/bundletask/internal/config"
)

func TestTranslate(t *testing.T) {
	wd := t.TempDir()

	cases := []struct {
		note    string
		cfg     config.Config
		check   func(t *testing.T, bo api.BuildOptions)
		ignored []string
		err     string
	}{
		{
			note: "defaults",
			cfg:  config.Config{"entry": "./main.js"},
			check: func(t *testing.T, bo api.BuildOptions) {
				if !bo.Bundle || !bo.Metafile {
					t.Fatal("expected bundling with metafile")
				}
				if bo.Write {
					t.Fatal("expected in-memory build without output")
				}
				if diff := cmp.Diff([]string{"./main.js"}, bo.EntryPoints); diff != "" {
					t.Fatal(diff)
				}
				if bo.LogLevel != api.LogLevelSilent {
					t.Fatalf("expected silent log level, got %v", bo.LogLevel)
				}
			},
		},
		{
			note: "named entries",
			cfg:  config.Config{"entry": map[string]any{"b": "./b.js", "a": "./a.js"}},
			check: func(t *testing.T, bo api.BuildOptions) {
				exp := []api.EntryPoint{{InputPath: "./a.js", OutputPath: "a"}, {InputPath: "./b.js", OutputPath: "b"}}
				if diff := cmp.Diff(exp, bo.EntryPointsAdvanced); diff != "" {
					t.Fatal(diff)
				}
			},
		},
		{
			note: "output directory and filename template",
			cfg: config.Config{
				"entry": "./main.js",
				"output": map[string]any{
					"path":          "dist",
					"filename":      "[name].[chunkhash].js",
					"chunkFilename": "[id].chunk.js",
					"library":       []any{"my", "lib"},
					"libraryTarget": "var",
					"pathinfo":      true,
				},
			},
			check: func(t *testing.T, bo api.BuildOptions) {
				if bo.Outdir != "dist" || bo.EntryNames != "[name].[hash]" || bo.ChunkNames != "[name].chunk" {
					t.Fatalf("unexpected output paths: %q %q %q", bo.Outdir, bo.EntryNames, bo.ChunkNames)
				}
				if bo.GlobalName != "my.lib" || bo.Format != api.FormatIIFE {
					t.Fatalf("unexpected library: %q %v", bo.GlobalName, bo.Format)
				}
				if !bo.Write {
					t.Fatal("expected output to be written")
				}
			},
			ignored: []string{"output.pathinfo"},
		},
		{
			note: "output file",
			cfg:  config.Config{"entry": "./main.js", "output": map[string]any{"filename": "out/bundle.js", "libraryTarget": "commonjs2"}},
			check: func(t *testing.T, bo api.BuildOptions) {
				if bo.Outfile != "out/bundle.js" || bo.Format != api.FormatCommonJS {
					t.Fatalf("unexpected output: %q %v", bo.Outfile, bo.Format)
				}
			},
		},
		{
			note: "devtool and target",
			cfg:  config.Config{"entry": "./main.js", "devtool": "cheap-module-eval-source-map", "target": "node"},
			check: func(t *testing.T, bo api.BuildOptions) {
				if bo.Sourcemap != api.SourceMapInline || bo.Platform != api.PlatformNode {
					t.Fatalf("unexpected sourcemap/platform: %v %v", bo.Sourcemap, bo.Platform)
				}
			},
		},
		{
			note: "resolve and externals",
			cfg: config.Config{
				"entry":     "./main.js",
				"externals": map[string]any{"react": "React", "jquery": "$"},
				"resolve": map[string]any{
					"alias":              map[string]any{"lib": "./src/lib"},
					"extensions":         []any{"", ".js", ".jsx"},
					"root":               "vendor",
					"modulesDirectories": []any{"node_modules"},
				},
			},
			check: func(t *testing.T, bo api.BuildOptions) {
				if diff := cmp.Diff([]string{"jquery", "react"}, bo.External); diff != "" {
					t.Fatal(diff)
				}
				if diff := cmp.Diff([]string{".js", ".jsx"}, bo.ResolveExtensions); diff != "" {
					t.Fatal(diff)
				}
				if diff := cmp.Diff(map[string]string{"lib": "./src/lib"}, bo.Alias); diff != "" {
					t.Fatal(diff)
				}
				if diff := cmp.Diff([]string{filepath.Join(wd, "vendor")}, bo.NodePaths); diff != "" {
					t.Fatal(diff)
				}
			},
			ignored: []string{"resolve.modulesDirectories"},
		},
		{
			note: "loaders",
			cfg: config.Config{
				"entry": "./main.js",
				"module": map[string]any{
					"loaders": []any{
						map[string]any{"test": `\.jsx$`, "loader": "babel-loader"},
						map[string]any{"test": []any{".txt", ".md"}, "loader": "raw"},
					},
					"noParse": "jquery",
				},
			},
			check: func(t *testing.T, bo api.BuildOptions) {
				exp := map[string]api.Loader{".jsx": api.LoaderJSX, ".txt": api.LoaderText, ".md": api.LoaderText}
				if diff := cmp.Diff(exp, bo.Loader); diff != "" {
					t.Fatal(diff)
				}
			},
			ignored: []string{"module.noParse"},
		},
		{
			note: "plugins",
			cfg: config.Config{
				"entry": "./main.js",
				"plugins": []any{
					map[string]any{"name": "define", "options": map[string]any{"DEBUG": false, "ENV": `"prod"`}},
					map[string]any{"name": "minify", "options": map[string]any{"identifiers": false}},
					map[string]any{"name": "banner", "options": map[string]any{"text": "/* hi */"}},
				},
			},
			check: func(t *testing.T, bo api.BuildOptions) {
				if diff := cmp.Diff(map[string]string{"DEBUG": "false", "ENV": `"prod"`}, bo.Define); diff != "" {
					t.Fatal(diff)
				}
				if !bo.MinifyWhitespace || bo.MinifyIdentifiers || !bo.MinifySyntax {
					t.Fatal("unexpected minify options")
				}
				if bo.Banner["js"] != "/* hi */" {
					t.Fatalf("unexpected banner: %v", bo.Banner)
				}
			},
		},
		{
			note:    "ignored top-level options",
			cfg:     config.Config{"entry": "./main.js", "cache": true, "bail": false, "node": map[string]any{"fs": "empty"}},
			ignored: []string{"bail", "cache", "node"},
		},
		{
			note: "missing entry",
			cfg:  config.Config{},
			err:  "no entry configured",
		},
		{
			note: "unsupported library target",
			cfg:  config.Config{"entry": "./main.js", "output": map[string]any{"libraryTarget": "umd"}},
			err:  `output.libraryTarget "umd" is not supported`,
		},
		{
			note: "unsupported target",
			cfg:  config.Config{"entry": "./main.js", "target": "wasm"},
			err:  `target "wasm" is not supported`,
		},
		{
			note: "unknown loader",
			cfg:  config.Config{"entry": "./main.js", "module": map[string]any{"loaders": []any{map[string]any{"test": ".vue", "loader": "vue-loader"}}}},
			err:  `unknown loader "vue-loader"`,
		},
		{
			note: "regular expression loader test",
			cfg:  config.Config{"entry": "./main.js", "module": map[string]any{"loaders": []any{map[string]any{"test": `\.(js|jsx)$`, "loader": "jsx"}}}},
			err:  "must be a file extension",
		},
		{
			note: "unknown plugin",
			cfg:  config.Config{"entry": "./main.js", "plugins": []any{map[string]any{"name": "HotModuleReplacement"}}},
			err:  `unknown plugin "HotModuleReplacement"`,
		},
		{
			note: "banner without text",
			cfg:  config.Config{"entry": "./main.js", "plugins": []any{map[string]any{"name": "banner"}}},
			err:  "options.text is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			cfg := tc.cfg.Clone()
			cfg["context"] = wd

			opts, _, err := config.Decode(cfg)
			if err != nil {
				t.Fatal(err)
			}

			result, ignored, err := translate(opts)
			if tc.err != "" {
				if err == nil || !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error containing %q, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if result.build.AbsWorkingDir != wd {
				t.Fatalf("expected working directory %q, got %q", wd, result.build.AbsWorkingDir)
			}
			if diff := cmp.Diff(tc.ignored, ignored); diff != "" {
				t.Fatal("ignored options (-want, +got):", diff)
			}
			if tc.check != nil {
				tc.check(t, result.build)
			}
		})
	}
}

func TestEntryGlob(t *testing.T) {
	cases := []struct {
		note  string
		entry any
		exp   []string
		err   bool
	}{
		{note: "plain path", entry: "./src/a.js", exp: []string{"./src/a.js"}},
		{note: "pattern", entry: "src/*.js", exp: []string{"src/a.js", "src/b.js"}},
		{note: "list", entry: []any{"src/b.js", "lib/**/*.js"}, exp: []string{"src/b.js", "lib/x/c.js"}},
		{note: "no match", entry: "src/*.ts", err: true},
		{note: "not a string", entry: []any{1}, err: true},
	}

	wd := t.TempDir()
	for _, name := range []string{"src/a.js", "src/b.js", "lib/x/c.js"} {
		writeFile(t, filepath.Join(wd, name), "")
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			paths, _, err := entryPoints(wd, tc.entry)
			if tc.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, paths); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestOutputTemplate(t *testing.T) {
	for in, exp := range map[string]string{
		"bundle.js":            "bundle",
		"[name].js":            "[name]",
		"[id].[chunkhash].mjs": "[name].[hash]",
		"js/[name].bundle.cjs": "js/[name].bundle",
		"[name].css":           "[name].css",
		"assets/[name]-[hash]": "assets/[name]-[hash]",
	} {
		if act := outputTemplate(in); act != exp {
			t.Errorf("outputTemplate(%q): expected %q, got %q", in, exp, act)
		}
	}
}

func TestSourceMap(t *testing.T) {
	cases := []struct {
		devtool any
		exp     api.SourceMap
	}{
		{nil, api.SourceMapNone},
		{false, api.SourceMapNone},
		{"", api.SourceMapNone},
		{true, api.SourceMapLinked},
		{"source-map", api.SourceMapLinked},
		{"eval", api.SourceMapInline},
		{"inline-source-map", api.SourceMapInline},
		{"hidden-source-map", api.SourceMapExternal},
	}
	for _, tc := range cases {
		act, err := sourceMap(tc.devtool)
		if err != nil {
			t.Fatal(err)
		}
		if act != tc.exp {
			t.Errorf("sourceMap(%v): expected %v, got %v", tc.devtool, tc.exp, act)
		}
	}

	if _, err := sourceMap(42); err == nil {
		t.Fatal("expected error for numeric devtool")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/taskkit/bundletask/internal/config"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		value any
		exp   bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"false", true},
		{0, false},
		{uint64(0), false},
		{0.0, false},
		{1, true},
		{-1.5, true},
		{map[string]any{}, true},
		{[]any{}, true},
	}

	for _, tc := range cases {
		if act := config.Truthy(tc.value); act != tc.exp {
			t.Errorf("Truthy(%#v): expected %v, got %v", tc.value, tc.exp, act)
		}
	}
}

func TestConfigAccessors(t *testing.T) {
	cfg := config.Config{"config": "webpack.yaml", "watch": 1, "entry": "./a.js"}

	if cfg.Path() != "webpack.yaml" {
		t.Fatalf("unexpected path %q", cfg.Path())
	}
	if !cfg.Watch() {
		t.Fatal("expected watch mode")
	}

	without := cfg.Without(config.KeyConfig, config.KeyWatch)
	if diff := cmp.Diff(config.Config{"entry": "./a.js"}, without); diff != "" {
		t.Fatal(diff)
	}
	if _, ok := cfg[config.KeyConfig]; !ok {
		t.Fatal("Without must not modify the receiver")
	}

	if (config.Config{"config": 42}).Path() != "" {
		t.Fatal("expected non-string config path to be ignored")
	}
}

func TestClone(t *testing.T) {
	orig := config.Config{"output": map[string]any{"path": "dist"}, "entry": []any{"./a.js"}}
	clone := orig.Clone()

	clone["output"].(map[string]any)["path"] = "build"
	clone["entry"].([]any)[0] = "./b.js"

	if orig["output"].(map[string]any)["path"] != "dist" || orig["entry"].([]any)[0] != "./a.js" {
		t.Fatalf("clone shares state with original: %v", orig)
	}

	if config.Config(nil).Clone() != nil {
		t.Fatal("expected nil clone of nil config")
	}
}

func TestDecode(t *testing.T) {
	opts, unused, err := config.Decode(config.Config{
		"watch":   "yes",
		"entry":   []any{"./a.js"},
		"target":  "node",
		"debug":   "true",
		"output":  map[string]any{"path": "dist", "bogus": 1},
		"plugins": []any{map[string]any{"name": "minify"}},
		"extra":   true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !opts.Watch || *opts.Target != "node" || !*opts.Debug || *opts.Output.Path != "dist" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.Output.Filename != nil || opts.Context != nil || opts.Config != nil {
		t.Fatal("expected unset options to stay nil")
	}
	if diff := cmp.Diff([]config.Plugin{{Name: "minify"}}, opts.Plugins); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"extra", "output.bogus"}, unused); diff != "" {
		t.Fatal("unused keys (-want, +got):", diff)
	}

	if _, _, err := config.Decode(config.Config{"output": "dist"}); err == nil || !strings.Contains(err.Error(), "invalid bundle options") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		note string
		doc  string
		exp  config.Config
		err  string
	}{
		{
			note: "empty",
			doc:  "  \n",
			exp:  config.Config{},
		},
		{
			note: "null",
			doc:  "null",
			exp:  config.Config{},
		},
		{
			note: "yaml",
			doc: `
entry: ./src/main.js
output:
  path: dist
custom: true
`,
			exp: config.Config{"entry": "./src/main.js", "output": map[string]any{"path": "dist"}, "custom": true},
		},
		{
			note: "json",
			doc:  `{"entry": ["./a.js", "./b.js"], "watch": false}`,
			exp:  config.Config{"entry": []any{"./a.js", "./b.js"}, "watch": false},
		},
		{
			note: "empty option groups",
			doc: `
output:
resolve:
`,
			exp: config.Config{"output": nil, "resolve": nil},
		},
		{
			note: "not a mapping",
			doc:  "- a\n- b\n",
			err:  "configuration must be a mapping",
		},
		{
			note: "schema violation",
			doc:  "output:\n  path: 42\n",
			err:  "/output/path",
		},
		{
			note: "watch must be a boolean",
			doc:  "watch: sometimes\n",
			err:  "/watch",
		},
		{
			note: "malformed",
			doc:  "entry: [",
			err:  "failed to unmarshal configuration",
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			cfg, err := config.Parse([]byte(tc.doc))
			if tc.err != "" {
				if err == nil || !strings.Contains(err.Error(), tc.err) {
					t.Fatalf("expected error containing %q, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, cfg); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	cfg, err := config.LoadFile(write("webpack.yml", "custom: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(config.Config{"custom": true}, cfg); diff != "" {
		t.Fatal(diff)
	}

	if _, err := config.LoadFile(write("webpack.config.js", "module.exports = {}")); err == nil || !strings.Contains(err.Error(), "unsupported configuration file format") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}

	if _, err := config.LoadFile(filepath.Join(dir, "missing.yaml")); err == nil || !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Fatalf("expected read error, got %v", err)
	}

	bad := write("bad.json", `{"target": 1}`)
	if _, err := config.LoadFile(bad); err == nil || !strings.Contains(err.Error(), bad) {
		t.Fatalf("expected error naming %v, got %v", bad, err)
	}
}

func TestEffective(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(path, []byte("custom: true\noutput:\n  path: dist\n  filename: base.js\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Chdir(dir)

	cases := []struct {
		note string
		cfg  config.Config
		exp  config.Config
		err  bool
	}{
		{
			note: "no config path",
			cfg:  config.Config{"entry": "./a.js", "config": ""},
			exp:  config.Config{"entry": "./a.js", "config": ""},
		},
		{
			note: "absolute path",
			cfg:  config.Config{"config": path, "entry": "./a.js"},
			exp: config.Config{
				"custom": true,
				"entry":  "./a.js",
				"output": map[string]any{"path": "dist", "filename": "base.js"},
			},
		},
		{
			note: "relative path with nested override",
			cfg:  config.Config{"config": "base.yaml", "output": map[string]any{"filename": "task.js"}, "custom": nil},
			exp: config.Config{
				"custom": true,
				"output": map[string]any{"path": "dist", "filename": "task.js"},
			},
		},
		{
			note: "missing file",
			cfg:  config.Config{"config": "nope.yaml"},
			err:  true,
		},
		{
			note: "unset config values",
			cfg:  config.Config{"entry": "./a.js", "config": false},
			exp:  config.Config{"entry": "./a.js", "config": false},
		},
		{
			note: "number instead of path",
			cfg:  config.Config{"config": 5},
			err:  true,
		},
		{
			note: "mapping instead of path",
			cfg:  config.Config{"config": map[string]any{"entry": "./a.js"}},
			err:  true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			act, err := config.Effective(tc.cfg)
			if tc.err {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, act); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestReflectSchema(t *testing.T) {
	bs, err := config.ReflectSchema()
	if err != nil {
		t.Fatal(err)
	}
	for _, prop := range []string{`"entry"`, `"libraryTarget"`, `"moduleTemplates"`} {
		if !strings.Contains(string(bs), prop) {
			t.Errorf("expected schema to describe %s", prop)
		}
	}
}

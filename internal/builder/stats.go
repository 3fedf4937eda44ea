package builder

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/taskkit/bundletask/pkg/bundler"
)

// Stats is the outcome of one esbuild compilation.
type Stats struct {
	Result   api.BuildResult
	Duration time.Duration
	Assets   []Asset

	analyze bool
}

// Asset is a file emitted by a compilation.
type Asset struct {
	Path  string
	Bytes int
}

var _ bundler.Stats = (*Stats)(nil)

// metafile is the subset of esbuild's metafile JSON needed to list assets.
type metafile struct {
	Outputs map[string]struct {
		Bytes int `json:"bytes"`
	} `json:"outputs"`
}

func newStats(result api.BuildResult, d time.Duration, analyze bool) *Stats {
	s := &Stats{Result: result, Duration: d, analyze: analyze}

	var meta metafile
	if result.Metafile != "" && json.Unmarshal([]byte(result.Metafile), &meta) == nil {
		for _, p := range slices.Sorted(maps.Keys(meta.Outputs)) {
			s.Assets = append(s.Assets, Asset{Path: p, Bytes: meta.Outputs[p].Bytes})
		}
	}
	return s
}

// OutputBytes is the total size of all emitted assets.
func (s *Stats) OutputBytes() int {
	var n int
	for _, a := range s.Assets {
		n += a.Bytes
	}
	return n
}

func (s *Stats) HasErrors() bool {
	return len(s.Result.Errors) > 0
}

func (s *Stats) String() string {
	return s.Render(bundler.RenderOptions{})
}

func (s *Stats) Render(opts bundler.RenderOptions) string {
	var b strings.Builder

	if len(s.Assets) > 0 {
		table := tablewriter.NewWriter(&b)
		table.Header("Asset", "Size")
		for _, a := range s.Assets {
			_ = table.Append(a.Path, humanize.Bytes(uint64(a.Bytes)))
		}
		_ = table.Render()
	}

	for _, kind := range []struct {
		kind api.MessageKind
		msgs []api.Message
	}{{api.ErrorMessage, s.Result.Errors}, {api.WarningMessage, s.Result.Warnings}} {
		if len(kind.msgs) == 0 {
			continue
		}
		for _, msg := range api.FormatMessages(kind.msgs, api.FormatMessagesOptions{
			Kind:  kind.kind,
			Color: opts.Colors,
		}) {
			b.WriteString(msg)
		}
	}

	if s.analyze && s.Result.Metafile != "" {
		b.WriteString(api.AnalyzeMetafile(s.Result.Metafile, api.AnalyzeMetafileOptions{Color: opts.Colors}))
		b.WriteString("\n")
	}

	summary := color.New(color.FgGreen)
	switch {
	case len(s.Result.Errors) > 0:
		summary = color.New(color.FgRed, color.Bold)
	case len(s.Result.Warnings) > 0:
		summary = color.New(color.FgYellow)
	}
	if opts.Colors {
		summary.EnableColor()
	} else {
		summary.DisableColor()
	}

	b.WriteString(summary.Sprintf("%s, %s in %v",
		plural(len(s.Result.Errors), "error"),
		plural(len(s.Result.Warnings), "warning"),
		s.Duration.Round(time.Millisecond)))

	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Package bundler defines the contract between the build task and the
// bundler that does the actual work.
//
// The task never looks inside a compilation: it hands a configuration to a
// Compiler, and receives either a transport error or a Stats value describing
// the outcome. Diagnostics produced while compiling (syntax errors, missing
// imports) are part of Stats, not of the error.
package bundler

import "context"

// Compiler compiles one bundle configuration.
//
// Implementations are not required to be thread-safe. Callers should not run
// Run and Watch on the same Compiler concurrently.
type Compiler interface {
	// Run performs a single compilation and calls fn exactly once before
	// returning. err is non-nil only if the compilation could not be
	// carried out at all, for example because of invalid options; in that
	// case stats may be nil.
	Run(ctx context.Context, fn Handler)

	// Watch starts a compilation that repeats whenever an input changes.
	// fn is called after every compilation, never concurrently with
	// itself. Watch returns once watching has started; it stops when ctx
	// is cancelled.
	//
	// Returns an error if watching could not be started.
	Watch(ctx context.Context, fn Handler) error
}

// Handler receives the outcome of a compilation.
type Handler func(err error, stats Stats)

// Stats describes a finished compilation.
type Stats interface {
	// HasErrors reports whether the compilation produced error diagnostics.
	HasErrors() bool

	// Render returns a human-readable, multi-line summary of the
	// compilation: emitted assets, diagnostics and timing.
	Render(opts RenderOptions) string
}

// RenderOptions controls Stats.Render.
type RenderOptions struct {
	// Colors enables ANSI terminal colors in the rendering.
	Colors bool
}

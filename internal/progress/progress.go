// Package progress renders a terminal progress bar for multi-task runs.
package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Bar counts finished tasks. A nil *Bar is a valid no-op bar.
type Bar struct {
	bar *progressbar.ProgressBar
}

func New(w io.Writer, total int, description string, visible bool) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetVisibility(visible),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}

package cliout

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// ProgressEvent is the shape cliout's progress renderer consumes; it
// mirrors internal/pipeline.ProgressEvent without importing the
// pipeline package, keeping cliout a leaf dependency.
type ProgressEvent struct {
	Phase      string
	Current    int
	Total      int
	Percentage float64
}

// ProgressReporter renders indexing progress as a terminal bar. It is a
// no-op when disabled (--no-progress, or non-text output modes where a
// bar would corrupt the structured stream).
type ProgressReporter struct {
	out     io.Writer
	enabled bool
	bars    map[string]*progressbar.ProgressBar
}

// NewProgressReporter builds a reporter. enabled should be
// interactive && !noProgress && mode == ModeText.
func NewProgressReporter(out io.Writer, enabled bool) *ProgressReporter {
	return &ProgressReporter{out: out, enabled: enabled, bars: make(map[string]*progressbar.ProgressBar)}
}

// Report renders or updates the bar for ev.Phase.
func (p *ProgressReporter) Report(ev ProgressEvent) {
	if !p.enabled || ev.Total <= 0 {
		return
	}
	bar, ok := p.bars[ev.Phase]
	if !ok {
		bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(ev.Phase),
			progressbar.OptionClearOnFinish(),
		)
		p.bars[ev.Phase] = bar
	}
	_ = bar.Set(ev.Current)
}

// Finish completes and clears every bar this reporter opened.
func (p *ProgressReporter) Finish() {
	for _, bar := range p.bars {
		_ = bar.Finish()
	}
}

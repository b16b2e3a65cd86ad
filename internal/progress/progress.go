// Package progress gives the long blocking inference stages a coarse
// started/finished signal. There is no mid-call granularity to report,
// so a spinner is shown on interactive terminals and plain log lines
// everywhere else.
package progress

import (
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Reporter renders stage transitions. The zero value and nil are both
// usable and silent; the pipeline never depends on a UI being present.
type Reporter struct {
	out  *os.File
	tty  bool
	bar  *progressbar.ProgressBar
	stop chan struct{}
}

// New returns a reporter writing to out (normally stderr).
func New(out *os.File) *Reporter {
	return &Reporter{
		out: out,
		tty: isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()),
	}
}

// StartStage announces that a stage began. On a TTY it shows an
// indeterminate spinner until FinishStage.
func (r *Reporter) StartStage(desc string) {
	if r == nil || r.out == nil {
		return
	}
	if !r.tty {
		slog.Info(desc)
		return
	}

	r.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	r.stop = make(chan struct{})

	go func(bar *progressbar.ProgressBar, stop chan struct{}) {
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}(r.bar, r.stop)
}

// FinishStage announces that the current stage completed and clears
// any spinner.
func (r *Reporter) FinishStage(desc string) {
	if r == nil || r.out == nil {
		return
	}
	if !r.tty {
		slog.Info(desc)
		return
	}
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
	r.out.WriteString("✓ " + desc + "\n")
}

package syncer

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/photo-sync/internal/util"
)

// progress reports phase progress: a bar when stdout is a terminal,
// otherwise a log line every `every` items.
type progress struct {
	bar   *progressbar.ProgressBar
	done  atomic.Int64
	every int64
	line  func(done int64) string
}

func newProgress(description string, total int, every int64, line func(done int64) string) *progress {
	p := &progress{every: every, line: line}

	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() && total > 0 {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWidth(barWidth()),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	return p
}

// step marks one item finished
func (p *progress) step() {
	n := p.done.Add(1)
	if p.bar != nil {
		p.bar.Add(1)
		return
	}
	if p.every > 0 && n%p.every == 0 {
		util.InfoLog("%s", p.line(n))
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}

// barWidth leaves room for the description and counters next to the bar
func barWidth() int {
	return min(max(util.TerminalWidth(os.Stdout, 80)-70, 10), 40)
}

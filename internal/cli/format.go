package cli

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// ProgressPrinter writes each progress message as "[M:SS] message" to Out,
// timed from the printer's creation.
type ProgressPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	start time.Time
	now   func() time.Time
}

// NewProgressPrinter creates a printer that writes to out.
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	return &ProgressPrinter{out: out, start: time.Now(), now: time.Now}
}

// Progress implements chat.ProgressSink.
func (p *ProgressPrinter) Progress(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s] %s\n", FormatDurationShort(p.now().Sub(p.start)), message)
}

// Package progressbar implements functionality of printing a progress
// bar to a terminal
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ManualProgressBar implements progress bar functionality that must
// be manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed.
//
// ManualProgressBar does not use concurrency.
type ManualProgressBar struct {
	out             io.Writer
	width           int
	maxProgress     int
	currentProgress int
	status          string
	startTime       time.Time
}

// NewManualProgressBar returns a new ManualProgressBar that is width
// characters wide, writes to out, and reaches 100% after max calls to
// Increment
func NewManualProgressBar(out io.Writer, width, max int) *ManualProgressBar {
	if max < 1 {
		max = 1
	}
	return &ManualProgressBar{
		out:         out,
		width:       width,
		maxProgress: max,
		startTime:   time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ManualProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// SetStatus sets a message printed after the bar
func (p *ManualProgressBar) SetStatus(status string) {
	p.status = status
}

// Progress returns the number of calls to Increment, at most the
// maximum progress
func (p *ManualProgressBar) Progress() int {
	return p.currentProgress
}

// String returns the bar without terminal control sequences
func (p *ManualProgressBar) String() string {
	var bar strings.Builder
	bar.WriteString("|")

	filled := p.currentProgress * p.width / p.maxProgress
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))

	fraction := float64(p.currentProgress) / float64(p.maxProgress)
	fmt.Fprintf(&bar, "| [%.2f%% | elapsed: %v]", fraction*100,
		time.Since(p.startTime).Truncate(time.Second))
	if p.status != "" {
		fmt.Fprintf(&bar, " %v", p.status)
	}
	return bar.String()
}

// Display prints the progress bar over the previous line
func (p *ManualProgressBar) Display() {
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.String())
}

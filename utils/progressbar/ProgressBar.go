package progressbar

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressBar implements a concurrent progress bar. A background
// goroutine redraws the bar at a fixed interval so that it keeps
// updating its elapsed time between calls to Increment. All methods are
// safe for concurrent use.
type ProgressBar struct {
	mu  sync.Mutex
	bar *ManualProgressBar

	updateEvery       time.Duration
	updateAtIncrement bool

	closeEvent chan struct{}
	done       chan struct{}
	started    bool
	closed     bool
}

// NewProgressBar returns a new progress bar that is width characters
// wide and reaches 100% after max Increment() calls. The bar is redrawn
// every updateEvery and, if updateAtIncrement is true, after each
// increment.
func NewProgressBar(out io.Writer, width, max int, updateEvery time.Duration,
	updateAtIncrement bool) *ProgressBar {
	return &ProgressBar{
		bar:               NewManualProgressBar(out, width, max),
		updateEvery:       updateEvery,
		updateAtIncrement: updateAtIncrement,
		closeEvent:        make(chan struct{}),
		done:              make(chan struct{}),
	}
}

// Increment increments the internal progress counter
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.bar.Increment()
	if p.updateAtIncrement && p.started {
		p.bar.Display()
	}
}

// SetStatus sets a message printed after the bar
func (p *ProgressBar) SetStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.SetStatus(status)
}

// Progress returns the number of calls to Increment
func (p *ProgressBar) Progress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bar.Progress()
}

// Display starts displaying the progress bar. It should only be called
// once.
func (p *ProgressBar) Display() {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.bar.Display()
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		tick := time.NewTicker(p.updateEvery)
		defer tick.Stop()

		for {
			select {
			case <-tick.C:
				p.mu.Lock()
				p.bar.Display()
				p.mu.Unlock()

			case <-p.closeEvent:
				return
			}
		}
	}()
}

// Close stops the progress bar, draws it a final time, and moves to the
// next line. Close panics if called more than once.
func (p *ProgressBar) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("close: close on closed progress bar")
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	close(p.closeEvent)
	if started {
		<-p.done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.bar.Display()
	fmt.Fprintln(p.bar.out)
}

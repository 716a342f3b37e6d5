package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a batch counter ("Splitting readouts 12/40") until it is
// stopped or its context ends. Advance may be called from any goroutine.
type Spinner struct {
	w     io.Writer
	label string
	total int
	done  atomic.Int64

	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	stopped chan struct{}
	mu      sync.Mutex
	width   int // widest line drawn so far
}

// newSpinner creates a spinner for a batch of total items. It draws to w.
func newSpinner(ctx context.Context, w io.Writer, label string, total int) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		label:   label,
		total:   total,
		parent:  ctx,
		ctx:     sctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Advance counts one finished item.
func (s *Spinner) Advance() { s.done.Add(1) }

// Done returns the number of finished items.
func (s *Spinner) Done() int { return int(s.done.Load()) }

// line renders the status text for one frame.
func (s *Spinner) line(frame int) string {
	return fmt.Sprintf("%s %s %s",
		styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)]),
		StyleDim.Render(s.label),
		StyleNumber.Render(fmt.Sprintf("%d/%d", s.Done(), s.total)))
}

// Start begins drawing.
func (s *Spinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(s.line(i))
			}
		}
	}()
}

func (s *Spinner) draw(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(line))
	fmt.Fprintf(s.w, "\r%s", line)
}

// Stop halts the spinner and clears its line. It is safe to call more than
// once, and without a prior Start.
func (s *Spinner) Stop() {
	s.cancel()
	if s.started.Load() {
		<-s.stopped
	}
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

// Cancelled reports whether the parent context ended, as opposed to a
// plain Stop.
func (s *Spinner) Cancelled() bool { return s.parent.Err() != nil }

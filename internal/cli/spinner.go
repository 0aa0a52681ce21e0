package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerTick is the frame advance interval.
const spinnerTick = 80 * time.Millisecond

// spinnerGlyphs are the braille animation frames drawn on stderr.
var spinnerGlyphs = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is the progress indicator for steps with no incremental output,
// like a Graphviz render or a store round trip. It draws to stderr so
// rendered artifacts on stdout stay clean, and stops when its context is
// cancelled (Ctrl-C during a slow render).
type Spinner struct {
	msg     string
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	drained chan struct{}
	mu      sync.Mutex
}

// newSpinner creates a spinner with the given message.
func newSpinner(msg string) *Spinner {
	return newSpinnerWithContext(context.Background(), msg)
}

// newSpinnerWithContext creates a spinner that also stops when ctx is
// cancelled.
func newSpinnerWithContext(ctx context.Context, msg string) *Spinner {
	derived, cancel := context.WithCancel(ctx)
	return &Spinner{
		msg:     msg,
		parent:  ctx,
		ctx:     derived,
		cancel:  cancel,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.drained)
		ticker := time.NewTicker(spinnerTick)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				glyph := spinnerGlyphs[i%len(spinnerGlyphs)]
				s.mu.Lock()
				fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(glyph), StyleDim.Render(s.msg))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the animation and clears the line. Safe to call more than
// once; the line is left clean for whatever prints next.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.drained
	s.clearLine()
}

// StopWithSuccess stops and prints a success line in its place.
func (s *Spinner) StopWithSuccess(msg string) {
	s.Stop()
	printSuccess("%s", msg)
}

// StopWithError stops and prints an error line in its place.
func (s *Spinner) StopWithError(msg string) {
	s.Stop()
	printError("%s", msg)
}

// Cancelled reports whether the spinner's parent context was cancelled,
// as opposed to an explicit Stop. Callers use this to tell an aborted
// render apart from a finished one.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.msg)+4))
}

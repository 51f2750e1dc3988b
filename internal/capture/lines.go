package capture

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/hark/internal/session"
)

// Lines turns text lines into recognition results. Each line is one utterance; "|"
// separates ranked candidates ("turn on | turn lamp on").
type Lines struct {
	r      io.Reader
	sink   session.Sink
	logger *slog.Logger

	once sync.Once
	done chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool
	eof     bool
	drained bool
}

// NewLines constructs a line-driven capture reading r.
func NewLines(r io.Reader, sink session.Sink, logger *slog.Logger) *Lines {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Lines{r: r, sink: sink, logger: logger, done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Done is closed once the reader is exhausted.
func (l *Lines) Done() <-chan struct{} { return l.done }

// Start resumes delivery. It fails with io.EOF after the reader is exhausted.
func (l *Lines) Start(context.Context) error {
	l.mu.Lock()
	if l.eof {
		l.mu.Unlock()
		return io.EOF
	}
	l.running = true
	l.mu.Unlock()

	l.once.Do(func() {
		go l.pump()
		go l.read()
	})
	l.post(l.sink.Started)
	return nil
}

// Stop pauses delivery and ends the session. Lines read while paused are dropped.
func (l *Lines) Stop() error {
	l.pause()
	return nil
}

// Abort behaves like Stop.
func (l *Lines) Abort() error {
	l.pause()
	return nil
}

func (l *Lines) pause() {
	l.mu.Lock()
	wasRunning := l.running
	l.running = false
	l.mu.Unlock()
	if wasRunning {
		l.post(l.sink.Ended)
	}
}

func (l *Lines) read() {
	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		candidates := SplitCandidates(scanner.Text())
		if len(candidates) == 0 {
			continue
		}

		l.mu.Lock()
		running := l.running
		l.mu.Unlock()
		if !running {
			l.logger.Debug("dropping line while paused", "candidates", candidates)
			continue
		}
		l.post(func() { l.sink.Result(candidates) })
	}
	if err := scanner.Err(); err != nil {
		l.logger.Warn("line capture read failed", "error", err.Error())
	}

	l.mu.Lock()
	l.eof = true
	l.mu.Unlock()
	l.cond.Signal()
	l.post(func() { close(l.done) })
}

// post queues f for the delivery goroutine. Sink calls are serialized in post order. Once
// the delivery goroutine has exited, f runs on the caller.
func (l *Lines) post(f func()) {
	l.mu.Lock()
	if l.drained {
		l.mu.Unlock()
		f()
		return
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()
	l.cond.Signal()
}

// pump delivers queued calls until the reader is exhausted and the queue is empty.
func (l *Lines) pump() {
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.eof {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.drained = true
			l.mu.Unlock()
			return
		}
		f := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		f()
	}
}

// SplitCandidates parses one "a | b | c" line into trimmed, non-empty candidates.
func SplitCandidates(line string) []string {
	parts := strings.Split(line, "|")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

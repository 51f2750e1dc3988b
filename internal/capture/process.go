// Package capture feeds recognition signals into a session.Sink from an external recognizer
// process or from plain text lines.
package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rbright/hark/internal/audio"
	"github.com/rbright/hark/internal/event"
	"github.com/rbright/hark/internal/session"
)

// Cause codes reported by the process backend itself.
const (
	CauseAudioCapture   = "audio-capture"
	CauseRecognizerExit = "recognizer-exit"
)

// Environment passed to the recognizer program.
const (
	EnvLanguage        = "HARK_LANG"
	EnvContinuous      = "HARK_CONTINUOUS"
	EnvMaxAlternatives = "HARK_MAX_ALTERNATIVES"
	EnvAudioSource     = "HARK_AUDIO_SOURCE"
)

// ErrAlreadyRunning indicates Start was called while the recognizer process is alive.
var ErrAlreadyRunning = errors.New("recognizer process already running")

// ProcessConfig describes the recognizer program and its audio source.
type ProcessConfig struct {
	Argv            []string
	Continuous      bool
	MaxAlternatives int

	// Audio, when Devices is set, is resolved before every start. A muted or missing
	// source is reported as an audio-capture error instead of starting the program.
	Audio   audio.Preference
	Devices audio.Lister
}

// message is one JSON line written by the recognizer program.
type message struct {
	Type         string   `json:"type"`
	Alternatives []string `json:"alternatives,omitempty"`
	Error        string   `json:"error,omitempty"`
	Message      string   `json:"message,omitempty"`
}

var boundaries = map[string]event.Topic[event.Signal]{
	"soundstart":  event.SoundStart,
	"soundend":    event.SoundEnd,
	"speechstart": event.SpeechStart,
	"speechend":   event.SpeechEnd,
}

// Process runs one recognizer program per session and translates its output into sink calls.
type Process struct {
	cfg      ProcessConfig
	sink     session.Sink
	language func() string
	logger   *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	quiet   bool
	running bool
}

// NewProcess constructs a process backend. language is sampled at every start.
func NewProcess(cfg ProcessConfig, sink session.Sink, language func() string, logger *slog.Logger) *Process {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if language == nil {
		language = func() string { return "" }
	}
	return &Process{cfg: cfg, sink: sink, language: language, logger: logger}
}

// Start launches the recognizer program.
func (p *Process) Start(ctx context.Context) error {
	if len(p.cfg.Argv) == 0 {
		return errors.New("recognizer command is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	source := ""
	if p.cfg.Devices != nil {
		selection, err := audio.SelectDevice(ctx, p.cfg.Devices, p.cfg.Audio)
		if err != nil {
			p.running = true
			go p.failWithoutStart(event.Cause{Code: CauseAudioCapture, Message: err.Error()})
			return nil
		}
		if selection.Warning != "" {
			p.logger.Warn("audio fallback", "warning", selection.Warning)
		}
		source = selection.Device.ID
	}

	cmd := exec.CommandContext(ctx, p.cfg.Argv[0], p.cfg.Argv[1:]...)
	cmd.Env = append(os.Environ(), p.env(source)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT) }
	stderr := &tailBuffer{limit: 2048}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open recognizer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recognizer %s: %w", p.cfg.Argv[0], err)
	}

	p.cmd = cmd
	p.quiet = false
	p.running = true
	p.logger.Debug("recognizer started", "pid", cmd.Process.Pid, "language", p.language(), "source", source)

	go p.read(cmd, stdout, stderr)
	return nil
}

// Stop asks the recognizer to finish the current utterance and exit.
func (p *Process) Stop() error {
	return p.signal(syscall.SIGINT, false)
}

// Abort kills the recognizer and its children. Its exit is not reported as an error.
func (p *Process) Abort() error {
	return p.signal(syscall.SIGKILL, true)
}

func (p *Process) signal(sig syscall.Signal, quiet bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	p.quiet = p.quiet || quiet
	if err := syscall.Kill(-p.cmd.Process.Pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal recognizer: %w", err)
	}
	return nil
}

func (p *Process) env(source string) []string {
	maxAlt := p.cfg.MaxAlternatives
	if maxAlt <= 0 {
		maxAlt = 1
	}
	env := []string{
		EnvLanguage + "=" + p.language(),
		EnvContinuous + "=" + strconv.FormatBool(p.cfg.Continuous),
		EnvMaxAlternatives + "=" + strconv.Itoa(maxAlt),
	}
	if source != "" {
		env = append(env, EnvAudioSource+"="+source)
	}
	return env
}

// read forwards program output until it exits, then reports the end of the session.
func (p *Process) read(cmd *exec.Cmd, stdout io.Reader, stderr *tailBuffer) {
	ended := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if p.deliver(line) {
			ended = true
			break
		}
	}
	if ended {
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()

	p.mu.Lock()
	quiet := p.quiet
	p.cmd = nil
	p.running = false
	p.mu.Unlock()

	if waitErr != nil && !quiet && !ended {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		p.logger.Error("recognizer exited", "error", waitErr.Error(), "stderr", msg)
		p.sink.Failed(event.Cause{Code: CauseRecognizerExit, Message: msg})
	}
	p.sink.Ended()
}

// deliver dispatches one protocol line and reports whether it ended the session.
func (p *Process) deliver(line string) bool {
	var msg message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		p.logger.Warn("recognizer emitted invalid line", "line", line, "error", err.Error())
		return false
	}

	switch msg.Type {
	case "start":
		p.sink.Started()
	case "result":
		p.sink.Result(msg.Alternatives)
	case "nomatch":
		p.sink.NoMatch()
	case "error":
		p.sink.Failed(event.Cause{Code: msg.Error, Message: msg.Message})
	case "end":
		return true
	default:
		topic, ok := boundaries[msg.Type]
		if !ok {
			p.logger.Warn("recognizer emitted unknown message", "type", msg.Type)
			return false
		}
		p.sink.Boundary(topic)
	}
	return false
}

// failWithoutStart reports a session that could not begin.
func (p *Process) failWithoutStart(cause event.Cause) {
	p.logger.Warn("capture unavailable", "cause", cause.Code, "message", cause.Message)
	p.sink.Failed(cause)

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.sink.Ended()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, data...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(data), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

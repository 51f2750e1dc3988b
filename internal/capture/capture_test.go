package capture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rbright/hark/internal/audio"
	"github.com/rbright/hark/internal/event"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []string
	ended chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ended: make(chan struct{}, 8)}
}

func (s *recordingSink) add(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingSink) Started()                           { s.add("started") }
func (s *recordingSink) Boundary(t event.Topic[event.Signal]) { s.add(t.Name()) }
func (s *recordingSink) Result(alts []string)               { s.add("result:" + strings.Join(alts, ",")) }
func (s *recordingSink) NoMatch()                           { s.add("nomatch") }
func (s *recordingSink) Failed(c event.Cause)               { s.add("failed:" + c.Code) }
func (s *recordingSink) Ended() {
	s.add("ended")
	s.ended <- struct{}{}
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *recordingSink) waitEnded(t *testing.T) {
	t.Helper()
	select {
	case <-s.ended:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for end; calls=%v", s.snapshot())
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recognizer")
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env bash\nset -euo pipefail\n"+body), 0o755))
	return path
}

func TestProcessTranslatesProtocol(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "env")
	script := writeScript(t, `
printf '%s %s %s\n' "$HARK_LANG" "$HARK_CONTINUOUS" "$HARK_MAX_ALTERNATIVES" > "`+envFile+`"
echo '{"type":"start"}'
echo '{"type":"soundstart"}'
echo '{"type":"speechstart"}'
echo 'not json'
echo '{"type":"result","alternatives":["turn on","turn lamp on"]}'
echo '{"type":"nomatch"}'
echo '{"type":"bogus"}'
echo '{"type":"speechend"}'
echo '{"type":"soundend"}'
echo '{"type":"error","error":"network","message":"offline"}'
echo '{"type":"end"}'
`)

	sink := newRecordingSink()
	p := NewProcess(ProcessConfig{Argv: []string{script}, Continuous: true, MaxAlternatives: 3}, sink, func() string { return "ja-JP" }, nil)
	require.NoError(t, p.Start(context.Background()))
	sink.waitEnded(t)

	require.Equal(t, []string{
		"started",
		"soundstart",
		"speechstart",
		"result:turn on,turn lamp on",
		"nomatch",
		"speechend",
		"soundend",
		"failed:network",
		"ended",
	}, sink.snapshot())

	env, err := os.ReadFile(envFile)
	require.NoError(t, err)
	require.Equal(t, "ja-JP true 3\n", string(env))
}

func TestProcessExitWithoutEndMessageEndsSession(t *testing.T) {
	script := writeScript(t, `echo '{"type":"start"}'`)
	sink := newRecordingSink()
	p := NewProcess(ProcessConfig{Argv: []string{script}}, sink, nil, nil)

	require.NoError(t, p.Start(context.Background()))
	sink.waitEnded(t)
	require.Equal(t, []string{"started", "ended"}, sink.snapshot())

	require.NoError(t, p.Start(context.Background()))
	sink.waitEnded(t)
}

func TestProcessFailureReportsRecognizerExit(t *testing.T) {
	script := writeScript(t, `echo "model missing" >&2; exit 3`)
	sink := newRecordingSink()
	p := NewProcess(ProcessConfig{Argv: []string{script}}, sink, nil, nil)

	require.NoError(t, p.Start(context.Background()))
	sink.waitEnded(t)
	require.Equal(t, []string{"failed:" + CauseRecognizerExit, "ended"}, sink.snapshot())
}

func TestProcessAbortIsQuiet(t *testing.T) {
	script := writeScript(t, `echo '{"type":"start"}'; sleep 30`)
	sink := newRecordingSink()
	p := NewProcess(ProcessConfig{Argv: []string{script}}, sink, nil, nil)

	require.NoError(t, p.Start(context.Background()))
	require.ErrorIs(t, p.Start(context.Background()), ErrAlreadyRunning)
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Abort())
	sink.waitEnded(t)
	require.Equal(t, []string{"started", "ended"}, sink.snapshot())
	require.NoError(t, p.Abort())
}

func TestProcessMissingProgram(t *testing.T) {
	p := NewProcess(ProcessConfig{Argv: []string{filepath.Join(t.TempDir(), "missing")}}, newRecordingSink(), nil, nil)
	require.Error(t, p.Start(context.Background()))

	p = NewProcess(ProcessConfig{}, newRecordingSink(), nil, nil)
	require.Error(t, p.Start(context.Background()))
}

func TestProcessMutedSourceFailsWithAudioCapture(t *testing.T) {
	script := writeScript(t, `echo '{"type":"start"}'`)
	sink := newRecordingSink()
	devices := func(context.Context) ([]audio.Device, error) {
		return []audio.Device{{ID: "mic", Description: "Mic", State: "idle", Available: true, Muted: true, Default: true}}, nil
	}
	p := NewProcess(ProcessConfig{Argv: []string{script}, Devices: devices}, sink, nil, nil)

	require.NoError(t, p.Start(context.Background()))
	sink.waitEnded(t)
	require.Equal(t, []string{"failed:" + CauseAudioCapture, "ended"}, sink.snapshot())
}

func TestProcessPassesSelectedSource(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "source")
	script := writeScript(t, `printf '%s' "$HARK_AUDIO_SOURCE" > "`+envFile+`"`)
	sink := newRecordingSink()
	devices := func(context.Context) ([]audio.Device, error) {
		return []audio.Device{
			{ID: "alsa_input.usb", Description: "USB Mic", State: "idle", Available: true},
			{ID: "alsa_input.pci", Description: "Built-in", State: "idle", Available: true, Default: true},
		}, nil
	}
	cfg := ProcessConfig{Argv: []string{script}, Devices: devices, Audio: audio.Preference{Input: "usb"}}
	p := NewProcess(cfg, sink, nil, nil)

	require.NoError(t, p.Start(context.Background()))
	sink.waitEnded(t)

	source, err := os.ReadFile(envFile)
	require.NoError(t, err)
	require.Equal(t, "alsa_input.usb", string(source))
}

func TestLinesDeliversCandidates(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	sink := newRecordingSink()
	lines := NewLines(r, sink, nil)
	require.NoError(t, lines.Start(context.Background()))

	_, err = w.WriteString("turn on | turn lamp on\n\n  hello  \n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(sink.snapshot()) == 3 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, lines.Stop())
	sink.waitEnded(t)
	_, err = w.WriteString("dropped\n")
	require.NoError(t, err)

	require.NoError(t, w.Close())
	select {
	case <-lines.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reader to finish")
	}

	require.Equal(t, []string{"started", "result:turn on,turn lamp on", "result:hello", "ended"}, sink.snapshot())
	require.ErrorIs(t, lines.Start(context.Background()), io.EOF)
}

func TestSplitCandidates(t *testing.T) {
	require.Equal(t, []string{"a", "b c"}, SplitCandidates(" a | | b c |"))
	require.Empty(t, SplitCandidates("   "))
}

func TestLinesDeliveryStopsAfterEOF(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	sink := newRecordingSink()
	lines := NewLines(r, sink, nil)
	require.NoError(t, lines.Start(context.Background()))
	_, err = w.WriteString("hello\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case <-lines.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reader to finish")
	}
	require.Eventually(t, func() bool {
		lines.mu.Lock()
		defer lines.mu.Unlock()
		return lines.drained
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, lines.Abort())
	require.Equal(t, []string{"started", "result:hello", "ended"}, sink.snapshot())
}

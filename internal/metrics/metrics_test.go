package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rbright/hark/internal/event"
	"github.com/stretchr/testify/require"
)

// value returns the counter or gauge value of name whose labels include want.
func value(t *testing.T, rec *Recorder, name string, want map[string]string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue metrics
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
			if m.GetHistogram() != nil {
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func TestAttachCountsHubEvents(t *testing.T) {
	hub := event.NewHub()
	rec := New()
	rec.Attach(hub)

	event.Emit(hub, event.Start, event.Signal{})
	require.Equal(t, 1.0, value(t, rec, "hark_listening", nil))

	event.Emit(hub, event.Hear, event.Candidates{"hello"})
	event.Emit(hub, event.HearWords, event.Match{Command: "hello"})
	event.Emit(hub, event.Hear, event.Candidates{"nope"})
	event.Emit(hub, event.HearNoWords, event.Candidates{"nope"})
	event.Emit(hub, event.Error, event.Cause{Code: "network"})
	event.Emit(hub, event.End, event.Signal{})

	require.Equal(t, 1.0, value(t, rec, "hark_session_starts_total", nil))
	require.Equal(t, 2.0, value(t, rec, "hark_utterances_total", nil))
	require.Equal(t, 1.0, value(t, rec, "hark_matches_total", map[string]string{"command": "hello"}))
	require.Equal(t, 1.0, value(t, rec, "hark_misses_total", nil))
	require.Equal(t, 1.0, value(t, rec, "hark_capture_errors_total", map[string]string{"cause": "network"}))
	require.Equal(t, 0.0, value(t, rec, "hark_listening", nil))
}

func TestObserveDispatch(t *testing.T) {
	rec := New()
	rec.ObserveDispatch("hello", 3*time.Millisecond, false)
	rec.ObserveDispatch("hello", 5*time.Millisecond, true)

	require.Equal(t, 1.0, value(t, rec, "hark_listener_failures_total", map[string]string{"command": "hello"}))
	require.Equal(t, 2.0, value(t, rec, "hark_dispatch_seconds", nil))
}

func TestWriteTextfile(t *testing.T) {
	rec := New()
	rec.misses.Inc()

	path := filepath.Join(t.TempDir(), "hark.prom")
	require.NoError(t, rec.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hark_misses_total 1")
}

func TestWriteTextfileBadPath(t *testing.T) {
	rec := New()
	err := rec.WriteTextfile(filepath.Join(t.TempDir(), "missing", "hark.prom"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "write metrics textfile")
}

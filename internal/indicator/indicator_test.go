package indicator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/hark/internal/config"
	"github.com/rbright/hark/internal/event"
	"github.com/stretchr/testify/require"
)

func TestNotifierFollowsHubEvents(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo "u 7"
fi
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	lang := "ja"
	hub := event.NewHub()
	notifier := New(cfg, func() string { return lang }, nil)
	notifier.Attach(hub)

	event.Emit(hub, event.Start, event.Signal{})
	event.Emit(hub, event.ErrorPermissionDenied, event.Cause{Code: "not-allowed"})
	event.Emit(hub, event.End, event.Signal{})
	notifier.Close()

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i hark 0  聞き取り中…  0 0 300000")
	require.Contains(t, lines[1], "Notify susssasa{sv}i hark 7  マイクの使用が拒否されました  0 1 urgency y 2 1600")
	require.Contains(t, lines[2], "CloseNotification u 7")
}

func TestNotifierDetachAndDisabled(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	hub := event.NewHub()
	notifier := New(cfg, nil, nil)
	notifier.Attach(hub)
	require.Equal(t, 1, hub.Count(event.Start.Name()))
	notifier.Detach(hub)
	require.Zero(t, hub.Count(event.Start.Name()))

	event.Emit(hub, event.Start, event.Signal{})
	notifier.Close()

	cfg.Enable = false
	disabled := New(cfg, nil, nil)
	disabled.ShowListening()
	disabled.ShowError(msgNetwork)
	disabled.Hide()
	disabled.Close()

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestNotifierSurvivesNotifyFailure(t *testing.T) {
	installBusctlStub(t, `
echo "no session bus" >&2
exit 1
`)

	cfg := config.Default().Indicator
	cfg.SoundEnable = false
	notifier := New(cfg, nil, nil)
	notifier.ShowListening()
	notifier.Hide()
	notifier.Close()
	notifier.ShowListening()
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

// Package doctor runs runtime readiness diagnostics for config, tools, audio, and commands.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/hark/internal/action"
	"github.com/rbright/hark/internal/audio"
	"github.com/rbright/hark/internal/command"
	"github.com/rbright/hark/internal/config"
	"github.com/rbright/hark/internal/ipc"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Options injects live dependencies. A nil Devices lists PulseAudio sources.
type Options struct {
	Devices audio.Lister
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, opts Options) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkRuntimeDir(ctx))
	checks = append(checks, checkCommand(cfg.Config.Recognizer.Cmd.Argv, "recognizer.cmd"))

	if cfg.Config.Voice.Enable {
		checks = append(checks, checkBinary(cfg.Config.Voice.Program, "speech synthesis"))
	}
	if cfg.Config.Indicator.Enable {
		checks = append(checks, checkBinary("busctl", "desktop notifications"))
	}

	checks = append(checks, checkAudioSelection(ctx, opts.Devices, cfg.Config))
	checks = append(checks, checkCommands(cfg.Config))

	return Report{Checks: checks}
}

// checkRuntimeDir validates the IPC socket location and reports a running listener.
func checkRuntimeDir(ctx context.Context) Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "runtime.dir", Pass: false, Message: err.Error()}
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		return Check{Name: "runtime.dir", Pass: false, Message: fmt.Sprintf("%s is not a directory", filepath.Dir(path))}
	}

	running, err := ipc.Probe(ctx, path, 300*time.Millisecond)
	switch {
	case err != nil:
		return Check{Name: "runtime.dir", Pass: false, Message: err.Error()}
	case running:
		return Check{Name: "runtime.dir", Pass: true, Message: fmt.Sprintf("listener running at %s", path)}
	default:
		return Check{Name: "runtime.dir", Pass: true, Message: fmt.Sprintf("socket path %s (no listener)", path)}
	}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, devices audio.Lister, cfg config.Config) Check {
	pref := audio.Preference{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback}
	selection, err := audio.SelectDevice(ctx, devices, pref)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkCommands compiles every configured command for the configured language.
func checkCommands(cfg config.Config) Check {
	table := command.New(cfg.Language, nil)
	learner := tableLearner{table: table}
	if _, err := action.Register(learner, cfg.Commands, action.Options{}); err != nil {
		return Check{Name: "commands", Pass: false, Message: err.Error()}
	}
	return Check{Name: "commands", Pass: true, Message: fmt.Sprintf("%d commands compile for %s", table.Len(), cfg.Language)}
}

type tableLearner struct {
	table *command.Table
}

func (l tableLearner) Learn(cmd *command.Command, listener command.Listener) error {
	return l.table.Register(cmd, listener)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/hark/internal/config"
	"github.com/rbright/hark/internal/ipc"
)

const forwardTimeout = 220 * time.Millisecond

var errNoListener = errors.New("no running hark listener")

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus, nil)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fields := []string{resp.State}
	if resp.Language != "" {
		fields = append(fields, resp.Language)
	}
	if resp.Message != "" {
		fields = append(fields, resp.Message)
	}
	fmt.Fprintln(r.Stdout, strings.Join(fields, " "))
	return 0
}

// commandLanguage reports or switches the listener language. Without a listener only the
// configured language can be reported.
func (r Runner) commandLanguage(ctx context.Context, cfg config.Config, args []string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		if len(args) == 0 {
			fmt.Fprintln(r.Stdout, cfg.Language)
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandLanguage, args)
	if !handled {
		if len(args) == 0 {
			fmt.Fprintln(r.Stdout, cfg.Language)
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", errNoListener)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, resp.Language)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string, args []string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command, args)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: %v\n", errNoListener)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward sends command to a running listener. handled is false when no listener owns
// the socket.
func tryForward(ctx context.Context, socketPath string, command string, args []string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command, Args: args}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsNotRunning(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

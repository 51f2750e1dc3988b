package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// paramEnv exposes captured parameters to run actions as HARK_PARAM_COUNT and HARK_PARAM_1..n.
func paramEnv(params []string) []string {
	env := make([]string, 0, len(params)+1)
	env = append(env, "HARK_PARAM_COUNT="+strconv.Itoa(len(params)))
	for i, p := range params {
		env = append(env, "HARK_PARAM_"+strconv.Itoa(i+1)+"="+p)
	}
	return env
}

// runCommand executes argv with input on stdin and extra appended to the environment. It
// returns trimmed stdout; a failure carries trimmed stderr.
func runCommand(ctx context.Context, argv []string, input string, extra []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("command argv cannot be empty")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), extra...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w (%s)", argv[0], err, msg)
		}
		return "", fmt.Errorf("%s: %w", argv[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

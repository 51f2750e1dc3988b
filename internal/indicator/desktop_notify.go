package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notificationsDest  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notificationsIface = "org.freedesktop.Notifications"
)

// Freedesktop urgency levels, sent as the "urgency" byte hint.
const (
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// notification is one Notify request. A zero ReplaceID opens a new notification.
type notification struct {
	AppName   string
	ReplaceID uint32
	Summary   string
	Body      string
	Urgency   byte
	TimeoutMS int
}

// args renders n as busctl arguments for the susssasa{sv}i signature.
func (n notification) args() []string {
	args := []string{
		n.AppName,
		strconv.FormatUint(uint64(n.ReplaceID), 10),
		"",
		n.Summary,
		n.Body,
		"0",
	}
	if n.Urgency > urgencyNormal {
		args = append(args, "1", "urgency", "y", strconv.Itoa(int(n.Urgency)))
	} else {
		args = append(args, "0")
	}
	return append(args, strconv.Itoa(n.TimeoutMS))
}

// desktopNotify sends n over the session bus and returns the ID the server assigned.
func desktopNotify(ctx context.Context, n notification) (uint32, error) {
	out, err := callNotifications(ctx, "Notify", "susssasa{sv}i", n.args()...)
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(id), nil
}

// desktopDismiss closes the notification with id.
func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := callNotifications(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

// callNotifications invokes one method on the notification daemon via busctl.
func callNotifications(ctx context.Context, method string, signature string, args ...string) (string, error) {
	argv := append([]string{
		"--user", "call",
		notificationsDest, notificationsPath, notificationsIface,
		method, signature,
	}, args...)

	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", fmt.Errorf("busctl %s: %w", method, err)
		}
		return "", fmt.Errorf("busctl %s: %w (%s)", method, err, trimmed)
	}
	return trimmed, nil
}

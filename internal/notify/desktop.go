package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DesktopBackend is the name of the notify-send backend.
const DesktopBackend = "desktop"

const desktopTimeout = 2 * time.Second

// Desktop sends freedesktop notifications through notify-send.
type Desktop struct {
	AppName string

	lookPath func(string) (string, error)
	run      func(ctx context.Context, argv []string) ([]byte, error)
}

// NewDesktop returns a backend that shells out to notify-send.
func NewDesktop(appName string) *Desktop {
	return &Desktop{AppName: appName, lookPath: exec.LookPath, run: runOutput}
}

func runOutput(ctx context.Context, argv []string) ([]byte, error) {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
}

func (d *Desktop) Name() string        { return DesktopBackend }
func (d *Desktop) Supports(Level) bool { return true }

// Available reports whether notify-send is on PATH. It is checked on every call
// so installing it later takes effect without a restart.
func (d *Desktop) Available() bool {
	_, err := d.lookPath("notify-send")
	return err == nil
}

// Send runs notify-send and returns the notification id it prints.
func (d *Desktop) Send(n Notification) (Handle, error) {
	argv := []string{"notify-send", "--print-id", "--urgency=" + urgency(n.Level)}
	if d.AppName != "" {
		argv = append(argv, "--app-name="+d.AppName)
	}
	if n.Replaces.Backend == DesktopBackend && n.Replaces.ID != "" {
		argv = append(argv, "--replace-id="+n.Replaces.ID)
	}
	switch {
	case n.Persist:
		argv = append(argv, "--expire-time=0")
	case n.Timeout > 0:
		argv = append(argv, "--expire-time="+strconv.FormatInt(n.Timeout.Milliseconds(), 10))
	}
	argv = append(argv, "--", n.Title, n.Message)

	ctx, cancel := context.WithTimeout(context.Background(), desktopTimeout)
	defer cancel()
	out, err := d.run(ctx, argv)
	if err != nil {
		return Handle{}, fmt.Errorf("run notify-send: %w", err)
	}
	id := strings.TrimSpace(string(out))
	if _, err := strconv.ParseUint(id, 10, 32); err != nil {
		return Handle{}, fmt.Errorf("parse notify-send id %q: %w", id, err)
	}
	return Handle{Backend: DesktopBackend, ID: id}, nil
}

// Dismiss closes a notification over D-Bus with gdbus when it is installed.
func (d *Desktop) Dismiss(h Handle) error {
	if h.Backend != DesktopBackend || h.ID == "" {
		return nil
	}
	if _, err := d.lookPath("gdbus"); err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), desktopTimeout)
	defer cancel()
	_, err := d.run(ctx, []string{
		"gdbus", "call", "--session",
		"--dest", "org.freedesktop.Notifications",
		"--object-path", "/org/freedesktop/Notifications",
		"--method", "org.freedesktop.Notifications.CloseNotification", h.ID,
	})
	if err != nil {
		return fmt.Errorf("close desktop notification: %w", err)
	}
	return nil
}

func urgency(l Level) string {
	switch l {
	case LevelError:
		return "critical"
	case LevelWarn:
		return "normal"
	default:
		return "low"
	}
}

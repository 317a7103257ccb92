package notify

import (
	"errors"
	"strings"
	"time"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps "info", "warn"/"warning" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, errors.New("unknown level " + s)
}

// Notification is one message handed to a backend.
type Notification struct {
	Level   Level
	Title   string
	Message string
	// Persist keeps the notification until it is replaced or dismissed.
	Persist bool
	// Timeout is how long a non-persistent notification stays visible.
	Timeout time.Duration
	// Replaces is the handle of an earlier notification from the same backend
	// that this one should replace in place.
	Replaces Handle
}

// Handle identifies a delivered notification.
type Handle struct {
	Backend string
	ID      string
}

// IsZero reports whether h refers to nothing.
func (h Handle) IsZero() bool {
	return h.Backend == "" && h.ID == ""
}

// Backend delivers notifications. Implementations may fail or panic; the
// Router treats both as a reason to fall back to the next tier.
type Backend interface {
	Name() string
	Supports(level Level) bool
	Send(n Notification) (Handle, error)
	Dismiss(h Handle) error
}

// Scopes remembers the last handle per scope key.
type Scopes map[string]Handle

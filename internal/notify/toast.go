package notify

import (
	"strconv"
	"sync"
	"time"
)

// ToastBackend is the name of the in-app toast backend.
const ToastBackend = "toast"

// Toast is a notification shown inside the TUI.
type Toast struct {
	ID      uint64
	Level   Level
	Title   string
	Message string
	Persist bool
	Created time.Time
	Expires time.Time
}

// Toasts is the in-app toast stack. It always accepts notifications, which
// makes it the last tier of every Router. It is safe for concurrent use.
type Toasts struct {
	mu       sync.Mutex
	items    []Toast
	next     uint64
	now      func() time.Time
	onChange func()
}

// NewToasts returns an empty stack.
func NewToasts() *Toasts {
	return &Toasts{now: time.Now}
}

// OnChange registers f to run (outside the lock) whenever the visible set changes.
func (t *Toasts) OnChange(f func()) {
	t.mu.Lock()
	t.onChange = f
	t.mu.Unlock()
}

func (t *Toasts) Name() string        { return ToastBackend }
func (t *Toasts) Supports(Level) bool { return true }

// Send adds a toast or, when n.Replaces names a toast still on the stack,
// overwrites it in place.
func (t *Toasts) Send(n Notification) (Handle, error) {
	t.mu.Lock()
	now := t.now()
	toast := Toast{
		Level:   n.Level,
		Title:   n.Title,
		Message: n.Message,
		Persist: n.Persist,
		Created: now,
	}
	if !n.Persist && n.Timeout > 0 {
		toast.Expires = now.Add(n.Timeout)
	}

	replaced := false
	if n.Replaces.Backend == ToastBackend {
		if id, err := strconv.ParseUint(n.Replaces.ID, 10, 64); err == nil {
			for i := range t.items {
				if t.items[i].ID == id {
					toast.ID = id
					t.items[i] = toast
					replaced = true
					break
				}
			}
		}
	}
	if !replaced {
		t.next++
		toast.ID = t.next
		t.items = append(t.items, toast)
	}
	onChange := t.onChange
	t.mu.Unlock()

	if !toast.Expires.IsZero() {
		id := toast.ID
		time.AfterFunc(n.Timeout, func() { t.expire(id) })
	}
	if onChange != nil {
		onChange()
	}
	return Handle{Backend: ToastBackend, ID: strconv.FormatUint(toast.ID, 10)}, nil
}

// Dismiss removes the toast behind h. Unknown handles are ignored.
func (t *Toasts) Dismiss(h Handle) error {
	if h.Backend != ToastBackend {
		return nil
	}
	id, err := strconv.ParseUint(h.ID, 10, 64)
	if err != nil {
		return nil
	}
	t.remove(func(toast Toast) bool { return toast.ID == id })
	return nil
}

// DismissAll clears the stack.
func (t *Toasts) DismissAll() {
	t.remove(func(Toast) bool { return true })
}

// Visible returns the toasts that have not expired, oldest first.
func (t *Toasts) Visible() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	out := make([]Toast, 0, len(t.items))
	for _, toast := range t.items {
		if toast.Expires.IsZero() || now.Before(toast.Expires) {
			out = append(out, toast)
		}
	}
	return out
}

func (t *Toasts) expire(id uint64) {
	t.remove(func(toast Toast) bool {
		return toast.ID == id && !toast.Expires.IsZero() && !t.now().Before(toast.Expires)
	})
}

func (t *Toasts) remove(match func(Toast) bool) {
	t.mu.Lock()
	kept := t.items[:0]
	removed := false
	for _, toast := range t.items {
		if match(toast) {
			removed = true
			continue
		}
		kept = append(kept, toast)
	}
	t.items = kept
	onChange := t.onChange
	t.mu.Unlock()
	if removed && onChange != nil {
		onChange()
	}
}

package notify

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/runpane/internal/config"
)

// Options are the per-call knobs of Router.Notify.
type Options struct {
	Title    string
	Persist  bool
	ScopeKey string
}

// Router picks a backend for every notification. Tiers, evaluated on each call:
//
//  1. the user backend (SetUser, or notifier commands from the config) if it supports the level
//  2. the desktop backend if enabled and available
//  3. the toast stack
//
// A Router is not safe for concurrent use; callers serialize access together
// with the Scopes map they pass in.
type Router struct {
	user    Backend
	desktop *Desktop
	toasts  *Toasts
	log     zerolog.Logger

	// post hands results of off-thread deliveries back to the serializing
	// goroutine. Nil means every backend runs inline.
	post func(func()) bool
	// inflight maps a scope key to the sequence of its newest pending delivery.
	inflight map[string]uint64
	seq      uint64
}

// NewRouter returns a router. desktop may be nil to disable that tier.
func NewRouter(toasts *Toasts, desktop *Desktop, log zerolog.Logger) *Router {
	if toasts == nil {
		toasts = NewToasts()
	}
	return &Router{toasts: toasts, desktop: desktop, log: log}
}

// SetUser installs a user backend that takes precedence over configured
// notifier commands. Pass nil to remove it.
func (r *Router) SetUser(b Backend) {
	r.user = b
}

// SetPoster makes Notify run user and desktop backends on their own goroutine.
// Their outcome is applied by calling post, which must run the function on the
// goroutine that serializes access to the Router and its Scopes.
func (r *Router) SetPoster(post func(func()) bool) {
	r.post = post
}

// Toasts returns the fallback toast stack.
func (r *Router) Toasts() *Toasts {
	return r.toasts
}

// Notify delivers message and returns its handle, which is zero when
// notifications are disabled or, with a poster set, while a user or desktop
// backend is still delivering. When opts.ScopeKey is set the previous
// notification under that key is replaced in place or dismissed, and the new
// handle is remembered only if opts.Persist is true.
func (r *Router) Notify(cfg config.Config, scopes Scopes, level Level, message string, opts Options) Handle {
	if !cfg.Notifications.Enabled {
		return Handle{}
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = cfg.Notifications.Title
	}
	n := Notification{
		Level:   level,
		Title:   title,
		Message: message,
		Persist: opts.Persist,
		Timeout: cfg.Notifications.Timeout,
	}

	tiers := r.tiers(cfg, level)
	var prev Handle
	if opts.ScopeKey != "" && scopes != nil {
		prev = scopes[opts.ScopeKey]
	}

	if r.post == nil || len(tiers) == 1 {
		if opts.ScopeKey != "" {
			delete(r.inflight, opts.ScopeKey)
		}
		handle := r.deliver(tiers, n, prev)
		if !handle.IsZero() && !prev.IsZero() && prev.Backend != handle.Backend {
			r.dismiss(prev)
		}
		r.remember(scopes, opts, handle)
		return handle
	}

	var seq uint64
	if opts.ScopeKey != "" && scopes != nil {
		r.seq++
		seq = r.seq
		if r.inflight == nil {
			r.inflight = map[string]uint64{}
		}
		r.inflight[opts.ScopeKey] = seq
	}
	prevBackend := r.backend(prev.Backend)
	go func() {
		handle := r.deliver(tiers, n, prev)
		if !handle.IsZero() && !prev.IsZero() && prev.Backend != handle.Backend {
			r.dismissWith(prevBackend, prev)
		}
		if seq == 0 {
			return
		}
		if !r.post(func() { r.settle(scopes, opts, seq, handle) }) {
			r.log.Debug().Str("scope", opts.ScopeKey).Msg("notification settled after close")
		}
	}()
	return Handle{}
}

// deliver tries tiers in order and returns the first handle a backend accepts.
func (r *Router) deliver(tiers []Backend, n Notification, prev Handle) Handle {
	for _, b := range tiers {
		attempt := n
		if !prev.IsZero() && prev.Backend == b.Name() {
			attempt.Replaces = prev
		}
		h, err := r.send(b, attempt)
		if err != nil {
			r.log.Debug().Err(err).Str("backend", b.Name()).Str("level", n.Level.String()).Msg("notifier failed, falling back")
			continue
		}
		return h
	}
	return Handle{}
}

// settle records the outcome of an off-thread delivery. A result overtaken by
// a newer notification for the same scope, or by Dismiss, is retracted.
func (r *Router) settle(scopes Scopes, opts Options, seq uint64, handle Handle) {
	if r.inflight[opts.ScopeKey] != seq {
		if opts.Persist && !handle.IsZero() && scopes[opts.ScopeKey] != handle {
			r.dismiss(handle)
		}
		return
	}
	delete(r.inflight, opts.ScopeKey)
	r.remember(scopes, opts, handle)
}

func (r *Router) remember(scopes Scopes, opts Options, handle Handle) {
	if opts.ScopeKey == "" || scopes == nil {
		return
	}
	if opts.Persist && !handle.IsZero() {
		scopes[opts.ScopeKey] = handle
	} else {
		delete(scopes, opts.ScopeKey)
	}
}

// Dismiss removes every remembered scoped notification and clears the toast
// stack. Deliveries still in flight are retracted when they land.
func (r *Router) Dismiss(scopes Scopes) {
	for key, h := range scopes {
		r.dismiss(h)
		delete(scopes, key)
	}
	clear(r.inflight)
	r.toasts.DismissAll()
}

func (r *Router) tiers(cfg config.Config, level Level) []Backend {
	tiers := make([]Backend, 0, 3)
	if user := r.userBackend(cfg); user != nil && supports(user, level) {
		tiers = append(tiers, user)
	}
	if r.desktop != nil && cfg.Notifications.Desktop && r.desktop.Available() {
		tiers = append(tiers, r.desktop)
	}
	return append(tiers, r.toasts)
}

func (r *Router) userBackend(cfg config.Config) Backend {
	if r.user != nil {
		return r.user
	}
	if cfg.Notifier.Empty() {
		return nil
	}
	return CommandFuncs(cfg.Notifier)
}

func (r *Router) backend(name string) Backend {
	switch name {
	case ToastBackend:
		return r.toasts
	case DesktopBackend:
		if r.desktop != nil {
			return r.desktop
		}
	case UserBackend:
		return r.user
	}
	return nil
}

func (r *Router) send(b Backend, n Notification) (h Handle, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s backend panicked: %v", b.Name(), p)
		}
	}()
	return b.Send(n)
}

// dismiss retracts h. Toasts are removed inline; other backends are called on
// their own goroutine when a poster is set.
func (r *Router) dismiss(h Handle) {
	b := r.backend(h.Backend)
	if b == nil {
		return
	}
	if r.post != nil && h.Backend != ToastBackend {
		go r.dismissWith(b, h)
		return
	}
	r.dismissWith(b, h)
}

func (r *Router) dismissWith(b Backend, h Handle) {
	if b == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Debug().Str("backend", h.Backend).Interface("panic", p).Msg("dismiss panicked")
		}
	}()
	if err := b.Dismiss(h); err != nil {
		r.log.Debug().Err(err).Str("backend", h.Backend).Msg("dismiss failed")
	}
}

func supports(b Backend, level Level) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return b.Supports(level)
}

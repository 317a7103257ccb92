// Package loop runs closures one at a time on a single goroutine.
//
// Everything that mutates panel state is funneled through a Loop, so that state
// needs no locks: process exits, file events, timers and key handlers all Post
// closures instead of touching the state directly.
package loop

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Call after Close.
var ErrClosed = errors.New("loop closed")

// Loop is an unbounded single-consumer task queue.
type Loop struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
	log    zerolog.Logger
}

// New starts a loop. Panics in tasks are recovered and logged to log.
func New(log zerolog.Logger) *Loop {
	l := &Loop{done: make(chan struct{}), log: log}
	l.cond = sync.NewCond(&l.mu)
	go l.run()
	return l
}

// Post queues f and returns immediately. It reports false once the loop is closed.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.queue = append(l.queue, f)
	l.cond.Signal()
	return true
}

// Call runs f on the loop and waits for it to finish. It must not be called
// from a task running on the same loop.
func (l *Loop) Call(f func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		f()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// After posts f once d has elapsed. Stopping the returned timer prevents the
// post but cannot recall a task that is already queued.
func (l *Loop) After(d time.Duration, f func()) *time.Timer {
	return time.AfterFunc(max(d, 0), func() { l.Post(f) })
}

// Close drains already queued tasks, stops the loop and waits for it to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.cond.Signal()
	}
	l.mu.Unlock()
	<-l.done
}

// Done is closed when the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 && l.closed {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, f := range batch {
			l.exec(f)
		}
	}
}

func (l *Loop) exec(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Str("panic", fmt.Sprint(r)).Msg("task panicked")
		}
	}()
	f()
}

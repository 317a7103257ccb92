package panel

import (
	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/geometry"
	"github.com/five82/runpane/internal/logtail"
	"github.com/five82/runpane/internal/notify"
)

// Status is the lifecycle status of a target.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Finished reports whether s is a terminal status.
func (s Status) Finished() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Token is a generation counter guarding delayed work. A callback captures the
// value returned by Next and acts only while Current still reports it.
type Token struct {
	gen uint64
}

// Next invalidates outstanding generations and returns a new one.
func (t *Token) Next() uint64 {
	t.gen++
	return t.gen
}

// Cancel invalidates outstanding generations.
func (t *Token) Cancel() {
	t.gen++
}

// Current reports whether gen is still the latest generation.
func (t *Token) Current(gen uint64) bool {
	return t.gen == gen
}

// Target is one logical output source: a run, or a stream owned by an adapter.
type Target struct {
	ID       string
	Name     string
	Cursor   logtail.Cursor
	Buffer   *logtail.Buffer
	Status   Status
	ExitCode int
	Config   config.Config

	used     uint64
	rendered uint64
}

// LogPath returns the file the target follows.
func (t *Target) LogPath() string {
	return t.Cursor.Path
}

// State is the panel state owned by one supervisor. It is only touched from
// the loop goroutine.
type State struct {
	Active  string
	Surface Surface
	Mode    geometry.Mode
	Follow  bool

	AutoHide Token
	Render   Token
	Poll     Token

	// Notices maps a scope key to the last persistent notification for it.
	Notices notify.Scopes

	targets map[string]*Target
	order   []string
	seq     uint64
}

// NewState returns a closed panel in mini mode with follow enabled.
func NewState() *State {
	return &State{
		Mode:    geometry.ModeMini,
		Follow:  true,
		Notices: notify.Scopes{},
		targets: map[string]*Target{},
	}
}

// Open reports whether a surface is showing.
func (s *State) Open() bool {
	return s.Surface != nil
}

// Target returns the target with id, or nil.
func (s *State) Target(id string) *Target {
	return s.targets[id]
}

// ActiveTarget returns the active target, or nil.
func (s *State) ActiveTarget() *Target {
	return s.targets[s.Active]
}

func (s *State) touch(t *Target) {
	s.seq++
	t.used = s.seq
}

// recent returns the most recently used target.
func (s *State) recent() *Target {
	var best *Target
	for _, t := range s.targets {
		if best == nil || t.used > best.used {
			best = t
		}
	}
	return best
}

func (s *State) remove(id string) {
	delete(s.targets, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

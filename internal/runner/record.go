package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/panel"
)

// ErrInvalidTransition is returned for a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

// Messages overrides the default notification texts of a run.
type Messages struct {
	Start   string
	Success string
	Error   string
}

// Record is one execution of a target. Status only moves
// idle -> running -> success|failure.
type Record struct {
	TargetID   string
	Name       string
	Job        Job
	Status     panel.Status
	StartedAt  time.Time
	FinishedAt time.Time
	ExitCode   int
	Config     config.Config
	Messages   Messages

	handle *Handle
}

func (r *Record) advance(to panel.Status) error {
	ok := false
	switch r.Status {
	case panel.StatusIdle, "":
		ok = to == panel.StatusRunning
	case panel.StatusRunning:
		ok = to.Finished()
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	now := time.Now()
	if to == panel.StatusRunning {
		r.StartedAt = now
	} else {
		r.FinishedAt = now
	}
	return nil
}

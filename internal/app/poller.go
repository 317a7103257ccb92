package app

import (
	"context"
	"time"

	"github.com/five82/runpane/internal/config"
	"github.com/five82/runpane/internal/panel"
)

// TargetSource reports the panel's targets.
type TargetSource interface {
	Targets() panel.Summary
}

// StartPoller watches src at a fixed cadence and closes the returned channel
// once at least one target exists and none is running. It returns immediately.
func StartPoller(ctx context.Context, src TargetSource, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if idle(src.Targets()) {
				close(done)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}

func idle(sum panel.Summary) bool {
	if len(sum.Targets) == 0 {
		return false
	}
	for _, t := range sum.Targets {
		if t.Status == panel.StatusRunning {
			return false
		}
	}
	return true
}

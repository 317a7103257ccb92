package panel

import "github.com/five82/runpane/internal/geometry"

// Host is the display the panel draws on.
type Host interface {
	// Viewport returns the drawable size. An error means the host is not ready yet.
	Viewport() (rows, cols int, err error)
	// Open creates a floating surface.
	Open(spec SurfaceSpec) (Surface, error)
	// Publish receives a snapshot after every state change.
	Publish(Summary)
}

// Surface is an open floating region.
type Surface interface {
	// Update repositions or restyles the surface.
	Update(spec SurfaceSpec) error
	// SetLines replaces the content. tail scrolls to the last line; otherwise
	// the scroll position is kept.
	SetLines(lines []string, tail bool)
	Close() error
}

// SurfaceSpec describes how a surface should look.
type SurfaceSpec struct {
	Bounds    geometry.Bounds
	Mode      geometry.Mode
	TargetID  string
	Title     string
	Status    Status
	Highlight string
	Follow    bool
}

// TargetInfo is a read-only view of a target.
type TargetInfo struct {
	ID       string
	Name     string
	LogPath  string
	Status   Status
	ExitCode int
	Lines    int
	Dropped  int64
	Active   bool
}

// Summary is a read-only view of the whole panel.
type Summary struct {
	Targets []TargetInfo
	Active  string
	Open    bool
	Mode    geometry.Mode
	Follow  bool
}

// Package panel implements the floating output panel as a state machine.
//
// # States
//
// The panel is closed, open in mini mode or open in focus mode:
//
//	closed --Show--> open(mode)        surface created through Host.Open
//	open   --Show--> open(mode)        retargeted in place
//	open   --Hide--> closed            surface closed, pending work cancelled
//	open   --ToggleFocus--> open(other mode)
//	closed --ToggleFocus--> open(focus)
//
// # Tokens
//
// Delayed work never holds a reference that could outlive its intent. Each kind
// of delayed work has a Token in State: auto-hide, render retry and polling.
// Scheduling captures a generation, and the callback does nothing unless the
// generation is still current. Hide bumps all three, Show bumps auto-hide, and
// scheduling a new auto-hide replaces any earlier one. Cancelling is only ever
// a state change; there are no timers to stop.
//
// # Threading
//
// State has no locks. Every Machine method runs on a loop.Loop, and timers
// post their callbacks back onto the same loop.
//
// # Polling
//
// While a surface is open the active target's log is polled every
// poll.interval. New output is pushed with SetLines; the surface is told to
// tail only while follow is on, so a user who scrolled up keeps their place.
// Scrolling back to within scrolloff_margin lines of the bottom turns follow on
// again. Targets that are not visible are not polled until they are shown or
// refreshed.
package panel

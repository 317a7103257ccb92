// Package ui is the terminal front end for runpane, built on Bubble Tea.
//
// # Architecture Overview
//
// The panel state machine does not know about Bubble Tea. It talks to a
// panel.Host, and Host in this package implements that interface over a mutex
// guarded copy of what should be on screen: the terminal size, the one open
// floating surface with its lines, and the last published summary. Every
// change signals a buffered channel; the Model waits on it with a tea.Cmd and
// redraws from Host.Frame. Host methods never block on the UI, and the Model
// never holds a Host lock while calling the supervisor.
//
// # Package Structure
//
//   - app.go: Model, Options, Update/View and Run
//   - host.go: panel.Host and panel.Surface implementations
//   - dashboard.go: header, run list and footer behind the panel
//   - panel_view.go: the floating panel and the toast stack
//   - overlay.go: ANSI-aware splicing of floating regions over the dashboard
//   - keys.go, help.go: key bindings and the help overlay
//   - theme.go, style_helpers.go: color themes and background-safe rendering
//
// # Key Bindings
//
//   - o: show or hide the panel
//   - f: switch between mini and focus geometry
//   - tab / shift+tab: cycle the active run
//   - j/k, g/G, ctrl+d/u: scroll the panel; scrolling up pauses follow mode
//     and scrolling back near the bottom resumes it
//   - Space: toggle follow mode
//   - x: dismiss notices
//   - T: cycle theme (saved to the preferences file)
//   - q: quit
package ui

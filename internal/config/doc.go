// Package config builds runpane configuration snapshots from layered trees.
//
// # Layers
//
// A snapshot is the deep merge of, in increasing precedence:
//
//  1. Built-in defaults (defaults.toml, embedded in the binary)
//  2. The global layer: config.toml plus RUNPANE_* environment variables, read by Loader
//  3. Overrides passed to Setup at runtime
//  4. A named profile from the [profiles] table
//  5. Per-call overrides attached to a single run
//
// Tables merge key-wise; scalars and arrays replace. Merge never modifies its
// inputs, so every run gets its own snapshot and later Setup calls cannot change
// the configuration of a run that is already in flight.
//
// # Configuration Discovery
//
// Loader searches for config.toml in:
//
//   - $XDG_CONFIG_HOME/runpane
//   - ~/.config/runpane
//   - the current directory
//
// A missing file is not an error. An explicit path (--config) must exist and parse.
// Environment variables use the RUNPANE_ prefix with dots replaced by underscores,
// for example RUNPANE_POLL_INTERVAL=1s or RUNPANE_AUTO_HIDE_ENABLED=true.
//
// # TOML Format
//
//	max_lines = 5000
//	open_on_error = true
//
//	[mini]
//	width_scale = 0.4
//	row_anchor = "top"
//
//	[auto_hide]
//	enabled = true
//	delay = "2s"
//
//	[notifier]
//	error = ["notify-send", "-u", "critical", "{title}", "{message}"]
//
//	[profiles.tests]
//	enabled = true
//	auto_hide = { enabled = false }
//
// Durations accept Go duration strings ("500ms") or bare numbers of milliseconds.
//
// # Error Handling
//
// Resolve always returns a usable Config. A layer that cannot be decoded is
// dropped (profile and call overrides first, then the user layer) and the
// returned error says what was ignored. Values out of range are normalized:
// non-positive max_lines, max_targets and poll.interval fall back to their
// defaults, and negative delays become zero.
package config

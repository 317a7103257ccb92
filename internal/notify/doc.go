// Package notify routes run notifications to the best available backend.
//
// Three tiers are tried in order on every call: a user backend (Go functions
// installed with Router.SetUser, or the [notifier] argv templates from the
// configuration), the desktop backend (notify-send, when notifications.desktop
// is true and the binary is on PATH) and the in-app toast stack. A tier that
// returns an error or panics is skipped with a debug log entry, so a broken
// notifier never stops a run from finishing. The toast stack always accepts.
//
// Scoped notifications replace rather than stack. Runs use the key
// "run:<target id>", so a failing target shows a single persistent notice no
// matter how often it fails, and its next success clears it.
package notify

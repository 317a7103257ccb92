// Package runner starts external commands and carries each run through its
// lifecycle: spawn, status, notifications and panel visibility.
//
// # Runs
//
// Controller.Run resolves a configuration snapshot for the run (global layer,
// then profile, then per-call overrides), creates a fresh log file in the
// temporary directory named runpane-<pid>-*.log, and starts the command with
// stdout and stderr both attached to that file. Output is therefore on disk as
// soon as the process writes it and the panel can follow it while the command
// is still running. With pty enabled the command gets a pseudo-terminal instead
// and its output is copied into the same file.
//
// Log files are left in place after the run so they can be inspected later.
//
// # Exit Pipeline
//
// When the process exits, on the loop goroutine:
//
//  1. The target is polled one last time and its status set from the exit code
//  2. A success or error notification is sent; error notices persist when
//     notifications.persist_failure is set and are scoped to the target
//  3. A failure force-opens the panel when open_on_error is set
//  4. A success schedules an auto-hide when auto_hide.enabled is set and the
//     target is the one on screen
//
// A command that cannot be started still goes through this pipeline as a
// failure with exit code 127, with the reason written to its log.
//
// # Streams
//
// Controller.Stream lets an adapter register output it produces itself. With a
// Job the exit pipeline runs when Job.Wait returns; without one the adapter
// reports progress with PushStatus.
package runner

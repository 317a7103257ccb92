// Package app wires configuration, preferences, the supervisor and the
// terminal UI into one runpane session.
//
// # Startup
//
//  1. Load the global configuration layer (config.Loader)
//  2. Load UI preferences and restore the last panel mode
//  3. Create the terminal host, toast stack and supervisor
//  4. Launch the idle poller
//  5. Start the TUI; once the terminal size is known, call the Starter
//
// # Data Flow
//
//	┌──────────────┐
//	│ NewSession() │
//	└──────┬───────┘
//	       ├─────> LoadBase()          Global config tree
//	       ├─────> prefs.Load()        Theme and last mode
//	       └─────> supervisor.New()    Event loop, panel state, runner
//
//	┌──────────────┐
//	│ Run()        │
//	└──────┬───────┘
//	       ├─────> StartPoller()       Closes Done when nothing is running
//	       └─────> ui.Run()            Blocks until quit or ctx cancel
//	              └─> OnReady -> Starter(ctx, supervisor)
//
// # Errors
//
// An explicit config file that cannot be read is fatal. Invalid profile values
// are logged and defaults are used. Preferences never stop startup.
package app

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/five82/runpane/internal/app"
	"github.com/five82/runpane/internal/logging"
	"github.com/five82/runpane/internal/supervisor"
	"github.com/five82/runpane/internal/watch"
)

func newTailCmd(g *globalFlags) *cobra.Command {
	var (
		name   string
		noOpen bool
	)

	cmd := &cobra.Command{
		Use:   "tail [flags] <log-file>",
		Short: "Follow a log file written by another program",
		Long: `Tail shows a log file in the panel and refreshes it whenever the file is
written. The file may not exist yet. Disable with [profiles.tail] enabled = false.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if name == "" {
				name = filepath.Base(path)
			}
			opts := watch.Options{
				Path:   path,
				Name:   name,
				Logger: logging.Component("tail"),
			}
			if noOpen {
				open := false
				opts.Open = &open
			}

			session, err := app.NewSession(g.appOptions(false))
			if err != nil {
				return err
			}
			defer session.Close()

			t, err := watch.New(session.Supervisor, opts)
			if err != nil {
				return fmt.Errorf("tail %s: %w", path, err)
			}

			return session.Run(cmd.Context(), func(ctx context.Context, _ *supervisor.Supervisor) error {
				if _, err := t.Start(); err != nil {
					return err
				}
				go func() {
					if err := t.Run(ctx); err != nil {
						lg := logging.Component("tail")
						lg.Warn().Err(err).Str("path", path).Msg("tail stopped")
					}
				}()
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "target name (default: file name)")
	cmd.Flags().BoolVar(&noOpen, "no-open", false, "do not show the panel right away")
	return cmd
}

package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/crowdwave/reactoxide/internal/logging"
	"github.com/crowdwave/reactoxide/internal/tui"
	"github.com/crowdwave/reactoxide/internal/workspace"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the editor shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx)
			if err != nil {
				return err
			}

			ws := workspace.New(store, workspace.Options{MaxFileSize: cfg.MaxFileSize})
			if err := ws.Mount(ctx); err != nil {
				return err
			}
			defer ws.Close()

			model := tui.New(ws)
			defer model.Close()

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run ui: %w", err)
			}
			logging.Info("editor closed")
			return nil
		},
	}
}

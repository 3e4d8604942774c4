package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/crowdwave/reactoxide/internal/bus"
	"github.com/crowdwave/reactoxide/internal/commands"
	"github.com/crowdwave/reactoxide/internal/models"
	"github.com/crowdwave/reactoxide/internal/workspace"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <remote-dir> <file>...",
		Short: "Upload local files into a remote directory",
		Args:  cobra.MinimumNArgs(2),
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

			out := cmd.OutOrStdout()
			bus.Subscribe(ws.Bus, bus.OnFileUploadProgress, func(p models.UploadProgress) {
				if p.Loaded == p.Total {
					fmt.Fprintf(out, "%s  Uploaded %s\n", p.Filename, humanize.Bytes(uint64(p.Total)))
				}
			})
			var failure error
			bus.Subscribe(ws.Bus, bus.OnOperationFailed, func(f models.OperationFailed) {
				failure = f.Err
			})

			ws.Upload.Arm(models.NewEntry(args[0], models.Directory))
			ws.Upload.SetFiles(commands.LocalFiles(args[1:]))
			for _, f := range ws.Upload.Oversized() {
				fmt.Fprintln(cmd.ErrOrStderr(), ws.Upload.Describe(f))
			}
			if err := ws.Upload.Submit(); err != nil {
				return err
			}
			ws.Wait()
			return failure
		},
	}
}

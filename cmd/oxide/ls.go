package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/crowdwave/reactoxide/internal/remote"
	"github.com/crowdwave/reactoxide/pkg/pathutil"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := pathutil.Root
			if len(args) == 1 {
				dir = args[0]
			}

			store, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := store.List(cmd.Context(), dir)
			if err != nil {
				return err
			}
			sort.Slice(infos, func(i, j int) bool {
				if infos[i].IsDir != infos[j].IsDir {
					return infos[i].IsDir
				}
				return infos[i].Name < infos[j].Name
			})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, fi := range infos {
				fmt.Fprintln(w, formatInfo(fi))
			}
			return w.Flush()
		},
	}
}

func formatInfo(fi remote.FileInfo) string {
	size, name := humanize.Bytes(uint64(fi.Size)), fi.Name
	if fi.IsDir {
		size, name = "-", name+"/"
	}
	modified := "-"
	if !fi.ModTime.IsZero() {
		modified = humanize.Time(fi.ModTime)
	}
	return fmt.Sprintf("%s\t%s\t%s", size, modified, name)
}

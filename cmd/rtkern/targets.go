package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"omibyte.io/rtkern/targets"
)

func newTargetsCmd() *cobra.Command {
	var arch string

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List the known targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := targets.All()
			if len(arch) > 0 {
				list = list.FindByArchitecture(arch)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tARCH\tWORD\tSTACK\tFRAME\tDESCRIPTION")
			for _, t := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
					t.Name, t.Architecture, t.WordSize, convention(t), t.Arch().FrameWords(), t.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&arch, "arch", "a", "", "only list targets of this architecture")
	return cmd
}

// convention names the stack convention the usual way: full or empty,
// ascending or descending.
func convention(t targets.TargetInfo) string {
	s := "full"
	if t.SPOnEmptySlot {
		s = "empty"
	}
	if t.StackGrowsUp {
		return s + " ascending"
	}
	return s + " descending"
}

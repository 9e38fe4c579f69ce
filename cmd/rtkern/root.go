package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rtkern",
		Short: "Run the rtkern scheduler on the hosted machine",
		Long: "rtkern runs the cooperative, optionally preemptive, process scheduler on an emulated " +
			"CPU so workloads can be traced and stack usage measured on the development host.",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newTargetsCmd(),
		newConfigCmd(),
	)
	return root
}

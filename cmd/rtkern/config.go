package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"omibyte.io/rtkern/config"
)

func newConfigCmd() *cobra.Command {
	var (
		path   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after applying the file and the RTKERN_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "yaml":
				data, err = cfg.Marshal()
			case "toml":
				data, err = cfg.EncodeTOML()
			default:
				return fmt.Errorf("%w: %s", config.ErrFormat, format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", os.Getenv("RTKERN_CONFIG"), "configuration file (.yaml or .toml)")
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (=yaml, =toml)")
	return cmd
}

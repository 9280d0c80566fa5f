package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aexvir/pandoc/install"
)

func (a *app) installCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the latest pandoc release",
		Long: `Download the latest pandoc release and unpack it into the installation
directory, replacing anything already there.`,
		Example: `  # Install for the running platform
  pandocw install

  # Fetch the windows build from a linux machine
  pandocw install --platform windows --dir ./pandoc-windows`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.config.InstallOptions()
			if err != nil {
				return err
			}

			var target *install.Platform
			if platform != "" {
				p, err := install.ParsePlatform(platform)
				if err != nil {
					return err
				}
				target = &p
			}

			inst, err := install.New(cmd.Context(), opts...)
			if err != nil {
				return fmt.Errorf("failed to prepare installation: %w", err)
			}

			var path string
			if target != nil {
				path, err = inst.InstallFor(cmd.Context(), *target)
			} else {
				path, err = inst.Install(cmd.Context())
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "platform key to install for (windows, macos-amd64, macos-arm64, linux-amd64, linux-arm64)")

	return cmd
}

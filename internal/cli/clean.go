package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aexvir/pandoc/install"
)

func (a *app) cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Empty the installation directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, err := filepath.Abs(a.config.InstallDir)
			if err != nil {
				return fmt.Errorf("failed to resolve installation directory: %w", err)
			}

			install.ClearDirectory(directory)
			return nil
		},
	}
}

// Package cli implements the pandocw command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aexvir/pandoc/config"
	"github.com/aexvir/pandoc/internal/logging"
)

// app carries the state shared by every subcommand.
type app struct {
	configFile string
	directory  string

	config *config.Config
}

// NewRootCmd builds the pandocw command tree.
func NewRootCmd() *cobra.Command {
	var a app

	root := &cobra.Command{
		Use:   "pandocw",
		Short: "Provision and run pandoc",
		Long: `pandocw runs pandoc, downloading the latest release from GitHub for the
running platform when no working pandoc is available.

Settings come from pandoc.yaml, in the current directory or in the user
configuration directory, and from PANDOC_ prefixed environment variables.

Examples:
  # Convert markdown to latex, installing pandoc if needed
  pandocw convert --from markdown --to latex -o out.tex README.md

  # Install the latest release into ./pandoc
  pandocw install

  # Show the assets of the latest release
  pandocw release`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries pandoc output and installed paths, logs follow the error stream
			if w := cmd.ErrOrStderr(); w != os.Stderr {
				logging.SetOutput(w)
			}
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: pandoc.yaml if present)")
	root.PersistentFlags().StringVar(&a.directory, "dir", "", "installation directory (default: ./pandoc)")

	root.SuggestionsMinimumDistance = 2

	root.AddCommand(
		a.installCmd(),
		a.checkCmd(),
		a.releaseCmd(),
		a.convertCmd(),
		a.cleanCmd(),
	)

	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	if a.directory != "" {
		cfg.InstallDir = a.directory
	}

	a.config = cfg
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aexvir/pandoc"
	"github.com/aexvir/pandoc/install"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether pandoc can be run",
		Long: `Run pandoc --version and print the version, failing when pandoc is not
available.

The configured binary is tried first; when it can't be run, the copy
unpacked by "pandocw install" into the installation directory is tried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := pandoc.New(nil, pandoc.WithBinary(a.config.Binary), pandoc.WithRunnerOpts(a.config.RunnerOpts()...))

			res := p.Probe(cmd.Context())
			if !res.Success {
				opts, err := a.config.InstallOptions()
				if err != nil {
					return err
				}

				if path, ok := install.NewLazy(cmd.Context(), opts...).Installed(); ok {
					p = pandoc.New(nil, pandoc.WithBinary(path), pandoc.WithRunnerOpts(a.config.RunnerOpts()...))
					res = p.Probe(cmd.Context())
				}
			}

			if !res.Success {
				return fmt.Errorf("pandoc not available at %s nor in %s", a.config.Binary, a.config.InstallDir)
			}

			version := p.Binary()
			if len(res.Stdout) > 0 {
				version = res.Stdout[0]
			}
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

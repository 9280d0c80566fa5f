package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aexvir/pandoc/install"
)

func (a *app) releaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Show the latest pandoc release",
		Long:  `Query the release feed and show the asset matching every platform.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := a.config.Catalog().FetchLatest(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pandoc %s\n\n", release.Tag)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PLATFORM\tASSET\tURL")
			for _, p := range install.Platforms() {
				asset, err := release.AssetFor(p.AssetSuffix())
				if err != nil {
					fmt.Fprintf(w, "%s\t-\t-\n", p)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p, asset.Name, asset.DownloadURL)
			}
			return w.Flush()
		},
	}
}

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aexvir/pandoc"
	"github.com/aexvir/pandoc/install"
)

// ErrConversionFailed is returned when pandoc exits with an error.
var ErrConversionFailed = errors.New("conversion failed")

type convertFlags struct {
	from       string
	to         string
	output     string
	standalone bool
	toc        bool
	metadata   []string
	variables  []string
	filters    []string
	luafilters []string
	extra      []string
	outfile    string
	errfile    string
	noinstall  bool
}

func (f convertFlags) command(inputs []string) (pandoc.Command, error) {
	var opts []pandoc.Option

	if f.from != "" {
		opts = append(opts, pandoc.From(f.from))
	}
	if f.to != "" {
		opts = append(opts, pandoc.To(f.to))
	}
	if f.output != "" {
		opts = append(opts, pandoc.Output(f.output))
	}
	if f.standalone {
		opts = append(opts, pandoc.Standalone())
	}
	if f.toc {
		opts = append(opts, pandoc.TableOfContents())
	}
	for _, kv := range f.metadata {
		key, value, _ := strings.Cut(kv, "=")
		opts = append(opts, pandoc.Metadata(key, value))
	}
	for _, kv := range f.variables {
		key, value, _ := strings.Cut(kv, "=")
		opts = append(opts, pandoc.Variable(key, value))
	}
	for _, filter := range f.filters {
		opts = append(opts, pandoc.Filter(filter))
	}
	for _, filter := range f.luafilters {
		opts = append(opts, pandoc.LuaFilter(filter))
	}
	for _, raw := range f.extra {
		opt, err := parseOption(raw)
		if err != nil {
			return pandoc.Command{}, err
		}
		opts = append(opts, opt)
	}

	return pandoc.NewCommand(opts...).Input(inputs...), nil
}

// parseOption turns name or name=value into an option, without the leading dashes.
func parseOption(raw string) (pandoc.Option, error) {
	raw = strings.TrimLeft(raw, "-")
	if raw == "" {
		return nil, fmt.Errorf("invalid pandoc option %q", raw)
	}

	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		return pandoc.Flag{Name: name}, nil
	}
	return pandoc.Value{Name: name, Value: value}, nil
}

func (a *app) convertCmd() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert [flags] [input...]",
		Short: "Run a pandoc conversion",
		Long: `Run pandoc on the given input files, installing it first when the
configured binary can't be run.

Without inputs pandoc reads from stdin.`,
		Example: `  pandocw convert --from markdown --to html -s -o index.html README.md
  pandocw convert -t latex -M title="Annual report" -V geometry=margin=1in report.md -o report.tex
  pandocw convert --opt number-sections --opt shift-heading-level-by=1 notes.md -o notes.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := flags.command(args)
			if err != nil {
				return err
			}

			var installer pandoc.Installer
			if !flags.noinstall {
				opts, err := a.config.InstallOptions()
				if err != nil {
					return err
				}
				installer = install.NewLazy(cmd.Context(), opts...)
			}

			p := pandoc.New(
				installer,
				pandoc.WithBinary(a.config.Binary),
				pandoc.WithRunnerOpts(a.config.RunnerOpts()...),
			)

			runopts := []pandoc.RunnerOpt{pandoc.WithStdIn(cmd.InOrStdin())}
			if flags.outfile != "" {
				runopts = append(runopts, pandoc.WithOutputFile(flags.outfile))
			} else {
				runopts = append(runopts, pandoc.WithStdOut(cmd.OutOrStdout()))
			}
			if flags.errfile != "" {
				runopts = append(runopts, pandoc.WithErrorFile(flags.errfile))
			}

			return p.Use(cmd.Context(), func(p *pandoc.Pandoc) error {
				if !p.Execute(cmd.Context(), command, runopts...) {
					return ErrConversionFailed
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&flags.from, "from", "f", "", "input format")
	cmd.Flags().StringVarP(&flags.to, "to", "t", "", "output format")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file, stdout if empty")
	cmd.Flags().BoolVarP(&flags.standalone, "standalone", "s", false, "produce a standalone document")
	cmd.Flags().BoolVar(&flags.toc, "toc", false, "include a table of contents")
	cmd.Flags().StringArrayVarP(&flags.metadata, "metadata", "M", nil, "metadata field as key=value")
	cmd.Flags().StringArrayVarP(&flags.variables, "variable", "V", nil, "template variable as key=value")
	cmd.Flags().StringArrayVarP(&flags.filters, "filter", "F", nil, "json filter to run")
	cmd.Flags().StringArrayVarP(&flags.luafilters, "lua-filter", "L", nil, "lua filter to run")
	cmd.Flags().StringArrayVar(&flags.extra, "opt", nil, "any other pandoc option as name or name=value")
	cmd.Flags().StringVar(&flags.outfile, "stdout-file", "", "append pandoc stdout to this file")
	cmd.Flags().StringVar(&flags.errfile, "stderr-file", "", "write the exit code and pandoc stderr to this file on failure")
	cmd.Flags().BoolVar(&flags.noinstall, "no-install", false, "fail instead of installing pandoc when missing")

	return cmd
}

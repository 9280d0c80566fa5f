// Package pandoc runs pandoc as a subprocess, installing it first when it
// isn't available.
//
// Commands are built out of [Option] values, rendered to command line
// arguments only when the process is spawned. Running a command never fails
// with an error: a failed conversion is a routine outcome, so it is reported
// through [Result] instead.
//
// example usage
//
//	installer, err := install.New(ctx, install.WithDirectory("./pandoc"))
//	if err != nil {
//		return fmt.Errorf("failed to query pandoc releases: %w", err)
//	}
//
//	converter := pandoc.New(installer)
//	if _, err := converter.Ensure(ctx); err != nil {
//		return fmt.Errorf("failed to provision pandoc: %w", err)
//	}
//
//	ok := converter.Execute(
//		ctx,
//		pandoc.NewCommand(pandoc.From("markdown"), pandoc.To("latex"), pandoc.Output("out.tex")).
//			Input("README.md"),
//		pandoc.WithErrorFile("pandoc.err"),
//	)
package pandoc

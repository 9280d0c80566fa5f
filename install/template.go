package install

import (
	"strings"
	"text/template"
)

// Template contains the values available to layout templates, which locate the
// pandoc executable inside an unpacked release archive.
// e.g. "pandoc-{{.Version}}/bin/pandoc{{.Extension}}"
type Template struct {
	// Platform key of the build (e.g., "linux-amd64", "macos-arm64")
	Platform string
	// Version is the release tag as published (e.g., "3.1.11.1")
	Version string
	// Extension is the executable extension.
	// Empty on unix systems and ".exe" on windows.
	Extension string
	// Archive is the file extension of the release archive (".zip" or ".tar.gz")
	Archive string
}

func newTemplate(p Platform, version string) Template {
	return Template{
		Platform:  p.String(),
		Version:   version,
		Extension: p.Extension(),
		Archive:   p.Format().Extension(),
	}
}

// Resolve executes the provided format string as a template with the Template's fields.
// It returns the resolved string and any error that occurred during template parsing or execution.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("layout").Option("missingkey=error").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}

// MustResolve executes the provided format string as a template with the Template's fields.
// Panics if the template can't be resolved correctly.
func (t Template) MustResolve(format string) string {
	resolved, err := t.Resolve(format)
	if err != nil {
		panic(err)
	}
	return resolved
}

package pandoc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOption_Arg(t *testing.T) {
	tests := []struct {
		name     string
		option   Option
		expected string
	}{
		{"flag", Flag{"standalone"}, "--standalone"},
		{"value", Value{"from", "markdown"}, "--from=markdown"},
		{"path", Path{"output", "out/../out.tex"}, "--output=" + filepath.Clean("out.tex")},
		{"version", Version(), "--version"},
		{"to", To("latex"), "--to=latex"},
		{"metadata", Metadata("title", "Report"), "--metadata=title:Report"},
		{"metadata without value", Metadata("draft", ""), "--metadata=draft"},
		{"variable", Variable("geometry", "margin=1in"), "--variable=geometry:margin=1in"},
		{"list extensions", ListExtensions(""), "--list-extensions"},
		{"list extensions of format", ListExtensions("gfm"), "--list-extensions=gfm"},
		{"shift headings", ShiftHeadingLevelBy(-1), "--shift-heading-level-by=-1"},
		{"toc depth", TOCDepth(2), "--toc-depth=2"},
		{"resource path", ResourcePath("a", "b"), "--resource-path=a" + string(filepath.ListSeparator) + "b"},
		{"request header", RequestHeader("User-Agent", "pandocw"), "--request-header=User-Agent:pandocw"},
		{"lua filter", LuaFilter("filters/wordcount.lua"), "--lua-filter=" + filepath.Clean("filters/wordcount.lua")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.option.Arg())
		})
	}
}

func TestDataDir_Absolute(t *testing.T) {
	opt, ok := DataDir("templates").(Path)
	require.True(t, ok)

	assert.Equal(t, "data-dir", opt.Name)
	assert.True(t, filepath.IsAbs(opt.Path), opt.Path)
}

func TestCommand_Args(t *testing.T) {
	cmd := NewCommand(From("markdown"), To("latex"), Standalone()).Input("first.md", "second.md")

	assert.Equal(
		t,
		[]string{"--from=markdown", "--to=latex", "--standalone", "first.md", "second.md"},
		cmd.Args(),
	)
	assert.Equal(t, "--from=markdown --to=latex --standalone first.md second.md", cmd.String())
}

func TestCommand_NoInputs(t *testing.T) {
	assert.Equal(t, []string{"--version"}, NewCommand(Version()).Args())
	assert.Empty(t, Command{}.Args())
}

func TestCommand_Immutable(t *testing.T) {
	base := NewCommand(From("markdown")).Input("base.md")

	html := base.With(To("html")).Input("extra.md")
	latex := base.With(To("latex"))

	assert.Equal(t, []string{"--from=markdown", "base.md"}, base.Args())
	assert.Equal(t, []string{"--from=markdown", "--to=html", "base.md", "extra.md"}, html.Args())
	assert.Equal(t, []string{"--from=markdown", "--to=latex", "base.md"}, latex.Args())
}

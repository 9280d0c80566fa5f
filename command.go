package pandoc

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Option is a single pandoc command line option.
// Options are kept as values and only turned into strings when the process is spawned.
type Option interface {
	// Arg renders the option as a single command line argument.
	Arg() string
}

// Flag is an option without value, rendered as --name.
type Flag struct {
	Name string
}

func (f Flag) Arg() string {
	return "--" + f.Name
}

// Value is an option carrying a value, rendered as --name=value.
type Value struct {
	Name  string
	Value string
}

func (v Value) Arg() string {
	return "--" + v.Name + "=" + v.Value
}

// Path is an option pointing at a file or directory, rendered as --name=path.
type Path struct {
	Name string
	Path string
}

func (p Path) Arg() string {
	return "--" + p.Name + "=" + filepath.Clean(p.Path)
}

// Command is a pandoc invocation: an ordered list of options followed by input files.
type Command struct {
	Options []Option
	Inputs  []string
}

// NewCommand builds a command out of the given options.
func NewCommand(opts ...Option) Command {
	return Command{Options: opts}
}

// With returns a copy of the command with opts appended.
func (c Command) With(opts ...Option) Command {
	options := make([]Option, 0, len(c.Options)+len(opts))
	options = append(options, c.Options...)
	options = append(options, opts...)

	return Command{Options: options, Inputs: c.Inputs}
}

// Input returns a copy of the command with files appended to the inputs.
func (c Command) Input(files ...string) Command {
	inputs := make([]string, 0, len(c.Inputs)+len(files))
	inputs = append(inputs, c.Inputs...)
	inputs = append(inputs, files...)

	return Command{Options: c.Options, Inputs: inputs}
}

// Args renders the options, in order, followed by the input files.
func (c Command) Args() []string {
	args := make([]string, 0, len(c.Options)+len(c.Inputs))
	for _, opt := range c.Options {
		args = append(args, opt.Arg())
	}
	return append(args, c.Inputs...)
}

func (c Command) String() string {
	return strings.Join(c.Args(), " ")
}

// information

func Version() Option           { return Flag{"version"} }
func Help() Option              { return Flag{"help"} }
func ListInputFormats() Option  { return Flag{"list-input-formats"} }
func ListOutputFormats() Option { return Flag{"list-output-formats"} }
func ListHighlightStyles() Option {
	return Flag{"list-highlight-styles"}
}
func ListHighlightLanguages() Option {
	return Flag{"list-highlight-languages"}
}

// ListExtensions lists the extensions supported by format, or by markdown if empty.
func ListExtensions(format string) Option {
	if format == "" {
		return Flag{"list-extensions"}
	}
	return Value{"list-extensions", format}
}

// general

func From(format string) Option { return Value{"from", format} }
func To(format string) Option   { return Value{"to", format} }
func Output(file string) Option { return Path{"output", file} }

// DataDir sets the user data directory; the path is made absolute since
// pandoc resolves it against its own working directory.
func DataDir(dir string) Option {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return Path{"data-dir", dir}
}

func Defaults(file string) Option { return Path{"defaults", file} }
func Verbose() Option             { return Flag{"verbose"} }
func Quiet() Option               { return Flag{"quiet"} }
func FailIfWarnings() Option      { return Flag{"fail-if-warnings"} }
func Log(file string) Option      { return Path{"log", file} }
func Sandbox() Option             { return Flag{"sandbox"} }
func Trace() Option               { return Flag{"trace"} }

// reader

func ShiftHeadingLevelBy(n int) Option { return Value{"shift-heading-level-by", strconv.Itoa(n)} }
func Filter(program string) Option     { return Path{"filter", program} }
func LuaFilter(script string) Option   { return Path{"lua-filter", script} }
func MetadataFile(file string) Option  { return Path{"metadata-file", file} }
func FileScope() Option                { return Flag{"file-scope"} }
func PreserveTabs() Option             { return Flag{"preserve-tabs"} }
func TabStop(n int) Option             { return Value{"tab-stop", strconv.Itoa(n)} }
func TrackChanges(mode string) Option  { return Value{"track-changes", mode} }
func ExtractMedia(dir string) Option   { return Path{"extract-media", dir} }

// Metadata sets a metadata field; an empty value sets it to true.
func Metadata(key, value string) Option {
	if value == "" {
		return Value{"metadata", key}
	}
	return Value{"metadata", key + ":" + value}
}

// writer

func Standalone() Option          { return Flag{"standalone"} }
func Template(file string) Option { return Path{"template", file} }
func EOL(style string) Option     { return Value{"eol", style} }
func DPI(n int) Option            { return Value{"dpi", strconv.Itoa(n)} }
func Wrap(strategy string) Option { return Value{"wrap", strategy} }
func Columns(n int) Option        { return Value{"columns", strconv.Itoa(n)} }
func TableOfContents() Option     { return Flag{"table-of-contents"} }
func TOCDepth(n int) Option       { return Value{"toc-depth", strconv.Itoa(n)} }
func StripComments() Option       { return Flag{"strip-comments"} }
func NoHighlight() Option         { return Flag{"no-highlight"} }
func HighlightStyle(style string) Option {
	return Value{"highlight-style", style}
}
func IncludeInHeader(file string) Option   { return Path{"include-in-header", file} }
func IncludeBeforeBody(file string) Option { return Path{"include-before-body", file} }
func IncludeAfterBody(file string) Option  { return Path{"include-after-body", file} }
func ResourcePath(paths ...string) Option {
	return Value{"resource-path", strings.Join(paths, string(filepath.ListSeparator))}
}
func EmbedResources() Option { return Flag{"embed-resources"} }
func NumberSections() Option { return Flag{"number-sections"} }
func PDFEngine(engine string) Option {
	return Value{"pdf-engine", engine}
}

// Variable sets a template variable; an empty value sets it to true.
func Variable(key, value string) Option {
	if value == "" {
		return Value{"variable", key}
	}
	return Value{"variable", key + ":" + value}
}

// RequestHeader sets a header used when pandoc fetches remote resources.
func RequestHeader(name, value string) Option {
	return Value{"request-header", name + ":" + value}
}

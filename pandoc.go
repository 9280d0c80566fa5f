package pandoc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aexvir/pandoc/internal/logging"
)

// DefaultBinary is the executable looked up in PATH before installing anything.
const DefaultBinary = "pandoc"

// ErrNoInstaller is returned when pandoc has to be installed but no installer was provided.
var ErrNoInstaller = errors.New("no installer configured")

// Installer provisions a pandoc executable.
// [github.com/aexvir/pandoc/install.Installer] is the implementation downloading
// the latest release from GitHub.
type Installer interface {
	// Install installs pandoc returning the path of the executable.
	Install(ctx context.Context) (string, error)
	// Installed returns the path of a previously installed executable, if any.
	Installed() (string, bool)
}

// Pandoc runs pandoc commands against a resolved executable, installing it when needed.
// The executable path lives on the value so independent instances never
// interfere with each other.
type Pandoc struct {
	mu     sync.RWMutex
	binary string

	installer Installer
	runopts   []RunnerOpt
}

type PandocOpt func(p *Pandoc)

// WithBinary sets the executable tried first, by default pandoc from PATH.
func WithBinary(binary string) PandocOpt {
	return func(p *Pandoc) {
		p.binary = binary
	}
}

// WithRunnerOpts sets runner options applied to every command.
func WithRunnerOpts(opts ...RunnerOpt) PandocOpt {
	return func(p *Pandoc) {
		p.runopts = append(p.runopts, opts...)
	}
}

// New creates a pandoc wrapper; installer may be nil when pandoc is expected
// to be available already.
func New(installer Installer, opts ...PandocOpt) *Pandoc {
	p := Pandoc{
		binary:    DefaultBinary,
		installer: installer,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return &p
}

// Binary returns the executable commands are run with.
func (p *Pandoc) Binary() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.binary
}

func (p *Pandoc) use(binary string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.binary = binary
}

// Probe runs pandoc --version quietly.
func (p *Pandoc) Probe(ctx context.Context) Result {
	return p.Run(ctx, NewCommand(Version()), WithoutNoise())
}

// IsInstalled reports whether the current executable can be run.
func (p *Pandoc) IsInstalled(ctx context.Context) bool {
	return p.Probe(ctx).Success
}

// Install installs pandoc through the installer and switches to the installed executable.
func (p *Pandoc) Install(ctx context.Context) (string, error) {
	if p.installer == nil {
		return "", ErrNoInstaller
	}

	binary, err := p.installer.Install(ctx)
	if err != nil {
		return "", err
	}

	p.use(binary)
	return binary, nil
}

// Ensure makes sure a working pandoc is available and returns its path.
// The current executable is tried first, then a copy installed earlier, and
// only then a fresh install is performed.
func (p *Pandoc) Ensure(ctx context.Context) (string, error) {
	if p.IsInstalled(ctx) {
		return p.Binary(), nil
	}

	logging.Detail(fmt.Sprintf("%s not available", p.Binary()))

	if p.installer == nil {
		return "", fmt.Errorf("pandoc not found: %w", ErrNoInstaller)
	}

	if binary, ok := p.installer.Installed(); ok {
		previous := p.Binary()
		p.use(binary)
		if p.IsInstalled(ctx) {
			logging.Detail(fmt.Sprintf("using pandoc installed at %s", binary))
			return binary, nil
		}
		p.use(previous)
	}

	binary, err := p.Install(ctx)
	if err != nil {
		return "", err
	}

	if !p.IsInstalled(ctx) {
		return "", fmt.Errorf("installed pandoc at %s can't be run", binary)
	}
	return binary, nil
}

// Use runs fn once pandoc is available.
func (p *Pandoc) Use(ctx context.Context, fn func(p *Pandoc) error) error {
	if _, err := p.Ensure(ctx); err != nil {
		return err
	}
	return fn(p)
}

// Run executes cmd, returning the full result.
func (p *Pandoc) Run(ctx context.Context, cmd Command, opts ...RunnerOpt) Result {
	argv := append([]string{p.Binary()}, cmd.Args()...)

	runopts := make([]RunnerOpt, 0, len(p.runopts)+len(opts))
	runopts = append(runopts, p.runopts...)
	runopts = append(runopts, opts...)

	return Run(ctx, argv, runopts...)
}

// Execute executes cmd and reports whether it succeeded.
func (p *Pandoc) Execute(ctx context.Context, cmd Command, opts ...RunnerOpt) bool {
	return p.Run(ctx, cmd, opts...).Success
}

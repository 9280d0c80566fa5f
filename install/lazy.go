package install

import (
	"context"
	"sync"
)

// Lazy defers building the [Installer], and so querying the release feed,
// until it's needed for the first time.
// The outcome of that first attempt, failure included, is kept for good.
type Lazy struct {
	// ctx is only used when the first call is Installed, which takes no
	// context so that Lazy fits the lookup signature of [Installer].
	ctx  context.Context
	opts []Option

	once sync.Once
	inst *Installer
	err  error
}

// NewLazy returns an installer built with opts on first use.
// ctx bounds that construction when it's triggered by [Lazy.Installed];
// [Lazy.Get] and [Lazy.Install] use the context they are given.
func NewLazy(ctx context.Context, opts ...Option) *Lazy {
	return &Lazy{ctx: ctx, opts: opts}
}

// Get builds the installer the first time it's called, bounded by ctx.
func (l *Lazy) Get(ctx context.Context) (*Installer, error) {
	l.once.Do(func() {
		l.inst, l.err = New(ctx, l.opts...)
	})
	return l.inst, l.err
}

// Install builds the installer if needed and installs pandoc for the running platform.
func (l *Lazy) Install(ctx context.Context) (string, error) {
	inst, err := l.Get(ctx)
	if err != nil {
		return "", err
	}
	return inst.Install(ctx)
}

// Installed reports a previously installed executable; an installer that
// can't be built has nothing installed.
func (l *Lazy) Installed() (string, bool) {
	inst, err := l.Get(l.ctx)
	if err != nil {
		return "", false
	}
	return inst.Installed()
}

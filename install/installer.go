package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aexvir/pandoc/internal/logging"
)

// DefaultDirectory is where pandoc gets installed unless told otherwise.
const DefaultDirectory = "./pandoc"

// Feed provides the latest published release.
// [*Catalog] is the implementation backed by the GitHub releases api.
type Feed interface {
	FetchLatest(ctx context.Context) (Release, error)
}

// Target holds everything needed to install pandoc for one platform.
type Target struct {
	Platform Platform
	// URL the release archive is downloaded from.
	URL string
	// Archive is the local path the archive is saved to.
	Archive string
	// Binary is the location of the executable once the archive is unpacked.
	Binary string
}

// Installer downloads and unpacks the latest pandoc release into a directory
// it exclusively owns.
//
// All the per platform targets are computed once by [New] and never change
// afterwards, so an Installer can be shared for lookups. Installing is not
// safe for concurrent use on the same directory.
type Installer struct {
	directory string
	platform  Platform
	detect    func(ctx context.Context) (Platform, error)

	feed    Feed
	fetcher *Fetcher
	layouts map[Platform]string

	release Release
	targets map[Platform]Target
}

type Option func(i *Installer)

// WithDirectory sets the installation directory.
// Everything inside of it is removed on every install.
func WithDirectory(directory string) Option {
	return func(i *Installer) {
		i.directory = directory
	}
}

// WithFeed replaces the release feed, by default the GitHub latest release of pandoc.
func WithFeed(feed Feed) Option {
	return func(i *Installer) {
		i.feed = feed
	}
}

// WithFetcher replaces the default [Fetcher].
func WithFetcher(fetcher *Fetcher) Option {
	return func(i *Installer) {
		i.fetcher = fetcher
	}
}

// WithLayout overrides the template locating the executable inside the unpacked
// archive of a platform; see [Template] for the available fields.
func WithLayout(platform Platform, layout string) Option {
	return func(i *Installer) {
		i.layouts[platform] = layout
	}
}

// WithPlatform skips detection and installs the build of the given platform.
func WithPlatform(platform Platform) Option {
	return func(i *Installer) {
		i.detect = func(context.Context) (Platform, error) { return platform, nil }
	}
}

// New resolves the current platform, queries the release feed and computes the
// install target of every platform.
// Failing any of those steps is fatal: no installer is returned.
func New(ctx context.Context, opts ...Option) (*Installer, error) {
	inst := Installer{
		directory: DefaultDirectory,
		detect:    Detect,
		layouts:   make(map[Platform]string),
	}

	for _, opt := range opts {
		opt(&inst)
	}

	if inst.feed == nil {
		inst.feed = NewCatalog(DefaultFeedURL)
	}
	if inst.fetcher == nil {
		inst.fetcher = NewFetcher()
	}

	directory, err := filepath.Abs(inst.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve installation directory %s: %w", inst.directory, err)
	}
	inst.directory = directory

	inst.platform, err = inst.detect(ctx)
	if err != nil {
		return nil, err
	}

	inst.release, err = inst.feed.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}

	inst.targets, err = targets(inst.release, inst.directory, inst.layouts)
	if err != nil {
		return nil, err
	}

	return &inst, nil
}

func targets(release Release, directory string, layouts map[Platform]string) (map[Platform]Target, error) {
	table := make(map[Platform]Target, len(platforms))

	for _, p := range Platforms() {
		asset, err := release.AssetFor(p.AssetSuffix())
		if err != nil {
			return nil, err
		}

		layout, ok := layouts[p]
		if !ok {
			layout = p.Layout()
		}

		binary, err := newTemplate(p, release.Tag).Resolve(layout)
		if err != nil {
			return nil, fmt.Errorf("invalid layout for %s: %w", p, err)
		}

		table[p] = Target{
			Platform: p,
			URL:      asset.DownloadURL,
			Archive:  filepath.Join(directory, "pandoc"+p.Format().Extension()),
			Binary:   filepath.Join(directory, filepath.FromSlash(binary)),
		}
	}

	return table, nil
}

// Release returns the release the targets were computed from.
func (i *Installer) Release() Release {
	return i.release
}

// Platform returns the platform of the running machine.
func (i *Installer) Platform() Platform {
	return i.platform
}

// Directory returns the absolute path of the installation directory.
func (i *Installer) Directory() string {
	return i.directory
}

// Target returns the install target of a platform.
func (i *Installer) Target(p Platform) (Target, bool) {
	target, ok := i.targets[p]
	return target, ok
}

// Installed returns the path of the executable for the running platform if it
// was already unpacked, by this or a previous process.
func (i *Installer) Installed() (string, bool) {
	target := i.targets[i.platform]

	info, err := os.Stat(target.Binary)
	if err != nil || info.IsDir() {
		return "", false
	}
	return target.Binary, true
}

// Install installs pandoc for the running platform, returning the path of the executable.
func (i *Installer) Install(ctx context.Context) (string, error) {
	return i.InstallFor(ctx, i.platform)
}

// InstallFor clears the installation directory, then downloads, unpacks and
// marks as executable the pandoc build of the given platform.
// The first failing step aborts the installation with an [*InstallError].
func (i *Installer) InstallFor(ctx context.Context, p Platform) (string, error) {
	target, ok := i.targets[p]
	if !ok {
		return "", &InstallError{Platform: p, Reason: "unknown platform", Err: ErrUnsupportedPlatform}
	}

	logging.Step(fmt.Sprintf("installing pandoc %s for %s", i.release.Tag, p))

	i.Clear()

	if err := i.fetcher.SaveWithRetry(ctx, target.URL, target.Archive); err != nil {
		return "", &InstallError{Platform: p, Reason: "could not save file", Err: err}
	}

	if err := Extract(target.Archive, i.directory, p.Format()); err != nil {
		return "", &InstallError{Platform: p, Reason: "could not unzip file", Err: err}
	}

	if err := executable(target.Binary); err != nil {
		return "", &InstallError{Platform: p, Reason: "could not make pandoc executable", Err: err}
	}

	logging.Info("pandoc %s installed at %s", i.release.Tag, target.Binary)
	return target.Binary, nil
}

// Clear removes everything inside the installation directory.
// Failures are only logged; a directory that doesn't exist yet is fine.
func (i *Installer) Clear() {
	ClearDirectory(i.directory)
}

// ClearDirectory removes everything inside directory, logging instead of
// failing when it can't.
func ClearDirectory(directory string) {
	logging.Detail(fmt.Sprintf("clearing %s", directory))

	entries, err := os.ReadDir(directory)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		logging.Warn("could not clean installation directory: %s", err)
		return
	}

	start := time.Now()
	var failed error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(directory, entry.Name())); err != nil {
			failed = errors.Join(failed, err)
		}
	}

	if failed != nil {
		logging.Warn("could not clean installation directory: %s", failed)
		return
	}
	logging.Elapsed(start, nil)
}

// executable adds the execute permission bits for everyone allowed to read the file.
func executable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	mode := info.Mode().Perm()
	return os.Chmod(path, mode|(mode&0o444)>>2)
}

package install

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is returned when the operating system family
	// can't be mapped to any pandoc build.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrFeedUnavailable is returned when the release feed can't be queried.
	ErrFeedUnavailable = errors.New("release feed unavailable")
	// ErrMalformedRelease is returned when the feed response can't be decoded.
	ErrMalformedRelease = errors.New("malformed release metadata")
	// ErrUnsupportedRelease is returned when the latest release is older than
	// the configured minimum version.
	ErrUnsupportedRelease = errors.New("unsupported release")
	// ErrAssetNotFound is returned when no release asset matches a platform suffix.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrNotFound is returned when the download url points at a missing resource.
	// It is never retried.
	ErrNotFound = errors.New("resource not found")
	// ErrRetriesExhausted is returned when every download attempt failed with a
	// transient error.
	ErrRetriesExhausted = errors.New("download attempts exhausted")

	// ErrExtract wraps any failure while unpacking an archive.
	ErrExtract = errors.New("extraction failed")
)

// InstallError is returned by the installer when one of the installation steps fails.
type InstallError struct {
	Platform Platform
	Reason   string
	Err      error
}

func (e *InstallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("install pandoc for %s: %s", e.Platform, e.Reason)
	}
	return fmt.Sprintf("install pandoc for %s: %s: %s", e.Platform, e.Reason, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

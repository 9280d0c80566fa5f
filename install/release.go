package install

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/aexvir/pandoc/internal/logging"
)

// DefaultFeedURL points at the latest pandoc release on GitHub.
const DefaultFeedURL = "https://api.github.com/repos/jgm/pandoc/releases/latest"

// Release describes a published pandoc release.
type Release struct {
	Tag    string  `json:"tag_name"`
	Assets []Asset `json:"assets"`
}

// Asset is a single downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// AssetFor returns the first asset whose name contains suffix.
// Suffixes are expected to be unambiguous across the assets of a release.
func (r Release) AssetFor(suffix string) (Asset, error) {
	for _, asset := range r.Assets {
		if strings.Contains(asset.Name, suffix) {
			return asset, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: no asset matching %q in release %s", ErrAssetNotFound, suffix, r.Tag)
}

// Catalog queries a release feed for the latest published release.
type Catalog struct {
	url     string
	token   string
	minimum string
	client  *http.Client
}

type CatalogOption func(c *Catalog)

// WithToken authenticates feed requests, raising the GitHub api rate limits.
func WithToken(token string) CatalogOption {
	return func(c *Catalog) {
		c.token = token
	}
}

// WithMinimumVersion rejects releases older than version.
// Layout templates are written against the archive structure of recent
// releases; older ones unpack differently.
func WithMinimumVersion(version string) CatalogOption {
	return func(c *Catalog) {
		c.minimum = version
	}
}

// WithFeedClient replaces the http client used to query the feed.
func WithFeedClient(client *http.Client) CatalogOption {
	return func(c *Catalog) {
		if client != nil {
			c.client = client
		}
	}
}

// NewCatalog creates a catalog reading from the feed at url.
func NewCatalog(url string, opts ...CatalogOption) *Catalog {
	if url == "" {
		url = DefaultFeedURL
	}

	c := Catalog{
		url:    url,
		client: &http.Client{Timeout: time.Minute},
	}

	for _, opt := range opts {
		opt(&c)
	}

	return &c
}

// FetchLatest retrieves the metadata of the latest release.
func (c *Catalog) FetchLatest(ctx context.Context) (Release, error) {
	logging.Detail(fmt.Sprintf("querying %s", c.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Release{}, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	logging.Detail(fmt.Sprintf("release feed answered http%d", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return Release{}, fmt.Errorf("%w: received unexpected response http%d", ErrFeedUnavailable, resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Release{}, fmt.Errorf("%w: %w", ErrMalformedRelease, err)
	}

	if release.Tag == "" {
		return Release{}, fmt.Errorf("%w: missing tag name", ErrMalformedRelease)
	}

	if err := c.checkMinimum(release.Tag); err != nil {
		return Release{}, err
	}

	return release, nil
}

func (c *Catalog) checkMinimum(tag string) error {
	if c.minimum == "" {
		return nil
	}

	minimum, ok := canonicalVersion(c.minimum)
	if !ok {
		return fmt.Errorf("%w: invalid minimum version %q", ErrUnsupportedRelease, c.minimum)
	}

	current, ok := canonicalVersion(tag)
	if !ok {
		return fmt.Errorf("%w: can't compare tag %q", ErrUnsupportedRelease, tag)
	}

	if semver.Compare(current, minimum) < 0 {
		return fmt.Errorf("%w: release %s is older than %s", ErrUnsupportedRelease, tag, c.minimum)
	}

	return nil
}

var numericTag = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)$`)

// canonicalVersion converts a pandoc tag into a semantic version.
// Pandoc tags can have up to four components (e.g. 3.1.11.1), only the first
// three are kept for comparison.
func canonicalVersion(tag string) (string, bool) {
	match := numericTag.FindStringSubmatch(strings.TrimSpace(tag))
	if match == nil {
		return "", false
	}

	parts := strings.Split(match[1], ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	version := semver.Canonical("v" + strings.Join(parts, "."))
	return version, version != ""
}

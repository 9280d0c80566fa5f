package cli

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/pandoc"
	"github.com/aexvir/pandoc/config"
	"github.com/aexvir/pandoc/install"
	"github.com/aexvir/pandoc/internal/logging"
)

// isolate runs the test in an empty directory, away from any real configuration.
func isolate(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	testChdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("PANDOC_GITHUB_TOKEN", "")

	return dir
}

func fakeBinary(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake executables are shell scripts")
	}

	path := filepath.Join(t.TempDir(), "pandoc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// run executes the command line returning what it wrote to stdout and stderr.
// Logging starts out pointed at the stdout buffer, so any log line the command
// doesn't route to stderr ends up mixed with its output.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	nocolor := color.NoColor
	color.NoColor = true

	var stdout, stderr bytes.Buffer
	prev := logging.SetOutput(&stdout)
	t.Cleanup(func() {
		logging.SetOutput(prev)
		color.NoColor = nocolor
	})

	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(bytes.NewReader(nil))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// unavailableFeed points the release feed at a server that always fails.
func unavailableFeed(t *testing.T) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	t.Setenv("PANDOC_FEED_URL", server.URL)
}

// releaseFeed serves a release with an asset for every platform, each
// downloading the given archive.
func releaseFeed(t *testing.T, archive []byte) string {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/download" {
			w.Write(archive)
			return
		}

		release := install.Release{Tag: "3.1.11.1"}
		for _, p := range install.Platforms() {
			release.Assets = append(release.Assets, install.Asset{
				Name:        "pandoc-3.1.11.1-" + p.AssetSuffix(),
				DownloadURL: server.URL + "/download",
			})
		}
		json.NewEncoder(w).Encode(release)
	}))
	t.Cleanup(server.Close)
	t.Setenv("PANDOC_FEED_URL", server.URL)

	return server.URL
}

// linuxArchive builds the tar.gz layout of a linux release.
func linuxArchive(t *testing.T, binary string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "pandoc-3.1.11.1/bin/pandoc", Mode: 0o644, Size: int64(len(binary)), Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(binary))
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestRootCommand(t *testing.T) {
	root := NewRootCmd()

	assert.Equal(t, "pandocw", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	registered := make(map[string]bool)
	for _, cmd := range root.Commands() {
		registered[cmd.Name()] = true
	}
	for _, expected := range []string{"install", "check", "release", "convert", "clean"} {
		assert.True(t, registered[expected], "expected command %q to be registered", expected)
	}

	for _, flag := range []string{"config", "dir"} {
		f := root.PersistentFlags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.NotEmpty(t, f.Usage)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	isolate(t)
	t.Setenv("PANDOC_ATTEMPTS", "0")

	_, _, err := run(t, "clean")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestCheck(t *testing.T) {
	isolate(t)

	t.Setenv("PANDOC_BINARY", fakeBinary(t, `echo "pandoc 3.1.11.1"; echo "Features: +server +lua"`))
	out, _, err := run(t, "check")
	require.NoError(t, err)
	assert.Equal(t, "pandoc 3.1.11.1\n", out)

	unavailableFeed(t)
	t.Setenv("PANDOC_BINARY", filepath.Join(t.TempDir(), "missing"))
	_, _, err = run(t, "check")
	assert.ErrorContains(t, err, "pandoc not available")
}

func TestCheck_InstalledCopy(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake executables are shell scripts")
	}

	dir := isolate(t)
	releaseFeed(t, nil)
	t.Setenv("PANDOC_BINARY", filepath.Join(t.TempDir(), "missing"))

	// unpack a working copy where the installer for this machine expects it
	inst, err := install.New(context.Background(), install.WithDirectory(filepath.Join(dir, "pandoc")), install.WithFeed(install.NewCatalog(os.Getenv("PANDOC_FEED_URL"))))
	require.NoError(t, err)
	target, ok := inst.Target(inst.Platform())
	require.True(t, ok)

	require.NoError(t, os.MkdirAll(filepath.Dir(target.Binary), 0o755))
	require.NoError(t, os.WriteFile(target.Binary, []byte("#!/bin/sh\necho \"pandoc 3.1.11.1\"\n"), 0o755))

	out, _, err := run(t, "check")
	require.NoError(t, err)
	assert.Equal(t, "pandoc 3.1.11.1\n", out)
}

func TestConvert(t *testing.T) {
	isolate(t)
	t.Setenv("PANDOC_BINARY", fakeBinary(t, `for arg in "$@"; do echo "$arg"; done`))

	out, logs, err := run(t, "convert", "--no-install", "-f", "markdown", "-t", "html", "-s", "-M", "title=Report", "--opt", "number-sections", "README.md")
	require.NoError(t, err)

	// stdout is exactly what pandoc wrote, logs go to stderr
	assert.Equal(t, "--from=markdown\n--to=html\n--standalone\n--metadata=title:Report\n--number-sections\nREADME.md\n", out)
	assert.Contains(t, logs, "finished successfully")
}

func TestConvert_Failure(t *testing.T) {
	dir := isolate(t)
	t.Setenv("PANDOC_BINARY", fakeBinary(t, `case "$1" in --version) exit 0 ;; esac; echo "unknown reader: txt" >&2; exit 21`))
	errfile := filepath.Join(dir, "error.txt")

	_, _, err := run(t, "convert", "--no-install", "-f", "txt", "--stderr-file", errfile, "simple.txt")
	assert.ErrorIs(t, err, ErrConversionFailed)

	content, err := os.ReadFile(errfile)
	require.NoError(t, err)
	assert.Equal(t, "exit code: 21\nunknown reader: txt\n", string(content))
}

func TestConvert_MissingPandoc(t *testing.T) {
	isolate(t)
	t.Setenv("PANDOC_BINARY", filepath.Join(t.TempDir(), "missing"))

	t.Run("without installing", func(t *testing.T) {
		_, _, err := run(t, "convert", "--no-install", "README.md")
		assert.ErrorIs(t, err, pandoc.ErrNoInstaller)
	})

	t.Run("release feed down", func(t *testing.T) {
		unavailableFeed(t)

		_, _, err := run(t, "convert", "README.md")
		assert.ErrorIs(t, err, install.ErrFeedUnavailable)
	})
}

func TestRelease(t *testing.T) {
	isolate(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"tag_name": "3.1.11.1",
			"assets": [
				{"name": "pandoc-3.1.11.1-linux-amd64.tar.gz", "browser_download_url": "https://example.com/linux-amd64"},
				{"name": "pandoc-3.1.11.1-windows-x86_64.zip", "browser_download_url": "https://example.com/windows"}
			]
		}`))
	}))
	defer server.Close()
	t.Setenv("PANDOC_FEED_URL", server.URL)

	out, _, err := run(t, "release")
	require.NoError(t, err)

	assert.Contains(t, out, "pandoc 3.1.11.1")
	assert.Regexp(t, `linux-amd64\s+pandoc-3.1.11.1-linux-amd64.tar.gz\s+https://example.com/linux-amd64`, out)
	assert.Regexp(t, `windows\s+pandoc-3.1.11.1-windows-x86_64.zip\s+https://example.com/windows`, out)
	assert.Regexp(t, `macos-arm64\s+-\s+-`, out)
}

func TestInstall_FeedDown(t *testing.T) {
	isolate(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	t.Setenv("PANDOC_FEED_URL", server.URL)

	_, _, err := run(t, "install")
	assert.ErrorIs(t, err, install.ErrFeedUnavailable)

	_, _, err = run(t, "install", "--platform", "beos-ppc")
	assert.ErrorIs(t, err, install.ErrUnsupportedPlatform)
}

func TestInstall(t *testing.T) {
	dir := isolate(t)
	releaseFeed(t, linuxArchive(t, "#!/bin/sh\necho pandoc 3.1.11.1\n"))
	t.Setenv("PANDOC_BACKOFF", "0s")

	out, logs, err := run(t, "install", "--platform", "linux-amd64")
	require.NoError(t, err)

	binary := filepath.Join(dir, "pandoc", "pandoc-3.1.11.1", "bin", "pandoc")
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	// the installed path is the only thing printed on stdout
	assert.Contains(t, []string{binary + "\n", filepath.Join(resolved, "pandoc", "pandoc-3.1.11.1", "bin", "pandoc") + "\n"}, out)
	assert.Contains(t, logs, "installing pandoc 3.1.11.1 for linux-amd64")
	assert.FileExists(t, binary)
}

func TestClean(t *testing.T) {
	dir := isolate(t)
	target := filepath.Join(dir, "custom")

	require.NoError(t, os.MkdirAll(filepath.Join(target, "pandoc-3.1.11.1", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "pandoc.tar.gz"), []byte("archive"), 0o644))

	_, _, err := run(t, "clean", "--dir", target)
	require.NoError(t, err)

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseOption(t *testing.T) {
	opt, err := parseOption("--number-sections")
	require.NoError(t, err)
	assert.Equal(t, pandoc.Flag{Name: "number-sections"}, opt)

	opt, err = parseOption("shift-heading-level-by=1")
	require.NoError(t, err)
	assert.Equal(t, pandoc.Value{Name: "shift-heading-level-by", Value: "1"}, opt)

	_, err = parseOption("--")
	assert.Error(t, err)
}

// testChdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it
// changes the working directory and restores it when the test finishes.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

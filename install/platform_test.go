package install

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		goos, goarch string
		expected     Platform
	}{
		{"windows", "amd64", Windows},
		{"windows", "arm64", Windows},
		{"windows", "386", Windows},
		{"darwin", "amd64", MacOSAMD64},
		{"darwin", "arm64", MacOSARM64},
		{"ios", "arm64", MacOSARM64},
		{"linux", "amd64", LinuxAMD64},
		{"linux", "arm64", LinuxARM64},
		{"linux", "386", LinuxAMD64},
		{"linux", "arm", LinuxAMD64},
		{"linux", "riscv64", LinuxAMD64},
		{"freebsd", "arm64", LinuxARM64},
		{"openbsd", "amd64", LinuxAMD64},
	}

	for _, test := range tests {
		t.Run(test.goos+"/"+test.goarch, func(t *testing.T) {
			got, err := Resolve(test.goos, test.goarch)
			require.NoError(t, err)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestResolve_Unsupported(t *testing.T) {
	for _, goos := range []string{"plan9", "js", "wasip1", ""} {
		t.Run(goos, func(t *testing.T) {
			_, err := Resolve(goos, "amd64")
			assert.ErrorIs(t, err, ErrUnsupportedPlatform)
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	oses := []string{"windows", "darwin", "ios", "linux", "freebsd", "netbsd", "solaris"}
	arches := []string{"amd64", "arm64", "386", "arm", "ppc64le", "s390x"}

	reached := make(map[Platform]bool)
	for _, goos := range oses {
		for _, goarch := range arches {
			first, err := Resolve(goos, goarch)
			require.NoError(t, err)

			second, err := Resolve(goos, goarch)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			reached[first] = true
		}
	}

	for _, p := range Platforms() {
		assert.True(t, reached[p], "platform %s is not reachable", p)
	}
}

func TestPlatform_Metadata(t *testing.T) {
	for _, p := range Platforms() {
		t.Run(p.String(), func(t *testing.T) {
			assert.NotEmpty(t, p.AssetSuffix())
			assert.NotEmpty(t, p.Layout())

			parsed, err := ParsePlatform(p.String())
			require.NoError(t, err)
			assert.Equal(t, p, parsed)
		})
	}

	assert.Equal(t, FormatTarGz, LinuxAMD64.Format())
	assert.Equal(t, FormatTarGz, LinuxARM64.Format())
	assert.Equal(t, FormatZip, Windows.Format())
	assert.Equal(t, FormatZip, MacOSARM64.Format())
	assert.Equal(t, ".exe", Windows.Extension())
	assert.Empty(t, MacOSAMD64.Extension())
}

func TestParsePlatform_Unknown(t *testing.T) {
	_, err := ParsePlatform("beos-ppc")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestNormalizeArch(t *testing.T) {
	assert.Equal(t, "arm64", normalizeArch("aarch64"))
	assert.Equal(t, "arm64", normalizeArch("arm64"))
	assert.Equal(t, "amd64", normalizeArch("x86_64"))
	assert.Equal(t, "riscv64", normalizeArch("riscv64"))
}

func TestDetect(t *testing.T) {
	switch runtime.GOOS {
	case "windows", "darwin", "linux":
	default:
		t.Skip("detection only exercised on primary platforms")
	}

	platform, err := Detect(context.Background())
	require.NoError(t, err)

	expected, err := Resolve(runtime.GOOS, runtime.GOARCH)
	require.NoError(t, err)

	// the kernel may report a wider architecture than the build target,
	// but never a different operating system family
	assert.Equal(t, expected.Format(), platform.Format())
}

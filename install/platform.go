package install

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Platform identifies one of the pandoc builds published on every release.
type Platform int

const (
	Windows Platform = iota + 1
	MacOSAMD64
	MacOSARM64
	LinuxAMD64
	LinuxARM64
)

// Format is the container format of a release archive.
type Format int

const (
	FormatZip Format = iota + 1
	FormatTarGz
)

// Extension returns the file extension used for archives of this format.
func (f Format) Extension() string {
	if f == FormatTarGz {
		return ".tar.gz"
	}
	return ".zip"
}

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

type platformspec struct {
	key    string
	suffix string
	format Format
	layout string
}

var platforms = map[Platform]platformspec{
	Windows:    {"windows", "windows-x86_64.zip", FormatZip, "pandoc-{{.Version}}/pandoc{{.Extension}}"},
	MacOSAMD64: {"macos-amd64", "x86_64-macOS.zip", FormatZip, "pandoc-{{.Version}}-x86_64/bin/pandoc{{.Extension}}"},
	MacOSARM64: {"macos-arm64", "arm64-macOS.zip", FormatZip, "pandoc-{{.Version}}-arm64/bin/pandoc{{.Extension}}"},
	LinuxAMD64: {"linux-amd64", "linux-amd64", FormatTarGz, "pandoc-{{.Version}}/bin/pandoc{{.Extension}}"},
	LinuxARM64: {"linux-arm64", "linux-arm64", FormatTarGz, "pandoc-{{.Version}}/bin/pandoc{{.Extension}}"},
}

// Platforms returns every known platform in a stable order.
func Platforms() []Platform {
	return []Platform{Windows, MacOSAMD64, MacOSARM64, LinuxAMD64, LinuxARM64}
}

// String returns the platform key, also used to name layouts in configuration.
func (p Platform) String() string {
	if spec, ok := platforms[p]; ok {
		return spec.key
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

// AssetSuffix is matched against the release asset names to find the archive
// built for this platform.
func (p Platform) AssetSuffix() string {
	return platforms[p].suffix
}

// Format returns the archive format pandoc is distributed in for this platform.
func (p Platform) Format() Format {
	return platforms[p].format
}

// Layout returns the default template pointing at the executable inside the
// unpacked archive.
func (p Platform) Layout() string {
	return platforms[p].layout
}

// Extension is the executable file extension.
func (p Platform) Extension() string {
	if p == Windows {
		return ".exe"
	}
	return ""
}

// ParsePlatform returns the platform identified by key, as returned by [Platform.String].
func ParsePlatform(key string) (Platform, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, p := range Platforms() {
		if platforms[p].key == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown platform key %q", ErrUnsupportedPlatform, key)
}

// Resolve maps an operating system and cpu architecture, as named by GOOS and
// GOARCH, to a platform.
// Only arm64 is told apart; any other architecture resolves to the amd64 build.
func Resolve(goos, goarch string) (Platform, error) {
	arm := goarch == "arm64"

	switch goos {
	case "windows":
		return Windows, nil
	case "darwin", "ios":
		if arm {
			return MacOSARM64, nil
		}
		return MacOSAMD64, nil
	case "linux", "android", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris", "illumos", "aix":
		if arm {
			return LinuxARM64, nil
		}
		return LinuxAMD64, nil
	default:
		return 0, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
}

// Detect resolves the platform of the running machine.
// The architecture reported by the kernel wins over the one this program was
// built for, so a 32-bit arm build running on a 64-bit arm kernel still picks
// the arm64 pandoc build.
func Detect(ctx context.Context) (Platform, error) {
	return Resolve(runtime.GOOS, kernelArch(ctx))
}

func kernelArch(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info.KernelArch == "" {
		return runtime.GOARCH
	}
	return normalizeArch(info.KernelArch)
}

func normalizeArch(arch string) string {
	switch strings.ToLower(arch) {
	case "arm64", "aarch64", "armv8", "armv8l":
		return "arm64"
	case "x86_64", "amd64", "x64":
		return "amd64"
	default:
		return strings.ToLower(arch)
	}
}

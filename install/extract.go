package install

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aexvir/pandoc/internal/logging"
)

// Extract unpacks archive into destination, keeping the relative path of every entry.
// Any failure is wrapped in [ErrExtract].
func Extract(archive, destination string, format Format) (err error) {
	logging.Detail(fmt.Sprintf("extracting %s into %s", archive, destination))

	start := time.Now()
	defer func() { logging.Elapsed(start, err) }()

	root, err := filepath.Abs(destination)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExtract, err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %w", ErrExtract, root, err)
	}

	file, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("%w: failed to open archive: %w", ErrExtract, err)
	}
	defer file.Close()

	switch format {
	case FormatTarGz:
		err = untar(file, root)
	case FormatZip:
		var info os.FileInfo
		if info, err = file.Stat(); err == nil {
			err = unzip(file, info.Size(), root)
		}
	default:
		err = fmt.Errorf("unknown archive format %d", format)
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrExtract, archive, err)
	}
	return nil
}

// handles .tar.gz files
func untar(file io.Reader, root string) error {
	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer decompressor.Close()

	reader := tar.NewReader(decompressor)

	for {
		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		target, err := within(root, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := write(target, reader, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := symlink(root, target, header.Linkname); err != nil {
				return err
			}
		}
	}

	return nil
}

// handles .zip files
func unzip(file io.ReaderAt, size int64, root string) error {
	reader, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, entry := range reader.File {
		target, err := within(root, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		contents, err := entry.Open()
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", entry.Name, err)
		}

		err = write(target, contents, entry.Mode().Perm())
		contents.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// write copies contents into target creating all its missing ancestors.
func write(target string, contents io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	// zip entries written by some tools carry no permission bits at all
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}

	if _, err := io.Copy(out, contents); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy data to file %s: %w", target, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", target, err)
	}
	return nil
}

func symlink(root, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), linkname)
	}
	if !inside(root, resolved) {
		return fmt.Errorf("symlink %s points outside of the destination: %s", target, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	_ = os.Remove(target)
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("failed to create symlink %s: %w", target, err)
	}
	return nil
}

// within returns the location of an archive entry under root, refusing entries
// that would end up outside of it.
func within(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !inside(root, target) {
		return "", fmt.Errorf("illegal entry path %s", name)
	}
	return target, nil
}

func inside(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

package install

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// entry describes a file placed inside test archives.
// Directory entries end with a slash, symlinks set a link target.
type entry struct {
	name    string
	content string
	mode    fs.FileMode
	link    string
}

func zipArchive(t *testing.T, entries ...entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}
		if e.name[len(e.name)-1] == '/' {
			mode |= fs.ModeDir
		}
		header.SetMode(mode)

		w, err := writer.CreateHeader(header)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func tarGzArchive(t *testing.T, entries ...entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	compressor := gzip.NewWriter(&buf)
	writer := tar.NewWriter(compressor)

	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}

		header := &tar.Header{Name: e.name, Mode: int64(mode), Size: int64(len(e.content)), Typeflag: tar.TypeReg}
		switch {
		case e.link != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.link
			header.Size = 0
		case e.name[len(e.name)-1] == '/':
			header.Typeflag = tar.TypeDir
			header.Mode = 0o755
		}

		require.NoError(t, writer.WriteHeader(header))
		if header.Typeflag == tar.TypeReg {
			_, err := writer.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}

	require.NoError(t, writer.Close())
	require.NoError(t, compressor.Close())
	return buf.Bytes()
}

func writeArchive(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

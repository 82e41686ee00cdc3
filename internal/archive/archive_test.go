// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root. Keys are slash-separated paths.
func writeTree(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

// rawTar builds a tar in memory from name/content pairs, in order.
func rawTar(t *testing.T, entries ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e[0],
			Mode:     0o644,
			Size:     int64(len(e[1])),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(e[1]))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestBundleDirs_ExtractRestoresLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, "/build/app", map[string]string{
		"dist/index.js":        "console.log(1)",
		"dist/assets/app.css":  "body{}",
		"types/index.d.ts":     "export {}",
		"src/ignored.ts":       "not bundled",
		"package.json":         "{}",
	})

	b, err := BundleDirs(fs, []string{"dist", "types"}, "/build/app", "app.output.tar")
	require.NoError(t, err)
	assert.Equal(t, "/build/app/app.output.tar", b.Path)
	assert.Len(t, b.Digest, 64)
	// dist/, dist/assets/, dist/assets/app.css, dist/index.js, types/, types/index.d.ts
	assert.Equal(t, 6, b.Entries)

	ptr, ok, err := ReadPointer(fs, "/build/app")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Pointer{Archive: "app.output.tar", Suffix: b.Digest}, ptr)

	n, err := Extract(fs, b.Path, "/restore")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "console.log(1)", readFile(t, fs, "/restore/dist/index.js"))
	assert.Equal(t, "body{}", readFile(t, fs, "/restore/dist/assets/app.css"))
	assert.Equal(t, "export {}", readFile(t, fs, "/restore/types/index.d.ts"))

	exists, err := afero.Exists(fs, "/restore/src/ignored.ts")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBundleDirs_Deterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTree(t, fs, "/build/lib", map[string]string{
		"out/a.js": "a",
		"out/b.js": "b",
	})

	first, err := BundleDirs(fs, []string{"out"}, "/build/lib", "/tmp/one.tar")
	require.NoError(t, err)
	second, err := BundleDirs(fs, []string{"out"}, "/build/lib", "/tmp/two.tar")
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
}

func TestBundleDirs_MissingDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/build/app", 0o755))

	_, err := BundleDirs(fs, []string{".next"}, "/build/app", "output.tar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".next")

	exists, err := afero.Exists(fs, "/build/app/output.tar")
	require.NoError(t, err)
	assert.False(t, exists, "no archive should be left behind")

	exists, err = afero.Exists(fs, filepath.Join("/build/app", PointerFilename))
	require.NoError(t, err)
	assert.False(t, exists, "no pointer should be written")
}

func TestExtract_OverwritesExistingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/m/out.tar", rawTar(t,
		[2]string{"dist/index.js", "from archive"},
		[2]string{"dist/extra.js", "new"},
	), 0o644))
	writeTree(t, fs, "/m", map[string]string{
		"dist/index.js": "stale",
		"keep.txt":      "untouched",
	})

	n, err := Extract(fs, "/m/out.tar", "/m")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "from archive", readFile(t, fs, "/m/dist/index.js"))
	assert.Equal(t, "new", readFile(t, fs, "/m/dist/extra.js"))
	assert.Equal(t, "untouched", readFile(t, fs, "/m/keep.txt"))
}

func TestExtract_DuplicateEntriesInArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/m/out.tar", rawTar(t,
		[2]string{"a.txt", "first"},
		[2]string{"a.txt", "second"},
	), 0o644))

	_, err := Extract(fs, "/m/out.tar", "/m")
	require.NoError(t, err)
	assert.Equal(t, "second", readFile(t, fs, "/m/a.txt"))
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/m/out.tar", rawTar(t,
		[2]string{"../evil.txt", "x"},
	), 0o644))

	_, err := Extract(fs, "/m/out.tar", "/m")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafePath))

	exists, err := afero.Exists(fs, "/evil.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

// linkTar builds a tar holding a symlink followed by a regular file.
func linkTar(t *testing.T, link, linkTarget, file, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     link,
		Linkname: linkTarget,
		Mode:     0o777,
		Typeflag: tar.TypeSymlink,
	}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     file,
		Mode:     0o644,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestExtract_RejectsWritesThroughSymlinks(t *testing.T) {
	tests := []struct {
		name       string
		linkTarget func(outside string) string
	}{
		{name: "absolute target", linkTarget: func(outside string) string { return outside }},
		{name: "relative target leaving destination", linkTarget: func(string) string { return "../outside" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewOsFs()
			root := t.TempDir()
			dest := filepath.Join(root, "m")
			outside := filepath.Join(root, "outside")
			require.NoError(t, fs.MkdirAll(dest, 0o755))
			require.NoError(t, fs.MkdirAll(outside, 0o755))
			archivePath := filepath.Join(root, "out.tar")
			require.NoError(t, afero.WriteFile(fs, archivePath,
				linkTar(t, "evil", tt.linkTarget(outside), "evil/pwn.txt", "x"), 0o644))

			_, err := Extract(fs, archivePath, dest)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsafePath))

			exists, err := afero.Exists(fs, filepath.Join(outside, "pwn.txt"))
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestExtract_RejectsExistingSymlinkedDir(t *testing.T) {
	fs := afero.NewOsFs()
	root := t.TempDir()
	dest := filepath.Join(root, "m")
	outside := filepath.Join(root, "outside")
	require.NoError(t, fs.MkdirAll(dest, 0o755))
	require.NoError(t, fs.MkdirAll(outside, 0o755))
	require.NoError(t, fs.(afero.Linker).SymlinkIfPossible(outside, filepath.Join(dest, "dist")))

	archivePath := filepath.Join(root, "out.tar")
	require.NoError(t, afero.WriteFile(fs, archivePath, rawTar(t,
		[2]string{"dist/pwn.txt", "x"},
	), 0o644))

	_, err := Extract(fs, archivePath, dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafePath))

	exists, err := afero.Exists(fs, filepath.Join(outside, "pwn.txt"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExtract_InternalSymlink(t *testing.T) {
	fs := afero.NewOsFs()
	root := t.TempDir()
	dest := filepath.Join(root, "m")
	require.NoError(t, fs.MkdirAll(dest, 0o755))
	archivePath := filepath.Join(root, "out.tar")
	require.NoError(t, afero.WriteFile(fs, archivePath,
		linkTar(t, "dist/latest", "v1", "dist/v1/index.js", "v1"), 0o644))

	n, err := Extract(fs, archivePath, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	target, err := fs.(afero.LinkReader).ReadlinkIfPossible(filepath.Join(dest, "dist/latest"))
	require.NoError(t, err)
	assert.Equal(t, "v1", target)
	assert.Equal(t, "v1", readFile(t, fs, filepath.Join(dest, "dist/latest/index.js")))
}

func TestExtract_MissingArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Extract(fs, "/m/none.tar", "/m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none.tar")
}

func TestParsePointer(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Pointer
		wantErr error
	}{
		{name: "name and digest", content: "out.tar:abc123", want: Pointer{Archive: "out.tar", Suffix: "abc123"}},
		{name: "only first colon splits", content: "out.tar:a:b", want: Pointer{Archive: "out.tar", Suffix: "a:b"}},
		{name: "no colon uses whole content", content: "out.tar", want: Pointer{Archive: "out.tar"}},
		{name: "trailing newline", content: "lib.tar:xyz\n", want: Pointer{Archive: "lib.tar", Suffix: "xyz"}},
		{name: "empty", content: "", wantErr: ErrEmptyPointer},
		{name: "empty name", content: ":abc", wantErr: ErrEmptyPointer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePointer(tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadPointer_Absent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/m", 0o755))

	_, ok, err := ReadPointer(fs, "/m")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWritePointer_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/m", 0o755))

	require.NoError(t, WritePointer(fs, "/m", Pointer{Archive: "out.tar", Suffix: "d1"}))
	assert.Equal(t, "out.tar:d1", readFile(t, fs, "/m/"+PointerFilename))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nodemodules

import (
	"archive/tar"
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/bin/app", 0o755))

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	content := `{"name":"react"}`
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "node_modules/react/package.json",
		Mode:     0o644,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, afero.WriteFile(fs, "/bin/app/"+BundleFilename, buf.Bytes(), 0o644))

	created, err := Create(context.Background(), fs, "/bin/app")
	require.NoError(t, err)
	assert.True(t, created)

	data, err := afero.ReadFile(fs, "/bin/app/node_modules/react/package.json")
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestCreate_NoBundle(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/bin/app", 0o755))

	created, err := Create(context.Background(), fs, "/bin/app")
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := afero.DirExists(fs, "/bin/app/node_modules")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreate_CorruptBundle(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bin/app/"+BundleFilename, []byte("not a tar archive at all, definitely not 512 bytes of header"), 0o644))

	_, err := Create(context.Background(), fs, "/bin/app")
	require.Error(t, err)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nots-builder/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for i, rec := range []types.BuildRecord{
		{Module: "/bin/lib", Builder: "tsc", Status: types.BuildSucceeded, Duration: 2 * time.Second,
			Archive: "/bin/lib/output.tar", Digest: "aaa"},
		{Module: "/bin/app", Builder: "webpack", Status: types.BuildFailed, ExitCode: 2, Error: "webpack: tool exited with code 2"},
		{Module: "/bin/app", Builder: "webpack", Status: types.BuildSucceeded, Archive: "/bin/app/output.tar", Digest: "bbb"},
	} {
		rec.StartedAt = t0.Add(time.Duration(i) * time.Minute)
		_, err := s.Record(ctx, rec)
		require.NoError(t, err)
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "history")
	s, err := NewStore(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, dbFile))
	assert.NoError(t, err)

	// Reopening keeps the schema.
	s2, err := NewStore(dir)
	require.NoError(t, err)
	s2.Close()
}

func TestRecordAssignsIDAndTime(t *testing.T) {
	s := testStore(t)

	rec, err := s.Record(context.Background(), types.BuildRecord{
		Module:  "/bin/app",
		Builder: "vite",
		Status:  types.BuildSucceeded,
	})
	require.NoError(t, err)
	_, err = uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.False(t, rec.StartedAt.IsZero())
	assert.Equal(t, time.UTC, rec.StartedAt.Location())
}

func TestRecordDuplicateID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := types.BuildRecord{ID: "fixed", Module: "/bin/app", Builder: "tsc", Status: types.BuildSucceeded}
	_, err := s.Record(ctx, rec)
	require.NoError(t, err)
	_, err = s.Record(ctx, rec)
	require.Error(t, err)
}

func TestList(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	tests := []struct {
		name        string
		query       Query
		wantDigests []string
	}{
		{name: "all newest first", query: Query{}, wantDigests: []string{"bbb", "", "aaa"}},
		{name: "by module", query: Query{Module: "/bin/lib"}, wantDigests: []string{"aaa"}},
		{name: "by builder and status", query: Query{Builder: "webpack", Status: types.BuildFailed}, wantDigests: []string{""}},
		{name: "limit", query: Query{Limit: 1}, wantDigests: []string{"bbb"}},
		{name: "no match", query: Query{Builder: "next"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(context.Background(), tt.query)
			require.NoError(t, err)
			var digests []string
			for _, r := range got {
				digests = append(digests, r.Digest)
			}
			assert.Equal(t, tt.wantDigests, digests)
		})
	}
}

func TestListRoundTripsFields(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	got, err := s.List(context.Background(), Query{Status: types.BuildFailed})
	require.NoError(t, err)
	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, "/bin/app", r.Module)
	assert.Equal(t, 2, r.ExitCode)
	assert.Equal(t, "webpack: tool exited with code 2", r.Error)
	assert.True(t, t0.Add(time.Minute).Equal(r.StartedAt))
}

func TestExport(t *testing.T) {
	s := testStore(t)
	seed(t, s)
	ctx := context.Background()

	var jsonOut bytes.Buffer
	require.NoError(t, s.Export(ctx, &jsonOut, Query{Module: "/bin/app"}, FormatJSON))
	var fromJSON []types.BuildRecord
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &fromJSON))
	require.Len(t, fromJSON, 2)
	assert.Equal(t, "bbb", fromJSON[0].Digest)

	var yamlOut bytes.Buffer
	require.NoError(t, s.Export(ctx, &yamlOut, Query{}, FormatYAML))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 3)
	assert.Equal(t, "tsc", fromYAML[2]["builder"])

	err := s.Export(ctx, &bytes.Buffer{}, Query{}, "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv")
}

func TestExportEmpty(t *testing.T) {
	s := testStore(t)

	var out bytes.Buffer
	require.NoError(t, s.Export(context.Background(), &out, Query{}, FormatJSON))
	assert.Equal(t, "[]\n", out.String())
}

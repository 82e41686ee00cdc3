// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestRun(t *testing.T) {
	sh := requireShell(t)

	tests := []struct {
		name       string
		script     string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "success", script: "echo built", wantStdout: "built\n"},
		{name: "stderr captured", script: "echo warn >&2", wantStderr: "warn\n"},
		{name: "exit code reported", script: "echo fail >&2; exit 3", wantCode: 3, wantStderr: "fail\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Run(context.Background(), Command{Args: []string{sh, "-c", tt.script}})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantStdout, res.Stdout)
			assert.Equal(t, tt.wantStderr, res.Stderr)
			assert.Equal(t, tt.wantCode == 0, res.Success())
		})
	}
}

func TestRun_DirAndEnv(t *testing.T) {
	sh := requireShell(t)
	dir := t.TempDir()

	res, err := New().Run(context.Background(), Command{
		Args: []string{sh, "-c", `pwd; echo "$NODE_ENV"`},
		Env:  []string{"NODE_ENV=production"},
		Dir:  dir,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "production")
}

func TestRun_StartFailure(t *testing.T) {
	_, err := New().Run(context.Background(), Command{Args: []string{"/nonexistent/node"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/node")

	_, err = New().Run(context.Background(), Command{})
	require.Error(t, err)
}

func TestMergeEnv(t *testing.T) {
	got := MergeEnv(
		[]string{"PATH=/usr/bin", "NODE_ENV=development", "malformed"},
		map[string]string{"NODE_ENV": "production", "NODE_PATH": "/bin/app/node_modules"},
	)
	assert.Equal(t, []string{
		"NODE_ENV=production",
		"NODE_PATH=/bin/app/node_modules",
		"PATH=/usr/bin",
	}, got)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "node tsc --project tsconfig.json",
		Command{Args: []string{"node", "tsc", "--project", "tsconfig.json"}}.String())
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workspace

import (
	"github.com/spf13/afero"
)

// Provider answers dependency queries from package.json files on fs.
type Provider struct {
	fs afero.Fs
}

// NewProvider returns a Provider reading from fs.
func NewProvider(fs afero.Fs) *Provider {
	return &Provider{fs: fs}
}

// WorkspaceDeps returns the workspace dependency directories declared by
// the package.json in moduleDir. Dependency paths are relative to
// moduleDir.
func (p *Provider) WorkspaceDeps(moduleDir string) ([]string, error) {
	pj, err := Load(p.fs, PackageJSONPath(moduleDir))
	if err != nil {
		return nil, err
	}
	return pj.WorkspaceDepPaths(moduleDir), nil
}

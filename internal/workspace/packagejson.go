// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workspace reads package.json manifests of workspace modules and
// answers the two questions the builders ask of them: which workspace
// modules a module depends on, and where a package's executable lives.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	// PackageJSONFilename is the manifest file name.
	PackageJSONFilename = "package.json"

	// NodeModulesDirname is the installed-packages directory.
	NodeModulesDirname = "node_modules"

	workspacePrefix = "workspace:"
	filePrefix      = "file:"
)

// ErrBinNotFound is returned when a package declares no matching bin entry.
var ErrBinNotFound = errors.New("bin entry not found")

// PackageJSON is the subset of package.json the builders use.
type PackageJSON struct {
	// Path is the file the manifest was loaded from.
	Path string `json:"-"`

	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Bin                  json.RawMessage   `json:"bin,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
}

// PackageJSONPath returns the manifest path of the module in dir.
func PackageJSONPath(dir string) string {
	return filepath.Join(dir, PackageJSONFilename)
}

// Load parses the package.json at path.
func Load(fs afero.Fs, path string) (*PackageJSON, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var pj PackageJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	pj.Path = path
	return &pj, nil
}

// WorkspaceDepPaths returns the absolute directories of workspace
// dependencies, resolved against baseDir. A dependency is a workspace
// dependency when its spec is "workspace:<path>" or "file:<path>". Specs
// without a path ("workspace:*", "workspace:^") cannot be located and are
// skipped. The result is sorted and free of duplicates.
func (pj *PackageJSON) WorkspaceDepPaths(baseDir string) []string {
	seen := make(map[string]struct{})
	var paths []string

	for _, deps := range []map[string]string{
		pj.Dependencies,
		pj.DevDependencies,
		pj.PeerDependencies,
		pj.OptionalDependencies,
	} {
		for _, spec := range deps {
			rel, ok := specPath(spec)
			if !ok {
				continue
			}
			p := rel
			if !filepath.IsAbs(p) {
				p = filepath.Join(baseDir, p)
			}
			p = filepath.Clean(p)
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)
	return paths
}

// specPath extracts the path from a workspace or file dependency spec.
func specPath(spec string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(spec, workspacePrefix):
		rest = strings.TrimPrefix(spec, workspacePrefix)
	case strings.HasPrefix(spec, filePrefix):
		rest = strings.TrimPrefix(spec, filePrefix)
	default:
		return "", false
	}

	rest = strings.TrimSpace(rest)
	switch rest {
	case "", "*", "^", "~":
		return "", false
	}
	return filepath.FromSlash(rest), true
}

// BinPath returns the script declared in "bin" for name, relative to the
// package directory. A string "bin" belongs to the package itself. An empty
// name selects the entry named after the package, or the only entry.
func (pj *PackageJSON) BinPath(name string) (string, error) {
	if len(pj.Bin) == 0 {
		return "", fmt.Errorf("%s: %w", pj.Name, ErrBinNotFound)
	}

	var single string
	if err := json.Unmarshal(pj.Bin, &single); err == nil {
		if single == "" || (name != "" && name != binName(pj.Name)) {
			return "", fmt.Errorf("%s: %q: %w", pj.Name, name, ErrBinNotFound)
		}
		return single, nil
	}

	var bins map[string]string
	if err := json.Unmarshal(pj.Bin, &bins); err != nil {
		return "", fmt.Errorf("%s: malformed bin field: %w", pj.Name, err)
	}

	if name == "" {
		if p, ok := bins[binName(pj.Name)]; ok {
			return p, nil
		}
		if len(bins) == 1 {
			for _, p := range bins {
				return p, nil
			}
		}
		return "", fmt.Errorf("%s: no default bin among %d entries: %w", pj.Name, len(bins), ErrBinNotFound)
	}

	p, ok := bins[name]
	if !ok || p == "" {
		return "", fmt.Errorf("%s: %q: %w", pj.Name, name, ErrBinNotFound)
	}
	return p, nil
}

// binName is the command name npm derives from a package name: the part
// after the scope.
func binName(pkg string) string {
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		return pkg[i+1:]
	}
	return pkg
}

// ResolveBin returns the absolute path of the bin script of package pkg
// installed under cwd/node_modules. An empty bin selects the default entry.
func ResolveBin(fs afero.Fs, cwd, pkg, bin string) (string, error) {
	pkgDir := filepath.Join(cwd, NodeModulesDirname, filepath.FromSlash(pkg))
	pj, err := Load(fs, PackageJSONPath(pkgDir))
	if err != nil {
		return "", err
	}

	rel, err := pj.BinPath(bin)
	if err != nil {
		return "", err
	}
	return filepath.Clean(filepath.Join(pkgDir, filepath.FromSlash(rel))), nil
}

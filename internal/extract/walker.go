// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract restores the prebuilt outputs of a module and its
// workspace dependencies by unpacking each module's output archive into the
// module directory, once per module per traversal.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pdiddy/nots-builder/internal/archive"
	"github.com/pdiddy/nots-builder/internal/logx"
)

// GraphProvider lists the workspace dependencies of a module directory as
// absolute paths.
type GraphProvider interface {
	WorkspaceDeps(moduleDir string) ([]string, error)
}

// MissingArchiveError reports a manifest pointer whose archive is absent.
// It signals an incomplete upstream build and aborts the traversal.
type MissingArchiveError struct {
	// Module is the module directory holding the pointer.
	Module string

	// Archive is the resolved archive path that does not exist.
	Archive string
}

func (e *MissingArchiveError) Error() string {
	return fmt.Sprintf("output archive %s referenced by %s not found",
		e.Archive, filepath.Join(e.Module, archive.PointerFilename))
}

// Unwrap lets errors.Is(err, fs.ErrNotExist) match.
func (e *MissingArchiveError) Unwrap() error { return fs.ErrNotExist }

// Visited holds the module directories reached during one traversal.
type Visited map[string]struct{}

// NewVisited returns an empty set.
func NewVisited() Visited { return make(Visited) }

// Has reports whether module was reached.
func (v Visited) Has(module string) bool {
	_, ok := v[module]
	return ok
}

func (v Visited) add(module string) { v[module] = struct{}{} }

// Walker extracts module output archives across a workspace graph.
type Walker struct {
	fs    afero.Fs
	graph GraphProvider
}

// NewWalker returns a Walker reading and writing through fs.
func NewWalker(fs afero.Fs, graph GraphProvider) *Walker {
	return &Walker{fs: fs, graph: graph}
}

// ExtractAll extracts the archive of root and of every module reachable
// from it. Modules already in visited are skipped. A nil visited starts a
// fresh traversal. Module paths are compared after filepath.Clean.
func (w *Walker) ExtractAll(ctx context.Context, root string, visited Visited) error {
	root = filepath.Clean(root)
	if visited == nil {
		visited = NewVisited()
	}
	if visited.Has(root) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	visited.add(root)
	if err := w.ExtractOne(ctx, root); err != nil {
		return err
	}
	return w.extractDeps(ctx, root, visited)
}

// ExtractDependencies extracts the archives of every module reachable from
// root but leaves root itself untouched. Use it for the module being built,
// whose previous output must not overwrite the new one. Root is recorded in
// visited so a cycle back to it cannot extract it either.
func (w *Walker) ExtractDependencies(ctx context.Context, root string, visited Visited) error {
	root = filepath.Clean(root)
	if visited == nil {
		visited = NewVisited()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	visited.add(root)
	return w.extractDeps(ctx, root, visited)
}

func (w *Walker) extractDeps(ctx context.Context, module string, visited Visited) error {
	deps, err := w.graph.WorkspaceDeps(module)
	if err != nil {
		return fmt.Errorf("workspace dependencies of %s: %w", module, err)
	}
	for _, dep := range deps {
		if err := w.ExtractAll(ctx, dep, visited); err != nil {
			return err
		}
	}
	return nil
}

// ExtractOne extracts the output archive of a single module into the module
// directory. A module without a manifest pointer has nothing to extract.
// Files already present are replaced by the archive's version.
func (w *Walker) ExtractOne(ctx context.Context, module string) error {
	logger := logx.FromContext(ctx)
	p := logx.Start(logger)

	ptr, ok, err := archive.ReadPointer(w.fs, module)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("no output archive", "module", module)
		return nil
	}

	path := filepath.Join(module, ptr.Archive)
	if _, err := w.fs.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingArchiveError{Module: module, Archive: path}
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}

	n, err := archive.Extract(w.fs, path, module)
	if err != nil {
		return err
	}
	p.Done("extracted output archive", "module", module, "archive", ptr.Archive, "entries", n)
	return nil
}

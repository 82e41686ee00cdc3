// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package nodemodules materializes a module's node_modules directory from
// the workspace bundle produced by the install step.
package nodemodules

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pdiddy/nots-builder/internal/archive"
	"github.com/pdiddy/nots-builder/internal/logx"
)

// BundleFilename is the node_modules bundle inside a module build directory.
const BundleFilename = "workspace_node_modules.tar"

// Create unpacks bindir/workspace_node_modules.tar into bindir. A module
// without a bundle has no external dependencies; that is logged and is not
// an error. It reports whether a bundle was extracted.
func Create(ctx context.Context, fs afero.Fs, bindir string) (bool, error) {
	logger := logx.FromContext(ctx)
	p := logx.Start(logger)

	bundle := filepath.Join(bindir, BundleFilename)
	ok, err := afero.Exists(fs, bundle)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", bundle, err)
	}
	if !ok {
		logger.Warn("no node_modules bundle, skipping", "bundle", bundle)
		return false, nil
	}

	n, err := archive.Extract(fs, bundle, bindir)
	if err != nil {
		return false, fmt.Errorf("creating node_modules: %w", err)
	}
	p.Done("created node_modules", "bindir", bindir, "entries", n)
	return true, nil
}

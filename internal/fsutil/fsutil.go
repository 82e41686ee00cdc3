// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fsutil copies and moves module files. Copies always leave the
// destination writable by owner and group so later build steps can
// overwrite them.
package fsutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pdiddy/nots-builder/internal/logx"
)

// writeBits are added to every copied file and its parent directory.
const writeBits os.FileMode = 0o200 | 0o020

// Touch creates path or truncates it to zero length.
func Touch(fs afero.Fs, path string) error {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("touching %s: %w", path, err)
	}
	return f.Close()
}

// AddWritePermissions adds owner and group write bits to path. A missing
// path or a chmod failure is logged, not returned.
func AddWritePermissions(ctx context.Context, fs afero.Fs, path string) {
	logger := logx.FromContext(ctx)

	info, err := fs.Stat(path)
	if err != nil {
		logger.Warn("path does not exist", "path", path)
		return
	}

	mode := info.Mode().Perm()
	updated := mode | writeBits
	if mode == updated {
		return
	}
	if err := fs.Chmod(path, updated); err != nil {
		logger.Warn("cannot update permissions", "path", path, "err", err)
	}
}

// CopyIfNotExists copies the file or directory tree src to dst unless dst
// already exists. Dangling symlinks inside a tree are skipped.
func CopyIfNotExists(ctx context.Context, fs afero.Fs, src, dst string) error {
	if exists, err := afero.Exists(fs, dst); err != nil {
		return err
	} else if exists {
		return nil
	}

	info, err := fs.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return copyWritable(ctx, fs, src, dst)
	}

	return afero.Walk(fs, src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if fi.IsDir() {
			return fs.MkdirAll(target, fi.Mode().Perm()|0o700)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			resolved, statErr := fs.Stat(path)
			if statErr != nil || resolved.IsDir() {
				return nil
			}
		}
		return copyWritable(ctx, fs, path, target)
	})
}

// RecursiveCopy merges src into dst. Existing files in dst are kept unless
// overwrite is set.
func RecursiveCopy(ctx context.Context, fs afero.Fs, src, dst string, overwrite bool) error {
	AddWritePermissions(ctx, fs, filepath.Dir(dst))

	info, err := fs.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if info.IsDir() {
		if err := fs.MkdirAll(dst, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dst, err)
		}
		entries, err := afero.ReadDir(fs, src)
		if err != nil {
			return fmt.Errorf("reading %s: %w", src, err)
		}
		for _, e := range entries {
			if err := RecursiveCopy(ctx, fs, filepath.Join(src, e.Name()), filepath.Join(dst, e.Name()), overwrite); err != nil {
				return err
			}
		}
		return nil
	}

	if !info.Mode().IsRegular() {
		return nil
	}
	if !overwrite {
		if exists, err := afero.Exists(fs, dst); err != nil {
			return err
		} else if exists {
			return nil
		}
	}
	return copyWritable(ctx, fs, src, dst)
}

// MoveAside moves src to dst, replacing anything already at dst. A missing
// src is not an error and reports false.
func MoveAside(fs afero.Fs, src, dst string) (bool, error) {
	if exists, err := afero.Exists(fs, src); err != nil {
		return false, err
	} else if !exists {
		return false, nil
	}
	if err := fs.RemoveAll(dst); err != nil {
		return false, fmt.Errorf("removing %s: %w", dst, err)
	}
	if err := fs.Rename(src, dst); err != nil {
		return false, fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}
	return true, nil
}

func copyWritable(ctx context.Context, fs afero.Fs, src, dst string) (err error) {
	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}

	AddWritePermissions(ctx, fs, dst)
	return nil
}

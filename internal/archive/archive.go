// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive writes module output archives with their manifest pointer
// and extracts them back into module directories.
package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ErrUnsafePath is returned for archive entries that would land outside
// the destination directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Bundle describes an archive written by BundleDirs.
type Bundle struct {
	// Path is the archive file.
	Path string

	// Digest is the sha256 hex digest of the archive bytes.
	Digest string

	// Entries is the number of tar entries written.
	Entries int
}

// epoch is the modification time stamped on every entry so that identical
// trees produce identical archives.
var epoch = time.Unix(0, 0)

// BundleDirs packs each of dirs (relative to baseDir) into a tar at
// outputFile and writes the manifest pointer into baseDir. Entry names are
// relative to baseDir, so extracting into the module directory restores the
// directory layout. A missing source directory is an error; the partially
// written archive is removed on any failure.
func BundleDirs(fs afero.Fs, dirs []string, baseDir, outputFile string) (b Bundle, err error) {
	if !filepath.IsAbs(outputFile) {
		outputFile = filepath.Join(baseDir, outputFile)
	}

	for _, d := range dirs {
		src := filepath.Join(baseDir, d)
		info, statErr := fs.Stat(src)
		if statErr != nil {
			return Bundle{}, fmt.Errorf("output directory %s: %w", src, statErr)
		}
		if !info.IsDir() {
			return Bundle{}, fmt.Errorf("output directory %s is not a directory", src)
		}
	}

	if err := fs.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return Bundle{}, fmt.Errorf("creating %s: %w", filepath.Dir(outputFile), err)
	}

	f, err := fs.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Bundle{}, fmt.Errorf("creating archive %s: %w", outputFile, err)
	}
	defer func() {
		if err != nil {
			_ = fs.Remove(outputFile)
		}
	}()

	hash := sha256.New()
	tw := tar.NewWriter(io.MultiWriter(f, hash))

	entries := 0
	for _, d := range dirs {
		n, walkErr := addDir(fs, tw, baseDir, filepath.Join(baseDir, d), outputFile)
		entries += n
		if walkErr != nil {
			_ = tw.Close()
			_ = f.Close()
			return Bundle{}, fmt.Errorf("archiving %s: %w", d, walkErr)
		}
	}

	if err = tw.Close(); err != nil {
		_ = f.Close()
		return Bundle{}, fmt.Errorf("finishing archive %s: %w", outputFile, err)
	}
	if err = f.Close(); err != nil {
		return Bundle{}, fmt.Errorf("closing archive %s: %w", outputFile, err)
	}

	b = Bundle{
		Path:    outputFile,
		Digest:  hex.EncodeToString(hash.Sum(nil)),
		Entries: entries,
	}
	if err = WritePointer(fs, baseDir, Pointer{Archive: filepath.Base(outputFile), Suffix: b.Digest}); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// addDir writes root and everything below it. afero.Walk visits names in
// lexical order, which keeps the archive byte-stable.
func addDir(fs afero.Fs, tw *tar.Writer, baseDir, root, skip string) (int, error) {
	n := 0
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == skip {
			return nil
		}

		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}

		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			reader, ok := fs.(afero.LinkReader)
			if !ok {
				return &os.LinkError{Op: "readlink", Old: path, New: "", Err: afero.ErrNoReadlink}
			}
			if link, err = reader.ReadlinkIfPossible(path); err != nil {
				return err
			}
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("header for %s: %w", path, err)
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		hdr.ModTime = epoch
		hdr.AccessTime = time.Time{}
		hdr.ChangeTime = time.Time{}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "", ""

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		n++

		if !info.Mode().IsRegular() {
			return nil
		}
		src, err := fs.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		if _, err := io.Copy(tw, src); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	})
	return n, err
}

// Extract unpacks the tar at archivePath into destDir and returns the number
// of entries written. Existing files are replaced by the archive's version;
// existing directories are kept. Symlinks need a filesystem implementing
// afero.Linker and must stay inside destDir; no entry is written through a
// symlinked directory.
func Extract(fs afero.Fs, archivePath, destDir string) (n int, err error) {
	f, err := fs.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("reading archive %s: %w", archivePath, err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return n, err
		}
		if err := checkNoSymlinkParent(fs, destDir, target); err != nil {
			return n, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, dirMode(hdr)); err != nil {
				return n, fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(fs, target, tr, fileMode(hdr)); err != nil {
				return n, err
			}
		case tar.TypeSymlink:
			if err := checkSymlinkTarget(destDir, target, hdr.Linkname); err != nil {
				return n, err
			}
			if err := writeSymlink(fs, target, hdr.Linkname); err != nil {
				return n, err
			}
		case tar.TypeLink:
			src, err := safeJoin(destDir, hdr.Linkname)
			if err != nil {
				return n, err
			}
			if err := copyLink(fs, src, target, fileMode(hdr)); err != nil {
				return n, err
			}
		default:
			continue
		}
		n++
	}
}

func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// checkNoSymlinkParent rejects target when a directory between destDir and
// target is a symlink, since writing through it could leave destDir.
func checkNoSymlinkParent(fs afero.Fs, destDir, target string) error {
	lstater, ok := fs.(afero.Lstater)
	if !ok {
		return nil
	}
	rel, err := filepath.Rel(destDir, filepath.Dir(target))
	if err != nil || rel == "." {
		return nil
	}

	cur := destDir
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, _, err := lstater.LstatIfPossible(cur)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("checking %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s is a symlink", ErrUnsafePath, cur)
		}
	}
	return nil
}

// checkSymlinkTarget rejects links that are absolute or point outside destDir.
func checkSymlinkTarget(destDir, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, target, linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	rel, err := filepath.Rel(destDir, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, target, linkname)
	}
	return nil
}

func dirMode(hdr *tar.Header) os.FileMode {
	return os.FileMode(hdr.Mode).Perm() | 0o700
}

func fileMode(hdr *tar.Header) os.FileMode {
	if m := os.FileMode(hdr.Mode).Perm(); m != 0 {
		return m
	}
	return 0o644
}

// removeExisting removes whatever is at path so a duplicate entry can take its place.
func removeExisting(fs afero.Fs, path string) error {
	if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func writeFile(fs afero.Fs, target string, r io.Reader, mode os.FileMode) (err error) {
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(target), err)
	}
	if err := removeExisting(fs, target); err != nil {
		return err
	}

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return nil
}

func writeSymlink(fs afero.Fs, target, linkname string) error {
	linker, ok := fs.(afero.Linker)
	if !ok {
		return &os.LinkError{Op: "symlink", Old: linkname, New: target, Err: afero.ErrNoSymlink}
	}
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(target), err)
	}
	if err := removeExisting(fs, target); err != nil {
		return err
	}
	return linker.SymlinkIfPossible(linkname, target)
}

func copyLink(fs afero.Fs, src, target string, mode os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("hard link source %s: %w", src, err)
	}
	defer in.Close()
	return writeFile(fs, target, in, mode)
}

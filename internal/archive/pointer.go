// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// PointerFilename is the manifest pointer file inside a module directory.
const PointerFilename = "output_tar_uuid.txt"

// ErrEmptyPointer is returned when a pointer file names no archive.
var ErrEmptyPointer = errors.New("manifest pointer names no archive")

// Pointer is the parsed content of a manifest pointer file:
// "<archive filename>:<suffix>".
type Pointer struct {
	// Archive is the archive file name, relative to the module directory.
	Archive string

	// Suffix is everything after the first colon. The writer stores the
	// archive digest here; readers ignore it.
	Suffix string
}

// String formats the pointer for writing.
func (p Pointer) String() string {
	return p.Archive + ":" + p.Suffix
}

// ParsePointer parses pointer file content. Content without a colon is
// taken whole as the archive name.
func ParsePointer(content string) (Pointer, error) {
	name, suffix, _ := strings.Cut(content, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Pointer{}, ErrEmptyPointer
	}
	return Pointer{Archive: name, Suffix: strings.TrimSpace(suffix)}, nil
}

// ReadPointer reads the pointer file in moduleDir. The boolean is false,
// with a nil error, when the module has no pointer file.
func ReadPointer(fs afero.Fs, moduleDir string) (Pointer, bool, error) {
	path := filepath.Join(moduleDir, PointerFilename)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Pointer{}, false, nil
		}
		return Pointer{}, false, fmt.Errorf("reading %s: %w", path, err)
	}

	p, err := ParsePointer(string(data))
	if err != nil {
		return Pointer{}, true, fmt.Errorf("%s: %w", path, err)
	}
	return p, true, nil
}

// WritePointer writes p as the pointer file in moduleDir.
func WritePointer(fs afero.Fs, moduleDir string, p Pointer) error {
	path := filepath.Join(moduleDir, PointerFilename)
	if err := afero.WriteFile(fs, path, []byte(p.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxNameAttempts bounds the "name (n).ext" probing in DirSaver.
const maxNameAttempts = 1000

// Saver stores a downloaded file locally and returns where it went.
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// SaveError is a failure to store an export locally. It is distinct from
// transport and validation failures: the service already produced the file.
type SaveError struct {
	Filename string
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Filename, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// DirSaver writes files into a directory the way a browser download does:
// the payload is staged in a temp file and then linked under the first free
// name among "name.ext", "name (1).ext", "name (2).ext", and so on.
type DirSaver struct {
	Dir string
}

func (d DirSaver) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(d.Dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("stage download: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup of the staging file

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write download: %w", err)
	}

	for i := range maxNameAttempts {
		target := filepath.Join(d.Dir, numbered(name, i))
		err := os.Link(tmpPath, target)
		if err == nil {
			return target, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		// Filesystems without hard links: fall back to rename when the name is free.
		if _, statErr := os.Lstat(target); errors.Is(statErr, fs.ErrNotExist) {
			if err := os.Rename(tmpPath, target); err != nil {
				return "", fmt.Errorf("move download: %w", err)
			}
			return target, nil
		}
	}
	return "", fmt.Errorf("no free file name for %q after %d attempts", name, maxNameAttempts)
}

func numbered(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

// Package artifacts keeps generated CSV and PDF files in a local directory.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidName = errors.New("invalid artifact name")

type Dir struct {
	root string
}

// NewDir creates root if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// NewName returns "<prefix>_<32 hex chars>.<ext>".
func NewName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}

// Write stores data under name. Partial files are never visible under the final name.
func (d *Dir) Write(name string, data []byte) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	tmp, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(d.root, name))
}

// List returns the sorted names of files starting with prefix.
func (d *Dir) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

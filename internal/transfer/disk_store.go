package transfer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStore keeps blobs as <dir>/<name>.gz.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a store rooted at dir, creating the directory.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Path returns the file that holds name.
func (s *DiskStore) Path(name string) string {
	return filepath.Join(s.dir, name+".gz")
}

// Get reads the blob for name.
func (s *DiskStore) Get(_ context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return nil, ErrNotCached
	}
	return data, err
}

// Put writes the blob for name through a temporary file and a rename, while
// holding an advisory lock so that processes sharing dir do not interleave.
func (s *DiskStore) Put(_ context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}

	unlock, err := lockPath(filepath.Join(s.dir, name+".lock"))
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", name, err)
	}
	defer unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Delete removes the blob for name. Missing blobs are not an error.
func (s *DiskStore) Delete(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Usage returns the number of blobs and their total size in bytes.
func (s *DiskStore) Usage() (count int, size int64, err error) {
	err = filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".gz" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		count++
		size += info.Size()
		return nil
	})
	return count, size, err
}

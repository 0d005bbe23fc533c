package upload

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/siherrmann/schoolpayManager/helper"
)

// FilesystemMemory implements the Filesystem interface for in-memory file storage using go-billy's memfs
type FilesystemMemory struct {
	mu sync.RWMutex
	fs billy.Filesystem
}

// NewFilesystemMemory creates a new in-memory filesystem instance
func NewFilesystemMemory() Filesystem {
	return &FilesystemMemory{
		fs: memfs.New(),
	}
}

// Write streams data from reader to a file at the specified path
func (m *FilesystemMemory) Write(path string, reader io.Reader, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := m.fs.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, reader)
	return err
}

// Open opens the file at path for reading.
func (m *FilesystemMemory) Open(path string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fs.Open(path)
}

// Delete removes the file at path.
func (m *FilesystemMemory) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fs.Remove(path)
}

// ListFiles returns a list of all files in the filesystem
func (m *FilesystemMemory) ListFiles() ([]File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := []File{}

	var walk func(string) error
	walk = func(dirPath string) error {
		entries, err := m.fs.ReadDir(dirPath)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			entryPath := m.fs.Join(dirPath, entry.Name())
			if entry.IsDir() {
				if err := walk(entryPath); err != nil {
					return err
				}
				continue
			}

			relPath := entryPath
			if dirPath == "." || dirPath == "" {
				relPath = entry.Name()
			}
			files = append(files, File{
				Name:     filepath.ToSlash(relPath),
				Size:     entry.Size(),
				MimeType: helper.GetMimeType(entry.Name()),
			})
		}
		return nil
	}

	// An empty memfs has no root directory yet.
	if err := walk("."); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return files, nil
}

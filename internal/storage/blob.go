package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// BlobStore persists attachment payloads keyed by ticket id and returns the
// stored relative path.
type BlobStore interface {
	Save(ticketID int64, fileName string, r io.Reader) (string, error)
}

// DiskStore writes attachment blobs under a local upload directory, one
// folder per ticket. A randomized prefix keeps repeated filenames from
// colliding.
type DiskStore struct {
	root string
}

// NewDiskStore builds a disk-backed blob store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: dir}
}

// Save streams the payload to disk and returns the path relative to the
// upload root.
func (s *DiskStore) Save(ticketID int64, fileName string, r io.Reader) (string, error) {
	ticketDir := filepath.Join(s.root, strconv.FormatInt(ticketID, 10))
	if err := os.MkdirAll(ticketDir, 0o755); err != nil {
		return "", fmt.Errorf("create ticket dir: %w", err)
	}

	uniqueName := uuid.NewString() + "_" + filepath.Base(fileName)
	fullPath := filepath.Join(ticketDir, uniqueName)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	return filepath.ToSlash(filepath.Join(strconv.FormatInt(ticketID, 10), uniqueName)), nil
}

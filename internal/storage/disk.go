// Package storage persists uploaded document bytes on local disk and
// serves them back by document ID.
package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/clinovia/medextract/internal/common"
)

// BytesSource yields the raw bytes of a stored document.
type BytesSource interface {
	Fetch(ctx context.Context, id uuid.UUID) (data []byte, path string, err error)
}

// SavedFile describes a stored upload.
type SavedFile struct {
	Path      string
	SizeBytes int64
	SHA256    []byte
}

// DiskStore lays files out as <root>/<id[0:2]>/<id>.pdf. The two-char
// shard keeps directory fan-out bounded.
type DiskStore struct {
	root   string
	logger *slog.Logger
}

func NewDiskStore(root string, logger *slog.Logger) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskStore{root: abs, logger: logger}, nil
}

func (s *DiskStore) pathFor(id uuid.UUID) string {
	name := id.String()
	return filepath.Join(s.root, name[:2], name+".pdf")
}

// Save streams r to disk, hashing as it writes.
func (s *DiskStore) Save(ctx context.Context, id uuid.UUID, r io.Reader) (SavedFile, error) {
	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return SavedFile{}, common.NewPersistenceError("create storage directory", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return SavedFile{}, common.NewPersistenceError("create document file", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return SavedFile{}, common.NewPersistenceError("write document file", err)
	}

	s.logger.Debug("storage.saved", "document_id", id, "path", path, "size_bytes", n)
	return SavedFile{
		Path:      path,
		SizeBytes: n,
		SHA256:    h.Sum(nil),
	}, nil
}

func (s *DiskStore) Fetch(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	path := s.pathFor(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, "", common.NewNotFoundError(fmt.Sprintf("document %s has no stored file", id), err)
	}
	if err != nil {
		return nil, "", common.NewPersistenceError("read document file", err)
	}
	return data, path, nil
}

func (s *DiskStore) Remove(ctx context.Context, id uuid.UUID) error {
	err := os.Remove(s.pathFor(id))
	if err != nil && !os.IsNotExist(err) {
		return common.NewPersistenceError("remove document file", err)
	}
	return nil
}

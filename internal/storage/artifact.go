package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ArtifactStorage holds artifact blobs on disk. Each Save gets a fresh blob
// id, so uploads never contend for a write target.
type ArtifactStorage interface {
	// Save streams r to durable storage while computing its SHA-256 in the
	// same pass. On any error the partial file is removed before returning.
	Save(ctx context.Context, r io.Reader) (blobID, contentHash string, size int64, err error)
	Open(blobID string) (io.ReadCloser, error)
	Remove(blobID string) error
}

type artifactStorageImpl struct {
	rootDir string
	log     zerolog.Logger
}

func NewArtifactStorage(root string, log zerolog.Logger) (ArtifactStorage, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &artifactStorageImpl{rootDir: root, log: log}, nil
}

// Save implements ArtifactStorage. One read of the input feeds two
// consumers, the file and the digest, so the stream is never buffered whole.
func (s *artifactStorageImpl) Save(ctx context.Context, r io.Reader) (string, string, int64, error) {
	blobID := uuid.NewString()
	path := s.blobPath(blobID)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", 0, fmt.Errorf("create blob: %w", err)
	}

	digest := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, digest), &ctxReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.log.Error().Err(rmErr).Str("blob", blobID).Msg("abandon partial blob")
		}
		return "", "", 0, fmt.Errorf("write blob: %w", err)
	}

	return blobID, hex.EncodeToString(digest.Sum(nil)), size, nil
}

// Open implements ArtifactStorage.
func (s *artifactStorageImpl) Open(blobID string) (io.ReadCloser, error) {
	return os.Open(s.blobPath(blobID))
}

// Remove implements ArtifactStorage.
func (s *artifactStorageImpl) Remove(blobID string) error {
	return os.Remove(s.blobPath(blobID))
}

func (s *artifactStorageImpl) blobPath(blobID string) string {
	return filepath.Join(s.rootDir, blobID)
}

// ctxReader aborts an in-flight copy when the request is cancelled, so a
// dropped client connection does not keep the upload writing.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

package hashservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sync/errgroup"
)

const (
	blockSize = 4096
	// cap on files hashed at once by ComputeDigests
	maxConcurrentHashes = 4
)

var ErrFileNotFound = errors.New("file does not exist")

type HashService interface {
	ComputeFileDigest(path string) (string, error)
}

type FileDigest struct {
	Path   string
	Sha256 string
	Err    error
}

type Hasher struct{}

func NewHasher() *Hasher {
	return &Hasher{}
}

// ComputeFileDigest streams the file through SHA-256 in fixed-size blocks
// and returns the lowercase hex digest.
func (h *Hasher) ComputeFileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return "", fmt.Errorf("error opening %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", path, err)
	}
	if stat.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	hash := sha256.New()
	block := make([]byte, blockSize)
	for {
		n, err := file.Read(block)
		hash.Write(block[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("error hashing %s: %w", path, err)
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ComputeDigests hashes every path, a few at a time. A failure on one file is
// recorded on its FileDigest and does not stop the others; only ctx
// cancellation aborts the batch. Results keep the order of paths.
func (h *Hasher) ComputeDigests(ctx context.Context, paths []string) ([]FileDigest, error) {
	results := make([]FileDigest, len(paths))
	group, gCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentHashes)

	for i, path := range paths {
		group.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			digest, err := h.ComputeFileDigest(path)
			results[i] = FileDigest{Path: path, Sha256: digest, Err: err}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

package blobstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	keyTokenBytes = 16
	maxExtLength  = 16
)

// LocalStore persists blob bytes under a local root, keyed by a random
// 128-bit token plus the sanitized original extension.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local blob store rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

// Put streams bytes to a staging file and renames it into place under a
// fresh key. Either the full stream is durable under the returned key or
// the call fails and no blob exists under that key.
func (s *LocalStore) Put(ctx context.Context, r io.Reader, suggestedExt string) (PutResult, error) {
	var zero PutResult
	if s == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	key, err := newBlobKey(suggestedExt)
	if err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return zero, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return zero, err
	}

	return PutResult{Key: key, SizeBytes: n}, nil
}

// Open returns a reader for blob key content.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a blob object. Missing files are ignored.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Size returns the byte length of the blob stored under key.
func (s *LocalStore) Size(ctx context.Context, key string) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func newBlobKey(suggestedExt string) (string, error) {
	buf := make([]byte, keyTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	return fmt.Sprintf("%s/%s/%s%s", token[0:2], token[2:4], token, sanitizeExt(suggestedExt)), nil
}

func sanitizeExt(ext string) string {
	ext = strings.TrimSpace(strings.ToLower(ext))
	if ext == "" {
		return ""
	}
	ext = "." + strings.TrimLeft(ext, ".")
	if len(ext) > maxExtLength {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	if ext == "." {
		return ""
	}
	return ext
}

func (s *LocalStore) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(s.root, clean), nil
}

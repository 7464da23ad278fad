package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound indicates the blob does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// Store is a content-addressed file store. Blobs are written under their
// SHA-256 digest, so identical content shares a single file and writes are
// naturally idempotent. Writes go through a temp file and a rename, so a
// blob is either fully present or absent.
type Store struct {
	root string
}

// NewStore opens a blob store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("blob dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Put writes content to the store and returns its reference. Writing the
// same content twice returns the same reference without rewriting the file.
func (s *Store) Put(ext string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", errors.New("blob content is empty")
	}

	sum := sha256.Sum256(content)
	ref := hex.EncodeToString(sum[:]) + normalizeExt(ext)
	target := filepath.Join(s.root, ref)

	if _, err := os.Stat(target); err == nil {
		return ref, nil
	}

	tmp, err := os.CreateTemp(s.root, ".blob-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("publish blob: %w", err)
	}
	return ref, nil
}

// PutReader streams content into the store and returns its reference.
func (s *Store) PutReader(ext string, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read blob content: %w", err)
	}
	return s.Put(ext, content)
}

// Get returns the content of a stored blob.
func (s *Store) Get(ref string) ([]byte, error) {
	path, err := s.Path(ref)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return content, nil
}

// Path resolves a reference to its absolute file path without reading it.
// References that escape the store root are rejected.
func (s *Store) Path(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("blob ref is required")
	}
	if ref != filepath.Base(ref) {
		return "", fmt.Errorf("invalid blob ref %q", ref)
	}
	return filepath.Join(s.root, ref), nil
}

// Exists reports whether a blob is present.
func (s *Store) Exists(ref string) bool {
	path, err := s.Path(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(ext)
}

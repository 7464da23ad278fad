package blob_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"vividly/internal/blob"
)

func TestPutAndGetRoundTrip(t *testing.T) {
	store, err := blob.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	content := []byte("once upon a photosynthesis")
	ref, err := store.Put("txt", content)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasSuffix(ref, ".txt") {
		t.Fatalf("expected .txt suffix, got %q", ref)
	}

	got, err := store.Get(ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestPutIsIdempotentForSameContent(t *testing.T) {
	store, err := blob.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	first, err := store.Put("mp3", []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	second, err := store.Put("mp3", []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical refs, got %q and %q", first, second)
	}

	other, err := store.Put("mp3", []byte("different-bytes"))
	if err != nil {
		t.Fatalf("third Put failed: %v", err)
	}
	if other == first {
		t.Fatal("different content must not share a ref")
	}
}

func TestGetMissingBlob(t *testing.T) {
	store, err := blob.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.Get("deadbeef.txt"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	store, err := blob.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.Path("../escape.txt"); err == nil {
		t.Fatal("expected traversal ref to be rejected")
	}
	if store.Exists("../../etc/passwd") {
		t.Fatal("traversal ref must not exist")
	}
}

func TestPutRejectsEmptyContent(t *testing.T) {
	store, err := blob.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.Put("txt", nil); err == nil {
		t.Fatal("expected error for empty content")
	}
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestMemStoreUploadAndDelete(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{BucketURL: "mem://", PublicBaseURL: "https://cdn.example.com/"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	obj, err := store.Upload(ctx, "/images/2026/10/../a.png", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.ID != "images/2026/10/a.png" {
		t.Fatalf("unexpected key %q", obj.ID)
	}
	if obj.URL != "https://cdn.example.com/images/2026/10/a.png" {
		t.Fatalf("unexpected url %q", obj.URL)
	}
	exists, err := store.Exists(ctx, obj.ID)
	if err != nil || !exists {
		t.Fatalf("object should exist, err=%v", err)
	}

	if err := store.Delete(ctx, obj.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, obj.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete want ErrNotFound, got %v", err)
	}
}

func TestFileStoreCreatesDir(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := Open(ctx, Config{BucketURL: "file://" + filepath.ToSlash(dir)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	obj, err := store.Upload(ctx, "docs/cv.pdf", []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if obj.URL != "/docs/cv.pdf" {
		t.Fatalf("unexpected url %q", obj.URL)
	}
}

func TestOpenRequiresBucketURL(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("want ErrConfigInvalid, got %v", err)
	}
	if _, err := (&BlobStore{}).Upload(context.Background(), "../..", nil, ""); !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("want ErrKeyInvalid, got %v", err)
	}
}

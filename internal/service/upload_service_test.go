package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/storage"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func openMemStore(t *testing.T) *storage.BlobStore {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.Config{BucketURL: "mem://", PublicBaseURL: "https://cdn.example.com"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxSize:           1 << 20,
		AllowedTypes:      []string{"image/png", "image/jpeg", "image/gif", "image/webp"},
		AllowedExtensions: []string{".png", ".jpg", ".jpeg", ".gif", ".webp"},
		MaxWidth:          64,
		MaxHeight:         64,
		DocumentMaxSize:   1 << 20,
		DocumentTypes:     []string{"application/pdf", "image/png", "image/jpeg"},
	}
}

func TestStoreImage(t *testing.T) {
	store := openMemStore(t)
	svc := NewUploadService(testUploadConfig(), store)
	svc.now = func() time.Time { return time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	result, err := svc.StoreImage(ctx, "avatar.PNG", testPNG(t, 16, 16))
	if err != nil {
		t.Fatalf("store image: %v", err)
	}
	if !strings.HasPrefix(result.ID, "images/2025/03/") || !strings.HasSuffix(result.ID, ".png") {
		t.Fatalf("unexpected key %q", result.ID)
	}
	if result.URL != "https://cdn.example.com/"+result.ID || result.Type != "image/png" {
		t.Fatalf("unexpected result %+v", result)
	}
	if ok, err := store.Exists(ctx, result.ID); err != nil || !ok {
		t.Fatalf("object should exist, ok=%v err=%v", ok, err)
	}

	if _, err := svc.StoreImage(ctx, "big.png", testPNG(t, 128, 16)); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("oversized image should fail, got %v", err)
	}
	if _, err := svc.StoreImage(ctx, "notes.txt", []byte("hello")); !errors.Is(err, ErrFileTypeNotAllowed) {
		t.Fatalf("bad extension should fail, got %v", err)
	}
	if _, err := svc.StoreImage(ctx, "fake.png", []byte("%PDF-1.4 not an image")); !errors.Is(err, ErrFileTypeNotAllowed) {
		t.Fatalf("sniffed type mismatch should fail, got %v", err)
	}
	if _, err := svc.StoreImage(ctx, "huge.png", make([]byte, 2<<20)); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("oversized file should fail, got %v", err)
	}
}

func TestDecodeWebPDimensions(t *testing.T) {
	// RIFF + VP8L 最小头：宽 3 高 2
	bits := uint32(3-1) | uint32(2-1)<<14
	chunk := []byte{0x2f, byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	buf.Write([]byte{0, 0, 0, 0})
	buf.WriteString("WEBP")
	buf.WriteString("VP8L")
	buf.Write([]byte{byte(len(chunk)), 0, 0, 0})
	buf.Write(chunk)

	w, h, err := decodeImageDimensions(bytes.NewReader(buf.Bytes()), "image/webp")
	if err != nil || w != 3 || h != 2 {
		t.Fatalf("unexpected dimensions %dx%d err=%v", w, h, err)
	}
}

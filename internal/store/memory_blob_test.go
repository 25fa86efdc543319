package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMemoryBlob_UploadDownload(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlob()

	if err := blobs.Upload(ctx, "key", []byte("payload"), "audio/wav"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	data, err := blobs.Download(ctx, "key")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("expected payload, got %q", data)
	}
}

func TestMemoryBlob_DownloadMissing(t *testing.T) {
	_, err := NewMemoryBlob().Download(context.Background(), "nope")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestMemoryBlob_Rename(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlob()
	_ = blobs.Upload(ctx, "old", []byte("x"), "audio/wav")

	if err := blobs.Rename(ctx, "old", "new"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}

	if _, err := blobs.Download(ctx, "old"); !errors.Is(err, ErrBlobNotFound) {
		t.Error("old key still readable after rename")
	}
	if _, err := blobs.Download(ctx, "new"); err != nil {
		t.Errorf("new key not readable after rename: %v", err)
	}

	if err := blobs.Rename(ctx, "old", "elsewhere"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("expected ErrBlobNotFound renaming missing key, got %v", err)
	}
}

func TestMemoryBlob_CopyKeepsSource(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlob()
	_ = blobs.Upload(ctx, "src", []byte("x"), "audio/wav")

	if err := blobs.Copy(ctx, "src", "dst"); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	for _, key := range []string{"src", "dst"} {
		if _, err := blobs.Download(ctx, key); err != nil {
			t.Errorf("key %s not readable after copy: %v", key, err)
		}
	}
}

func TestMemoryBlob_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlob()
	_ = blobs.Upload(ctx, "key", []byte("x"), "audio/wav")

	if err := blobs.Delete(ctx, "key"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := blobs.Delete(ctx, "key"); err != nil {
		t.Errorf("deleting an absent key must not fail, got %v", err)
	}
}

func TestStemKey(t *testing.T) {
	if got := StemKey("vocals", "sig-1"); got != "vocals__sig-1" {
		t.Errorf("expected vocals__sig-1, got %s", got)
	}
	if got := AugmentedStemKey("vocals", "sig-1"); got != "vocals__sig-1_augment" {
		t.Errorf("expected vocals__sig-1_augment, got %s", got)
	}
}

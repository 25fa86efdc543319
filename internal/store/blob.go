package store

import (
	"context"
	"fmt"
)

// BlobStore is binary object storage keyed by string name. There is no
// in-place mutation; every write replaces the whole object.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	// Copy duplicates src under dst, leaving src in place.
	Copy(ctx context.Context, src, dst string) error
	// Rename moves src to dst. Fails if src does not exist.
	Rename(ctx context.Context, src, dst string) error
	// Delete removes a blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// StemKey derives the blob key of a stem from its name and parent signal ID,
// so stem blobs are addressable without a metadata lookup.
func StemKey(name, signalID string) string {
	return fmt.Sprintf("%s__%s", name, signalID)
}

// AugmentedStemKey derives the blob key of an augmented stem variant.
func AugmentedStemKey(name, signalID string) string {
	return StemKey(name, signalID) + "_augment"
}

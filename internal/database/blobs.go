package database

import (
	"context"
	"fmt"
)

// ImageBlobs stores face images outside the identity store.
type ImageBlobs interface {
	// PutImage stores data under key, replacing any previous image
	PutImage(ctx context.Context, key int, data []byte) error
	// GetImage returns the image, nil if there is none
	GetImage(ctx context.Context, key int) ([]byte, error)
}

// blobBackedStore keeps records in the wrapped store and images in blobs.
type blobBackedStore struct {
	IdentityStore
	blobs ImageBlobs
}

// WithImageStore returns a store that writes images to blobs and keeps only
// the rest of each record in store. The image is written first, so a record
// never references an image that is not there.
func WithImageStore(store IdentityStore, blobs ImageBlobs) IdentityStore {
	return &blobBackedStore{IdentityStore: store, blobs: blobs}
}

func (s *blobBackedStore) Put(ctx context.Context, rec StoredIdentity) error {
	if rec.Image != nil {
		if err := s.blobs.PutImage(ctx, rec.Key, rec.Image); err != nil {
			return fmt.Errorf("store image blob: %w", err)
		}
	}
	rec.Image = nil
	return s.IdentityStore.Put(ctx, rec)
}

func (s *blobBackedStore) GetImage(ctx context.Context, key int) ([]byte, error) {
	rec, err := s.IdentityStore.Get(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	img, err := s.blobs.GetImage(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load image blob: %w", err)
	}
	return img, nil
}

// Package blobstore keeps face images in MinIO or any S3-compatible bucket.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Rohith2006/Facial-Recognition/internal/config"
	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store implements database.ImageBlobs on top of a MinIO client.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore wraps an existing client. Objects are named <prefix>/<key>.png.
func NewStore(client *minio.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Open creates a client from configuration and makes sure the bucket exists.
func Open(ctx context.Context, cfg config.BlobConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", cfg.Bucket, err)
		}
	}
	return NewStore(client, cfg.Bucket, "faces"), nil
}

func (s *Store) objectName(key int) string {
	return path.Join(s.prefix, database.FormatKey(key)+".png")
}

// PutImage uploads data, replacing any previous object.
func (s *Store) PutImage(ctx context.Context, key int, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// GetImage downloads the image, nil if it does not exist.
func (s *Store) GetImage(ctx context.Context, key int) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return data, nil
}

func notFoundAsNil(err error) error {
	code := minio.ToErrorResponse(err).Code
	if code == "NoSuchKey" || code == "NotFound" {
		return nil
	}
	return fmt.Errorf("get object: %w", err)
}

var _ database.ImageBlobs = (*Store)(nil)

package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/desertthunder/mdx/internal/shared"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps blobs as objects in a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to endpoint and creates bucket when it does not exist.
func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) Name() string { return "minio" }

// Put uploads r as object name.
func (s *MinioStore) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{
		ContentType: ContentType(name),
	})
	if err != nil {
		return shared.StorageError("put object", err)
	}
	return nil
}

// Open streams object name. The object is stat'ed first so a missing key fails here rather than on Read.
func (s *MinioStore) Open(ctx context.Context, name string) (io.ReadCloser, Info, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, Info{}, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, s.translate(name, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, Info{}, s.translate(name, err)
	}

	return obj, Info{Name: name, Size: stat.Size, ContentType: stat.ContentType, ModTime: stat.LastModified}, nil
}

// Remove deletes object name.
func (s *MinioStore) Remove(ctx context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return shared.StorageError("remove object", err)
	}
	return nil
}

func (s *MinioStore) translate(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("file %s: %w", name, shared.ErrNotFound)
	}
	return shared.StorageError("get object", err)
}

package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"
	"github.com/pkg/errors"

	"custodian/internal/config"
)

// infrequent-access tier: artifacts are written once and rarely read
const storageClass = "STANDARD_IA"

type objectStorage struct {
	client *minio.Client
	bucket string
	region string
}

func NewObjectStorage(cfg config.StorageConfig) (Storage, error) {
	mn, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &objectStorage{
		client: mn,
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

func (s objectStorage) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := s.makeBucket(ctx); err != nil {
		return err
	}

	// artifacts are already ciphertext; server-side encryption is
	// requested on top as defense in depth
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:          "application/octet-stream",
		ServerSideEncryption: encrypt.NewSSE(),
		StorageClass:         storageClass,
	})
	if err != nil {
		return errors.Wrap(err, "failed to upload object")
	}
	return nil
}

func (s objectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch object")
	}

	// GetObject is lazy; Stat forces the first request so a missing
	// key surfaces here instead of on first read
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, errors.Wrap(err, "object not resolvable: "+key)
	}
	return obj, nil
}

func (s objectStorage) List(ctx context.Context, prefix string) ([]Entry, error) {
	entries := make([]Entry, 0)
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		entries = append(entries, Entry{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified.Unix(),
		})
	}
	return entries, nil
}

func (s objectStorage) RemoveMany(ctx context.Context, keys []string) ([]string, []string, error) {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	failedSet := make(map[string]bool)
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		// removing a key that is already gone is a success for our
		// purposes, the store reports it as NoSuchKey
		if minio.ToErrorResponse(rerr.Err).Code == "NoSuchKey" {
			continue
		}
		failedSet[rerr.ObjectName] = true
	}

	deleted := make([]string, 0, len(keys))
	failed := make([]string, 0)
	for _, key := range keys {
		if failedSet[key] {
			failed = append(failed, key)
		} else {
			deleted = append(deleted, key)
		}
	}
	return deleted, failed, nil
}

func (s objectStorage) makeBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
}

func (s objectStorage) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}

package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/carelytic/platform/pkg/common/config"
	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps an S3/R2-compatible blob store. Keys are path-style,
// matching the bucket layout the upload gatekeeper derives.
type Client struct {
	mc     *minio.Client
	bucket string
}

func New(cfg *config.Config) (*Client, error) {
	mc, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure:       cfg.StorageUseSSL,
		Region:       cfg.StorageRegion,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("initialising object store client: %w", err)
	}

	return &Client{mc: mc, bucket: cfg.StorageBucket}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) Put(ctx context.Context, key string, data []byte, contentType, originalName string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-name": originalName},
	}

	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		logger.Log.WithError(err).WithField("key", key).Error("object store put failed")
		return fmt.Errorf("storing object %s: %w", key, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

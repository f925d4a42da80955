package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

// ReceiptArchive keeps a durable copy of every settled receipt artifact
// so historical re-prints do not depend on the document service being
// reachable.
type ReceiptArchive struct {
	raw    *minio.Client
	bucket string
	prefix string
}

func NewReceiptArchive(ctx context.Context, cfg S3Config) (*ReceiptArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &ReceiptArchive{
		raw:    client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (c *ReceiptArchive) key(transactionRef string) string {
	return fmt.Sprintf("%sreceipt_%s.pdf", c.prefix, transactionRef)
}

// Archive stores a receipt artifact keyed by transaction reference and
// returns the object key.
func (c *ReceiptArchive) Archive(ctx context.Context, transactionRef string, data []byte) (string, error) {
	if c.raw == nil {
		return "", fmt.Errorf("s3 client is nil")
	}

	key := c.key(transactionRef)

	reader := bytes.NewReader(data)
	size := int64(len(data))

	_, err := c.raw.PutObject(ctx, c.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("put object %q failed: %w", key, err)
	}

	return key, nil
}

// Fetch returns the archived artifact for a settled transaction.
func (c *ReceiptArchive) Fetch(ctx context.Context, transactionRef string) ([]byte, error) {
	if c.raw == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}

	key := c.key(transactionRef)

	obj, err := c.raw.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q failed: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %q failed: %w", key, err)
	}

	return data, nil
}

// GetTemporaryURL presigns a time-limited download link for an archived
// receipt.
func (c *ReceiptArchive) GetTemporaryURL(ctx context.Context, transactionRef string, ttl time.Duration) (string, error) {
	if c.raw == nil {
		return "", fmt.Errorf("s3 client is nil")
	}

	u, err := c.raw.PresignedGetObject(ctx, c.bucket, c.key(transactionRef), ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign get object failed: %w", err)
	}

	return u.String(), nil
}

package session

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"rebase/internal/config"
)

// Archiver stores a session snapshot before the session is deleted.
type Archiver interface {
	Archive(ctx context.Context, sessionID string, snapshot []byte) error
}

// MinioArchiver writes snapshots to an S3-compatible bucket as
// sessions/<id>.json.
type MinioArchiver struct {
	client *minio.Client
	bucket string
	region string

	mu           sync.Mutex
	ready        bool
	bucketExists func(ctx context.Context, bucket string) (bool, error)
	mkBucket     func(ctx context.Context, bucket, region string) error
}

func NewMinioArchiver(cfg config.ArchiveConfig) (*MinioArchiver, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	a := &MinioArchiver{client: client, bucket: bucket, region: region}
	a.bucketExists = client.BucketExists
	a.mkBucket = func(ctx context.Context, bucket, region string) error {
		return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	}
	return a, nil
}

// ensureBucket creates the bucket on first use. Only success is
// remembered; a failed attempt is retried on the next call.
func (a *MinioArchiver) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	exists, err := a.bucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.mkBucket(ctx, a.bucket, a.region); err != nil {
			return err
		}
	}
	a.ready = true
	return nil
}

func archiveKey(sessionID string) string {
	return "sessions/" + sessionID + ".json"
}

func (a *MinioArchiver) Archive(ctx context.Context, sessionID string, snapshot []byte) error {
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	_, err := a.client.PutObject(ctx, a.bucket, archiveKey(sessionID), bytes.NewReader(snapshot), int64(len(snapshot)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("archive session %s: %w", sessionID, err)
	}
	return nil
}

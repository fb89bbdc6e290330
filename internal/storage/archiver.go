// Package storage archives customer import files in S3-compatible object
// storage. Archiving is best effort: the import pipeline treats failures
// here as non-fatal.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"voicecrm_backend/platform/config"
	"voicecrm_backend/platform/logger"
)

// Archiver stores raw CSV uploads in a MinIO bucket so imports can be
// audited and replayed. When storage is not configured every call is a
// no-op and Enabled reports false.
type Archiver struct {
	client *minio.Client
	bucket string
	log    *logger.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewArchiver builds the archiver from storage configuration. It returns
// (nil, nil) when storage is not configured; callers keep working without
// an archive.
func NewArchiver(cfg config.StorageConfig, log *logger.Logger) (*Archiver, error) {
	if !cfg.IsStorageEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Archiver{
		client: client,
		bucket: cfg.GetImportArchiveBucket(),
		log:    log,
	}, nil
}

// Enabled reports whether uploads will actually be stored.
func (a *Archiver) Enabled() bool {
	return a != nil && a.client != nil
}

// Archive writes the uploaded file to the archive bucket under a
// date-partitioned key. The original filename is kept in the key so a
// human browsing the bucket can find a specific upload.
func (a *Archiver) Archive(ctx context.Context, filename string, data []byte) error {
	if !a.Enabled() {
		return nil
	}

	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	key := objectKey(filename)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}

	a.log.Info("import file archived", "bucket", a.bucket, "key", key, "size", len(data))
	return nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	a.ensureOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.ensureErr = fmt.Errorf("check bucket %s: %w", a.bucket, err)
			return
		}
		if !exists {
			if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
				a.ensureErr = fmt.Errorf("create bucket %s: %w", a.bucket, err)
			}
		}
	})
	return a.ensureErr
}

// objectKey builds a unique, date-partitioned object name. The UUID prefix
// prevents two same-named uploads on the same day from overwriting each
// other.
func objectKey(filename string) string {
	name := path.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "import.csv"
	}
	return fmt.Sprintf("%s/%s_%s",
		time.Now().UTC().Format("2006/01/02"),
		uuid.New().String()[:8],
		name,
	)
}

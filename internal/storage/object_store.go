package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"repurposer/internal/config"
)

// ObjectStore archives delivered outputs to an S3-compatible bucket.
type ObjectStore struct {
	client *minio.Client
	cfg    config.ArchiveConfig
	now    func() time.Time
}

func NewObjectStore(cfg config.ArchiveConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Archive uploads the file at filePath under a dated key for the job.
func (s *ObjectStore) Archive(ctx context.Context, jobID, filePath, filename string) error {
	key := ArchiveKey(s.now(), jobID, filename)
	_, err := s.client.FPutObject(ctx, s.cfg.Bucket, key, filePath, minio.PutObjectOptions{
		ContentType: contentType(filename),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// ArchiveKey lays objects out as YYYY/MM/DD/<job>/<filename>.
func ArchiveKey(at time.Time, jobID, filename string) string {
	return path.Join(at.UTC().Format("2006/01/02"), jobID, path.Base(filename))
}

func contentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return "application/octet-stream"
}

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/repository"
)

// Config describes the S3-compatible bucket a gallery is published to.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("publish endpoint is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("publish bucket is required")
	}
	return nil
}

// objectClient is the part of *minio.Client the publisher uses.
type objectClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, key, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// PublisherImpl uploads a generated gallery directory to object storage.
type PublisherImpl struct {
	client objectClient
	cfg    Config
	logger *zap.Logger
}

// NewPublisher creates a publisher with a MinIO client for cfg.
func NewPublisher(cfg Config, logger *zap.Logger) (*PublisherImpl, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}
	return newPublisher(client, cfg, logger), nil
}

func newPublisher(client objectClient, cfg Config, logger *zap.Logger) *PublisherImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublisherImpl{client: client, cfg: cfg, logger: logger}
}

var _ repository.Publisher = (*PublisherImpl)(nil)

// Publish uploads every regular file under dir, keeping the relative layout
// under the configured prefix. It returns the number of objects written.
func (p *PublisherImpl) Publish(ctx context.Context, dir string) (int, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return 0, err
	}

	uploaded := 0
	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		// Skip dotfiles such as leftover atomic-write temporaries.
		if strings.HasPrefix(d.Name(), ".") && file != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		key := objectKey(p.cfg.Prefix, rel)
		_, err = p.client.FPutObject(ctx, p.cfg.Bucket, key, file, minio.PutObjectOptions{
			ContentType: contentType(file),
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		uploaded++
		p.logger.Debug("Uploaded object", zap.String("bucket", p.cfg.Bucket), zap.String("key", key))
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("failed to publish %s: %w", dir, err)
	}

	p.logger.Info("Gallery published",
		zap.String("bucket", p.cfg.Bucket),
		zap.String("prefix", p.cfg.Prefix),
		zap.Int("objects", uploaded),
	)
	return uploaded, nil
}

func (p *PublisherImpl) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.cfg.Bucket, minio.MakeBucketOptions{Region: p.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", p.cfg.Bucket, err)
	}
	return nil
}

func objectKey(prefix, rel string) string {
	key := filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

func contentType(file string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(file))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

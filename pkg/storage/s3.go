package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/apperr"
)

const (
	// FolderVideos is the key prefix for uploaded videos.
	FolderVideos = "videos"
	// FolderImages is the key prefix for uploaded thumbnails.
	FolderImages = "images"
)

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Endpoint overrides the S3 endpoint (MinIO, LocalStack). Enables path-style addressing.
	Endpoint string
	// PublicBaseURL, when set, prefixes keys in URL instead of the virtual-hosted S3 URL.
	PublicBaseURL string
}

// S3 is the blob store for uploaded media.
type S3 struct {
	uploader *manager.Uploader
	cfg      S3Config
	now      func() time.Time
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY), falling back to the default chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("bucket", cfg.Bucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024 // 5MB parts for streaming
	})
	return &S3{uploader: uploader, cfg: cfg, now: time.Now, logger: logger}, nil
}

// ObjectKey builds folder/<base>_<unix><ext> from an uploaded filename so
// repeated uploads of the same name never collide.
func ObjectKey(folder, filename string, at time.Time) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(path.Ext(name))
	base := sanitize(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/%s_%d%s", folder, base, at.Unix(), ext)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ContentTypeFor returns the MIME type for a filename extension.
func ContentTypeFor(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Put streams body to the bucket under a key derived from folder and filename
// and returns the key. Failures are apperr.ErrUpstream.
func (s *S3) Put(ctx context.Context, folder, filename string, body io.Reader, size int64) (string, error) {
	key := ObjectKey(folder, filename, s.now())
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ContentTypeFor(filename)),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", apperr.Upstream("s3 upload", err)
	}
	s.logger.Info("object stored", zap.String("key", key), zap.Int64("size", size))
	return key, nil
}

// URL returns the public URL of key.
func (s *S3) URL(key string) string {
	return PublicURL(s.cfg, key)
}

// PublicURL renders key against cfg.PublicBaseURL, the custom endpoint, or the
// virtual-hosted S3 URL, in that order.
func PublicURL(cfg S3Config, key string) string {
	key = strings.TrimPrefix(key, "/")
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimSuffix(cfg.PublicBaseURL, "/") + "/" + key
	case cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, cfg.Region, key)
	}
}

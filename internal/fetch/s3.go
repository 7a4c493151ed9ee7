package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/pathutil"
)

type downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*manager.Downloader)) (int64, error)
}

// S3Fetcher reads documents from a bucket, optionally below a key prefix.
type S3Fetcher struct {
	downloader downloader
	bucket     string
	prefix     string
}

func NewS3Fetcher(ctx context.Context, cfg config.FetchConfig) (*S3Fetcher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 backend requires fetch.bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Fetcher(manager.NewDownloader(client), cfg.Bucket, cfg.Prefix), nil
}

func newS3Fetcher(d downloader, bucket, prefix string) *S3Fetcher {
	return &S3Fetcher{
		downloader: d,
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
	}
}

// Key returns the object key that backs pagePath.
func (f *S3Fetcher) Key(pagePath string) string {
	rel := pathutil.MarkdownPath(pagePath)
	if rel == "" || f.prefix == "" {
		return rel
	}
	return path.Join(f.prefix, rel)
}

func (f *S3Fetcher) Fetch(ctx context.Context, pagePath string) (string, error) {
	key := f.Key(pagePath)
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrNotFound, pagePath)
	}

	buf := manager.NewWriteAtBuffer([]byte{})
	_, err := f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, pagePath)
		}
		return "", fmt.Errorf("failed to download s3://%s/%s: %w", f.bucket, key, err)
	}
	return string(buf.Bytes()), nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

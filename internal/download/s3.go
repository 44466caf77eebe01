package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"kv-go/internal/kv"
)

// S3Fetcher downloads s3://bucket/key URLs.
type S3Fetcher struct {
	client  *s3.Client
	maxSize int64
}

// NewS3Fetcher creates a fetcher using client.
func NewS3Fetcher(client *s3.Client, maxSize int64) *S3Fetcher {
	return &S3Fetcher{client: client, maxSize: maxSize}
}

// ParseS3URL splits s3://bucket/key into its parts.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 URL: %s", rawURL)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL must be s3://bucket/key, got %s", rawURL)
	}
	return bucket, key, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, &kv.NetworkError{Err: err}
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &kv.NetworkError{Code: http.StatusNotFound, Err: err}
		}
		return nil, &kv.NetworkError{Err: err}
	}
	defer out.Body.Close()

	if out.ContentLength != nil && *out.ContentLength > f.maxSize {
		return nil, &kv.NetworkError{Err: tooLarge(f.maxSize)}
	}

	data, err := readLimited(out.Body, f.maxSize)
	if err != nil {
		return nil, &kv.NetworkError{Err: err}
	}
	return data, nil
}

var _ kv.Downloader = (*S3Fetcher)(nil)

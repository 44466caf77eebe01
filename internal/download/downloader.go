package download

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"kv-go/internal/config"
	"kv-go/internal/kv"
	"kv-go/internal/payload"
)

// Downloader dispatches on the URL scheme. The S3 client is created on first
// successful use so a missing AWS setup only matters for s3:// URLs; a failed
// attempt is retried on the next s3:// fetch.
type Downloader struct {
	http *HTTPFetcher
	file *FileFetcher
	cfg  config.DownloadConfig

	newS3Client func(ctx context.Context) (*s3.Client, error)

	s3mu sync.Mutex
	s3   *S3Fetcher
}

var _ kv.Downloader = (*Downloader)(nil)

// NewDownloaderFromConfig creates a Downloader from the download config.
func NewDownloaderFromConfig(cfg config.DownloadConfig) (*Downloader, error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("download max_size must be positive, got %d", cfg.MaxSize)
	}
	if cfg.Timeout.Duration <= 0 {
		cfg.Timeout.Duration = config.DefaultDownloadTimeout
	}
	d := &Downloader{
		http: NewHTTPFetcher(cfg.Timeout.Duration, cfg.MaxSize),
		file: NewFileFetcher(cfg.MaxSize),
		cfg:  cfg,
	}
	d.newS3Client = func(ctx context.Context) (*s3.Client, error) {
		return payload.NewS3Client(ctx, cfg.S3Region, "", "", "")
	}
	return d, nil
}

func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &kv.NetworkError{Err: fmt.Errorf("invalid URL: %w", err)}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return d.http.Fetch(ctx, rawURL)
	case "file":
		return d.file.Fetch(ctx, rawURL)
	case "s3":
		fetcher, err := d.s3Fetcher(ctx)
		if err != nil {
			return nil, &kv.NetworkError{Err: err}
		}
		return fetcher.Fetch(ctx, rawURL)
	default:
		return nil, &kv.NetworkError{Err: fmt.Errorf("unsupported URL scheme %q", u.Scheme)}
	}
}

// s3Fetcher returns the cached fetcher, building it if needed. Only a
// successfully built client is kept.
func (d *Downloader) s3Fetcher(ctx context.Context) (*S3Fetcher, error) {
	d.s3mu.Lock()
	defer d.s3mu.Unlock()

	if d.s3 != nil {
		return d.s3, nil
	}
	client, err := d.newS3Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("configuring s3 client: %w", err)
	}
	d.s3 = NewS3Fetcher(client, d.cfg.MaxSize)
	return d.s3, nil
}

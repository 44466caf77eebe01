package download

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"kv-go/internal/kv"
)

// FileFetcher reads file:// URLs from the local filesystem.
type FileFetcher struct {
	maxSize int64
}

// NewFileFetcher creates a fetcher with the given size limit.
func NewFileFetcher(maxSize int64) *FileFetcher {
	return &FileFetcher{maxSize: maxSize}
}

func (f *FileFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &kv.NetworkError{Err: err}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &kv.NetworkError{Err: err}
	}
	if u.Host != "" && u.Host != "localhost" {
		return nil, &kv.NetworkError{Err: fmt.Errorf("file URL must be local, got host %q", u.Host)}
	}

	file, err := os.Open(u.Path)
	if err != nil {
		return nil, &kv.NetworkError{Err: err}
	}
	defer file.Close()

	data, err := readLimited(file, f.maxSize)
	if err != nil {
		return nil, &kv.NetworkError{Err: err}
	}
	return data, nil
}

var _ kv.Downloader = (*FileFetcher)(nil)

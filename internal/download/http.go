// Package download fetches database files for import.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"kv-go/internal/kv"
)

// HTTPFetcher downloads http and https URLs.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout and
// size limit.
func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &kv.NetworkError{Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/octet-stream, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &kv.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &kv.NetworkError{Code: resp.StatusCode}
	}
	if resp.ContentLength > f.maxSize {
		return nil, &kv.NetworkError{Err: tooLarge(f.maxSize)}
	}

	data, err := readLimited(resp.Body, f.maxSize)
	if err != nil {
		return nil, &kv.NetworkError{Err: err}
	}
	return data, nil
}

// ErrTooLarge is wrapped when a download exceeds the configured limit.
var ErrTooLarge = errors.New("file exceeds the download size limit")

func tooLarge(limit int64) error {
	return fmt.Errorf("%w of %d bytes", ErrTooLarge, limit)
}

// readLimited reads r fully, failing once more than limit bytes arrive.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, tooLarge(limit)
	}
	return data, nil
}

var _ kv.Downloader = (*HTTPFetcher)(nil)

package testutil

import (
	"context"
	"fmt"
	"sync"

	"kv-go/internal/kv"
)

// StubDownloader serves fixed bytes per URL. Unknown URLs fail with a 404
// NetworkError.
type StubDownloader struct {
	mu    sync.Mutex
	files map[string][]byte
	errs  map[string]error
	calls int
}

var _ kv.Downloader = (*StubDownloader)(nil)

func NewStubDownloader() *StubDownloader {
	return &StubDownloader{
		files: make(map[string][]byte),
		errs:  make(map[string]error),
	}
}

// Serve makes Fetch(url) return data.
func (d *StubDownloader) Serve(url string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[url] = data
}

// Fail makes Fetch(url) return err.
func (d *StubDownloader) Fail(url string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs[url] = err
}

// Calls returns the number of Fetch calls.
func (d *StubDownloader) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *StubDownloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if err := ctx.Err(); err != nil {
		return nil, &kv.NetworkError{Err: err}
	}
	if err, ok := d.errs[url]; ok {
		return nil, err
	}
	data, ok := d.files[url]
	if !ok {
		return nil, &kv.NetworkError{Code: 404}
	}
	return append([]byte(nil), data...), nil
}

// StubLoader returns a fixed tree per password. Any other password fails
// with kv.ErrWrongPassword. Payload bytes are ignored.
type StubLoader struct {
	mu    sync.Mutex
	trees map[string]*kv.RawNode
	gates map[string]chan struct{}
	calls int
}

var _ kv.VaultLoader = (*StubLoader)(nil)

func NewStubLoader() *StubLoader {
	return &StubLoader{
		trees: make(map[string]*kv.RawNode),
		gates: make(map[string]chan struct{}),
	}
}

// Accept makes password decrypt to root.
func (l *StubLoader) Accept(password string, root *kv.RawNode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trees[password] = root
}

// Hold blocks decrypts with password until the returned release is called.
// A held decrypt ignores cancellation, like a loader stuck in a KDF.
func (l *StubLoader) Hold(password string) (release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	gate := make(chan struct{})
	l.gates[password] = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Calls returns the number of Decrypt calls.
func (l *StubLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *StubLoader) Decrypt(ctx context.Context, data []byte, password string) (*kv.RawNode, error) {
	l.mu.Lock()
	l.calls++
	gate := l.gates[password]
	l.mu.Unlock()

	if gate != nil {
		<-gate
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	root, ok := l.trees[password]
	if !ok {
		return nil, fmt.Errorf("decrypting: %w", kv.ErrWrongPassword)
	}
	return root, nil
}

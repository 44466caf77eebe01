package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kv-go/internal/kv"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vaults/MyVault.kdbx":
			w.Write([]byte("kdbx-bytes"))
		case "/forbidden.kdbx":
			http.Error(w, "no", http.StatusForbidden)
		case "/big.kdbx":
			w.Write([]byte(strings.Repeat("x", 100)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, 64)

	t.Run("success", func(t *testing.T) {
		data, err := f.Fetch(context.Background(), srv.URL+"/vaults/MyVault.kdbx")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(data) != "kdbx-bytes" {
			t.Errorf("Fetch() = %q, want %q", data, "kdbx-bytes")
		}
	})

	statusTests := []struct {
		path string
		code int
	}{
		{"/missing.kdbx", http.StatusNotFound},
		{"/forbidden.kdbx", http.StatusForbidden},
	}
	for _, tt := range statusTests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), srv.URL+tt.path)
			var netErr *kv.NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("Fetch() error = %v, want *kv.NetworkError", err)
			}
			if netErr.Code != tt.code {
				t.Errorf("Code = %d, want %d", netErr.Code, tt.code)
			}
		})
	}

	t.Run("too large", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/big.kdbx")
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("Fetch() error = %v, want ErrTooLarge", err)
		}
		var netErr *kv.NetworkError
		if !errors.As(err, &netErr) || netErr.Code != 0 {
			t.Errorf("Fetch() error = %v, want *kv.NetworkError with code 0", err)
		}
	})
}

func TestHTTPFetcher_Fetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/db.kdbx"
	srv.Close()

	_, err := NewHTTPFetcher(time.Second, 1024).Fetch(context.Background(), url)
	var netErr *kv.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Fetch() error = %v, want *kv.NetworkError", err)
	}
	if netErr.Code != 0 {
		t.Errorf("Code = %d, want 0", netErr.Code)
	}
}

func TestHTTPFetcher_Fetch_Canceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(5*time.Second, 1024).Fetch(ctx, srv.URL+"/db.kdbx")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}

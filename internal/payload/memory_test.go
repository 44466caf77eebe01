package payload

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"kv-go/internal/kv"
)

func TestMemoryStore_PutGet(t *testing.T) {
	m := NewMemoryStore()
	data := "kdbx bytes"

	if err := m.Put("20240115_103000_db.kdbx", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var buf bytes.Buffer
	if err := m.Get("20240115_103000_db.kdbx", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("Get() = %q, want %q", buf.String(), data)
	}
}

func TestMemoryStore_Put(t *testing.T) {
	t.Run("existing name is rejected", func(t *testing.T) {
		m := NewMemoryStore()
		if err := m.Put("a", strings.NewReader("one"), 3); err != nil {
			t.Fatalf("first Put() error = %v", err)
		}

		err := m.Put("a", strings.NewReader("two"), 3)
		if !errors.Is(err, kv.ErrPayloadExists) {
			t.Fatalf("second Put() error = %v, want kv.ErrPayloadExists", err)
		}

		var buf bytes.Buffer
		if err := m.Get("a", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "one" {
			t.Errorf("payload = %q, want original %q", buf.String(), "one")
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		m := NewMemoryStore()
		if err := m.Put("a", strings.NewReader("hello"), 100); err == nil {
			t.Error("Put() expected error for size mismatch")
		}
		if m.Len() != 0 {
			t.Errorf("Len() = %d, want 0", m.Len())
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		m := NewMemoryStore()
		for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
			if err := m.Put(name, strings.NewReader(""), 0); err == nil {
				t.Errorf("Put(%q) expected error", name)
			}
		}
	})
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	m := NewMemoryStore()
	var buf bytes.Buffer
	err := m.Get("missing", &buf)
	if err == nil || !strings.Contains(err.Error(), "payload not found") {
		t.Errorf("Get() error = %v, want error containing 'payload not found'", err)
	}
}

func TestMemoryStore_ConcurrentPutSameName(t *testing.T) {
	m := NewMemoryStore()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Put("same", strings.NewReader("x"), 1)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, kv.ErrPayloadExists) {
			t.Errorf("Put() error = %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful Puts = %d, want 1", succeeded)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	m := NewMemoryStore()
	if err := m.Put("a", strings.NewReader("data"), 4); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := m.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	if err := m.Delete("a"); err != nil {
		t.Errorf("Delete() of missing payload error = %v", err)
	}
}

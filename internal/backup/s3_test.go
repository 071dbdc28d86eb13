package backup

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeS3 accepts PutObject requests and remembers the last one.
type fakeS3 struct {
	mu     sync.Mutex
	method string
	path   string
	ctype  string
	body   []byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.method, f.path, f.ctype, f.body = r.Method, r.URL.Path, r.Header.Get("Content-Type"), body
	f.mu.Unlock()
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func TestS3Destination_Write(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	fake := &fakeS3{}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	dest, err := NewS3Destination(context.Background(), "backups", "pharmacy/backup.jsonl", "us-east-1", ts.URL)
	if err != nil {
		t.Fatalf("NewS3Destination: %v", err)
	}
	if got := dest.String(); got != "s3://backups/pharmacy/backup.jsonl" {
		t.Fatalf("String() = %q", got)
	}

	payload := []byte(`{"type":"header"}` + "\n")
	if err := dest.Write(context.Background(), payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", fake.method)
	}
	// Path-style addressing: /bucket/key.
	if fake.path != "/backups/pharmacy/backup.jsonl" {
		t.Fatalf("unexpected path %q", fake.path)
	}
	if fake.ctype != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", fake.ctype)
	}
	if !bytes.Contains(fake.body, payload) {
		t.Fatalf("uploaded body %q does not contain payload", fake.body)
	}
}

func TestS3Destination_WriteError(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	dest, err := NewS3Destination(context.Background(), "backups", "k", "us-east-1", ts.URL)
	if err != nil {
		t.Fatalf("NewS3Destination: %v", err)
	}
	if err := dest.Write(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}

func TestNewS3Destination_RequiresBucket(t *testing.T) {
	if _, err := NewS3Destination(context.Background(), "", "k", "us-east-1", ""); err == nil {
		t.Fatal("expected an error without a bucket")
	}
}

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glen-84/typings/internal/retry"
	"github.com/glen-84/typings/internal/typerrors"
)

func TestFetchTextFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.d.ts")
	if err := os.WriteFile(path, []byte("export const x: string;\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	got, err := f.FetchText(context.Background(), path)
	if err != nil {
		t.Fatalf("FetchText() error = %v", err)
	}
	if got != "export const x: string;\n" {
		t.Errorf("FetchText() = %q", got)
	}
}

func TestFetchTextStripsBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bom.d.ts")
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("export const x: string;")...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	got, err := f.FetchText(context.Background(), path)
	if err != nil {
		t.Fatalf("FetchText() error = %v", err)
	}
	if got != "export const x: string;" {
		t.Errorf("FetchText() = %q, BOM not stripped", got)
	}
}

func TestFetchTextMissingFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	_, err = f.FetchText(context.Background(), filepath.Join(dir, "nonexistent.d.ts"))
	if !typerrors.IsNotFound(err) {
		t.Errorf("FetchText() error = %v, want NotFound", err)
	}
}

func TestFetchJSONParsesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"acme"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	var v struct{ Name string }
	if err := f.FetchJSON(context.Background(), srv.URL, &v); err != nil {
		t.Fatalf("FetchJSON() error = %v", err)
	}
	if v.Name != "acme" {
		t.Errorf("Name = %q, want %q", v.Name, "acme")
	}
}

func TestFetchHTTPNon200IsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	_, err = f.FetchText(context.Background(), srv.URL)
	if !typerrors.IsHTTPStatus(err) {
		t.Errorf("FetchText() error = %v, want HTTPStatus", err)
	}
}

func TestFetchHTTP5xxIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	attempts := 0
	doErr := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}, func(ctx context.Context) error {
		attempts++
		_, err := f.FetchText(ctx, srv.URL)
		return err
	})
	if !typerrors.IsHTTPStatus(doErr) {
		t.Errorf("Do() error = %v, want HTTPStatus", doErr)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (5xx must be retried)", attempts)
	}
}

func TestFetchHTTP4xxIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	attempts := 0
	_ = retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}, func(ctx context.Context) error {
		attempts++
		_, err := f.FetchText(ctx, srv.URL)
		return err
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx must not be retried)", attempts)
	}
}

func TestFetchHTTPUsesCacheOn304(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("export const x: string;"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, err := New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer f.Close()

	first, err := f.FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first FetchText() error = %v", err)
	}
	second, err := f.FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second FetchText() error = %v", err)
	}
	if first != second {
		t.Errorf("cached fetch returned different content: %q vs %q", first, second)
	}
	if hits != 2 {
		t.Errorf("server hits = %d, want 2 (both requests reach the server; the second is a conditional 304)", hits)
	}
}

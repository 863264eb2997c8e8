package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}

	r := New("")
	r.client.BaseURL = base
	return r
}

func TestResolveBaseWithExplicitRef(t *testing.T) {
	r := New("")
	got, err := r.ResolveBase(context.Background(), "owner", "repo", "v1.2.3")
	if err != nil {
		t.Fatalf("ResolveBase() error = %v", err)
	}
	want := "https://raw.githubusercontent.com/owner/repo/v1.2.3/"
	if got != want {
		t.Errorf("ResolveBase() = %q, want %q", got, want)
	}
}

func TestResolveBaseDefaultsToDefaultBranch(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"default_branch":"develop"}`))
	})

	got, err := r.ResolveBase(context.Background(), "owner", "repo", "")
	if err != nil {
		t.Fatalf("ResolveBase() error = %v", err)
	}
	want := "https://raw.githubusercontent.com/owner/repo/develop/"
	if got != want {
		t.Errorf("ResolveBase() = %q, want %q", got, want)
	}
}

func TestResolveBasePropagatesAPIError(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := r.ResolveBase(context.Background(), "owner", "repo", ""); err == nil {
		t.Error("ResolveBase() should error when the repository lookup fails")
	}
}

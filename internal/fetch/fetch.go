// Package fetch provides the unified fetcher: a single FetchText/FetchJSON
// surface that reads from either a local filesystem path or an HTTP(S)
// URL, transparently caching HTTP responses and honoring their
// revalidation metadata.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/glen-84/typings/internal/classify"
	"github.com/glen-84/typings/internal/fetchcache"
	"github.com/glen-84/typings/internal/metrics"
	"github.com/glen-84/typings/internal/retry"
	"github.com/glen-84/typings/internal/typerrors"
	"github.com/glen-84/typings/internal/typlog"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Fetcher reads text through a unified local-or-HTTP surface, caching
// HTTP responses on disk.
type Fetcher struct {
	client  *http.Client
	cache   *fetchcache.Store
	log     typlog.Logger
	metrics metrics.Collector
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger overrides the default NopLogger.
func WithLogger(l typlog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithCollector overrides the default NopCollector.
func WithCollector(c metrics.Collector) Option {
	return func(f *Fetcher) { f.metrics = c }
}

// New creates a Fetcher backed by a fetch cache rooted at cacheDir, with
// the given HTTP timeout and optional proxy URL (empty disables the
// proxy override and defers to the environment).
func New(cacheDir string, timeout time.Duration, proxyURL string, opts ...Option) (*Fetcher, error) {
	cache, err := fetchcache.Open(cacheDir)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("fetch: invalid proxy URL %q: %w", proxyURL, err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}

	f := &Fetcher{
		client:  &http.Client{Transport: transport, Timeout: timeout},
		cache:   cache,
		log:     typlog.NopLogger{},
		metrics: metrics.NopCollector{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Close releases the underlying cache.
func (f *Fetcher) Close() error { return f.cache.Close() }

// FetchText reads the contents at location, which may be an HTTP(S) URL
// or a filesystem path, stripping any leading byte-order mark.
func (f *Fetcher) FetchText(ctx context.Context, location string) (string, error) {
	var data []byte
	var err error

	if classify.IsHTTP(location) {
		data, err = f.fetchHTTP(ctx, location)
	} else {
		data, err = f.fetchFile(location)
	}
	if err != nil {
		return "", err
	}

	return string(stripBOM(data)), nil
}

// FetchJSON reads and unmarshals the JSON document at location into v.
// Parse failures are wrapped with the offending location for
// diagnosability.
func (f *Fetcher) FetchJSON(ctx context.Context, location string, v interface{}) error {
	text, err := f.FetchText(ctx, location)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return typerrors.E(typerrors.KindJSONParse, fmt.Sprintf("parsing %s", location), err)
	}
	return nil
}

func (f *Fetcher) fetchFile(location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, typerrors.E(typerrors.KindNotFound, fmt.Sprintf("reading %s", location), err)
		}
		return nil, typerrors.E(typerrors.KindNetworkError, fmt.Sprintf("reading %s", location), err)
	}
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	cached, hit, err := f.cache.Get(location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, typerrors.E(typerrors.KindNetworkError, fmt.Sprintf("building request for %s", location), err)
	}
	if hit {
		if cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		if cached.LastModified != "" {
			req.Header.Set("If-Modified-Since", cached.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, retry.MarkRetryable(typerrors.E(typerrors.KindNetworkError, fmt.Sprintf("fetching %s", location), err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && hit {
		f.metrics.CacheHit()
		f.log.Debug("fetch: cache hit (304) for %s", location)
		return cached.Data, nil
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := typerrors.HTTPStatus(location, resp.StatusCode)
		if resp.StatusCode >= 500 {
			// 5xx is the origin server's transient failure; 4xx is ours
			// and won't change on retry.
			statusErr = retry.MarkRetryable(statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.MarkRetryable(typerrors.E(typerrors.KindNetworkError, fmt.Sprintf("reading response body for %s", location), err))
	}

	f.metrics.CacheMiss()
	f.log.Debug("fetch: cache miss, storing %s (%d bytes)", location, len(body))

	entry := &fetchcache.Entry{
		Key:          location,
		Data:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		ContentType:  resp.Header.Get("Content-Type"),
		StoredAt:     time.Now(),
	}
	if err := f.cache.Put(entry); err != nil {
		f.log.Warn("fetch: failed to cache %s: %v", location, err)
	}

	return body, nil
}

func stripBOM(data []byte) []byte {
	if bytes.HasPrefix(data, utf8BOM) {
		return data[len(utf8BOM):]
	}
	return data
}

// Package fetchcache is a content-addressed, on-disk cache for the
// unified fetcher. Entries carry HTTP revalidation metadata (ETag,
// Last-Modified) so a later fetch of the same URL can be sent as a
// conditional request and reuse the stored body on a 304 Not Modified.
// Entries have no freshness lifetime: every fetch still makes a network
// request. Entries above a size threshold are
// gzip-compressed before being written to disk.
package fetchcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/glen-84/typings/internal/filelock"
)

// compressThreshold is the entry size, in bytes, above which an entry is
// gzip-compressed on write. Below it, compression overhead isn't worth
// paying for the tiny manifest files that make up most cache entries.
const compressThreshold = 8 * 1024

// Entry is a single cached response.
type Entry struct {
	Key          string    `json:"key"`
	Data         []byte    `json:"-"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
	Compressed   bool      `json:"compressed"`
}

// meta is the on-disk sidecar describing an entry's encoding, separate
// from the raw (possibly compressed) payload file.
type meta struct {
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
	Compressed   bool      `json:"compressed"`
}

// Store is a content-addressed cache rooted at a directory on disk.
type Store struct {
	dir    string
	locker *filelock.Registry
}

// Open initializes a Store rooted at dir, creating it if necessary.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, locker: filelock.NewRegistry()}, nil
}

// Close releases resources held by the store. Store has no background
// goroutines today, but Close is kept for lifecycle symmetry with other
// process-wide singletons (cache stores are opened once per process).
func (s *Store) Close() error { return nil }

func (s *Store) keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *Store) payloadPath(key string) string {
	return filepath.Join(s.dir, s.keyHash(key)+".bin")
}

func (s *Store) metaPath(key string) string {
	return filepath.Join(s.dir, s.keyHash(key)+".meta.json")
}

// Get reads a cached entry. The second return value is false if the key
// is not present.
func (s *Store) Get(key string) (*Entry, bool, error) {
	metaBytes, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var m meta
	if err := json.Unmarshal(metaBytes, &m); err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(s.payloadPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	data := raw
	if m.Compressed {
		data, err = decompress(raw)
		if err != nil {
			return nil, false, err
		}
	}

	return &Entry{
		Key:          key,
		Data:         data,
		ETag:         m.ETag,
		LastModified: m.LastModified,
		ContentType:  m.ContentType,
		StoredAt:     m.StoredAt,
		Compressed:   m.Compressed,
	}, true, nil
}

// Put writes an entry to the cache, compressing the payload when it
// exceeds compressThreshold. The write is guarded by a per-path lockfile
// so concurrent resolve/compile runs sharing a cache directory don't
// interleave writes to the same key.
func (s *Store) Put(entry *Entry) error {
	lock := s.locker.For(s.payloadPath(entry.Key))
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	payload := entry.Data
	compressed := false
	if len(payload) > compressThreshold {
		c, err := compress(payload)
		if err != nil {
			return err
		}
		payload = c
		compressed = true
	}

	if err := os.WriteFile(s.payloadPath(entry.Key), payload, 0644); err != nil {
		return err
	}

	m := meta{
		ETag:         entry.ETag,
		LastModified: entry.LastModified,
		ContentType:  entry.ContentType,
		StoredAt:     entry.StoredAt,
		Compressed:   compressed,
	}
	metaBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(entry.Key), metaBytes, 0644)
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

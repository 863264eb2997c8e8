package fetchcache

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestGetMissReturnsFalse(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	_, ok, err := store.Get("http://example.com/x.d.ts")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() on empty store should report a miss")
	}
}

func TestPutThenGetRoundTripsSmallEntry(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	key := "http://example.com/small.json"
	entry := &Entry{
		Key:          key,
		Data:         []byte(`{"name":"small"}`),
		ETag:         `"abc123"`,
		LastModified: "Mon, 01 Jan 2024 00:00:00 GMT",
		ContentType:  "application/json",
		StoredAt:     time.Now(),
	}
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := store.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get() = (%v, %v, %v)", got, ok, err)
	}
	if !bytes.Equal(got.Data, entry.Data) {
		t.Errorf("Data = %q, want %q", got.Data, entry.Data)
	}
	if got.ETag != entry.ETag || got.LastModified != entry.LastModified {
		t.Errorf("revalidation metadata not preserved: %+v", got)
	}
	if got.Compressed {
		t.Error("small entry should not be compressed")
	}
}

func TestPutCompressesLargeEntry(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	key := "http://example.com/large.d.ts"
	large := strings.Repeat("export const x: string;\n", 2000)
	entry := &Entry{Key: key, Data: []byte(large), StoredAt: time.Now()}
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := store.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get() = (%v, %v, %v)", got, ok, err)
	}
	if !got.Compressed {
		t.Error("large entry should be stored compressed")
	}
	if string(got.Data) != large {
		t.Error("decompressed data does not match original")
	}
}

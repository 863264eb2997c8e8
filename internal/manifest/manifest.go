// Package manifest defines the shared manifest-reader contract and a
// registry mapping ecosystem name to Reader, so a new ecosystem can be
// added without touching the tree resolver.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/glen-84/typings/internal/fetch"
	"github.com/glen-84/typings/internal/node"
)

// Manifest is the shallow-validated, ecosystem-agnostic result of
// reading one manifest file. Dependency values are left as raw
// candidate-string lists (a single string becomes a one-element list);
// resolving each candidate to a child node is the tree resolver's job,
// since it requires recursive fetch/read.
type Manifest struct {
	Name    string
	Version string

	Main string

	// BrowserPath and BrowserMap are mutually exclusive: BrowserPath is
	// set when the manifest's "browser" field was a string, BrowserMap
	// when it was an object.
	BrowserPath string
	BrowserMap  map[string]string

	Typings        string
	BrowserTypings string

	Ambient bool

	Dependencies           map[string][]string
	DevDependencies        map[string][]string
	AmbientDependencies    map[string][]string
	AmbientDevDependencies map[string][]string
}

// Reader reads and shallow-validates one ecosystem's manifest shape.
type Reader interface {
	// Ecosystem names the tree-node ecosystem this reader produces.
	Ecosystem() node.Ecosystem

	// ManifestFilename is the default filename this reader looks for
	// ("package.json", "bower.json", "typings.json").
	ManifestFilename() string

	// Discover walks upward from dir looking for ManifestFilename,
	// returning its path and true if found.
	Discover(dir string) (string, bool)

	// Read parses the manifest at manifestPath. A manifest that doesn't
	// exist is reported via a typerrors NotFound error (see
	// internal/typerrors.IsNotFound) — not a Go error the caller must
	// panic on; the tree resolver treats it as a missing node.
	Read(ctx context.Context, fetcher *fetch.Fetcher, manifestPath string) (*Manifest, error)
}

// Registry maps ecosystem name to Reader, grounded on the
// Register/Get/List dispatch pattern used for per-tool plugin registries
// elsewhere in this codebase's lineage.
type Registry struct {
	mu      sync.RWMutex
	readers map[node.Ecosystem]Reader
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[node.Ecosystem]Reader)}
}

// Register adds r under its own Ecosystem(). Registering the same
// ecosystem twice overwrites the previous entry.
func (reg *Registry) Register(r Reader) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.readers[r.Ecosystem()] = r
}

// Get returns the Reader registered for ecosystem, if any.
func (reg *Registry) Get(ecosystem node.Ecosystem) (Reader, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.readers[ecosystem]
	return r, ok
}

// List returns every registered Reader, in no particular order.
func (reg *Registry) List() []Reader {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Reader, 0, len(reg.readers))
	for _, r := range reg.readers {
		out = append(out, r)
	}
	return out
}

// CanParse reports whether a Reader is registered for ecosystem.
func (reg *Registry) CanParse(ecosystem node.Ecosystem) bool {
	_, ok := reg.Get(ecosystem)
	return ok
}

// DiscoverUpward walks from dir to the filesystem root looking for a
// file named filename, returning its path and true on the first match.
// Shared by every Reader's Discover implementation.
func DiscoverUpward(dir, filename string) (string, bool) {
	for {
		candidate := filepath.Join(dir, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DependencyValue unmarshals a dependency-map value that may be a single
// string or an ordered list of candidate strings, normalizing both into
// a list (native manifests are the only ecosystem that allows this).
type DependencyValue []string

func (d *DependencyValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = []string{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("manifest: dependency value is neither a string nor a list: %w", err)
	}
	*d = list
	return nil
}

// ToCandidates converts a map of DependencyValue into the plain
// map[string][]string shape Manifest carries.
func ToCandidates(m map[string]DependencyValue) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = []string(v)
	}
	return out
}

// ParseBrowserField interprets a raw JSON "browser" field as either a
// string (BrowserPath) or an object (BrowserMap); an absent field
// (empty/nil raw) yields neither.
func ParseBrowserField(raw json.RawMessage) (path string, mapping map[string]string, err error) {
	if len(raw) == 0 {
		return "", nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil, nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		return "", asMap, nil
	}

	return "", nil, fmt.Errorf("manifest: \"browser\" field is neither a string nor an object")
}

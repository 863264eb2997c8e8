// Package npm reads npm-style "package.json" manifests.
package npm

import (
	"context"
	"encoding/json"

	"github.com/glen-84/typings/internal/fetch"
	"github.com/glen-84/typings/internal/manifest"
	"github.com/glen-84/typings/internal/node"
)

// DefaultFilename is npm's conventional manifest name.
const DefaultFilename = "package.json"

type shape struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Main                 string            `json:"main"`
	Browser              json.RawMessage   `json:"browser"`
	Typings              string            `json:"typings"`
	BrowserTypings       string            `json:"browserTypings"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// Reader implements manifest.Reader for package.json.
type Reader struct{}

// New creates an npm Reader.
func New() *Reader { return &Reader{} }

func (r *Reader) Ecosystem() node.Ecosystem { return node.EcosystemNpm }

func (r *Reader) ManifestFilename() string { return DefaultFilename }

func (r *Reader) Discover(dir string) (string, bool) {
	return manifest.DiscoverUpward(dir, DefaultFilename)
}

func (r *Reader) Read(ctx context.Context, fetcher *fetch.Fetcher, manifestPath string) (*manifest.Manifest, error) {
	var s shape
	if err := fetcher.FetchJSON(ctx, manifestPath, &s); err != nil {
		return nil, err
	}

	browserPath, browserMap, err := manifest.ParseBrowserField(s.Browser)
	if err != nil {
		return nil, err
	}

	// optionalDependencies takes precedence over dependencies on key
	// collision (open question, resolved against the observed merge
	// order).
	deps := make(map[string][]string, len(s.Dependencies)+len(s.OptionalDependencies))
	for name := range s.Dependencies {
		deps[name] = []string{name}
	}
	for name := range s.OptionalDependencies {
		deps[name] = []string{name}
	}

	devDeps := make(map[string][]string, len(s.DevDependencies))
	for name := range s.DevDependencies {
		devDeps[name] = []string{name}
	}

	return &manifest.Manifest{
		Name:            s.Name,
		Version:         s.Version,
		Main:            s.Main,
		BrowserPath:     browserPath,
		BrowserMap:      browserMap,
		Typings:         s.Typings,
		BrowserTypings:  s.BrowserTypings,
		Dependencies:    deps,
		DevDependencies: devDeps,
	}, nil
}

var _ manifest.Reader = (*Reader)(nil)

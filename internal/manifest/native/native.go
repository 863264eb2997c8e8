// Package native reads the native typings manifest format
// ("typings.json" by default): the project's own dependency declarations
// plus the overlay shape also used beside npm/bower manifests.
package native

import (
	"context"
	"encoding/json"

	"github.com/glen-84/typings/internal/fetch"
	"github.com/glen-84/typings/internal/manifest"
	"github.com/glen-84/typings/internal/node"
)

// DefaultFilename is the native manifest's conventional name.
const DefaultFilename = "typings.json"

type shape struct {
	Name                   string                            `json:"name"`
	Main                   string                            `json:"main"`
	Browser                json.RawMessage                   `json:"browser"`
	Typings                string                            `json:"typings"`
	BrowserTypings         string                            `json:"browserTypings"`
	Ambient                bool                              `json:"ambient"`
	Dependencies           map[string]manifest.DependencyValue `json:"dependencies"`
	DevDependencies        map[string]manifest.DependencyValue `json:"devDependencies"`
	AmbientDependencies    map[string]manifest.DependencyValue `json:"ambientDependencies"`
	AmbientDevDependencies map[string]manifest.DependencyValue `json:"ambientDevDependencies"`
}

// Reader implements manifest.Reader for the native typings.json format.
type Reader struct {
	filename string
}

// New creates a Reader looking for the default "typings.json" filename.
func New() *Reader {
	return &Reader{filename: DefaultFilename}
}

// NewWithFilename creates a Reader looking for a non-default filename,
// used to read the native overlay config that sits beside an npm/bower
// manifest under its own conventional name.
func NewWithFilename(filename string) *Reader {
	return &Reader{filename: filename}
}

func (r *Reader) Ecosystem() node.Ecosystem { return node.EcosystemNative }

func (r *Reader) ManifestFilename() string { return r.filename }

func (r *Reader) Discover(dir string) (string, bool) {
	return manifest.DiscoverUpward(dir, r.filename)
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

	return &manifest.Manifest{
		Name:                   s.Name,
		Main:                   s.Main,
		BrowserPath:            browserPath,
		BrowserMap:             browserMap,
		Typings:                s.Typings,
		BrowserTypings:         s.BrowserTypings,
		Ambient:                s.Ambient,
		Dependencies:           manifest.ToCandidates(s.Dependencies),
		DevDependencies:        manifest.ToCandidates(s.DevDependencies),
		AmbientDependencies:    manifest.ToCandidates(s.AmbientDependencies),
		AmbientDevDependencies: manifest.ToCandidates(s.AmbientDevDependencies),
	}, nil
}

var _ manifest.Reader = (*Reader)(nil)

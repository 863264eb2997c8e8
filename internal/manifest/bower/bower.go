// Package bower reads bower-style "bower.json" manifests and their
// sibling ".bowerrc" configuration file.
package bower

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/glen-84/typings/internal/fetch"
	"github.com/glen-84/typings/internal/manifest"
	"github.com/glen-84/typings/internal/node"
	"github.com/glen-84/typings/internal/typerrors"
)

// DefaultFilename is bower's conventional manifest name.
const DefaultFilename = "bower.json"

// DefaultComponentsDir is used when no .bowerrc overrides it.
const DefaultComponentsDir = "bower_components"

type shape struct {
	Name           string            `json:"name"`
	Version        string            `json:"version"`
	Main           string            `json:"main"`
	Browser        json.RawMessage   `json:"browser"`
	Typings        string            `json:"typings"`
	BrowserTypings string            `json:"browserTypings"`
	Dependencies   map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

type bowerrc struct {
	Directory string `json:"directory"`
}

// Reader implements manifest.Reader for bower.json.
type Reader struct{}

// New creates a bower Reader.
func New() *Reader { return &Reader{} }

func (r *Reader) Ecosystem() node.Ecosystem { return node.EcosystemBower }

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

	deps := make(map[string][]string, len(s.Dependencies))
	for name := range s.Dependencies {
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

// ComponentsDir returns the bower components directory for the manifest
// found at manifestDir: the "directory" key of a sibling ".bowerrc" if
// present, else DefaultComponentsDir.
func ComponentsDir(ctx context.Context, fetcher *fetch.Fetcher, manifestDir string) (string, error) {
	var rc bowerrc
	err := fetcher.FetchJSON(ctx, filepath.Join(manifestDir, ".bowerrc"), &rc)
	if err != nil {
		if typerrors.IsNotFound(err) {
			return DefaultComponentsDir, nil
		}
		return "", err
	}
	if rc.Directory == "" {
		return DefaultComponentsDir, nil
	}
	return rc.Directory, nil
}

var _ manifest.Reader = (*Reader)(nil)

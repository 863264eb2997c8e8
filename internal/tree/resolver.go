// Package tree implements the multi-ecosystem dependency tree resolver:
// the hardest component of the core. It walks the three ecosystems
// (native, npm, bower) concurrently from a root directory, merges their
// top-level manifests, detects cycles, and marks unreadable manifests as
// missing rather than failing the whole resolution.
package tree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/glen-84/typings/internal/audit"
	"github.com/glen-84/typings/internal/classify"
	"github.com/glen-84/typings/internal/depstring"
	"github.com/glen-84/typings/internal/fetch"
	githubresolve "github.com/glen-84/typings/internal/github"
	"github.com/glen-84/typings/internal/manifest"
	"github.com/glen-84/typings/internal/manifest/bower"
	"github.com/glen-84/typings/internal/manifest/native"
	"github.com/glen-84/typings/internal/metrics"
	"github.com/glen-84/typings/internal/node"
	"github.com/glen-84/typings/internal/typerrors"
	"github.com/glen-84/typings/internal/typlog"
)

// Options configures a single Resolve invocation.
type Options struct {
	// Cwd is the starting directory each ecosystem discovers its
	// manifest upward from.
	Cwd string

	// Dev enables expansion of devDependencies at the root.
	Dev bool

	// Ambient enables expansion of ambientDependencies (and, combined
	// with Dev, ambientDevDependencies) at the root.
	Ambient bool

	// Name, if set, overrides the merged root node's Name.
	Name string

	// RunID correlates this resolve with an audit trail entry. Left
	// empty, no run-scoped audit events are emitted beyond what the
	// caller logs itself.
	RunID string
}

// Resolver walks manifests across ecosystems into a merged tree.
type Resolver struct {
	fetcher  *fetch.Fetcher
	registry *manifest.Registry
	github   *githubresolve.Resolver
	log      typlog.Logger
	metrics  metrics.Collector
	audit    audit.Recorder
	sem      chan struct{}
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger overrides the default NopLogger.
func WithLogger(l typlog.Logger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

// WithCollector overrides the default NopCollector.
func WithCollector(c metrics.Collector) ResolverOption {
	return func(r *Resolver) { r.metrics = c }
}

// WithAuditRecorder overrides the default no-op audit recorder.
func WithAuditRecorder(rec audit.Recorder) ResolverOption {
	return func(r *Resolver) { r.audit = rec }
}

// NewResolver creates a Resolver. maxConcurrency bounds the number of
// manifest reads in flight at once; 0 defaults to runtime.NumCPU().
func NewResolver(fetcher *fetch.Fetcher, registry *manifest.Registry, gh *githubresolve.Resolver, maxConcurrency int, opts ...ResolverOption) *Resolver {
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}

	r := &Resolver{
		fetcher:  fetcher,
		registry: registry,
		github:   gh,
		log:      typlog.NopLogger{},
		metrics:  metrics.NopCollector{},
		audit:    audit.NopLogger{},
		sem:      make(chan struct{}, maxConcurrency),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) acquire(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Resolver) release() { <-r.sem }

// Resolve walks all three ecosystems from opts.Cwd concurrently and
// merges them into a single root node (§4.E).
func (r *Resolver) Resolve(ctx context.Context, opts Options) (*node.Node, error) {
	if opts.RunID != "" {
		r.audit.Log(opts.RunID, audit.EventResolveStarted, "resolve started", map[string]interface{}{"cwd": opts.Cwd})
	}

	roots := make(map[node.Ecosystem]*node.Node, 3)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, ecosystem := range []node.Ecosystem{node.EcosystemBower, node.EcosystemNpm, node.EcosystemNative} {
		reader, ok := r.registry.Get(ecosystem)
		if !ok {
			continue
		}
		g.Go(func() error {
			root, err := r.resolveEcosystemRoot(gctx, reader, opts.Cwd, opts.Dev, opts.Ambient)
			if err != nil {
				return err
			}
			mu.Lock()
			roots[reader.Ecosystem()] = root
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if opts.RunID != "" {
			r.audit.Log(opts.RunID, audit.EventResolveFailed, err.Error(), nil)
		}
		return nil, err
	}

	root := mergeRoots([]*node.Node{
		roots[node.EcosystemBower],
		roots[node.EcosystemNpm],
		roots[node.EcosystemNative],
	})
	if opts.Name != "" {
		root.Name = opts.Name
	}

	if opts.RunID != "" {
		r.audit.Log(opts.RunID, audit.EventResolveCompleted, "resolve completed", map[string]interface{}{"name": root.Name})
	}
	return root, nil
}

// resolveEcosystemRoot discovers and reads the top-level manifest for
// one ecosystem, or returns a missing node if none is found upward from
// cwd.
func (r *Resolver) resolveEcosystemRoot(ctx context.Context, reader manifest.Reader, cwd string, dev, ambient bool) (*node.Node, error) {
	path, found := reader.Discover(cwd)
	if !found {
		return node.NewMissing(reader.Ecosystem(), filepath.Join(cwd, reader.ManifestFilename())), nil
	}
	return r.resolveManifestNode(ctx, reader, path, nil, dev, ambient)
}

// resolveManifestNode reads one manifest and recursively expands its
// dependency maps into child nodes.
func (r *Resolver) resolveManifestNode(ctx context.Context, reader manifest.Reader, manifestPath string, parent *node.Node, dev, ambient bool) (*node.Node, error) {
	if chain := cyclicChain(parent, manifestPath); chain != nil {
		return nil, typerrors.CircularDependency(chain)
	}

	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	m, err := reader.Read(ctx, r.fetcher, manifestPath)
	r.release()

	if err != nil {
		if typerrors.IsNotFound(err) {
			r.metrics.NodeMissing(string(reader.Ecosystem()))
			return node.NewMissing(reader.Ecosystem(), manifestPath), nil
		}
		return nil, err
	}
	r.metrics.NodesResolved(string(reader.Ecosystem()))

	n := node.New(reader.Ecosystem(), manifestPath)
	n.Parent = parent
	n.Name = m.Name
	n.Version = m.Version
	n.Main = m.Main
	n.BrowserPath = m.BrowserPath
	n.BrowserMap = m.BrowserMap
	n.Typings = m.Typings
	n.BrowserTypings = m.BrowserTypings
	n.Ambient = m.Ambient

	depMaps := [4]map[string][]string{
		m.Dependencies, m.DevDependencies, m.AmbientDependencies, m.AmbientDevDependencies,
	}

	if reader.Ecosystem() != node.EcosystemNative {
		if err := r.applyNativeOverlay(ctx, manifestPath, &depMaps); err != nil {
			return nil, err
		}
	}

	effectiveDev, effectiveAmbient := dev, ambient
	if parent != nil {
		effectiveDev, effectiveAmbient = false, false
	}

	baseDir := filepath.Dir(manifestPath)
	if classify.IsHTTP(manifestPath) {
		baseDir = manifestPath
	}

	var depMu sync.Mutex
	dg, dgctx := errgroup.WithContext(ctx)

	expand := func(kind node.DependencyMapKind, candidates map[string][]string, enabled bool) {
		if !enabled {
			return
		}
		target := n.Map(kind)
		for name, value := range candidates {
			name, value := name, value
			dg.Go(func() error {
				child, err := r.resolveDependency(dgctx, reader.Ecosystem(), name, value, n, baseDir)
				if err != nil {
					return err
				}
				depMu.Lock()
				target[name] = child
				depMu.Unlock()
				return nil
			})
		}
	}

	expand(node.MapDependencies, depMaps[0], true)
	expand(node.MapDevDependencies, depMaps[1], effectiveDev)
	expand(node.MapAmbientDependencies, depMaps[2], effectiveAmbient)
	expand(node.MapAmbientDevDependencies, depMaps[3], effectiveAmbient && effectiveDev)

	if err := dg.Wait(); err != nil {
		return nil, err
	}
	return n, nil
}

// applyNativeOverlay reads the native config beside a non-native
// manifest, merging its dependency maps over the ecosystem's own.
func (r *Resolver) applyNativeOverlay(ctx context.Context, manifestPath string, depMaps *[4]map[string][]string) error {
	overlayPath := classify.JoinLocation(manifestPath, native.DefaultFilename)
	overlay, err := native.New().Read(ctx, r.fetcher, overlayPath)
	if err != nil {
		if typerrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	overlayMaps := [4]map[string][]string{
		overlay.Dependencies, overlay.DevDependencies, overlay.AmbientDependencies, overlay.AmbientDevDependencies,
	}
	for i := range depMaps {
		if depMaps[i] == nil {
			depMaps[i] = make(map[string][]string)
		}
		for k, v := range overlayMaps[i] {
			depMaps[i][k] = v
		}
	}
	return nil
}

// cyclicChain walks parent.Src -> parent.Parent.Src -> ... and, if any
// equals manifestPath, returns the chain from that node down to
// manifestPath for diagnostics (I1).
func cyclicChain(parent *node.Node, manifestPath string) []string {
	up := parent.AncestorChain() // parent first, root last
	for i, src := range up {
		if src == manifestPath {
			chain := make([]string, 0, i+2)
			for j := i; j >= 0; j-- {
				chain = append(chain, up[j])
			}
			return append(chain, manifestPath)
		}
	}
	return nil
}

// resolveDependency dispatches dependency resolution by the owning
// node's ecosystem: npm/bower search their own package directory by
// name; native tries each depstring candidate in order.
func (r *Resolver) resolveDependency(ctx context.Context, ecosystem node.Ecosystem, name string, candidates []string, parent *node.Node, baseDir string) (*node.Node, error) {
	switch ecosystem {
	case node.EcosystemNpm:
		return r.resolvePackageDirectory(ctx, "node_modules", name, parent, baseDir, npmReaderOf(r))
	case node.EcosystemBower:
		componentsDir, err := bower.ComponentsDir(ctx, r.fetcher, baseDir)
		if err != nil {
			return nil, err
		}
		return r.resolveBowerComponent(ctx, componentsDir, name, parent, baseDir)
	default:
		return r.resolveCandidateList(ctx, candidates, name, parent, baseDir)
	}
}

func npmReaderOf(r *Resolver) manifest.Reader {
	reader, _ := r.registry.Get(node.EcosystemNpm)
	return reader
}

// resolvePackageDirectory walks upward from baseDir looking for
// "<dirName>/name[/package.json]", the npm node_modules search.
func (r *Resolver) resolvePackageDirectory(ctx context.Context, dirName, name string, parent *node.Node, baseDir string, reader manifest.Reader) (*node.Node, error) {
	dir := baseDir
	for {
		located := filepath.Join(dir, dirName, name)
		if classify.IsDefinition(located) {
			if fileExists(located) {
				return fileDependencyNode(node.EcosystemFile, name, located), nil
			}
		} else if dirExists(located) {
			manifestPath := filepath.Join(located, reader.ManifestFilename())
			if fileExists(manifestPath) {
				return r.resolveManifestNode(ctx, reader, manifestPath, parent, false, false)
			}
		}

		next := filepath.Dir(dir)
		if next == dir {
			return node.NewMissing(reader.Ecosystem(), filepath.Join(baseDir, dirName, name)), nil
		}
		dir = next
	}
}

// resolveBowerComponent joins componentsDir with name directly (bower
// doesn't nest components per ancestor directory the way npm does).
func (r *Resolver) resolveBowerComponent(ctx context.Context, componentsDir, name string, parent *node.Node, baseDir string) (*node.Node, error) {
	located := filepath.Join(baseDir, componentsDir, name)
	if classify.IsDefinition(located) {
		if fileExists(located) {
			return fileDependencyNode(node.EcosystemFile, name, located), nil
		}
	}

	reader, _ := r.registry.Get(node.EcosystemBower)
	manifestPath := filepath.Join(located, reader.ManifestFilename())
	if !fileExists(manifestPath) {
		return node.NewMissing(node.EcosystemBower, manifestPath), nil
	}
	return r.resolveManifestNode(ctx, reader, manifestPath, parent, false, false)
}

// resolveCandidateList tries each native dependency-string candidate in
// order, accepting the first that resolves to a non-missing node (B1).
func (r *Resolver) resolveCandidateList(ctx context.Context, candidates []string, name string, parent *node.Node, baseDir string) (*node.Node, error) {
	var last *node.Node
	for _, candidate := range candidates {
		result, err := r.resolveCandidate(ctx, candidate, name, parent, baseDir)
		if err != nil {
			return nil, err
		}
		if !result.Missing {
			return result, nil
		}
		last = result
	}
	if last == nil {
		last = node.NewMissing(node.EcosystemNative, fmt.Sprintf("%s (no candidates)", name))
	}
	return last, nil
}

func (r *Resolver) resolveCandidate(ctx context.Context, candidate, name string, parent *node.Node, baseDir string) (*node.Node, error) {
	desc := depstring.Parse(candidate)

	switch desc.Type {
	case depstring.TypeNpm:
		return r.resolvePackageDirectory(ctx, "node_modules", desc.Location, parent, baseDir, npmReaderOf(r))

	case depstring.TypeBower:
		componentsDir, err := bower.ComponentsDir(ctx, r.fetcher, baseDir)
		if err != nil {
			return nil, err
		}
		return r.resolveBowerComponent(ctx, componentsDir, desc.Location, parent, baseDir)

	case depstring.TypeGithub:
		base, err := r.github.ResolveBase(ctx, desc.Owner, desc.Repo, desc.Ref)
		if err != nil {
			return nil, err
		}
		manifestPath := base + native.DefaultFilename
		return r.resolveManifestNode(ctx, native.New(), manifestPath, parent, false, false)

	case depstring.TypeHTTP:
		if classify.IsDefinition(desc.Location) {
			return fileDependencyNode(node.EcosystemHTTP, name, desc.Location), nil
		}
		manifestPath := joinDirLocation(desc.Location, native.DefaultFilename)
		return r.resolveManifestNode(ctx, native.New(), manifestPath, parent, false, false)

	default: // TypeFile, or unrecognized falls back to file
		located := desc.Location
		if !filepath.IsAbs(located) && !classify.IsHTTP(located) {
			located = filepath.Join(baseDir, located)
		}
		if classify.IsDefinition(located) {
			return fileDependencyNode(node.EcosystemFile, name, located), nil
		}
		manifestPath := filepath.Join(located, native.DefaultFilename)
		return r.resolveManifestNode(ctx, native.New(), manifestPath, parent, false, false)
	}
}

// joinDirLocation joins a trailing filename onto a URL/path that's
// known to name a directory, inserting a separator if needed.
func joinDirLocation(dirLocation, filename string) string {
	if !strings.HasSuffix(dirLocation, "/") {
		dirLocation += "/"
	}
	return dirLocation + filename
}

func fileDependencyNode(ecosystem node.Ecosystem, name, path string) *node.Node {
	n := node.New(ecosystem, path)
	n.Name = name
	n.Typings = path
	return n
}

func fileExists(path string) bool {
	if classify.IsHTTP(path) {
		return true // existence is verified lazily on fetch
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	if classify.IsHTTP(path) {
		return true
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

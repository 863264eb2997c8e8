// Package resolve is the thin facade wiring the resolver and compiler
// stages (A-I) into the module's two public entry points, Resolve and
// Compile, the way a stage-pipeline composition root wires its
// collaborators without containing any domain logic of its own.
package resolve

import (
	"context"
	"time"

	"github.com/glen-84/typings/internal/assemble"
	"github.com/glen-84/typings/internal/audit"
	"github.com/glen-84/typings/internal/entry"
	"github.com/glen-84/typings/internal/fetch"
	githubresolve "github.com/glen-84/typings/internal/github"
	"github.com/glen-84/typings/internal/manifest"
	"github.com/glen-84/typings/internal/manifest/bower"
	"github.com/glen-84/typings/internal/manifest/native"
	"github.com/glen-84/typings/internal/manifest/npm"
	"github.com/glen-84/typings/internal/metrics"
	"github.com/glen-84/typings/internal/node"
	"github.com/glen-84/typings/internal/rewrite"
	"github.com/glen-84/typings/internal/tree"
	"github.com/glen-84/typings/internal/typingsconfig"
	"github.com/glen-84/typings/internal/typlog"
)

// Engine owns the long-lived collaborators (fetcher, manifest registry,
// GitHub resolver) behind Resolve and Compile. Construct one with New
// and Close it when the caller is done.
type Engine struct {
	fetcher  *fetch.Fetcher
	registry *manifest.Registry
	github   *githubresolve.Resolver
	resolver *tree.Resolver
	log      typlog.Logger
	metrics  metrics.Collector
	audit    audit.Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the Engine's logger.
func WithLogger(l typlog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithCollector overrides the Engine's metrics collector.
func WithCollector(c metrics.Collector) Option { return func(e *Engine) { e.metrics = c } }

// WithAuditRecorder overrides the Engine's audit recorder.
func WithAuditRecorder(rec audit.Recorder) Option { return func(e *Engine) { e.audit = rec } }

// New builds an Engine from cfg: it opens the fetch cache, registers
// the three manifest readers, and constructs a GitHub resolver using
// cfg.GitHubToken (if any). Options are applied before the fetcher is
// constructed so a caller-supplied logger or metrics collector reaches
// fetch-level cache-hit/miss counters and debug logging, not just the
// tree resolver.
func New(cfg *typingsconfig.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		log:     typlog.NewDefaultLogger("typings", logLevel(cfg.Verbose)),
		metrics: metrics.NopCollector{},
		audit:   audit.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}

	f, err := fetch.New(cfg.CacheDir, cfg.HTTPTimeout, cfg.ProxyURL,
		fetch.WithLogger(e.log),
		fetch.WithCollector(e.metrics),
	)
	if err != nil {
		return nil, err
	}
	e.fetcher = f

	reg := manifest.NewRegistry()
	reg.Register(native.New())
	reg.Register(npm.New())
	reg.Register(bower.New())
	e.registry = reg

	gh := githubresolve.New(cfg.GitHubToken)
	e.github = gh

	e.resolver = tree.NewResolver(f, reg, gh, cfg.MaxConcurrency,
		tree.WithLogger(e.log),
		tree.WithCollector(e.metrics),
		tree.WithAuditRecorder(e.audit),
	)

	return e, nil
}

func logLevel(verbose bool) typlog.Level {
	if verbose {
		return typlog.LevelDebug
	}
	return typlog.LevelInfo
}

// Close releases the Engine's fetch cache.
func (e *Engine) Close() error {
	return e.fetcher.Close()
}

// Resolve builds the merged, multi-ecosystem dependency tree rooted at
// cfg.Cwd (§4.E).
func (e *Engine) Resolve(ctx context.Context, cfg *typingsconfig.Config) (*node.Node, error) {
	return e.resolver.Resolve(ctx, tree.Options{
		Cwd:     cfg.Cwd,
		Dev:     cfg.Dev,
		Ambient: cfg.Ambient,
		Name:    cfg.Name,
		RunID:   audit.NewRunID(),
	})
}

// Compile resolves the tree rooted at cfg.Cwd and rewrites it into the
// {main, browser} output pair (§4.F-4.I). The two targets reuse one
// resolved tree but rewrite independently, since a browser overlay can
// select different entry files per node.
func (e *Engine) Compile(ctx context.Context, cfg *typingsconfig.Config) (assemble.Output, error) {
	root, err := e.Resolve(ctx, cfg)
	if err != nil {
		return assemble.Output{}, err
	}

	started := time.Now()
	defer func() { e.metrics.ObserveCompileDuration(time.Since(started).Seconds()) }()

	opts := rewrite.Options{Name: cfg.Name, Meta: cfg.Meta, WorkingDir: cfg.Cwd}

	mainBlocks, err := rewrite.Compile(ctx, e.fetcher, root, entry.TargetMain, opts)
	if err != nil {
		return assemble.Output{}, err
	}
	browserBlocks, err := rewrite.Compile(ctx, e.fetcher, root, entry.TargetBrowser, opts)
	if err != nil {
		return assemble.Output{}, err
	}

	return assemble.Output{
		Main:    assemble.Join(mainBlocks),
		Browser: assemble.Join(browserBlocks),
	}, nil
}

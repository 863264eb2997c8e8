// Package rewrite implements the namespacing rewriter (§4.H), the
// co-hardest component of the compiler: it walks a resolved dependency
// tree depth-first, assigns every node a namespace, rewrites the module
// specifiers inside its declaration entry to point at its dependencies'
// namespaces instead of their original package names, and wraps the
// result in a `declare module` block — producing the flat,
// depth-first, alphabetically ordered block stream that
// internal/assemble joins into output text.
package rewrite

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glen-84/typings/internal/classify"
	"github.com/glen-84/typings/internal/decl"
	"github.com/glen-84/typings/internal/entry"
	"github.com/glen-84/typings/internal/fetch"
	"github.com/glen-84/typings/internal/node"
	"github.com/glen-84/typings/internal/typerrors"
)

// Version is embedded in meta headers when Options.Meta is set.
const Version = "1.0.0"

// Options configures a single Compile call.
type Options struct {
	// Name is the user-supplied root namespace (N in §4.H).
	Name string
	// Meta, when true, precedes every emitted block with two comment
	// lines: the compiler version and the entry file's path relative
	// to WorkingDir.
	Meta bool
	// WorkingDir is the caller's working directory, used only to
	// relativize entry paths in meta headers.
	WorkingDir string
}

// Compile walks root and returns its blocks in depth-first,
// alphabetical-by-key order (dependencies, devDependencies,
// ambientDependencies, ambientDevDependencies), root's own block plus
// its alias block last, for the given compile target.
func Compile(ctx context.Context, fetcher *fetch.Fetcher, root *node.Node, target entry.Target, opts Options) ([]string, error) {
	if root.Missing {
		return nil, typerrors.MissingDependency(opts.Name)
	}

	c := &compiler{fetcher: fetcher, target: target, opts: opts}
	blocks, ownExportEquals, primaryNS, err := c.compileSubtree(ctx, root, opts.Name, true)
	if err != nil {
		return nil, err
	}

	// An ambient root has no namespaced content to alias into — its
	// declarations are already global.
	if !root.Ambient {
		blocks = append(blocks, aliasBlock(opts.Name, primaryNS, ownExportEquals))
	}
	return blocks, nil
}

type compiler struct {
	fetcher *fetch.Fetcher
	target  entry.Target
	opts    Options
}

// compileSubtree emits, in order: every dependency's full subtree
// (depth-first, alphabetical by key, in the fixed map-kind sequence),
// then n's own block(s) last. It returns whether n's own primary block
// used the `export =` form and the namespace that block was wrapped
// under; both are only consulted by the caller when n is the root.
func (c *compiler) compileSubtree(ctx context.Context, n *node.Node, ns string, isRoot bool) ([]string, bool, string, error) {
	var blocks []string

	for _, kind := range node.DependencyMapKinds {
		m := n.Map(kind)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			child := m[key]
			if child.Missing {
				return nil, false, "", typerrors.MissingDependency(key)
			}
			childBlocks, _, _, err := c.compileSubtree(ctx, child, childNamespace(ns, key), false)
			if err != nil {
				return nil, false, "", err
			}
			blocks = append(blocks, childBlocks...)
		}
	}

	ownBlocks, exportEquals, primaryNS, err := c.compileNode(ctx, n, ns, isRoot)
	if err != nil {
		return nil, false, "", err
	}
	blocks = append(blocks, ownBlocks...)

	return blocks, exportEquals, primaryNS, nil
}

// compileNode produces the block(s) contributed by n itself: its
// primary block plus one per secondary inline module declared in its
// entry file. For the root node, the primary block is wrapped under
// "ns/ENTRYSTEM" rather than bare ns, since ns itself is reserved for
// the public alias block Compile appends last.
func (c *compiler) compileNode(ctx context.Context, n *node.Node, ns string, isRoot bool) ([]string, bool, string, error) {
	entryPath, err := entry.ResolveWithFetch(ctx, c.fetcher, n, c.target)
	if err != nil {
		return nil, false, "", err
	}
	location := classify.JoinLocation(n.Src, entryPath)

	raw, err := c.fetcher.FetchText(ctx, location)
	if err != nil {
		return nil, false, "", typerrors.TypingsReadFailure(ns, err)
	}

	if n.Ambient {
		return []string{c.withMeta(raw, location)}, false, ns, nil
	}

	doc, err := decl.Parse(raw)
	if err != nil {
		return nil, false, "", fmt.Errorf("rewrite: parsing entry for %q: %w", ns, err)
	}

	own, secondaries := splitOwnBlock(doc, n.Name)

	primaryBody, primaryExportEquals, err := c.rewriteRange(n, ns, doc, raw, own)
	if err != nil {
		return nil, false, "", err
	}

	primaryNS := ns
	if isRoot {
		primaryNS = ns + "/" + entryStem(entryPath)
	}
	blocks := []string{c.withMeta(wrapModule(primaryNS, primaryBody), location)}

	entryDir := path.Dir(entryPath)
	subNames := make([]string, 0, len(secondaries))
	subByName := make(map[string]decl.ModuleBlock, len(secondaries))
	for _, b := range secondaries {
		subNames = append(subNames, b.Name)
		subByName[b.Name] = b
	}
	sort.Strings(subNames)

	for _, subName := range subNames {
		b := subByName[subName]
		subNS := submoduleNamespace(ns, n.Name, entryDir, subName)
		body, _, err := c.rewriteRange(n, ns, doc, raw, &b)
		if err != nil {
			return nil, false, "", err
		}
		blocks = append(blocks, c.withMeta(wrapModule(subNS, body), location))
	}

	return blocks, primaryExportEquals, primaryNS, nil
}

// entryStem derives the namespace suffix used for the root's own
// content block from its entry file's base name, e.g. "index.d.ts" ->
// "index".
func entryStem(entryPath string) string {
	base := path.Base(entryPath)
	base = strings.TrimSuffix(base, ".d.ts")
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" {
		return "index"
	}
	return base
}

// splitOwnBlock picks the ambient module block that represents the
// node's own content (matching its declared name, or the sole ambient
// block when there's exactly one), and returns the remaining ambient
// blocks as secondary inline modules. A nil own block means the entry
// file has no top-level wrapper and its whole text is the node's body.
func splitOwnBlock(doc *decl.Document, nodeName string) (own *decl.ModuleBlock, secondaries []decl.ModuleBlock) {
	var ambientBlocks []decl.ModuleBlock
	for _, b := range doc.Modules {
		if b.Ambient {
			ambientBlocks = append(ambientBlocks, b)
		}
	}

	for i, b := range ambientBlocks {
		if b.Name == nodeName {
			own = &ambientBlocks[i]
			break
		}
	}
	if own == nil && len(ambientBlocks) == 1 {
		own = &ambientBlocks[0]
	}

	for _, b := range ambientBlocks {
		if own == nil || b.Name != own.Name || b.Start != own.Start {
			secondaries = append(secondaries, b)
		}
	}
	return own, secondaries
}

// rewriteRange rewrites the module specifiers within block's body (or
// the whole document when block is nil) and reports whether the range
// contains an `export =` statement.
func (c *compiler) rewriteRange(n *node.Node, ns string, doc *decl.Document, raw string, block *decl.ModuleBlock) (string, bool, error) {
	start, end := 0, len(raw)
	if block != nil {
		start, end = block.BodyStart, block.BodyEnd
	}

	var patches []decl.Patch
	for _, s := range doc.Specifiers {
		if s.Start < start || s.End > end {
			continue
		}
		replacement, err := c.resolveSpecifier(n, ns, s.Value)
		if err != nil {
			return "", false, err
		}
		if replacement == "" {
			continue
		}
		patches = append(patches, decl.Patch{Start: s.Start, End: s.End, Replacement: replacement})
	}

	hasExportEquals := false
	for _, ee := range doc.ExportEquals {
		if ee.Start >= start && ee.End <= end {
			hasExportEquals = true
			break
		}
	}

	segment := raw[start:end]
	shifted := make([]decl.Patch, len(patches))
	for i, p := range patches {
		shifted[i] = decl.Patch{Start: p.Start - start, End: p.End - start, Replacement: p.Replacement}
	}
	return decl.Apply(segment, shifted), hasExportEquals, nil
}

// resolveSpecifier decides what a module specifier found inside node
// n's entry should be rewritten to: a dependency's namespace, a
// same-node relative reference, or an error for an unresolvable
// absolute specifier in a non-ambient context (§4.H). An empty,
// nil-error result means "leave unchanged" and never occurs here since
// every path either rewrites or fails; kept as a result slot for
// ambient callers that never reach this function.
func (c *compiler) resolveSpecifier(n *node.Node, ns, specifier string) (string, error) {
	specifier = browserOverlay(n, c.target, specifier)

	for _, kind := range node.DependencyMapKinds {
		if child, ok := n.Map(kind)[specifier]; ok && !child.Missing {
			return childNamespace(ns, specifier), nil
		}
	}

	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		cleaned := strings.TrimPrefix(path.Clean(specifier), "./")
		cleaned = strings.TrimSuffix(cleaned, ".d.ts")
		return ns + "/" + cleaned, nil
	}

	return "", typerrors.UnresolvedSpecifier(specifier, ns)
}

// browserOverlay remaps specifier through n's browser field when
// compiling for the browser target (§4.H "Browser overlay"). Outside
// the browser target, or when n declares no object-form browser field,
// it returns specifier unchanged.
func browserOverlay(n *node.Node, target entry.Target, specifier string) string {
	if target != entry.TargetBrowser || n.BrowserMap == nil {
		return specifier
	}
	if remapped, ok := n.BrowserMap[specifier]; ok {
		return remapped
	}
	return specifier
}

// wrapModule wraps body in a `declare module 'ns' { ... }` block.
func wrapModule(ns, body string) string {
	trimmed := strings.Trim(body, "\n")
	return fmt.Sprintf("declare module '%s' {%s\n}", ns, indentBlock(trimmed))
}

func indentBlock(body string) string {
	if body == "" {
		return ""
	}
	return "\n" + body
}

// withMeta prepends the two-line meta header when enabled.
func (c *compiler) withMeta(block, location string) string {
	if !c.opts.Meta {
		return block
	}
	rel := location
	if c.opts.WorkingDir != "" {
		if r, err := relativize(c.opts.WorkingDir, location); err == nil {
			rel = r
		}
	}
	return fmt.Sprintf("// compiled by typings %s\n// source: %s\n%s", Version, rel, block)
}

func relativize(base, target string) (string, error) {
	return filepath.Rel(base, target)
}

// aliasBlock builds the root's alias block, §4.H: a plain re-export
// when the entry used a standard `export` form, or an `export =`
// forwarder when the entry declared `export =`.
func aliasBlock(name, primaryNS string, exportEquals bool) string {
	if exportEquals {
		return fmt.Sprintf("declare module '%s' {\n\timport main = require('%s');\n\texport = main;\n}", name, primaryNS)
	}
	return fmt.Sprintf("declare module '%s' {\n\texport * from '%s';\n}", name, primaryNS)
}

// Package entry picks the declaration file a tree node contributes for
// a given compile target, following the precedence in §4.F: explicit
// typings fields first, then a same-named ".d.ts" substituted for an
// implementation entry, then failure.
package entry

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/glen-84/typings/internal/classify"
	"github.com/glen-84/typings/internal/fetch"
	"github.com/glen-84/typings/internal/node"
	"github.com/glen-84/typings/internal/typerrors"
)

// Target is the compile target a declaration entry is resolved for.
type Target int

const (
	TargetMain Target = iota
	TargetBrowser
)

// Resolve picks the entry path for n under target, per §4.F:
//  1. target == browser and node has BrowserTypings -> use it.
//  2. else node has Typings -> use it.
//  3. else node's main/browser-override-of-main is a .d.ts path -> use it.
//  4. else node's main points at an implementation file -> return main
//     with an error; the extension substitution and existence check
//     are done by ResolveWithFetch, since Resolve performs no I/O.
//  5. else fail with EntryResolution.
func Resolve(n *node.Node, target Target) (string, error) {
	if target == TargetBrowser && n.BrowserTypings != "" {
		return n.BrowserTypings, nil
	}
	if n.Typings != "" {
		return n.Typings, nil
	}

	main := mainFor(n, target)
	if main == "" {
		return "", typerrors.EntryResolution(displayName(n))
	}
	if classify.IsDefinition(main) {
		return main, nil
	}
	return main, errNeedsSubstitution
}

// errNeedsSubstitution signals that the caller must attempt the
// implementation-to-declaration extension substitution itself, since
// that requires an I/O check this package doesn't perform on Resolve's
// behalf (existence is checked by ResolveWithFetch).
var errNeedsSubstitution = fmt.Errorf("entry: substitution required")

// mainFor returns node's implementation entry for target, honoring a
// browser-field override of main when target is browser and the
// override is a plain path (not a specifier map).
func mainFor(n *node.Node, target Target) string {
	if target == TargetBrowser && n.BrowserPath != "" {
		return n.BrowserPath
	}
	return n.Main
}

// ResolveWithFetch is like Resolve but performs the implementation-file
// extension substitution and confirms the substituted file exists via
// fetcher, failing with EntryNotFound when it doesn't.
func ResolveWithFetch(ctx context.Context, fetcher *fetch.Fetcher, n *node.Node, target Target) (string, error) {
	path, err := Resolve(n, target)
	if err == nil {
		return path, nil
	}
	if err != errNeedsSubstitution {
		return "", err
	}

	substituted := substituteDefinitionExtension(path)
	base := n.Src
	located := classify.JoinLocation(base, substituted)

	if _, fetchErr := fetcher.FetchText(ctx, located); fetchErr != nil {
		if typerrors.IsNotFound(fetchErr) || typerrors.IsHTTPStatus(fetchErr) {
			return "", typerrors.EntryNotFound(displayName(n))
		}
		return "", fetchErr
	}
	return substituted, nil
}

// substituteDefinitionExtension replaces path's extension with ".d.ts".
func substituteDefinitionExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + ".d.ts"
	}
	return strings.TrimSuffix(path, ext) + ".d.ts"
}

func displayName(n *node.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.Src
}

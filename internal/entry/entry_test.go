package entry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glen-84/typings/internal/fetch"
	"github.com/glen-84/typings/internal/node"
	"github.com/glen-84/typings/internal/typerrors"
)

func TestResolvePrefersBrowserTypingsForBrowserTarget(t *testing.T) {
	n := &node.Node{BrowserTypings: "browser.d.ts", Typings: "index.d.ts"}
	got, err := Resolve(n, TargetBrowser)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "browser.d.ts" {
		t.Errorf("Resolve() = %q, want browser.d.ts", got)
	}
}

func TestResolveFallsBackToTypingsForMainTarget(t *testing.T) {
	n := &node.Node{BrowserTypings: "browser.d.ts", Typings: "index.d.ts"}
	got, err := Resolve(n, TargetMain)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "index.d.ts" {
		t.Errorf("Resolve() = %q, want index.d.ts", got)
	}
}

func TestResolveUsesMainWhenItIsADefinitionFile(t *testing.T) {
	n := &node.Node{Main: "index.d.ts"}
	got, err := Resolve(n, TargetMain)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "index.d.ts" {
		t.Errorf("Resolve() = %q, want index.d.ts", got)
	}
}

func TestResolveFailsWithEntryResolutionWhenNothingToGoOn(t *testing.T) {
	n := &node.Node{Name: "bare"}
	_, err := Resolve(n, TargetMain)
	if !typerrors.IsEntryResolution(err) {
		t.Errorf("Resolve() error = %v, want EntryResolution", err)
	}
}

func TestResolveWithFetchSubstitutesExtensionWhenFileExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.d.ts"), []byte("export {};"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	n := &node.Node{Main: "index.js", Src: filepath.Join(dir, "package.json")}
	f, err := fetch.New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("fetch.New() error = %v", err)
	}
	defer f.Close()

	got, err := ResolveWithFetch(context.Background(), f, n, TargetMain)
	if err != nil {
		t.Fatalf("ResolveWithFetch() error = %v", err)
	}
	if got != "index.d.ts" {
		t.Errorf("ResolveWithFetch() = %q, want index.d.ts", got)
	}
}

func TestResolveWithFetchFailsWithEntryNotFoundWhenSubstitutedFileMissing(t *testing.T) {
	dir := t.TempDir()
	n := &node.Node{Name: "bare", Main: "index.js", Src: filepath.Join(dir, "package.json")}
	f, err := fetch.New(filepath.Join(dir, "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("fetch.New() error = %v", err)
	}
	defer f.Close()

	_, err = ResolveWithFetch(context.Background(), f, n, TargetMain)
	if !typerrors.IsEntryNotFound(err) {
		t.Errorf("ResolveWithFetch() error = %v, want EntryNotFound", err)
	}
}

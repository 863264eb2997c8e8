package tree

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glen-84/typings/internal/fetch"
	githubresolve "github.com/glen-84/typings/internal/github"
	"github.com/glen-84/typings/internal/manifest"
	"github.com/glen-84/typings/internal/manifest/bower"
	"github.com/glen-84/typings/internal/manifest/native"
	"github.com/glen-84/typings/internal/manifest/npm"
	"github.com/glen-84/typings/internal/node"
	"github.com/glen-84/typings/internal/typerrors"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	f, err := fetch.New(filepath.Join(t.TempDir(), "cache"), 5*time.Second, "")
	if err != nil {
		t.Fatalf("fetch.New() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })

	reg := manifest.NewRegistry()
	reg.Register(native.New())
	reg.Register(npm.New())
	reg.Register(bower.New())

	return NewResolver(f, reg, githubresolve.New(""), 4)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestResolveMissingManifestsProduceMissingRoot(t *testing.T) {
	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: t.TempDir()})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !root.Missing {
		t.Error("Resolve() with no manifests anywhere should produce a missing root")
	}
}

func TestResolveNativeOnlyRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, native.DefaultFilename), `{
		"name": "myproject",
		"main": "index.d.ts",
		"dependencies": {"dep": "file:./dep.d.ts"}
	}`)

	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: dir})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if root.Missing {
		t.Fatal("root should not be missing")
	}
	if root.Name != "myproject" || root.Main != "index.d.ts" {
		t.Errorf("unexpected root: %+v", root)
	}
	dep, ok := root.Dependencies["dep"]
	if !ok {
		t.Fatal("Dependencies missing \"dep\"")
	}
	if dep.Missing {
		t.Errorf("dep should have resolved via its .d.ts candidate directly, got missing")
	}
}

func TestResolveNativeOverlayWinsOverNpm(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, npm.DefaultFilename), `{"name":"npm-name","main":"npm-main.js","typings":"npm.d.ts"}`)
	writeFile(t, filepath.Join(dir, native.DefaultFilename), `{"name":"native-name","typings":"native.d.ts"}`)

	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: dir})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if root.Name != "native-name" || root.Typings != "native.d.ts" {
		t.Errorf("native overlay should win: %+v", root)
	}
}

func TestResolveUnionsDependencyMapsAcrossEcosystems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, npm.DefaultFilename), `{"name":"proj","dependencies":{}}`)
	writeFile(t, filepath.Join(dir, bower.DefaultFilename), `{"name":"proj","dependencies":{}}`)
	writeFile(t, filepath.Join(dir, native.DefaultFilename), `{
		"dependencies": {"a": "file:./a.d.ts"},
		"devDependencies": {"b": "file:./b.d.ts"}
	}`)
	writeFile(t, filepath.Join(dir, "a.d.ts"), "export const a: string;")
	writeFile(t, filepath.Join(dir, "b.d.ts"), "export const b: string;")

	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: dir, Dev: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := root.Dependencies["a"]; !ok {
		t.Error("Dependencies missing \"a\"")
	}
	if _, ok := root.DevDependencies["b"]; !ok {
		t.Error("DevDependencies missing \"b\" (dev=true should expand it)")
	}
}

func TestResolveDevFalseLeavesDevDependenciesEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, native.DefaultFilename), `{
		"devDependencies": {"b": "file:./b.d.ts"}
	}`)
	writeFile(t, filepath.Join(dir, "b.d.ts"), "export const b: string;")

	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: dir, Dev: false})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(root.DevDependencies) != 0 {
		t.Errorf("DevDependencies = %v, want empty when dev=false", root.DevDependencies)
	}
}

func TestResolveAmbientMapsStayIsolated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, native.DefaultFilename), `{
		"ambient": true,
		"ambientDependencies": {"fs": "file:./fs.d.ts"},
		"ambientDevDependencies": {"fsdev": "file:./fsdev.d.ts"}
	}`)
	writeFile(t, filepath.Join(dir, "fs.d.ts"), "export function readFileSync(): void;")
	writeFile(t, filepath.Join(dir, "fsdev.d.ts"), "export function watch(): void;")

	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: dir, Dev: true, Ambient: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := root.DevDependencies["fsdev"]; ok {
		t.Error("ambientDevDependencies must never fold into plain devDependencies")
	}
	if _, ok := root.AmbientDevDependencies["fsdev"]; !ok {
		t.Error("AmbientDevDependencies missing \"fsdev\"")
	}
	if _, ok := root.AmbientDependencies["fs"]; !ok {
		t.Error("AmbientDependencies missing \"fs\"")
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	dir := t.TempDir()
	selfPath := filepath.Join(dir, native.DefaultFilename)
	writeFile(t, selfPath, `{"dependencies": {"self": "file:."}}`)

	r := newTestResolver(t)
	_, err := r.Resolve(context.Background(), Options{Cwd: dir})
	if !typerrors.IsCircular(err) {
		t.Errorf("Resolve() error = %v, want CircularDependency", err)
	}
}

func TestResolveNpmNodeModulesLookup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, npm.DefaultFilename), `{"name":"proj","dependencies":{"leftpad":"^1.0.0"}}`)
	writeFile(t, filepath.Join(dir, "node_modules", "leftpad", "package.json"), `{"name":"leftpad","typings":"index.d.ts"}`)

	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: dir})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	dep, ok := root.Dependencies["leftpad"]
	if !ok {
		t.Fatal("Dependencies missing \"leftpad\"")
	}
	if dep.Missing || dep.Typings != "index.d.ts" {
		t.Errorf("unexpected leftpad node: %+v", dep)
	}
}

func TestResolveNativeCandidateListUsesFirstSuccess(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, native.DefaultFilename), `{
		"ambientDependencies": {"fs": ["npm:fs", "file:./fs.d.ts"]}
	}`)
	writeFile(t, filepath.Join(dir, "fs.d.ts"), "export function readFileSync(): void;")

	r := newTestResolver(t)
	root, err := r.Resolve(context.Background(), Options{Cwd: dir, Ambient: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	fsNode, ok := root.AmbientDependencies["fs"]
	if !ok {
		t.Fatal("AmbientDependencies missing \"fs\"")
	}
	if fsNode.Missing {
		t.Error("fs should have fallen through to the file: candidate after npm: failed")
	}
	if fsNode.Type == node.EcosystemNpm {
		t.Errorf("fs resolved via npm: candidate unexpectedly, node = %+v", fsNode)
	}
}

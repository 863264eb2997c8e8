// Package classify distinguishes HTTP locations from filesystem paths and
// joins a child location against its parent, the way a resolver needs to
// when walking from a manifest to the dependencies it names.
package classify

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// definitionSuffix is the canonical declaration-file extension.
const definitionSuffix = ".d.ts"

// IsHTTP reports whether s is an absolute http(s) URL.
func IsHTTP(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsDefinition reports whether s names a declaration file.
func IsDefinition(s string) bool {
	return strings.HasSuffix(s, definitionSuffix)
}

// ToDefinition produces a canonical ".d.ts" filename from a bare
// dependency name, e.g. "lodash" -> "lodash.d.ts".
func ToDefinition(name string) string {
	if IsDefinition(name) {
		return name
	}
	return name + definitionSuffix
}

// IsAbsolute reports whether s is an absolute URL or an absolute
// filesystem path, i.e. doesn't need to be resolved against a parent.
func IsAbsolute(s string) bool {
	return IsHTTP(s) || filepath.IsAbs(s)
}

// JoinLocation resolves child against parent. If child is already
// absolute it is returned unchanged. Otherwise, if parent is an HTTP URL,
// child is resolved against it per URL-reference rules; if parent is a
// filesystem path, child is joined against parent's directory.
func JoinLocation(parent, child string) string {
	if IsAbsolute(child) {
		return child
	}

	if IsHTTP(parent) {
		base, err := url.Parse(parent)
		if err != nil {
			return child
		}
		ref, err := url.Parse(child)
		if err != nil {
			return child
		}
		return base.ResolveReference(ref).String()
	}

	dir := filepath.Dir(parent)
	return filepath.Join(dir, child)
}

// JoinURLPath joins childPath onto the directory of base's URL path using
// path.Join, which also cleans "." and ".." segments; used when the
// parent is known to already be an HTTP URL and child is a relative path
// segment rather than a full relative reference.
func JoinURLPath(base, childPath string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(path.Dir(u.Path), childPath)
	return u.String(), nil
}

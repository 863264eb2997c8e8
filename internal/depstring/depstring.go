// Package depstring parses the short-form dependency strings accepted by
// the resolver ("npm:lodash", "github:owner/repo#ref", bare paths and
// URLs) into a typed descriptor, dispatching the way a provider detector
// picks a handler for a short string.
package depstring

import (
	"strings"

	"github.com/glen-84/typings/internal/classify"
)

// Type is the kind of dependency descriptor a string parses to.
type Type string

const (
	TypeNpm      Type = "npm"
	TypeBower    Type = "bower"
	TypeGithub   Type = "github"
	TypeFile     Type = "file"
	TypeHTTP     Type = "http"
	TypeRegistry Type = "registry"
)

// Descriptor is the parsed form of a dependency string.
type Descriptor struct {
	Type     Type
	Location string

	// Owner, Repo, and Ref are populated only when Type == TypeGithub.
	Owner string
	Repo  string
	Ref   string
}

// Parse dispatches s to the descriptor its scheme prefix (or shape)
// identifies. Recognized forms, in order:
//
//	npm:NAME               -> {npm, NAME}
//	bower:NAME             -> {bower, NAME}
//	github:OWNER/REPO[#REF]-> {github, ..., Owner, Repo, Ref}
//	file:PATH              -> {file, PATH}
//	bare http(s) URL       -> {http, URL}
//	anything else          -> {file, s}
func Parse(s string) Descriptor {
	if rest, ok := cutPrefix(s, "npm:"); ok {
		return Descriptor{Type: TypeNpm, Location: rest}
	}
	if rest, ok := cutPrefix(s, "bower:"); ok {
		return Descriptor{Type: TypeBower, Location: rest}
	}
	if rest, ok := cutPrefix(s, "github:"); ok {
		return parseGithub(rest)
	}
	if rest, ok := cutPrefix(s, "file:"); ok {
		return Descriptor{Type: TypeFile, Location: rest}
	}
	if classify.IsHTTP(s) {
		return Descriptor{Type: TypeHTTP, Location: s}
	}
	return Descriptor{Type: TypeFile, Location: s}
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

// parseGithub splits "OWNER/REPO[#REF]" into its parts. Location is set
// to the full "OWNER/REPO[#REF]" string for diagnostics; callers resolve
// Owner/Repo/Ref to an HTTP location via internal/github.
func parseGithub(rest string) Descriptor {
	d := Descriptor{Type: TypeGithub, Location: rest}

	ownerRepo := rest
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		ownerRepo = rest[:idx]
		d.Ref = rest[idx+1:]
	}

	if idx := strings.IndexByte(ownerRepo, '/'); idx >= 0 {
		d.Owner = ownerRepo[:idx]
		d.Repo = ownerRepo[idx+1:]
	}

	return d
}

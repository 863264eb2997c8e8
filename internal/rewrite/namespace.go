package rewrite

import (
	"path"
	"strings"
)

// childNamespace computes the namespace of a node reached from a
// parent addressed as parentNS via dependency key key: "P~K" (§4.H).
func childNamespace(parentNS, key string) string {
	return parentNS + "~" + key
}

// submoduleNamespace computes the namespace of a secondary module
// declared inline inside a node's entry file via `declare module "SUB"`,
// resolving a path-like SUB (starting with "./" or "../") relative to
// the entry's directory and stripping the node's own name prefix first.
func submoduleNamespace(nodeNS, nodeName, entryDir, sub string) string {
	resolved := sub
	if strings.HasPrefix(sub, "./") || strings.HasPrefix(sub, "../") {
		resolved = path.Join(entryDir, sub)
		if nodeName != "" {
			resolved = strings.TrimPrefix(resolved, nodeName+"/")
		}
		resolved = strings.TrimPrefix(resolved, "/")
	} else if nodeName != "" {
		resolved = strings.TrimPrefix(sub, nodeName+"/")
	}
	return nodeNS + "/" + resolved
}

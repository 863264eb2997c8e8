package tree

import "github.com/glen-84/typings/internal/node"

// mergeRoots merges the three top-level ecosystem subtrees (given in
// the fixed order [bower, npm, native]) into a single root node (§4.E).
//
// For {main, browser, typings, browserTypings}: the last subtree that
// defines any of the four wins for all four plus name and src, making
// the native overlay authoritative when present. Dependency maps are a
// key-wise union with later subtrees overwriting earlier ones on
// collision; ambient maps only ever merge into ambient maps.
func mergeRoots(ordered []*node.Node) *node.Node {
	root := node.New(node.EcosystemNative, "")
	allMissing := true

	for _, subtree := range ordered {
		if subtree == nil || subtree.Missing {
			continue
		}
		allMissing = false

		if subtree.Main != "" || subtree.HasBrowserOverride() || subtree.Typings != "" || subtree.BrowserTypings != "" {
			root.Main = subtree.Main
			root.BrowserPath = subtree.BrowserPath
			root.BrowserMap = subtree.BrowserMap
			root.Typings = subtree.Typings
			root.BrowserTypings = subtree.BrowserTypings
			root.Name = subtree.Name
			root.Src = subtree.Src
			root.Type = subtree.Type
		}
		if subtree.Ambient {
			root.Ambient = true
		}

		for _, kind := range node.DependencyMapKinds {
			mergeInto(root.Map(kind), subtree.Map(kind))
		}
	}

	root.Missing = allMissing
	return root
}

func mergeInto(dst, src map[string]*node.Node) {
	for k, v := range src {
		dst[k] = v
	}
}

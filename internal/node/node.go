// Package node defines the tree node data model shared by the manifest
// readers and the tree resolver: a node is the unit both sides build and
// merge, independent of which ecosystem produced it.
package node

// Ecosystem tags which manifest shape produced a node.
type Ecosystem string

const (
	EcosystemNative Ecosystem = "native"
	EcosystemNpm    Ecosystem = "npm"
	EcosystemBower  Ecosystem = "bower"

	// EcosystemFile and EcosystemHTTP tag a node produced by a bare
	// ".d.ts"-typed dependency candidate (file: or http(s): form, or a
	// bare path/URL) that short-circuited manifest reading (B2).
	EcosystemFile Ecosystem = "file"
	EcosystemHTTP Ecosystem = "http"
)

// DependencyMapKind names one of the four dependency maps a node carries,
// in the fixed emission order used throughout the compiler.
type DependencyMapKind int

const (
	MapDependencies DependencyMapKind = iota
	MapDevDependencies
	MapAmbientDependencies
	MapAmbientDevDependencies
)

// DependencyMapKinds lists the four maps in their fixed emission order.
var DependencyMapKinds = []DependencyMapKind{
	MapDependencies, MapDevDependencies, MapAmbientDependencies, MapAmbientDevDependencies,
}

func (k DependencyMapKind) String() string {
	switch k {
	case MapDependencies:
		return "dependencies"
	case MapDevDependencies:
		return "devDependencies"
	case MapAmbientDependencies:
		return "ambientDependencies"
	case MapAmbientDevDependencies:
		return "ambientDevDependencies"
	default:
		return "unknown"
	}
}

// Node is the central data structure of the resolver and compiler: one
// entry in the merged, multi-ecosystem dependency tree.
type Node struct {
	// Src is the absolute filesystem path or absolute URL identifying
	// the manifest that produced this node. Unique within any chain of
	// Parent links.
	Src string

	// Type names which ecosystem produced this node.
	Type Ecosystem

	// Missing is true when the manifest could not be read; the four
	// dependency maps are then guaranteed empty (I2).
	Missing bool

	// Ambient is true when this node provides globally declared names,
	// with no enclosing module wrapper, on emission.
	Ambient bool

	Name    string
	Version string

	// Main is the implementation entry: either a plain path or, when
	// Browser remaps specifiers rather than files, still a simple path.
	Main string

	// Browser is the browser-target override. It's either a path (same
	// shape as Main) or a specifier-to-specifier remapping, hence the
	// two fields below; exactly one is populated when set.
	BrowserPath string
	BrowserMap  map[string]string

	Typings        string
	BrowserTypings string

	// Raw is the short-form dependency string that produced this node,
	// kept for diagnostics only.
	Raw string

	// Parent is a non-owning back-edge to the node whose manifest named
	// this one, used only for cycle detection and URL base resolution.
	// Never traversed for ownership or destruction.
	Parent *Node

	Dependencies            map[string]*Node
	DevDependencies         map[string]*Node
	AmbientDependencies     map[string]*Node
	AmbientDevDependencies  map[string]*Node
}

// New creates a Node of the given ecosystem and source, with empty
// dependency maps.
func New(ecosystem Ecosystem, src string) *Node {
	return &Node{
		Type:                   ecosystem,
		Src:                    src,
		Dependencies:           make(map[string]*Node),
		DevDependencies:        make(map[string]*Node),
		AmbientDependencies:    make(map[string]*Node),
		AmbientDevDependencies: make(map[string]*Node),
	}
}

// NewMissing builds a missing:true placeholder node of the given ecosystem
// and source, satisfying I2 (its dependency maps are empty).
func NewMissing(ecosystem Ecosystem, src string) *Node {
	n := New(ecosystem, src)
	n.Missing = true
	return n
}

// Map returns the dependency map identified by kind.
func (n *Node) Map(kind DependencyMapKind) map[string]*Node {
	switch kind {
	case MapDependencies:
		return n.Dependencies
	case MapDevDependencies:
		return n.DevDependencies
	case MapAmbientDependencies:
		return n.AmbientDependencies
	case MapAmbientDevDependencies:
		return n.AmbientDevDependencies
	default:
		return nil
	}
}

// HasBrowserOverride reports whether the node carries any browser-target
// override (a path or a specifier map).
func (n *Node) HasBrowserOverride() bool {
	return n.BrowserPath != "" || len(n.BrowserMap) > 0
}

// AncestorChain walks Parent links starting at n (inclusive) and returns
// the Src values from n up to the root, used for cycle-chain diagnostics.
func (n *Node) AncestorChain() []string {
	var chain []string
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append(chain, cur.Src)
	}
	return chain
}

// HasAncestorWithSrc reports whether any node in n's Parent chain
// (excluding n itself) has the given Src — the cycle check required by
// I1 before reading a manifest.
func (n *Node) HasAncestorWithSrc(src string) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Src == src {
			return true
		}
	}
	return false
}

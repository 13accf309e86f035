// Package scene defines the contract with the host application's scene graph.
//
// Every pipeline step mutates the scene exclusively through the Scene
// interface; the host binding is supplied by the embedding application. The
// package also ships Memory, a deterministic in-memory implementation used by
// the test suite and by dry runs.
package scene

import "context"

// DeformerKind is the closed set of deformer node kinds the engine handles.
type DeformerKind string

const (
	KindSkin       DeformerKind = "skin"
	KindCluster    DeformerKind = "cluster"
	KindLattice    DeformerKind = "lattice"
	KindBlendShape DeformerKind = "blendShape"
	KindWire       DeformerKind = "wire"
	KindWrap       DeformerKind = "wrap"
	KindShrinkWrap DeformerKind = "shrinkWrap"
	KindBend       DeformerKind = "bend"
)

// Deformer is a handle to a live deformer in the scene.
type Deformer struct {
	Name string
	Kind DeformerKind
}

// Attr is one attribute snapshot read from a node.
type Attr struct {
	Value  any
	Locked bool
}

// Scene is the host scene-graph surface the engine builds against. All
// methods are synchronous; the scene is a single shared mutable resource and
// steps call it sequentially.
type Scene interface {
	// Exists reports whether a node with the given name is present.
	Exists(name string) bool

	// NodeType returns the host node type, e.g. "transform" or "joint".
	NodeType(name string) (string, error)

	// Children returns the direct child transforms of a node in order.
	Children(name string) ([]string, error)

	// SetParent moves child under parent, preserving the child's subtree.
	SetParent(child, parent string) error

	// Duplicate copies node and its subtree under parent with the new root
	// name, returning every created node name, root first. It fails with
	// ErrAlreadyExists when newName is taken.
	Duplicate(ctx context.Context, node, newName, parent string) ([]string, error)

	// Rename renames a node or deformer.
	Rename(old, new string) error

	// Delete removes a node and its subtree.
	Delete(name string) error

	// ListByPattern returns node names matching a glob pattern, in creation
	// order.
	ListByPattern(pattern string) []string

	// Connect establishes a one-directional link from a source plug to a
	// destination plug, both "node.attr" strings.
	Connect(srcPlug, dstPlug string) error

	// GetAttr and SetAttr read and write one attribute. SetAttr on a locked
	// attribute fails unless the caller unlocks it first via SetAttrLocked.
	GetAttr(node, attr string) (Attr, error)
	SetAttr(node, attr string, value any) error
	SetAttrLocked(node, attr string, locked bool) error

	// UserAttrs lists the user-defined attribute names of a node; KeyableAttrs
	// lists its keyable attribute names. Both preserve creation order.
	UserAttrs(node string) ([]string, error)
	KeyableAttrs(node string) ([]string, error)

	// ControlPoints reads the ordered world-space control points of a curve
	// shape owned by the node; SetControlPoints writes them back.
	ControlPoints(node string) ([][3]float64, error)
	SetControlPoints(node string, points [][3]float64) error

	// VertexCount returns the number of vertices of a mesh.
	VertexCount(mesh string) (int, error)

	// ListDeformers returns the deformers currently applied to mesh in
	// application order, optionally filtered by kind.
	ListDeformers(mesh string, kinds ...DeformerKind) ([]Deformer, error)

	// CreateSkin binds mesh to the given joints under the given deformer
	// name and appends it to the mesh's stack.
	CreateSkin(ctx context.Context, name, mesh string, joints []string) (Deformer, error)

	// CreateDeformer creates a deformer of the given kind on mesh and
	// appends it to the mesh's stack. Source names the driver geometry for
	// wrap-style kinds and is empty otherwise.
	CreateDeformer(ctx context.Context, name string, kind DeformerKind, mesh, source string) (Deformer, error)

	// AttachDeformer adds mesh to the geometry set of an existing deformer,
	// appending it to the mesh's stack.
	AttachDeformer(deformer, mesh string) error

	// SetEnvelope sets the blend weight of a whole deformer.
	SetEnvelope(deformer string, envelope float64) error

	// DeformerWeights reads the per-vertex weight array of a deformer on one
	// of its meshes; SetDeformerWeights writes it back.
	DeformerWeights(deformer, mesh string) ([]float64, error)
	SetDeformerWeights(deformer, mesh string, weights []float64) error

	// AddBlendShapeTarget appends source as a new target of an existing
	// blendShape deformer with full weight.
	AddBlendShapeTarget(blendShape, source string) error

	// NormalizeGeometry applies the host's mesh preparation pass (harden
	// edges, unlock per-vertex normals) to a mesh entering the geometry
	// group.
	NormalizeGeometry(mesh string) error

	// Descendants returns every node below root in depth-first order. Used
	// to expand joint hierarchies for skin binding.
	Descendants(root string) ([]string, error)

	// ImportTemplate merges a prebuilt scene fragment into the scene with
	// the given renaming label.
	ImportTemplate(ctx context.Context, path, label string) error
}

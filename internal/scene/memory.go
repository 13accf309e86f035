package scene

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/lfdn/facerig/internal/ctxlog"
)

// Memory is a deterministic in-memory Scene. It is suitable for the test
// suite and for dry runs; it is not safe for concurrent writers, matching the
// single-session pipeline model.
type Memory struct {
	nodes     map[string]*node
	deformers map[string]*deformerRec
	order     []string // node creation order, for stable ListByPattern
	templates map[string]func(m *Memory)

	// Connections records every plug link made through Connect, source to
	// destination, in call order.
	Connections [][2]string

	// Normalized records every mesh passed through NormalizeGeometry.
	Normalized []string
}

type node struct {
	name     string
	nodeType string
	parent   string
	children []string

	attrOrder []string
	attrs     map[string]*memAttr

	cvs      [][3]float64
	vertices int

	// stack is the ordered deformer chain for mesh nodes.
	stack []string
}

type memAttr struct {
	value   any
	locked  bool
	user    bool
	keyable bool
}

type deformerRec struct {
	name     string
	kind     DeformerKind
	envelope float64
	joints   []string
	source   string
	meshes   []string
	weights  map[string][]float64
	targets  []string // blendShape targets
}

// NewMemory returns an empty in-memory scene.
func NewMemory() *Memory {
	return &Memory{
		nodes:     make(map[string]*node),
		deformers: make(map[string]*deformerRec),
		templates: make(map[string]func(m *Memory)),
	}
}

// --- construction helpers (test and dry-run fixtures) ---

// AddTransform creates a transform node. An empty parent creates a root node.
func (m *Memory) AddTransform(name, parent string) error {
	return m.addNode(name, "transform", parent)
}

// AddJoint creates a joint node.
func (m *Memory) AddJoint(name, parent string) error {
	return m.addNode(name, "joint", parent)
}

// AddMesh creates a mesh node with the given vertex count.
func (m *Memory) AddMesh(name, parent string, vertices int) error {
	if err := m.addNode(name, "mesh", parent); err != nil {
		return err
	}
	m.nodes[name].vertices = vertices
	return nil
}

// AddCurve creates a curve node with the given control points.
func (m *Memory) AddCurve(name, parent string, cvs [][3]float64) error {
	if err := m.addNode(name, "nurbsCurve", parent); err != nil {
		return err
	}
	m.nodes[name].cvs = append([][3]float64(nil), cvs...)
	return nil
}

// AddAttr declares an attribute on a node. User marks it user-defined,
// keyable marks it keyable; both influence the export walks.
func (m *Memory) AddAttr(nodeName, attr string, value any, user, keyable bool) error {
	n, ok := m.nodes[nodeName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, nodeName)
	}
	if _, exists := n.attrs[attr]; !exists {
		n.attrOrder = append(n.attrOrder, attr)
	}
	n.attrs[attr] = &memAttr{value: value, user: user, keyable: keyable}
	return nil
}

// RegisterTemplate associates a template path with a builder invoked by
// ImportTemplate.
func (m *Memory) RegisterTemplate(path string, build func(m *Memory)) {
	m.templates[path] = build
}

func (m *Memory) addNode(name, nodeType, parent string) error {
	if _, exists := m.nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if parent != "" {
		p, ok := m.nodes[parent]
		if !ok {
			return fmt.Errorf("%w: parent %s", ErrNotFound, parent)
		}
		p.children = append(p.children, name)
	}
	m.nodes[name] = &node{
		name:     name,
		nodeType: nodeType,
		parent:   parent,
		attrs:    make(map[string]*memAttr),
	}
	m.order = append(m.order, name)
	return nil
}

// --- Scene implementation ---

// Exists reports whether a node or deformer with the given name is present.
func (m *Memory) Exists(name string) bool {
	if _, ok := m.nodes[name]; ok {
		return true
	}
	_, ok := m.deformers[name]
	return ok
}

func (m *Memory) NodeType(name string) (string, error) {
	n, ok := m.nodes[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return n.nodeType, nil
}

func (m *Memory) Children(name string) ([]string, error) {
	n, ok := m.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return append([]string(nil), n.children...), nil
}

func (m *Memory) SetParent(child, parent string) error {
	c, ok := m.nodes[child]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, child)
	}
	p, ok := m.nodes[parent]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, parent)
	}
	for anc := parent; anc != ""; {
		if anc == child {
			return fmt.Errorf("%w: %s under %s", ErrCycle, child, parent)
		}
		anc = m.nodes[anc].parent
	}
	if c.parent != "" {
		m.removeChild(c.parent, child)
	}
	c.parent = parent
	p.children = append(p.children, child)
	return nil
}

func (m *Memory) removeChild(parent, child string) {
	p := m.nodes[parent]
	for i, name := range p.children {
		if name == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

// Duplicate copies node and its subtree under parent. Child copies derive
// their names by substituting the root name, mirroring how the host renames
// duplicated hierarchies.
func (m *Memory) Duplicate(ctx context.Context, nodeName, newName, parent string) ([]string, error) {
	src, ok := m.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodeName)
	}
	if m.Exists(newName) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, newName)
	}
	ctxlog.FromContext(ctx).Debug("Duplicating node.", "node", nodeName, "as", newName, "parent", parent)

	var created []string
	var copySubtree func(src *node, name, parent string) error
	copySubtree = func(src *node, name, parent string) error {
		if m.Exists(name) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		if err := m.addNode(name, src.nodeType, parent); err != nil {
			return err
		}
		dst := m.nodes[name]
		dst.vertices = src.vertices
		dst.cvs = append([][3]float64(nil), src.cvs...)
		for _, attr := range src.attrOrder {
			a := *src.attrs[attr]
			dst.attrs[attr] = &a
			dst.attrOrder = append(dst.attrOrder, attr)
		}
		created = append(created, name)
		for _, child := range src.children {
			childName := strings.Replace(child, src.name, name, 1)
			if childName == child {
				childName = name + "_" + child
			}
			if err := copySubtree(m.nodes[child], childName, name); err != nil {
				return err
			}
		}
		return nil
	}

	if err := copySubtree(src, newName, parent); err != nil {
		return nil, err
	}
	return created, nil
}

// Rename renames a node or a deformer.
func (m *Memory) Rename(old, new string) error {
	if m.Exists(new) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, new)
	}
	if n, ok := m.nodes[old]; ok {
		delete(m.nodes, old)
		n.name = new
		m.nodes[new] = n
		if n.parent != "" {
			p := m.nodes[n.parent]
			for i, c := range p.children {
				if c == old {
					p.children[i] = new
				}
			}
		}
		for _, child := range n.children {
			m.nodes[child].parent = new
		}
		for i, name := range m.order {
			if name == old {
				m.order[i] = new
			}
		}
		return nil
	}
	if d, ok := m.deformers[old]; ok {
		delete(m.deformers, old)
		d.name = new
		m.deformers[new] = d
		for _, mesh := range d.meshes {
			stack := m.nodes[mesh].stack
			for i, name := range stack {
				if name == old {
					stack[i] = new
				}
			}
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotFound, old)
}

// Delete removes a node and its subtree.
func (m *Memory) Delete(name string) error {
	n, ok := m.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	for len(n.children) > 0 {
		if err := m.Delete(n.children[0]); err != nil {
			return err
		}
	}
	if n.parent != "" {
		m.removeChild(n.parent, name)
	}
	delete(m.nodes, name)
	for i, o := range m.order {
		if o == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListByPattern matches node names against a glob pattern in creation order.
func (m *Memory) ListByPattern(pattern string) []string {
	var out []string
	for _, name := range m.order {
		if ok, _ := path.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	return out
}

// Connect validates both plug endpoints and records the link.
func (m *Memory) Connect(srcPlug, dstPlug string) error {
	for _, plug := range []string{srcPlug, dstPlug} {
		nodeName, _, found := strings.Cut(plug, ".")
		if !found {
			return fmt.Errorf("scene: malformed plug %q", plug)
		}
		if !m.Exists(nodeName) {
			return fmt.Errorf("%w: %s", ErrNotFound, nodeName)
		}
	}
	m.Connections = append(m.Connections, [2]string{srcPlug, dstPlug})
	return nil
}

func (m *Memory) attr(nodeName, attr string) (*memAttr, error) {
	n, ok := m.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodeName)
	}
	a, ok := n.attrs[attr]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrAttrNotFound, nodeName, attr)
	}
	return a, nil
}

func (m *Memory) GetAttr(nodeName, attrName string) (Attr, error) {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return Attr{}, err
	}
	return Attr{Value: a.value, Locked: a.locked}, nil
}

func (m *Memory) SetAttr(nodeName, attrName string, value any) error {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return err
	}
	if a.locked {
		return fmt.Errorf("%w: %s.%s", ErrLocked, nodeName, attrName)
	}
	a.value = value
	return nil
}

func (m *Memory) SetAttrLocked(nodeName, attrName string, locked bool) error {
	a, err := m.attr(nodeName, attrName)
	if err != nil {
		return err
	}
	a.locked = locked
	return nil
}

func (m *Memory) UserAttrs(nodeName string) ([]string, error) {
	return m.attrNames(nodeName, func(a *memAttr) bool { return a.user })
}

func (m *Memory) KeyableAttrs(nodeName string) ([]string, error) {
	return m.attrNames(nodeName, func(a *memAttr) bool { return a.keyable })
}

func (m *Memory) attrNames(nodeName string, keep func(*memAttr) bool) ([]string, error) {
	n, ok := m.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodeName)
	}
	var out []string
	for _, attr := range n.attrOrder {
		if keep(n.attrs[attr]) {
			out = append(out, attr)
		}
	}
	return out, nil
}

func (m *Memory) ControlPoints(nodeName string) ([][3]float64, error) {
	n, ok := m.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodeName)
	}
	return append([][3]float64(nil), n.cvs...), nil
}

func (m *Memory) SetControlPoints(nodeName string, points [][3]float64) error {
	n, ok := m.nodes[nodeName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, nodeName)
	}
	n.cvs = append([][3]float64(nil), points...)
	return nil
}

func (m *Memory) VertexCount(mesh string) (int, error) {
	n, ok := m.nodes[mesh]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, mesh)
	}
	return n.vertices, nil
}

func (m *Memory) ListDeformers(mesh string, kinds ...DeformerKind) ([]Deformer, error) {
	n, ok := m.nodes[mesh]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, mesh)
	}
	var out []Deformer
	for _, name := range n.stack {
		d := m.deformers[name]
		if len(kinds) > 0 {
			match := false
			for _, k := range kinds {
				if d.kind == k {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, Deformer{Name: d.name, Kind: d.kind})
	}
	return out, nil
}

func (m *Memory) CreateSkin(ctx context.Context, name, mesh string, joints []string) (Deformer, error) {
	if m.Exists(name) {
		return Deformer{}, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	n, ok := m.nodes[mesh]
	if !ok {
		return Deformer{}, fmt.Errorf("%w: %s", ErrNotFound, mesh)
	}
	for _, joint := range joints {
		j, ok := m.nodes[joint]
		if !ok || j.nodeType != "joint" {
			return Deformer{}, fmt.Errorf("%w: joint %s", ErrNotFound, joint)
		}
	}
	ctxlog.FromContext(ctx).Debug("Binding skin.", "name", name, "mesh", mesh, "joints", len(joints))
	d := &deformerRec{
		name:     name,
		kind:     KindSkin,
		envelope: 1,
		joints:   append([]string(nil), joints...),
		meshes:   []string{mesh},
		weights:  map[string][]float64{mesh: make([]float64, n.vertices)},
	}
	m.deformers[name] = d
	n.stack = append(n.stack, name)
	return Deformer{Name: name, Kind: KindSkin}, nil
}

func (m *Memory) CreateDeformer(ctx context.Context, name string, kind DeformerKind, mesh, source string) (Deformer, error) {
	if m.Exists(name) {
		return Deformer{}, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	n, ok := m.nodes[mesh]
	if !ok {
		return Deformer{}, fmt.Errorf("%w: %s", ErrNotFound, mesh)
	}
	if source != "" && !m.Exists(source) {
		return Deformer{}, fmt.Errorf("%w: source %s", ErrNotFound, source)
	}
	ctxlog.FromContext(ctx).Debug("Creating deformer.", "name", name, "kind", kind, "mesh", mesh)
	d := &deformerRec{
		name:     name,
		kind:     kind,
		envelope: 1,
		source:   source,
		meshes:   []string{mesh},
		weights:  map[string][]float64{mesh: make([]float64, n.vertices)},
	}
	m.deformers[name] = d
	n.stack = append(n.stack, name)
	return Deformer{Name: name, Kind: kind}, nil
}

func (m *Memory) AttachDeformer(deformer, mesh string) error {
	d, ok := m.deformers[deformer]
	if !ok {
		return fmt.Errorf("%w: deformer %s", ErrNotFound, deformer)
	}
	n, ok := m.nodes[mesh]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, mesh)
	}
	d.meshes = append(d.meshes, mesh)
	d.weights[mesh] = make([]float64, n.vertices)
	n.stack = append(n.stack, deformer)
	return nil
}

func (m *Memory) SetEnvelope(deformer string, envelope float64) error {
	d, ok := m.deformers[deformer]
	if !ok {
		return fmt.Errorf("%w: deformer %s", ErrNotFound, deformer)
	}
	d.envelope = envelope
	return nil
}

func (m *Memory) DeformerWeights(deformer, mesh string) ([]float64, error) {
	d, ok := m.deformers[deformer]
	if !ok {
		return nil, fmt.Errorf("%w: deformer %s", ErrNotFound, deformer)
	}
	w, ok := d.weights[mesh]
	if !ok {
		return nil, fmt.Errorf("%w: %s not deformed by %s", ErrNotFound, mesh, deformer)
	}
	return append([]float64(nil), w...), nil
}

func (m *Memory) SetDeformerWeights(deformer, mesh string, weights []float64) error {
	d, ok := m.deformers[deformer]
	if !ok {
		return fmt.Errorf("%w: deformer %s", ErrNotFound, deformer)
	}
	if _, ok := d.weights[mesh]; !ok {
		return fmt.Errorf("%w: %s not deformed by %s", ErrNotFound, mesh, deformer)
	}
	d.weights[mesh] = append([]float64(nil), weights...)
	return nil
}

func (m *Memory) AddBlendShapeTarget(blendShape, source string) error {
	d, ok := m.deformers[blendShape]
	if !ok || d.kind != KindBlendShape {
		return fmt.Errorf("%w: blendShape %s", ErrNotFound, blendShape)
	}
	if !m.Exists(source) {
		return fmt.Errorf("%w: %s", ErrNotFound, source)
	}
	d.targets = append(d.targets, source)
	return nil
}

// BlendShapeTargets exposes the recorded targets of a blendShape for tests.
func (m *Memory) BlendShapeTargets(blendShape string) []string {
	if d, ok := m.deformers[blendShape]; ok {
		return append([]string(nil), d.targets...)
	}
	return nil
}

// Envelope exposes a deformer's envelope for tests.
func (m *Memory) Envelope(deformer string) (float64, bool) {
	if d, ok := m.deformers[deformer]; ok {
		return d.envelope, true
	}
	return 0, false
}

// SkinJoints exposes a skin deformer's influence list for tests.
func (m *Memory) SkinJoints(deformer string) []string {
	if d, ok := m.deformers[deformer]; ok {
		return append([]string(nil), d.joints...)
	}
	return nil
}

// NormalizeGeometry records the normalization request; the in-memory scene
// has no normals to touch.
func (m *Memory) NormalizeGeometry(mesh string) error {
	if _, ok := m.nodes[mesh]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, mesh)
	}
	m.Normalized = append(m.Normalized, mesh)
	return nil
}

func (m *Memory) Descendants(root string) ([]string, error) {
	n, ok := m.nodes[root]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	var out []string
	var walk func(n *node)
	walk = func(n *node) {
		for _, child := range n.children {
			out = append(out, child)
			walk(m.nodes[child])
		}
	}
	walk(n)
	return out, nil
}

func (m *Memory) ImportTemplate(ctx context.Context, templatePath, label string) error {
	build, ok := m.templates[templatePath]
	if !ok {
		return fmt.Errorf("%w: template %s", ErrNotFound, templatePath)
	}
	ctxlog.FromContext(ctx).Info("Importing template scene.", "path", templatePath, "label", label)
	build(m)
	return nil
}

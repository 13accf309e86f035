// Package wire hooks imported template scenes into the rebuilt rig: it
// applies the declared connection graphs and then folds the template
// hierarchy into the rig hierarchy.
package wire

import (
	"context"
	"sort"
	"strings"

	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/nametmpl"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
)

// Wirer applies connection graphs and hierarchy moves.
type Wirer struct {
	Scene scene.Scene
	Model *config.Model
}

const (
	srcPlug = "outputGeometry"
	dstPlug = "inMesh"
)

// ConnectTemplates applies every declared connection graph pair-wise and
// returns the number of links wired. A pair whose node or mesh is absent is
// collected and the rest of the graph still applies.
func (w *Wirer) ConnectTemplates(ctx context.Context) (int, *report.Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := report.New("connect-templates")
	wired := 0

	names := make([]string, 0, len(w.Model.Connections))
	for name := range w.Model.Connections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		graph := w.Model.Connections[name]
		for _, nodeKey := range graph.PairOrder {
			meshKey := graph.Pairs[nodeKey]
			pairs, err := expandPair(nodeKey, meshKey)
			if err != nil {
				rep.Error(nodeKey, report.ErrConfiguration, "%v", err)
				continue
			}
			for _, p := range pairs {
				if err := w.connectOne(p[0], p[1], rep); err == nil {
					wired++
					log.Debug("wired template link", "graph", name, "node", p[0], "mesh", p[1])
				}
			}
		}
	}
	log.Info("applied connection graphs", "graphs", len(names), "wired", wired)
	return wired, rep, nil
}

func (w *Wirer) connectOne(node, mesh string, rep *report.Report) error {
	if !w.Scene.Exists(node) {
		rep.Error(node, report.ErrNomenclature, "source node not in scene")
		return report.ErrNomenclature
	}
	if !w.Scene.Exists(mesh) {
		rep.Error(mesh, report.ErrNomenclature, "target mesh not in scene")
		return report.ErrNomenclature
	}
	if err := w.Scene.Connect(node+"."+srcPlug, mesh+"."+dstPlug); err != nil {
		rep.Error(node, report.ErrNomenclature, "connecting to %s: %v", mesh, err)
		return err
	}
	rep.Done()
	return nil
}

// expandPair resolves side tokens on both halves of a connection pair. When
// both halves carry the side token they zip L to L and R to R; a token on
// only one half fans that half out against the single other name.
func expandPair(nodeKey, meshKey string) ([][2]string, error) {
	nodes, err := nametmpl.Resolve(nodeKey, nametmpl.Context{})
	if err != nil {
		return nil, err
	}
	meshes, err := nametmpl.Resolve(meshKey, nametmpl.Context{})
	if err != nil {
		return nil, err
	}

	var pairs [][2]string
	switch {
	case len(nodes) == len(meshes):
		for i := range nodes {
			pairs = append(pairs, [2]string{nodes[i], meshes[i]})
		}
	case len(nodes) == 1:
		for _, m := range meshes {
			pairs = append(pairs, [2]string{nodes[0], m})
		}
	default:
		for _, n := range nodes {
			pairs = append(pairs, [2]string{n, meshes[0]})
		}
	}
	return pairs, nil
}

// ReorderHierarchy moves the children of every "*_template" group onto the
// rig group the template name points at, then deletes the emptied template
// groups. The target parent is the template name minus its suffix, with any
// connection-graph key prefix stripped (a template imported for the "bcs"
// graph names its groups "bcs_<group>_template").
func (w *Wirer) ReorderHierarchy(ctx context.Context) (*report.Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := report.New("reorder-hierarchy")

	prefixes := make([]string, 0, len(w.Model.Connections))
	for name := range w.Model.Connections {
		prefixes = append(prefixes, name+"_")
	}
	sort.Strings(prefixes)

	groups := w.Scene.ListByPattern("*_template")

	for _, group := range groups {
		parent := strings.TrimSuffix(group, "_template")
		for _, prefix := range prefixes {
			if strings.HasPrefix(parent, prefix) {
				parent = strings.TrimPrefix(parent, prefix)
				break
			}
		}
		if !w.Scene.Exists(parent) {
			rep.Warn(group, report.ErrNomenclature, "target parent %q not in scene", parent)
			continue
		}

		children, err := w.Scene.Children(group)
		if err != nil {
			rep.Warn(group, report.ErrNomenclature, "listing children: %v", err)
			continue
		}
		for _, child := range children {
			// Nested template groups stay put; their own pass empties them
			// and the delete pass below folds them with the enclosing group.
			if strings.HasSuffix(child, "_template") {
				continue
			}
			if err := w.Scene.SetParent(child, parent); err != nil {
				rep.Warn(child, report.ErrNomenclature, "can not be parented to %q: %v", parent, err)
			}
		}
	}

	for _, group := range groups {
		if !w.Scene.Exists(group) {
			// Already removed with an enclosing template group.
			rep.Done()
			continue
		}
		// Deleting a group that still holds rig content would destroy it,
		// so a partially emptied template group stays in the scene.
		if n := w.stranded(group); n > 0 {
			rep.Warn(group, report.ErrNomenclature, "kept, %d children could not be reparented", n)
			continue
		}
		if err := w.Scene.Delete(group); err != nil {
			rep.Warn(group, report.ErrNomenclature, "deleting template group: %v", err)
			continue
		}
		log.Debug("folded template group", "group", group)
		rep.Done()
	}
	return rep, nil
}

// stranded counts the non-template nodes left in a template group's subtree
// after the reparent pass. Nested template groups are traversed, not counted.
func (w *Wirer) stranded(group string) int {
	children, err := w.Scene.Children(group)
	if err != nil {
		return 0
	}
	n := 0
	for _, child := range children {
		if strings.HasSuffix(child, "_template") {
			n += w.stranded(child)
			continue
		}
		n++
	}
	return n
}

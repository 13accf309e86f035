// Package compose implements the hierarchy composer: it duplicates every
// part's reference geometry into its declared target groups, producing the
// skeleton the deformer stacks and exported data are later applied to, and
// wires the blendshape links between the duplicated groups.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/nametmpl"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
)

// groupComplements maps a group kind to the name token inserted into
// duplicated node names, matching the project nomenclature.
var groupComplements = map[string]string{
	"geometry":    "geo",
	"compilation": "compil",
	"rig":         "rig",
	"blendshape":  "bs",
	"tool":        "tool",
}

// Composer builds the base mesh hierarchy for one model.
type Composer struct {
	Scene scene.Scene
	Model *config.Model
}

// Result records what one run created, keyed by source object then group
// kind, preserving duplication order.
type Result struct {
	// Created maps source object -> group kind -> duplicated root nodes.
	// Order lists the source objects in duplication order; blendshape link
	// wiring follows it so target indices are stable across rebuilds.
	Created map[string]map[string][]string
	Order   []string
}

// Run duplicates every part into its target groups. Problems are collected
// per part: a missing reference geometry is a NomenclatureMismatch, an
// existing duplication target is a ResourceAlreadyExists; either fails that
// part and the run continues with the rest. A second invocation without
// intervening cleanup therefore reports ResourceAlreadyExists rather than
// silently duplicating geometry.
func (c *Composer) Run(ctx context.Context) (*Result, *report.Report, error) {
	logger := ctxlog.FromContext(ctx)
	rep := report.New("setup-base-meshes")
	result := &Result{Created: make(map[string]map[string][]string)}

	for _, key := range c.Model.PartOrder {
		part := c.Model.Parts[key]

		objects, err := nametmpl.Resolve(part.Reference, nametmpl.Context{Name: part.Name})
		if err != nil {
			return nil, nil, report.Fatal("part %q: %v", key, err)
		}

		for _, obj := range objects {
			if !c.Scene.Exists(obj) {
				rep.Error(obj, report.ErrNomenclature,
					"part %q expects reference geometry %q, not found in scene", key, obj)
				continue
			}
			if err := c.composeObject(ctx, part, obj, result, rep); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := c.wireBlendLinks(ctx, result, rep); err != nil {
		return nil, nil, err
	}

	logger.Info("Base mesh setup finished.", "parts", rep.Completed, "issues", len(rep.Issues))
	return result, rep, nil
}

// composeObject duplicates one concrete reference object into every target
// group of its part.
func (c *Composer) composeObject(ctx context.Context, part *config.Part, obj string, result *Result, rep *report.Report) error {
	logger := ctxlog.FromContext(ctx)

	occurrences := make(map[string]int)
	counts := make(map[string]int)
	for _, group := range part.Groups {
		counts[group]++
	}

	created := make(map[string][]string)
	for _, group := range part.Groups {
		groupNode := c.Model.Groups[group]
		occurrences[group]++

		complement := groupComplements[group]
		if counts[group] > 1 {
			complement = fmt.Sprintf("%s%02d", complement, occurrences[group])
		}

		if group == "geometry" {
			// The geometry group keeps the original; it is re-parented and
			// its meshes are normalized rather than duplicated.
			if err := c.Scene.SetParent(obj, groupNode); err != nil {
				return fmt.Errorf("parenting %s under %s: %w", obj, groupNode, err)
			}
			for _, mesh := range c.meshesOf(obj) {
				if err := c.Scene.NormalizeGeometry(mesh); err != nil {
					return fmt.Errorf("normalizing %s: %w", mesh, err)
				}
			}
			created[group] = append(created[group], obj)
			continue
		}

		target := duplicateName(obj, complement)
		if c.Scene.Exists(target) {
			rep.Error(target, report.ErrAlreadyExists,
				"duplication target for part %q already present; clean up before re-running", part.Name)
			continue
		}
		nodes, err := c.Scene.Duplicate(ctx, obj, target, groupNode)
		if err != nil {
			return fmt.Errorf("duplicating %s as %s: %w", obj, target, err)
		}
		logger.Debug("Duplicated part geometry.", "part", part.Name, "group", group, "root", target, "nodes", len(nodes))
		created[group] = append(created[group], target)
	}

	if len(created) == len(counts) {
		rep.Done()
	}
	result.Created[obj] = created
	result.Order = append(result.Order, obj)
	return nil
}

// wireBlendLinks connects duplicated groups pairwise with blendshape
// deformers, per the model's blendshape_link declarations.
func (c *Composer) wireBlendLinks(ctx context.Context, result *Result, rep *report.Report) error {
	for _, obj := range result.Order {
		created := result.Created[obj]
		for _, source := range c.Model.BlendLinkOrder {
			sources, ok := created[source]
			if !ok {
				continue
			}
			for _, targetGroup := range c.Model.BlendLinks[source] {
				targetRoots, ok := created[targetGroup]
				if !ok {
					continue
				}
				for _, sourceRoot := range sources {
					if err := c.linkGroups(ctx, sourceRoot, targetRoots, rep); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// linkGroups pairs the meshes of a source root with the meshes of the target
// roots and drives each target by its source through a blendshape.
func (c *Composer) linkGroups(ctx context.Context, sourceRoot string, targetRoots []string, rep *report.Report) error {
	sourceMeshes := c.meshesOf(sourceRoot)
	var targetMeshes []string
	for _, root := range targetRoots {
		targetMeshes = append(targetMeshes, c.meshesOf(root)...)
	}

	for i, sourceMesh := range sourceMeshes {
		if i >= len(targetMeshes) {
			break
		}
		targetMesh := targetMeshes[i]

		existing, err := c.Scene.ListDeformers(targetMesh, scene.KindBlendShape)
		if err != nil {
			return fmt.Errorf("listing blendshapes on %s: %w", targetMesh, err)
		}
		var blendShape string
		if len(existing) > 0 {
			blendShape = existing[0].Name
		} else {
			d, err := c.Scene.CreateDeformer(ctx, targetMesh+"_blendShape", scene.KindBlendShape, targetMesh, "")
			if err != nil {
				rep.Error(targetMesh, report.ErrAlreadyExists, "creating blendshape: %v", err)
				continue
			}
			blendShape = d.Name
		}
		if err := c.Scene.AddBlendShapeTarget(blendShape, sourceMesh); err != nil {
			return fmt.Errorf("adding %s as target of %s: %w", sourceMesh, blendShape, err)
		}
	}
	return nil
}

// meshesOf lists the meshes a group node carries: its children when it has
// any, otherwise the node itself.
func (c *Composer) meshesOf(node string) []string {
	children, err := c.Scene.Children(node)
	if err != nil || len(children) == 0 {
		return []string{node}
	}
	return children
}

// duplicateName derives a duplication target name: the complement token is
// inserted before the trailing type token, and a "geo" type token becomes
// "mesh".
func duplicateName(obj, complement string) string {
	tokens := strings.Split(obj, "_")
	if last := len(tokens) - 1; tokens[last] == "geo" {
		tokens[last] = "mesh"
	}
	tokens = append(tokens[:len(tokens)-1], complement, tokens[len(tokens)-1])
	return strings.Join(tokens, "_")
}

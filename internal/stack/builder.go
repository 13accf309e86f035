// Package stack implements the deformer stack builder: per mesh, it creates
// the ordered chain of deformers declared in configuration, resolving joints,
// driver sources and placeholder tokens.
//
// Order is everything here. Deformers are stacked in the exact declared
// order; stack position is the evaluation order in the host and the sole key
// later weight import matches on. Entries without parameters were already
// materialized by template import and are not created again, but their live
// handles are still recorded in stack order so positional indexing stays
// valid.
package stack

import (
	"context"
	"fmt"

	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/nametmpl"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
)

// Builder creates all deformer stacks for one model.
type Builder struct {
	Scene scene.Scene
	Model *config.Model
}

// Result is the per-mesh ordered list of created or recorded deformer
// handles. Order preserves mesh build order for deterministic reporting.
type Result struct {
	Order  []string
	Stacks map[string][]scene.Deformer
}

// Run builds every declared stack. An unresolved joint, source mesh or
// placeholder token is fatal for that mesh's stack, since a silent skip
// would shift every subsequent positional index and corrupt weight import.
// The rest of the build continues.
func (b *Builder) Run(ctx context.Context) (*Result, *report.Report, error) {
	logger := ctxlog.FromContext(ctx)
	rep := report.New("create-deformers")
	result := &Result{Stacks: make(map[string][]scene.Deformer)}

	for _, key := range b.Model.StackOrder {
		stackCfg := b.Model.Stacks[key]

		meshes, missing := ConcreteMeshes(b.Scene, b.Model, key)
		for _, name := range missing {
			rep.Error(name, report.ErrNomenclature, "stack %q expects mesh %q, not found in scene", key, name)
		}

		for _, mesh := range meshes {
			handles, err := b.buildStack(ctx, stackCfg, mesh)
			if err != nil {
				rep.Error(mesh, classOf(err), "stack %q: %v", key, err)
				continue
			}
			result.Order = append(result.Order, mesh)
			result.Stacks[mesh] = handles
			rep.Done()
			logger.Debug("Stack built.", "mesh", mesh, "deformers", len(handles))
		}
	}

	return result, rep, nil
}

// buildStack creates one mesh's chain in declared order. Any failure aborts
// the whole stack for this mesh; no partial handle list is ever returned.
func (b *Builder) buildStack(ctx context.Context, stackCfg *config.Stack, mesh string) ([]scene.Deformer, error) {
	tctx := nametmpl.Context{Side: nametmpl.SideOf(mesh), Name: mesh}

	var handles []scene.Deformer
	for _, entry := range stackCfg.Deformers {
		names, err := nametmpl.Resolve(entry.Name, tctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			handle, err := b.buildDeformer(ctx, entry, name, mesh, tctx)
			if err != nil {
				return nil, err
			}
			handles = append(handles, handle)
		}
	}
	return handles, nil
}

// buildDeformer dispatches one resolved deformer over the closed parameter
// union.
func (b *Builder) buildDeformer(ctx context.Context, entry config.DeformerEntry, name, mesh string, tctx nametmpl.Context) (scene.Deformer, error) {
	switch params := entry.Params.(type) {
	case nil:
		// Materialized by template import: record the existing handle in
		// stack order instead of creating a new one.
		if !b.Scene.Exists(name) {
			return scene.Deformer{}, fmt.Errorf("%w: deformer %q expected from template import, not found", report.ErrNomenclature, name)
		}
		if err := b.Scene.AttachDeformer(name, mesh); err != nil {
			return scene.Deformer{}, fmt.Errorf("attaching %q to %s: %w", name, mesh, err)
		}
		return b.lastDeformer(mesh)

	case config.SkinParams:
		if b.Scene.Exists(name) {
			return scene.Deformer{}, fmt.Errorf("%w: skin %q", report.ErrAlreadyExists, name)
		}
		joints, err := b.resolveJoints(params, tctx)
		if err != nil {
			return scene.Deformer{}, err
		}
		handle, err := b.Scene.CreateSkin(ctx, name, mesh, joints)
		if err != nil {
			return scene.Deformer{}, fmt.Errorf("binding %q: %w", name, err)
		}
		if err := b.Scene.SetEnvelope(name, params.Envelope); err != nil {
			return scene.Deformer{}, err
		}
		return handle, nil

	case config.GenericParams:
		if b.Scene.Exists(name) {
			return scene.Deformer{}, fmt.Errorf("%w: deformer %q", report.ErrAlreadyExists, name)
		}
		sources, err := nametmpl.Resolve(params.Source, tctx)
		if err != nil {
			return scene.Deformer{}, err
		}
		source := sources[0]
		if !b.Scene.Exists(source) {
			return scene.Deformer{}, fmt.Errorf("%w: source geometry %q for deformer %q", report.ErrNomenclature, source, name)
		}
		handle, err := b.Scene.CreateDeformer(ctx, name, scene.DeformerKind(params.Kind), mesh, source)
		if err != nil {
			return scene.Deformer{}, fmt.Errorf("creating %q: %w", name, err)
		}
		return handle, nil

	default:
		return scene.Deformer{}, fmt.Errorf("unhandled parameter type %T for deformer %q", params, name)
	}
}

// resolveJoints resolves the joint list, verifying existence and expanding
// each joint to include its descendants when use_hierarchy is set.
func (b *Builder) resolveJoints(params config.SkinParams, tctx nametmpl.Context) ([]string, error) {
	var joints []string
	seen := make(map[string]struct{})

	add := func(name string) {
		if _, dup := seen[name]; !dup {
			joints = append(joints, name)
			seen[name] = struct{}{}
		}
	}

	for _, key := range params.Joints {
		names, err := nametmpl.Resolve(key, tctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if !b.Scene.Exists(name) {
				return nil, fmt.Errorf("%w: joint %q", report.ErrNomenclature, name)
			}
			add(name)
			if params.UseHierarchy {
				descendants, err := b.Scene.Descendants(name)
				if err != nil {
					return nil, err
				}
				for _, d := range descendants {
					add(d)
				}
			}
		}
	}
	return joints, nil
}

// lastDeformer returns the handle that now occupies the tail of the mesh's
// live stack.
func (b *Builder) lastDeformer(mesh string) (scene.Deformer, error) {
	deformers, err := b.Scene.ListDeformers(mesh)
	if err != nil {
		return scene.Deformer{}, err
	}
	if len(deformers) == 0 {
		return scene.Deformer{}, fmt.Errorf("mesh %s has an empty live stack after attach", mesh)
	}
	return deformers[len(deformers)-1], nil
}

package imports

import (
	"context"

	"github.com/lfdn/facerig/internal/artifact"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/stack"
)

// Weights restores exported weight maps onto the rebuilt deformer chains.
// Matching is positional: the map exported at index i is applied to the
// deformer currently at index i, regardless of either side's node names. A
// mesh whose live chain differs from the exported one in length or in kind
// at any index is reported as a stack index mismatch and left untouched.
//
// skip lists stack keys or concrete mesh names to leave alone.
func (im *Importer) Weights(ctx context.Context, skip []string) (*report.Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := report.New("import-weights")

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	for _, key := range im.Model.StackOrder {
		if skipped[key] {
			log.Debug("stack skipped", "key", key)
			continue
		}
		meshes, missing := stack.ConcreteMeshes(im.Scene, im.Model, key)
		for _, m := range missing {
			rep.Error(m, report.ErrNomenclature, "mesh not in scene")
		}

		for _, mesh := range meshes {
			if skipped[mesh] {
				log.Debug("mesh skipped", "mesh", mesh)
				continue
			}
			maps, err := im.Store.ListWeightMaps(mesh)
			if err != nil {
				rep.Error(mesh, report.ErrStackIndex, "reading weight maps: %v", err)
				continue
			}
			if len(maps) == 0 {
				rep.Warn(mesh, report.ErrNomenclature, "no exported weight maps")
				continue
			}
			current, err := stack.WeightStack(im.Scene, mesh)
			if err != nil {
				rep.Error(mesh, report.ErrNomenclature, "listing deformers: %v", err)
				continue
			}
			if !im.chainMatches(mesh, maps, stack.Fingerprint(current), rep) {
				continue
			}
			applied := 0
			for i, w := range maps {
				if err := im.Scene.SetDeformerWeights(current[i].Name, mesh, w.Weights); err != nil {
					rep.Error(mesh, report.ErrNomenclature, "applying index %d to %s: %v", i, current[i].Name, err)
					continue
				}
				applied++
			}
			log.Info("restored mesh weights", "mesh", mesh, "deformers", applied)
			rep.Done()
		}
	}
	return rep, nil
}

// chainMatches compares the exported maps against the live chain's
// fingerprint. Any disagreement is collected as one StackIndexMismatch for
// the mesh and the whole mesh is vetoed.
func (im *Importer) chainMatches(mesh string, maps []artifact.WeightMap, kinds []string, rep *report.Report) bool {
	if len(maps) != len(kinds) {
		rep.Error(mesh, report.ErrStackIndex, "exported %d deformers, scene has %d, no weights applied", len(maps), len(kinds))
		return false
	}
	for i, w := range maps {
		if w.Kind != kinds[i] {
			rep.Error(mesh, report.ErrStackIndex, "index %d: exported kind %q, scene has %q, no weights applied", i, w.Kind, kinds[i])
			return false
		}
	}
	return true
}

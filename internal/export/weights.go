package export

import (
	"context"

	"github.com/lfdn/facerig/internal/artifact"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/stack"
)

// WeightOptions controls weight export behavior.
type WeightOptions struct {
	// SkipMissing demotes a declared mesh that is absent from the scene to a
	// warning instead of a collected error.
	SkipMissing bool
}

// Weights writes one weight map per (mesh, stack index) for every declared
// stack mesh. The index is the deformer's 0-based position in the live chain
// as enumerated by stack.WeightStack; import compares against the same
// enumeration.
func (e *Exporter) Weights(ctx context.Context, opts WeightOptions) (*report.Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := report.New("export-weights")
	e.normalize(ctx, rep)

	for _, key := range e.Model.StackOrder {
		meshes, missing := stack.ConcreteMeshes(e.Scene, e.Model, key)
		for _, m := range missing {
			if opts.SkipMissing {
				rep.Warn(m, report.ErrNomenclature, "mesh not in scene, skipped")
				continue
			}
			rep.Error(m, report.ErrNomenclature, "mesh not in scene")
		}

		for _, mesh := range meshes {
			deformers, err := stack.WeightStack(e.Scene, mesh)
			if err != nil {
				rep.Error(mesh, report.ErrNomenclature, "listing deformers: %v", err)
				continue
			}
			exported := 0
			for i, d := range deformers {
				weights, err := e.Scene.DeformerWeights(d.Name, mesh)
				if err != nil {
					rep.Error(mesh, report.ErrNomenclature, "reading weights of %s: %v", d.Name, err)
					continue
				}
				w := artifact.WeightMap{
					Mesh:     mesh,
					Index:    i,
					Kind:     string(d.Kind),
					Deformer: d.Name,
					Weights:  weights,
				}
				if err := e.Store.WriteWeightMap(w); err != nil {
					return rep, report.Fatal("writing %s: %v", w.FileName(), err)
				}
				exported++
			}
			log.Info("exported mesh weights", "mesh", mesh, "deformers", exported)
			rep.Done()
		}
	}
	return rep, nil
}

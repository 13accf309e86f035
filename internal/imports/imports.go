// Package imports restores exported snapshots into a rebuilt scene and
// merges template scene files.
//
// Attribute and CV restoration match entities by exact name; anything the
// rebuilt scene does not carry is a per-entity warning, never a stop. Weight
// restoration is stricter: a mesh whose live chain disagrees with the
// exported one in count or kind at any index gets no weights at all.
package imports

import (
	"context"

	"github.com/lfdn/facerig/internal/artifact"
	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
)

// Importer restores artifacts into the scene.
type Importer struct {
	Scene scene.Scene
	Model *config.Model
	Store *artifact.Store
}

// Templates merges every declared template scene file into the scene, in
// declaration order.
func (im *Importer) Templates(ctx context.Context) (*report.Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := report.New("import-templates")
	for _, t := range im.Model.Templates {
		if err := im.Scene.ImportTemplate(ctx, t.Path, t.Label); err != nil {
			rep.Error(t.Label, report.ErrConfiguration, "importing %s: %v", t.Path, err)
			continue
		}
		log.Info("imported template scene", "label", t.Label, "path", t.Path)
		rep.Done()
	}
	return rep, nil
}

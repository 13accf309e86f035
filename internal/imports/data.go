package imports

import (
	"context"
	"sort"

	"github.com/lfdn/facerig/internal/artifact"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/report"
)

// DataOptions toggles the three snapshot families independently.
type DataOptions struct {
	Controllers bool
	Transforms  bool
	CVs         bool
}

// AllData selects every snapshot family.
var AllData = DataOptions{Controllers: true, Transforms: true, CVs: true}

// Data restores controller attrs, transform attrs and controller CVs from
// the artifact store. Locked attributes are unlocked for the write and
// relocked afterwards.
func (im *Importer) Data(ctx context.Context, opts DataOptions) (*report.Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := report.New("import-data")

	if opts.Controllers {
		data, err := im.Store.ReadControllers()
		if err != nil {
			return rep, report.Fatal("reading controller data: %v", err)
		}
		im.restoreAttrs(data, rep)
		log.Info("restored controller attrs", "controllers", len(data))
	}

	if opts.Transforms {
		data, err := im.Store.ReadTransforms()
		if err != nil {
			return rep, report.Fatal("reading transform data: %v", err)
		}
		im.restoreAttrs(data, rep)
		log.Info("restored transform attrs", "nodes", len(data))
	}

	if opts.CVs {
		data, err := im.Store.ReadCVs()
		if err != nil {
			return rep, report.Fatal("reading cv data: %v", err)
		}
		for _, node := range sortedKeys(data) {
			saved := data[node]
			if !im.Scene.Exists(node) {
				rep.Warn(node, report.ErrNomenclature, "not in scene, cvs skipped")
				continue
			}
			current, err := im.Scene.ControlPoints(node)
			if err != nil {
				rep.Warn(node, report.ErrNomenclature, "reading current cvs: %v", err)
				continue
			}
			if len(current) != len(saved) {
				rep.Warn(node, report.ErrStackIndex, "cv count changed: saved %d, scene has %d", len(saved), len(current))
				continue
			}
			if err := im.Scene.SetControlPoints(node, saved); err != nil {
				rep.Warn(node, report.ErrNomenclature, "writing cvs: %v", err)
				continue
			}
			rep.Done()
		}
		log.Info("restored controller cvs", "controllers", len(data))
	}

	return rep, nil
}

func (im *Importer) restoreAttrs(data map[string]artifact.AttrSnapshot, rep *report.Report) {
	for _, node := range sortedKeys(data) {
		if !im.Scene.Exists(node) {
			rep.Warn(node, report.ErrNomenclature, "not in scene, attrs skipped")
			continue
		}
		snap := data[node]
		for _, attr := range sortedKeys(snap) {
			if err := im.setAttr(node, attr, snap[attr]); err != nil {
				rep.Warn(node, report.ErrNomenclature, "restoring %s.%s: %v", node, attr, err)
			}
		}
		rep.Done()
	}
}

func (im *Importer) setAttr(node, attr string, value any) error {
	a, err := im.Scene.GetAttr(node, attr)
	if err != nil {
		return err
	}
	if !a.Locked {
		return im.Scene.SetAttr(node, attr, value)
	}
	if err := im.Scene.SetAttrLocked(node, attr, false); err != nil {
		return err
	}
	if err := im.Scene.SetAttr(node, attr, value); err != nil {
		return err
	}
	return im.Scene.SetAttrLocked(node, attr, true)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

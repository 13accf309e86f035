package export

import (
	"context"
	"strings"

	"github.com/google/uuid"

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

// Data snapshots controller attributes, transform and constraint attributes,
// and controller curve CVs into the artifact store.
func (e *Exporter) Data(ctx context.Context, opts DataOptions) (*report.Report, error) {
	log := ctxlog.FromContext(ctx)
	rep := report.New("export-data")
	e.normalize(ctx, rep)

	ctrls := e.Scene.ListByPattern("*_ctrl")

	if opts.Controllers {
		data := artifact.ControllerData{}
		for _, ctrl := range ctrls {
			attrs, err := e.Scene.UserAttrs(ctrl)
			if err != nil {
				rep.Warn(ctrl, report.ErrNomenclature, "reading user attrs: %v", err)
				continue
			}
			snap := artifact.AttrSnapshot{}
			for _, attr := range attrs {
				// Hosts tag nodes with generated identifier attrs; those are
				// per-session and must not survive a rebuild.
				if uuid.Validate(attr) == nil {
					continue
				}
				a, err := e.Scene.GetAttr(ctrl, attr)
				if err != nil {
					rep.Warn(ctrl, report.ErrNomenclature, "reading %s.%s: %v", ctrl, attr, err)
					continue
				}
				snap[attr] = a.Value
			}
			if len(snap) == 0 {
				continue
			}
			data[ctrl] = snap
			rep.Done()
		}
		if err := e.Store.WriteControllers(data); err != nil {
			return rep, report.Fatal("writing controller data: %v", err)
		}
		log.Info("exported controller attrs", "controllers", len(data))
	}

	if opts.Transforms {
		data := artifact.TransformData{}
		for _, node := range e.Scene.ListByPattern("*") {
			if strings.HasSuffix(node, "_ctrl") {
				continue
			}
			nt, err := e.Scene.NodeType(node)
			if err != nil || (nt != "transform" && !strings.HasSuffix(nt, "Constraint")) {
				continue
			}
			attrs, err := e.Scene.KeyableAttrs(node)
			if err != nil || len(attrs) == 0 {
				continue
			}
			snap := artifact.AttrSnapshot{}
			for _, attr := range attrs {
				a, err := e.Scene.GetAttr(node, attr)
				if err != nil {
					continue
				}
				snap[attr] = a.Value
			}
			data[node] = snap
			rep.Done()
		}
		if err := e.Store.WriteTransforms(data); err != nil {
			return rep, report.Fatal("writing transform data: %v", err)
		}
		log.Info("exported transform attrs", "nodes", len(data))
	}

	if opts.CVs {
		data := artifact.CVData{}
		for _, ctrl := range ctrls {
			pts, err := e.Scene.ControlPoints(ctrl)
			if err != nil || len(pts) == 0 {
				log.Debug("controller has no curve shape, skipped", "node", ctrl)
				continue
			}
			data[ctrl] = pts
			rep.Done()
		}
		if err := e.Store.WriteCVs(data); err != nil {
			return rep, report.Fatal("writing cv data: %v", err)
		}
		log.Info("exported controller cvs", "controllers", len(data))
	}

	return rep, nil
}

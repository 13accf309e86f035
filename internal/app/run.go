package app

import (
	"context"
	"fmt"

	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/export"
	"github.com/lfdn/facerig/internal/imports"
	"github.com/lfdn/facerig/internal/report"
)

// Step names accepted by Run, in the order a full rebuild executes them.
const (
	StepExportData       = "export-data"
	StepExportWeights    = "export-weights"
	StepSetupBaseMeshes  = "setup-base-meshes"
	StepImportTemplates  = "import-templates"
	StepImportData       = "import-data"
	StepCreateDeformers  = "create-deformers"
	StepConnectTemplates = "connect-templates"
	StepReorderHierarchy = "reorder-hierarchy"
	StepImportWeights    = "import-weights"
)

// StepNames lists every runnable step in rebuild order.
var StepNames = []string{
	StepExportData,
	StepExportWeights,
	StepSetupBaseMeshes,
	StepImportTemplates,
	StepImportData,
	StepCreateDeformers,
	StepConnectTemplates,
	StepReorderHierarchy,
	StepImportWeights,
}

// Run executes one named pipeline step against the scene and prints its
// batch report. A fatal error aborts the step; collected per-entity errors
// let the step finish and surface through the returned error afterwards.
func (a *App) Run(ctx context.Context, step string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("running step", "step", step)

	rep, err := a.RunStep(ctx, step)
	if rep != nil {
		fmt.Fprintln(a.outW, rep.Summary())
	}
	if err != nil {
		return err
	}
	if n := len(rep.Errors()); n > 0 {
		return fmt.Errorf("step %s finished with %d collected errors", step, n)
	}
	a.logger.Info("step finished", "step", step, "completed", rep.Completed)
	return nil
}

// RunStep dispatches one step by name and returns its report. Unknown step
// names are a configuration error.
func (a *App) RunStep(ctx context.Context, step string) (*report.Report, error) {
	switch step {
	case StepExportData:
		return a.exporter().Data(ctx, export.AllData)
	case StepExportWeights:
		return a.exporter().Weights(ctx, export.WeightOptions{SkipMissing: a.cfg.SkipMissing})
	case StepSetupBaseMeshes:
		_, rep, err := a.composer().Run(ctx)
		return rep, err
	case StepImportTemplates:
		return a.importer().Templates(ctx)
	case StepImportData:
		return a.importer().Data(ctx, imports.AllData)
	case StepCreateDeformers:
		_, rep, err := a.builder().Run(ctx)
		return rep, err
	case StepConnectTemplates:
		_, rep, err := a.wirer().ConnectTemplates(ctx)
		return rep, err
	case StepReorderHierarchy:
		return a.wirer().ReorderHierarchy(ctx)
	case StepImportWeights:
		return a.importer().Weights(ctx, a.cfg.SkipMeshes)
	default:
		return nil, report.Fatal("unknown step %q", step)
	}
}

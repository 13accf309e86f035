package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lfdn/facerig/internal/artifact"
	"github.com/lfdn/facerig/internal/compose"
	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/export"
	"github.com/lfdn/facerig/internal/imports"
	"github.com/lfdn/facerig/internal/scene"
	"github.com/lfdn/facerig/internal/stack"
	"github.com/lfdn/facerig/internal/wire"
)

// Config holds everything an App instance needs to run one pipeline step.
type Config struct {
	// ConfigPath is an .hcl file or a directory of .hcl files describing the
	// rig. Reloaded on every invocation.
	ConfigPath string

	// DataDir overrides the artifact directory derived from the project
	// block when non-empty.
	DataDir string

	LogFormat string
	LogLevel  string

	// SkipMissing demotes absent meshes to warnings during weight export.
	SkipMissing bool

	// SkipMeshes lists stack keys or concrete meshes to leave untouched
	// during weight import.
	SkipMeshes []string
}

// App encapsulates the pipeline's dependencies and lifecycle for one
// invocation.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *Config
	model  *config.Model
	scene  scene.Scene
	store  *artifact.Store
}

// NewApp is the constructor for the pipeline application. The configuration
// is loaded and validated eagerly; a failure there is a fatal startup error
// and panics, the entrypoint recovers and reports it.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, sc scene.Scene) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	model, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	if err := model.Validate(); err != nil {
		panic(err)
	}
	logger.Debug("configuration loaded and validated",
		"parts", len(model.Parts), "stacks", len(model.Stacks))

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = model.Project.DataDir()
	}
	store, err := artifact.NewStore(dataDir)
	if err != nil {
		panic(fmt.Errorf("failed to open artifact store: %w", err))
	}
	logger.Debug("artifact store ready", "dir", store.Dir())

	return &App{
		outW:   outW,
		logger: logger,
		cfg:    cfg,
		model:  model,
		scene:  sc,
		store:  store,
	}
}

// Model returns the validated configuration model. Primarily for testing.
func (a *App) Model() *config.Model { return a.model }

// Store returns the artifact store. Primarily for testing.
func (a *App) Store() *artifact.Store { return a.store }

func (a *App) exporter() *export.Exporter {
	return &export.Exporter{Scene: a.scene, Model: a.model, Store: a.store}
}

func (a *App) importer() *imports.Importer {
	return &imports.Importer{Scene: a.scene, Model: a.model, Store: a.store}
}

func (a *App) composer() *compose.Composer {
	return &compose.Composer{Scene: a.scene, Model: a.model}
}

func (a *App) builder() *stack.Builder {
	return &stack.Builder{Scene: a.scene, Model: a.model}
}

func (a *App) wirer() *wire.Wirer {
	return &wire.Wirer{Scene: a.scene, Model: a.model}
}

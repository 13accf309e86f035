// Package testutil provides the shared harness for pipeline tests: it
// materializes HCL configuration into a temp dir, builds an in-memory scene
// and runs pipeline steps against an isolated App instance.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lfdn/facerig/internal/app"
	"github.com/lfdn/facerig/internal/hcladapter"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness holds one test's isolated pipeline environment.
type Harness struct {
	App       *app.App
	Scene     *scene.Memory
	DataDir   string
	LogBuffer *SafeBuffer

	// StartupErr carries a recovered startup panic; the App is nil then.
	StartupErr error
}

// NewHarness writes the given HCL files (relative path -> content) into a
// temp dir, builds a Memory scene via seed, and constructs an App over both.
// The artifact store is pointed at a second temp dir so project-block paths
// in the config never leak onto the real filesystem.
func NewHarness(t *testing.T, files map[string]string, seed func(sc *scene.Memory)) *Harness {
	t.Helper()

	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "config")
	dataDir := filepath.Join(tmpDir, "data")
	require.NoError(t, os.Mkdir(configDir, 0755))

	for name, content := range files {
		filePath := filepath.Join(configDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	sc := scene.NewMemory()
	if seed != nil {
		seed(sc)
	}

	appConfig := &app.Config{
		ConfigPath: configDir,
		DataDir:    dataDir,
		LogLevel:   "debug",
		LogFormat:  "text",
	}

	h := &Harness{Scene: sc, DataDir: dataDir, LogBuffer: &SafeBuffer{}}

	func() {
		defer func() {
			if r := recover(); r != nil {
				h.StartupErr = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		h.App = app.NewApp(h.LogBuffer, appConfig, hcladapter.NewLoader(), sc)
	}()

	if os.Getenv("FACERIG_TEST_LOGS") == "true" && h.App != nil {
		t.Cleanup(func() {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), h.LogBuffer.String())
		})
	}
	return h
}

// RunStep runs one named pipeline step and requires it to dispatch without a
// fatal error. Collected per-entity issues are returned on the report for
// the test to assert on.
func (h *Harness) RunStep(t *testing.T, step string) *report.Report {
	t.Helper()
	require.NoError(t, h.StartupErr)
	rep, err := h.App.RunStep(context.Background(), step)
	require.NoError(t, err)
	require.NotNil(t, rep)
	return rep
}

// MustRunClean runs a step and requires a report with no collected errors.
func (h *Harness) MustRunClean(t *testing.T, step string) *report.Report {
	t.Helper()
	rep := h.RunStep(t, step)
	require.Empty(t, rep.Errors(), "step %s collected errors: %v", step, rep.Errors())
	return rep
}

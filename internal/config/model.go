// Package config holds the declarative description of a facial rig: the
// modeling hierarchy, the per-mesh deformer stacks, the template-scene table
// and the post-merge connection graphs. The model is format agnostic; the
// hcladapter package loads it from HCL files.
package config

import (
	"context"
	"path/filepath"
)

// GroupKinds is the fixed enumeration of duplication target groups.
var GroupKinds = []string{"geometry", "compilation", "rig", "blendshape", "tool"}

// Model is the unified representation of one project's rig configuration.
// It has process-wide lifetime for the duration of a build session and is
// mutated only through explicit Remove* operations.
type Model struct {
	Project Project

	// Groups maps a group kind to the scene node that hosts it.
	Groups map[string]string

	// Parts maps part key to its modeling hierarchy entry. PartOrder
	// preserves declaration order so builds are deterministic.
	Parts     map[string]*Part
	PartOrder []string

	// Stacks maps mesh key (possibly tokenised) to its deformer stack.
	Stacks     map[string]*Stack
	StackOrder []string

	// BlendLinks maps a source group kind to the target group kinds whose
	// duplicated meshes are blendshape-driven by it. BlendLinkOrder
	// preserves declaration order so target indices on a shared blendshape
	// are stable across rebuilds.
	BlendLinks     map[string][]string
	BlendLinkOrder []string

	// SuffixRules maps a deformer name suffix to the deformer kind it
	// denotes, driving the rename normalization pass.
	SuffixRules map[string]string

	// Templates is the ordered template-scene table.
	Templates []Template

	// Connections maps a connection graph name (e.g. "bcs") to its graph.
	Connections map[string]*Connection
}

// Project selects the active character and the artifact directory.
type Project struct {
	Asset            string
	ProjectDirectory string
	SubFolders       []string
}

// DataDir returns the per-asset artifact directory.
func (p Project) DataDir() string {
	parts := append([]string{p.ProjectDirectory, p.Asset}, p.SubFolders...)
	return filepath.Join(parts...)
}

// Part is one logical facial part: the authoritative source mesh and the
// groups it is duplicated into.
type Part struct {
	Name      string
	Reference string

	// Groups is the ordered list of target group kinds. A kind may repeat;
	// repeats receive indexed suffixes on duplication.
	Groups []string

	// Aliases maps an expected node name to the name it may carry in the
	// live scene instead.
	Aliases map[string]string
}

// Stack is the ordered deformer chain for one named mesh. Order is the stack
// application order and the sole basis for positional weight matching.
type Stack struct {
	Mesh      string
	Deformers []DeformerEntry
}

// DeformerEntry is one (name, parameters) pair of a stack. Params is nil for
// deformers materialized by template import, which are still counted for
// positional indexing.
type DeformerEntry struct {
	Name   string
	Params Params
}

// Params is the closed parameter union for a deformer entry.
type Params interface{ isParams() }

// SkinParams binds a mesh to a joint set.
type SkinParams struct {
	Joints       []string
	UseHierarchy bool
	Envelope     float64
}

// GenericParams creates a deformer of the given kind driven by a source
// geometry.
type GenericParams struct {
	Kind   string
	Source string
}

func (SkinParams) isParams()    {}
func (GenericParams) isParams() {}

// Template is one prebuilt scene fragment merged in during the build.
type Template struct {
	Label string
	Path  string
}

// Connection is a named transfer-node to target-mesh graph applied after
// template merge.
type Connection struct {
	Name      string
	Pairs     map[string]string
	PairOrder []string
}

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// model and validates it structurally.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

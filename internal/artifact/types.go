// Package artifact defines the exported data contract between a published
// rig and every later rebuild: name-keyed snapshots for transforms, control
// points and controller attributes, and per (mesh, stack index) deformer
// weight maps. Artifacts are immutable inputs to a rebuild until the next
// publish.
package artifact

import "fmt"

// Names of the per-category snapshot files inside an asset data directory.
const (
	ControllersFile = "controllers_data.json"
	TransformsFile  = "transforms_data.json"
	CVsFile         = "cvs_data.json"
)

// AttrSnapshot is a name-keyed map of attribute values for one node.
type AttrSnapshot map[string]any

// ControllerData maps controller name to its user-defined attributes.
type ControllerData map[string]AttrSnapshot

// TransformData maps transform or constraint name to its keyable attributes.
type TransformData map[string]AttrSnapshot

// CVData maps controller name to the ordered world-space positions of its
// curve control points.
type CVData map[string][][3]float64

// WeightMap is the per-vertex weight array of one deformer, keyed by mesh
// name and by position in the mesh's stack. Index and Kind are explicit
// fields: deformer identity is not preserved across a rebuild, so position
// plus structural kind is the whole matching contract.
type WeightMap struct {
	Mesh     string    `json:"mesh"`
	Index    int       `json:"index"`
	Kind     string    `json:"kind"`
	Deformer string    `json:"deformer"`
	Weights  []float64 `json:"weights"`
}

// FileName returns the canonical artifact file name for the weight map.
func (w WeightMap) FileName() string {
	return WeightFileName(w.Mesh, w.Index)
}

// WeightFileName builds the canonical weight-map file name for a mesh and a
// stack index.
func WeightFileName(mesh string, index int) string {
	return fmt.Sprintf("%s_deformer_%02d.json", mesh, index)
}

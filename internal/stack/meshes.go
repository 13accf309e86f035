package stack

import (
	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/nametmpl"
	"github.com/lfdn/facerig/internal/scene"
)

// ConcreteMeshes resolves a (possibly tokenised) stack mesh key against the
// live scene: side tokens are expanded, part aliases are honoured, and a key
// naming a group node yields the group's child meshes. The second return
// value lists the concrete names that are absent from the scene.
func ConcreteMeshes(sc scene.Scene, model *config.Model, meshKey string) (meshes, missing []string) {
	nodes, err := nametmpl.Resolve(meshKey, nametmpl.Context{})
	if err != nil {
		return nil, []string{meshKey}
	}

	part, _ := model.PartForMesh(meshKey)

	for _, node := range nodes {
		name := node
		if !sc.Exists(name) && part != nil {
			if alias, ok := part.Aliases[name]; ok && sc.Exists(alias) {
				name = alias
			}
		}
		if !sc.Exists(name) {
			missing = append(missing, name)
			continue
		}

		children, err := sc.Children(name)
		if err != nil || len(children) == 0 {
			meshes = append(meshes, name)
			continue
		}
		meshes = append(meshes, children...)
	}
	return meshes, missing
}

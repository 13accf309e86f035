package stack

import "github.com/lfdn/facerig/internal/scene"

// WeightStack enumerates a mesh's live deformer chain in application order,
// restricted to the weight-bearing kinds. Export and import both enumerate
// through this function: the 0-based position in the returned slice is the
// index the weight artifacts are keyed by, so the procedure must be
// byte-identical on both sides of a rebuild.
//
// BlendShapes are excluded: their weights are authored, never reconstructed,
// and including them would shift the positional contract.
func WeightStack(sc scene.Scene, mesh string) ([]scene.Deformer, error) {
	return sc.ListDeformers(mesh,
		scene.KindSkin,
		scene.KindCluster,
		scene.KindLattice,
		scene.KindWire,
		scene.KindWrap,
		scene.KindShrinkWrap,
		scene.KindBend,
	)
}

// Fingerprint returns the ordered kind sequence of a deformer chain, the
// lightweight structural signature compared before any weight map is
// applied.
func Fingerprint(deformers []scene.Deformer) []string {
	kinds := make([]string, len(deformers))
	for i, d := range deformers {
		kinds[i] = string(d.Kind)
	}
	return kinds
}

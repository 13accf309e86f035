// Package export snapshots the authored scene into the artifact store.
//
// Both exporters run the rename normalization pass first, so the names
// written into the artifacts are the expected nomenclature rather than
// whatever the scene happens to carry after manual authoring.
package export

import (
	"context"
	"sort"
	"strings"

	"github.com/lfdn/facerig/internal/artifact"
	"github.com/lfdn/facerig/internal/config"
	"github.com/lfdn/facerig/internal/ctxlog"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
	"github.com/lfdn/facerig/internal/stack"
)

// Exporter reads the live scene and writes snapshot artifacts.
type Exporter struct {
	Scene scene.Scene
	Model *config.Model
	Store *artifact.Store
}

// normalize applies the pre-export rename pass: part aliases first, then
// suffix rules over every declared stack mesh. Rename collisions are
// collected as warnings; the existing node wins.
func (e *Exporter) normalize(ctx context.Context, rep *report.Report) {
	log := ctxlog.FromContext(ctx)

	for _, partName := range e.Model.PartOrder {
		part := e.Model.Parts[partName]
		expected := make([]string, 0, len(part.Aliases))
		for name := range part.Aliases {
			expected = append(expected, name)
		}
		sort.Strings(expected)
		for _, want := range expected {
			live := part.Aliases[want]
			if e.Scene.Exists(want) || !e.Scene.Exists(live) {
				continue
			}
			if err := e.Scene.Rename(live, want); err != nil {
				rep.Warn(live, report.ErrNomenclature, "alias rename to %q: %v", want, err)
				continue
			}
			log.Debug("renamed aliased node", "from", live, "to", want)
		}
	}

	for _, key := range e.Model.StackOrder {
		meshes, _ := stack.ConcreteMeshes(e.Scene, e.Model, key)
		for _, mesh := range meshes {
			deformers, err := stack.WeightStack(e.Scene, mesh)
			if err != nil {
				continue
			}
			for _, d := range deformers {
				want, ok := suffixForKind(e.Model.SuffixRules, d.Kind)
				if !ok {
					continue
				}
				renamed := withSuffix(d.Name, want, e.Model.SuffixRules)
				if renamed == d.Name {
					continue
				}
				if e.Scene.Exists(renamed) {
					rep.Warn(d.Name, report.ErrAlreadyExists, "suffix rename to %q: name taken", renamed)
					continue
				}
				if err := e.Scene.Rename(d.Name, renamed); err != nil {
					rep.Warn(d.Name, report.ErrNomenclature, "suffix rename to %q: %v", renamed, err)
					continue
				}
				log.Debug("renamed deformer suffix", "from", d.Name, "to", renamed)
			}
		}
	}
}

// suffixForKind inverts the suffix-rule table for one kind.
func suffixForKind(rules map[string]string, kind scene.DeformerKind) (string, bool) {
	suffixes := make([]string, 0, len(rules))
	for s := range rules {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)
	for _, s := range suffixes {
		if rules[s] == string(kind) {
			return s, true
		}
	}
	return "", false
}

// withSuffix rewrites the last underscore token of name to want. A last token
// that is a known suffix (possibly with a trailing copy number, as hosts
// append on creation) is replaced; anything else keeps its meaning and the
// suffix is appended as a new token.
func withSuffix(name, want string, rules map[string]string) string {
	tokens := strings.Split(name, "_")
	last := tokens[len(tokens)-1]
	if last == want {
		return name
	}
	base := strings.TrimRight(last, "0123456789")
	if _, known := rules[base]; known {
		tokens[len(tokens)-1] = want
	} else {
		tokens = append(tokens, want)
	}
	return strings.Join(tokens, "_")
}

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lfdn/facerig/internal/nametmpl"
	"github.com/lfdn/facerig/internal/report"
	"github.com/lfdn/facerig/internal/scene"
)

var validDeformerKinds = map[string]struct{}{
	string(scene.KindSkin):       {},
	string(scene.KindCluster):    {},
	string(scene.KindLattice):    {},
	string(scene.KindBlendShape): {},
	string(scene.KindWire):       {},
	string(scene.KindWrap):       {},
	string(scene.KindShrinkWrap): {},
	string(scene.KindBend):       {},
}

// Validate performs the structural integrity check of the whole model. All
// problems are collected and returned as one ConfigurationError so the
// operator can fix a configuration in a single pass. A model that fails
// validation must never reach a scene-mutating step.
func (m *Model) Validate() error {
	var errs []string

	if m.Project.Asset == "" {
		errs = append(errs, "project: asset is required")
	}
	if m.Project.ProjectDirectory == "" {
		errs = append(errs, "project: project_directory is required")
	}

	knownKinds := make(map[string]struct{}, len(GroupKinds))
	for _, kind := range GroupKinds {
		knownKinds[kind] = struct{}{}
	}
	for _, kind := range sortedKeys(m.Groups) {
		if _, ok := knownKinds[kind]; !ok {
			errs = append(errs, fmt.Sprintf("group %q: not one of %s", kind, strings.Join(GroupKinds, ", ")))
		}
	}

	for _, key := range m.PartOrder {
		part := m.Parts[key]
		if part.Reference == "" {
			errs = append(errs, fmt.Sprintf("part %q: reference geometry is required", key))
		} else if err := nametmpl.ValidateTokens(part.Reference); err != nil {
			errs = append(errs, fmt.Sprintf("part %q: %v", key, err))
		}
		if len(part.Groups) == 0 {
			errs = append(errs, fmt.Sprintf("part %q: at least one target group is required", key))
		}
		for _, group := range part.Groups {
			if _, ok := knownKinds[group]; !ok {
				errs = append(errs, fmt.Sprintf("part %q: unknown group kind %q", key, group))
				continue
			}
			if _, ok := m.Groups[group]; !ok {
				errs = append(errs, fmt.Sprintf("part %q: group kind %q has no group block declaring its scene node", key, group))
			}
		}
	}

	for _, key := range m.StackOrder {
		stack := m.Stacks[key]
		if err := nametmpl.ValidateTokens(key); err != nil {
			errs = append(errs, fmt.Sprintf("stack %q: %v", key, err))
		}
		// Mesh keys resolve without an owning name or side in scope, so
		// only the {} expansion token (and {side} inside it) can ever
		// substitute. Anything else would surface as a runtime miss.
		if strings.Contains(key, "{name}") {
			errs = append(errs, fmt.Sprintf("stack %q: {name} can not be used in a mesh key", key))
		}
		if strings.Contains(key, "{side}") && !nametmpl.HasSideToken(key) {
			errs = append(errs, fmt.Sprintf("stack %q: {side} in a mesh key needs the {} expansion token", key))
		}
		if _, ok := m.PartForMesh(key); !ok {
			errs = append(errs, fmt.Sprintf("stack %q: no part matches this mesh key", key))
		}
		if len(stack.Deformers) == 0 {
			errs = append(errs, fmt.Sprintf("stack %q: empty deformer list", key))
		}
		for i, entry := range stack.Deformers {
			if err := nametmpl.ValidateTokens(entry.Name); err != nil {
				errs = append(errs, fmt.Sprintf("stack %q deformer %d: %v", key, i, err))
				continue
			}
			switch params := entry.Params.(type) {
			case nil:
				// Materialized by template import; nothing to check.
			case SkinParams:
				if len(params.Joints) == 0 {
					errs = append(errs, fmt.Sprintf("stack %q deformer %q: skin binding requires at least one joint", key, entry.Name))
				}
				if params.Envelope < 0 || params.Envelope > 1 {
					errs = append(errs, fmt.Sprintf("stack %q deformer %q: envelope %v outside [0, 1]", key, entry.Name, params.Envelope))
				}
			case GenericParams:
				if _, ok := validDeformerKinds[params.Kind]; !ok {
					errs = append(errs, fmt.Sprintf("stack %q deformer %q: unknown deformer kind %q", key, entry.Name, params.Kind))
				}
				if params.Source == "" {
					errs = append(errs, fmt.Sprintf("stack %q deformer %q: generic deformer requires a source geometry", key, entry.Name))
				}
			}
		}
	}

	for _, suffix := range sortedKeys(m.SuffixRules) {
		if _, ok := validDeformerKinds[m.SuffixRules[suffix]]; !ok {
			errs = append(errs, fmt.Sprintf("suffix_rule %q: unknown deformer kind %q", suffix, m.SuffixRules[suffix]))
		}
	}

	for _, source := range sortedKeys(m.BlendLinks) {
		if _, ok := knownKinds[source]; !ok {
			errs = append(errs, fmt.Sprintf("blendshape_link %q: unknown group kind", source))
		}
		for _, target := range m.BlendLinks[source] {
			if _, ok := knownKinds[target]; !ok {
				errs = append(errs, fmt.Sprintf("blendshape_link %q: unknown target group kind %q", source, target))
			}
		}
	}

	for i, tmpl := range m.Templates {
		if tmpl.Path == "" {
			errs = append(errs, fmt.Sprintf("template %q (#%d): path is required", tmpl.Label, i))
		}
	}

	if len(errs) > 0 {
		return report.Fatal("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// PartForMesh resolves a stack mesh key to the part that owns it. A mesh key
// matches a part when the part name appears as an underscore token of the
// key, or the key equals the part's reference geometry.
func (m *Model) PartForMesh(meshKey string) (*Part, bool) {
	tokens := strings.Split(meshKey, "_")
	for _, key := range m.PartOrder {
		part := m.Parts[key]
		if meshKey == part.Reference {
			return part, true
		}
		for _, token := range tokens {
			if token == part.Name {
				return part, true
			}
		}
	}
	return nil, false
}

// sortedKeys orders a map's keys so collected error messages come out in a
// stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package config

import (
	"strings"

	"github.com/lfdn/facerig/internal/report"
)

// RemovePart removes a modeling hierarchy entry. It refuses while any stack
// still resolves to the part, so dangling stacks cannot be created by
// configuration surgery between pipeline steps.
func (m *Model) RemovePart(name string) error {
	part, ok := m.Parts[name]
	if !ok {
		return report.Fatal("part %q not found", name)
	}

	var referencing []string
	for _, key := range m.StackOrder {
		if owner, ok := m.PartForMesh(key); ok && owner == part {
			referencing = append(referencing, key)
		}
	}
	if len(referencing) > 0 {
		return report.Fatal("part %q is still referenced by stack(s): %s; remove those first",
			name, strings.Join(referencing, ", "))
	}

	delete(m.Parts, name)
	for i, key := range m.PartOrder {
		if key == name {
			m.PartOrder = append(m.PartOrder[:i], m.PartOrder[i+1:]...)
			break
		}
	}
	return nil
}

// RemoveStack removes a deformer stack entry.
func (m *Model) RemoveStack(meshKey string) error {
	if _, ok := m.Stacks[meshKey]; !ok {
		return report.Fatal("stack %q not found", meshKey)
	}
	delete(m.Stacks, meshKey)
	for i, key := range m.StackOrder {
		if key == meshKey {
			m.StackOrder = append(m.StackOrder[:i], m.StackOrder[i+1:]...)
			break
		}
	}
	return nil
}

package scene

import "errors"

var (
	// ErrNotFound is returned when a named node or deformer is absent.
	ErrNotFound = errors.New("scene: node not found")

	// ErrAlreadyExists is returned when a creation target name is taken.
	ErrAlreadyExists = errors.New("scene: node already exists")

	// ErrAttrNotFound is returned when a node lacks the requested attribute.
	ErrAttrNotFound = errors.New("scene: attribute not found")

	// ErrLocked is returned when writing a locked attribute.
	ErrLocked = errors.New("scene: attribute is locked")

	// ErrCycle is returned when a reparent would create a hierarchy cycle.
	ErrCycle = errors.New("scene: hierarchy cycle")
)

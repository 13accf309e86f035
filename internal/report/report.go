// Package report defines the error taxonomy shared by every pipeline step and
// the batch report a step returns.
//
// Structural configuration problems are fatal and abort a step before any
// scene mutation. Everything else, such as a missing node or a stack whose
// shape no longer matches its export, is collected per entity so one bad
// mesh never aborts an otherwise successful rebuild.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel classes for the failure taxonomy. Issues wrap one of these so
// callers can match with errors.Is.
var (
	// ErrConfiguration marks a malformed or self-inconsistent configuration
	// entry: unresolved placeholder, duplicate key, dangling reference.
	ErrConfiguration = errors.New("facerig: configuration error")

	// ErrNomenclature marks a name expected in the live scene that is absent
	// or differently spelled. The dominant real-world failure mode; messages
	// always carry expected versus found.
	ErrNomenclature = errors.New("facerig: nomenclature mismatch")

	// ErrStackIndex marks a rebuilt deformer stack whose count or kind
	// sequence differs from the exported one.
	ErrStackIndex = errors.New("facerig: stack index mismatch")

	// ErrAlreadyExists marks a duplication target colliding with existing
	// scene content.
	ErrAlreadyExists = errors.New("facerig: resource already exists")
)

// Severity distinguishes issues that failed work from advisory notes.
type Severity int

const (
	// SeverityWarning marks work that was skipped but is tolerable, e.g. a
	// configured entity the current character deliberately lacks.
	SeverityWarning Severity = iota

	// SeverityError marks work that failed for its entity.
	SeverityError
)

// Issue is one collected per-entity failure.
type Issue struct {
	Entity   string
	Severity Severity
	Err      error
}

func (i Issue) String() string {
	sev := "error"
	if i.Severity == SeverityWarning {
		sev = "warning"
	}
	return fmt.Sprintf("[%s] %s: %v", sev, i.Entity, i.Err)
}

// Report accumulates the outcome of one pipeline step.
type Report struct {
	// Session identifies the build session the step ran in.
	Session uuid.UUID

	// Step is the step name, e.g. "create-deformers".
	Step string

	// Completed counts the entities the step finished successfully.
	Completed int

	Issues []Issue
}

// New returns an empty report for the named step.
func New(step string) *Report {
	return &Report{Session: uuid.New(), Step: step}
}

// Error records a per-entity failure wrapping the given taxonomy class.
func (r *Report) Error(entity string, class error, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Entity:   entity,
		Severity: SeverityError,
		Err:      fmt.Errorf("%w: "+format, append([]any{class}, args...)...),
	})
}

// Warn records an advisory per-entity issue.
func (r *Report) Warn(entity string, class error, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Entity:   entity,
		Severity: SeverityWarning,
		Err:      fmt.Errorf("%w: "+format, append([]any{class}, args...)...),
	})
}

// Done increments the completed-entity counter.
func (r *Report) Done() { r.Completed++ }

// Errors returns the issues recorded with SeverityError.
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// HasClass reports whether any collected issue wraps the given class.
func (r *Report) HasClass(class error) bool {
	for _, issue := range r.Issues {
		if errors.Is(issue.Err, class) {
			return true
		}
	}
	return false
}

// Summary renders the report for operator consumption.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d completed, %d issue(s)", r.Step, r.Completed, len(r.Issues))
	for _, issue := range r.Issues {
		b.WriteString("\n  ")
		b.WriteString(issue.String())
	}
	return b.String()
}

// Fatal wraps a structural configuration error that must abort a step before
// any scene mutation.
func Fatal(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

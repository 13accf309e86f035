package stack

import (
	"errors"

	"github.com/lfdn/facerig/internal/report"
)

// classOf maps a per-mesh build error to its taxonomy class for reporting.
// Unclassified errors count as nomenclature problems, the dominant failure
// mode of name-keyed lookups.
func classOf(err error) error {
	switch {
	case errors.Is(err, report.ErrAlreadyExists):
		return report.ErrAlreadyExists
	case errors.Is(err, report.ErrConfiguration):
		return report.ErrConfiguration
	default:
		return report.ErrNomenclature
	}
}

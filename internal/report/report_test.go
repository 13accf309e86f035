package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	rep := New("create-deformers")
	rep.Done()
	rep.Done()
	rep.Error("L_cheek_mesh", ErrStackIndex, "exported %d deformers, scene has %d", 3, 2)
	rep.Warn("R_cheek_mesh", ErrNomenclature, "not in scene")

	t.Run("errors exclude warnings", func(t *testing.T) {
		errs := rep.Errors()
		require.Len(t, errs, 1)
		assert.Equal(t, "L_cheek_mesh", errs[0].Entity)
		assert.Len(t, rep.Issues, 2)
	})

	t.Run("class matching works through wrapping", func(t *testing.T) {
		assert.True(t, rep.HasClass(ErrStackIndex))
		assert.True(t, rep.HasClass(ErrNomenclature))
		assert.False(t, rep.HasClass(ErrAlreadyExists))
	})

	t.Run("summary names the step and the counts", func(t *testing.T) {
		s := rep.Summary()
		assert.Contains(t, s, "create-deformers")
		assert.Contains(t, s, "2")
	})

	t.Run("sessions are unique per report", func(t *testing.T) {
		other := New("create-deformers")
		assert.NotEqual(t, rep.Session, other.Session)
	})
}

func TestFatal(t *testing.T) {
	err := Fatal("bad config: %s", "details")
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.ErrorContains(t, err, "details")
}

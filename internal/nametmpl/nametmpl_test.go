package nametmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Run("plain key yields exactly one name", func(t *testing.T) {
		names, err := Resolve("jaw_mesh", Context{})
		require.NoError(t, err)
		assert.Equal(t, []string{"jaw_mesh"}, names)
	})

	t.Run("side expansion yields L then R", func(t *testing.T) {
		names, err := Resolve("{}_cheek_mesh", Context{})
		require.NoError(t, err)
		assert.Equal(t, []string{"L_cheek_mesh", "R_cheek_mesh"}, names)
	})

	t.Run("side token substitutes the current side", func(t *testing.T) {
		names, err := Resolve("{side}_brow_cluster", Context{Side: "L"})
		require.NoError(t, err)
		assert.Equal(t, []string{"L_brow_cluster"}, names)
	})

	t.Run("side token inside side expansion follows each side", func(t *testing.T) {
		names, err := Resolve("{}_lid_{side}_wire", Context{})
		require.NoError(t, err)
		assert.Equal(t, []string{"L_lid_L_wire", "R_lid_R_wire"}, names)
	})

	t.Run("name token substitutes the owning name", func(t *testing.T) {
		names, err := Resolve("{name}_skin", Context{Name: "L_cheek_mesh"})
		require.NoError(t, err)
		assert.Equal(t, []string{"L_cheek_mesh_skin"}, names)
	})

	t.Run("side token without a side in scope fails", func(t *testing.T) {
		_, err := Resolve("{side}_brow_cluster", Context{})
		assert.ErrorContains(t, err, "no side is in scope")
	})

	t.Run("name token without an owner fails", func(t *testing.T) {
		_, err := Resolve("{name}_skin", Context{})
		assert.ErrorContains(t, err, "no owning name is in scope")
	})

	t.Run("unknown token never leaks into a name", func(t *testing.T) {
		_, err := Resolve("{mirror}_cheek", Context{Side: "L", Name: "x"})
		assert.ErrorContains(t, err, "unknown token")
	})

	t.Run("second expansion token is rejected", func(t *testing.T) {
		// Only the first "{}" expands; a second one survives substitution
		// and must be caught rather than written into a node name.
		_, err := Resolve("{}_cheek_{}", Context{})
		assert.ErrorContains(t, err, "unknown token")
	})
}

func TestValidateTokens(t *testing.T) {
	assert.NoError(t, ValidateTokens("{}_cheek_{side}_{name}"))
	assert.NoError(t, ValidateTokens("plain_name"))
	assert.ErrorContains(t, ValidateTokens("{oops}_cheek"), "unknown token")
	assert.ErrorContains(t, ValidateTokens("cheek_{"), "unbalanced braces")
}

func TestCollisionCheck(t *testing.T) {
	assert.NoError(t, CollisionCheck([]string{"a", "b", "c"}))
	assert.ErrorContains(t, CollisionCheck([]string{"a", "b", "a"}), `"a"`)
}

func TestSideOf(t *testing.T) {
	assert.Equal(t, "L", SideOf("L_cheek_mesh"))
	assert.Equal(t, "R", SideOf("R_cheek_mesh"))
	assert.Equal(t, "", SideOf("jaw_mesh"))
	assert.Equal(t, "", SideOf("jaw"))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "L_cheek", BaseName("L_cheek_geo"))
	assert.Equal(t, "L_cheek", BaseName("L_cheek_mesh"))
	assert.Equal(t, "jaw_ctrl", BaseName("jaw_ctrl"))
}
